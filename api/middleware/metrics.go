package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zenazn/goji/web/mutil"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_http_requests_total",
			Help: "Total number of HTTP requests served by the callback server",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callback_http_request_duration_seconds",
			Help:    "Callback server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// Metrics records request counts and latencies labelled by route template.
func Metrics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()

			endpoint := routeTemplate(r)

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}

			httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
		return h
	}
	return m
}
