package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger logs every callback with the order or wallet session it touches.
// Rejected callbacks are logged at warn level, failed ones at error level.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			log := log.WithFields(callbackFields(ctx, r))

			log.Debug("callback started")
			startTime := time.Now().UTC()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}

			log = log.WithFields(logrus.Fields{
				"statuscode": status,
				"bytes":      lw.BytesWritten(),
				"since":      time.Since(startTime).Nanoseconds(),
			})
			if err != nil {
				log = log.WithError(err)
			}

			switch {
			case status >= http.StatusInternalServerError || err != nil:
				log.Error("callback failed")
			case status >= http.StatusBadRequest:
				log.Warn("callback rejected")
			default:
				log.Info("callback completed")
			}
			return err
		}
		return h
	}
	return m
}

func callbackFields(ctx context.Context, r *http.Request) logrus.Fields {
	fields := logrus.Fields{
		"method":     r.Method,
		"route":      routeTemplate(r),
		"remoteaddr": r.RemoteAddr,
	}
	if rid := ContextRequestID(ctx); rid != "" {
		fields["req_id"] = rid
	}
	if id := mux.Vars(r)["id"]; id != "" {
		fields["order_id"] = id
	}
	if pidx := r.URL.Query().Get("pidx"); pidx != "" {
		fields["pidx"] = pidx
	}
	return fields
}

// routeTemplate is the mux path template of r, or its raw path outside a
// router.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
