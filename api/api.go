package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-checkout/api/middleware"
	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/core/order"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	Checkout   *order.Checkout
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

// CallbackMux serves the out of band entry points into the order projection:
// payment returns, pushed status changes, a read-only snapshot and metrics.
func CallbackMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Metrics())
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	store := cfg.Checkout.Store()

	a.Handle(http.MethodGet, "/payment/khalti/return", order.HandleKhaltiReturn(cfg.Checkout))
	a.Handle(http.MethodGet, "/orders", order.HandleSnapshot(store))
	a.Handle(http.MethodPatch, "/orders/{id}/status", order.HandleStatusPush(store))
	a.Handle(http.MethodPatch, "/orders/{id}/payment", order.HandlePaymentPush(store))

	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
