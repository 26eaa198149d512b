package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors logs handler failures and turns them into the JSON error envelope.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := map[string]interface{}{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			log.WithFields(logrus.Fields(fields)).Error("ERROR")

			if weberr.Answered(err) {
				body, code, _ := weberr.Response(err)
				return web.Respond(ctx, w, body, code)
			}

			er := weberr.ErrorResponse{
				Message: http.StatusText(http.StatusInternalServerError),
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
