package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/validate"
)

const (
	RequestIDHeader = "X-Request-Id"

	DefaultRequestIDLengthLimit = 128
)

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

// RequestID keeps the caller supplied request id, truncated to the length
// limit, or generates one. The id is echoed back in the response header.
func RequestID() web.Middleware {
	lengthLimit := DefaultRequestIDLengthLimit
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = validate.GenerateID()
			} else if lengthLimit >= 0 && len(id) > lengthLimit {
				id = id[:lengthLimit]
			}
			w.Header().Set(RequestIDHeader, id)

			return handler(WithRequestID(ctx, id), w, r)
		}
		return h
	}
	return m
}

// WithRequestID tags ctx so that outgoing API calls reuse id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, reqIDKey, id)
}

func ContextRequestID(ctx context.Context) (reqID string) {
	id := ctx.Value(reqIDKey)
	if id != nil {
		reqID = id.(string)
	}
	return
}
