package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
)

// ReturnResult is the answer to a wallet return.
type ReturnResult struct {
	Pidx              string            `json:"pidx"`
	OrderID           string            `json:"orderId,omitempty"`
	TransactionStatus TransactionStatus `json:"transactionStatus"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus,omitempty"`
}

// HandleKhaltiReturn never trusts the query string beyond pidx: it asks the
// API to verify the session and reports the listed order holding it. A
// purchase_order_id naming another order is ignored.
func HandleKhaltiReturn(co *Checkout) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		pidx := web.Query(r, "pidx")
		if pidx == "" {
			return weberr.BadRequest(errors.New("missing pidx in payment return"))
		}

		v, err := co.VerifyTransaction(ctx, pidx)
		if err != nil {
			if weberr.Answered(err) {
				return err
			}
			return weberr.NewError(err, weberr.Message(err, fbVerify), http.StatusBadGateway, weberr.WithSession(pidx))
		}

		res := ReturnResult{
			Pidx:              pidx,
			OrderID:           v.OrderID,
			TransactionStatus: v.Status,
		}
		if res.OrderID != "" {
			if ord, ok := co.Store().Order(res.OrderID); ok {
				res.PaymentStatus = ord.Payment.PaymentStatus
			}
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleStatusPush applies an order status confirmed by the server through
// another channel.
func HandleStatusPush(store *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		var up StatusUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding status push: %w", err))
		}
		if !up.OrderStatus.Valid() {
			return weberr.BadRequest(fmt.Errorf("order status %q: %w", up.OrderStatus, ErrUnknownValue))
		}

		matched := store.ApplyOrderStatus(id, up.OrderStatus)
		recordTransition("order", matched)
		if !matched {
			return weberr.NotFound(fmt.Errorf("order[%s] is not in the projection", id), weberr.WithOrder(id))
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandlePaymentPush applies a payment status confirmed by the server through
// another channel.
func HandlePaymentPush(store *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		var up PaymentUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding payment push: %w", err))
		}
		if !up.PaymentStatus.Valid() {
			return weberr.BadRequest(fmt.Errorf("payment status %q: %w", up.PaymentStatus, ErrUnknownValue))
		}

		matched := store.ApplyPaymentStatus(id, up.PaymentStatus)
		recordTransition("payment", matched)
		if !matched {
			return weberr.NotFound(fmt.Errorf("order[%s] is not in the projection", id), weberr.WithOrder(id))
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleSnapshot(store *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, store.Snapshot(), http.StatusOK)
	}
}
