package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/irsalhamdi/e-commerce-checkout/api/client"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/irsalhamdi/e-commerce-checkout/core/claims"
	"github.com/sirupsen/logrus"
)

const (
	opPlace   = "order.place"
	opList    = "order.list"
	opDetail  = "order.detail"
	opCancel  = "order.cancel"
	opUpdate  = "order.update_status"
	opVerify  = "order.verify"
	fbPlace   = "Something went wrong!"
	fbList    = "Failed to fetch orders"
	fbDetail  = "Failed to fetch order details"
	fbCancel  = "Failed to cancel order"
	fbUpdate  = "Failed to update order status"
	fbVerify  = "Failed to verify transaction"
	basePath  = "/order"
	ownerPath = basePath + "/customer"
	adminPath = basePath + "/admin"
)

// ErrInvalidID is returned for an order id that cannot name a single order
// resource.
var ErrInvalidID = errors.New("invalid order id")

// Doer sends one API request. *client.Client implements it.
type Doer interface {
	Do(ctx context.Context, r client.Request, out interface{}) error
}

// Checkout runs the order workflow against the API and mirrors accepted
// responses into its Store.
type Checkout struct {
	api   Doer
	store *Store
	log   logrus.FieldLogger
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	URL     string          `json:"url"`
	Session *Session        `json:"session"`
}

func NewCheckout(api Doer, store *Store, log logrus.FieldLogger) *Checkout {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Checkout{
		api:   api,
		store: store,
		log:   log,
	}
}

func (c *Checkout) Store() *Store {
	return c.store
}

// PlaceOrder submits on. The caller is expected to have checked it with
// CheckNew.
func (c *Checkout) PlaceOrder(ctx context.Context, on OrderNew) (Order, error) {
	req := client.Request{
		Op:       opPlace,
		Method:   http.MethodPost,
		Path:     basePath,
		Body:     on,
		Fallback: fbPlace,
		Throttle: true,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return Order{}, err
	}

	var ord Order
	if err := decodeData(env.Data, &ord); err != nil {
		return Order{}, c.failed(req, fmt.Errorf("decoding placed order: %w", err))
	}

	redirect := env.URL
	if redirect == "" && env.Session != nil {
		redirect = env.Session.PaymentURL
	}

	c.warnInconsistent(ord)

	c.store.succeed(env.Message, func(s *Store) {
		if ord.ID != "" {
			s.appendOrder(ord)
		}
		s.redirectURL = redirect
		s.session = env.Session
	})
	c.succeeded(req, logrus.Fields{"order_id": ord.ID, "redirect": redirect != ""})

	return ord.clone(), nil
}

// FetchMyOrders replaces the listed orders with the server's list.
func (c *Checkout) FetchMyOrders(ctx context.Context) ([]Order, error) {
	req := client.Request{
		Op:       opList,
		Method:   http.MethodGet,
		Path:     ownerPath,
		Fallback: fbList,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := decodeData(env.Data, &orders); err != nil {
		return nil, c.failed(req, fmt.Errorf("decoding orders: %w", err))
	}
	if orders == nil {
		orders = []Order{}
	}

	for _, o := range orders {
		c.warnInconsistent(o)
	}

	c.store.succeed(env.Message, func(s *Store) {
		s.orders = orders
	})
	c.succeeded(req, logrus.Fields{"count": len(orders)})

	return cloneOrders(orders), nil
}

// FetchOrderDetail replaces the detail slot. The listed orders are left alone.
func (c *Checkout) FetchOrderDetail(ctx context.Context, id string) (Detail, error) {
	path, err := orderPath(ownerPath, id)
	if err != nil {
		return Detail{}, err
	}

	req := client.Request{
		Op:       opDetail,
		Method:   http.MethodGet,
		Path:     path,
		Fallback: fbDetail,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return Detail{}, err
	}

	lines, err := decodeLines(env.Data)
	if err != nil {
		return Detail{}, c.failed(req, fmt.Errorf("decoding order[%s] details: %w", id, err))
	}

	d := Detail{OrderID: id, Lines: lines}
	c.store.succeed(env.Message, func(s *Store) {
		s.detail = &d
	})
	c.succeeded(req, logrus.Fields{"order_id": id, "lines": len(lines)})

	return d.clone(), nil
}

// CancelOrder asks for the cancellation of order id and refreshes the list.
// The cancelled status is only visible once the refresh succeeded.
func (c *Checkout) CancelOrder(ctx context.Context, id string) error {
	path, err := orderPath(ownerPath, id)
	if err != nil {
		return err
	}

	req := client.Request{
		Op:       opCancel,
		Method:   http.MethodPatch,
		Path:     path,
		Fallback: fbCancel,
		Throttle: true,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return err
	}

	c.store.succeed(env.Message, nil)
	c.succeeded(req, logrus.Fields{"order_id": id})

	if _, err := c.FetchMyOrders(ctx); err != nil {
		return fmt.Errorf("refreshing orders after cancelling order[%s]: %w", id, err)
	}
	return nil
}

// UpdateOrderStatus is the privileged path: only an admin caller may push a
// status. The list is refreshed on success.
func (c *Checkout) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) error {
	if err := claims.Require(ctx, claims.RoleAdmin); err != nil {
		return weberr.NotAuthorized(fmt.Errorf("updating an order status: %w", err), weberr.WithOrder(id))
	}

	if !status.Valid() {
		err := fmt.Errorf("order status %q: %w", status, ErrUnknownValue)
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	path, err := orderPath(adminPath, id)
	if err != nil {
		return err
	}

	req := client.Request{
		Op:       opUpdate,
		Method:   http.MethodPatch,
		Path:     path,
		Body:     StatusUp{OrderStatus: status},
		Fallback: fbUpdate,
		Throttle: true,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return err
	}

	c.store.succeed(env.Message, nil)
	c.succeeded(req, logrus.Fields{"order_id": id, "order_status": status})

	if _, err := c.FetchMyOrders(ctx); err != nil {
		return fmt.Errorf("refreshing orders after updating order[%s]: %w", id, err)
	}
	return nil
}

// VerifyTransaction looks up the payment session pidx. A completed
// transaction marks the order holding pidx as paid and clears the pending
// redirect. The returned OrderID is the listed order holding pidx, if any.
func (c *Checkout) VerifyTransaction(ctx context.Context, pidx string) (Verification, error) {
	if pidx == "" {
		err := errors.New("payment session id is required")
		return Verification{}, weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	req := client.Request{
		Op:       opVerify,
		Method:   http.MethodPost,
		Path:     basePath + "/verify",
		Body:     map[string]string{"pidx": pidx},
		Fallback: fbVerify,
		Throttle: true,
	}

	env, err := c.call(ctx, req)
	if err != nil {
		return Verification{}, err
	}

	var v Verification
	if err := decodeData(env.Data, &v); err != nil {
		return Verification{}, c.failed(req, fmt.Errorf("decoding verification of session[%s]: %w", pidx, err))
	}
	if v.Pidx == "" {
		v.Pidx = pidx
	}

	var orderID string
	if v.Status == TxCompleted {
		var matched bool
		orderID, matched = c.store.applyPaymentStatusByPidx(pidx, Paid)
		recordTransition("payment", matched)
	} else {
		orderID = c.store.orderIDByPidx(pidx)
	}
	v.OrderID = orderID

	c.store.succeed(env.Message, func(s *Store) {
		if v.Status == TxCompleted && (s.session == nil || s.session.Pidx == pidx) {
			s.redirectURL = ""
			s.session = nil
		}
	})
	c.succeeded(req, logrus.Fields{"pidx": pidx, "tx_status": v.Status, "order_id": orderID})

	return v, nil
}

// orderPath builds prefix/id. Ids that would resolve to another resource
// once the path is cleaned are rejected before any request is sent.
func orderPath(prefix, id string) (string, error) {
	switch strings.TrimSpace(id) {
	case "", ".", "..":
		err := fmt.Errorf("order id %q: %w", id, ErrInvalidID)
		return "", weberr.NewError(err, err.Error(), http.StatusBadRequest, weberr.WithOrder(id))
	}
	return prefix + "/" + url.PathEscape(id), nil
}

func (c *Checkout) call(ctx context.Context, req client.Request) (envelope, error) {
	c.store.begin()

	var env envelope
	if err := c.api.Do(ctx, req, &env); err != nil {
		return envelope{}, c.failed(req, err)
	}
	return env, nil
}

// failed records err on the store and returns it with its user message.
func (c *Checkout) failed(req client.Request, err error) error {
	msg := weberr.Message(err, req.Fallback)

	c.store.fail(msg)
	operationsTotal.WithLabelValues(req.Op, "error").Inc()

	c.log.WithFields(logrus.Fields{
		"op":      req.Op,
		"message": msg,
	}).WithError(err).Warn("checkout operation failed")

	if _, _, ok := weberr.Response(err); ok {
		return err
	}
	return weberr.NewError(err, msg, 0, weberr.WithOp(req.Op))
}

func (c *Checkout) succeeded(req client.Request, fields logrus.Fields) {
	operationsTotal.WithLabelValues(req.Op, "success").Inc()
	c.log.WithFields(fields).WithField("op", req.Op).Info("checkout operation succeeded")
}

func (c *Checkout) warnInconsistent(o Order) {
	if !o.Payment.Consistent() {
		c.log.WithFields(logrus.Fields{
			"order_id":       o.ID,
			"payment_method": o.Payment.PaymentMethod,
		}).Warn("payment session id on a non wallet payment")
	}
}

// decodeData treats a missing or null data field as no data.
func decodeData(raw json.RawMessage, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// decodeLines accepts either an array of detail lines or a single one.
func decodeLines(raw json.RawMessage) ([]DetailLine, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var line DetailLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, err
		}
		return []DetailLine{line}, nil
	}

	lines := []DetailLine{}
	if err := decodeData(raw, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []DetailLine{}
	}
	return lines, nil
}
