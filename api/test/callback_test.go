package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/irsalhamdi/e-commerce-checkout/core/order"
)

type callbackTest struct {
	*TestEnv
}

func TestCallback(t *testing.T) {
	env := NewTestEnv(t)
	ct := &callbackTest{env}

	if _, err := env.Checkout.FetchMyOrders(context.Background()); err != nil {
		t.Fatalf("seeding projection: %v", err)
	}

	t.Run("khalti return completed", ct.khaltiReturnCompleted)
	t.Run("khalti return pending", ct.khaltiReturnPending)
	t.Run("khalti return naming another order", ct.khaltiReturnOtherOrder)
	t.Run("khalti return unknown session", ct.khaltiReturnUnknown)
	t.Run("khalti return without pidx", ct.khaltiReturnMissingPidx)
	t.Run("status push", ct.statusPush)
	t.Run("status push unknown order", ct.statusPushUnknown)
	t.Run("status push unknown status", ct.statusPushBadStatus)
	t.Run("payment push", ct.paymentPush)
	t.Run("snapshot", ct.snapshot)
	t.Run("metrics", ct.metrics)
}

func (ct *callbackTest) get(t *testing.T, path string) *http.Response {
	t.Helper()

	w, err := ct.Client().Get(ct.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Body.Close() })
	return w
}

func (ct *callbackTest) patch(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPatch, ct.URL+path, bytes.NewBuffer(b))
	if err != nil {
		t.Fatal(err)
	}

	w, err := ct.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Body.Close() })
	return w
}

func (ct *callbackTest) khaltiReturnCompleted(t *testing.T) {
	w := ct.get(t, "/payment/khalti/return?pidx=px-o2&status=Completed&purchase_order_id=o2")
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't handle payment return: status code %s", w.Status)
	}

	var res order.ReturnResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("cannot unmarshal return result: %v", err)
	}

	if res.TransactionStatus != order.TxCompleted || res.PaymentStatus != order.Paid || res.OrderID != "o2" {
		t.Fatalf("unexpected result %+v", res)
	}

	o, _ := ct.Checkout.Store().Order("o2")
	if o.Payment.PaymentStatus != order.Paid {
		t.Fatalf("expected o2 to be paid, got %s", o.Payment.PaymentStatus)
	}
}

func (ct *callbackTest) khaltiReturnPending(t *testing.T) {
	w := ct.get(t, "/payment/khalti/return?pidx=px-wait&status=Pending&purchase_order_id=o1")
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't handle payment return: status code %s", w.Status)
	}

	o, _ := ct.Checkout.Store().Order("o1")
	if o.Payment.PaymentStatus != order.Unpaid {
		t.Fatalf("a pending transaction must not mark o1 paid, got %s", o.Payment.PaymentStatus)
	}
}

func (ct *callbackTest) khaltiReturnOtherOrder(t *testing.T) {
	w := ct.get(t, "/payment/khalti/return?pidx=px-o2&status=Completed&purchase_order_id=o1")
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't handle payment return: status code %s", w.Status)
	}

	var res order.ReturnResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("cannot unmarshal return result: %v", err)
	}
	if res.OrderID != "o2" {
		t.Fatalf("expected the order holding px-o2, got %q", res.OrderID)
	}

	o, _ := ct.Checkout.Store().Order("o1")
	if o.Payment.PaymentStatus != order.Unpaid {
		t.Fatalf("cash on delivery order o1 must stay unpaid, got %s", o.Payment.PaymentStatus)
	}
}

func (ct *callbackTest) khaltiReturnUnknown(t *testing.T) {
	w := ct.get(t, "/payment/khalti/return?pidx=nope")
	if w.StatusCode != http.StatusNotFound {
		t.Fatalf("expected the storefront 404 to surface, got %s", w.Status)
	}

	b, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(b), "Invalid pidx") {
		t.Fatalf("expected the storefront message, got %s", b)
	}
}

func (ct *callbackTest) khaltiReturnMissingPidx(t *testing.T) {
	w := ct.get(t, "/payment/khalti/return?status=Completed")
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %s", w.Status)
	}
}

func (ct *callbackTest) statusPush(t *testing.T) {
	w := ct.patch(t, "/orders/o1/status", map[string]string{"orderStatus": "preparation"})
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't push status: status code %s", w.Status)
	}

	o, _ := ct.Checkout.Store().Order("o1")
	if o.OrderStatus != order.Preparation {
		t.Fatalf("expected preparation, got %s", o.OrderStatus)
	}
}

func (ct *callbackTest) statusPushUnknown(t *testing.T) {
	before := len(ct.Checkout.Store().Orders())

	w := ct.patch(t, "/orders/o9/status", map[string]string{"orderStatus": "delivered"})
	if w.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %s", w.Status)
	}

	if after := len(ct.Checkout.Store().Orders()); after != before {
		t.Fatalf("no phantom insert expected: %d -> %d", before, after)
	}
}

func (ct *callbackTest) statusPushBadStatus(t *testing.T) {
	w := ct.patch(t, "/orders/o1/status", map[string]string{"orderStatus": "teleported"})
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %s", w.Status)
	}
}

func (ct *callbackTest) paymentPush(t *testing.T) {
	w := ct.patch(t, "/orders/o1/payment", map[string]string{"paymentStatus": "paid"})
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't push payment: status code %s", w.Status)
	}

	o, _ := ct.Checkout.Store().Order("o1")
	if o.Payment.PaymentStatus != order.Paid {
		t.Fatalf("expected paid, got %s", o.Payment.PaymentStatus)
	}
}

func (ct *callbackTest) snapshot(t *testing.T) {
	w := ct.get(t, "/orders")
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't read snapshot: status code %s", w.Status)
	}
	if got := w.Header.Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Fatalf("unexpected cors origin %q", got)
	}
	if w.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}

	var snap order.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("cannot unmarshal snapshot: %v", err)
	}
	if len(snap.Orders) != 2 {
		t.Fatalf("expected two orders, got %d", len(snap.Orders))
	}
}

func (ct *callbackTest) metrics(t *testing.T) {
	w := ct.get(t, "/metrics")
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't scrape metrics: status code %s", w.Status)
	}

	b, _ := io.ReadAll(w.Body)
	for _, name := range []string{"checkout_operations_total", "order_transitions_total", "callback_http_requests_total"} {
		if !strings.Contains(string(b), name) {
			t.Fatalf("expected metric %s to be exported", name)
		}
	}
}
