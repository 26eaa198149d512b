package test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/irsalhamdi/e-commerce-checkout/core/order"
)

type mockStorefront struct {
	mu     sync.Mutex
	orders []order.Order
	txs    map[string]order.TransactionStatus
}

func newMockStorefront() *mockStorefront {
	return &mockStorefront{
		orders: []order.Order{
			{ID: "o1", OrderStatus: order.Pending, Payment: order.Payment{PaymentMethod: order.Cod, PaymentStatus: order.Unpaid}},
			{ID: "o2", OrderStatus: order.Pending, Payment: order.Payment{PaymentMethod: order.Khalti, PaymentStatus: order.Unpaid, Pidx: "px-o2"}},
		},
		txs: map[string]order.TransactionStatus{
			"px-o2":   order.TxCompleted,
			"px-wait": order.TxPending,
		},
	}
}

func (m *mockStorefront) handle() http.Handler {
	list := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		web.Respond(context.Background(), w, map[string]any{"data": m.orders}, http.StatusOK)
	})

	verify := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Pidx string `json:"pidx"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		status, ok := m.txs[body.Pidx]
		m.mu.Unlock()
		if !ok {
			web.Respond(context.Background(), w, weberr.ErrorResponse{Message: "Invalid pidx"}, http.StatusNotFound)
			return
		}

		v := order.Verification{Pidx: body.Pidx, Status: status, TotalAmount: 1000, TransactionID: "tx-" + body.Pidx}
		web.Respond(context.Background(), w, map[string]any{"message": "verified", "data": v}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/api/order/customer", list).Methods(http.MethodGet)
	r.Handle("/api/order/verify", verify).Methods(http.MethodPost)
	return r
}
