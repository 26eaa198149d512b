package order

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-commerce-checkout/api/client"
	"github.com/irsalhamdi/e-commerce-checkout/api/web"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/irsalhamdi/e-commerce-checkout/core/tolerant"
	"github.com/irsalhamdi/e-commerce-checkout/rate"
	"github.com/sirupsen/logrus"
)

type failure struct {
	status  int
	message string
}

// fakeAPI is an in-memory storefront order API.
type fakeAPI struct {
	mu            sync.Mutex
	orders        []Order
	details       map[string][]DetailLine
	verifications map[string]Verification
	failures      map[string]failure
	raw           map[string]string
	redirect      string
	nextID        int
	placed        []OrderNew
	calls         map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		details:       make(map[string][]DetailLine),
		verifications: make(map[string]Verification),
		failures:      make(map[string]failure),
		raw:           make(map[string]string),
		calls:         make(map[string]int),
	}
}

func (f *fakeAPI) failWith(route string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = failure{status, message}
}

// respondRaw makes route answer 200 with body verbatim.
func (f *fakeAPI) respondRaw(route string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[route] = body
}

func (f *fakeAPI) serverOrders() []Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneOrders(f.orders)
}

func (f *fakeAPI) callCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeAPI) handler() http.Handler {
	// intercept answers a configured failure or raw body, under the lock.
	intercept := func(route string, w http.ResponseWriter, r *http.Request) bool {
		f.calls[route]++
		if fl, ok := f.failures[route]; ok {
			var body interface{}
			if fl.message != "" {
				body = weberr.ErrorResponse{Message: fl.message}
			}
			web.Respond(r.Context(), w, body, fl.status)
			return true
		}
		if raw, ok := f.raw[route]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, raw)
			return true
		}
		return false
	}

	place := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("place", w, r) {
			return
		}

		var on OrderNew
		if err := json.NewDecoder(r.Body).Decode(&on); err != nil {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: err.Error()}, http.StatusBadRequest)
			return
		}
		f.placed = append(f.placed, on)

		f.nextID++
		ord := Order{
			ID:              fmt.Sprintf("o%d", f.nextID),
			PhoneNumber:     on.PhoneNumber,
			ShippingAddress: on.ShippingAddress,
			TotalAmount:     tolerant.Amount(on.TotalAmount),
			OrderStatus:     Pending,
			Payment:         Payment{PaymentMethod: on.PaymentDetails.PaymentMethod, PaymentStatus: Unpaid},
			Items:           on.Items,
			CreatedAt:       tolerant.Time{Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		}

		resp := map[string]interface{}{"message": "Order placed successfully"}
		if ord.Payment.PaymentMethod == Khalti {
			ord.Payment.Pidx = fmt.Sprintf("pidx-%s", ord.ID)
			resp["url"] = f.redirect
		}
		resp["data"] = ord

		f.orders = append(f.orders, ord)
		web.Respond(r.Context(), w, resp, http.StatusOK)
	}

	list := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("list", w, r) {
			return
		}
		resp := map[string]interface{}{"message": "Orders fetched successfully", "data": f.orders}
		web.Respond(r.Context(), w, resp, http.StatusOK)
	}

	detail := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("detail", w, r) {
			return
		}
		lines, ok := f.details[web.Param(r, "id")]
		if !ok {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: "No order found"}, http.StatusNotFound)
			return
		}
		web.Respond(r.Context(), w, map[string]interface{}{"message": "Order fetched", "data": lines}, http.StatusOK)
	}

	setStatus := func(id string, status OrderStatus) bool {
		for i := range f.orders {
			if f.orders[i].ID == id {
				f.orders[i].OrderStatus = status
				return true
			}
		}
		return false
	}

	cancel := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("cancel", w, r) {
			return
		}
		if !setStatus(web.Param(r, "id"), Cancelled) {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: "No order found"}, http.StatusNotFound)
			return
		}
		web.Respond(r.Context(), w, map[string]string{"message": "Order cancelled successfully"}, http.StatusOK)
	}

	admin := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("admin", w, r) {
			return
		}
		var up StatusUp
		if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: err.Error()}, http.StatusBadRequest)
			return
		}
		if !setStatus(web.Param(r, "id"), up.OrderStatus) {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: "No order found"}, http.StatusNotFound)
			return
		}
		web.Respond(r.Context(), w, map[string]string{"message": "Order status updated"}, http.StatusOK)
	}

	verify := func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if intercept("verify", w, r) {
			return
		}
		var body struct {
			Pidx string `json:"pidx"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: err.Error()}, http.StatusBadRequest)
			return
		}
		v, ok := f.verifications[body.Pidx]
		if !ok {
			web.Respond(r.Context(), w, weberr.ErrorResponse{Message: "Invalid pidx"}, http.StatusNotFound)
			return
		}
		if v.Status == TxCompleted {
			for i := range f.orders {
				if f.orders[i].Payment.Pidx == body.Pidx {
					f.orders[i].Payment.PaymentStatus = Paid
				}
			}
		}
		web.Respond(r.Context(), w, map[string]interface{}{"message": "Payment verified", "data": v}, http.StatusOK)
	}

	rt := mux.NewRouter()
	rt.HandleFunc("/api/order", place).Methods(http.MethodPost)
	rt.HandleFunc("/api/order/verify", verify).Methods(http.MethodPost)
	rt.HandleFunc("/api/order/customer", list).Methods(http.MethodGet)
	rt.HandleFunc("/api/order/customer/{id}", detail).Methods(http.MethodGet)
	rt.HandleFunc("/api/order/customer/{id}", cancel).Methods(http.MethodPatch)
	rt.HandleFunc("/api/order/admin/{id}", admin).Methods(http.MethodPatch)
	return rt
}

type testEnv struct {
	api      *fakeAPI
	checkout *Checkout
	store    *Store
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newLimitedTestEnv(t, nil)
}

// newLimitedTestEnv throttles repeated submissions with lim.
func newLimitedTestEnv(t *testing.T, lim *rate.Limiter) *testEnv {
	t.Helper()

	fake := newFakeAPI()
	fake.redirect = "https://pay.example/x"

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	cl, err := client.New(client.Config{
		BaseURL:    srv.URL + "/api",
		Token:      "token",
		Timeout:    5 * time.Second,
		Log:        quietLog(),
		HTTPClient: srv.Client(),
		Limiter:    lim,
	})
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	store := NewStore(quietLog())
	return &testEnv{
		api:      fake,
		checkout: NewCheckout(cl, store, quietLog()),
		store:    store,
	}
}

func (f *fakeAPI) setDetails(id string, lines []DetailLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[id] = lines
}

func (f *fakeAPI) setVerification(v Verification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications[v.Pidx] = v
}

func (f *fakeAPI) dropFirstOrder() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = f.orders[1:]
}

func (f *fakeAPI) placedRequests() []OrderNew {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OrderNew, len(f.placed))
	copy(out, f.placed)
	return out
}
