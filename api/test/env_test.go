package test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irsalhamdi/e-commerce-checkout/api"
	"github.com/irsalhamdi/e-commerce-checkout/api/client"
	"github.com/irsalhamdi/e-commerce-checkout/core/order"
	"github.com/sirupsen/logrus"
)

// TestEnv wires a fake storefront, the checkout core and the callback server.
type TestEnv struct {
	*httptest.Server
	Storefront *mockStorefront
	Checkout   *order.Checkout
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	sf := newMockStorefront()
	upstream := httptest.NewServer(sf.handle())
	t.Cleanup(upstream.Close)

	cl, err := client.New(client.Config{
		BaseURL:    upstream.URL + "/api",
		Token:      "test-token",
		Timeout:    5 * time.Second,
		Log:        log,
		HTTPClient: upstream.Client(),
	})
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	co := order.NewCheckout(cl, order.NewStore(log), log)

	srv := httptest.NewServer(api.CallbackMux(api.APIConfig{
		CorsOrigin: "https://shop.example",
		Log:        log,
		Checkout:   co,
	}))
	t.Cleanup(srv.Close)

	return &TestEnv{
		Server:     srv,
		Storefront: sf,
		Checkout:   co,
	}
}
