package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ardanlabs/conf/v3"
	"github.com/irsalhamdi/e-commerce-checkout/api"
	"github.com/irsalhamdi/e-commerce-checkout/api/client"
	"github.com/irsalhamdi/e-commerce-checkout/api/middleware"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/irsalhamdi/e-commerce-checkout/config"
	"github.com/irsalhamdi/e-commerce-checkout/core/cart"
	"github.com/irsalhamdi/e-commerce-checkout/core/claims"
	"github.com/irsalhamdi/e-commerce-checkout/core/order"
	"github.com/irsalhamdi/e-commerce-checkout/rate"
	"github.com/irsalhamdi/e-commerce-checkout/validate"
	"github.com/sirupsen/logrus"
)

var build = "develop"

const usage = `commands:
  orders                                    list my orders
  order <id>                                show one order's details
  place <order.json>                        place the order described in the file
  checkout <cart.json> <address> <phone> <cod|khalti>
                                            place an order for a cart
  cancel <id>                               cancel an order
  set-status <id> <status>                  push a new status (admin)
  verify <pidx>                             verify a wallet payment session
  listen                                    serve payment returns and status pushes`

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if err := Run(log); err != nil {
		log.Error(weberr.Message(err, err.Error()))
		log.Debug(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "ORDERCTL"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "order and checkout client",
		},
	}

	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			fmt.Println(usage)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	lim := rate.NewLimiter(cfg.Throttle.Burst, cfg.Throttle.Expiry, rate.Every(cfg.Throttle.Interval))
	defer lim.Close()

	cl, err := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Token:   cfg.Auth.Token,
		Log:     logger,
		Limiter: lim,
	})
	if err != nil {
		return fmt.Errorf("building api client: %w", err)
	}

	co := order.NewCheckout(cl, order.NewStore(logger), logger)

	role, err := claims.ParseRole(cfg.Auth.Role)
	if err != nil {
		return fmt.Errorf("parsing auth role: %w", err)
	}

	ctx := claims.Set(context.Background(), claims.Claims{UserID: cfg.Auth.UserID, Role: role})
	ctx = middleware.WithRequestID(ctx, validate.GenerateID())

	args := cfg.Args
	switch cmd := args.Num(0); cmd {
	case "orders":
		orders, err := co.FetchMyOrders(ctx)
		if err != nil {
			return err
		}
		return printJSON(orders)

	case "order":
		id, err := arg(args, 1, "order id")
		if err != nil {
			return err
		}
		d, err := co.FetchOrderDetail(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(d)

	case "place":
		path, err := arg(args, 1, "order file")
		if err != nil {
			return err
		}
		var on order.OrderNew
		if err := readJSON(path, &on); err != nil {
			return err
		}
		return place(ctx, co, on)

	case "checkout":
		if len(args) < 5 {
			return fmt.Errorf("checkout needs a cart file, address, phone and payment method\n%s", usage)
		}
		var c cart.Cart
		if err := readJSON(args.Num(1), &c); err != nil {
			return err
		}
		if c.Empty() {
			return errors.New("cart is empty")
		}
		method, err := order.ParsePaymentMethod(args.Num(4))
		if err != nil {
			return err
		}
		return place(ctx, co, order.NewFromCart(c, args.Num(2), args.Num(3), method))

	case "cancel":
		id, err := arg(args, 1, "order id")
		if err != nil {
			return err
		}
		if err := co.CancelOrder(ctx, id); err != nil {
			return err
		}
		o, _ := co.Store().Order(id)
		return printJSON(o)

	case "set-status":
		id, err := arg(args, 1, "order id")
		if err != nil {
			return err
		}
		raw, err := arg(args, 2, "order status")
		if err != nil {
			return err
		}
		status, err := order.ParseOrderStatus(raw)
		if err != nil {
			return err
		}
		if err := co.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
		o, _ := co.Store().Order(id)
		return printJSON(o)

	case "verify":
		pidx, err := arg(args, 1, "pidx")
		if err != nil {
			return err
		}
		v, err := co.VerifyTransaction(ctx, pidx)
		if err != nil {
			return err
		}
		return printJSON(v)

	case "listen":
		return listen(ctx, logger, cfg, co)

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func place(ctx context.Context, co *order.Checkout, on order.OrderNew) error {
	if err := order.CheckNew(on); err != nil {
		return fmt.Errorf("invalid order: %w", err)
	}

	o, err := co.PlaceOrder(ctx, on)
	if err != nil {
		return err
	}

	out := struct {
		Order       order.Order `json:"order"`
		RedirectURL string      `json:"redirectUrl,omitempty"`
	}{o, co.Store().RedirectURL()}
	return printJSON(out)
}

func listen(ctx context.Context, logger *logrus.Logger, cfg config.Config, co *order.Checkout) error {
	logger.Infof("starting callback server")
	defer logger.Info("shutdown complete")

	if _, err := co.FetchMyOrders(ctx); err != nil {
		logger.WithError(err).Warn("could not seed the order projection")
	}

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	srv := http.Server{
		Handler: api.CallbackMux(api.APIConfig{
			CorsOrigin: cfg.Callback.CorsOrigin,
			Log:        logger,
			Checkout:   co,
		}),
		Addr:         cfg.Callback.Address,
		ReadTimeout:  cfg.Callback.ReadTimeout,
		WriteTimeout: cfg.Callback.WriteTimeout,
		IdleTimeout:  cfg.Callback.IdleTimeout,
		ErrorLog:     errLog,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting callback router at %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Callback.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}
	return nil
}

func arg(args conf.Args, i int, name string) (string, error) {
	v := args.Num(i)
	if v == "" {
		return "", fmt.Errorf("missing %s\n%s", name, usage)
	}
	return v, nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
