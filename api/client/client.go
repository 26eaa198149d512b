// Package client is the authenticated transport to the storefront REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/irsalhamdi/e-commerce-checkout/api/middleware"
	"github.com/irsalhamdi/e-commerce-checkout/api/weberr"
	"github.com/irsalhamdi/e-commerce-checkout/rate"
	"github.com/irsalhamdi/e-commerce-checkout/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const maxBodyBytes = 1048576

// ErrThrottled is returned when the same submission (operation, path and
// body) is sent again before its limiter refilled.
var ErrThrottled = errors.New("operation submitted too often")

type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string
	Log     logrus.FieldLogger

	// Limiter is optional. When nil no request is throttled.
	Limiter *rate.Limiter

	// HTTPClient is the base client the token transport wraps. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

type Client struct {
	base    *url.URL
	http    *http.Client
	log     logrus.FieldLogger
	limiter *rate.Limiter
}

// Request describes one call against the API.
type Request struct {
	Op       string
	Method   string
	Path     string
	Body     interface{}
	Fallback string
	Throttle bool
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url[%s]: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url[%s] must be absolute", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(ctx, src)
	} else {
		cp := *hc
		hc = &cp
	}
	hc.Timeout = cfg.Timeout

	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	c := Client{
		base:    base,
		http:    hc,
		log:     log,
		limiter: cfg.Limiter,
	}
	return &c, nil
}

// Do sends r and decodes a 200 response body into out. Any other outcome is
// returned as a weberr error carrying the server message or r.Fallback.
func (c *Client) Do(ctx context.Context, r Request, out interface{}) error {
	rid := middleware.ContextRequestID(ctx)
	if rid == "" {
		rid = validate.GenerateID()
	}

	log := c.log.WithFields(logrus.Fields{
		"req_id": rid,
		"op":     r.Op,
		"method": r.Method,
		"path":   r.Path,
	})

	fields := weberr.WithFields(map[string]interface{}{"req_id": rid, "op": r.Op})

	var payload []byte
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return weberr.NewError(fmt.Errorf("encoding request body: %w", err), r.Fallback, 0, fields)
		}
		payload = b
	}

	if r.Throttle && c.limiter != nil && !c.limiter.Check(throttleKey(r, payload)) {
		log.Debug("throttled")
		return weberr.NewError(ErrThrottled, "Please wait before trying again", http.StatusTooManyRequests, fields)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.base.JoinPath(r.Path).String(), body)
	if err != nil {
		return weberr.NewError(fmt.Errorf("building request: %w", err), r.Fallback, 0, fields)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, rid)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug("started")
	startTime := time.Now().UTC()

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("transport failure")
		return weberr.Transport(fmt.Errorf("sending %s %s: %w", r.Method, r.Path, err), r.Fallback, fields)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return weberr.NewError(fmt.Errorf("reading response body: %w", err), r.Fallback, resp.StatusCode, fields)
	}

	log = log.WithFields(logrus.Fields{
		"statuscode": resp.StatusCode,
		"bytes":      len(b),
		"since":      time.Since(startTime).Nanoseconds(),
	})

	if resp.StatusCode != http.StatusOK {
		log.Warn("rejected")
		return weberr.FromResponse(resp.StatusCode, b, r.Fallback, fields)
	}
	log.Debug("completed")

	if out == nil || len(b) == 0 {
		return nil
	}

	if err := json.Unmarshal(b, out); err != nil {
		return weberr.NewError(fmt.Errorf("decoding %s response: %w", r.Op, err), r.Fallback, resp.StatusCode, fields)
	}
	return nil
}

// throttleKey identifies a submission, so only a repeat of the same call on
// the same target with the same body is throttled.
func throttleKey(r Request, payload []byte) string {
	key := r.Op + " " + r.Method + " " + r.Path
	if len(payload) > 0 {
		key += " " + strconv.FormatUint(xxhash.Sum64(payload), 16)
	}
	return key
}
