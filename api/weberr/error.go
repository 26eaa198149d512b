package weberr

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorResponse is the error envelope the storefront API sends back.
type ErrorResponse struct {
	Message string `json:"message"`
}

type RequestError struct {
	Err error
}

func (r *RequestError) Error() string { return r.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

func NewError(err error, msg string, status int, opts ...Opt) error {
	e := &RequestError{Err: err}
	opts = append(opts, WithResponse(
		&ErrorResponse{msg},
		status,
	))

	return Wrap(e, opts...)
}

// FromResponse builds the error for a non-200 answer. The server message wins
// over fallback when the body carries one.
func FromResponse(status int, body []byte, fallback string, opts ...Opt) error {
	msg := fallback

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		msg = er.Message
	}

	err := fmt.Errorf("unexpected status code %d", status)
	return NewError(err, msg, status, opts...)
}

// Transport wraps a failure that produced no HTTP response at all.
func Transport(err error, fallback string, opts ...Opt) error {
	return NewError(err, fallback, 0, opts...)
}

// Message returns the human readable message carried by err, or fallback.
func Message(err error, fallback string) string {
	body, _, ok := Response(err)
	if !ok {
		return fallback
	}
	if er, ok := body.(*ErrorResponse); ok && er.Message != "" {
		return er.Message
	}
	return fallback
}

func NotFound(err error, opts ...Opt) error {
	return NewError(
		err,
		"the resource could not be found",
		http.StatusNotFound,
		opts...,
	)
}

func NotAuthorized(err error, opts ...Opt) error {
	return NewError(
		err,
		"not authorized to access resource",
		http.StatusUnauthorized,
		opts...,
	)
}

func InternalError(err error, opts ...Opt) error {
	return NewError(
		err,
		"the server encountered a problem and could not process your request",
		http.StatusInternalServerError,
		opts...,
	)
}

func BadRequest(err error, opts ...Opt) error {
	return NewError(
		err,
		"bad request",
		http.StatusBadRequest,
		opts...,
	)
}
