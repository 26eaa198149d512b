package weberr

import "errors"

type responder interface {
	Response() (body interface{}, status int)
}

// Response returns the outermost body and status attached to err.
func Response(err error) (body interface{}, status int, ok bool) {
	var re responder
	if errors.As(err, &re) {
		body, code := re.Response()
		return body, code, true
	}
	return nil, 0, false
}

// Status is the HTTP status attached to err. It is 0 when the request never
// got an answer or err carries no response at all.
func Status(err error) int {
	_, code, _ := Response(err)
	return code
}

// Answered reports whether err carries a real HTTP status, as opposed to a
// transport or decoding failure.
func Answered(err error) bool {
	return Status(err) != 0
}

// IsStatus reports whether err carries the given response status.
func IsStatus(err error, status int) bool {
	_, code, ok := Response(err)
	return ok && code == status
}

type responseError struct {
	error
	body   interface{}
	status int
}

func (e *responseError) Response() (interface{}, int) {
	return e.body, e.status
}

func (e *responseError) Unwrap() error {
	return e.error
}
