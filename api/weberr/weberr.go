// Package weberr attaches what the caller needs to report a failed storefront
// exchange to an error: the user facing response and the log fields.
package weberr

// Opt decorates an error.
type Opt func(error) error

// Wrap applies opts to err in order. A nil err stays nil.
func Wrap(err error, opts ...Opt) error {
	if err == nil {
		return nil
	}
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

func WithResponse(body interface{}, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches a copy of fields.
func WithFields(fields map[string]interface{}) Opt {
	cp := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return func(err error) error {
		return &fieldsError{error: err, fields: cp}
	}
}

func WithField(key string, value interface{}) Opt {
	return WithFields(map[string]interface{}{key: value})
}

// WithOp names the checkout operation that failed.
func WithOp(op string) Opt {
	return WithField("op", op)
}

func WithOrder(id string) Opt {
	return WithField("order_id", id)
}

// WithSession names the wallet payment session involved.
func WithSession(pidx string) Opt {
	return WithField("pidx", pidx)
}
