package weberr

import "errors"

type fielder interface {
	Fields() map[string]interface{}
}

// Fields collects the log fields attached anywhere in the chain of err.
// Outer values win on key clashes.
func Fields(err error) (fields map[string]interface{}, ok bool) {
	for err != nil {
		if fe, isFielder := err.(fielder); isFielder {
			if fields == nil {
				fields = make(map[string]interface{})
			}
			for k, v := range fe.Fields() {
				if _, set := fields[k]; !set {
					fields[k] = v
				}
			}
		}
		err = errors.Unwrap(err)
	}
	return fields, fields != nil
}

type fieldsError struct {
	error
	fields map[string]interface{}
}

func (e *fieldsError) Fields() map[string]interface{} { return e.fields }

func (e *fieldsError) Unwrap() error { return e.error }
