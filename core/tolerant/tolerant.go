// Package tolerant holds JSON value types that decode whatever shape the API
// sends for a field into a usable value, or into the zero value when the
// field cannot be read.
package tolerant

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Amount is a money value sent either as a JSON number or as a numeric
// string. Anything else decodes to 0.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = 0

	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*a = Amount(f)
	return nil
}

func (a Amount) Float64() float64 {
	return float64(a)
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time is a timestamp that accepts RFC 3339 and the common SQL layouts. An
// empty, null or unreadable value decodes to the zero time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range layouts {
		if tm, err := time.Parse(layout, s); err == nil {
			t.Time = tm
			return nil
		}
	}
	return nil
}

// MarshalJSON writes the zero time as null.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Time.MarshalJSON()
}

func (t Time) Equal(u Time) bool {
	return t.Time.Equal(u.Time)
}
