package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when the API sends a value outside of a closed
// vocabulary.
var ErrUnknownValue = errors.New("unknown value")

type PaymentMethod string

const (
	Cod    PaymentMethod = "cod"
	Khalti PaymentMethod = "khalti"
)

var paymentMethods = []PaymentMethod{Cod, Khalti}

type PaymentStatus string

const (
	Paid   PaymentStatus = "paid"
	Unpaid PaymentStatus = "unpaid"
)

var paymentStatuses = []PaymentStatus{Paid, Unpaid}

type OrderStatus string

const (
	Pending     OrderStatus = "pending"
	Cancelled   OrderStatus = "cancelled"
	Ontheway    OrderStatus = "ontheway"
	Delivered   OrderStatus = "delivered"
	Preparation OrderStatus = "preparation"
)

var orderStatuses = []OrderStatus{Pending, Cancelled, Ontheway, Delivered, Preparation}

// TransactionStatus is the state of an external payment session as reported
// by the verification call.
type TransactionStatus string

const (
	TxCompleted TransactionStatus = "completed"
	TxRefunded  TransactionStatus = "refunded"
	TxPending   TransactionStatus = "pending"
	TxInitiated TransactionStatus = "initiated"
)

var transactionStatuses = []TransactionStatus{TxCompleted, TxRefunded, TxPending, TxInitiated}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	return parse("payment method", s, paymentMethods)
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	return parse("payment status", s, paymentStatuses)
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	return parse("order status", s, orderStatuses)
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	return parse("transaction status", s, transactionStatuses)
}

func (m PaymentMethod) Valid() bool     { return known(m, paymentMethods) }
func (s PaymentStatus) Valid() bool     { return known(s, paymentStatuses) }
func (s OrderStatus) Valid() bool       { return known(s, orderStatuses) }
func (s TransactionStatus) Valid() bool { return known(s, transactionStatuses) }

// Terminal reports whether no further transition is expected.
func (s OrderStatus) Terminal() bool {
	return s == Cancelled || s == Delivered
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	return unmarshal("payment method", b, paymentMethods, m)
}

func (s *PaymentStatus) UnmarshalJSON(b []byte) error {
	return unmarshal("payment status", b, paymentStatuses, s)
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	return unmarshal("order status", b, orderStatuses, s)
}

func (s *TransactionStatus) UnmarshalJSON(b []byte) error {
	return unmarshal("transaction status", b, transactionStatuses, s)
}

func known[T ~string](v T, set []T) bool {
	for _, k := range set {
		if k == v {
			return true
		}
	}
	return false
}

func parse[T ~string](kind string, s string, set []T) (T, error) {
	for _, k := range set {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", kind, s, ErrUnknownValue)
}

// unmarshal leaves dst at its zero value for null or "", which stands for a
// field the server did not send.
func unmarshal[T ~string](kind string, b []byte, set []T, dst *T) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}

	if s == "" {
		var zero T
		*dst = zero
		return nil
	}

	v, err := parse(kind, s, set)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
