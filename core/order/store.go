package order

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Status is the outcome flag shared by every operation on a Store.
type Status string

const (
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Store is the projection of the signed in customer's orders. Its data only
// changes through Checkout operations and the Apply methods.
type Store struct {
	mu  sync.RWMutex
	log logrus.FieldLogger

	orders      []Order
	detail      *Detail
	redirectURL string
	session     *Session
	status      Status
	message     string
}

// Snapshot is a point in time copy of a Store.
type Snapshot struct {
	Orders      []Order  `json:"orders"`
	Detail      *Detail  `json:"detail"`
	RedirectURL string   `json:"redirectUrl,omitempty"`
	Session     *Session `json:"session,omitempty"`
	Status      Status   `json:"status"`
	Message     string   `json:"message,omitempty"`
}

func NewStore(log logrus.FieldLogger) *Store {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Store{
		log:    log,
		orders: []Order{},
		status: StatusLoading,
	}
}

func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOrders(s.orders)
}

func (s *Store) Order(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.orders, func(o Order) bool { return o.ID == id })
	if i < 0 {
		return Order{}, false
	}
	return s.orders[i].clone(), true
}

func (s *Store) Detail() (Detail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.detail == nil {
		return Detail{}, false
	}
	return s.detail.clone(), true
}

// RedirectURL is where the customer must be sent to pay for the last placed
// order, or "" when no external payment is pending.
func (s *Store) RedirectURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirectURL
}

func (s *Store) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Message is the user facing message of the last completed operation.
func (s *Store) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Orders:      cloneOrders(s.orders),
		RedirectURL: s.redirectURL,
		Status:      s.status,
		Message:     s.message,
	}
	if s.detail != nil {
		d := s.detail.clone()
		snap.Detail = &d
	}
	if s.session != nil {
		ss := *s.session
		snap.Session = &ss
	}
	return snap
}

func (s *Store) ResetStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoading
	s.message = ""
}

func (s *Store) ResetDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = nil
}

// ApplyOrderStatus merges a server confirmed status into the listed order.
// It reports false, and changes nothing, when the order is not listed.
func (s *Store) ApplyOrderStatus(id string, status OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, ok := ApplyOrderStatus(s.orders, id, status)
	if !ok {
		s.log.WithFields(logrus.Fields{"order_id": id, "order_status": status}).Debug("order status update for unlisted order dropped")
		return false
	}
	s.orders = orders
	return true
}

// ApplyPaymentStatus merges a server confirmed payment status into the
// listed order. It reports false when the order is not listed.
func (s *Store) ApplyPaymentStatus(id string, status PaymentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, ok := ApplyPaymentStatus(s.orders, id, status)
	if !ok {
		s.log.WithFields(logrus.Fields{"order_id": id, "payment_status": status}).Debug("payment status update for unlisted order dropped")
		return false
	}
	s.orders = orders
	return true
}

func (s *Store) applyPaymentStatusByPidx(pidx string, status PaymentStatus) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, id, ok := ApplyPaymentStatusByPidx(s.orders, pidx, status)
	if !ok {
		s.log.WithFields(logrus.Fields{"pidx": pidx, "payment_status": status}).Debug("payment status update for unknown session dropped")
		return "", false
	}
	s.orders = orders
	return id, true
}

func (s *Store) orderIDByPidx(pidx string) string {
	if pidx == "" {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := indexOf(s.orders, func(o Order) bool { return o.Payment.Pidx == pidx }); i >= 0 {
		return s.orders[i].ID
	}
	return ""
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoading
}

func (s *Store) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.message = message
}

// succeed runs mutate and flips the flag in one critical section.
func (s *Store) succeed(message string, mutate func(s *Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mutate != nil {
		mutate(s)
	}
	s.status = StatusSuccess
	s.message = message
}

// appendOrder keeps order ids unique: a re-sent order replaces its entry.
func (s *Store) appendOrder(o Order) {
	if i := indexOf(s.orders, func(x Order) bool { return x.ID == o.ID }); i >= 0 {
		orders := make([]Order, len(s.orders))
		copy(orders, s.orders)
		orders[i] = o
		s.orders = orders
		return
	}

	orders := make([]Order, len(s.orders), len(s.orders)+1)
	copy(orders, s.orders)
	s.orders = append(orders, o)
}
