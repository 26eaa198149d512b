package order

import (
	"time"

	"github.com/irsalhamdi/e-commerce-checkout/core/cart"
	"github.com/irsalhamdi/e-commerce-checkout/core/product"
	"github.com/irsalhamdi/e-commerce-checkout/core/tolerant"
	"github.com/irsalhamdi/e-commerce-checkout/validate"
)

type Order struct {
	ID              string          `json:"id"`
	PhoneNumber     string          `json:"phoneNumber"`
	ShippingAddress string          `json:"shippingAddress"`
	TotalAmount     tolerant.Amount `json:"totalAmount"`
	OrderStatus     OrderStatus     `json:"orderStatus"`
	Payment         Payment         `json:"Payment"`
	Items           []Item          `json:"OrderDetails,omitempty"`
	CreatedAt       tolerant.Time   `json:"createdAt"`
}

// Item is one order line. Product is only filled in on responses.
type Item struct {
	ProductID string           `json:"productId" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gte=1"`
	Product   *product.Product `json:"Product,omitempty" validate:"-"`
}

type Payment struct {
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Pidx          string        `json:"pidx,omitempty"`
}

// Consistent reports whether a payment session id only appears on a wallet
// payment.
func (p Payment) Consistent() bool {
	return p.Pidx == "" || p.PaymentMethod == Khalti
}

// OrderNew is the placement request.
type OrderNew struct {
	PhoneNumber     string         `json:"phoneNumber" validate:"required"`
	ShippingAddress string         `json:"shippingAddress" validate:"required"`
	TotalAmount     float64        `json:"totalAmount" validate:"gt=0"`
	PaymentDetails  PaymentDetails `json:"paymentDetails"`
	Items           []Item         `json:"items" validate:"required,min=1,dive"`
}

type PaymentDetails struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"oneof=cod khalti"`
}

type StatusUp struct {
	OrderStatus OrderStatus `json:"orderStatus"`
}

type PaymentUp struct {
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

// DetailLine is one row of the order detail endpoint.
type DetailLine struct {
	ID        string           `json:"id"`
	Quantity  int              `json:"quantity"`
	OrderID   string           `json:"orderId"`
	ProductID string           `json:"productId"`
	Product   *product.Product `json:"Product,omitempty"`
	Order     *Order           `json:"Order,omitempty"`
}

// Detail is the currently viewed order.
type Detail struct {
	OrderID string       `json:"orderId"`
	Lines   []DetailLine `json:"lines"`
}

// Session is an external wallet payment session.
type Session struct {
	Pidx       string          `json:"pidx"`
	PaymentURL string          `json:"payment_url"`
	ExpiresAt  tolerant.Time   `json:"expires_at"`
	ExpiresIn  int             `json:"expires_in"`
	UserFee    tolerant.Amount `json:"user_fee"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt.Time)
}

// Verification is the server side lookup of a payment session.
type Verification struct {
	Pidx          string            `json:"pidx"`
	TotalAmount   tolerant.Amount   `json:"total_amount"`
	Status        TransactionStatus `json:"status"`
	TransactionID string            `json:"transaction_id"`
	Fee           tolerant.Amount   `json:"fee"`
	Refunded      bool              `json:"refunded"`

	// OrderID is resolved from the listed order holding Pidx, never taken
	// from the response.
	OrderID string `json:"orderId,omitempty"`
}

// NewFromCart builds a placement request for every non empty cart line.
func NewFromCart(c cart.Cart, shippingAddress, phone string, method PaymentMethod) OrderNew {
	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Quantity < 1 {
			continue
		}
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	return OrderNew{
		PhoneNumber:     phone,
		ShippingAddress: shippingAddress,
		TotalAmount:     c.Total(),
		PaymentDetails:  PaymentDetails{PaymentMethod: method},
		Items:           items,
	}
}

// CheckNew is the client side precondition for PlaceOrder.
func CheckNew(on OrderNew) error {
	return validate.Check(on)
}

// clone copies o down to its line products, so no caller shares memory with
// the Store.
func (o Order) clone() Order {
	if o.Items != nil {
		items := make([]Item, len(o.Items))
		for i, it := range o.Items {
			items[i] = it.clone()
		}
		o.Items = items
	}
	return o
}

func (it Item) clone() Item {
	it.Product = cloneProduct(it.Product)
	return it
}

func cloneProduct(p *product.Product) *product.Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func cloneOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = o.clone()
	}
	return out
}

func (l DetailLine) clone() DetailLine {
	l.Product = cloneProduct(l.Product)
	if l.Order != nil {
		o := l.Order.clone()
		l.Order = &o
	}
	return l
}

func (d Detail) clone() Detail {
	lines := make([]DetailLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = l.clone()
	}
	d.Lines = lines
	return d
}
