package cart

import (
	"github.com/irsalhamdi/e-commerce-checkout/core/product"
)

type Cart struct {
	Items []Item `json:"items"`
}

// Item is one cart line as returned by the cart API.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   product.Product `json:"Product"`
}

// Total is the sum of price times quantity over all lines.
func (c Cart) Total() float64 {
	var tot float64
	for _, it := range c.Items {
		tot += it.Product.Price.Float64() * float64(it.Quantity)
	}
	return tot
}

// Empty reports whether the cart has nothing to check out.
func (c Cart) Empty() bool {
	for _, it := range c.Items {
		if it.Quantity > 0 {
			return false
		}
	}
	return true
}
