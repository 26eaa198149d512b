package product

import "github.com/irsalhamdi/e-commerce-checkout/core/tolerant"

// Product is the catalog record the API embeds in cart and order lines.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"productName"`
	Description string          `json:"productDescription,omitempty"`
	ImageURL    string          `json:"productImageUrl,omitempty"`
	Price       tolerant.Amount `json:"productPrice"`
	Stock       int             `json:"productTotalStockQty,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	CreatedAt   tolerant.Time   `json:"createdAt"`
	UpdatedAt   tolerant.Time   `json:"updatedAt"`
}
