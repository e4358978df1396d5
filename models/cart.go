package models

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product in the cart with the price captured when it was added.
type LineItem struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	Image        string          `json:"image,omitempty"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     int64           `json:"quantity"`
}

// NewLineItem snapshots the display fields and current price of product.
func NewLineItem(product *Product, quantity int64) LineItem {
	return LineItem{
		ProductID:    product.ID,
		Name:         product.Name,
		Image:        product.Image,
		PricePerUnit: product.PricePerUnit,
		Quantity:     quantity,
	}
}

// Subtotal returns price × quantity for the line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.PricePerUnit.Mul(decimal.NewFromInt(li.Quantity))
}
