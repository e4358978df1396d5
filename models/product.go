package models

import (
	"io"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry as served by the products endpoint.
type Product struct {
	ID               int64           `json:"product_id"`
	Name             string          `json:"name"`
	Category         *Category       `json:"category,omitempty"`
	StockQuantity    int64           `json:"stock_quantity"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	ReorderQuantity  int64           `json:"reorder_quantity"`
	Image            string          `json:"image,omitempty"`
}

// NeedsReorder reports whether stock has fallen below the reorder threshold.
func (p *Product) NeedsReorder() bool {
	return p.StockQuantity < p.ReorderThreshold
}

// ProductForm carries the fields of the admin "add product" form.
type ProductForm struct {
	Name             string
	CategoryID       int64
	StockQuantity    int64
	PricePerUnit     decimal.Decimal
	ReorderThreshold int64
	ReorderQuantity  int64

	// ImageName and Image are optional; Image is streamed as a multipart file part.
	ImageName string
	Image     io.Reader
}

// StockLevel is one row of the admin low-stock report.
type StockLevel struct {
	Product          *Product `json:"product"`
	Shortfall        int64    `json:"shortfall"`
	SuggestedReorder int64    `json:"suggested_reorder"`
}

// InventorySummary aggregates the catalog for the admin dashboard.
type InventorySummary struct {
	TotalProducts  int             `json:"total_products"`
	LowStockCount  int             `json:"low_stock_count"`
	OutOfStock     int             `json:"out_of_stock"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}
