package stock

import (
	"errors"
	"fmt"
	"strings"

	"goflare.io/storefront/models"
)

var ErrInvalidProduct = errors.New("invalid product")

// validate checks the fields the backend would otherwise reject.
func validate(form *models.ProductForm) error {
	var problems []string
	if strings.TrimSpace(form.Name) == "" {
		problems = append(problems, "name is required")
	}
	if form.CategoryID <= 0 {
		problems = append(problems, "category is required")
	}
	if form.StockQuantity < 0 {
		problems = append(problems, "stock quantity must not be negative")
	}
	if !form.PricePerUnit.IsPositive() {
		problems = append(problems, "price per unit must be positive")
	}
	if form.ReorderThreshold < 0 {
		problems = append(problems, "reorder threshold must not be negative")
	}
	if form.ReorderQuantity < 0 {
		problems = append(problems, "reorder quantity must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProduct, strings.Join(problems, "; "))
	}
	return nil
}
