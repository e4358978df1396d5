package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"goflare.io/storefront/models"
)

func (c *Client) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var out []*models.Category
	if err := c.doJSON(ctx, http.MethodGet, "/accounts/categories/", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProducts is public; no bearer token is sent.
func (c *Client) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var out []*models.Product
	if err := c.doJSON(ctx, http.MethodGet, "/accounts/products/", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var out models.Product
	path := fmt.Sprintf("/accounts/products/%d/", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct submits the admin product form as multipart/form-data.
func (c *Client) CreateProduct(ctx context.Context, form *models.ProductForm) (*models.Product, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"name", form.Name},
		{"category_id", strconv.FormatInt(form.CategoryID, 10)},
		{"stock_quantity", strconv.FormatInt(form.StockQuantity, 10)},
		{"price_per_unit", form.PricePerUnit.StringFixed(2)},
		{"reorder_threshold", strconv.FormatInt(form.ReorderThreshold, 10)},
		{"reorder_quantity", strconv.FormatInt(form.ReorderQuantity, 10)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}
	if form.Image != nil {
		name := form.ImageName
		if name == "" {
			name = "image"
		}
		part, err := w.CreateFormFile("image", name)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err = io.Copy(part, form.Image); err != nil {
			return nil, fmt.Errorf("failed to copy image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var out models.Product
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/accounts/products/",
		body:        &buf,
		contentType: w.FormDataContentType(),
		auth:        true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
