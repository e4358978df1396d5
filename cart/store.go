// Package cart holds the in-memory shopping cart of the current storefront session.
package cart

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"goflare.io/storefront/models"
)

// Observer is called with the new snapshot after every mutation.
type Observer func(items []models.LineItem)

// Store is an ordered collection of line items, at most one per product id. Every mutation
// swaps in a freshly built slice, and callers and observers only ever get copies of it.
type Store struct {
	mu        sync.RWMutex
	items     []models.LineItem
	observers []Observer
}

func NewStore() *Store {
	return &Store{items: []models.LineItem{}}
}

// Subscribe registers fn for change notifications.
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Items returns a copy of the current snapshot in insertion order.
func (s *Store) Items() []models.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Add increments the quantity of an existing line, refreshing its unit price, or appends a
// new one. quantity is trusted to be positive.
func (s *Store) Add(product *models.Product, quantity int64) {
	s.mutate(func(prev []models.LineItem) []models.LineItem {
		next := make([]models.LineItem, 0, len(prev)+1)
		found := false
		for _, item := range prev {
			if item.ProductID == product.ID {
				item.Quantity += quantity
				item.PricePerUnit = product.PricePerUnit
				found = true
			}
			next = append(next, item)
		}
		if !found {
			next = append(next, models.NewLineItem(product, quantity))
		}
		return next
	})
}

// Remove drops the line for productID; absent ids are ignored.
func (s *Store) Remove(productID int64) {
	s.mutate(func(prev []models.LineItem) []models.LineItem {
		if index(prev, productID) < 0 {
			return nil
		}
		next := make([]models.LineItem, 0, len(prev))
		for _, item := range prev {
			if item.ProductID != productID {
				next = append(next, item)
			}
		}
		return next
	})
}

// UpdateQuantity sets the quantity of a line. Non-positive quantities leave the line as it is;
// removal only happens through Remove.
func (s *Store) UpdateQuantity(productID int64, quantity int64) {
	if quantity <= 0 {
		return
	}
	s.mutate(func(prev []models.LineItem) []models.LineItem {
		i := index(prev, productID)
		if i < 0 {
			return nil
		}
		next := make([]models.LineItem, len(prev))
		copy(next, prev)
		next[i].Quantity = quantity
		return next
	})
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mutate(func([]models.LineItem) []models.LineItem {
		return []models.LineItem{}
	})
}

// Total is the sum of unit price × quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items() {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count is the sum of quantities over all lines.
func (s *Store) Count() int64 {
	var count int64
	for _, item := range s.Items() {
		count += item.Quantity
	}
	return count
}

// mutate applies fn to the current snapshot. fn returns nil to signal "no change".
func (s *Store) mutate(fn func(prev []models.LineItem) []models.LineItem) {
	s.mu.Lock()
	next := fn(s.items)
	if next == nil {
		s.mu.Unlock()
		return
	}
	s.items = next
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(slices.Clone(next))
	}
}

func index(items []models.LineItem, productID int64) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
