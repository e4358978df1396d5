package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category groups products in the catalog.
type Category struct {
	ID   int64  `json:"category_id"`
	Name string `json:"category_name"`
}

// UnmarshalJSON accepts either the full object or a bare category id, since product
// listings embed categories both ways.
func (c *Category) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		if err := json.Unmarshal(data, &c.ID); err != nil {
			return fmt.Errorf("failed to decode category id: %w", err)
		}
		return nil
	}

	type plain Category
	return json.Unmarshal(data, (*plain)(c))
}
