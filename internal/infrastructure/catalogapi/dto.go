package catalogapi

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// ItemsPage is one page of the remote catalog listing
type ItemsPage struct {
	Items    []ItemDTO `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	HasMore  bool      `json:"hasMore"`
}

// ItemDTO is the wire form of a catalog item. Price is in major currency units.
type ItemDTO struct {
	ID          FlexibleID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Price       float64    `json:"price"`
	StoreID     FlexibleID `json:"storeId"`
	StoreName   string     `json:"storeName"`
	Rating      float64    `json:"rating"`
	InStock     *bool      `json:"inStock"`
	Zone        string     `json:"zone"`
}

// FlexibleID accepts both numeric and string identifiers
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}
