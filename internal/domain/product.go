package domain

import "time"

// CatalogItem is one sellable product snapshot as supplied by a CatalogProvider.
// Price is in minor currency units.
type CatalogItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Price       int64   `json:"price"`
	StoreID     string  `json:"storeId,omitempty"`
	StoreName   string  `json:"storeName,omitempty"`
	Rating      float64 `json:"rating"`
	InStock     bool    `json:"inStock"`
	Zone        string  `json:"zone,omitempty"`
}

// ScoredResult pairs a catalog item with a derived score and a provenance string.
type ScoredResult struct {
	Item      CatalogItem        `json:"item"`
	Score     float64            `json:"score"`
	Reason    string             `json:"reason"`
	MatchType string             `json:"matchType,omitempty"`
	Signals   map[string]float64 `json:"signals,omitempty"`
}

// Interaction is a single user/item event such as a view or a purchase.
type Interaction struct {
	UserID     string    `json:"userId"`
	ItemID     string    `json:"itemId"`
	Kind       string    `json:"kind"` // "view", "cart" or "purchase"
	OccurredAt time.Time `json:"occurredAt"`
}
