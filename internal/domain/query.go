package domain

// SortMode selects the ordering of search results.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceLow  SortMode = "price_low"
	SortPriceHigh SortMode = "price_high"
	SortRating    SortMode = "rating"
)

// Valid reports whether s is a known sort mode. The empty mode is valid and means relevance.
func (s SortMode) Valid() bool {
	switch s {
	case "", SortRelevance, SortPriceLow, SortPriceHigh, SortRating:
		return true
	}
	return false
}

// Recommendation context tags.
const (
	ContextHomepage = "homepage"
	ContextProduct  = "product"
	ContextCheckout = "checkout"
	ContextSearch   = "search"
	ContextCart     = "cart"
)

// KnownContexts lists the accepted recommendation context tags.
var KnownContexts = []string{ContextHomepage, ContextProduct, ContextCheckout, ContextSearch, ContextCart}

// SearchQuery is the decoded search request. Nil price bounds mean unbounded.
type SearchQuery struct {
	Query       string   `json:"query"`
	Category    string   `json:"category,omitempty"`
	MinPrice    *int64   `json:"minPrice,omitempty"`
	MaxPrice    *int64   `json:"maxPrice,omitempty"`
	Zone        string   `json:"zone,omitempty"`
	InStockOnly bool     `json:"inStockOnly,omitempty"`
	Sort        SortMode `json:"sort,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// RecommendQuery is the decoded recommendation request.
type RecommendQuery struct {
	UserID   string `json:"userId,omitempty"`
	AnchorID string `json:"anchorId,omitempty"`
	Context  string `json:"context,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// SuggestQuery is the decoded autocomplete request.
type SuggestQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SearchDiagnostics describes how a search result set was produced.
type SearchDiagnostics struct {
	FuzzyApplied bool     `json:"fuzzyApplied"`
	GeoApplied   bool     `json:"geoApplied"`
	SortMode     SortMode `json:"sortMode"`
	Cached       bool     `json:"cached"`
	Degraded     bool     `json:"degraded"`
}

// SearchResult is the response of a search.
type SearchResult struct {
	Items        []ScoredResult    `json:"items"`
	TotalMatches int               `json:"totalMatches"`
	Diagnostics  SearchDiagnostics `json:"diagnostics"`
}

// RecommendResult is the response of a recommendation request.
type RecommendResult struct {
	Recommendations []ScoredResult `json:"recommendations"`
	Total           int            `json:"total"`
	Context         string         `json:"context"`
	Personalized    bool           `json:"personalized"`
	Cached          bool           `json:"cached"`
	Degraded        bool           `json:"degraded"`
}

// SuggestResult is the response of an autocomplete request.
type SuggestResult struct {
	Suggestions []string `json:"suggestions"`
	Cached      bool     `json:"cached"`
	Degraded    bool     `json:"degraded"`
}
