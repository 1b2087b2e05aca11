package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/spiralshops/relevance/internal/domain"
)

// SignalKind separates signals that establish relevance from those that only rank
type SignalKind int

const (
	// SignalMatch contributions make an item eligible for the result set
	SignalMatch SignalKind = iota
	// SignalBoost contributions only count on items that matched
	SignalBoost
)

// Signal names as reported in per-result breakdowns
const (
	SignalName           = "name"
	SignalCategoryText   = "category_text"
	SignalDescription    = "description"
	SignalFuzzy          = "fuzzy"
	SignalCategoryFilter = "category_filter"
	SignalZone           = "zone"
	SignalPopularity     = "popularity"
)

// SignalWeights is the weighting table applied to each signal's factor
type SignalWeights struct {
	Name           float64
	CategoryText   float64
	Description    float64
	Fuzzy          float64
	CategoryFilter float64
	Zone           float64
	Popularity     float64
}

// DefaultSignalWeights returns the standard weighting table
func DefaultSignalWeights() SignalWeights {
	return SignalWeights{
		Name:           10,
		CategoryText:   2,
		Description:    3,
		Fuzzy:          2,
		CategoryFilter: 5,
		Zone:           8,
		Popularity:     0.5,
	}
}

// Signal is one independently computable scoring function.
// Factor returns 0 when the signal does not apply; contribution is Weight * Factor.
type Signal struct {
	Name   string
	Kind   SignalKind
	Weight float64
	Factor func(c *Candidate, q *ScoringQuery) float64
}

// Candidate is a catalog item with its text fields prepared for matching
type Candidate struct {
	Item        *domain.CatalogItem
	name        string
	description string
	category    string
	nameTokens  []string
}

// NewCandidate lowercases and tokenizes the fields signals look at
func NewCandidate(item *domain.CatalogItem) *Candidate {
	name := strings.ToLower(item.Name)
	return &Candidate{
		Item:        item,
		name:        name,
		description: strings.ToLower(item.Description),
		category:    strings.ToLower(item.Category),
		nameTokens:  tokenize(name),
	}
}

// ScoringQuery holds the request side of scoring, computed once per request
type ScoringQuery struct {
	Text           string
	tokens         []string
	category       string
	zone           string
	minFuzzyLength int
}

// NewScoringQuery prepares normalized query text and optional context hints
func NewScoringQuery(text, categoryFilter, zone string, minFuzzyLength int) *ScoringQuery {
	text = strings.ToLower(strings.TrimSpace(text))
	return &ScoringQuery{
		Text:           text,
		tokens:         tokenize(text),
		category:       strings.ToLower(strings.TrimSpace(categoryFilter)),
		zone:           strings.ToLower(strings.TrimSpace(zone)),
		minFuzzyLength: minFuzzyLength,
	}
}

// DefaultSignals returns the ordered signal table
func DefaultSignals(w SignalWeights) []Signal {
	return []Signal{
		{Name: SignalName, Kind: SignalMatch, Weight: w.Name, Factor: nameFactor},
		{Name: SignalCategoryText, Kind: SignalMatch, Weight: w.CategoryText, Factor: categoryTextFactor},
		{Name: SignalDescription, Kind: SignalMatch, Weight: w.Description, Factor: descriptionFactor},
		{Name: SignalFuzzy, Kind: SignalMatch, Weight: w.Fuzzy, Factor: fuzzyFactor},
		{Name: SignalCategoryFilter, Kind: SignalMatch, Weight: w.CategoryFilter, Factor: categoryFilterFactor},
		{Name: SignalZone, Kind: SignalBoost, Weight: w.Zone, Factor: zoneFactor},
		{Name: SignalPopularity, Kind: SignalBoost, Weight: w.Popularity, Factor: popularityFactor},
	}
}

func boolFactor(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func nameFactor(c *Candidate, q *ScoringQuery) float64 {
	return boolFactor(q.Text != "" && strings.Contains(c.name, q.Text))
}

func categoryTextFactor(c *Candidate, q *ScoringQuery) float64 {
	return boolFactor(q.Text != "" && c.category != "" && strings.Contains(c.category, q.Text))
}

func descriptionFactor(c *Candidate, q *ScoringQuery) float64 {
	return boolFactor(q.Text != "" && c.description != "" && strings.Contains(c.description, q.Text))
}

// fuzzyFactor rewards names one or two edits away from the query.
// Exact and substring hits are left to the name signal.
func fuzzyFactor(c *Candidate, q *ScoringQuery) float64 {
	if q.Text == "" || utf8.RuneCountInString(q.Text) < q.minFuzzyLength {
		return 0
	}
	if strings.Contains(c.name, q.Text) {
		return 0
	}
	return boolFactor(isNearMatch(closestLabelDistance(q.tokens, c.nameTokens)))
}

func categoryFilterFactor(c *Candidate, q *ScoringQuery) float64 {
	return boolFactor(q.category != "" && c.category == q.category)
}

func zoneFactor(c *Candidate, q *ScoringQuery) float64 {
	return boolFactor(q.zone != "" && strings.EqualFold(c.Item.Zone, q.zone))
}

func popularityFactor(c *Candidate, q *ScoringQuery) float64 {
	if c.Item.Rating < 0 {
		return 0
	}
	return c.Item.Rating
}
