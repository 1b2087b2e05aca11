package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	CacheTTL       time.Duration
	DefaultLimit   int
	MaxLimit       int
	MinFuzzyLength int
	Weights        SignalWeights
}

// SearchService ranks catalog items against a text query
type SearchService struct {
	cache        domain.ResultCache
	catalog      domain.CatalogProvider
	scorer       *RelevanceScorer
	preprocessor *QueryPreprocessor
	config       SearchServiceConfig
	logger       zerolog.Logger
}

// NewSearchService creates a new search service with dependencies
func NewSearchService(
	cache domain.ResultCache,
	catalog domain.CatalogProvider,
	config SearchServiceConfig,
	logger zerolog.Logger,
) *SearchService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 30 * time.Second
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 20
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = 100
	}
	if config.MinFuzzyLength <= 0 {
		config.MinFuzzyLength = 4
	}
	if config.Weights == (SignalWeights{}) {
		config.Weights = DefaultSignalWeights()
	}

	return &SearchService{
		cache:        cache,
		catalog:      catalog,
		scorer:       NewRelevanceScorer(DefaultSignals(config.Weights)),
		preprocessor: NewQueryPreprocessor(),
		config:       config,
		logger:       logger.With().Str("component", "search").Logger(),
	}
}

// searchKey is the canonical form of every parameter that changes a search result
type searchKey struct {
	Query       string          `json:"q"`
	Category    string          `json:"c"`
	MinPrice    *int64          `json:"min"`
	MaxPrice    *int64          `json:"max"`
	Zone        string          `json:"z"`
	InStockOnly bool            `json:"s"`
	Sort        domain.SortMode `json:"o"`
	Limit       int             `json:"l"`
}

// Search scores the catalog against the query.
// Flow: validate -> check cache -> load catalog -> gate -> score -> sort -> truncate -> cache
func (s *SearchService) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	}()

	if err := validateSearchQuery(&query); err != nil {
		return nil, err
	}

	text := s.preprocessor.Normalize(query.Query)
	if text == "" {
		return nil, fmt.Errorf("%w: query must contain letters or digits", domain.ErrInvalidInput)
	}

	sortMode := query.Sort
	if sortMode == "" {
		sortMode = domain.SortRelevance
	}
	limit := resolveLimit(query.Limit, s.config.DefaultLimit, s.config.MaxLimit)

	cacheKey := GenerateKey("search", searchKey{
		Query:       text,
		Category:    strings.ToLower(strings.TrimSpace(query.Category)),
		MinPrice:    query.MinPrice,
		MaxPrice:    query.MaxPrice,
		Zone:        strings.ToLower(strings.TrimSpace(query.Zone)),
		InStockOnly: query.InStockOnly,
		Sort:        sortMode,
		Limit:       limit,
	})

	if cached, ok := getCached[domain.SearchResult](ctx, s.cache, cacheKey, "search", s.logger); ok {
		cached.Diagnostics.Cached = true
		return cached, nil
	}

	items, err := s.catalog.Items(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", text).Msg("catalog unavailable, returning empty search result")
		metrics.DegradedResponses.WithLabelValues("search", "catalog_unavailable").Inc()
		return &domain.SearchResult{
			Items:       []domain.ScoredResult{},
			Diagnostics: domain.SearchDiagnostics{SortMode: sortMode, Degraded: true},
		}, nil
	}

	scoringQuery := NewScoringQuery(text, query.Category, query.Zone, s.config.MinFuzzyLength)
	results := make([]domain.ScoredResult, 0)

	for i := range items {
		// Scoring is pure CPU; honour cancellation between items on large catalogs
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		item := &items[i]
		if !passesFilters(item, &query) {
			continue
		}

		score := s.scorer.Score(NewCandidate(item), scoringQuery)
		if score.Total <= 0 {
			continue
		}

		results = append(results, domain.ScoredResult{
			Item:      *item,
			Score:     score.Total,
			Reason:    reasonFor(score.MatchType),
			MatchType: score.MatchType,
			Signals:   score.Signals,
		})
	}

	sortResults(results, sortMode)

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	result := &domain.SearchResult{
		Items:        results,
		TotalMatches: total,
		Diagnostics: domain.SearchDiagnostics{
			FuzzyApplied: anySignal(results, SignalFuzzy),
			GeoApplied:   scoringQuery.zone != "" && anySignal(results, SignalZone),
			SortMode:     sortMode,
		},
	}

	s.logger.Debug().
		Str("query", text).
		Int("matches", total).
		Int("returned", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("search computed")

	setCached(ctx, s.cache, cacheKey, result, s.config.CacheTTL, s.logger)

	return result, nil
}

// passesFilters applies the hard inclusion gate. Gated items are never scored.
func passesFilters(item *domain.CatalogItem, q *domain.SearchQuery) bool {
	if q.Category != "" && !strings.EqualFold(strings.TrimSpace(item.Category), strings.TrimSpace(q.Category)) {
		return false
	}
	if q.MinPrice != nil && item.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && item.Price > *q.MaxPrice {
		return false
	}
	if q.InStockOnly && !item.InStock {
		return false
	}
	return true
}

// sortResults orders results in place. All modes are stable so catalog order breaks ties.
func sortResults(results []domain.ScoredResult, mode domain.SortMode) {
	switch mode {
	case domain.SortPriceLow:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Item.Price < results[j].Item.Price
		})
	case domain.SortPriceHigh:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Item.Price > results[j].Item.Price
		})
	case domain.SortRating:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Item.Rating > results[j].Item.Rating
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
	}
}

func anySignal(results []domain.ScoredResult, name string) bool {
	for _, r := range results {
		if r.Signals[name] > 0 {
			return true
		}
	}
	return false
}

func reasonFor(matchType string) string {
	switch matchType {
	case MatchExact, MatchPrefix, MatchSubstring:
		return "matches name"
	case MatchDescription:
		return "matches description"
	case MatchCategory:
		return "matches category"
	case MatchFuzzy:
		return "close spelling match"
	}
	return "related"
}
