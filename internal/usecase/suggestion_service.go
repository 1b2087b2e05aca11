package usecase

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

// minSuggestLength is the shortest input that produces suggestions, in runes
const minSuggestLength = 2

// SuggestionServiceConfig holds configuration for autocomplete
type SuggestionServiceConfig struct {
	CacheTTL     time.Duration
	DefaultLimit int
	MaxLimit     int
	PopularTerms []string
	Templates    []string
}

// SuggestionService proposes query completions from catalog labels and fixed terms
type SuggestionService struct {
	cache   domain.ResultCache
	catalog domain.CatalogProvider
	config  SuggestionServiceConfig
	logger  zerolog.Logger
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(
	cache domain.ResultCache,
	catalog domain.CatalogProvider,
	config SuggestionServiceConfig,
	logger zerolog.Logger,
) *SuggestionService {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 2 * time.Minute
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 8
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = 20
	}

	return &SuggestionService{
		cache:   cache,
		catalog: catalog,
		config:  config,
		logger:  logger.With().Str("component", "suggest").Logger(),
	}
}

type suggestKey struct {
	Query string `json:"q"`
	Limit int    `json:"l"`
}

type nameCandidate struct {
	name   string
	tier   int
	rating float64
}

// Suggest returns distinct completions for a partial query, capped at limit.
// Input shorter than two characters yields an empty list.
func (s *SuggestionService) Suggest(ctx context.Context, query domain.SuggestQuery) (*domain.SuggestResult, error) {
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("suggest").Observe(time.Since(start).Seconds())
	}()

	if err := validateSuggestQuery(&query); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(query.Query)
	if utf8.RuneCountInString(text) < minSuggestLength {
		return &domain.SuggestResult{Suggestions: []string{}}, nil
	}
	needle := strings.ToLower(text)
	limit := resolveLimit(query.Limit, s.config.DefaultLimit, s.config.MaxLimit)

	// Templates echo the caller's casing, so the key keeps it too
	cacheKey := GenerateKey("suggest", suggestKey{Query: text, Limit: limit})
	if cached, ok := getCached[domain.SuggestResult](ctx, s.cache, cacheKey, "suggest", s.logger); ok {
		cached.Cached = true
		return cached, nil
	}

	items, err := s.catalog.Items(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", needle).Msg("catalog unavailable, returning no suggestions")
		metrics.DegradedResponses.WithLabelValues("suggest", "catalog_unavailable").Inc()
		return &domain.SuggestResult{Suggestions: []string{}, Degraded: true}, nil
	}

	acc := newSuggestionSet(limit)

	for _, name := range rankNames(items, needle) {
		acc.add(name)
	}
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Category), needle) {
			acc.add(item.Category)
		}
	}
	for _, term := range s.config.PopularTerms {
		if strings.Contains(strings.ToLower(term), needle) {
			acc.add(term)
		}
	}
	for _, tmpl := range s.config.Templates {
		acc.add(strings.ReplaceAll(tmpl, "%s", text))
	}

	result := &domain.SuggestResult{Suggestions: acc.values}

	setCached(ctx, s.cache, cacheKey, result, s.config.CacheTTL, s.logger)

	return result, nil
}

// rankNames returns item names containing needle. Names with a word starting
// with needle come first; ties go to higher rating, then catalog order.
func rankNames(items []domain.CatalogItem, needle string) []string {
	candidates := make([]nameCandidate, 0)
	for _, item := range items {
		lower := strings.ToLower(item.Name)
		if !strings.Contains(lower, needle) {
			continue
		}
		tier := 1
		if hasWordPrefix(lower, needle) {
			tier = 0
		}
		candidates = append(candidates, nameCandidate{name: item.Name, tier: tier, rating: item.Rating})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier < candidates[j].tier
		}
		return candidates[i].rating > candidates[j].rating
	})

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

func hasWordPrefix(label, needle string) bool {
	if strings.HasPrefix(label, needle) {
		return true
	}
	for _, word := range tokenize(label) {
		if strings.HasPrefix(word, needle) {
			return true
		}
	}
	return false
}

// suggestionSet keeps insertion order, drops case-insensitive duplicates and stops at limit
type suggestionSet struct {
	values []string
	seen   map[string]struct{}
	limit  int
}

func newSuggestionSet(limit int) *suggestionSet {
	return &suggestionSet{
		values: make([]string, 0, limit),
		seen:   make(map[string]struct{}, limit),
		limit:  limit,
	}
}

func (s *suggestionSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" || len(s.values) >= s.limit {
		return
	}
	key := strings.ToLower(v)
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.values = append(s.values, v)
}
