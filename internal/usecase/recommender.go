package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

const (
	reasonAffinity   = "associated with similar activity"
	reasonSimilar    = "similar item"
	reasonPopular    = "popular now"
	sameCategoryBump = 2.0
	priceBandWeight  = 1.5
	inStockBump      = 0.5
)

// RecommenderConfig holds configuration for the hybrid recommender
type RecommenderConfig struct {
	CacheTTL      time.Duration
	DefaultLimit  int
	MaxLimit      int
	AffinityShare float64
	ContentShare  float64
	AffinityBoost float64
	PriceBand     float64
	HistorySize   int
}

// Recommender merges a personalized affinity list with a content or popularity list
type Recommender struct {
	cache    domain.ResultCache
	catalog  domain.CatalogProvider
	affinity *affinityScorer
	config   RecommenderConfig
	logger   zerolog.Logger
}

// NewRecommender creates a recommender. activity may be nil, in which case
// every request takes the anonymous path.
func NewRecommender(
	cache domain.ResultCache,
	catalog domain.CatalogProvider,
	activity domain.ActivityProvider,
	config RecommenderConfig,
	logger zerolog.Logger,
) *Recommender {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 5
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = 50
	}
	if config.AffinityShare <= 0 {
		config.AffinityShare = 0.7
	}
	if config.ContentShare <= 0 {
		config.ContentShare = 0.5
	}
	if config.AffinityBoost <= 1 {
		config.AffinityBoost = 1.2
	}
	if config.PriceBand <= 0 {
		config.PriceBand = 0.5
	}
	if config.HistorySize <= 0 {
		config.HistorySize = 50
	}

	return &Recommender{
		cache:    cache,
		catalog:  catalog,
		affinity: &affinityScorer{activity: activity, historySize: config.HistorySize},
		config:   config,
		logger:   logger.With().Str("component", "recommender").Logger(),
	}
}

type recommendKey struct {
	UserID   string `json:"u"`
	AnchorID string `json:"a"`
	Context  string `json:"c"`
	Limit    int    `json:"l"`
}

// Recommend returns at most limit items for the given user, anchor and context.
// Missing user or anchor is not an error; it narrows the list to content or popularity.
func (r *Recommender) Recommend(ctx context.Context, query domain.RecommendQuery) (*domain.RecommendResult, error) {
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues("recommend").Observe(time.Since(start).Seconds())
	}()

	if query.Context == "" {
		query.Context = domain.ContextHomepage
	}
	if err := validateRecommendQuery(&query); err != nil {
		return nil, err
	}
	limit := resolveLimit(query.Limit, r.config.DefaultLimit, r.config.MaxLimit)

	cacheKey := GenerateKey("recommend", recommendKey{
		UserID:   query.UserID,
		AnchorID: query.AnchorID,
		Context:  query.Context,
		Limit:    limit,
	})

	if cached, ok := getCached[domain.RecommendResult](ctx, r.cache, cacheKey, "recommend", r.logger); ok {
		cached.Cached = true
		return cached, nil
	}

	items, err := r.catalog.Items(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("catalog unavailable, returning empty recommendations")
		metrics.DegradedResponses.WithLabelValues("recommend", "catalog_unavailable").Inc()
		return &domain.RecommendResult{
			Recommendations: []domain.ScoredResult{},
			Context:         query.Context,
			Degraded:        true,
		}, nil
	}

	activityFailed := false
	affinity, err := r.affinity.candidates(ctx, query.UserID, items, shareOf(r.config.AffinityShare, limit))
	if err != nil {
		activityFailed = true
		r.logger.Warn().Err(err).Str("userId", query.UserID).Msg("affinity unavailable, using content only")
		metrics.DegradedResponses.WithLabelValues("recommend", "activity_unavailable").Inc()
		affinity = nil
	}

	contentCap := shareOf(r.config.ContentShare, limit)
	content := r.similarTo(query.AnchorID, items, contentCap)
	if len(content) == 0 {
		content = popular(items, contentCap)
	}

	merged := r.merge(affinity, content, limit)

	result := &domain.RecommendResult{
		Recommendations: merged,
		Total:           len(merged),
		Context:         query.Context,
		Personalized:    len(affinity) > 0,
	}

	r.logger.Debug().
		Str("userId", query.UserID).
		Str("anchorId", query.AnchorID).
		Int("affinity", len(affinity)).
		Int("content", len(content)).
		Int("returned", len(merged)).
		Msg("recommendations computed")

	if !activityFailed {
		setCached(ctx, r.cache, cacheKey, result, r.config.CacheTTL, r.logger)
	}

	return result, nil
}

// merge inserts boosted affinity entries first; content entries only fill ids not yet present
func (r *Recommender) merge(affinity, content []domain.ScoredResult, limit int) []domain.ScoredResult {
	merged := make([]domain.ScoredResult, 0, len(affinity)+len(content))
	present := make(map[string]struct{}, len(affinity)+len(content))

	for _, a := range affinity {
		if _, dup := present[a.Item.ID]; dup {
			continue
		}
		a.Score *= r.config.AffinityBoost
		merged = append(merged, a)
		present[a.Item.ID] = struct{}{}
	}
	for _, c := range content {
		if _, dup := present[c.Item.ID]; dup {
			continue
		}
		merged = append(merged, c)
		present[c.Item.ID] = struct{}{}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// similarTo returns items sharing the anchor's category or price band.
// An empty or unknown anchor returns nil.
func (r *Recommender) similarTo(anchorID string, items []domain.CatalogItem, limit int) []domain.ScoredResult {
	if anchorID == "" {
		return nil
	}

	var anchor *domain.CatalogItem
	for i := range items {
		if items[i].ID == anchorID {
			anchor = &items[i]
			break
		}
	}
	if anchor == nil {
		return nil
	}

	results := make([]domain.ScoredResult, 0)
	for i := range items {
		item := &items[i]
		if item.ID == anchor.ID {
			continue
		}

		sameCategory := anchor.Category != "" && item.Category == anchor.Category
		diff, inBand := r.priceDiff(anchor.Price, item.Price)
		if !sameCategory && !inBand {
			continue
		}

		score := ratingWeight * item.Rating
		if sameCategory {
			score += sameCategoryBump
		}
		if inBand {
			score += priceBandWeight * (1 - diff)
		}
		results = append(results, domain.ScoredResult{
			Item:   *item,
			Score:  score,
			Reason: reasonSimilar,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// priceDiff returns the relative price difference and whether it sits inside the band.
// A zero anchor price has no meaningful band.
func (r *Recommender) priceDiff(anchorPrice, price int64) (float64, bool) {
	if anchorPrice <= 0 {
		return 0, false
	}
	diff := math.Abs(float64(price-anchorPrice)) / float64(anchorPrice)
	return diff, diff < r.config.PriceBand
}

// popular ranks the whole catalog by rating with an in-stock bump
func popular(items []domain.CatalogItem, limit int) []domain.ScoredResult {
	results := make([]domain.ScoredResult, 0, len(items))
	for i := range items {
		score := ratingWeight * items[i].Rating
		if items[i].InStock {
			score += inStockBump
		}
		results = append(results, domain.ScoredResult{
			Item:   items[i],
			Score:  score,
			Reason: reasonPopular,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// shareOf returns ceil(share * limit). The epsilon keeps 0.7*10 at 7.
func shareOf(share float64, limit int) int {
	return int(math.Ceil(share*float64(limit) - 1e-9))
}
