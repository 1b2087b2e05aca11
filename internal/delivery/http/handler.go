package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
)

const (
	serviceName    = "relevance-engine"
	serviceVersion = "1.0.0"
)

// Searcher ranks catalog items for a text query
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error)
}

// Recommender produces personalized or popular item lists
type Recommender interface {
	Recommend(ctx context.Context, query domain.RecommendQuery) (*domain.RecommendResult, error)
}

// Suggester completes partial queries
type Suggester interface {
	Suggest(ctx context.Context, query domain.SuggestQuery) (*domain.SuggestResult, error)
}

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search    Searcher
	recommend Recommender
	suggest   Suggester
	pingers   map[string]Pinger
	logger    zerolog.Logger
}

// NewHandler creates a new HTTP handler. Nil services answer 503.
func NewHandler(search Searcher, recommend Recommender, suggest Suggester, logger zerolog.Logger) *Handler {
	return &Handler{
		search:    search,
		recommend: recommend,
		suggest:   suggest,
		pingers:   make(map[string]Pinger),
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// WithHealthCheck adds a dependency probed by the health endpoint
func (h *Handler) WithHealthCheck(name string, p Pinger) *Handler {
	h.pingers[name] = p
	return h
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	checks := gin.H{}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			checks[name] = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := gin.H{
		"status":  status,
		"service": serviceName,
		"version": serviceVersion,
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	c.JSON(code, body)
}

// Search handles GET /api/v1/search
func (h *Handler) Search(c *gin.Context) {
	start := time.Now()
	if h.search == nil {
		respondError(c, start, http.StatusServiceUnavailable, "search service not configured")
		return
	}

	query := domain.SearchQuery{
		Query:    c.Query("query"),
		Category: c.Query("category"),
		Zone:     c.Query("zone"),
		Sort:     domain.SortMode(c.Query("sort")),
	}
	if query.Query == "" {
		query.Query = c.Query("q")
	}

	var err error
	if query.MinPrice, err = optionalInt64(c, "minPrice"); err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}
	if query.MaxPrice, err = optionalInt64(c, "maxPrice"); err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}
	if query.InStockOnly, err = optionalBool(c, "inStock"); err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}
	if query.Limit, err = optionalInt(c, "limit"); err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		h.fail(c, start, "search", err)
		return
	}
	respondOK(c, start, result)
}

// Recommend handles GET /api/v1/recommend
func (h *Handler) Recommend(c *gin.Context) {
	start := time.Now()
	if h.recommend == nil {
		respondError(c, start, http.StatusServiceUnavailable, "recommendation service not configured")
		return
	}

	query := domain.RecommendQuery{
		UserID:   c.Query("userId"),
		AnchorID: c.Query("productId"),
		Context:  c.Query("context"),
	}
	if query.AnchorID == "" {
		query.AnchorID = c.Query("itemId")
	}

	var err error
	if query.Limit, err = optionalInt(c, "limit"); err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.recommend.Recommend(c.Request.Context(), query)
	if err != nil {
		h.fail(c, start, "recommend", err)
		return
	}
	respondOK(c, start, result)
}

// Suggest handles GET /api/v1/search/suggestions
func (h *Handler) Suggest(c *gin.Context) {
	start := time.Now()
	if h.suggest == nil {
		respondError(c, start, http.StatusServiceUnavailable, "suggestion service not configured")
		return
	}

	text, ok := c.GetQuery("query")
	if !ok {
		respondError(c, start, http.StatusBadRequest, "query parameter is required")
		return
	}
	limit, err := optionalInt(c, "limit")
	if err != nil {
		respondError(c, start, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.suggest.Suggest(c.Request.Context(), domain.SuggestQuery{Query: text, Limit: limit})
	if err != nil {
		h.fail(c, start, "suggest", err)
		return
	}
	respondOK(c, start, result)
}

// fail logs unexpected errors and writes the mapped status. Input errors echo their message.
func (h *Handler) fail(c *gin.Context, start time.Time, operation string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("operation", operation).Str("requestId", GetRequestID(c)).Msg("request failed")
		respondError(c, start, status, http.StatusText(status))
		return
	}
	respondError(c, start, status, err.Error())
}

func optionalInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer amount in minor units", name)
	}
	return &v, nil
}

func optionalInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return v, nil
}

func optionalBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", name)
	}
	return v, nil
}
