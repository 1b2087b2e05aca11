package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiralshops/relevance/config"
	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/infrastructure/cache"
	"github.com/spiralshops/relevance/internal/infrastructure/catalog"
	"github.com/spiralshops/relevance/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
	}
}

func testItems() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "1", Name: "Dark Roast Coffee", Category: "Coffee", Price: 1500, StoreID: "s1", Rating: 4.5, InStock: true, Zone: "downtown"},
		{ID: "2", Name: "Light Roast Coffee", Category: "Coffee", Price: 1200, StoreID: "s1", Rating: 4.0, InStock: true, Zone: "downtown"},
		{ID: "3", Name: "Ceramic Mug", Category: "Home", Price: 800, StoreID: "s2", Rating: 4.8, InStock: true, Zone: "riverside"},
	}
}

// failingCatalog always reports the catalog as unavailable
type failingCatalog struct{}

func (failingCatalog) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	return nil, domain.ErrCatalogUnavailable
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

// setupTestRouter wires real services over an in-memory catalog and cache
func setupTestRouter(t *testing.T, provider domain.CatalogProvider, limiter *IPRateLimiter) (*gin.Engine, *Handler) {
	t.Helper()

	resultCache := cache.NewMemoryCache(0)
	t.Cleanup(func() { resultCache.Close() })

	logger := zerolog.Nop()
	var activity domain.ActivityProvider
	if p, ok := provider.(*catalog.FixtureProvider); ok {
		activity = p
	}

	handler := NewHandler(
		usecase.NewSearchService(resultCache, provider, usecase.SearchServiceConfig{}, logger),
		usecase.NewRecommender(resultCache, provider, activity, usecase.RecommenderConfig{}, logger),
		usecase.NewSuggestionService(resultCache, provider, usecase.SuggestionServiceConfig{
			PopularTerms: config.DefaultPopularTerms,
			Templates:    config.DefaultTemplates,
		}, logger),
		logger,
	)
	return SetupRouter(testConfig(), handler, limiter, logger), handler
}

func fixtureRouter(t *testing.T) *gin.Engine {
	router, _ := setupTestRouter(t, catalog.NewFixtureProvider(testItems(), nil), nil)
	return router
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Duration  *int64          `json:"duration"`
	Timestamp string          `json:"timestamp"`
	RequestID string          `json:"requestId"`
}

func doGet(t *testing.T, router *gin.Engine, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	}
	return w, env
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := fixtureRouter(t)

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "relevance-engine", response["service"])
		assert.NotEmpty(t, response["version"])
	})

	t.Run("reports unreachable dependency", func(t *testing.T) {
		router, handler := setupTestRouter(t, catalog.NewFixtureProvider(testItems(), nil), nil)
		handler.WithHealthCheck("cache", stubPinger{err: errors.New("dial tcp: refused")})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"degraded"`)
		assert.Contains(t, w.Body.String(), `"unreachable"`)
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := fixtureRouter(t)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req := httptest.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("ranks coffee items and wraps them in the envelope", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/search?query=coffee&sort=relevance")

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, env.Success)
		assert.Empty(t, env.Error)
		require.NotNil(t, env.Duration)
		assert.NotEmpty(t, env.Timestamp)
		assert.Equal(t, w.Header().Get("X-Request-ID"), env.RequestID)

		var result domain.SearchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		require.Len(t, result.Items, 2)
		assert.Equal(t, "1", result.Items[0].Item.ID)
		assert.Equal(t, "2", result.Items[1].Item.ID)
		assert.Equal(t, 2, result.TotalMatches)
		assert.Equal(t, domain.SortRelevance, result.Diagnostics.SortMode)
	})

	t.Run("accepts q alias and filters", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/search?q=coffee&maxPrice=1300&inStock=true&limit=5")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.SearchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		require.Len(t, result.Items, 1)
		assert.Equal(t, "2", result.Items[0].Item.ID)
	})

	t.Run("second identical request is served from cache", func(t *testing.T) {
		router := fixtureRouter(t)
		doGet(t, router, "/api/v1/search?query=coffee")
		_, env := doGet(t, router, "/api/v1/search?query=coffee")

		var result domain.SearchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.True(t, result.Diagnostics.Cached)
	})

	badRequests := map[string]string{
		"missing query":     "/api/v1/search",
		"non-numeric price": "/api/v1/search?query=coffee&minPrice=cheap",
		"negative price":    "/api/v1/search?query=coffee&minPrice=-5",
		"min above max":     "/api/v1/search?query=coffee&minPrice=2000&maxPrice=100",
		"unknown sort":      "/api/v1/search?query=coffee&sort=newest",
		"non-numeric limit": "/api/v1/search?query=coffee&limit=ten",
		"negative limit":    "/api/v1/search?query=coffee&limit=-1",
		"bad in-stock flag": "/api/v1/search?query=coffee&inStock=maybe",
		"punctuation only":  "/api/v1/search?query=%21%21%21",
	}
	for name, target := range badRequests {
		t.Run("400 for "+name, func(t *testing.T) {
			w, env := doGet(t, fixtureRouter(t), target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}

	t.Run("degrades when catalog is down", func(t *testing.T) {
		router, _ := setupTestRouter(t, failingCatalog{}, nil)

		w, env := doGet(t, router, "/api/v1/search?query=coffee")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.SearchResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Empty(t, result.Items)
		assert.True(t, result.Diagnostics.Degraded)
	})
}

func TestRecommendEndpoint(t *testing.T) {
	t.Run("anonymous request gets popular items", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/recommend")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.RecommendResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.NotEmpty(t, result.Recommendations)
		assert.Equal(t, domain.ContextHomepage, result.Context)
		assert.False(t, result.Personalized)
	})

	t.Run("itemId alias anchors the list", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/recommend?itemId=1&context=product&limit=4")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.RecommendResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		require.NotEmpty(t, result.Recommendations)
		for _, rec := range result.Recommendations {
			assert.NotEqual(t, "1", rec.Item.ID)
			assert.Equal(t, "similar item", rec.Reason)
		}
	})

	t.Run("personalized with fixture activity", func(t *testing.T) {
		provider := catalog.NewFixtureProvider(testItems(), []domain.Interaction{
			{UserID: "u1", ItemID: "1", Kind: "purchase"},
			{UserID: "u2", ItemID: "1", Kind: "purchase"},
			{UserID: "u2", ItemID: "3", Kind: "purchase"},
		})
		router, _ := setupTestRouter(t, provider, nil)

		w, env := doGet(t, router, "/api/v1/recommend?userId=u1")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.RecommendResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.True(t, result.Personalized)
		require.NotEmpty(t, result.Recommendations)
		assert.Equal(t, "associated with similar activity", result.Recommendations[0].Reason)
	})

	for name, target := range map[string]string{
		"unknown context":   "/api/v1/recommend?context=landing",
		"non-numeric limit": "/api/v1/recommend?limit=lots",
	} {
		t.Run("400 for "+name, func(t *testing.T) {
			w, env := doGet(t, fixtureRouter(t), target)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestSuggestEndpoint(t *testing.T) {
	t.Run("returns completions", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/search/suggestions?query=co")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.SuggestResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		require.NotEmpty(t, result.Suggestions)
		assert.Equal(t, "Dark Roast Coffee", result.Suggestions[0])
		assert.LessOrEqual(t, len(result.Suggestions), 8)
	})

	t.Run("short input is an empty list", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/search/suggestions?query=c")

		require.Equal(t, http.StatusOK, w.Code)
		var result domain.SuggestResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Empty(t, result.Suggestions)
	})

	t.Run("missing query parameter is a 400", func(t *testing.T) {
		w, env := doGet(t, fixtureRouter(t), "/api/v1/search/suggestions")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
	})
}

func TestUnconfiguredServices(t *testing.T) {
	handler := NewHandler(nil, nil, nil, zerolog.Nop())
	router := SetupRouter(testConfig(), handler, nil, zerolog.Nop())

	for _, target := range []string{
		"/api/v1/search?query=coffee",
		"/api/v1/recommend",
		"/api/v1/search/suggestions?query=coffee",
	} {
		w, env := doGet(t, router, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		assert.Contains(t, env.Error, "not configured")
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	router, _ := setupTestRouter(t, catalog.NewFixtureProvider(testItems(), nil), NewIPRateLimiter(1))

	w, _ := doGet(t, router, "/api/v1/search?query=coffee")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doGet(t, router, "/api/v1/search?query=coffee")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, domain.ErrRateLimited.Error(), env.Error)

	// health and metrics sit outside the limited group
	w, _ = doGet(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := fixtureRouter(t)
	doGet(t, router, "/api/v1/search?query=coffee")

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relevance_http_requests_total")
	assert.Contains(t, w.Body.String(), "relevance_operation_duration_seconds")
}

func TestCORSIntegration(t *testing.T) {
	router := fixtureRouter(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/search", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := gin.New()
		router.Use(RecoveryMiddleware())
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req := httptest.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAPIVersioning(t *testing.T) {
	router := fixtureRouter(t)

	for _, path := range []string{"/search?query=coffee", "/recommend", "/api/v2/search?query=coffee"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{errors.Join(errors.New("wrapped"), domain.ErrInvalidInput), http.StatusBadRequest},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrCatalogUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
