package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

const (
	defaultPageSize = 200
	maxPages        = 500
	maxBodyBytes    = 8 << 20
)

// Config holds remote catalog client settings
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	PageSize          int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// Client reads the catalog snapshot from a remote catalog service
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	pageSize    int
	maxRetries  int
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]domain.CatalogItem]
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

// NewClient creates a new catalog API client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		pageSize:    cfg.PageSize,
		maxRetries:  cfg.MaxRetries,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 10),
		backoff:     exponentialBackoff,
		logger:      logger.With().Str("component", "catalogapi").Logger(),
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]domain.CatalogItem](gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// A caller that gives up says nothing about the upstream's health
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("catalog breaker state changed")
		},
	})

	return c
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return 500 * time.Millisecond * time.Duration(1<<(attempt-1))
}

// Items fetches every page of the remote catalog
func (c *Client) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := c.breaker.Execute(func() ([]domain.CatalogItem, error) {
		items, err := c.fetchAll(ctx)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, ctx.Err())
		}
		return items, err
	})
	if err != nil {
		metrics.CatalogFetchErrors.WithLabelValues("api").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, domain.ErrCircuitOpen)
		}
		return nil, err
	}
	return items, nil
}

func (c *Client) fetchAll(ctx context.Context) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	for page := 1; page <= maxPages; page++ {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		items = append(items, MapItems(resp.Items)...)
		if !resp.HasMore || len(resp.Items) == 0 {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: remote catalog returned no items", domain.ErrCatalogUnavailable)
	}

	c.logger.Debug().Int("items", len(items)).Msg("fetched catalog snapshot")
	return items, nil
}

// fetchPage retrieves one page, retrying transient failures
func (c *Client) fetchPage(ctx context.Context, page int) (*ItemsPage, error) {
	params := url.Values{}
	params.Add("page", strconv.Itoa(page))
	params.Add("pageSize", strconv.Itoa(c.pageSize))
	reqURL := fmt.Sprintf("%s/v1/items?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrCatalogUnavailable, err)
		}

		body, status, err := c.doRequest(ctx, reqURL)
		if err != nil {
			lastErr = err
			c.logger.Warn().Err(err).Int("attempt", attempt).Int("page", page).Msg("catalog request failed")
		} else if status == http.StatusOK {
			var resp ItemsPage
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrCatalogUnavailable, err)
			}
			return &resp, nil
		} else {
			lastErr = fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, status)
			c.logger.Warn().Int("status", status).Int("attempt", attempt).Int("page", page).
				Str("body", truncate(body, 200)).Msg("catalog API error")
			// Client errors other than throttling will not succeed on retry
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return nil, lastErr
			}
		}

		if attempt < c.maxRetries {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
			}
		}
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request and returns the bounded body
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to create request: %v", domain.ErrCatalogUnavailable, err)
	}
	req.Header.Set("User-Agent", "relevance-engine/1.0")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrCatalogUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
