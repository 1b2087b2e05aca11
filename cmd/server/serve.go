package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/spiralshops/relevance/config"
	httpDelivery "github.com/spiralshops/relevance/internal/delivery/http"
	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/infrastructure/cache"
	"github.com/spiralshops/relevance/internal/infrastructure/catalog"
	"github.com/spiralshops/relevance/internal/infrastructure/catalogapi"
	"github.com/spiralshops/relevance/internal/logging"
	"github.com/spiralshops/relevance/internal/usecase"
)

const (
	limiterPruneInterval = 5 * time.Minute
	limiterMaxIdle       = 30 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "override the listen port | example: --port=8080")
	rootCmd.AddCommand(serveCmd)
}

// backends groups the infrastructure built for one server run
type backends struct {
	cache    domain.ResultCache
	catalog  domain.CatalogProvider
	activity domain.ActivityProvider
	pingers  map[string]httpDelivery.Pinger
	closers  []io.Closer
}

func (b *backends) Close(logger zerolog.Logger) {
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close backend")
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.Component("server")
	if cmd.Flags().Lookup("port") != nil {
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Server.Port = port
		}
	}

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Str("catalog", cfg.Catalog.Source).
		Msg("starting relevance engine")

	b, err := buildBackends(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close(logger)

	handler := httpDelivery.NewHandler(
		usecase.NewSearchService(b.cache, b.catalog, usecase.SearchServiceConfig{
			CacheTTL:       cfg.Cache.SearchTTL,
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			MinFuzzyLength: cfg.Search.MinFuzzyLength,
			Weights:        signalWeights(cfg.Search.Weights),
		}, logging.Logger()),
		usecase.NewRecommender(b.cache, b.catalog, b.activity, usecase.RecommenderConfig{
			CacheTTL:      cfg.Cache.RecommendTTL,
			DefaultLimit:  cfg.Recommend.DefaultLimit,
			MaxLimit:      cfg.Recommend.MaxLimit,
			AffinityShare: cfg.Recommend.AffinityShare,
			ContentShare:  cfg.Recommend.ContentShare,
			AffinityBoost: cfg.Recommend.AffinityBoost,
			PriceBand:     cfg.Recommend.PriceBand,
			HistorySize:   cfg.Recommend.HistorySize,
		}, logging.Logger()),
		usecase.NewSuggestionService(b.cache, b.catalog, usecase.SuggestionServiceConfig{
			CacheTTL:     cfg.Cache.SuggestTTL,
			DefaultLimit: cfg.Suggest.DefaultLimit,
			MaxLimit:     cfg.Suggest.MaxLimit,
			PopularTerms: cfg.Suggest.PopularTerms,
			Templates:    cfg.Suggest.Templates,
		}, logging.Logger()),
		logging.Logger(),
	)
	for name, p := range b.pingers {
		handler.WithHealthCheck(name, p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := httpDelivery.NewIPRateLimiter(cfg.RateLimit.PerIP)
	go pruneLimiter(ctx, limiter)

	router := httpDelivery.SetupRouter(cfg, handler, limiter, logging.Logger())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func buildBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backends, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b := &backends{pingers: make(map[string]httpDelivery.Pinger)}

	switch cfg.Cache.Type {
	case "valkey":
		vc, err := cache.NewValkeyCache(cache.ValkeyConfig{
			Address:   cfg.Cache.Valkey.Address,
			Password:  cfg.Cache.Valkey.Password,
			DB:        cfg.Cache.Valkey.DB,
			KeyPrefix: cfg.Cache.Valkey.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		b.cache = vc
		b.pingers["cache"] = vc
		b.closers = append(b.closers, vc)
	default:
		mc := cache.NewMemoryCache(cfg.Cache.CleanupInterval)
		b.cache = mc
		b.closers = append(b.closers, mc)
	}

	var source domain.CatalogProvider
	switch cfg.Catalog.Source {
	case "database":
		db, err := catalog.Open(cfg.Catalog.Database.Driver, cfg.Catalog.Database.DSN)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		store := catalog.NewStore(db, logging.Logger())
		b.closers = append(b.closers, store)
		if err := store.Migrate(ctx); err != nil {
			b.Close(logger)
			return nil, err
		}
		source = store
		b.activity = store
		b.pingers["catalog"] = store
	case "api":
		source = catalogapi.NewClient(catalogapi.Config{
			BaseURL:           cfg.Catalog.API.BaseURL,
			APIKey:            cfg.Catalog.API.APIKey,
			Timeout:           cfg.Catalog.API.Timeout,
			RequestsPerSecond: cfg.Catalog.API.RequestsPerSecond,
			MaxRetries:        cfg.Catalog.API.MaxRetries,
			BreakerFailures:   cfg.Catalog.API.BreakerFailures,
			BreakerTimeout:    cfg.Catalog.API.BreakerTimeout,
		}, logging.Logger())
		if cfg.Catalog.API.APIKey == "" {
			logger.Warn().Str("baseUrl", cfg.Catalog.API.BaseURL).Msg("catalog API key not configured")
		}
	default:
		fixture, err := catalog.LoadFixture(cfg.Catalog.FixturePath)
		if err != nil {
			b.Close(logger)
			return nil, err
		}
		source = fixture
		b.activity = fixture
	}

	b.catalog = catalog.NewSnapshotCache(source, cfg.Catalog.SnapshotTTL, logging.Logger())
	if b.activity == nil {
		logger.Info().Msg("no activity source, recommendations use content and popularity only")
	}
	return b, nil
}

func pruneLimiter(ctx context.Context, limiter *httpDelivery.IPRateLimiter) {
	ticker := time.NewTicker(limiterPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(limiterMaxIdle)
		}
	}
}

func signalWeights(w config.SignalWeights) usecase.SignalWeights {
	return usecase.SignalWeights{
		Name:           w.Name,
		CategoryText:   w.CategoryText,
		Description:    w.Description,
		Fuzzy:          w.Fuzzy,
		CategoryFilter: w.CategoryFilter,
		Zone:           w.Zone,
		Popularity:     w.Popularity,
	}
}
