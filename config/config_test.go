package config

import (
	"os"
	"testing"
	"time"
)

var envKeys = []string{
	"RELEVANCE_SERVER_PORT",
	"RELEVANCE_SERVER_ENVIRONMENT",
	"RELEVANCE_CACHE_TYPE",
	"RELEVANCE_CACHE_SEARCH_TTL",
	"RELEVANCE_CACHE_VALKEY_ADDRESS",
	"RELEVANCE_CATALOG_SOURCE",
	"RELEVANCE_CATALOG_DATABASE_DRIVER",
	"RELEVANCE_CATALOG_DATABASE_DSN",
	"RELEVANCE_CATALOG_API_BASE_URL",
	"RELEVANCE_SEARCH_DEFAULT_LIMIT",
	"RELEVANCE_RECOMMEND_AFFINITY_BOOST",
	"RELEVANCE_RATELIMIT_PER_IP",
}

func cleanupEnv() {
	for _, k := range envKeys {
		os.Unsetenv(k)
	}
}

// chdirTemp moves the test into an empty directory so no config.yaml or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	originalDir, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		chdirTemp(t)
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.SlowRequestThreshold != 100*time.Millisecond {
			t.Errorf("Server.SlowRequestThreshold = %v, want 100ms", cfg.Server.SlowRequestThreshold)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.SearchTTL != 30*time.Second {
			t.Errorf("Cache.SearchTTL = %v, want 30s", cfg.Cache.SearchTTL)
		}
		if cfg.Cache.RecommendTTL != 300*time.Second {
			t.Errorf("Cache.RecommendTTL = %v, want 300s", cfg.Cache.RecommendTTL)
		}
		if cfg.Catalog.Source != "fixture" {
			t.Errorf("Catalog.Source = %s, want fixture", cfg.Catalog.Source)
		}
		if cfg.Search.DefaultLimit != 20 {
			t.Errorf("Search.DefaultLimit = %d, want 20", cfg.Search.DefaultLimit)
		}
		if cfg.Search.Weights != DefaultSignalWeights() {
			t.Errorf("Search.Weights = %+v, want %+v", cfg.Search.Weights, DefaultSignalWeights())
		}
		if cfg.Recommend.DefaultLimit != 5 {
			t.Errorf("Recommend.DefaultLimit = %d, want 5", cfg.Recommend.DefaultLimit)
		}
		if cfg.Recommend.AffinityBoost != 1.2 {
			t.Errorf("Recommend.AffinityBoost = %v, want 1.2", cfg.Recommend.AffinityBoost)
		}
		if cfg.Suggest.DefaultLimit != 8 {
			t.Errorf("Suggest.DefaultLimit = %d, want 8", cfg.Suggest.DefaultLimit)
		}
		if len(cfg.Suggest.PopularTerms) != len(DefaultPopularTerms) {
			t.Errorf("Suggest.PopularTerms = %v, want %v", cfg.Suggest.PopularTerms, DefaultPopularTerms)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		chdirTemp(t)
		os.Setenv("RELEVANCE_SERVER_PORT", "9090")
		os.Setenv("RELEVANCE_SERVER_ENVIRONMENT", "production")
		os.Setenv("RELEVANCE_CACHE_TYPE", "valkey")
		os.Setenv("RELEVANCE_CACHE_VALKEY_ADDRESS", "cache:6379")
		os.Setenv("RELEVANCE_CACHE_SEARCH_TTL", "45s")
		os.Setenv("RELEVANCE_CATALOG_SOURCE", "database")
		os.Setenv("RELEVANCE_CATALOG_DATABASE_DRIVER", "postgres")
		os.Setenv("RELEVANCE_CATALOG_DATABASE_DSN", "host=db user=app dbname=catalog")
		os.Setenv("RELEVANCE_SEARCH_DEFAULT_LIMIT", "10")
		os.Setenv("RELEVANCE_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Cache.Type != "valkey" {
			t.Errorf("Cache.Type = %s, want valkey", cfg.Cache.Type)
		}
		if cfg.Cache.Valkey.Address != "cache:6379" {
			t.Errorf("Cache.Valkey.Address = %s, want cache:6379", cfg.Cache.Valkey.Address)
		}
		if cfg.Cache.SearchTTL != 45*time.Second {
			t.Errorf("Cache.SearchTTL = %v, want 45s", cfg.Cache.SearchTTL)
		}
		if cfg.Catalog.Database.Driver != "postgres" {
			t.Errorf("Catalog.Database.Driver = %s, want postgres", cfg.Catalog.Database.Driver)
		}
		if cfg.Search.DefaultLimit != 10 {
			t.Errorf("Search.DefaultLimit = %d, want 10", cfg.Search.DefaultLimit)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("reads values from .env without overriding the environment", func(t *testing.T) {
		cleanupEnv()
		dir := chdirTemp(t)
		defer cleanupEnv()

		envContent := "# local overrides\nRELEVANCE_SERVER_PORT=7070\nRELEVANCE_RATELIMIT_PER_IP=50\n"
		if err := os.WriteFile(dir+"/.env", []byte(envContent), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Setenv("RELEVANCE_RATELIMIT_PER_IP", "75")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070 from .env", cfg.Server.Port)
		}
		if cfg.RateLimit.PerIP != 75 {
			t.Errorf("RateLimit.PerIP = %d, want 75 (environment wins over .env)", cfg.RateLimit.PerIP)
		}
	})

	t.Run("reads config.yaml from the working directory", func(t *testing.T) {
		cleanupEnv()
		dir := chdirTemp(t)
		defer cleanupEnv()

		yaml := "suggest:\n  default_limit: 4\n  popular_terms: [Tea, Cakes]\nrecommend:\n  affinity_boost: 1.5\n"
		if err := os.WriteFile(dir+"/config.yaml", []byte(yaml), 0o644); err != nil {
			t.Fatalf("Failed to create config.yaml: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Suggest.DefaultLimit != 4 {
			t.Errorf("Suggest.DefaultLimit = %d, want 4", cfg.Suggest.DefaultLimit)
		}
		if len(cfg.Suggest.PopularTerms) != 2 || cfg.Suggest.PopularTerms[0] != "Tea" {
			t.Errorf("Suggest.PopularTerms = %v, want [Tea Cakes]", cfg.Suggest.PopularTerms)
		}
		if cfg.Recommend.AffinityBoost != 1.5 {
			t.Errorf("Recommend.AffinityBoost = %v, want 1.5", cfg.Recommend.AffinityBoost)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		chdirTemp(t)
		os.Setenv("RELEVANCE_CACHE_TYPE", "redis")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation when api source has no base URL", func(t *testing.T) {
		cleanupEnv()
		chdirTemp(t)
		os.Setenv("RELEVANCE_CATALOG_SOURCE", "api")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing base URL")
		}
		want := "invalid configuration: catalog API base URL is required (set RELEVANCE_CATALOG_API_BASE_URL)"
		if err.Error() != want {
			t.Errorf("Load() error = %v, want %q", err, want)
		}
	})

	t.Run("fails validation when boost does not exceed one", func(t *testing.T) {
		cleanupEnv()
		chdirTemp(t)
		os.Setenv("RELEVANCE_RECOMMEND_AFFINITY_BOOST", "1")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for boost <= 1")
		}
	})
}

func validConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Type:         "memory",
			SearchTTL:    30 * time.Second,
			RecommendTTL: 300 * time.Second,
			SuggestTTL:   120 * time.Second,
		},
		Catalog:   CatalogConfig{Source: "fixture"},
		Search:    SearchConfig{DefaultLimit: 20, MaxLimit: 100},
		Recommend: RecommendConfig{DefaultLimit: 5, MaxLimit: 50, AffinityShare: 0.7, ContentShare: 0.5, AffinityBoost: 1.2},
		Suggest:   SuggestConfig{DefaultLimit: 8, MaxLimit: 20},
		RateLimit: RateLimitConfig{PerIP: 100},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "valkey with address", mutate: func(c *Config) {
			c.Cache.Type = "valkey"
			c.Cache.Valkey.Address = "localhost:6379"
		}, wantErr: false},
		{name: "valkey without address", mutate: func(c *Config) { c.Cache.Type = "valkey" }, wantErr: true},
		{name: "unknown cache type", mutate: func(c *Config) { c.Cache.Type = "invalid-type" }, wantErr: true},
		{name: "zero search ttl", mutate: func(c *Config) { c.Cache.SearchTTL = 0 }, wantErr: true},
		{name: "sqlite database", mutate: func(c *Config) {
			c.Catalog.Source = "database"
			c.Catalog.Database = DatabaseConfig{Driver: "sqlite", DSN: "catalog.db"}
		}, wantErr: false},
		{name: "unsupported database driver", mutate: func(c *Config) {
			c.Catalog.Source = "database"
			c.Catalog.Database = DatabaseConfig{Driver: "mysql", DSN: "x"}
		}, wantErr: true},
		{name: "database without dsn", mutate: func(c *Config) {
			c.Catalog.Source = "database"
			c.Catalog.Database = DatabaseConfig{Driver: "sqlite"}
		}, wantErr: true},
		{name: "unknown catalog source", mutate: func(c *Config) { c.Catalog.Source = "csv" }, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.Search.MaxLimit = 10 }, wantErr: true},
		{name: "affinity share above one", mutate: func(c *Config) { c.Recommend.AffinityShare = 1.5 }, wantErr: true},
		{name: "zero content share", mutate: func(c *Config) { c.Recommend.ContentShare = 0 }, wantErr: true},
		{name: "zero rate limit", mutate: func(c *Config) { c.RateLimit.PerIP = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
