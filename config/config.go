package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Search    SearchConfig    `mapstructure:"search"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Suggest   SuggestConfig   `mapstructure:"suggest"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port                 string        `mapstructure:"port"`
	Environment          string        `mapstructure:"environment"`
	AllowedOrigins       []string      `mapstructure:"allowed_origins"`
	SlowRequestThreshold time.Duration `mapstructure:"slow_request_threshold"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "valkey"
	Valkey          ValkeyConfig  `mapstructure:"valkey"`
	SearchTTL       time.Duration `mapstructure:"search_ttl"`
	RecommendTTL    time.Duration `mapstructure:"recommend_ttl"`
	SuggestTTL      time.Duration `mapstructure:"suggest_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ValkeyConfig holds the shared cache connection settings
type ValkeyConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// CatalogConfig selects and configures the catalog provider
type CatalogConfig struct {
	Source      string           `mapstructure:"source"` // "fixture", "database" or "api"
	FixturePath string           `mapstructure:"fixture_path"`
	SnapshotTTL time.Duration    `mapstructure:"snapshot_ttl"`
	Database    DatabaseConfig   `mapstructure:"database"`
	API         CatalogAPIConfig `mapstructure:"api"`
}

// DatabaseConfig holds the catalog store connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// CatalogAPIConfig holds remote catalog service settings
type CatalogAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// SearchConfig holds relevance scoring configuration
type SearchConfig struct {
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	MinFuzzyLength int           `mapstructure:"min_fuzzy_length"`
	Weights        SignalWeights `mapstructure:"weights"`
}

// SignalWeights is the per-signal weighting table used by the scorer
type SignalWeights struct {
	Name           float64 `mapstructure:"name"`
	CategoryText   float64 `mapstructure:"category_text"`
	Description    float64 `mapstructure:"description"`
	Fuzzy          float64 `mapstructure:"fuzzy"`
	CategoryFilter float64 `mapstructure:"category_filter"`
	Zone           float64 `mapstructure:"zone"`
	Popularity     float64 `mapstructure:"popularity"`
}

// RecommendConfig holds hybrid recommender configuration
type RecommendConfig struct {
	DefaultLimit  int     `mapstructure:"default_limit"`
	MaxLimit      int     `mapstructure:"max_limit"`
	AffinityShare float64 `mapstructure:"affinity_share"`
	ContentShare  float64 `mapstructure:"content_share"`
	AffinityBoost float64 `mapstructure:"affinity_boost"`
	PriceBand     float64 `mapstructure:"price_band"`
	HistorySize   int     `mapstructure:"history_size"`
}

// SuggestConfig holds autocomplete configuration
type SuggestConfig struct {
	DefaultLimit int      `mapstructure:"default_limit"`
	MaxLimit     int      `mapstructure:"max_limit"`
	PopularTerms []string `mapstructure:"popular_terms"`
	Templates    []string `mapstructure:"templates"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/relevance/")

	// Environment variable settings
	v.SetEnvPrefix("RELEVANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultPopularTerms are the category-level terms offered as completions.
var DefaultPopularTerms = []string{
	"Coffee", "Jewelry", "Books", "Clothing", "Electronics", "Food", "Home", "Beauty",
}

// DefaultTemplates are query expansion templates; %s is replaced by the typed query.
var DefaultTemplates = []string{"%s near me", "%s deals", "best %s"}

// DefaultSignalWeights mirrors the documented weighting table.
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

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.slow_request_threshold", "100ms")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.valkey.address", "localhost:6379")
	v.SetDefault("cache.valkey.password", "")
	v.SetDefault("cache.valkey.db", 0)
	v.SetDefault("cache.valkey.key_prefix", "relevance")
	v.SetDefault("cache.search_ttl", "30s")
	v.SetDefault("cache.recommend_ttl", "300s")
	v.SetDefault("cache.suggest_ttl", "120s")
	v.SetDefault("cache.cleanup_interval", "1m")

	// Catalog defaults
	v.SetDefault("catalog.source", "fixture")
	v.SetDefault("catalog.fixture_path", "")
	v.SetDefault("catalog.snapshot_ttl", "15s")
	v.SetDefault("catalog.database.driver", "sqlite")
	v.SetDefault("catalog.database.dsn", "catalog.db")
	v.SetDefault("catalog.api.base_url", "")
	v.SetDefault("catalog.api.api_key", "")
	v.SetDefault("catalog.api.timeout", "10s")
	v.SetDefault("catalog.api.requests_per_second", 5.0)
	v.SetDefault("catalog.api.max_retries", 3)
	v.SetDefault("catalog.api.breaker_failures", 5)
	v.SetDefault("catalog.api.breaker_timeout", "30s")

	// Search defaults
	w := DefaultSignalWeights()
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.min_fuzzy_length", 4)
	v.SetDefault("search.weights.name", w.Name)
	v.SetDefault("search.weights.category_text", w.CategoryText)
	v.SetDefault("search.weights.description", w.Description)
	v.SetDefault("search.weights.fuzzy", w.Fuzzy)
	v.SetDefault("search.weights.category_filter", w.CategoryFilter)
	v.SetDefault("search.weights.zone", w.Zone)
	v.SetDefault("search.weights.popularity", w.Popularity)

	// Recommend defaults
	v.SetDefault("recommend.default_limit", 5)
	v.SetDefault("recommend.max_limit", 50)
	v.SetDefault("recommend.affinity_share", 0.7)
	v.SetDefault("recommend.content_share", 0.5)
	v.SetDefault("recommend.affinity_boost", 1.2)
	v.SetDefault("recommend.price_band", 0.5)
	v.SetDefault("recommend.history_size", 50)

	// Suggest defaults
	v.SetDefault("suggest.default_limit", 8)
	v.SetDefault("suggest.max_limit", 20)
	v.SetDefault("suggest.popular_terms", DefaultPopularTerms)
	v.SetDefault("suggest.templates", DefaultTemplates)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Cache.Type {
	case "memory":
	case "valkey":
		if config.Cache.Valkey.Address == "" {
			return fmt.Errorf("valkey address is required when cache type is 'valkey'")
		}
	default:
		return fmt.Errorf("cache type must be 'memory' or 'valkey', got: %s", config.Cache.Type)
	}

	if config.Cache.SearchTTL <= 0 || config.Cache.RecommendTTL <= 0 || config.Cache.SuggestTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	switch config.Catalog.Source {
	case "fixture":
	case "database":
		if config.Catalog.Database.Driver != "sqlite" && config.Catalog.Database.Driver != "postgres" {
			return fmt.Errorf("database driver must be 'sqlite' or 'postgres', got: %s", config.Catalog.Database.Driver)
		}
		if config.Catalog.Database.DSN == "" {
			return fmt.Errorf("database DSN is required when catalog source is 'database'")
		}
	case "api":
		if config.Catalog.API.BaseURL == "" {
			return fmt.Errorf("catalog API base URL is required (set RELEVANCE_CATALOG_API_BASE_URL)")
		}
	default:
		return fmt.Errorf("catalog source must be 'fixture', 'database' or 'api', got: %s", config.Catalog.Source)
	}

	if config.Search.DefaultLimit <= 0 || config.Search.MaxLimit < config.Search.DefaultLimit {
		return fmt.Errorf("search limits are inconsistent: default=%d max=%d", config.Search.DefaultLimit, config.Search.MaxLimit)
	}
	if config.Recommend.DefaultLimit <= 0 || config.Recommend.MaxLimit < config.Recommend.DefaultLimit {
		return fmt.Errorf("recommend limits are inconsistent: default=%d max=%d", config.Recommend.DefaultLimit, config.Recommend.MaxLimit)
	}
	if config.Suggest.DefaultLimit <= 0 || config.Suggest.MaxLimit < config.Suggest.DefaultLimit {
		return fmt.Errorf("suggest limits are inconsistent: default=%d max=%d", config.Suggest.DefaultLimit, config.Suggest.MaxLimit)
	}

	if !inUnitInterval(config.Recommend.AffinityShare) || !inUnitInterval(config.Recommend.ContentShare) {
		return fmt.Errorf("recommend shares must be within (0, 1]")
	}
	if config.Recommend.AffinityBoost <= 1 {
		return fmt.Errorf("affinity boost must be greater than 1, got: %v", config.Recommend.AffinityBoost)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	return nil
}

func inUnitInterval(f float64) bool {
	return f > 0 && f <= 1
}
