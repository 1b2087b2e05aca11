package domain

import "errors"

var (
	// ErrInvalidInput is returned when a required parameter is missing or malformed
	ErrInvalidInput = errors.New("invalid input")

	// ErrCatalogUnavailable is returned when the catalog provider cannot be reached or returns no data
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidTTL is returned when a cache entry is written with a non-positive TTL
	ErrInvalidTTL = errors.New("cache ttl must be positive")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen is returned when the remote catalog breaker rejects a call
	ErrCircuitOpen = errors.New("catalog circuit breaker open")
)
