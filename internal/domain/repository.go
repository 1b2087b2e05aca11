package domain

import (
	"context"
	"time"
)

// ResultCache stores encoded results under opaque keys with a per-entry TTL.
// Get returns ErrCacheMiss for absent and expired keys alike.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CatalogProvider supplies the current snapshot of sellable items.
// Implementations return ErrCatalogUnavailable (wrapped) when the source cannot be read.
type CatalogProvider interface {
	Items(ctx context.Context) ([]CatalogItem, error)
}

// ActivityProvider supplies user interaction history for the affinity signal.
type ActivityProvider interface {
	// UserHistory returns the most recent interactions of one user, newest first.
	UserHistory(ctx context.Context, userID string, limit int) ([]Interaction, error)
	// ItemInteractions returns every interaction that touched one of the given items.
	ItemInteractions(ctx context.Context, itemIDs []string) ([]Interaction, error)
}
