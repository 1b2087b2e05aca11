package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/spiralshops/relevance/internal/domain"
)

const refreshKey = "snapshot"

// SnapshotCache holds the last catalog snapshot for a short TTL so the
// engine does not reach the provider on every request. When a refresh
// fails it keeps serving the last good snapshot.
//
// Concurrent readers of an expired snapshot share one upstream fetch. The
// fetch runs detached from any single caller, and each caller stops waiting
// when its own context ends.
type SnapshotCache struct {
	provider domain.CatalogProvider
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
	group    singleflight.Group

	mu        sync.RWMutex
	items     []domain.CatalogItem
	fetchedAt time.Time
}

// NewSnapshotCache wraps provider
func NewSnapshotCache(provider domain.CatalogProvider, ttl time.Duration, logger zerolog.Logger) *SnapshotCache {
	return &SnapshotCache{
		provider: provider,
		ttl:      ttl,
		logger:   logger.With().Str("component", "catalog_snapshot").Logger(),
		now:      time.Now,
	}
}

// Items returns the cached snapshot, refreshing it once the TTL has passed.
// The returned slice is shared and must not be modified.
func (s *SnapshotCache) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	if items, fresh := s.snapshot(); fresh {
		return items, nil
	}

	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.CatalogItem), nil
	case <-ctx.Done():
		if items, _ := s.snapshot(); items != nil {
			return items, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, ctx.Err())
	}
}

// Invalidate drops the cached snapshot
func (s *SnapshotCache) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *SnapshotCache) snapshot() ([]domain.CatalogItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items, s.items != nil && s.now().Sub(s.fetchedAt) < s.ttl
}

// refresh fetches a new snapshot unless another flight stored one in the meantime
func (s *SnapshotCache) refresh(ctx context.Context) ([]domain.CatalogItem, error) {
	stale, fresh := s.snapshot()
	if fresh {
		return stale, nil
	}

	items, err := s.provider.Items(ctx)
	if err != nil {
		if stale != nil {
			s.mu.RLock()
			fetchedAt := s.fetchedAt
			s.mu.RUnlock()
			s.logger.Warn().Err(err).Time("fetched_at", fetchedAt).Msg("catalog refresh failed, serving stale snapshot")
			return stale, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.items = items
	s.fetchedAt = s.now()
	s.mu.Unlock()
	return items, nil
}
