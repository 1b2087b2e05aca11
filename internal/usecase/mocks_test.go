package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiralshops/relevance/internal/domain"
)

// MockResultCache is a mock implementation of domain.ResultCache
type MockResultCache struct {
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
	lastTTL   time.Duration
}

func NewMockResultCache() *MockResultCache {
	return &MockResultCache{data: make(map[string][]byte)}
}

func (m *MockResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalled = true
	m.lastTTL = ttl
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockResultCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockResultCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockCatalog is a mock implementation of domain.CatalogProvider
type MockCatalog struct {
	items []domain.CatalogItem
	err   error
	calls int
}

func (m *MockCatalog) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.CatalogItem(nil), m.items...), nil
}

// MockActivity is a mock implementation of domain.ActivityProvider
type MockActivity struct {
	interactions []domain.Interaction
	historyError error
}

func (m *MockActivity) UserHistory(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	if m.historyError != nil {
		return nil, m.historyError
	}
	var out []domain.Interaction
	for _, e := range m.interactions {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockActivity) ItemInteractions(ctx context.Context, itemIDs []string) ([]domain.Interaction, error) {
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var out []domain.Interaction
	for _, e := range m.interactions {
		if wanted[e.ItemID] {
			out = append(out, e)
		}
	}
	return out, nil
}

var testLogger = zerolog.Nop()

// coffeeCatalog is the three-item catalog used by the end-to-end scenarios
func coffeeCatalog() []domain.CatalogItem {
	return []domain.CatalogItem{
		{ID: "1", Name: "Dark Roast Coffee", Category: "Coffee", Price: 1500, Rating: 4.5, InStock: true, StoreID: "s1"},
		{ID: "2", Name: "Light Roast Coffee", Category: "Coffee", Price: 1200, Rating: 4.0, InStock: true, StoreID: "s1"},
		{ID: "3", Name: "Ceramic Mug", Category: "Home", Price: 800, Rating: 4.8, InStock: true, StoreID: "s2"},
	}
}

func interaction(user, item string, minute int) domain.Interaction {
	return domain.Interaction{
		UserID:     user,
		ItemID:     item,
		Kind:       "view",
		OccurredAt: time.Date(2026, 3, 1, 10, minute, 0, 0, time.UTC),
	}
}

func ids(results []domain.ScoredResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Item.ID
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }
