package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/spiralshops/relevance/internal/domain"
)

//go:embed fixtures/sample_catalog.json
var sampleCatalog []byte

// FixtureFile is the on-disk layout of a fixture catalog
type FixtureFile struct {
	Items        []domain.CatalogItem `json:"items"`
	Interactions []domain.Interaction `json:"interactions"`
}

// FixtureProvider is a deterministic in-memory CatalogProvider and ActivityProvider
type FixtureProvider struct {
	items        []domain.CatalogItem
	interactions []domain.Interaction
}

// NewFixtureProvider serves the given items and interactions in the order given
func NewFixtureProvider(items []domain.CatalogItem, interactions []domain.Interaction) *FixtureProvider {
	return &FixtureProvider{
		items:        append([]domain.CatalogItem(nil), items...),
		interactions: append([]domain.Interaction(nil), interactions...),
	}
}

// LoadFixture reads a fixture file; an empty path loads the bundled sample catalog
func LoadFixture(path string) (*FixtureProvider, error) {
	data := sampleCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", path, err)
		}
	}

	f, err := ParseFixture(data)
	if err != nil {
		return nil, err
	}
	return NewFixtureProvider(f.Items, f.Interactions), nil
}

// ParseFixture decodes and validates fixture JSON
func ParseFixture(data []byte) (*FixtureFile, error) {
	var f FixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Items))
	for i, it := range f.Items {
		if it.ID == "" || it.Name == "" {
			return nil, fmt.Errorf("fixture item %d: id and name are required", i)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("fixture item %d: duplicate id %q", i, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return &f, nil
}

// Items returns a copy of the fixture items
func (p *FixtureProvider) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	if len(p.items) == 0 {
		return nil, fmt.Errorf("%w: fixture catalog is empty", domain.ErrCatalogUnavailable)
	}
	return append([]domain.CatalogItem(nil), p.items...), nil
}

// UserHistory returns the user's interactions, newest first
func (p *FixtureProvider) UserHistory(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for _, e := range p.interactions {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ItemInteractions returns every interaction touching one of itemIDs
func (p *FixtureProvider) ItemInteractions(ctx context.Context, itemIDs []string) ([]domain.Interaction, error) {
	wanted := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.Interaction
	for _, e := range p.interactions {
		if _, ok := wanted[e.ItemID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
