package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/spiralshops/relevance/internal/domain"
)

const (
	// maxPeers bounds how many co-visiting users are expanded per request
	maxPeers = 50

	sameStoreAffinity    = 0.5
	sameCategoryAffinity = 1.0
	ratingWeight         = 0.3
)

// affinityScorer derives "items associated with this user's history" from
// co-visitation across peers plus store and category co-occurrence.
type affinityScorer struct {
	activity    domain.ActivityProvider
	historySize int
}

// candidates returns affinity-ranked items for userID, highest first, capped at limit.
// An unknown user or empty history yields an empty list.
func (a *affinityScorer) candidates(ctx context.Context, userID string, items []domain.CatalogItem, limit int) ([]domain.ScoredResult, error) {
	if a.activity == nil || userID == "" || limit <= 0 {
		return nil, nil
	}

	history, err := a.activity.UserHistory(ctx, userID, a.historySize)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(history))
	historyIDs := make([]string, 0, len(history))
	for _, h := range history {
		if _, ok := seen[h.ItemID]; ok {
			continue
		}
		seen[h.ItemID] = struct{}{}
		historyIDs = append(historyIDs, h.ItemID)
	}

	coVisits, err := a.coVisits(ctx, userID, historyIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.CatalogItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	stores := make(map[string]struct{})
	categories := make(map[string]struct{})
	for _, id := range historyIDs {
		if it, ok := byID[id]; ok {
			if it.StoreID != "" {
				stores[it.StoreID] = struct{}{}
			}
			if it.Category != "" {
				categories[it.Category] = struct{}{}
			}
		}
	}

	results := make([]domain.ScoredResult, 0)
	for i := range items {
		item := &items[i]
		if _, own := seen[item.ID]; own {
			continue
		}

		raw := float64(coVisits[item.ID])
		if _, ok := stores[item.StoreID]; ok && item.StoreID != "" {
			raw += sameStoreAffinity
		}
		if _, ok := categories[item.Category]; ok && item.Category != "" {
			raw += sameCategoryAffinity
		}
		if raw == 0 {
			continue
		}

		results = append(results, domain.ScoredResult{
			Item:   *item,
			Score:  raw + ratingWeight*item.Rating,
			Reason: reasonAffinity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// coVisits counts, per item, how many distinct peers touched it. A peer is any
// other user who interacted with one of the target user's history items.
func (a *affinityScorer) coVisits(ctx context.Context, userID string, historyIDs []string) (map[string]int, error) {
	touching, err := a.activity.ItemInteractions(ctx, historyIDs)
	if err != nil {
		return nil, fmt.Errorf("load item interactions: %w", err)
	}

	peers := make([]string, 0)
	seenPeer := make(map[string]struct{})
	for _, e := range touching {
		if e.UserID == userID {
			continue
		}
		if _, ok := seenPeer[e.UserID]; ok {
			continue
		}
		seenPeer[e.UserID] = struct{}{}
		peers = append(peers, e.UserID)
		if len(peers) >= maxPeers {
			break
		}
	}

	counts := make(map[string]int)
	for _, peer := range peers {
		peerHistory, err := a.activity.UserHistory(ctx, peer, a.historySize)
		if err != nil {
			return nil, fmt.Errorf("load history for peer %s: %w", peer, err)
		}
		visited := make(map[string]struct{}, len(peerHistory))
		for _, e := range peerHistory {
			if _, ok := visited[e.ItemID]; ok {
				continue
			}
			visited[e.ItemID] = struct{}{}
			counts[e.ItemID]++
		}
	}
	return counts, nil
}
