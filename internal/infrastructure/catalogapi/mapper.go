package catalogapi

import (
	"math"
	"strings"

	"github.com/spiralshops/relevance/internal/domain"
)

// maxRating bounds popularity ratings reported by the remote catalog
const maxRating = 5.0

// MapToCatalogItem converts a remote catalog item to the domain model.
// The second return value is false for records that cannot be scored.
func MapToCatalogItem(dto ItemDTO) (domain.CatalogItem, bool) {
	id := strings.TrimSpace(string(dto.ID))
	name := strings.TrimSpace(dto.Name)
	if id == "" || name == "" || dto.Price < 0 {
		return domain.CatalogItem{}, false
	}

	inStock := true
	if dto.InStock != nil {
		inStock = *dto.InStock
	}

	return domain.CatalogItem{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(dto.Description),
		Category:    strings.TrimSpace(dto.Category),
		Price:       toMinorUnits(dto.Price),
		StoreID:     string(dto.StoreID),
		StoreName:   dto.StoreName,
		Rating:      clampRating(dto.Rating),
		InStock:     inStock,
		Zone:        strings.TrimSpace(dto.Zone),
	}, true
}

// MapItems converts a page of DTOs, dropping unusable records
func MapItems(dtos []ItemDTO) []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(dtos))
	for _, dto := range dtos {
		if item, ok := MapToCatalogItem(dto); ok {
			items = append(items, item)
		}
	}
	return items
}

func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

func clampRating(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > maxRating {
		return maxRating
	}
	return r
}
