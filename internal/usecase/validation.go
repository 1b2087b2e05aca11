package usecase

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/spiralshops/relevance/internal/domain"
)

const maxIdentifierLength = 128

func validateSearchQuery(q *domain.SearchQuery) error {
	err := validation.ValidateStruct(q,
		validation.Field(&q.Query, validation.Required.Error("query is required"), validation.Length(1, 500)),
		validation.Field(&q.Category, validation.Length(0, 100)),
		validation.Field(&q.Zone, validation.Length(0, 100)),
		validation.Field(&q.MinPrice, validation.Min(int64(0))),
		validation.Field(&q.MaxPrice, validation.Min(int64(0))),
		validation.Field(&q.Sort, validation.In(
			domain.SortRelevance, domain.SortPriceLow, domain.SortPriceHigh, domain.SortRating,
		).Error("sort must be one of relevance, price_low, price_high, rating")),
		validation.Field(&q.Limit, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return fmt.Errorf("%w: minPrice must not exceed maxPrice", domain.ErrInvalidInput)
	}
	return nil
}

func validateRecommendQuery(q *domain.RecommendQuery) error {
	contexts := make([]interface{}, len(domain.KnownContexts))
	for i, c := range domain.KnownContexts {
		contexts[i] = c
	}

	err := validation.ValidateStruct(q,
		validation.Field(&q.UserID, validation.Length(0, maxIdentifierLength)),
		validation.Field(&q.AnchorID, validation.Length(0, maxIdentifierLength)),
		validation.Field(&q.Context, validation.In(contexts...).Error("unknown context")),
		validation.Field(&q.Limit, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func validateSuggestQuery(q *domain.SuggestQuery) error {
	err := validation.ValidateStruct(q,
		validation.Field(&q.Query, validation.Length(0, 200)),
		validation.Field(&q.Limit, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}
