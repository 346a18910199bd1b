package models

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRatings checks required fields, rejects non-finite rating values
// and duplicate (user, item) pairs.
func ValidateRatings(ratings []Rating) error {
	if len(ratings) == 0 {
		return fmt.Errorf("%w: no ratings", ErrInvalidInput)
	}

	type pair struct{ user, item string }
	seen := make(map[pair]struct{}, len(ratings))
	for i := range ratings {
		if err := validate.Struct(ratings[i]); err != nil {
			return fmt.Errorf("%w: rating %d: %v", ErrInvalidInput, i, err)
		}
		if v := ratings[i].Rating; math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: rating %d: non-finite value", ErrInvalidInput, i)
		}
		key := pair{ratings[i].UserID, ratings[i].ItemID}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate rating for user %s item %s", ErrInvalidInput, key.user, key.item)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateCatalog checks required fields and rejects duplicate item ids.
func ValidateCatalog(items []CatalogItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty catalog", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if err := validate.Struct(items[i]); err != nil {
			return fmt.Errorf("%w: catalog item %d: %v", ErrInvalidInput, i, err)
		}
		if _, dup := seen[items[i].ItemID]; dup {
			return fmt.Errorf("%w: duplicate item %s", ErrInvalidInput, items[i].ItemID)
		}
		seen[items[i].ItemID] = struct{}{}
	}
	return nil
}

// ValidateRequest checks a recommendation request body.
func ValidateRequest(req *RecommendationRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
