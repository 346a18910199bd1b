// Package social turns externally gathered interest signals into per-item
// scores. It never talks to the platforms the signals come from; callers
// hand it a ready SocialProfile.
package social

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/pkg/models"
)

// Score returns how strongly a social profile points at an item, in [0,1].
// It is the highest indicator score whose table genres, or whose own name,
// intersect the item's genre tags. Items with no matching indicator score 0.
func Score(profile models.SocialProfile, item models.CatalogItem) float64 {
	if len(profile) == 0 {
		return 0
	}

	tags := make(map[string]struct{})
	for _, tag := range models.GenreTags(item.Genre) {
		tags[tag] = struct{}{}
	}
	if len(tags) == 0 {
		return 0
	}

	var best float64
	for indicator, value := range profile {
		value = sanitize(value)
		if value <= best {
			continue
		}
		if matches(models.NormalizeKey(indicator), tags) {
			best = value
		}
	}
	return best
}

func matches(indicator string, tags map[string]struct{}) bool {
	if indicator == "" {
		return false
	}
	if _, ok := tags[indicator]; ok {
		return true
	}
	for key, genres := range genreTable {
		if !strings.Contains(indicator, key) {
			continue
		}
		for _, g := range genres {
			if _, ok := tags[g]; ok {
				return true
			}
		}
	}
	return false
}

func sanitize(v float64) float64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Catalog supplies the items the adapter scores.
type Catalog interface {
	Items() []models.CatalogItem
}

// Adapter ranks catalog items by social score.
type Adapter struct {
	catalog Catalog
	logger  *logrus.Logger
}

// NewAdapter creates a new social signal adapter
func NewAdapter(catalog Catalog, logger *logrus.Logger) *Adapter {
	return &Adapter{
		catalog: catalog,
		logger:  logger,
	}
}

// Recommend scores every catalog item outside the reading history and
// returns the n best with a positive score.
func (a *Adapter) Recommend(profile models.SocialProfile, history map[string]struct{}, n int) ([]models.ScoredCandidate, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}
	if n == 0 || len(profile) == 0 {
		return []models.ScoredCandidate{}, nil
	}

	items := a.catalog.Items()
	candidates := make([]models.ScoredCandidate, 0, len(items))
	for _, item := range items {
		if _, read := history[item.ItemID]; read {
			continue
		}
		score := Score(profile, item)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, models.ScoredCandidate{
			ItemID: item.ItemID,
			Score:  score,
			Source: models.SourceSocial,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	a.logger.WithFields(logrus.Fields{
		"indicators": len(profile),
		"catalog":    len(items),
		"matched":    len(candidates),
	}).Debug("Social candidates scored")

	return candidates, nil
}

// Candidates adapts Recommend to the common scorer signature.
func (a *Adapter) Candidates(_ context.Context, req models.CandidateRequest) ([]models.ScoredCandidate, error) {
	return a.Recommend(req.Social, req.Profile.HistorySet(), req.N)
}
