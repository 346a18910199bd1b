package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/temcen/hybridrec/pkg/models"
)

// Weights are the per-source blend coefficients. They must be non-negative
// and sum to 1.
type Weights struct {
	Collaborative float64 `mapstructure:"collaborative" json:"collaborative"`
	Content       float64 `mapstructure:"content" json:"content"`
	Social        float64 `mapstructure:"social" json:"social"`
}

// DefaultWeights blend collaborative, content and social scores 0.4/0.35/0.25.
var DefaultWeights = Weights{
	Collaborative: 0.4,
	Content:       0.35,
	Social:        0.25,
}

const weightTolerance = 1e-9

func init() {
	if err := DefaultWeights.Validate(); err != nil {
		panic(err)
	}
}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"collaborative": w.Collaborative,
		"content":       w.Content,
		"social":        w.Social,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("fusion weight %s must be a non-negative number, got %v", name, v)
		}
	}

	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("fusion weights must sum to 1, got %v", sum)
	}
	return nil
}

// Sum returns the total of the three weights.
func (w Weights) Sum() float64 {
	return w.Collaborative + w.Content + w.Social
}

// Combine blends three candidate lists by item id. An item missing from a list
// contributes 0 from that list, and non-finite scores count as 0. The result
// is ordered by blended score then item id and holds at most n entries.
func (w Weights) Combine(collaborative, content, social []models.ScoredCandidate, n int) []models.ScoredCandidate {
	if n <= 0 {
		return []models.ScoredCandidate{}
	}

	totals := make(map[string]float64)
	accumulate := func(list []models.ScoredCandidate, weight float64) {
		for _, c := range list {
			score := c.Score
			if math.IsNaN(score) || math.IsInf(score, 0) {
				score = 0
			}
			totals[c.ItemID] += weight * score
		}
	}
	accumulate(collaborative, w.Collaborative)
	accumulate(content, w.Content)
	accumulate(social, w.Social)

	out := make([]models.ScoredCandidate, 0, len(totals))
	for id, total := range totals {
		if math.IsNaN(total) || math.IsInf(total, 0) {
			total = 0
		}
		out = append(out, models.ScoredCandidate{
			ItemID: id,
			Score:  total,
			Source: models.SourceHybrid,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
