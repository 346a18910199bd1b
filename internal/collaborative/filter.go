package collaborative

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/temcen/hybridrec/internal/similarity"
	"github.com/temcen/hybridrec/pkg/models"
)

// Config contains configuration for the collaborative filter
type Config struct {
	Rank      int `mapstructure:"rank" json:"rank"`
	Neighbors int `mapstructure:"neighbors" json:"neighbors"`
}

// Filter learns latent user and item factors from observed ratings and
// predicts ratings for items a user has not rated yet.
//
// The trained state is an immutable snapshot. Train builds a new snapshot off
// to the side and publishes it with a single pointer swap, so concurrent
// Recommend calls observe either the old or the new model, never a mix.
type Filter struct {
	config  Config
	logger  *logrus.Logger
	model   atomic.Pointer[model]
	trainMu sync.Mutex
}

// model is one trained snapshot. It is never mutated after publication.
type model struct {
	version   string
	trainedAt time.Time

	userIDs   []string
	itemIDs   []string
	userIndex map[string]int
	itemIndex map[string]int

	// observed[u] maps item column -> rating for every rating user u gave.
	observed []map[int]float64

	userFactors    *mat.Dense
	itemFactors    *mat.Dense
	userSimilarity *mat.Dense
	itemSimilarity *mat.Dense
}

// NewFilter creates a new collaborative filter
func NewFilter(config Config, logger *logrus.Logger) *Filter {
	if config.Rank == 0 {
		config.Rank = 50
	}
	if config.Neighbors == 0 {
		config.Neighbors = 50
	}

	return &Filter{
		config: config,
		logger: logger,
	}
}

// Train factorizes the rating matrix and publishes the resulting model.
// A failed or cancelled run leaves the previously published model in place.
func (f *Filter) Train(ctx context.Context, ratings []models.Rating) error {
	f.trainMu.Lock()
	defer f.trainMu.Unlock()

	start := time.Now()

	if err := models.ValidateRatings(ratings); err != nil {
		return err
	}

	m, dense := buildMatrix(ratings)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training cancelled after matrix build: %w", err)
	}

	users, items := len(m.userIDs), len(m.itemIDs)
	if f.config.Rank < 1 || f.config.Rank > min(users, items) {
		return fmt.Errorf("%w: rank %d, matrix is %dx%d", models.ErrInvalidRank, f.config.Rank, users, items)
	}

	userFactors, itemFactors, err := factorize(dense, f.config.Rank)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training cancelled after factorization: %w", err)
	}

	m.userFactors = userFactors
	m.itemFactors = itemFactors
	m.userSimilarity = similarity.Matrix(userFactors)
	m.itemSimilarity = similarity.Matrix(itemFactors)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training cancelled after similarity computation: %w", err)
	}

	m.version = uuid.NewString()
	m.trainedAt = time.Now()
	f.model.Store(m)

	f.logger.WithFields(logrus.Fields{
		"version":  m.version,
		"users":    users,
		"items":    items,
		"ratings":  len(ratings),
		"rank":     f.config.Rank,
		"duration": time.Since(start),
	}).Info("Collaborative model trained")

	return nil
}

// Recommend predicts ratings for every item the user has not rated and
// returns the n highest, ordered by predicted rating then item id.
func (f *Filter) Recommend(userID string, n int) ([]models.ScoredCandidate, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}

	m := f.model.Load()
	if m == nil {
		return nil, models.ErrUntrainedModel
	}

	u, ok := m.userIndex[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownUser, userID)
	}
	if n == 0 {
		return []models.ScoredCandidate{}, nil
	}

	neighbors := similarity.Nearest(m.userSimilarity, u, f.config.Neighbors)
	rated := m.observed[u]

	candidates := make([]models.ScoredCandidate, 0, len(m.itemIDs)-len(rated))
	for col, itemID := range m.itemIDs {
		if _, seen := rated[col]; seen {
			continue
		}
		candidates = append(candidates, models.ScoredCandidate{
			ItemID: itemID,
			Score:  m.predict(col, neighbors),
			Source: models.SourceCollaborative,
		})
	}

	return rank(candidates, n), nil
}

// Candidates adapts Recommend to the common scorer signature.
func (f *Filter) Candidates(_ context.Context, req models.CandidateRequest) ([]models.ScoredCandidate, error) {
	return f.Recommend(req.UserID, req.N)
}

// SimilarItems returns the n items whose latent factors are closest to itemID.
func (f *Filter) SimilarItems(itemID string, n int) ([]models.ScoredCandidate, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}

	m := f.model.Load()
	if m == nil {
		return nil, models.ErrUntrainedModel
	}

	col, ok := m.itemIndex[itemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownItem, itemID)
	}

	neighbors := similarity.Nearest(m.itemSimilarity, col, n)
	out := make([]models.ScoredCandidate, 0, len(neighbors))
	for _, nb := range neighbors {
		out = append(out, models.ScoredCandidate{
			ItemID: m.itemIDs[nb.Index],
			Score:  nb.Score,
			Source: models.SourceCollaborative,
		})
	}
	return out, nil
}

// Version returns the id of the published model, or "" before training.
func (f *Filter) Version() string {
	if m := f.model.Load(); m != nil {
		return m.version
	}
	return ""
}

// HasUser reports whether userID was present at training time.
func (f *Filter) HasUser(userID string) bool {
	m := f.model.Load()
	if m == nil {
		return false
	}
	_, ok := m.userIndex[userID]
	return ok
}

// GetStats returns statistics about the published model
func (f *Filter) GetStats() map[string]any {
	stats := map[string]any{
		"rank":      f.config.Rank,
		"neighbors": f.config.Neighbors,
		"trained":   false,
	}

	m := f.model.Load()
	if m == nil {
		return stats
	}

	stats["trained"] = true
	stats["version"] = m.version
	stats["trained_at"] = m.trainedAt
	stats["users"] = len(m.userIDs)
	stats["items"] = len(m.itemIDs)
	return stats
}

// predict is the similarity-weighted average of the item's rating among
// neighbors who rated it, or 0 when none did.
func (m *model) predict(col int, neighbors []similarity.Neighbor) float64 {
	var weightedSum, similaritySum float64
	for _, nb := range neighbors {
		rating, ok := m.observed[nb.Index][col]
		if !ok {
			continue
		}
		weightedSum += nb.Score * rating
		similaritySum += math.Abs(nb.Score)
	}

	if similaritySum == 0 {
		return 0
	}

	predicted := weightedSum / similaritySum
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return 0
	}
	return predicted
}

func rank(candidates []models.ScoredCandidate, n int) []models.ScoredCandidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
