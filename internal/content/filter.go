// Package content scores catalog items against a reader's stated preferences
// and reading history using TF-IDF text similarity.
package content

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

// Config contains configuration for the content filter. Unset weights take
// the defaults; an explicit 0 disables that signal.
type Config struct {
	MaxFeatures      int      `mapstructure:"max_features" json:"max_features"`
	GenreWeight      *float64 `mapstructure:"genre_weight" json:"genre_weight,omitempty"`
	AuthorWeight     *float64 `mapstructure:"author_weight" json:"author_weight,omitempty"`
	SimilarityWeight *float64 `mapstructure:"similarity_weight" json:"similarity_weight,omitempty"`
}

// Validate rejects negative weights.
func (c Config) Validate() error {
	named := []struct {
		name string
		w    *float64
	}{
		{"genre_weight", c.GenreWeight},
		{"author_weight", c.AuthorWeight},
		{"similarity_weight", c.SimilarityWeight},
	}
	for _, n := range named {
		if n.w != nil && (*n.w < 0 || math.IsNaN(*n.w)) {
			return fmt.Errorf("%s must be a non-negative number, got %v", n.name, *n.w)
		}
	}
	return nil
}

type weights struct {
	genre      float64
	author     float64
	similarity float64
}

// Filter ranks catalog items by attribute matches and text similarity.
type Filter struct {
	config  Config
	logger  *logrus.Logger
	weights weights
	model   atomic.Pointer[model]
	trainMu sync.Mutex
}

type model struct {
	version   string
	trainedAt time.Time

	items      []models.CatalogItem
	itemIndex  map[string]int
	genres     [][]string
	authors    []string
	vocabulary []string

	// similarity is item x item, symmetric, in catalog order.
	similarity *mat.Dense
}

// NewFilter creates a new content filter
func NewFilter(config Config, logger *logrus.Logger) *Filter {
	if config.MaxFeatures == 0 {
		config.MaxFeatures = 5000
	}

	return &Filter{
		config: config,
		logger: logger,
		weights: weights{
			genre:      weightOr(config.GenreWeight, 0.4),
			author:     weightOr(config.AuthorWeight, 0.3),
			similarity: weightOr(config.SimilarityWeight, 0.3),
		},
	}
}

func weightOr(w *float64, def float64) float64 {
	if w == nil {
		return def
	}
	return *w
}

// Train vectorizes the catalog and publishes the item similarity model.
// A failed or cancelled run leaves the previously published model in place.
func (f *Filter) Train(ctx context.Context, items []models.CatalogItem) error {
	f.trainMu.Lock()
	defer f.trainMu.Unlock()

	start := time.Now()

	if err := models.ValidateCatalog(items); err != nil {
		return err
	}

	m := &model{
		items:     make([]models.CatalogItem, len(items)),
		itemIndex: make(map[string]int, len(items)),
		genres:    make([][]string, len(items)),
		authors:   make([]string, len(items)),
	}
	copy(m.items, items)
	sort.Slice(m.items, func(i, j int) bool { return m.items[i].ItemID < m.items[j].ItemID })

	docs := make([]string, len(m.items))
	for i, item := range m.items {
		m.itemIndex[item.ItemID] = i
		m.genres[i] = genreKeys(item.Genre)
		m.authors[i] = models.NormalizeKey(item.Author)
		docs[i] = document(item.Title, item.Author, item.Genre, item.Description)
	}

	vocab, tfidf := vectorizer{maxFeatures: f.config.MaxFeatures}.fitTransform(docs)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training cancelled after vectorization: %w", err)
	}

	m.vocabulary = vocab
	if tfidf == nil {
		m.similarity = mat.NewDense(len(m.items), len(m.items), nil)
	} else {
		m.similarity = similarity.Matrix(tfidf)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("training cancelled after similarity computation: %w", err)
	}

	m.version = uuid.NewString()
	m.trainedAt = time.Now()
	f.model.Store(m)

	f.logger.WithFields(logrus.Fields{
		"version":    m.version,
		"items":      len(m.items),
		"vocabulary": len(vocab),
		"duration":   time.Since(start),
	}).Info("Content model trained")

	return nil
}

// Recommend scores every item outside the reading history and returns the n best.
func (f *Filter) Recommend(profile models.UserPreferenceProfile, n int) ([]models.ScoredCandidate, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}

	m := f.model.Load()
	if m == nil {
		return nil, models.ErrUntrainedModel
	}
	if n == 0 {
		return []models.ScoredCandidate{}, nil
	}

	genres := models.KeySet(profile.PreferredGenres)
	authors := models.KeySet(profile.FavoriteAuthors)
	history := profile.HistorySet()

	// Only history items the model knows about contribute to text similarity.
	var known []int
	for _, id := range profile.ReadingHistory {
		if idx, ok := m.itemIndex[id]; ok {
			known = append(known, idx)
		}
	}

	candidates := make([]models.ScoredCandidate, 0, len(m.items))
	for i, item := range m.items {
		if _, read := history[item.ItemID]; read {
			continue
		}

		var score float64
		if matchesGenre(m.genres[i], genres) {
			score += f.weights.genre
		}
		if _, ok := authors[m.authors[i]]; ok && m.authors[i] != "" {
			score += f.weights.author
		}
		score += f.weights.similarity * m.maxSimilarity(i, known)

		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = 0
		}
		candidates = append(candidates, models.ScoredCandidate{
			ItemID: item.ItemID,
			Score:  score,
			Source: models.SourceContentBased,
		})
	}

	return rank(candidates, n), nil
}

// Candidates adapts Recommend to the common scorer signature.
func (f *Filter) Candidates(_ context.Context, req models.CandidateRequest) ([]models.ScoredCandidate, error) {
	return f.Recommend(req.Profile, req.N)
}

// Items returns the catalog the published model was trained on, ordered by id.
func (f *Filter) Items() []models.CatalogItem {
	m := f.model.Load()
	if m == nil {
		return nil
	}
	out := make([]models.CatalogItem, len(m.items))
	copy(out, m.items)
	return out
}

// Similarity returns the text similarity of two trained items.
func (f *Filter) Similarity(a, b string) (float64, error) {
	m := f.model.Load()
	if m == nil {
		return 0, models.ErrUntrainedModel
	}

	i, ok := m.itemIndex[a]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownItem, a)
	}
	j, ok := m.itemIndex[b]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrUnknownItem, b)
	}
	return m.similarity.At(i, j), nil
}

// Version returns the id of the published model, or "" before training.
func (f *Filter) Version() string {
	if m := f.model.Load(); m != nil {
		return m.version
	}
	return ""
}

// GetStats returns statistics about the published model
func (f *Filter) GetStats() map[string]any {
	stats := map[string]any{
		"max_features": f.config.MaxFeatures,
		"trained":      false,
	}

	m := f.model.Load()
	if m == nil {
		return stats
	}

	stats["trained"] = true
	stats["version"] = m.version
	stats["trained_at"] = m.trainedAt
	stats["items"] = len(m.items)
	stats["vocabulary"] = len(m.vocabulary)
	return stats
}

// maxSimilarity is the highest similarity between item i and any history item.
func (m *model) maxSimilarity(i int, history []int) float64 {
	if len(history) == 0 {
		return 0
	}

	best := math.Inf(-1)
	for _, h := range history {
		if s := m.similarity.At(i, h); s > best {
			best = s
		}
	}
	if math.IsInf(best, 0) {
		return 0
	}
	return best
}

// genreKeys returns the whole normalized genre followed by its individual tags.
func genreKeys(genre string) []string {
	whole := models.NormalizeKey(genre)
	if whole == "" {
		return nil
	}
	keys := []string{whole}
	for _, tag := range models.GenreTags(genre) {
		if tag != whole {
			keys = append(keys, tag)
		}
	}
	return keys
}

func matchesGenre(keys []string, preferred map[string]struct{}) bool {
	for _, k := range keys {
		if _, ok := preferred[k]; ok {
			return true
		}
	}
	return false
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
