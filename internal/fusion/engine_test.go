package fusion

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/hybridrec/internal/collaborative"
	"github.com/temcen/hybridrec/internal/content"
	"github.com/temcen/hybridrec/internal/social"
	"github.com/temcen/hybridrec/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

// MockSource implements models.CandidateSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Candidates(ctx context.Context, req models.CandidateRequest) ([]models.ScoredCandidate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredCandidate), args.Error(1)
}

type recordingObserver struct {
	mu        sync.Mutex
	sources   map[models.Source]error
	fallbacks []models.Source
}

func (o *recordingObserver) ObserveSource(source models.Source, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sources == nil {
		o.sources = make(map[models.Source]error)
	}
	o.sources[source] = err
}

func (o *recordingObserver) ObserveFallback(source models.Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, source)
}

func cand(id string, score float64, src models.Source) models.ScoredCandidate {
	return models.ScoredCandidate{ItemID: id, Score: score, Source: src}
}

func TestEngine_FansOutWithDoubledCount(t *testing.T) {
	collab, cont, soc := &MockSource{}, &MockSource{}, &MockSource{}
	engine, err := NewEngine(Config{}, Sources{Collaborative: collab, Content: cont, Social: soc}, testLogger())
	require.NoError(t, err)

	req := models.CandidateRequest{
		UserID:  "u1",
		Profile: models.UserPreferenceProfile{ReadingHistory: []string{"read"}},
		N:       2,
	}
	sub := req
	sub.N = 4

	collab.On("Candidates", mock.Anything, sub).Return([]models.ScoredCandidate{
		cand("a", 5, models.SourceCollaborative),
		cand("read", 9, models.SourceCollaborative),
	}, nil)
	cont.On("Candidates", mock.Anything, sub).Return([]models.ScoredCandidate{
		cand("b", 1, models.SourceContentBased),
		cand("a", 0.4, models.SourceContentBased),
	}, nil)
	soc.On("Candidates", mock.Anything, sub).Return([]models.ScoredCandidate{
		cand("c", 1, models.SourceSocial),
	}, nil)

	observer := &recordingObserver{}
	engine.SetObserver(observer)

	result, err := engine.GetRecommendations(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 2)
	assert.False(t, result.CollaborativeFallback)

	assert.Equal(t, "a", result.Recommendations[0].ItemID)
	assert.InDelta(t, 0.4*5+0.35*0.4, result.Recommendations[0].Score, 1e-12)
	assert.Equal(t, "b", result.Recommendations[1].ItemID)
	assert.InDelta(t, 0.35, result.Recommendations[1].Score, 1e-12)
	for _, rec := range result.Recommendations {
		assert.NotEqual(t, "read", rec.ItemID)
		assert.Equal(t, models.SourceHybrid, rec.Source)
	}

	collab.AssertExpectations(t)
	cont.AssertExpectations(t)
	soc.AssertExpectations(t)
	assert.Len(t, observer.sources, 3)
	assert.Empty(t, observer.fallbacks)
}

func TestEngine_DefaultCount(t *testing.T) {
	collab, cont, soc := &MockSource{}, &MockSource{}, &MockSource{}
	engine, err := NewEngine(Config{}, Sources{Collaborative: collab, Content: cont, Social: soc}, testLogger())
	require.NoError(t, err)

	var items []models.ScoredCandidate
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		items = append(items, cand(id, 1, models.SourceContentBased))
	}

	expected := models.CandidateRequest{UserID: "u1", N: 2 * models.DefaultCount}
	collab.On("Candidates", mock.Anything, expected).Return([]models.ScoredCandidate{}, nil)
	cont.On("Candidates", mock.Anything, expected).Return(items, nil)
	soc.On("Candidates", mock.Anything, expected).Return([]models.ScoredCandidate{}, nil)

	result, err := engine.GetRecommendations(context.Background(), models.CandidateRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, result.Recommendations, models.DefaultCount)
	// All tied, so id order decides.
	assert.Equal(t, "a", result.Recommendations[0].ItemID)
	assert.Equal(t, "j", result.Recommendations[9].ItemID)

	_, err = engine.GetRecommendations(context.Background(), models.CandidateRequest{UserID: "u1", N: -1})
	assert.ErrorIs(t, err, models.ErrInvalidCount)
}

func TestEngine_UnknownUserFallsBack(t *testing.T) {
	collab, cont, soc := &MockSource{}, &MockSource{}, &MockSource{}
	engine, err := NewEngine(Config{}, Sources{Collaborative: collab, Content: cont, Social: soc}, testLogger())
	require.NoError(t, err)
	observer := &recordingObserver{}
	engine.SetObserver(observer)

	collab.On("Candidates", mock.Anything, mock.Anything).Return(nil, models.ErrUnknownUser)
	cont.On("Candidates", mock.Anything, mock.Anything).Return([]models.ScoredCandidate{cand("a", 0.4, models.SourceContentBased)}, nil)
	soc.On("Candidates", mock.Anything, mock.Anything).Return([]models.ScoredCandidate{cand("b", 1, models.SourceSocial)}, nil)

	result, err := engine.GetRecommendations(context.Background(), models.CandidateRequest{UserID: "ghost", N: 5})
	require.NoError(t, err)
	assert.True(t, result.CollaborativeFallback)
	require.Len(t, result.Recommendations, 2)
	assert.Equal(t, "b", result.Recommendations[0].ItemID)
	assert.Equal(t, "a", result.Recommendations[1].ItemID)
	assert.Equal(t, []models.Source{models.SourceCollaborative}, observer.fallbacks)
}

func TestEngine_OtherErrorsFail(t *testing.T) {
	tests := []struct {
		name   string
		failer string
		err    error
	}{
		{"untrained collaborative", "collaborative", models.ErrUntrainedModel},
		{"untrained content", "content", models.ErrUntrainedModel},
		{"social failure", "social", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := map[string]*MockSource{"collaborative": {}, "content": {}, "social": {}}
			for name, src := range sources {
				if name == tt.failer {
					src.On("Candidates", mock.Anything, mock.Anything).Return(nil, tt.err)
				} else {
					src.On("Candidates", mock.Anything, mock.Anything).Return([]models.ScoredCandidate{}, nil)
				}
			}

			engine, err := NewEngine(Config{}, Sources{
				Collaborative: sources["collaborative"],
				Content:       sources["content"],
				Social:        sources["social"],
			}, testLogger())
			require.NoError(t, err)

			_, err = engine.GetRecommendations(context.Background(), models.CandidateRequest{UserID: "u1", N: 3})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	src := &MockSource{}
	sources := Sources{Collaborative: src, Content: src, Social: src}

	_, err := NewEngine(Config{Weights: Weights{Collaborative: 0.5, Content: 0.5, Social: 0.5}}, sources, testLogger())
	assert.Error(t, err)

	_, err = NewEngine(Config{CandidateMultiplier: -1}, sources, testLogger())
	assert.Error(t, err)

	_, err = NewEngine(Config{}, Sources{Collaborative: src}, testLogger())
	assert.Error(t, err)

	engine, err := NewEngine(Config{Weights: Weights{Collaborative: 1}}, sources, testLogger())
	require.NoError(t, err)
	assert.Equal(t, Weights{Collaborative: 1}, engine.Weights())
}

// The end-to-end scenario: a user the collaborative model never saw still
// gets a ranking built from content and social scores.
func TestEngine_UnknownUserScenario(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	collab := collaborative.NewFilter(collaborative.Config{Rank: 1}, logger)
	require.NoError(t, collab.Train(ctx, []models.Rating{
		{UserID: "u1", ItemID: "b1", Rating: 5},
		{UserID: "u1", ItemID: "b2", Rating: 1},
		{UserID: "u2", ItemID: "b1", Rating: 4},
		{UserID: "u2", ItemID: "b3", Rating: 5},
	}))

	cont := content.NewFilter(content.Config{}, logger)
	require.NoError(t, cont.Train(ctx, []models.CatalogItem{
		{ItemID: "b1", Title: "Pride and Prejudice", Author: "Jane Austen", Genre: "Romance"},
		{ItemID: "b2", Title: "Outlander", Author: "Diana Gabaldon", Genre: "Romance"},
		{ItemID: "b3", Title: "Dracula", Author: "Bram Stoker", Genre: "Horror"},
	}))

	engine, err := NewEngine(Config{}, Sources{
		Collaborative: collab,
		Content:       cont,
		Social:        social.NewAdapter(cont, logger),
	}, logger)
	require.NoError(t, err)

	_, err = collab.Recommend("unknown_user", 5)
	require.ErrorIs(t, err, models.ErrUnknownUser)

	result, err := engine.GetRecommendations(ctx, models.CandidateRequest{
		UserID:  "unknown_user",
		Profile: models.UserPreferenceProfile{PreferredGenres: []string{"Romance"}},
		Social:  models.SocialProfile{"dark": 0.8},
		N:       5,
	})
	require.NoError(t, err)
	assert.True(t, result.CollaborativeFallback)
	require.Len(t, result.Recommendations, 3)

	want := map[string]float64{
		"b1": 0.35 * 0.4,
		"b2": 0.35 * 0.4,
		"b3": 0.25 * 0.8,
	}
	assert.Equal(t, "b3", result.Recommendations[0].ItemID)
	assert.Equal(t, "b1", result.Recommendations[1].ItemID)
	assert.Equal(t, "b2", result.Recommendations[2].ItemID)
	for _, rec := range result.Recommendations {
		assert.InDelta(t, want[rec.ItemID], rec.Score, 1e-12)
		assert.False(t, math.IsNaN(rec.Score))
	}
}
