package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/hybridrec/internal/fusion"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Recommendation.Fusion.Weights = fusion.DefaultWeights
	cfg.Recommendation.Collaborative.Rank = 50
	cfg.Recommendation.Content.MaxFeatures = 5000
	cfg.Training.RatingSource = "postgres"
	cfg.Training.Timeout = 10 * time.Minute
	return cfg
}

func weight(v float64) *float64 {
	return &v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, fusion.DefaultWeights, cfg.Recommendation.Fusion.Weights)
	assert.Equal(t, 10, cfg.Recommendation.Fusion.DefaultCount)
	assert.Equal(t, 2, cfg.Recommendation.Fusion.CandidateMultiplier)
	assert.Equal(t, 5000, cfg.Recommendation.Content.MaxFeatures)
	require.NotNil(t, cfg.Recommendation.Content.GenreWeight)
	assert.Equal(t, 0.4, *cfg.Recommendation.Content.GenreWeight)
	assert.Equal(t, "postgres", cfg.Training.RatingSource)
	assert.Equal(t, 15*time.Minute, cfg.Recommendation.Caching.RecommendationsTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"neo4j source", func(c *Config) { c.Training.RatingSource = "neo4j" }, ""},
		{
			"weights not summing to one",
			func(c *Config) { c.Recommendation.Fusion.Weights.Social = 0.5 },
			"recommendation.fusion.weights",
		},
		{
			"negative weight",
			func(c *Config) {
				c.Recommendation.Fusion.Weights = fusion.Weights{Collaborative: 1.2, Content: -0.2}
			},
			"recommendation.fusion.weights",
		},
		{"unknown rating source", func(c *Config) { c.Training.RatingSource = "csv" }, "rating_source"},
		{"negative rank", func(c *Config) { c.Recommendation.Collaborative.Rank = -1 }, "rank"},
		{"negative neighbors", func(c *Config) { c.Recommendation.Collaborative.Neighbors = -1 }, "neighbors"},
		{"negative max features", func(c *Config) { c.Recommendation.Content.MaxFeatures = -1 }, "max_features"},
		{"zero genre weight", func(c *Config) { c.Recommendation.Content.GenreWeight = weight(0) }, ""},
		{
			"negative author weight",
			func(c *Config) { c.Recommendation.Content.AuthorWeight = weight(-0.1) },
			"recommendation.content.author_weight",
		},
		{
			"NaN similarity weight",
			func(c *Config) { c.Recommendation.Content.SimilarityWeight = weight(math.NaN()) },
			"recommendation.content.similarity_weight",
		},
		{"zero timeout", func(c *Config) { c.Training.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
