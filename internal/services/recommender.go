package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/internal/cache"
	"github.com/temcen/hybridrec/internal/fusion"
	"github.com/temcen/hybridrec/internal/social"
	"github.com/temcen/hybridrec/pkg/models"
)

// ResultCache stores fused rankings between model publications.
type ResultCache interface {
	Get(ctx context.Context, key string) (*cache.Entry, error)
	Set(ctx context.Context, key string, entry *cache.Entry) error
	Invalidate(ctx context.Context) error
}

// ModelInfo reports the version of a published model, "" before training.
type ModelInfo interface {
	Version() string
}

// ItemSimilarity finds items close to a seed item.
type ItemSimilarity interface {
	ModelInfo
	SimilarItems(itemID string, n int) ([]models.ScoredCandidate, error)
}

// Recommender serves fused rankings with an optional result cache in front.
type Recommender struct {
	engine        *fusion.Engine
	collaborative ItemSimilarity
	content       ModelInfo
	cache         ResultCache
	metrics       *Metrics
	logger        *logrus.Logger
}

func NewRecommender(
	engine *fusion.Engine,
	collab ItemSimilarity,
	cont ModelInfo,
	metrics *Metrics,
	logger *logrus.Logger,
) *Recommender {
	return &Recommender{
		engine:        engine,
		collaborative: collab,
		content:       cont,
		metrics:       metrics,
		logger:        logger,
	}
}

// SetCache puts a result cache in front of the fusion engine.
func (r *Recommender) SetCache(c ResultCache) {
	r.cache = c
}

// ModelVersion combines both model versions; it changes whenever either
// model is retrained.
func (r *Recommender) ModelVersion() string {
	return r.collaborative.Version() + "+" + r.content.Version()
}

// Recommend validates the request and returns the fused ranking for it.
func (r *Recommender) Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.RecommendationResponse, error) {
	start := time.Now()
	resp, err := r.recommend(ctx, req)
	r.metrics.ObserveRecommendation(time.Since(start), err)
	return resp, err
}

func (r *Recommender) recommend(ctx context.Context, req *models.RecommendationRequest) (*models.RecommendationResponse, error) {
	if err := models.ValidateRequest(req); err != nil {
		return nil, err
	}

	var signals models.SocialProfile
	if len(req.Social) > 0 {
		parsed, err := social.ParseProfile(req.Social)
		if err != nil {
			return nil, err
		}
		signals = parsed
	}

	if r.collaborative.Version() == "" || r.content.Version() == "" {
		return nil, models.ErrUntrainedModel
	}

	n := req.Count
	if n == 0 {
		n = models.DefaultCount
	}
	candidateReq := models.CandidateRequest{
		UserID:  req.UserID,
		Profile: req.Profile,
		Social:  signals,
		N:       n,
	}

	version := r.ModelVersion()
	resp := &models.RecommendationResponse{
		RequestID:    uuid.NewString(),
		UserID:       req.UserID,
		ModelVersion: version,
		GeneratedAt:  time.Now(),
	}

	key, entry := r.lookup(ctx, candidateReq, version)
	if entry != nil {
		resp.Recommendations = entry.Recommendations
		resp.CollabFallback = entry.CollabFallback
		resp.CacheHit = true
		return resp, nil
	}

	result, err := r.engine.GetRecommendations(ctx, candidateReq)
	if err != nil {
		return nil, err
	}
	resp.Recommendations = result.Recommendations
	resp.CollabFallback = result.CollaborativeFallback

	if key != "" {
		stored := &cache.Entry{
			Recommendations: result.Recommendations,
			CollabFallback:  result.CollaborativeFallback,
			ModelVersion:    version,
		}
		if err := r.cache.Set(ctx, key, stored); err != nil {
			r.logger.WithError(err).Warn("Failed to cache recommendations")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"request_id": resp.RequestID,
		"user_id":    req.UserID,
		"count":      len(resp.Recommendations),
		"fallback":   resp.CollabFallback,
	}).Debug("Recommendations generated")

	return resp, nil
}

// lookup returns the cache key for the request and the cached entry, if any.
// Cache failures degrade to computing the ranking.
func (r *Recommender) lookup(ctx context.Context, req models.CandidateRequest, version string) (string, *cache.Entry) {
	if r.cache == nil {
		return "", nil
	}

	key, err := cache.Key(req, version)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to build cache key")
		return "", nil
	}

	entry, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.metrics.ObserveCache("error")
		r.logger.WithError(err).Warn("Failed to read recommendation cache")
		return key, nil
	case entry == nil || entry.ModelVersion != version:
		r.metrics.ObserveCache("miss")
		return key, nil
	}

	r.metrics.ObserveCache("hit")
	return key, entry
}

// SimilarItems returns items whose collaborative factors are closest to itemID.
func (r *Recommender) SimilarItems(_ context.Context, itemID string, n int) (*models.SimilarItemResponse, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}
	if n == 0 {
		n = models.DefaultCount
	}

	similar, err := r.collaborative.SimilarItems(itemID, n)
	if err != nil {
		return nil, err
	}

	return &models.SimilarItemResponse{
		SeedItemID:   itemID,
		Similar:      similar,
		ModelVersion: r.collaborative.Version(),
	}, nil
}
