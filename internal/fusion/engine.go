// Package fusion blends the collaborative, content and social candidate lists
// into a single ranking.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/hybridrec/pkg/models"
)

// Config contains configuration for the fusion engine
type Config struct {
	Weights             Weights `mapstructure:"weights" json:"weights"`
	DefaultCount        int     `mapstructure:"default_count" json:"default_count"`
	CandidateMultiplier int     `mapstructure:"candidate_multiplier" json:"candidate_multiplier"`
}

// Sources are the three scorers the engine fans out to.
type Sources struct {
	Collaborative models.CandidateSource
	Content       models.CandidateSource
	Social        models.CandidateSource
}

// Observer receives per-source timings and fallback notifications.
type Observer interface {
	ObserveSource(source models.Source, elapsed time.Duration, err error)
	ObserveFallback(source models.Source)
}

type noopObserver struct{}

func (noopObserver) ObserveSource(models.Source, time.Duration, error) {}
func (noopObserver) ObserveFallback(models.Source)                     {}

// Result is a fused ranking plus how it was produced.
type Result struct {
	Recommendations       []models.ScoredCandidate
	CollaborativeFallback bool
}

// Engine orchestrates the scorers and blends their output.
type Engine struct {
	config   Config
	sources  Sources
	logger   *logrus.Logger
	observer Observer
}

// NewEngine creates a fusion engine. Custom weights that do not validate are
// rejected so a misconfigured service fails at startup.
func NewEngine(config Config, sources Sources, logger *logrus.Logger) (*Engine, error) {
	if config.Weights == (Weights{}) {
		config.Weights = DefaultWeights
	}
	if config.DefaultCount == 0 {
		config.DefaultCount = models.DefaultCount
	}
	if config.CandidateMultiplier == 0 {
		config.CandidateMultiplier = 2
	}

	if err := config.Weights.Validate(); err != nil {
		return nil, err
	}
	if config.DefaultCount < 0 || config.CandidateMultiplier < 1 {
		return nil, fmt.Errorf("invalid fusion config: default_count %d, candidate_multiplier %d",
			config.DefaultCount, config.CandidateMultiplier)
	}
	if sources.Collaborative == nil || sources.Content == nil || sources.Social == nil {
		return nil, errors.New("fusion engine requires collaborative, content and social sources")
	}

	return &Engine{
		config:   config,
		sources:  sources,
		logger:   logger,
		observer: noopObserver{},
	}, nil
}

// SetObserver installs an observer for source timings and fallbacks.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	e.observer = o
}

// Weights returns the blend coefficients in use.
func (e *Engine) Weights() Weights {
	return e.config.Weights
}

// GetRecommendations asks every scorer for extra candidates concurrently,
// blends them and returns the top req.N items outside the reading history.
// A user unknown to the collaborative model falls back to content and social
// scores only.
func (e *Engine) GetRecommendations(ctx context.Context, req models.CandidateRequest) (*Result, error) {
	n := req.N
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidCount, n)
	}
	if n == 0 {
		n = e.config.DefaultCount
	}

	sub := req
	sub.N = n * e.config.CandidateMultiplier

	var (
		collaborative, content, social []models.ScoredCandidate
		fallback                       bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := e.fetch(gctx, models.SourceCollaborative, e.sources.Collaborative, sub)
		if errors.Is(err, models.ErrUnknownUser) {
			fallback = true
			return nil
		}
		collaborative = list
		return err
	})
	g.Go(func() error {
		list, err := e.fetch(gctx, models.SourceContentBased, e.sources.Content, sub)
		content = list
		return err
	})
	g.Go(func() error {
		list, err := e.fetch(gctx, models.SourceSocial, e.sources.Social, sub)
		social = list
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if fallback {
		e.observer.ObserveFallback(models.SourceCollaborative)
		e.logger.WithFields(logrus.Fields{
			"user_id": req.UserID,
		}).Info("Unknown user for collaborative model, using content and social scores only")
	}

	history := req.Profile.HistorySet()
	recs := e.config.Weights.Combine(
		withoutHistory(collaborative, history),
		withoutHistory(content, history),
		withoutHistory(social, history),
		n,
	)

	e.logger.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"requested":     n,
		"collaborative": len(collaborative),
		"content":       len(content),
		"social":        len(social),
		"returned":      len(recs),
	}).Debug("Recommendations fused")

	return &Result{
		Recommendations:       recs,
		CollaborativeFallback: fallback,
	}, nil
}

func (e *Engine) fetch(ctx context.Context, name models.Source, src models.CandidateSource, req models.CandidateRequest) ([]models.ScoredCandidate, error) {
	start := time.Now()
	list, err := src.Candidates(ctx, req)
	e.observer.ObserveSource(name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s candidates: %w", name, err)
	}
	return list, nil
}

func withoutHistory(list []models.ScoredCandidate, history map[string]struct{}) []models.ScoredCandidate {
	if len(history) == 0 {
		return list
	}
	out := make([]models.ScoredCandidate, 0, len(list))
	for _, c := range list {
		if _, read := history[c.ItemID]; !read {
			out = append(out, c)
		}
	}
	return out
}
