package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/hybridrec/internal/collaborative"
	"github.com/temcen/hybridrec/internal/content"
	"github.com/temcen/hybridrec/internal/database"
	"github.com/temcen/hybridrec/internal/messaging"
	"github.com/temcen/hybridrec/pkg/models"
)

// EventPublisher announces freshly published models.
type EventPublisher interface {
	PublishModelTrained(ctx context.Context, event messaging.ModelTrainedEvent) error
}

// TrainReport summarizes a completed training run.
type TrainReport struct {
	CollaborativeVersion string        `json:"collaborative_version"`
	ContentVersion       string        `json:"content_version"`
	Users                int           `json:"users"`
	Items                int           `json:"items"`
	Ratings              int           `json:"ratings"`
	Duration             time.Duration `json:"duration"`
	Reason               string        `json:"reason"`
}

// Trainer loads training data and rebuilds both models. Only one run may be
// active at a time; overlapping requests get models.ErrTrainingInProgress.
type Trainer struct {
	ratings       database.RatingSource
	catalog       database.CatalogSource
	collaborative *collaborative.Filter
	content       *content.Filter
	publisher     EventPublisher
	cache         ResultCache
	metrics       *Metrics
	timeout       time.Duration
	logger        *logrus.Logger

	running atomic.Bool
}

func NewTrainer(
	ratings database.RatingSource,
	catalog database.CatalogSource,
	collab *collaborative.Filter,
	cont *content.Filter,
	metrics *Metrics,
	timeout time.Duration,
	logger *logrus.Logger,
) *Trainer {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	return &Trainer{
		ratings:       ratings,
		catalog:       catalog,
		collaborative: collab,
		content:       cont,
		metrics:       metrics,
		timeout:       timeout,
		logger:        logger,
	}
}

// SetPublisher enables model-trained events.
func (t *Trainer) SetPublisher(p EventPublisher) {
	t.publisher = p
}

// SetCache enables cache invalidation after each published model.
func (t *Trainer) SetCache(c ResultCache) {
	t.cache = c
}

// Train loads ratings and the catalog, then trains the collaborative and
// content filters in parallel. Each filter publishes its own snapshot, so if
// one of them fails the other may already serve its new model.
func (t *Trainer) Train(ctx context.Context, reason string) (*TrainReport, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, models.ErrTrainingInProgress
	}
	defer t.running.Store(false)

	start := time.Now()
	report, err := t.train(ctx, reason)
	t.metrics.ObserveTraining(time.Since(start), err)

	if err != nil {
		t.logger.WithError(err).WithField("reason", reason).Error("Model training failed")
		return nil, err
	}

	report.Duration = time.Since(start)
	t.metrics.SetModelSize(report.Users, report.Items, report.Ratings)
	t.afterPublish(ctx, report)

	t.logger.WithFields(logrus.Fields{
		"reason":                reason,
		"collaborative_version": report.CollaborativeVersion,
		"content_version":       report.ContentVersion,
		"duration":              report.Duration,
	}).Info("Models trained and published")

	return report, nil
}

// Retrain implements messaging.Retrainer.
func (t *Trainer) Retrain(ctx context.Context, reason string) error {
	_, err := t.Train(ctx, reason)
	return err
}

// Running reports whether a training run is in progress.
func (t *Trainer) Running() bool {
	return t.running.Load()
}

func (t *Trainer) train(ctx context.Context, reason string) (*TrainReport, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var (
		ratings []models.Rating
		items   []models.CatalogItem
	)

	load, loadCtx := errgroup.WithContext(ctx)
	load.Go(func() error {
		var err error
		ratings, err = t.ratings.LoadRatings(loadCtx)
		return err
	})
	load.Go(func() error {
		var err error
		items, err = t.catalog.LoadCatalog(loadCtx)
		return err
	})
	if err := load.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}

	fit, fitCtx := errgroup.WithContext(ctx)
	fit.Go(func() error {
		if err := t.collaborative.Train(fitCtx, ratings); err != nil {
			return fmt.Errorf("collaborative: %w", err)
		}
		return nil
	})
	fit.Go(func() error {
		if err := t.content.Train(fitCtx, items); err != nil {
			return fmt.Errorf("content: %w", err)
		}
		return nil
	})
	if err := fit.Wait(); err != nil {
		return nil, err
	}

	users := make(map[string]struct{})
	for _, r := range ratings {
		users[r.UserID] = struct{}{}
	}

	return &TrainReport{
		CollaborativeVersion: t.collaborative.Version(),
		ContentVersion:       t.content.Version(),
		Users:                len(users),
		Items:                len(items),
		Ratings:              len(ratings),
		Reason:               reason,
	}, nil
}

// afterPublish runs the side effects of a new model. Failures are logged
// only; the models are already serving.
func (t *Trainer) afterPublish(ctx context.Context, report *TrainReport) {
	if t.cache != nil {
		if err := t.cache.Invalidate(ctx); err != nil {
			t.logger.WithError(err).Warn("Failed to invalidate recommendation cache")
		}
	}

	if t.publisher != nil {
		event := messaging.ModelTrainedEvent{
			EventID:              uuid.New(),
			CollaborativeVersion: report.CollaborativeVersion,
			ContentVersion:       report.ContentVersion,
			Users:                report.Users,
			Items:                report.Items,
			Ratings:              report.Ratings,
			Duration:             report.Duration,
			TrainedAt:            time.Now(),
		}
		if err := t.publisher.PublishModelTrained(ctx, event); err != nil {
			t.logger.WithError(err).Warn("Failed to publish model trained event")
		}
	}
}
