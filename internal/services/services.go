package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/internal/cache"
	"github.com/temcen/hybridrec/internal/collaborative"
	"github.com/temcen/hybridrec/internal/config"
	"github.com/temcen/hybridrec/internal/content"
	"github.com/temcen/hybridrec/internal/database"
	"github.com/temcen/hybridrec/internal/fusion"
	"github.com/temcen/hybridrec/internal/messaging"
	"github.com/temcen/hybridrec/internal/social"
)

type Services struct {
	Collaborative *collaborative.Filter
	Content       *content.Filter
	Social        *social.Adapter
	Engine        *fusion.Engine
	Recommender   *Recommender
	Trainer       *Trainer
	Health        *HealthService
	Metrics       *Metrics
	Cache         *cache.Cache
	MessageBus    *messaging.MessageBus
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	metrics := NewMetrics(prometheus.DefaultRegisterer, logger)
	health := NewHealthService(prometheus.DefaultRegisterer, logger)

	// Initialize filters
	collab := collaborative.NewFilter(cfg.Recommendation.Collaborative, logger)
	cont := content.NewFilter(cfg.Recommendation.Content, logger)
	adapter := social.NewAdapter(cont, logger)

	engine, err := fusion.NewEngine(cfg.Recommendation.Fusion, fusion.Sources{
		Collaborative: collab,
		Content:       cont,
		Social:        adapter,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fusion engine: %w", err)
	}
	engine.SetObserver(metrics)

	// Initialize training data sources
	var ratings database.RatingSource = database.NewRatingStore(db.PG)
	if cfg.Training.RatingSource == "neo4j" {
		ratings = database.NewGraphRatingStore(db.Neo4j)
	}
	catalog := database.NewCatalogStore(db.PG)

	trainer := NewTrainer(ratings, catalog, collab, cont, metrics, cfg.Training.Timeout, logger)
	recommender := NewRecommender(engine, collab, cont, metrics, logger)

	health.AddCritical("postgres", db.PG.Ping)
	health.AddModel("collaborative", collab)
	health.AddModel("content", cont)

	svc := &Services{
		Collaborative: collab,
		Content:       cont,
		Social:        adapter,
		Engine:        engine,
		Recommender:   recommender,
		Trainer:       trainer,
		Health:        health,
		Metrics:       metrics,
	}

	if db.Redis != nil {
		svc.Cache = cache.NewCache(db.Redis, cfg.Recommendation.Caching.RecommendationsTTL, logger)
		recommender.SetCache(svc.Cache)
		trainer.SetCache(svc.Cache)
		health.AddNonCritical("redis", svc.Cache.Ping)
	}

	if db.Neo4j != nil {
		health.AddNonCritical("neo4j", db.Neo4j.VerifyConnectivity)
	}

	// Messaging is optional; without brokers the service still trains on demand
	if len(cfg.Kafka.Brokers) > 0 {
		bus, err := messaging.NewMessageBus(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize message bus: %w", err)
		}
		svc.MessageBus = bus
		trainer.SetPublisher(bus)
	}

	return svc, nil
}

// ListenForRetrain consumes retrain requests until ctx is done. It returns
// immediately when messaging is disabled.
func (s *Services) ListenForRetrain(ctx context.Context) error {
	if s.MessageBus == nil {
		return nil
	}
	return s.MessageBus.ListenForRetrain(ctx, s.Trainer)
}

func (s *Services) Close() error {
	if s.MessageBus != nil {
		return s.MessageBus.Close()
	}
	return nil
}
