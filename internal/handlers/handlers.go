package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/internal/services"
	"github.com/temcen/hybridrec/pkg/models"
)

// RecommendationService is the part of services.Recommender the handlers use.
type RecommendationService interface {
	Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.RecommendationResponse, error)
	SimilarItems(ctx context.Context, itemID string, n int) (*models.SimilarItemResponse, error)
}

// TrainingService is the part of services.Trainer the handlers use.
type TrainingService interface {
	Train(ctx context.Context, reason string) (*services.TrainReport, error)
}

// HealthChecker reports service health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) *services.HealthStatus
}

// StatsProvider exposes model statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Admin          *AdminHandler
}

func New(logger *logrus.Logger, svc *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, svc.Health),
		Recommendation: NewRecommendationHandler(svc.Recommender, logger),
		Admin: NewAdminHandler(svc.Trainer, map[string]StatsProvider{
			"collaborative": svc.Collaborative,
			"content":       svc.Content,
		}, logger),
	}
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := "Internal server error"

	switch {
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidCount),
		errors.Is(err, models.ErrInvalidRank):
		status, code, message = http.StatusBadRequest, "INVALID_REQUEST", err.Error()
	case errors.Is(err, models.ErrUnknownUser):
		status, code, message = http.StatusNotFound, "UNKNOWN_USER", err.Error()
	case errors.Is(err, models.ErrUnknownItem):
		status, code, message = http.StatusNotFound, "UNKNOWN_ITEM", err.Error()
	case errors.Is(err, models.ErrUntrainedModel):
		status, code, message = http.StatusServiceUnavailable, "MODEL_NOT_READY", "Models have not been trained yet"
	case errors.Is(err, models.ErrTrainingInProgress):
		status, code, message = http.StatusConflict, "TRAINING_IN_PROGRESS", err.Error()
	default:
		logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
