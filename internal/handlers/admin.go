package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles model management requests
type AdminHandler struct {
	trainer TrainingService
	models  map[string]StatsProvider
	logger  *logrus.Logger
}

func NewAdminHandler(trainer TrainingService, models map[string]StatsProvider, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		trainer: trainer,
		models:  models,
		logger:  logger,
	}
}

type trainRequest struct {
	Reason string `json:"reason"`
}

// Train handles POST /api/v1/admin/train. It blocks until the run finishes.
func (h *AdminHandler) Train(c *gin.Context) {
	req := trainRequest{Reason: "admin"}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_REQUEST_BODY",
					"message": "Invalid request body: " + err.Error(),
				},
			})
			return
		}
	}

	report, err := h.trainer.Train(c.Request.Context(), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"reason":   req.Reason,
		"duration": report.Duration,
	}).Info("Training triggered via admin API")

	c.JSON(http.StatusOK, report)
}

// Models handles GET /api/v1/admin/models.
func (h *AdminHandler) Models(c *gin.Context) {
	stats := make(gin.H, len(h.models))
	for name, m := range h.models {
		stats[name] = m.GetStats()
	}
	c.JSON(http.StatusOK, gin.H{"models": stats})
}
