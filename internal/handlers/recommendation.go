package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/hybridrec/pkg/models"
)

type RecommendationHandler struct {
	recommender RecommendationService
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender RecommendationService, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger,
	}
}

// Recommend handles POST /api/v1/recommendations.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid request body: " + err.Error(),
			},
		})
		return
	}

	resp, err := h.recommender.Recommend(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Similar handles GET /api/v1/items/:id/similar?count=N.
func (h *RecommendationHandler) Similar(c *gin.Context) {
	itemID := c.Param("id")

	count := 0
	if countStr := c.Query("count"); countStr != "" {
		parsed, err := strconv.Atoi(countStr)
		if err != nil || parsed < 0 || parsed > 100 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_COUNT",
					"message": "count must be an integer between 0 and 100",
				},
			})
			return
		}
		count = parsed
	}

	resp, err := h.recommender.SimilarItems(c.Request.Context(), itemID, count)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
