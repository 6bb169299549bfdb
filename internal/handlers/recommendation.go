package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/services"
	"github.com/caredeck/medrank/pkg/models"
)

type RecommendationHandler struct {
	orchestrator *services.RecommendationOrchestrator
	validate     *validator.Validate
	logger       *logrus.Logger
}

func NewRecommendationHandler(
	orchestrator *services.RecommendationOrchestrator,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Get serves the auto-selecting path with optional query-parameter filters.
func (h *RecommendationHandler) Get(c *gin.Context) {
	patientID, ok := h.patientID(c)
	if !ok {
		return
	}

	req := &models.RecommendationRequest{
		PatientID:     patientID,
		TopCount:      h.countParam(c, "top_count"),
		OnlyAvailable: c.DefaultQuery("only_available", "true") == "true",
	}

	if v := c.Query("specialty_id"); v != "" {
		if specialtyID, err := strconv.ParseInt(v, 10, 64); err == nil && specialtyID > 0 {
			req.PreferredSpecialtyID = &specialtyID
		}
	}
	if v := c.Query("min_rating"); v != "" {
		if minRating, err := strconv.ParseFloat(v, 64); err == nil {
			req.MinRating = &minRating
		}
	}
	if v := c.Query("min_experience"); v != "" {
		if minExp, err := strconv.Atoi(v); err == nil {
			req.MinExperienceYears = &minExp
		}
	}
	if v := c.Query("max_experience"); v != "" {
		if maxExp, err := strconv.Atoi(v); err == nil {
			req.MaxExperienceYears = &maxExp
		}
	}

	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.orchestrator.GetRecommendations(c.Request.Context(), req)
	h.respond(c, req.PatientID, result, err)
}

// GetQuick serves the auto-selecting path with default request fields only.
func (h *RecommendationHandler) GetQuick(c *gin.Context) {
	patientID, ok := h.patientID(c)
	if !ok {
		return
	}

	req := &models.RecommendationRequest{
		PatientID:     patientID,
		OnlyAvailable: true,
	}

	result, err := h.orchestrator.GetRecommendations(c.Request.Context(), req)
	h.respond(c, patientID, result, err)
}

// GetFiltered serves the auto-selecting path with a JSON request body. The
// body is schema-validated by middleware before it reaches this handler.
func (h *RecommendationHandler) GetFiltered(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid request body format",
			},
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.orchestrator.GetRecommendations(c.Request.Context(), &req)
	h.respond(c, req.PatientID, result, err)
}

// GetContentBased exposes the content-based strategy directly.
func (h *RecommendationHandler) GetContentBased(c *gin.Context) {
	patientID, ok := h.patientID(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.GetContentBasedRecommendations(
		c.Request.Context(), patientID, h.countParam(c, "count"))
	h.respond(c, patientID, result, err)
}

// GetPopularityBased exposes the popularity strategy directly.
func (h *RecommendationHandler) GetPopularityBased(c *gin.Context) {
	patientID, ok := h.patientID(c)
	if !ok {
		return
	}

	result, err := h.orchestrator.GetPopularityBasedRecommendations(
		c.Request.Context(), patientID, h.countParam(c, "count"))
	h.respond(c, patientID, result, err)
}

// GetSpecialtyBased lists ranked doctors of one specialty.
func (h *RecommendationHandler) GetSpecialtyBased(c *gin.Context) {
	patientID, ok := h.patientID(c)
	if !ok {
		return
	}

	specialtyID, err := strconv.ParseInt(c.Param("specialtyId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_SPECIALTY_ID",
				"message": "Invalid specialty ID format",
			},
		})
		return
	}

	result, svcErr := h.orchestrator.GetSpecialtyBasedRecommendations(
		c.Request.Context(), patientID, specialtyID, h.countParam(c, "count"))
	h.respond(c, patientID, result, svcErr)
}

func (h *RecommendationHandler) patientID(c *gin.Context) (int64, bool) {
	patientID, err := strconv.ParseInt(c.Param("patientId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_PATIENT_ID",
				"message": "Invalid patient ID format",
			},
		})
		return 0, false
	}
	return patientID, true
}

func (h *RecommendationHandler) countParam(c *gin.Context, name string) int {
	if v := c.Query(name); v != "" {
		if count, err := strconv.Atoi(v); err == nil && count > 0 {
			return count
		}
	}
	return 0 // orchestrator applies the configured default
}

func (h *RecommendationHandler) respond(c *gin.Context, patientID int64, result *models.RecommendationResult, err error) {
	if err != nil {
		if errors.Is(err, services.ErrInvalidPatientID) || errors.Is(err, services.ErrInvalidSpecialtyID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": err.Error(),
				},
			})
			return
		}

		h.logger.WithError(err).WithField("patient_id", patientID).
			Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
