package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/internal/services"
	"github.com/caredeck/medrank/pkg/models"
)

var doctorColumns = []string{
	"id", "full_name", "specialty_id", "name",
	"image_url", "rating", "experience_years", "is_available", "consultation_fee",
}

func setupRecommendationHandler(t *testing.T) (*RecommendationHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.RecommendationConfig{
		Weights: config.WeightConfig{
			Specialty:            0.4,
			Rating:               0.3,
			Experience:           0.2,
			History:              0.1,
			PopularityRating:     0.7,
			PopularityExperience: 0.3,
		},
		MinResults:           5,
		MaxResults:           6,
		DefaultTopCount:      5,
		MaxTopCount:          20,
		SpecialtyBoost:       1.2,
		UnavailablePenalty:   0.8,
		MinViableFiltered:    5,
		MinViableSpecialty:   3,
		AssumedMaxExperience: 30,
	}

	features := services.NewFeatureStore(mockDB, logger)
	scorer := services.NewScorer(cfg)
	assembler := services.NewResultAssembler(scorer, cfg, logger)
	backfill := services.NewBackfillPolicy(scorer, cfg, logger)
	orchestrator := services.NewRecommendationOrchestrator(
		features, scorer, assembler, backfill, nil, nil, cfg, logger)

	return NewRecommendationHandler(orchestrator, logger), mockDB
}

func expectPopulation(mockDB pgxmock.PgxPoolIface, patientID int64) {
	mockDB.ExpectQuery("FROM appointments").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "specialty_id", "rating"}))

	mockDB.ExpectQuery("FROM doctors").WillReturnRows(
		pgxmock.NewRows(doctorColumns).
			AddRow(int64(1), "Dr. Adams", int64(1), "cardiology", "", 5.0, 10, true, 150.0).
			AddRow(int64(2), "Dr. Baker", int64(1), "cardiology", "", 4.0, 8, true, 120.0).
			AddRow(int64(3), "Dr. Cook", int64(2), "dermatology", "", 3.0, 5, true, 90.0).
			AddRow(int64(4), "Dr. Diaz", int64(2), "dermatology", "", 2.0, 1, true, 70.0))
}

func TestRecommendationHandler_Get(t *testing.T) {
	t.Run("returns recommendations", func(t *testing.T) {
		handler, mockDB := setupRecommendationHandler(t)
		expectPopulation(mockDB, 7)

		router := gin.New()
		router.GET("/patients/:patientId/recommendations", handler.Get)

		req := httptest.NewRequest(http.MethodGet, "/patients/7/recommendations", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result models.RecommendationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

		assert.Equal(t, int64(7), result.PatientID)
		assert.Equal(t, "Popularity-Based Filtering", result.StrategyLabel)
		assert.Len(t, result.Recommendations, 4)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("malformed patient id is a 400", func(t *testing.T) {
		handler, _ := setupRecommendationHandler(t)

		router := gin.New()
		router.GET("/patients/:patientId/recommendations", handler.Get)

		req := httptest.NewRequest(http.MethodGet, "/patients/abc/recommendations", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_PATIENT_ID")
	})

	t.Run("non-positive patient id is a 400", func(t *testing.T) {
		handler, _ := setupRecommendationHandler(t)

		router := gin.New()
		router.GET("/patients/:patientId/recommendations", handler.Get)

		req := httptest.NewRequest(http.MethodGet, "/patients/0/recommendations", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	})

	t.Run("database failure is a 500", func(t *testing.T) {
		handler, mockDB := setupRecommendationHandler(t)
		mockDB.ExpectQuery("FROM appointments").
			WithArgs(int64(7)).
			WillReturnError(assert.AnError)

		router := gin.New()
		router.GET("/patients/:patientId/recommendations", handler.Get)

		req := httptest.NewRequest(http.MethodGet, "/patients/7/recommendations", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "RECOMMENDATION_GENERATION_FAILED")
	})
}

func TestRecommendationHandler_GetFiltered(t *testing.T) {
	t.Run("accepts a JSON body", func(t *testing.T) {
		handler, mockDB := setupRecommendationHandler(t)
		expectPopulation(mockDB, 7)

		router := gin.New()
		router.POST("/patients/:patientId/recommendations/filtered", handler.GetFiltered)

		body := `{"patient_id": 7, "min_rating": 3.5, "only_available": true}`
		req := httptest.NewRequest(http.MethodPost, "/patients/7/recommendations/filtered", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result models.RecommendationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, int64(7), result.PatientID)
	})

	t.Run("rejects a missing patient id", func(t *testing.T) {
		handler, _ := setupRecommendationHandler(t)

		router := gin.New()
		router.POST("/patients/:patientId/recommendations/filtered", handler.GetFiltered)

		req := httptest.NewRequest(http.MethodPost, "/patients/7/recommendations/filtered", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	})
}

func TestRecommendationHandler_GetSpecialtyBased(t *testing.T) {
	t.Run("returns ranked specialty doctors", func(t *testing.T) {
		handler, mockDB := setupRecommendationHandler(t)

		mockDB.ExpectQuery("FROM doctors").WithArgs(int64(2)).WillReturnRows(
			pgxmock.NewRows(doctorColumns).
				AddRow(int64(3), "Dr. Cook", int64(2), "dermatology", "", 3.0, 5, true, 90.0).
				AddRow(int64(4), "Dr. Diaz", int64(2), "dermatology", "", 4.2, 11, true, 110.0))

		router := gin.New()
		router.GET("/patients/:patientId/recommendations/specialty/:specialtyId", handler.GetSpecialtyBased)

		req := httptest.NewRequest(http.MethodGet, "/patients/7/recommendations/specialty/2", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result models.RecommendationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))

		assert.Equal(t, "Specialty Popularity", result.StrategyLabel)
		require.Len(t, result.Recommendations, 2)
		assert.Equal(t, int64(4), result.Recommendations[0].DoctorID)
	})

	t.Run("malformed specialty id is a 400", func(t *testing.T) {
		handler, _ := setupRecommendationHandler(t)

		router := gin.New()
		router.GET("/patients/:patientId/recommendations/specialty/:specialtyId", handler.GetSpecialtyBased)

		req := httptest.NewRequest(http.MethodGet, "/patients/7/recommendations/specialty/skin", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_SPECIALTY_ID")
	})
}
