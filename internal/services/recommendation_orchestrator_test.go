package services

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caredeck/medrank/pkg/models"
)

func newTestOrchestrator(t *testing.T) (*RecommendationOrchestrator, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	cfg := testRecommendationConfig()
	logger := logrus.New()

	features := NewFeatureStore(mockDB, logger)
	scorer := NewScorer(cfg)
	assembler := NewResultAssembler(scorer, cfg, logger)
	backfill := NewBackfillPolicy(scorer, cfg, logger)

	orchestrator := NewRecommendationOrchestrator(
		features, scorer, assembler, backfill, nil, nil, cfg, logger)

	return orchestrator, mockDB
}

func expectEmptyHistory(mockDB pgxmock.PgxPoolIface, patientID int64) {
	mockDB.ExpectQuery("FROM appointments").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"doctor_id", "specialty_id", "rating"}))
}

func TestRecommendationOrchestrator_GetRecommendations(t *testing.T) {
	t.Run("rejects non-positive patient ids", func(t *testing.T) {
		orchestrator, _ := newTestOrchestrator(t)

		_, err := orchestrator.GetRecommendations(context.Background(), &models.RecommendationRequest{PatientID: 0})
		assert.ErrorIs(t, err, ErrInvalidPatientID)

		_, err = orchestrator.GetRecommendations(context.Background(), &models.RecommendationRequest{PatientID: -3})
		assert.ErrorIs(t, err, ErrInvalidPatientID)
	})

	t.Run("cold-start patient gets popularity strategy", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		expectEmptyHistory(mockDB, 7)
		mockDB.ExpectQuery("FROM doctors").WillReturnRows(
			pgxmock.NewRows(doctorColumns).
				AddRow(int64(1), "Dr. Adams", int64(1), "cardiology", "", 5.0, 10, true, 150.0).
				AddRow(int64(2), "Dr. Baker", int64(1), "cardiology", "", 4.0, 8, true, 120.0).
				AddRow(int64(3), "Dr. Cook", int64(2), "dermatology", "", 3.0, 5, true, 90.0).
				AddRow(int64(4), "Dr. Diaz", int64(2), "dermatology", "", 2.0, 1, true, 70.0))

		result, err := orchestrator.GetRecommendations(context.Background(), &models.RecommendationRequest{PatientID: 7})
		require.NoError(t, err)

		assert.Equal(t, "Popularity-Based Filtering", result.StrategyLabel)
		assert.Equal(t, 4, result.TotalCandidatesConsidered)
		require.Len(t, result.Recommendations, 4)

		// Best rating and best experience coincide, so the top score is 1.0.
		assert.Equal(t, int64(1), result.Recommendations[0].DoctorID)
		assert.InDelta(t, 1.0, result.Recommendations[0].Score, 1e-9)

		// Everyone is already included, so nothing was backfilled and the
		// label carries no fallback suffix.
		assert.NotContains(t, result.StrategyLabel, "Fallback")

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("patient with history gets content-based strategy", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		mockDB.ExpectQuery("FROM appointments").WithArgs(int64(9)).WillReturnRows(
			pgxmock.NewRows([]string{"doctor_id", "specialty_id", "rating"}).
				AddRow(int64(1), int64(1), 5.0).
				AddRow(int64(1), int64(1), 5.0))

		mockDB.ExpectQuery("FROM doctors").WillReturnRows(
			pgxmock.NewRows(doctorColumns).
				AddRow(int64(1), "Dr. Adams", int64(1), "cardiology", "", 5.0, 10, true, 150.0).
				AddRow(int64(2), "Dr. Baker", int64(1), "cardiology", "", 4.0, 8, true, 120.0).
				AddRow(int64(3), "Dr. Cook", int64(2), "dermatology", "", 3.0, 5, true, 90.0).
				AddRow(int64(4), "Dr. Diaz", int64(2), "dermatology", "", 2.0, 1, true, 70.0).
				AddRow(int64(5), "Dr. Evans", int64(1), "cardiology", "", 4.5, 12, true, 130.0))

		result, err := orchestrator.GetRecommendations(context.Background(), &models.RecommendationRequest{PatientID: 9})
		require.NoError(t, err)

		assert.Equal(t, "Content-Based Filtering", result.StrategyLabel)
		require.Len(t, result.Recommendations, 5)

		// The previously visited doctor ranks first.
		assert.Equal(t, int64(1), result.Recommendations[0].DoctorID)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("identical inputs produce identical output", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		var ordered [][]int64
		for i := 0; i < 2; i++ {
			expectEmptyHistory(mockDB, 7)
			mockDB.ExpectQuery("FROM doctors").WillReturnRows(
				pgxmock.NewRows(doctorColumns).
					AddRow(int64(1), "Dr. Adams", int64(1), "cardiology", "", 4.0, 10, true, 150.0).
					AddRow(int64(2), "Dr. Baker", int64(1), "cardiology", "", 4.0, 10, true, 120.0).
					AddRow(int64(3), "Dr. Cook", int64(2), "dermatology", "", 4.0, 10, true, 90.0))

			result, err := orchestrator.GetRecommendations(context.Background(),
				&models.RecommendationRequest{PatientID: 7})
			require.NoError(t, err)

			ids := make([]int64, len(result.Recommendations))
			for j, rec := range result.Recommendations {
				ids[j] = rec.DoctorID
			}
			ordered = append(ordered, ids)
		}

		assert.Equal(t, ordered[0], ordered[1])
	})

	t.Run("result is capped at six regardless of population size", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		rows := pgxmock.NewRows(doctorColumns)
		for i := 1; i <= 9; i++ {
			rows.AddRow(int64(i), "Dr. Test", int64(1), "cardiology", "",
				3.0+float64(i)*0.2, i*2, true, 100.0)
		}

		expectEmptyHistory(mockDB, 7)
		mockDB.ExpectQuery("FROM doctors").WillReturnRows(rows)

		result, err := orchestrator.GetRecommendations(context.Background(),
			&models.RecommendationRequest{PatientID: 7, TopCount: 9})
		require.NoError(t, err)

		assert.Len(t, result.Recommendations, 6)
		assert.Equal(t, 9, result.TotalCandidatesConsidered)
	})
}

func TestRecommendationOrchestrator_SingleStrategy(t *testing.T) {
	t.Run("popularity path honors topCount", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		rows := pgxmock.NewRows(doctorColumns)
		for i := 1; i <= 8; i++ {
			rows.AddRow(int64(i), "Dr. Test", int64(1), "cardiology", "",
				3.0+float64(i)*0.2, i*2, true, 100.0)
		}

		expectEmptyHistory(mockDB, 7)
		mockDB.ExpectQuery("FROM doctors").WillReturnRows(rows)

		result, err := orchestrator.GetPopularityBasedRecommendations(context.Background(), 7, 2)
		require.NoError(t, err)

		assert.Len(t, result.Recommendations, 2)
		assert.Equal(t, "Popularity-Based Filtering", result.StrategyLabel)
	})

	t.Run("zero topCount falls back to the default", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		rows := pgxmock.NewRows(doctorColumns)
		for i := 1; i <= 8; i++ {
			rows.AddRow(int64(i), "Dr. Test", int64(1), "cardiology", "",
				3.0+float64(i)*0.2, i*2, true, 100.0)
		}

		expectEmptyHistory(mockDB, 7)
		mockDB.ExpectQuery("FROM doctors").WillReturnRows(rows)

		result, err := orchestrator.GetContentBasedRecommendations(context.Background(), 7, 0)
		require.NoError(t, err)

		assert.Len(t, result.Recommendations, 5)
		assert.Equal(t, "Content-Based Filtering", result.StrategyLabel)
	})

	t.Run("rejects non-positive patient ids", func(t *testing.T) {
		orchestrator, _ := newTestOrchestrator(t)

		_, err := orchestrator.GetContentBasedRecommendations(context.Background(), 0, 5)
		assert.ErrorIs(t, err, ErrInvalidPatientID)
	})
}

func TestRecommendationOrchestrator_GetSpecialtyBasedRecommendations(t *testing.T) {
	t.Run("ranks a specialty with fixed-bound scores", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		mockDB.ExpectQuery("FROM doctors").WithArgs(int64(3)).WillReturnRows(
			pgxmock.NewRows(doctorColumns).
				AddRow(int64(1), "Dr. Adams", int64(3), "neurology", "", 4.0, 15, true, 200.0).
				AddRow(int64(2), "Dr. Baker", int64(3), "neurology", "", 5.0, 40, true, 250.0).
				AddRow(int64(3), "Dr. Cook", int64(3), "neurology", "", 3.5, 6, false, 150.0))

		result, err := orchestrator.GetSpecialtyBasedRecommendations(context.Background(), 7, 3, 10)
		require.NoError(t, err)

		assert.Equal(t, "Specialty Popularity", result.StrategyLabel)
		require.Len(t, result.Recommendations, 3)

		// Rating 5.0 with experience past the assumed cap scores a full 1.0.
		assert.Equal(t, int64(2), result.Recommendations[0].DoctorID)
		assert.InDelta(t, 1.0, result.Recommendations[0].Score, 1e-9)
		assert.InDelta(t, 0.7*(4.0/5.0)+0.3*(15.0/30.0), result.Recommendations[1].Score, 1e-9)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("truncates to topCount without backfill", func(t *testing.T) {
		orchestrator, mockDB := newTestOrchestrator(t)

		mockDB.ExpectQuery("FROM doctors").WithArgs(int64(3)).WillReturnRows(
			pgxmock.NewRows(doctorColumns).
				AddRow(int64(1), "Dr. Adams", int64(3), "neurology", "", 4.0, 15, true, 200.0).
				AddRow(int64(2), "Dr. Baker", int64(3), "neurology", "", 5.0, 40, true, 250.0).
				AddRow(int64(3), "Dr. Cook", int64(3), "neurology", "", 3.5, 6, false, 150.0))

		result, err := orchestrator.GetSpecialtyBasedRecommendations(context.Background(), 7, 3, 1)
		require.NoError(t, err)
		assert.Len(t, result.Recommendations, 1)
	})

	t.Run("rejects non-positive ids", func(t *testing.T) {
		orchestrator, _ := newTestOrchestrator(t)

		_, err := orchestrator.GetSpecialtyBasedRecommendations(context.Background(), 0, 3, 5)
		assert.ErrorIs(t, err, ErrInvalidPatientID)

		_, err = orchestrator.GetSpecialtyBasedRecommendations(context.Background(), 7, 0, 5)
		assert.ErrorIs(t, err, ErrInvalidSpecialtyID)
	})
}
