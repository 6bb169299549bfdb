package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/pkg/models"
)

var (
	ErrInvalidPatientID   = errors.New("patient id must be positive")
	ErrInvalidSpecialtyID = errors.New("specialty id must be positive")
)

// RecommendationEventPublisher publishes recommendation-served events for
// downstream consumers. Publication is best effort; failures never affect
// the response.
type RecommendationEventPublisher interface {
	PublishRecommendationServed(ctx context.Context, event models.RecommendationServedEvent) error
}

// RecommendationOrchestrator is the public entry point of the recommendation
// engine. It loads the per-request feature and profile snapshots, selects a
// scoring strategy, and runs the assemble/backfill/truncate pipeline. The
// orchestrator is stateless between calls; concurrent requests are
// independent.
type RecommendationOrchestrator struct {
	features  *FeatureStore
	scorer    *Scorer
	assembler *ResultAssembler
	backfill  *BackfillPolicy
	events    RecommendationEventPublisher
	metrics   *EngineMetrics
	cfg       *config.RecommendationConfig
	logger    *logrus.Logger
}

func NewRecommendationOrchestrator(
	features *FeatureStore,
	scorer *Scorer,
	assembler *ResultAssembler,
	backfill *BackfillPolicy,
	events RecommendationEventPublisher,
	metrics *EngineMetrics,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		features:  features,
		scorer:    scorer,
		assembler: assembler,
		backfill:  backfill,
		events:    events,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// GetRecommendations runs the auto-selecting path: content-based when the
// patient has completed-appointment history, popularity-based otherwise.
// The full doctor population is loaded regardless of the availability flag;
// availability is a ranking and filtering concern, not a load-time
// exclusion. The final list is capped at MaxResults entries independent of
// the requested TopCount; the narrower entry points honor TopCount directly.
func (o *RecommendationOrchestrator) GetRecommendations(
	ctx context.Context,
	req *models.RecommendationRequest,
) (*models.RecommendationResult, error) {
	if req.PatientID <= 0 {
		return nil, ErrInvalidPatientID
	}

	startTime := time.Now()

	profile, err := o.features.PatientProfile(ctx, req.PatientID)
	if err != nil {
		o.logger.WithError(err).WithField("patient_id", req.PatientID).
			Error("Failed to load patient preference profile")
		return nil, fmt.Errorf("failed to load patient profile: %w", err)
	}

	population, err := o.features.DoctorFeatures(ctx, false)
	if err != nil {
		o.logger.WithError(err).WithField("patient_id", req.PatientID).
			Error("Failed to load doctor population")
		return nil, fmt.Errorf("failed to load doctor features: %w", err)
	}

	strategy := StrategyPopularity
	if !profile.IsColdStart() {
		strategy = StrategyContentBased
	}

	recommendations := o.assembler.Assemble(req, profile, population, strategy)

	label := strategy.Label()
	recommendations, backfilled := o.backfill.TopUp(recommendations, population)
	if backfilled {
		label += " + Fallback"
	}

	if len(recommendations) > o.cfg.MaxResults {
		recommendations = recommendations[:o.cfg.MaxResults]
	}

	result := &models.RecommendationResult{
		PatientID:                 req.PatientID,
		Recommendations:           recommendations,
		StrategyLabel:             label,
		GeneratedAt:               time.Now(),
		TotalCandidatesConsidered: len(population),
	}

	o.metrics.observeGeneration(strategy.Label(), time.Since(startTime))
	o.publishServed(ctx, result)

	o.logger.WithFields(logrus.Fields{
		"patient_id": req.PatientID,
		"strategy":   label,
		"count":      len(recommendations),
		"candidates": len(population),
	}).Info("Recommendations generated")

	return result, nil
}

// GetContentBasedRecommendations exposes the content-based strategy
// directly, bypassing automatic strategy selection.
func (o *RecommendationOrchestrator) GetContentBasedRecommendations(
	ctx context.Context,
	patientID int64,
	topCount int,
) (*models.RecommendationResult, error) {
	return o.singleStrategy(ctx, patientID, topCount, StrategyContentBased)
}

// GetPopularityBasedRecommendations exposes the popularity strategy
// directly, bypassing automatic strategy selection.
func (o *RecommendationOrchestrator) GetPopularityBasedRecommendations(
	ctx context.Context,
	patientID int64,
	topCount int,
) (*models.RecommendationResult, error) {
	return o.singleStrategy(ctx, patientID, topCount, StrategyPopularity)
}

func (o *RecommendationOrchestrator) singleStrategy(
	ctx context.Context,
	patientID int64,
	topCount int,
	strategy Strategy,
) (*models.RecommendationResult, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}

	startTime := time.Now()
	topCount = o.clampTopCount(topCount)

	profile, err := o.features.PatientProfile(ctx, patientID)
	if err != nil {
		o.logger.WithError(err).WithField("patient_id", patientID).
			Error("Failed to load patient preference profile")
		return nil, fmt.Errorf("failed to load patient profile: %w", err)
	}

	population, err := o.features.DoctorFeatures(ctx, false)
	if err != nil {
		o.logger.WithError(err).WithField("patient_id", patientID).
			Error("Failed to load doctor population")
		return nil, fmt.Errorf("failed to load doctor features: %w", err)
	}

	req := &models.RecommendationRequest{PatientID: patientID, OnlyAvailable: true}
	recommendations := o.assembler.Assemble(req, profile, population, strategy)

	if len(recommendations) > topCount {
		recommendations = recommendations[:topCount]
	}

	result := &models.RecommendationResult{
		PatientID:                 patientID,
		Recommendations:           recommendations,
		StrategyLabel:             strategy.Label(),
		GeneratedAt:               time.Now(),
		TotalCandidatesConsidered: len(population),
	}

	o.metrics.observeGeneration(strategy.Label(), time.Since(startTime))
	o.publishServed(ctx, result)

	return result, nil
}

// GetSpecialtyBasedRecommendations ranks the doctors of a single specialty
// with the fixed-bound popularity variant. This path honors topCount
// directly: no backfill and no response ceiling.
func (o *RecommendationOrchestrator) GetSpecialtyBasedRecommendations(
	ctx context.Context,
	patientID int64,
	specialtyID int64,
	topCount int,
) (*models.RecommendationResult, error) {
	if patientID <= 0 {
		return nil, ErrInvalidPatientID
	}
	if specialtyID <= 0 {
		return nil, ErrInvalidSpecialtyID
	}

	startTime := time.Now()
	topCount = o.clampTopCount(topCount)

	features, err := o.features.DoctorFeaturesBySpecialty(ctx, specialtyID)
	if err != nil {
		o.logger.WithError(err).WithFields(logrus.Fields{
			"patient_id":   patientID,
			"specialty_id": specialtyID,
		}).Error("Failed to load specialty doctors")
		return nil, fmt.Errorf("failed to load specialty doctors: %w", err)
	}

	recommendations := make([]models.Recommendation, 0, len(features))
	for _, f := range features {
		score := o.scorer.SpecialtyPopularityScore(f)
		recommendations = append(recommendations, newRecommendation(f, score, o.scorer.PopularityReason(f)))
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	if len(recommendations) > topCount {
		recommendations = recommendations[:topCount]
	}

	result := &models.RecommendationResult{
		PatientID:                 patientID,
		Recommendations:           recommendations,
		StrategyLabel:             "Specialty Popularity",
		GeneratedAt:               time.Now(),
		TotalCandidatesConsidered: len(features),
	}

	o.metrics.observeGeneration(result.StrategyLabel, time.Since(startTime))
	o.publishServed(ctx, result)

	return result, nil
}

func (o *RecommendationOrchestrator) clampTopCount(topCount int) int {
	if topCount <= 0 {
		return o.cfg.DefaultTopCount
	}
	if topCount > o.cfg.MaxTopCount {
		return o.cfg.MaxTopCount
	}
	return topCount
}

func (o *RecommendationOrchestrator) publishServed(ctx context.Context, result *models.RecommendationResult) {
	if o.events == nil {
		return
	}

	doctorIDs := make([]int64, len(result.Recommendations))
	for i, rec := range result.Recommendations {
		doctorIDs[i] = rec.DoctorID
	}

	event := models.RecommendationServedEvent{
		EventID:     uuid.New(),
		PatientID:   result.PatientID,
		Strategy:    result.StrategyLabel,
		DoctorIDs:   doctorIDs,
		GeneratedAt: result.GeneratedAt,
	}

	if err := o.events.PublishRecommendationServed(ctx, event); err != nil {
		o.logger.WithError(err).WithField("patient_id", result.PatientID).
			Warn("Failed to publish recommendation event")
	}
}
