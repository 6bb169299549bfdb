package services

import (
	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/internal/database"
	"github.com/caredeck/medrank/internal/messaging"
)

type Services struct {
	Auth                       *AuthService
	Health                     *HealthService
	RateLimit                  *RateLimitService
	MessageBus                 *messaging.MessageBus
	FeatureStore               *FeatureStore
	Scorer                     *Scorer
	ResultAssembler            *ResultAssembler
	BackfillPolicy             *BackfillPolicy
	RecommendationOrchestrator *RecommendationOrchestrator
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	authService := NewAuthService(cfg, logger, db.Redis)
	healthService := NewHealthService(cfg, logger, db)
	rateLimitService := NewRateLimitService(cfg, logger, db.Redis)

	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Recommendation engine
	featureStore := NewFeatureStore(db.PG, logger)
	scorer := NewScorer(&cfg.Recommendation)
	assembler := NewResultAssembler(scorer, &cfg.Recommendation, logger)
	backfill := NewBackfillPolicy(scorer, &cfg.Recommendation, logger)
	metrics := NewEngineMetrics(logger)

	orchestrator := NewRecommendationOrchestrator(
		featureStore, scorer, assembler, backfill, messageBus, metrics,
		&cfg.Recommendation, logger,
	)

	return &Services{
		Auth:                       authService,
		Health:                     healthService,
		RateLimit:                  rateLimitService,
		MessageBus:                 messageBus,
		FeatureStore:               featureStore,
		Scorer:                     scorer,
		ResultAssembler:            assembler,
		BackfillPolicy:             backfill,
		RecommendationOrchestrator: orchestrator,
	}, nil
}
