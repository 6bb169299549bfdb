package services

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/pkg/models"
)

// Strategy selects which scoring function ranks the candidate set.
type Strategy int

const (
	StrategyContentBased Strategy = iota
	StrategyPopularity
)

func (s Strategy) Label() string {
	switch s {
	case StrategyContentBased:
		return "Content-Based Filtering"
	case StrategyPopularity:
		return "Popularity-Based Filtering"
	default:
		return "Unknown"
	}
}

// ResultAssembler turns a scored candidate population into an ordered
// recommendation list: flexible filtering, strategy scoring, specialty
// boosting and sorting. Each stage returns a fresh slice; nothing mutates
// the caller's population.
type ResultAssembler struct {
	scorer *Scorer
	cfg    *config.RecommendationConfig
	logger *logrus.Logger
}

func NewResultAssembler(scorer *Scorer, cfg *config.RecommendationConfig, logger *logrus.Logger) *ResultAssembler {
	return &ResultAssembler{
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
	}
}

// Assemble filters, scores, boosts and sorts the population under the given
// strategy. The returned list is not truncated; the orchestrator owns the
// result-size policy.
func (a *ResultAssembler) Assemble(
	req *models.RecommendationRequest,
	profile *models.PatientPreferenceProfile,
	population []models.DoctorFeature,
	strategy Strategy,
) []models.Recommendation {
	candidates := a.applyFlexibleFilters(req, population)
	recommendations := a.score(candidates, profile, strategy)
	recommendations = a.applySpecialtyBoost(req, recommendations)

	// Descending by score; ties keep input order.
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	return recommendations
}

// applyFlexibleFilters applies each requested filter only if the population
// keeps a viable candidate count under it; filters that would starve the
// result set are skipped outright. If the qualified filters together still
// leave too few candidates, filtering is abandoned: the available subset is
// preferred when it is large enough, otherwise the full population is used.
// Returning usable results wins over strict filter compliance.
func (a *ResultAssembler) applyFlexibleFilters(req *models.RecommendationRequest, population []models.DoctorFeature) []models.DoctorFeature {
	type filter struct {
		name      string
		minViable int
		match     func(models.DoctorFeature) bool
	}

	var filters []filter

	if req.OnlyAvailable {
		filters = append(filters, filter{"availability", a.cfg.MinViableFiltered, func(f models.DoctorFeature) bool {
			return f.IsAvailable
		}})
	}
	if req.MinRating != nil {
		min := *req.MinRating
		filters = append(filters, filter{"min_rating", a.cfg.MinViableFiltered, func(f models.DoctorFeature) bool {
			return f.Rating >= min
		}})
	}
	if req.MinExperienceYears != nil {
		min := *req.MinExperienceYears
		filters = append(filters, filter{"min_experience", a.cfg.MinViableFiltered, func(f models.DoctorFeature) bool {
			return f.ExperienceYears >= min
		}})
	}
	if req.MaxExperienceYears != nil {
		max := *req.MaxExperienceYears
		filters = append(filters, filter{"max_experience", a.cfg.MinViableFiltered, func(f models.DoctorFeature) bool {
			return f.ExperienceYears <= max
		}})
	}
	if req.PreferredSpecialtyID != nil {
		specialtyID := *req.PreferredSpecialtyID
		filters = append(filters, filter{"specialty", a.cfg.MinViableSpecialty, func(f models.DoctorFeature) bool {
			return f.SpecialtyID == specialtyID
		}})
	}

	// Each filter qualifies independently against the unfiltered population.
	var active []filter
	for _, fl := range filters {
		matched := 0
		for _, f := range population {
			if fl.match(f) {
				matched++
			}
		}
		if matched >= fl.minViable {
			active = append(active, fl)
		} else {
			a.logger.WithFields(logrus.Fields{
				"filter":  fl.name,
				"matched": matched,
			}).Debug("Filter skipped, too few matching candidates")
		}
	}

	filtered := make([]models.DoctorFeature, 0, len(population))
	for _, f := range population {
		keep := true
		for _, fl := range active {
			if !fl.match(f) {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, f)
		}
	}

	if len(filtered) >= a.cfg.MinResults {
		return filtered
	}

	// Graceful degradation: abandon the qualified filters entirely.
	if req.OnlyAvailable {
		available := make([]models.DoctorFeature, 0, len(population))
		for _, f := range population {
			if f.IsAvailable {
				available = append(available, f)
			}
		}
		if len(available) >= a.cfg.MinResults {
			a.logger.Debug("Filters abandoned, falling back to available doctors")
			return available
		}
	}

	a.logger.Debug("Filters abandoned, falling back to full population")
	return population
}

func (a *ResultAssembler) score(
	candidates []models.DoctorFeature,
	profile *models.PatientPreferenceProfile,
	strategy Strategy,
) []models.Recommendation {
	recommendations := make([]models.Recommendation, 0, len(candidates))
	for _, f := range candidates {
		var score float64
		var reason string

		switch strategy {
		case StrategyContentBased:
			score = a.scorer.ContentBasedScore(profile, f)
			reason = a.scorer.ContentBasedReason(profile, f)
		default:
			score = a.scorer.PopularityScore(f)
			reason = a.scorer.PopularityReason(f)
		}

		recommendations = append(recommendations, newRecommendation(f, score, reason))
	}
	return recommendations
}

// applySpecialtyBoost multiplies matching-specialty scores by the boost
// factor after scoring. Boosted scores may exceed 1.0 and are not re-capped,
// so strongly matching doctors float unambiguously to the top. The match is
// by specialty id.
func (a *ResultAssembler) applySpecialtyBoost(req *models.RecommendationRequest, recommendations []models.Recommendation) []models.Recommendation {
	if req.PreferredSpecialtyID == nil {
		return recommendations
	}

	boosted := make([]models.Recommendation, len(recommendations))
	for i, rec := range recommendations {
		if rec.SpecialtyID == *req.PreferredSpecialtyID {
			rec.Score *= a.cfg.SpecialtyBoost
			rec.Reason = "Preferred specialty - " + rec.Reason
		}
		boosted[i] = rec
	}
	return boosted
}

func newRecommendation(f models.DoctorFeature, score float64, reason string) models.Recommendation {
	return models.Recommendation{
		DoctorID:        f.DoctorID,
		DoctorName:      f.FullName,
		SpecialtyID:     f.SpecialtyID,
		SpecialtyName:   f.SpecialtyName,
		ImageURL:        f.ImageURL,
		Fee:             f.Fee,
		Rating:          f.Rating,
		ExperienceYears: f.ExperienceYears,
		Score:           score,
		Reason:          reason,
		IsAvailable:     f.IsAvailable,
	}
}
