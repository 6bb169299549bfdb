package services

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/pkg/models"
)

// BackfillPolicy guarantees a minimum result-set size. When the primary
// strategy under-produces it appends ranked fallback candidates from the
// full population, never removing or reordering entries already produced.
type BackfillPolicy struct {
	scorer *Scorer
	cfg    *config.RecommendationConfig
	logger *logrus.Logger
}

func NewBackfillPolicy(scorer *Scorer, cfg *config.RecommendationConfig, logger *logrus.Logger) *BackfillPolicy {
	return &BackfillPolicy{
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
	}
}

// TopUp appends fallback candidates until the minimum result count is met,
// the hard response ceiling is reached, or candidates run out. Available
// doctors are appended first, ranked by rating then experience; unavailable
// doctors follow with an availability penalty on their score. The second
// return value reports whether anything was actually appended, which drives
// the " + Fallback" strategy-label suffix.
func (b *BackfillPolicy) TopUp(
	recommendations []models.Recommendation,
	population []models.DoctorFeature,
) ([]models.Recommendation, bool) {
	if len(recommendations) >= b.cfg.MinResults {
		return recommendations, false
	}

	included := make(map[int64]bool, len(recommendations))
	for _, rec := range recommendations {
		included[rec.DoctorID] = true
	}

	var available, unavailable []models.DoctorFeature
	for _, f := range population {
		if included[f.DoctorID] {
			continue
		}
		if f.IsAvailable {
			available = append(available, f)
		} else {
			unavailable = append(unavailable, f)
		}
	}

	rankByQuality(available)
	rankByQuality(unavailable)

	result := append([]models.Recommendation(nil), recommendations...)
	appended := 0

	for _, f := range available {
		if len(result) >= b.cfg.MaxResults {
			break
		}
		result = append(result, newRecommendation(f, b.scorer.PopularityScore(f), "Highly rated and available"))
		appended++
	}

	for _, f := range unavailable {
		if len(result) >= b.cfg.MaxResults {
			break
		}
		score := b.scorer.PopularityScore(f) * b.cfg.UnavailablePenalty
		result = append(result, newRecommendation(f, score, "Highly rated (currently unavailable)"))
		appended++
	}

	if appended > 0 {
		b.logger.WithFields(logrus.Fields{
			"appended": appended,
			"total":    len(result),
		}).Debug("Backfill appended fallback candidates")
	}

	return result, appended > 0
}

// rankByQuality orders a partition for backfill: rating first, then
// experience.
func rankByQuality(features []models.DoctorFeature) {
	sort.SliceStable(features, func(i, j int) bool {
		if features[i].Rating != features[j].Rating {
			return features[i].Rating > features[j].Rating
		}
		return features[i].ExperienceYears > features[j].ExperienceYears
	})
}
