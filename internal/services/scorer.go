package services

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/caredeck/medrank/internal/config"
	"github.com/caredeck/medrank/pkg/models"
)

const (
	// Thresholds for reason-string sub-signals.
	highlyRatedThreshold    = 4.0
	experiencedYears        = 10
	visitSaturationCount    = 10.0
	ratingScale             = 5.0
	reasonContentDefault    = "Recommended based on your profile"
	reasonPopularityDefault = "Highly rated and experienced doctor"
)

var specialtyCaser = cases.Title(language.English)

// Scorer computes recommendation scores for (profile, doctor-feature) pairs.
// Both strategies are pure functions over their inputs; the only state is
// the weight configuration.
type Scorer struct {
	weights              config.WeightConfig
	assumedMaxExperience float64
}

func NewScorer(cfg *config.RecommendationConfig) *Scorer {
	return &Scorer{
		weights:              cfg.Weights,
		assumedMaxExperience: float64(cfg.AssumedMaxExperience),
	}
}

// ContentBasedScore scores a doctor against the patient's history-derived
// profile. The rating component rewards doctors whose normalized rating is
// high but discounts divergence from the rating level the patient has
// historically chosen; the history component saturates at ten prior visits.
// The result is capped at 1.0.
func (s *Scorer) ContentBasedScore(profile *models.PatientPreferenceProfile, f models.DoctorFeature) float64 {
	affinity := profile.SpecialtyAffinity[f.SpecialtyID]

	ratingComponent := f.NormalizedRating *
		(1.0 - math.Abs(f.Rating-profile.AverageRatingPreference)/ratingScale)

	historyComponent := math.Min(float64(profile.DoctorVisitCounts[f.DoctorID])/visitSaturationCount, 1.0)

	score := s.weights.Specialty*affinity +
		s.weights.Rating*ratingComponent +
		s.weights.Experience*f.NormalizedExperience +
		s.weights.History*historyComponent

	return math.Min(score, 1.0)
}

// PopularityScore scores a doctor on aggregate quality signals alone. It is
// the cold-start strategy and the ranking function of the backfill policy.
func (s *Scorer) PopularityScore(f models.DoctorFeature) float64 {
	return s.weights.PopularityRating*f.NormalizedRating +
		s.weights.PopularityExperience*f.NormalizedExperience
}

// SpecialtyPopularityScore is the popularity variant for specialty-scoped
// listings. That path queries a single specialty rather than the full
// population, so it normalizes against fixed assumed bounds: the 0-5 rating
// scale and an experience cap.
func (s *Scorer) SpecialtyPopularityScore(f models.DoctorFeature) float64 {
	normRating := f.Rating / ratingScale
	normExperience := math.Min(float64(f.ExperienceYears), s.assumedMaxExperience) / s.assumedMaxExperience
	return s.weights.PopularityRating*normRating + s.weights.PopularityExperience*normExperience
}

// ContentBasedReason assembles a human-readable reason from the sub-signals
// that fired for this doctor.
func (s *Scorer) ContentBasedReason(profile *models.PatientPreferenceProfile, f models.DoctorFeature) string {
	var parts []string

	if profile.SpecialtyAffinity[f.SpecialtyID] > 0 {
		parts = append(parts, fmt.Sprintf("matches your visit history in %s", specialtyCaser.String(f.SpecialtyName)))
	}
	if f.Rating >= highlyRatedThreshold {
		parts = append(parts, "highly rated")
	}
	if f.ExperienceYears >= experiencedYears {
		parts = append(parts, "experienced")
	}
	if profile.DoctorVisitCounts[f.DoctorID] > 0 {
		parts = append(parts, "you've visited before")
	}

	if len(parts) == 0 {
		return reasonContentDefault
	}

	return capitalizeReason(strings.Join(parts, ", "))
}

// PopularityReason assembles the cold-start reason string.
func (s *Scorer) PopularityReason(f models.DoctorFeature) string {
	var parts []string

	if f.Rating >= highlyRatedThreshold {
		parts = append(parts, "highly rated")
	}
	if f.ExperienceYears >= experiencedYears {
		parts = append(parts, "experienced")
	}

	if len(parts) == 0 {
		return reasonPopularityDefault
	}

	return capitalizeReason(strings.Join(parts, ", "))
}

func capitalizeReason(reason string) string {
	if reason == "" {
		return reason
	}
	return strings.ToUpper(reason[:1]) + reason[1:]
}
