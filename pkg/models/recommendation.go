package models

import "time"

type RecommendationRequest struct {
	PatientID            int64    `json:"patient_id" validate:"required,gt=0"`
	PreferredSpecialtyID *int64   `json:"preferred_specialty_id,omitempty" validate:"omitempty,gt=0"`
	MinRating            *float64 `json:"min_rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	MinExperienceYears   *int     `json:"min_experience_years,omitempty" validate:"omitempty,gte=0"`
	MaxExperienceYears   *int     `json:"max_experience_years,omitempty" validate:"omitempty,gte=0"`
	// TopCount is clamped, not rejected, when it exceeds the configured max.
	TopCount      int  `json:"top_count" validate:"omitempty,min=1"`
	OnlyAvailable bool `json:"only_available"`
}

type Recommendation struct {
	DoctorID        int64   `json:"doctor_id"`
	DoctorName      string  `json:"doctor_name"`
	SpecialtyID     int64   `json:"specialty_id"`
	SpecialtyName   string  `json:"specialty_name"`
	ImageURL        string  `json:"image_url,omitempty"`
	Fee             float64 `json:"fee"`
	Rating          float64 `json:"rating"`
	ExperienceYears int     `json:"experience_years"`
	// Score is in [0,1] before specialty boosting; boosted entries may
	// slightly exceed 1.0 and are deliberately not re-capped.
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	IsAvailable bool    `json:"is_available"`
}

type RecommendationResult struct {
	PatientID                 int64            `json:"patient_id"`
	Recommendations           []Recommendation `json:"recommendations"`
	StrategyLabel             string           `json:"strategy"`
	GeneratedAt               time.Time        `json:"generated_at"`
	TotalCandidatesConsidered int              `json:"total_candidates_considered"`
}
