package models

// DoctorFeature is a per-doctor snapshot used for scoring. It is built fresh
// for every recommendation request from current doctor records and never
// persisted; the normalized fields are relative to the population loaded for
// that request.
type DoctorFeature struct {
	DoctorID        int64   `json:"doctor_id"`
	FullName        string  `json:"full_name"`
	SpecialtyID     int64   `json:"specialty_id"`
	SpecialtyName   string  `json:"specialty_name"`
	ImageURL        string  `json:"image_url,omitempty"`
	Rating          float64 `json:"rating"` // 0-5 scale
	ExperienceYears int     `json:"experience_years"`
	IsAvailable     bool    `json:"is_available"`
	Fee             float64 `json:"fee"`

	// Request-scoped, min-max normalized across the loaded population.
	NormalizedRating     float64 `json:"-"`
	NormalizedExperience float64 `json:"-"`
}
