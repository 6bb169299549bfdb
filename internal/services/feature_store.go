package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/caredeck/medrank/pkg/models"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// FeatureStore provides read-only access to the doctor population and patient
// appointment history, shaped into the structures the scoring functions
// consume. Nothing here is cached: every call reflects the current state of
// the backing store.
type FeatureStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewFeatureStore(db DatabaseQuerier, logger *logrus.Logger) *FeatureStore {
	return &FeatureStore{
		db:     db,
		logger: logger,
	}
}

// DoctorFeatures loads the doctor population, optionally restricted to
// available doctors, and normalizes rating and experience across the returned
// set. Normalization is population-relative on purpose: it ranks doctors
// against currently eligible competitors rather than an absolute scale.
func (s *FeatureStore) DoctorFeatures(ctx context.Context, onlyAvailable bool) ([]models.DoctorFeature, error) {
	query := `
		SELECT d.id, d.full_name, d.specialty_id, s.name,
			COALESCE(d.image_url, ''), d.rating, d.experience_years,
			d.is_available, d.consultation_fee
		FROM doctors d
		JOIN specialties s ON s.id = d.specialty_id`
	if onlyAvailable {
		query += `
		WHERE d.is_available = true`
	}
	query += `
		ORDER BY d.id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("doctor feature query failed: %w", err)
	}
	defer rows.Close()

	features, err := scanDoctorFeatures(rows)
	if err != nil {
		return nil, err
	}

	return normalizePopulation(features), nil
}

// DoctorFeaturesBySpecialty loads doctors for a single specialty. The
// specialty-scoped scoring variant normalizes against fixed assumed bounds,
// so no population normalization is applied here.
func (s *FeatureStore) DoctorFeaturesBySpecialty(ctx context.Context, specialtyID int64) ([]models.DoctorFeature, error) {
	query := `
		SELECT d.id, d.full_name, d.specialty_id, s.name,
			COALESCE(d.image_url, ''), d.rating, d.experience_years,
			d.is_available, d.consultation_fee
		FROM doctors d
		JOIN specialties s ON s.id = d.specialty_id
		WHERE d.specialty_id = $1
		ORDER BY d.id`

	rows, err := s.db.Query(ctx, query, specialtyID)
	if err != nil {
		return nil, fmt.Errorf("specialty doctor query failed: %w", err)
	}
	defer rows.Close()

	return scanDoctorFeatures(rows)
}

// PatientProfile aggregates the patient's completed appointments into a
// preference profile. Scheduled and cancelled appointments are excluded. A
// patient with no completed appointments gets the zeroed profile, which is
// the expected cold-start path and not an error.
func (s *FeatureStore) PatientProfile(ctx context.Context, patientID int64) (*models.PatientPreferenceProfile, error) {
	query := `
		SELECT a.doctor_id, d.specialty_id, d.rating
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.patient_id = $1 AND a.status = 'completed'
		ORDER BY a.id`

	rows, err := s.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointment history query failed: %w", err)
	}
	defer rows.Close()

	profile := &models.PatientPreferenceProfile{
		PatientID:           patientID,
		SpecialtyAffinity:   make(map[int64]float64),
		DoctorVisitCounts:   make(map[int64]int),
		DoctorRatingHistory: make(map[int64]float64),
	}

	specialtyVisits := make(map[int64]int)
	var doctorOrder []int64

	for rows.Next() {
		var doctorID, specialtyID int64
		var rating float64

		if err := rows.Scan(&doctorID, &specialtyID, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}

		if _, seen := profile.DoctorRatingHistory[doctorID]; !seen {
			doctorOrder = append(doctorOrder, doctorID)
		}

		profile.DoctorVisitCounts[doctorID]++
		profile.DoctorRatingHistory[doctorID] = rating
		specialtyVisits[specialtyID]++
		profile.TotalAppointments++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointment history scan failed: %w", err)
	}

	if profile.TotalAppointments == 0 {
		return profile, nil
	}

	for specialtyID, visits := range specialtyVisits {
		profile.SpecialtyAffinity[specialtyID] = float64(visits) / float64(profile.TotalAppointments)
	}

	ratings := make([]float64, 0, len(doctorOrder))
	for _, doctorID := range doctorOrder {
		ratings = append(ratings, profile.DoctorRatingHistory[doctorID])
	}
	profile.AverageRatingPreference = stat.Mean(ratings, nil)

	s.logger.WithFields(logrus.Fields{
		"patient_id":         patientID,
		"total_appointments": profile.TotalAppointments,
		"specialties":        len(profile.SpecialtyAffinity),
	}).Debug("Patient preference profile built")

	return profile, nil
}

func scanDoctorFeatures(rows pgx.Rows) ([]models.DoctorFeature, error) {
	var features []models.DoctorFeature
	for rows.Next() {
		var f models.DoctorFeature
		if err := rows.Scan(
			&f.DoctorID, &f.FullName, &f.SpecialtyID, &f.SpecialtyName,
			&f.ImageURL, &f.Rating, &f.ExperienceYears, &f.IsAvailable, &f.Fee,
		); err != nil {
			return nil, fmt.Errorf("failed to scan doctor row: %w", err)
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctor scan failed: %w", err)
	}
	return features, nil
}

// normalizePopulation min-max scales rating and experience over the given
// set and returns a new slice. When every doctor shares the same value for a
// feature the normalized value is fixed at 0.5: neutral, and safe against a
// zero range.
func normalizePopulation(features []models.DoctorFeature) []models.DoctorFeature {
	if len(features) == 0 {
		return features
	}

	ratings := make([]float64, len(features))
	experience := make([]float64, len(features))
	for i, f := range features {
		ratings[i] = f.Rating
		experience[i] = float64(f.ExperienceYears)
	}

	minRating, maxRating := floats.Min(ratings), floats.Max(ratings)
	minExp, maxExp := floats.Min(experience), floats.Max(experience)

	normalized := make([]models.DoctorFeature, len(features))
	for i, f := range features {
		f.NormalizedRating = minMaxScale(f.Rating, minRating, maxRating)
		f.NormalizedExperience = minMaxScale(float64(f.ExperienceYears), minExp, maxExp)
		normalized[i] = f
	}

	return normalized
}

func minMaxScale(value, min, max float64) float64 {
	if max == min {
		return 0.5
	}
	return (value - min) / (max - min)
}
