package models

// PatientPreferenceProfile summarizes a patient's completed appointment
// history. It is recomputed on every request so a just-completed visit is
// reflected on the next call. A profile with TotalAppointments == 0 has empty
// maps and a zero rating preference; that is the cold-start signal which
// forces the popularity strategy.
type PatientPreferenceProfile struct {
	PatientID int64 `json:"patient_id"`

	// SpecialtyAffinity maps specialty id to the fraction of the patient's
	// completed appointments in that specialty. Fractions sum to 1.0 over
	// specialties with at least one visit.
	SpecialtyAffinity map[int64]float64 `json:"specialty_affinity"`

	DoctorVisitCounts   map[int64]int     `json:"doctor_visit_counts"`
	DoctorRatingHistory map[int64]float64 `json:"doctor_rating_history"`

	AverageRatingPreference float64 `json:"average_rating_preference"`
	TotalAppointments       int     `json:"total_appointments"`
}

// IsColdStart reports whether the patient has no completed appointments.
func (p *PatientPreferenceProfile) IsColdStart() bool {
	return p.TotalAppointments == 0
}
