package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationServedEvent is published after a recommendation set is
// returned to a caller, for downstream analytics and notification consumers.
// The engine itself never reads these back.
type RecommendationServedEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	PatientID   int64     `json:"patient_id"`
	Strategy    string    `json:"strategy"`
	DoctorIDs   []int64   `json:"doctor_ids"`
	GeneratedAt time.Time `json:"generated_at"`
}
