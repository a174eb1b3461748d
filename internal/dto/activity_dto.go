package dto

import (
	"time"

	"github.com/aula-lms/aula-go-api/internal/models"
)

// ActivityTrackRequest appends one event to the activity log.
type ActivityTrackRequest struct {
	UnitID      uint                   `json:"unit_id" validate:"required,gt=0"`
	Kind        string                 `json:"kind" validate:"required,oneof=start heartbeat end submission manual"`
	DurationMin *int                   `json:"duration_min" validate:"omitempty,gte=0,lte=1440"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// ActivityEventResponse serializes one activity log entry.
type ActivityEventResponse struct {
	ID          uint      `json:"id"`
	StudentID   uint      `json:"student_id"`
	UnitID      uint      `json:"unit_id"`
	Kind        string    `json:"kind"`
	DurationMin *int      `json:"duration_min"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewActivityEventResponse converts an event model to its DTO.
func NewActivityEventResponse(event models.ActivityEvent) ActivityEventResponse {
	return ActivityEventResponse{
		ID:          event.ID,
		StudentID:   event.StudentID,
		UnitID:      event.UnitID,
		Kind:        event.Kind,
		DurationMin: event.DurationMin,
		OccurredAt:  event.OccurredAt,
	}
}
