package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event kinds accepted by the activity log.
const (
	// ActivityStart marks the beginning of a study session.
	ActivityStart = "start"
	// ActivityHeartbeat is a periodic keep-alive carrying elapsed minutes.
	ActivityHeartbeat = "heartbeat"
	// ActivityEnd closes a study session.
	ActivityEnd = "end"
	// ActivitySubmission records a quiz or task submission.
	ActivitySubmission = "submission"
	// ActivityManual is a teacher-recorded adjustment.
	ActivityManual = "manual"
)

// ActivityEvent is one append-only entry of the per-student activity
// log. Events are never updated or deleted; the streak and time
// analytics are derived entirely from this table.
type ActivityEvent struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	StudentID   uint              `gorm:"not null;index:idx_activity_student_unit" json:"student_id"`
	UnitID      uint              `gorm:"not null;index:idx_activity_student_unit" json:"unit_id"`
	Kind        string            `gorm:"size:32;not null" json:"kind"`
	DurationMin *int              `json:"duration_min"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	OccurredAt  time.Time         `gorm:"not null;index" json:"occurred_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ValidActivityKind reports whether kind is one of the accepted event
// kinds.
func ValidActivityKind(kind string) bool {
	switch kind {
	case ActivityStart, ActivityHeartbeat, ActivityEnd, ActivitySubmission, ActivityManual:
		return true
	}
	return false
}
