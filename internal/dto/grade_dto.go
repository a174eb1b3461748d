package dto

import "time"

// GradeComponent is one weighted input of the final unit grade. A
// degraded component fell back to its neutral value because its
// source failed; Degraded distinguishes that from a legitimate zero.
type GradeComponent struct {
	Average  *float64 `json:"average"`
	Count    int      `json:"count"`
	Weight   float64  `json:"weight"`
	Degraded bool     `json:"degraded,omitempty"`
	Reason   string   `json:"degraded_reason,omitempty"`
}

// TimeComponent is the time-on-task input of the final unit grade.
type TimeComponent struct {
	Minutes       int     `json:"minutes"`
	Score         int     `json:"score"`
	TargetMinutes int     `json:"target_minutes"`
	Weight        float64 `json:"weight"`
	Degraded      bool    `json:"degraded,omitempty"`
	Reason        string  `json:"degraded_reason,omitempty"`
}

// FinalGrade is the blended outcome with its approval decision.
type FinalGrade struct {
	Score    int  `json:"score"`
	Approved bool `json:"approved"`
	// OverrideScore carries a manual score when one is set; it is
	// authoritative for display but Score above remains the computed
	// value.
	OverrideScore     *int `json:"override_score,omitempty"`
	OverrideApplied   bool `json:"override_applied"`
	ApprovalThreshold int  `json:"approval_threshold"`
}

// UnitGradeResponse is the full aggregation result for one
// (student, unit).
type UnitGradeResponse struct {
	StudentID    uint           `json:"student_id"`
	UnitID       uint           `json:"unit_id"`
	Tasks        GradeComponent `json:"tasks"`
	Quizzes      GradeComponent `json:"quizzes"`
	Time         TimeComponent  `json:"time"`
	Final        FinalGrade     `json:"final"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// UnitGradeSummary pairs a unit with its computed grade.
type UnitGradeSummary struct {
	UnitID   uint              `json:"unit_id"`
	UnitName string            `json:"unit_name"`
	Position int               `json:"position"`
	Grade    UnitGradeResponse `json:"grade"`
}

// GradesSummaryResponse is the student-wide grade report.
type GradesSummaryResponse struct {
	StudentID      uint               `json:"student_id"`
	TotalUnits     int                `json:"total_units"`
	ApprovedUnits  int                `json:"approved_units"`
	PendingUnits   int                `json:"pending_units"`
	OverallAverage float64            `json:"overall_average"`
	ApprovalRate   float64            `json:"approval_rate"`
	Units          []UnitGradeSummary `json:"units"`
	CalculatedAt   time.Time          `json:"calculated_at"`
}

// TaskGradeRequest is a teacher's score for one uploaded task file.
type TaskGradeRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Filename  string `json:"filename" validate:"required,min=1,max=512"`
	Score     int    `json:"score" validate:"gte=0,lte=100"`
}

// OverrideRequest sets a manual final grade and/or approval flag.
// Both fields are optional but at least one must be present.
type OverrideRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Score     *int   `json:"score" validate:"omitempty,gte=0,lte=100"`
	Approved  *bool  `json:"approved"`
	Comment   string `json:"comment" validate:"omitempty,max=2000"`
}

// TaskGradeResponse reports a stored task grade along with the
// refreshed unit grade.
type TaskGradeResponse struct {
	StudentID uint              `json:"student_id"`
	UnitID    uint              `json:"unit_id"`
	Filename  string            `json:"filename"`
	Score     int               `json:"score"`
	UnitGrade UnitGradeResponse `json:"unit_grade"`
}

// OverrideResponse reports a stored override along with the refreshed
// unit grade.
type OverrideResponse struct {
	StudentID uint              `json:"student_id"`
	UnitID    uint              `json:"unit_id"`
	Score     *int              `json:"score"`
	Approved  *bool             `json:"approved"`
	UnitGrade UnitGradeResponse `json:"unit_grade"`
}
