package dto

import "time"

// AnalyticsSummaryRequest filters the analytics computation. From/To
// bound the event range; both are optional.
type AnalyticsSummaryRequest struct {
	UnitID *uint      `query:"unit_id"`
	From   *time.Time `query:"from"`
	To     *time.Time `query:"to"`
}

// AnalyticsSummaryResponse is the student activity summary. The JSON
// keys mirror the wire contract the web client already consumes.
type AnalyticsSummaryResponse struct {
	// OverallProgress is the average completion percentage across
	// units that have a progress row.
	OverallProgress float64 `json:"progreso_general"`
	CompletedUnits  int     `json:"unidades_completadas"`
	TimeSpentMin    int     `json:"tiempo_dedicado_min"`
	StreakDays      int     `json:"racha_dias"`
}

// UnitAnalytics is the per-unit activity breakdown.
type UnitAnalytics struct {
	UnitID         uint       `json:"unit_id"`
	UnitName       string     `json:"unit_name"`
	CompletionPct  int        `json:"completion_pct"`
	Score          int        `json:"score"`
	TimeSpentMin   int        `json:"tiempo_dedicado_min"`
	LastActivityAt *time.Time `json:"last_activity_at"`
}

// UnitAnalyticsResponse lists the per-unit breakdown for a student.
type UnitAnalyticsResponse struct {
	StudentID uint            `json:"student_id"`
	Units     []UnitAnalytics `json:"units"`
}
