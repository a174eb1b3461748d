package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aula-lms/aula-go-api/internal/config"
	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/observability"
	"github.com/aula-lms/aula-go-api/internal/repository"
)

// ErrUnitNotFound indicates the unit does not exist.
var ErrUnitNotFound = errors.New("unit not found")

// ErrStudentNotFound indicates the student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrEmptyOverride indicates an override request that sets neither a
// score nor an approval flag.
var ErrEmptyOverride = errors.New("override must set a score or an approval flag")

// Degradation reasons reported on grade components whose source
// failed. A degraded component contributes its neutral value so the
// aggregation itself never fails.
const (
	DegradedTaskSource = "task_source_unavailable"
	DegradedQuizSource = "quiz_source_unavailable"
	DegradedTimeSource = "time_source_unavailable"
)

// GradeService aggregates task, quiz and time-on-task inputs into a
// final unit grade, and stores teacher-set task grades and overrides.
type GradeService interface {
	// UnitGrade computes the full aggregation for one (student, unit).
	UnitGrade(ctx context.Context, studentID, unitID uint) (dto.UnitGradeResponse, error)
	// Summary computes the grade of every unit for one student.
	Summary(ctx context.Context, studentID uint) (dto.GradesSummaryResponse, error)
	// GradeTask stores a teacher's score for one uploaded task file and
	// refreshes the unit grade.
	GradeTask(ctx context.Context, unitID uint, graderID *uint, payload dto.TaskGradeRequest) (dto.TaskGradeResponse, error)
	// SetOverride stores a manual score and/or approval flag for the
	// unit and refreshes the unit grade.
	SetOverride(ctx context.Context, unitID uint, setterID *uint, payload dto.OverrideRequest) (dto.OverrideResponse, error)

	GradeSyncer
}

type gradeService struct {
	results   repository.ResultRepository
	tasks     repository.TaskGradeRepository
	overrides repository.OverrideRepository
	progress  repository.ProgressRepository
	units     repository.UnitRepository
	students  repository.StudentRepository
	policy    config.GradingPolicy
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGradeService constructs the grade service. The policy is
// normalized once here so every computation sees weights that sum
// to 1.
func NewGradeService(results repository.ResultRepository, tasks repository.TaskGradeRepository, overrides repository.OverrideRepository, progress repository.ProgressRepository, units repository.UnitRepository, students repository.StudentRepository, policy config.GradingPolicy, validate *validator.Validate, logger zerolog.Logger) GradeService {
	return &gradeService{
		results:   results,
		tasks:     tasks,
		overrides: overrides,
		progress:  progress,
		units:     units,
		students:  students,
		policy:    policy.Normalize(),
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "grade_service").Logger(),
		tracer:    otel.Tracer("github.com/aula-lms/aula-go-api/internal/service/grade"),
		now:       time.Now,
	}
}

func (s *gradeService) UnitGrade(ctx context.Context, studentID, unitID uint) (dto.UnitGradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grade.unit", trace.WithAttributes(
		attribute.Int64("grade.student_id", int64(studentID)),
		attribute.Int64("grade.unit_id", int64(unitID)),
	))
	defer span.End()

	if err := s.checkStudent(ctx, studentID); err != nil {
		return dto.UnitGradeResponse{}, err
	}
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		if repository.IsNotFound(err) {
			return dto.UnitGradeResponse{}, ErrUnitNotFound
		}
		return dto.UnitGradeResponse{}, err
	}

	return s.computeUnit(ctx, studentID, unitID), nil
}

func (s *gradeService) Summary(ctx context.Context, studentID uint) (dto.GradesSummaryResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grade.summary", trace.WithAttributes(
		attribute.Int64("grade.student_id", int64(studentID)),
	))
	defer span.End()

	if err := s.checkStudent(ctx, studentID); err != nil {
		return dto.GradesSummaryResponse{}, err
	}

	units, err := s.units.List(ctx)
	if err != nil {
		return dto.GradesSummaryResponse{}, err
	}

	summary := dto.GradesSummaryResponse{
		StudentID:    studentID,
		TotalUnits:   len(units),
		Units:        make([]dto.UnitGradeSummary, 0, len(units)),
		CalculatedAt: s.now().UTC(),
	}

	var scoreSum int
	for _, unit := range units {
		grade := s.computeUnit(ctx, studentID, unit.ID)
		if grade.Final.Approved {
			summary.ApprovedUnits++
		}
		scoreSum += effectiveScore(grade.Final)
		summary.Units = append(summary.Units, dto.UnitGradeSummary{
			UnitID:   unit.ID,
			UnitName: unit.Name,
			Position: unit.Position,
			Grade:    grade,
		})
	}

	summary.PendingUnits = summary.TotalUnits - summary.ApprovedUnits
	if summary.TotalUnits > 0 {
		summary.OverallAverage = round2(float64(scoreSum) / float64(summary.TotalUnits))
		summary.ApprovalRate = round2(100 * float64(summary.ApprovedUnits) / float64(summary.TotalUnits))
	}
	return summary, nil
}

func (s *gradeService) GradeTask(ctx context.Context, unitID uint, graderID *uint, payload dto.TaskGradeRequest) (dto.TaskGradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskGradeResponse{}, err
	}
	if err := s.checkStudent(ctx, payload.StudentID); err != nil {
		return dto.TaskGradeResponse{}, err
	}
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		if repository.IsNotFound(err) {
			return dto.TaskGradeResponse{}, ErrUnitNotFound
		}
		return dto.TaskGradeResponse{}, err
	}

	grade := models.TaskGrade{
		StudentID: payload.StudentID,
		UnitID:    unitID,
		Filename:  s.sanitizer.Sanitize(payload.Filename),
		Score:     payload.Score,
		GradedBy:  graderID,
	}
	if err := s.tasks.Upsert(ctx, &grade); err != nil {
		return dto.TaskGradeResponse{}, err
	}

	if err := s.SyncUnitScore(ctx, payload.StudentID, unitID); err != nil {
		s.logger.Warn().Err(err).
			Uint("student_id", payload.StudentID).
			Uint("unit_id", unitID).
			Msg("unit score refresh failed after task grade")
	}

	return dto.TaskGradeResponse{
		StudentID: payload.StudentID,
		UnitID:    unitID,
		Filename:  grade.Filename,
		Score:     grade.Score,
		UnitGrade: s.computeUnit(ctx, payload.StudentID, unitID),
	}, nil
}

func (s *gradeService) SetOverride(ctx context.Context, unitID uint, setterID *uint, payload dto.OverrideRequest) (dto.OverrideResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.OverrideResponse{}, err
	}
	if payload.Score == nil && payload.Approved == nil {
		return dto.OverrideResponse{}, ErrEmptyOverride
	}
	if err := s.checkStudent(ctx, payload.StudentID); err != nil {
		return dto.OverrideResponse{}, err
	}
	if _, err := s.units.GetByID(ctx, unitID); err != nil {
		if repository.IsNotFound(err) {
			return dto.OverrideResponse{}, ErrUnitNotFound
		}
		return dto.OverrideResponse{}, err
	}

	override := models.GradeOverride{
		StudentID: payload.StudentID,
		UnitID:    unitID,
		Score:     payload.Score,
		Approved:  payload.Approved,
		SetBy:     setterID,
		Comment:   s.sanitizer.Sanitize(payload.Comment),
	}
	if err := s.overrides.Upsert(ctx, &override); err != nil {
		return dto.OverrideResponse{}, err
	}

	if err := s.SyncUnitScore(ctx, payload.StudentID, unitID); err != nil {
		s.logger.Warn().Err(err).
			Uint("student_id", payload.StudentID).
			Uint("unit_id", unitID).
			Msg("unit score refresh failed after override")
	}

	return dto.OverrideResponse{
		StudentID: payload.StudentID,
		UnitID:    unitID,
		Score:     payload.Score,
		Approved:  payload.Approved,
		UnitGrade: s.computeUnit(ctx, payload.StudentID, unitID),
	}, nil
}

// SyncUnitScore recomputes the unit grade and writes the effective
// score into the student's unit progress row.
func (s *gradeService) SyncUnitScore(ctx context.Context, studentID, unitID uint) error {
	grade := s.computeUnit(ctx, studentID, unitID)
	return s.progress.SetScore(ctx, studentID, unitID, effectiveScore(grade.Final), s.now())
}

// computeUnit runs the aggregation. It never fails: each component
// that cannot be read degrades to its neutral value and is flagged
// with a reason, so one broken source cannot take the whole grade
// report down.
func (s *gradeService) computeUnit(ctx context.Context, studentID, unitID uint) dto.UnitGradeResponse {
	grade := dto.UnitGradeResponse{
		StudentID:    studentID,
		UnitID:       unitID,
		CalculatedAt: s.now().UTC(),
	}

	grade.Tasks = dto.GradeComponent{Weight: s.policy.TaskWeight}
	if avg, err := s.tasks.Average(ctx, studentID, unitID); err != nil {
		s.degrade(studentID, unitID, DegradedTaskSource, err)
		grade.Tasks.Degraded = true
		grade.Tasks.Reason = DegradedTaskSource
	} else {
		grade.Tasks.Average = avg
		if count, err := s.tasks.Count(ctx, studentID, unitID); err == nil {
			grade.Tasks.Count = count
		}
	}

	grade.Quizzes = dto.GradeComponent{Weight: s.policy.QuizWeight}
	if avg, err := s.results.AverageByStudentUnit(ctx, studentID, unitID); err != nil {
		s.degrade(studentID, unitID, DegradedQuizSource, err)
		grade.Quizzes.Degraded = true
		grade.Quizzes.Reason = DegradedQuizSource
	} else {
		grade.Quizzes.Average = avg
		if count, err := s.results.CountByStudentUnit(ctx, studentID, unitID); err == nil {
			grade.Quizzes.Count = count
		}
	}

	grade.Time = dto.TimeComponent{
		Weight:        s.policy.TimeWeight,
		TargetMinutes: s.policy.TargetMinutes,
	}
	if progress, err := s.progress.Get(ctx, studentID, unitID); err != nil {
		if !repository.IsNotFound(err) {
			s.degrade(studentID, unitID, DegradedTimeSource, err)
			grade.Time.Degraded = true
			grade.Time.Reason = DegradedTimeSource
		}
	} else {
		grade.Time.Minutes = progress.TimeSpentMin
	}
	grade.Time.Score = timeScore(grade.Time.Minutes, s.policy.TargetMinutes)

	final := s.policy.TaskWeight*componentValue(grade.Tasks) +
		s.policy.QuizWeight*componentValue(grade.Quizzes) +
		s.policy.TimeWeight*float64(grade.Time.Score)

	grade.Final = dto.FinalGrade{
		Score:             clampGrade(int(math.Round(final))),
		ApprovalThreshold: s.policy.ApprovalThreshold,
	}
	grade.Final.Approved = grade.Final.Score >= s.policy.ApprovalThreshold

	if override, err := s.overrides.Get(ctx, studentID, unitID); err == nil {
		grade.Final.OverrideScore = override.Score
		grade.Final.OverrideApplied = override.Score != nil || override.Approved != nil
		if override.Approved != nil {
			grade.Final.Approved = *override.Approved
		}
	} else if !repository.IsNotFound(err) {
		s.logger.Warn().Err(err).
			Uint("student_id", studentID).
			Uint("unit_id", unitID).
			Msg("override lookup failed")
	}

	degraded := grade.Tasks.Degraded || grade.Quizzes.Degraded || grade.Time.Degraded
	observability.GradeComputations().WithLabelValues(strconv.FormatBool(degraded)).Inc()
	return grade
}

func (s *gradeService) checkStudent(ctx context.Context, studentID uint) error {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if repository.IsNotFound(err) {
			return ErrStudentNotFound
		}
		return err
	}
	return nil
}

func (s *gradeService) degrade(studentID, unitID uint, reason string, err error) {
	s.logger.Warn().Err(err).
		Uint("student_id", studentID).
		Uint("unit_id", unitID).
		Str("reason", reason).
		Msg("grade component degraded")
}

// componentValue is the numeric contribution of an average-based
// component. No data and degraded sources both contribute zero.
func componentValue(component dto.GradeComponent) float64 {
	if component.Average == nil {
		return 0
	}
	return *component.Average
}

// timeScore maps study minutes onto a 0-100 scale against the target,
// saturating at 100.
func timeScore(minutes, targetMinutes int) int {
	if targetMinutes < 1 {
		targetMinutes = 1
	}
	if minutes <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(minutes) / float64(targetMinutes)))
	if score > 100 {
		return 100
	}
	return score
}

// effectiveScore is the display score: the override when one is set,
// the computed final otherwise.
func effectiveScore(final dto.FinalGrade) int {
	if final.OverrideScore != nil {
		return *final.OverrideScore
	}
	return final.Score
}

func clampGrade(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
