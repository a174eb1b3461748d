package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/grading"
	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/observability"
	"github.com/aula-lms/aula-go-api/internal/repository"
)

// ErrQuizNotFound indicates the quiz does not exist.
var ErrQuizNotFound = errors.New("quiz not found")

// ErrQuizUnavailable indicates the current time is outside the quiz
// assignment window.
var ErrQuizUnavailable = errors.New("quiz is not available")

// ErrAttemptsExhausted indicates the attempt budget is spent.
var ErrAttemptsExhausted = errors.New("maximum attempts reached")

// ErrMalformedQuestions indicates the stored question payload cannot
// be interpreted as a question set.
var ErrMalformedQuestions = grading.ErrInvalidQuestionSet

// ErrQuizLocked indicates the question set cannot change because
// attempts were already recorded against it.
var ErrQuizLocked = errors.New("quiz already has recorded attempts")

// GradeSyncer refreshes the stored unit score after a grade-affecting
// write. Implemented by the grade service.
type GradeSyncer interface {
	SyncUnitScore(ctx context.Context, studentID, unitID uint) error
}

// GradeNotifier publishes a notification when a submission is scored.
type GradeNotifier interface {
	NotifyQuizScored(ctx context.Context, studentID uint, quizTitle string, score int)
}

// QuizService runs the attempt state machine and the scoring pipeline.
type QuizService interface {
	// Detail returns the quiz together with the attempt metadata the
	// client needs to decide whether another attempt may start.
	Detail(ctx context.Context, studentID, quizID uint) (dto.QuizDetailResponse, error)
	// Open records a new attempt when the window is open and the
	// budget allows it. This is the only way attempts-used grows,
	// apart from the implicit open performed by a first Submit.
	Open(ctx context.Context, studentID, quizID uint) (dto.QuizAttemptResponse, error)
	// Submit scores an answer set and folds it into the best-known
	// result for the student.
	Submit(ctx context.Context, studentID uint, payload dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error)
	// AttemptState reports the governor's view of a (student, quiz)
	// pair.
	AttemptState(ctx context.Context, studentID, quizID uint) (models.AttemptState, error)
	// ReplaceQuestions swaps the question set. The set is frozen once
	// any attempt exists so recorded scores stay comparable.
	ReplaceQuestions(ctx context.Context, quizID uint, payload dto.QuizQuestionsRequest) (dto.QuizQuestionsResponse, error)
	// GradeManually records a teacher-set score for the student. Unlike
	// automatic submissions it may lower the stored score, and it
	// carries the approval metadata.
	GradeManually(ctx context.Context, quizID, studentID, graderID uint, payload dto.QuizManualGradeRequest) (dto.QuizManualGradeResponse, error)
}

type quizService struct {
	quizzes   repository.QuizRepository
	attempts  repository.AttemptRepository
	results   repository.ResultRepository
	activity  repository.ActivityRepository
	grades    GradeSyncer
	notifier  GradeNotifier
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	locks     *keyedMutex
	now       func() time.Time
}

// NewQuizService constructs the quiz service. grades and notifier are
// optional; a nil value disables the corresponding side effect.
func NewQuizService(quizzes repository.QuizRepository, attempts repository.AttemptRepository, results repository.ResultRepository, activity repository.ActivityRepository, grades GradeSyncer, notifier GradeNotifier, validate *validator.Validate, logger zerolog.Logger) QuizService {
	return &quizService{
		quizzes:   quizzes,
		attempts:  attempts,
		results:   results,
		activity:  activity,
		grades:    grades,
		notifier:  notifier,
		validator: validate,
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		tracer:    otel.Tracer("github.com/aula-lms/aula-go-api/internal/service/quiz"),
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

func (s *quizService) Detail(ctx context.Context, studentID, quizID uint) (dto.QuizDetailResponse, error) {
	quiz, assignment, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizDetailResponse{}, err
	}

	state, err := s.attemptState(ctx, studentID, quizID, assignment)
	if err != nil {
		return dto.QuizDetailResponse{}, err
	}

	response := dto.QuizDetailResponse{
		ID:           quiz.ID,
		UnitID:       quiz.UnitID,
		Title:        quiz.Title,
		Description:  quiz.Description,
		Questions:    quiz.Questions,
		AttemptsUsed: state.Used,
		MaxAttempts:  state.Max,
		CanAttempt:   state.CanOpen(),
	}
	if assignment != nil {
		response.TimeLimitMin = assignment.TimeLimitMin
	}
	return response, nil
}

func (s *quizService) Open(ctx context.Context, studentID, quizID uint) (dto.QuizAttemptResponse, error) {
	quiz, assignment, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	now := s.now()
	if assignment != nil && !assignment.WindowOpen(now) {
		return dto.QuizAttemptResponse{}, ErrQuizUnavailable
	}

	unlock := s.locks.Lock(attemptKey(studentID, quizID))
	defer unlock()

	state, err := s.attemptState(ctx, studentID, quizID, assignment)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}
	if !state.CanOpen() {
		return dto.QuizAttemptResponse{}, ErrAttemptsExhausted
	}

	attempt, err := s.attempts.CreateNext(ctx, studentID, quizID, assignmentUnit(quiz, assignment), now)
	if err != nil {
		return dto.QuizAttemptResponse{}, err
	}

	return dto.NewQuizAttemptResponse(attempt), nil
}

func (s *quizService) Submit(ctx context.Context, studentID uint, payload dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error) {
	ctx, span := s.tracer.Start(ctx, "quiz.submit", trace.WithAttributes(
		attribute.Int64("quiz.id", int64(payload.QuizID)),
		attribute.Int64("quiz.student_id", int64(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.QuizSubmitResponse{}, err
	}

	quiz, assignment, err := s.loadQuiz(ctx, payload.QuizID)
	if err != nil {
		span.RecordError(err)
		return dto.QuizSubmitResponse{}, err
	}

	now := s.now()
	if assignment != nil && !assignment.WindowOpen(now) {
		span.SetStatus(codes.Error, "window_closed")
		return dto.QuizSubmitResponse{}, ErrQuizUnavailable
	}

	// Parse before touching any state so a malformed question set
	// rejects the submission without consuming an attempt.
	questions, err := grading.ParseQuestionSet(decodeQuestions(quiz.Questions))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_question_set")
		return dto.QuizSubmitResponse{}, err
	}

	unitID := assignmentUnit(quiz, assignment)

	unlock := s.locks.Lock(attemptKey(studentID, payload.QuizID))
	defer unlock()

	attempts, err := s.attempts.ListByStudentQuiz(ctx, studentID, payload.QuizID)
	if err != nil {
		span.RecordError(err)
		return dto.QuizSubmitResponse{}, err
	}
	used := len(attempts)

	// Reuse the currently open attempt when one exists; otherwise the
	// submission implicitly opens the next one (tolerated
	// compatibility with clients that skip the open call). The budget
	// check runs before any row is written so a rejection leaves no
	// partial state.
	var attempt models.QuizAttempt
	var open bool
	if used > 0 {
		last := attempts[used-1]
		if last.CompletedAt == nil {
			attempt = last
			open = true
		}
	}

	var maxAttempts *int
	if assignment != nil {
		maxAttempts = assignment.MaxAttempts
	}

	if !open {
		if assignment != nil && !assignment.UnlimitedAttempts() && used >= *assignment.MaxAttempts {
			span.SetStatus(codes.Error, "attempts_exhausted")
			return dto.QuizSubmitResponse{}, ErrAttemptsExhausted
		}
		attempt, err = s.attempts.CreateNext(ctx, studentID, payload.QuizID, unitID, now)
		if err != nil {
			span.RecordError(err)
			return dto.QuizSubmitResponse{}, err
		}
		used++
	}

	items := grading.Normalize(questions, grading.AnswerSet(payload.Answers))
	score := grading.Score(items)
	span.SetAttributes(attribute.Int("quiz.score", score))
	observability.QuizSubmissions().WithLabelValues(fmt.Sprint(quiz.UnitID)).Inc()

	best, err := s.recordResult(ctx, studentID, quiz, unitID, payload.Answers, score)
	if err != nil {
		span.RecordError(err)
		return dto.QuizSubmitResponse{}, err
	}

	if err := s.attempts.Complete(ctx, attempt.ID, now); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to mark attempt complete")
	}

	s.recordSubmissionEvent(ctx, studentID, unitID, quiz.ID, score, now)

	if s.grades != nil {
		if err := s.grades.SyncUnitScore(ctx, studentID, unitID); err != nil {
			s.logger.Warn().Err(err).Uint("unit_id", unitID).Msg("failed to sync unit score after submission")
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyQuizScored(ctx, studentID, quiz.Title, score)
	}

	return dto.QuizSubmitResponse{
		QuizID:       quiz.ID,
		UnitID:       unitID,
		AttemptNum:   attempt.AttemptNum,
		Score:        score,
		BestScore:    best,
		AttemptsUsed: used,
		MaxAttempts:  maxAttempts,
	}, nil
}

func (s *quizService) AttemptState(ctx context.Context, studentID, quizID uint) (models.AttemptState, error) {
	_, assignment, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return models.AttemptState{}, err
	}
	return s.attemptState(ctx, studentID, quizID, assignment)
}

func (s *quizService) ReplaceQuestions(ctx context.Context, quizID uint, payload dto.QuizQuestionsRequest) (dto.QuizQuestionsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizQuestionsResponse{}, err
	}

	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.QuizQuestionsResponse{}, ErrQuizNotFound
		}
		return dto.QuizQuestionsResponse{}, err
	}

	if _, err := grading.ParseQuestionSet(decodeQuestions(payload.Questions)); err != nil {
		return dto.QuizQuestionsResponse{}, err
	}

	count, err := s.attempts.CountByQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizQuestionsResponse{}, err
	}
	if count > 0 {
		return dto.QuizQuestionsResponse{}, ErrQuizLocked
	}

	quiz.Questions = payload.Questions
	if err := s.quizzes.UpdateQuestions(ctx, &quiz); err != nil {
		return dto.QuizQuestionsResponse{}, err
	}

	return dto.QuizQuestionsResponse{
		ID:        quiz.ID,
		UnitID:    quiz.UnitID,
		Questions: quiz.Questions,
	}, nil
}

func (s *quizService) GradeManually(ctx context.Context, quizID, studentID, graderID uint, payload dto.QuizManualGradeRequest) (dto.QuizManualGradeResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuizManualGradeResponse{}, err
	}

	quiz, assignment, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return dto.QuizManualGradeResponse{}, err
	}
	unitID := assignmentUnit(quiz, assignment)
	now := s.now()

	unlock := s.locks.Lock(attemptKey(studentID, quizID))
	defer unlock()

	result, err := s.results.Get(ctx, studentID, quizID)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		result = models.QuizResult{
			StudentID: studentID,
			QuizID:    quizID,
			UnitID:    unitID,
		}
		if err := s.results.Create(ctx, &result); err != nil {
			return dto.QuizManualGradeResponse{}, err
		}
	default:
		return dto.QuizManualGradeResponse{}, err
	}

	result.Score = payload.Score
	result.Manual = true
	result.Comment = payload.Comment
	result.Approved = payload.Approved
	if payload.Approved {
		result.ApprovedBy = &graderID
		result.ApprovedAt = &now
	} else {
		result.ApprovedBy = nil
		result.ApprovedAt = nil
	}
	if err := s.results.Save(ctx, &result); err != nil {
		return dto.QuizManualGradeResponse{}, err
	}

	if s.grades != nil {
		if err := s.grades.SyncUnitScore(ctx, studentID, unitID); err != nil {
			s.logger.Warn().Err(err).Uint("unit_id", unitID).Msg("failed to sync unit score after manual grade")
		}
	}
	if s.notifier != nil && payload.Approved {
		s.notifier.NotifyQuizScored(ctx, studentID, quiz.Title, payload.Score)
	}

	return dto.QuizManualGradeResponse{
		QuizID:     quizID,
		StudentID:  studentID,
		UnitID:     unitID,
		Score:      result.Score,
		Manual:     result.Manual,
		Approved:   result.Approved,
		ApprovedBy: result.ApprovedBy,
		ApprovedAt: result.ApprovedAt,
		Comment:    result.Comment,
	}, nil
}

// recordResult applies the monotonic best-score policy: a later
// automatic submission only overwrites a strictly higher score.
func (s *quizService) recordResult(ctx context.Context, studentID uint, quiz models.Quiz, unitID uint, answers map[string]interface{}, score int) (int, error) {
	encoded, err := json.Marshal(answers)
	if err != nil {
		encoded = nil
	}

	existing, err := s.results.Get(ctx, studentID, quiz.ID)
	switch {
	case err == nil:
		if score <= existing.Score {
			return existing.Score, nil
		}
		existing.Score = score
		existing.Answers = datatypes.JSON(encoded)
		existing.Manual = false
		if err := s.results.Save(ctx, &existing); err != nil {
			return 0, err
		}
		return score, nil
	case repository.IsNotFound(err):
		result := models.QuizResult{
			StudentID: studentID,
			QuizID:    quiz.ID,
			UnitID:    unitID,
			Score:     score,
			Answers:   datatypes.JSON(encoded),
		}
		if err := s.results.Create(ctx, &result); err != nil {
			return 0, err
		}
		return score, nil
	default:
		return 0, err
	}
}

func (s *quizService) recordSubmissionEvent(ctx context.Context, studentID, unitID, quizID uint, score int, now time.Time) {
	event := models.ActivityEvent{
		StudentID:  studentID,
		UnitID:     unitID,
		Kind:       models.ActivitySubmission,
		OccurredAt: now,
		Metadata: datatypes.JSONMap{
			"quiz_id": quizID,
			"score":   score,
		},
	}
	if err := s.activity.Append(ctx, &event); err != nil {
		s.logger.Warn().Err(err).Uint("quiz_id", quizID).Msg("failed to append submission event")
	}
}

func (s *quizService) attemptState(ctx context.Context, studentID, quizID uint, assignment *models.QuizAssignment) (models.AttemptState, error) {
	used, err := s.attempts.Count(ctx, studentID, quizID)
	if err != nil {
		return models.AttemptState{}, err
	}

	state := models.AttemptState{Used: used, Phase: models.AttemptPhaseOpen}
	if used == 0 {
		state.Phase = models.AttemptPhaseNone
	}

	if assignment != nil && !assignment.UnlimitedAttempts() {
		state.Max = assignment.MaxAttempts
		if used >= *assignment.MaxAttempts {
			state.Phase = models.AttemptPhaseExhausted
		}
	}
	return state, nil
}

func (s *quizService) loadQuiz(ctx context.Context, quizID uint) (models.Quiz, *models.QuizAssignment, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		if repository.IsNotFound(err) {
			return models.Quiz{}, nil, ErrQuizNotFound
		}
		return models.Quiz{}, nil, err
	}

	assignment, err := s.quizzes.LatestAssignment(ctx, quizID, quiz.UnitID)
	if err != nil {
		if repository.IsNotFound(err) {
			// No assignment row means no window and no budget.
			return quiz, nil, nil
		}
		return models.Quiz{}, nil, err
	}
	return quiz, &assignment, nil
}

func assignmentUnit(quiz models.Quiz, assignment *models.QuizAssignment) uint {
	if assignment != nil {
		return assignment.UnitID
	}
	return quiz.UnitID
}

func attemptKey(studentID, quizID uint) string {
	return fmt.Sprintf("%d:%d", studentID, quizID)
}

func decodeQuestions(raw datatypes.JSON) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return string(raw)
	}
	return payload
}
