package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/aula-lms/aula-go-api/internal/models"
	"github.com/aula-lms/aula-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

type pairKey struct {
	studentID uint
	otherID   uint
}

// fakeQuizRepo serves a single quiz with an optional assignment.
type fakeQuizRepo struct {
	quiz       models.Quiz
	assignment *models.QuizAssignment
	err        error
}

func (f *fakeQuizRepo) GetByID(_ context.Context, id uint) (models.Quiz, error) {
	if f.err != nil {
		return models.Quiz{}, f.err
	}
	if id != f.quiz.ID {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return f.quiz, nil
}

func (f *fakeQuizRepo) ListByUnit(_ context.Context, unitID uint) ([]models.Quiz, error) {
	if f.quiz.UnitID == unitID {
		return []models.Quiz{f.quiz}, nil
	}
	return nil, nil
}

func (f *fakeQuizRepo) UpdateQuestions(_ context.Context, quiz *models.Quiz) error {
	f.quiz = *quiz
	return nil
}

func (f *fakeQuizRepo) LatestAssignment(_ context.Context, quizID, unitID uint) (models.QuizAssignment, error) {
	if f.assignment == nil || f.assignment.QuizID != quizID {
		return models.QuizAssignment{}, gorm.ErrRecordNotFound
	}
	return *f.assignment, nil
}

// fakeAttemptRepo keeps attempts in memory with gapless numbering.
type fakeAttemptRepo struct {
	attempts []models.QuizAttempt
	nextID   uint
}

func (f *fakeAttemptRepo) Count(_ context.Context, studentID, quizID uint) (int, error) {
	count := 0
	for _, attempt := range f.attempts {
		if attempt.StudentID == studentID && attempt.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) CountByQuiz(_ context.Context, quizID uint) (int, error) {
	count := 0
	for _, attempt := range f.attempts {
		if attempt.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) CreateNext(ctx context.Context, studentID, quizID, unitID uint, startedAt time.Time) (models.QuizAttempt, error) {
	count, _ := f.Count(ctx, studentID, quizID)
	f.nextID++
	attempt := models.QuizAttempt{
		ID:         f.nextID,
		StudentID:  studentID,
		QuizID:     quizID,
		UnitID:     unitID,
		AttemptNum: count + 1,
		StartedAt:  startedAt,
	}
	f.attempts = append(f.attempts, attempt)
	return attempt, nil
}

func (f *fakeAttemptRepo) Complete(_ context.Context, attemptID uint, completedAt time.Time) error {
	for i := range f.attempts {
		if f.attempts[i].ID == attemptID {
			f.attempts[i].CompletedAt = &completedAt
		}
	}
	return nil
}

func (f *fakeAttemptRepo) ListByStudentQuiz(_ context.Context, studentID, quizID uint) ([]models.QuizAttempt, error) {
	var out []models.QuizAttempt
	for _, attempt := range f.attempts {
		if attempt.StudentID == studentID && attempt.QuizID == quizID {
			out = append(out, attempt)
		}
	}
	return out, nil
}

// fakeResultRepo keeps best-known results keyed by (student, quiz).
type fakeResultRepo struct {
	results map[pairKey]models.QuizResult
	nextID  uint
	err     error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{results: make(map[pairKey]models.QuizResult)}
}

func (f *fakeResultRepo) Get(_ context.Context, studentID, quizID uint) (models.QuizResult, error) {
	if f.err != nil {
		return models.QuizResult{}, f.err
	}
	result, ok := f.results[pairKey{studentID, quizID}]
	if !ok {
		return models.QuizResult{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (f *fakeResultRepo) Create(_ context.Context, result *models.QuizResult) error {
	f.nextID++
	result.ID = f.nextID
	f.results[pairKey{result.StudentID, result.QuizID}] = *result
	return nil
}

func (f *fakeResultRepo) Save(_ context.Context, result *models.QuizResult) error {
	f.results[pairKey{result.StudentID, result.QuizID}] = *result
	return nil
}

func (f *fakeResultRepo) ListByStudentUnit(_ context.Context, studentID, unitID uint) ([]models.QuizResult, error) {
	var out []models.QuizResult
	for _, result := range f.results {
		if result.StudentID == studentID && result.UnitID == unitID {
			out = append(out, result)
		}
	}
	return out, nil
}

func (f *fakeResultRepo) AverageByStudentUnit(ctx context.Context, studentID, unitID uint) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	results, _ := f.ListByStudentUnit(ctx, studentID, unitID)
	if len(results) == 0 {
		return nil, nil
	}
	var sum float64
	for _, result := range results {
		sum += float64(result.Score)
	}
	avg := sum / float64(len(results))
	return &avg, nil
}

func (f *fakeResultRepo) CountByStudentUnit(ctx context.Context, studentID, unitID uint) (int, error) {
	results, _ := f.ListByStudentUnit(ctx, studentID, unitID)
	return len(results), nil
}

// fakeActivityRepo stores events in memory.
type fakeActivityRepo struct {
	events []models.ActivityEvent
	nextID uint
	err    error
}

func (f *fakeActivityRepo) Append(_ context.Context, event *models.ActivityEvent) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeActivityRepo) Query(_ context.Context, filter repository.ActivityFilter) ([]models.ActivityEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ActivityEvent
	for _, event := range f.events {
		if matchesFilter(event, filter) {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) SumDuration(ctx context.Context, filter repository.ActivityFilter) (int, error) {
	events, err := f.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, event := range events {
		if event.DurationMin != nil {
			total += *event.DurationMin
		}
	}
	return total, nil
}

func matchesFilter(event models.ActivityEvent, filter repository.ActivityFilter) bool {
	if event.StudentID != filter.StudentID {
		return false
	}
	if filter.UnitID != nil && event.UnitID != *filter.UnitID {
		return false
	}
	if filter.From != nil && event.OccurredAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && event.OccurredAt.After(*filter.To) {
		return false
	}
	return true
}

// fakeProgressRepo keeps unit progress rows keyed by (student, unit).
type fakeProgressRepo struct {
	rows map[pairKey]models.UnitProgress
	err  error
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[pairKey]models.UnitProgress)}
}

func (f *fakeProgressRepo) Get(_ context.Context, studentID, unitID uint) (models.UnitProgress, error) {
	if f.err != nil {
		return models.UnitProgress{}, f.err
	}
	row, ok := f.rows[pairKey{studentID, unitID}]
	if !ok {
		return models.UnitProgress{}, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeProgressRepo) GetOrCreate(_ context.Context, studentID, unitID uint, now time.Time) (models.UnitProgress, error) {
	key := pairKey{studentID, unitID}
	if row, ok := f.rows[key]; ok {
		return row, nil
	}
	row := models.UnitProgress{StudentID: studentID, UnitID: unitID, LastActivityAt: now}
	f.rows[key] = row
	return row, nil
}

func (f *fakeProgressRepo) AddTime(ctx context.Context, studentID, unitID uint, minutes int, now time.Time) error {
	row, _ := f.GetOrCreate(ctx, studentID, unitID, now)
	row.TimeSpentMin += minutes
	row.LastActivityAt = now
	f.rows[pairKey{studentID, unitID}] = row
	return nil
}

func (f *fakeProgressRepo) SetScore(ctx context.Context, studentID, unitID uint, score int, now time.Time) error {
	row, _ := f.GetOrCreate(ctx, studentID, unitID, now)
	row.Score = score
	row.LastActivityAt = now
	f.rows[pairKey{studentID, unitID}] = row
	return nil
}

func (f *fakeProgressRepo) SetCompletion(ctx context.Context, studentID, unitID uint, pct int, now time.Time) error {
	row, _ := f.GetOrCreate(ctx, studentID, unitID, now)
	row.CompletionPct = pct
	row.LastActivityAt = now
	f.rows[pairKey{studentID, unitID}] = row
	return nil
}

func (f *fakeProgressRepo) ListByStudent(_ context.Context, studentID uint) ([]models.UnitProgress, error) {
	var out []models.UnitProgress
	for _, row := range f.rows {
		if row.StudentID == studentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) CountCompleted(_ context.Context, studentID uint) (int, error) {
	count := 0
	for _, row := range f.rows {
		if row.StudentID == studentID && row.CompletionPct == 100 {
			count++
		}
	}
	return count, nil
}

// fakeTaskGradeRepo keeps task grades in memory.
type fakeTaskGradeRepo struct {
	grades map[pairKey][]models.TaskGrade
	err    error
}

func newFakeTaskGradeRepo() *fakeTaskGradeRepo {
	return &fakeTaskGradeRepo{grades: make(map[pairKey][]models.TaskGrade)}
}

func (f *fakeTaskGradeRepo) Upsert(_ context.Context, grade *models.TaskGrade) error {
	if f.err != nil {
		return f.err
	}
	key := pairKey{grade.StudentID, grade.UnitID}
	for i, existing := range f.grades[key] {
		if existing.Filename == grade.Filename {
			f.grades[key][i] = *grade
			return nil
		}
	}
	f.grades[key] = append(f.grades[key], *grade)
	return nil
}

func (f *fakeTaskGradeRepo) Average(_ context.Context, studentID, unitID uint) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	grades := f.grades[pairKey{studentID, unitID}]
	if len(grades) == 0 {
		return nil, nil
	}
	var sum float64
	for _, grade := range grades {
		sum += float64(grade.Score)
	}
	avg := sum / float64(len(grades))
	return &avg, nil
}

func (f *fakeTaskGradeRepo) Count(_ context.Context, studentID, unitID uint) (int, error) {
	return len(f.grades[pairKey{studentID, unitID}]), nil
}

func (f *fakeTaskGradeRepo) ListByStudentUnit(_ context.Context, studentID, unitID uint) ([]models.TaskGrade, error) {
	return f.grades[pairKey{studentID, unitID}], nil
}

// fakeOverrideRepo keeps one override per (student, unit).
type fakeOverrideRepo struct {
	overrides map[pairKey]models.GradeOverride
}

func newFakeOverrideRepo() *fakeOverrideRepo {
	return &fakeOverrideRepo{overrides: make(map[pairKey]models.GradeOverride)}
}

func (f *fakeOverrideRepo) Get(_ context.Context, studentID, unitID uint) (models.GradeOverride, error) {
	override, ok := f.overrides[pairKey{studentID, unitID}]
	if !ok {
		return models.GradeOverride{}, gorm.ErrRecordNotFound
	}
	return override, nil
}

func (f *fakeOverrideRepo) Upsert(_ context.Context, override *models.GradeOverride) error {
	key := pairKey{override.StudentID, override.UnitID}
	existing, ok := f.overrides[key]
	if !ok {
		f.overrides[key] = *override
		return nil
	}
	if override.Score != nil {
		existing.Score = override.Score
	}
	if override.Approved != nil {
		existing.Approved = override.Approved
	}
	if override.SetBy != nil {
		existing.SetBy = override.SetBy
	}
	if override.Comment != "" {
		existing.Comment = override.Comment
	}
	f.overrides[key] = existing
	return nil
}

// fakeUnitRepo serves a fixed unit list.
type fakeUnitRepo struct {
	units []models.Unit
}

func (f *fakeUnitRepo) GetByID(_ context.Context, id uint) (models.Unit, error) {
	for _, unit := range f.units {
		if unit.ID == id {
			return unit, nil
		}
	}
	return models.Unit{}, gorm.ErrRecordNotFound
}

func (f *fakeUnitRepo) List(_ context.Context) ([]models.Unit, error) {
	return f.units, nil
}

// fakeStudentRepo serves a fixed student set.
type fakeStudentRepo struct {
	students []models.Student
}

func (f *fakeStudentRepo) GetByID(_ context.Context, id uint) (models.Student, error) {
	for _, student := range f.students {
		if student.ID == id {
			return student, nil
		}
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

func (f *fakeStudentRepo) GetByUsername(_ context.Context, username string) (models.Student, error) {
	for _, student := range f.students {
		if student.Username == username {
			return student, nil
		}
	}
	return models.Student{}, gorm.ErrRecordNotFound
}

// recordingSyncer captures SyncUnitScore calls.
type recordingSyncer struct {
	calls []pairKey
	err   error
}

func (r *recordingSyncer) SyncUnitScore(_ context.Context, studentID, unitID uint) error {
	r.calls = append(r.calls, pairKey{studentID, unitID})
	return r.err
}

// recordingNotifier captures grade notifications.
type recordingNotifier struct {
	titles []string
	scores []int
}

func (r *recordingNotifier) NotifyQuizScored(_ context.Context, _ uint, quizTitle string, score int) {
	r.titles = append(r.titles, quizTitle)
	r.scores = append(r.scores, score)
}
