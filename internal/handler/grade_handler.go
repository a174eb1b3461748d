package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/service"
	"github.com/aula-lms/aula-go-api/internal/utils"
)

// GradeHandler exposes unit grade computation and the teacher-facing
// grading endpoints.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// RegisterStudent attaches the read endpoints to the student group.
func (h *GradeHandler) RegisterStudent(units fiber.Router, grades fiber.Router) {
	units.Get("/:id/grade", h.unitGrade)
	grades.Get("/summary", h.summary)
}

// RegisterTeacher attaches the write endpoints to the teacher group.
func (h *GradeHandler) RegisterTeacher(units fiber.Router) {
	units.Put("/:id/tasks/grade", h.gradeTask)
	units.Put("/:id/override", h.setOverride)
}

func (h *GradeHandler) unitGrade(c *fiber.Ctx) error {
	unitID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID, err := h.targetStudent(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	grade, err := h.service.UnitGrade(c.UserContext(), studentID, unitID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "unit grade computed", grade)
}

func (h *GradeHandler) summary(c *fiber.Ctx) error {
	studentID, err := h.targetStudent(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summary, err := h.service.Summary(c.UserContext(), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grades summary computed", summary)
}

func (h *GradeHandler) gradeTask(c *fiber.Ctx) error {
	unitID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TaskGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	graderID := graderFromContext(c)
	result, err := h.service.GradeTask(c.UserContext(), unitID, graderID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task graded", result)
}

func (h *GradeHandler) setOverride(c *fiber.Ctx) error {
	unitID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.OverrideRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	setterID := graderFromContext(c)
	result, err := h.service.SetOverride(c.UserContext(), unitID, setterID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "override stored", result)
}

// targetStudent resolves whose grades are requested: teachers and
// admins may pass ?student_id=, students always read their own.
func (h *GradeHandler) targetStudent(c *fiber.Ctx) (uint, error) {
	role := userRoleFromContext(c)
	if role == "teacher" || role == "admin" {
		if target, err := parseQueryUint(c, "student_id"); err != nil {
			return 0, errors.New("invalid student_id")
		} else if target != nil {
			return *target, nil
		}
	}
	return userIDFromContext(c), nil
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUnitNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "unit not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrEmptyOverride):
		return utils.SendError(c, fiber.StatusBadRequest, "override must set a score or an approval flag")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func graderFromContext(c *fiber.Ctx) *uint {
	if id := userIDFromContext(c); id > 0 {
		return &id
	}
	return nil
}
