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

// QuizHandler manages quiz detail, attempt and submission endpoints.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler builds a quiz handler instance.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Get("/:id", h.detail)
	router.Post("/:id/open", h.open)
	router.Post("/:id/submit", h.submit)
}

// RegisterTeacher attaches the authoring routes to the teacher group.
func (h *QuizHandler) RegisterTeacher(router fiber.Router) {
	router.Put("/:id/questions", h.replaceQuestions)
	router.Post("/:id/students/:studentId/grade", h.gradeManually)
}

func (h *QuizHandler) detail(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	detail, err := h.service.Detail(c.UserContext(), studentID, quizID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz retrieved", detail)
}

func (h *QuizHandler) open(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	attempt, err := h.service.Open(c.UserContext(), studentID, quizID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt opened", attempt)
}

func (h *QuizHandler) submit(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.QuizSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.QuizID = quizID

	result, err := h.service.Submit(c.UserContext(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz scored", result)
}

func (h *QuizHandler) replaceQuestions(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuizQuestionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ReplaceQuestions(c.UserContext(), quizID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions replaced", result)
}

func (h *QuizHandler) gradeManually(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	graderID := userIDFromContext(c)
	if graderID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.QuizManualGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.GradeManually(c.UserContext(), quizID, studentID, graderID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "quiz graded", result)
}

func (h *QuizHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuizNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "quiz not found")
	case errors.Is(err, service.ErrQuizUnavailable):
		return utils.SendError(c, fiber.StatusForbidden, "quiz is not available")
	case errors.Is(err, service.ErrAttemptsExhausted):
		return utils.SendError(c, fiber.StatusConflict, "maximum attempts reached")
	case errors.Is(err, service.ErrQuizLocked):
		return utils.SendError(c, fiber.StatusConflict, "quiz already has recorded attempts")
	case errors.Is(err, service.ErrMalformedQuestions):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "quiz questions are malformed")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
