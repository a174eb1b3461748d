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

// ActivityHandler records and lists study activity events.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Post("/", h.track)
	router.Get("/", h.history)
}

func (h *ActivityHandler) track(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ActivityTrackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	event, err := h.service.Track(c.UserContext(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity recorded", event)
}

func (h *ActivityHandler) history(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	unitID, err := parseQueryUint(c, "unit_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid unit_id")
	}
	from, err := parseQueryTime(c, "from")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	events, err := h.service.History(c.UserContext(), studentID, unitID, from, to)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "activity history", events)
}

func (h *ActivityHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrInvalidActivityKind):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity kind")
	case errors.Is(err, service.ErrUnitNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "unit not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
