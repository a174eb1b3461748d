package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/aula-lms/aula-go-api/internal/dto"
	"github.com/aula-lms/aula-go-api/internal/service"
	"github.com/aula-lms/aula-go-api/internal/utils"
)

// AnalyticsHandler exposes the student activity analytics endpoints.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler builds an analytics handler instance.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/summary", h.summary)
	router.Get("/units", h.units)
}

func (h *AnalyticsHandler) summary(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var req dto.AnalyticsSummaryRequest
	unitID, err := parseQueryUint(c, "unit_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid unit_id")
	}
	req.UnitID = unitID

	if req.From, err = parseQueryTime(c, "from"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if req.To, err = parseQueryTime(c, "to"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.Summary(c.UserContext(), studentID, req)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute analytics summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "analytics summary computed", summary)
}

func (h *AnalyticsHandler) units(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	breakdown, err := h.service.Units(c.UserContext(), studentID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute unit analytics")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "unit analytics computed", breakdown)
}
