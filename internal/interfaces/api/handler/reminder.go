package handler

import (
	"errors"
	"medreminder/internal/application/dto"
	"medreminder/internal/application/service"
	"medreminder/internal/domain/entity"
	appErrors "medreminder/internal/pkg/errors"
	"medreminder/internal/pkg/logger"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReminderHandler serves the Reminder Store REST API.
type ReminderHandler struct {
	reminderService service.ReminderService
	background      service.BackgroundScheduler
	log             logger.Logger
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService service.ReminderService, background service.BackgroundScheduler, log logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		background:      background,
		log:             log,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

// AlarmsResponse describes the background scheduler's current state.
type AlarmsResponse struct {
	Alarms []entity.ScheduledAlarm `json:"alarms"`
	Active []string                `json:"active"`
}

// List handles GET /api/reminders?user_id=. owner is accepted as an alias.
func (h *ReminderHandler) List(c echo.Context) error {
	owner := c.QueryParam("user_id")
	if owner == "" {
		owner = c.QueryParam("owner")
	}
	reminders, err := h.reminderService.List(c.Request().Context(), owner)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderPayloadList(reminders))
}

// Get handles GET /api/reminders/:id.
func (h *ReminderHandler) Get(c echo.Context) error {
	reminder, err := h.reminderService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderPayload(reminder))
}

// Create handles POST /api/reminders.
func (h *ReminderHandler) Create(c echo.Context) error {
	var req dto.CreateReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	reminder, err := h.reminderService.Create(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto.ToReminderPayload(reminder))
}

// Update handles PUT /api/reminders/:id.
func (h *ReminderHandler) Update(c echo.Context) error {
	var req dto.UpdateReminderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	req.ID = c.Param("id")
	reminder, err := h.reminderService.Update(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.ToReminderPayload(reminder))
}

// Delete handles DELETE /api/reminders/:id.
func (h *ReminderHandler) Delete(c echo.Context) error {
	if err := h.reminderService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Alarms handles GET /api/alarms.
func (h *ReminderHandler) Alarms(c echo.Context) error {
	return c.JSON(http.StatusOK, AlarmsResponse{
		Alarms: h.background.Alarms(),
		Active: h.background.ActiveAlarms(),
	})
}

func (h *ReminderHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, appErrors.ErrReminderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, appErrors.ErrValidation),
		errors.Is(err, appErrors.ErrInvalidTimeOfDay),
		errors.Is(err, appErrors.ErrInvalidFrequency):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	default:
		h.log.Error("Reminder request failed", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: appErrors.ErrInternalServer.Error()})
	}
}
