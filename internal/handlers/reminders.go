package handlers

import (
	"net/http"

	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ListReminders(c echo.Context) error {
	var active bool
	if err := echo.QueryParamsBinder(c).Bool("active", &active).BindError(); err != nil {
		return badRequest("active must be a boolean")
	}

	reminders, err := h.svc.Reminders.List(c.Request().Context(), currentUser(c).ID, active)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, reminders, "")
}

func (h *Handler) CreateReminder(c echo.Context) error {
	var in services.ReminderInput
	if err := bind(c, &in); err != nil {
		return err
	}

	reminder, err := h.svc.Reminders.Create(c.Request().Context(), currentUser(c).ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, reminder, "reminder created")
}

func (h *Handler) UpdateReminder(c echo.Context) error {
	var in services.UpdateReminderInput
	if err := bind(c, &in); err != nil {
		return err
	}

	reminder, err := h.svc.Reminders.Update(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, reminder, "reminder updated")
}

func (h *Handler) DeleteReminder(c echo.Context) error {
	if err := h.svc.Reminders.Delete(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "reminder deleted")
}

func (h *Handler) ToggleReminder(c echo.Context) error {
	reminder, err := h.svc.Reminders.Toggle(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, reminder, "")
}
