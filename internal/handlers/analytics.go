package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) MyStats(c echo.Context) error {
	stats, err := h.svc.Analytics.UserStats(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, stats, "")
}

func (h *Handler) ClubPollStats(c echo.Context) error {
	tallies, err := h.svc.Analytics.ClubPolls(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, tallies, "")
}
