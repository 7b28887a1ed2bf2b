package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type markedResponse struct {
	Updated int `json:"updated"`
}

func (h *Handler) ListNotifications(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return badRequest("limit must be an integer")
	}

	items, err := h.svc.Notifications.List(c.Request().Context(), currentUser(c).ID, limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, items, "")
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	if err := h.svc.Notifications.MarkRead(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "notification marked as read")
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	n, err := h.svc.Notifications.MarkAllRead(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, markedResponse{Updated: n}, "")
}

// NotificationsSocket upgrades to a websocket that receives in-app reminder
// notifications for the authenticated user until either side disconnects.
func (h *Handler) NotificationsSocket(c echo.Context) error {
	if h.hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live notifications are disabled")
	}
	if err := h.hub.Serve(c.Response(), c.Request(), currentUser(c).ID); err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
	}
	return nil
}
