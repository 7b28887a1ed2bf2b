package handlers

import (
	"net/http"

	"anitrack/internal/models"
	"anitrack/internal/repository"

	"github.com/labstack/echo/v4"
)

type roleRequest struct {
	Role models.Role `json:"role"`
}

func (h *Handler) AdminStats(c echo.Context) error {
	stats, err := h.svc.Admin.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, stats, "")
}

func (h *Handler) AdminUsers(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	users, err := h.svc.Admin.Users(c.Request().Context(), repository.UserFilters{
		Query: c.QueryParam("q"),
		Page:  page,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, users, "")
}

func (h *Handler) AdminSetRole(c echo.Context) error {
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.svc.Admin.SetRole(c.Request().Context(), currentUser(c).ID, c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "role updated")
}

func (h *Handler) AdminToggleActive(c echo.Context) error {
	user, err := h.svc.Admin.ToggleActive(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "")
}

func (h *Handler) AdminDeleteReview(c echo.Context) error {
	if err := h.svc.Admin.DeleteReview(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "review deleted")
}

func (h *Handler) AdminDeletePost(c echo.Context) error {
	if err := h.svc.Admin.DeletePost(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "post deleted")
}

func (h *Handler) AdminDeleteClub(c echo.Context) error {
	if err := h.svc.Admin.DeleteClub(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "club deleted")
}
