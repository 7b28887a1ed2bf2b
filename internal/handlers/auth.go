package handlers

import (
	"net/http"

	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) Register(c echo.Context) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}

	result, err := h.svc.Users.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, result, "account created")
}

func (h *Handler) Login(c echo.Context) error {
	var in services.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}

	result, err := h.svc.Users.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, result, "")
}

func (h *Handler) Me(c echo.Context) error {
	return respond(c, http.StatusOK, currentUser(c), "")
}

func (h *Handler) UpdateMe(c echo.Context) error {
	var in services.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}

	user, err := h.svc.Users.UpdateProfile(c.Request().Context(), currentUser(c).ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user, "profile updated")
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var in services.ChangePasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}

	if err := h.svc.Users.ChangePassword(c.Request().Context(), currentUser(c).ID, in); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "password changed")
}
