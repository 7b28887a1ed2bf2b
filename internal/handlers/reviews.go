package handlers

import (
	"net/http"

	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) CreateReview(c echo.Context) error {
	var in services.ReviewInput
	if err := bind(c, &in); err != nil {
		return err
	}

	review, err := h.svc.Reviews.Create(c.Request().Context(), currentUser(c).ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, review, "review posted")
}

func (h *Handler) MyReviews(c echo.Context) error {
	reviews, err := h.svc.Reviews.Mine(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, reviews, "")
}

func (h *Handler) UpdateReview(c echo.Context) error {
	var in services.ReviewInput
	if err := bind(c, &in); err != nil {
		return err
	}

	review, err := h.svc.Reviews.Update(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, review, "review updated")
}

func (h *Handler) DeleteReview(c echo.Context) error {
	user := currentUser(c)
	if err := h.svc.Reviews.Delete(c.Request().Context(), user.ID, c.Param("id"), user.IsAdmin()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "review deleted")
}

func (h *Handler) LikeReview(c echo.Context) error {
	review, err := h.svc.Reviews.ToggleLike(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, review, "")
}
