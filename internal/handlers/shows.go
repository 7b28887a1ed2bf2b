package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) SearchShows(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return badRequest("limit must be an integer")
	}

	shows, err := h.svc.Shows.Search(c.Request().Context(), c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, shows, "")
}

func (h *Handler) TopShows(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return badRequest("limit must be an integer")
	}

	shows, err := h.svc.Shows.Top(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, shows, "")
}

// GetShow accepts a local show id or a MyAnimeList id.
func (h *Handler) GetShow(c echo.Context) error {
	show, err := h.svc.Shows.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, show, "")
}

func (h *Handler) ShowReviews(c echo.Context) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}

	reviews, err := h.svc.Shows.Reviews(c.Request().Context(), c.Param("id"), page)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, reviews, "")
}
