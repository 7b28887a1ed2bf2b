package handlers

import (
	"net/http"

	"anitrack/internal/services"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ListWatchlist(c echo.Context) error {
	items, err := h.svc.Watchlist.List(c.Request().Context(), currentUser(c).ID, c.QueryParam("status"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, items, "")
}

func (h *Handler) AddToWatchlist(c echo.Context) error {
	var in services.AddWatchlistInput
	if err := bind(c, &in); err != nil {
		return err
	}

	item, err := h.svc.Watchlist.Add(c.Request().Context(), currentUser(c).ID, in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, item, "added to watchlist")
}

func (h *Handler) UpdateWatchlistItem(c echo.Context) error {
	var in services.UpdateWatchlistInput
	if err := bind(c, &in); err != nil {
		return err
	}

	item, err := h.svc.Watchlist.Update(c.Request().Context(), currentUser(c).ID, c.Param("id"), in)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, item, "watchlist updated")
}

func (h *Handler) IncrementEpisode(c echo.Context) error {
	item, err := h.svc.Watchlist.Increment(c.Request().Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, item, "")
}

func (h *Handler) DeleteWatchlistItem(c echo.Context) error {
	if err := h.svc.Watchlist.Delete(c.Request().Context(), currentUser(c).ID, c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "removed from watchlist")
}
