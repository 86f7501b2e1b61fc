package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/policy"
)

// GenreHandler lists genres for artists composing an event.
type GenreHandler struct {
	Genres GenreReader
	Log    *zap.Logger
}

func NewGenreHandler(genres GenreReader, log *zap.Logger) *GenreHandler {
	return &GenreHandler{Genres: genres, Log: log}
}

// List handles GET /v1/genres.
func (h *GenreHandler) List(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, p.UserID, policy.ListGenres); err != nil {
		return respondError(c, h.Log, err)
	}
	genres, err := h.Genres.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, genres)
}
