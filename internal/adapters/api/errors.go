package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/internal/domain/users"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler renders every error as {"error": "..."}. Domain sentinels map
// to their HTTP status; anything unrecognised is a 500 with a generic body
// and the real error only in the server log.
func (h *Handler) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := h.mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, errorResponse{Error: message})
}

func (h *Handler) mapError(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}

	switch {
	case errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, elections.ErrInvalidInput),
		errors.Is(err, elections.ErrCandidateNotFound),
		errors.Is(err, elections.ErrElectionNotStarted),
		errors.Is(err, elections.ErrElectionEnded),
		errors.Is(err, auctions.ErrInvalidInput),
		errors.Is(err, auctions.ErrBidTooLow),
		errors.Is(err, auctions.ErrAuctionClosed):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, elections.ErrElectionNotFound),
		errors.Is(err, auctions.ErrAuctionNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, users.ErrEmailAlreadyRegistered),
		errors.Is(err, elections.ErrAlreadyVoted):
		return http.StatusConflict, err.Error()

	default:
		return http.StatusInternalServerError, "server error"
	}
}
