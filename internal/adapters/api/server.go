// Package api exposes the application services over a JSON REST surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/internal/domain/users"
	"github.com/electrabid/backend/pkg/auth"
)

// Handler wires the domain services into echo routes.
type Handler struct {
	users     *users.Service
	elections *elections.Service
	auctions  *auctions.Service
	signer    *auth.Signer
	logger    *slog.Logger
}

func NewHandler(
	userService *users.Service,
	electionService *elections.Service,
	auctionService *auctions.Service,
	signer *auth.Signer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		users:     userService,
		elections: electionService,
		auctions:  auctionService,
		signer:    signer,
		logger:    logger,
	}
}

// RegisterRoutes mounts every endpoint on the echo instance and installs the
// error handler that renders the {"error": "..."} body.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.HTTPErrorHandler = h.errorHandler

	requireAuth := auth.RequireAuth(h.signer)
	requireAdmin := auth.RequireAdmin()

	e.GET("/health", h.Health)

	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)

	e.GET("/elections", h.ListElections)
	e.POST("/elections", h.CreateElection, requireAuth, requireAdmin)
	e.DELETE("/elections/:id", h.DeleteElection, requireAuth, requireAdmin)
	e.GET("/elections/:id/results", h.ElectionResults)
	e.POST("/votes", h.CastVote, requireAuth)

	e.GET("/auctions", h.ListAuctions)
	e.POST("/auctions", h.CreateAuction, requireAuth, requireAdmin)
	e.DELETE("/auctions/:id", h.DeleteAuction, requireAuth, requireAdmin)
	e.GET("/auctions/:id/bids", h.ListBids)
	e.POST("/auctions/:id/bids", h.PlaceBid, requireAuth)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
