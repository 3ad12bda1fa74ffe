package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/pkg/auth"
)

func (h *Handler) ListAuctions(c echo.Context) error {
	list, err := h.auctions.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

type createAuctionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartingBid int64      `json:"startingBid"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

type createAuctionResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (h *Handler) CreateAuction(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid token")
	}

	var req createAuctionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	auction, err := h.auctions.Create(c.Request().Context(), auctions.CreateAuctionCommand{
		Title:       req.Title,
		Description: req.Description,
		StartingBid: req.StartingBid,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedBy:   userID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createAuctionResponse{
		ID:    auction.ID.String(),
		Title: auction.Title,
	})
}

func (h *Handler) DeleteAuction(c echo.Context) error {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return auctions.ErrAuctionNotFound
	}
	if err := h.auctions.Delete(c.Request().Context(), auctionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBids(c echo.Context) error {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return auctions.ErrAuctionNotFound
	}
	bids, err := h.auctions.ListBids(c.Request().Context(), auctionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bids)
}

type placeBidRequest struct {
	Amount int64 `json:"amount"`
}

type placeBidResponse struct {
	BidID     string `json:"bidId"`
	AuctionID string `json:"auctionId"`
	Amount    int64  `json:"amount"`
}

func (h *Handler) PlaceBid(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid token")
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return auctions.ErrAuctionNotFound
	}

	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	bid, err := h.auctions.PlaceBid(c.Request().Context(), auctions.PlaceBidCommand{
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    req.Amount,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, placeBidResponse{
		BidID:     bid.ID.String(),
		AuctionID: bid.AuctionID.String(),
		Amount:    bid.Amount,
	})
}
