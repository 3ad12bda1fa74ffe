package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/electrabid/backend/internal/domain/elections"
	"github.com/electrabid/backend/pkg/auth"
)

func (h *Handler) ListElections(c echo.Context) error {
	list, err := h.elections.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

type createElectionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Candidates  []string   `json:"candidates"`
}

type createElectionResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (h *Handler) CreateElection(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid token")
	}

	var req createElectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	election, err := h.elections.Create(c.Request().Context(), elections.CreateElectionCommand{
		Title:          req.Title,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		CandidateNames: req.Candidates,
		CreatedBy:      userID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createElectionResponse{
		ID:    election.ID.String(),
		Title: election.Title,
	})
}

func (h *Handler) DeleteElection(c echo.Context) error {
	electionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return elections.ErrElectionNotFound
	}
	if err := h.elections.Delete(c.Request().Context(), electionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ElectionResults(c echo.Context) error {
	electionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return elections.ErrElectionNotFound
	}
	results, err := h.elections.Results(c.Request().Context(), electionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

type castVoteRequest struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
}

type castVoteResponse struct {
	VoteID      string `json:"voteId"`
	ReceiptCode string `json:"receiptCode"`
}

func (h *Handler) CastVote(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "invalid token")
	}

	var req castVoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	electionID, err := uuid.Parse(req.ElectionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid election_id")
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid candidate_id")
	}

	receipt, err := h.elections.CastVote(c.Request().Context(), elections.CastVoteCommand{
		ElectionID:  electionID,
		CandidateID: candidateID,
		UserID:      userID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, castVoteResponse{
		VoteID:      receipt.VoteID.String(),
		ReceiptCode: receipt.ReceiptCode,
	})
}
