package auctions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
	"github.com/electrabid/backend/pkg/events"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidTooLow       = errors.New("bid must be strictly greater than the current bid")
	ErrAuctionClosed   = errors.New("auction has ended")
	ErrInvalidInput    = errors.New("invalid input")
)

// CreateAuctionCommand carries the admin request to open an auction.
type CreateAuctionCommand struct {
	Title       string
	Description string
	StartingBid int64
	StartTime   *time.Time
	EndTime     *time.Time
	CreatedBy   uuid.UUID
}

// PlaceBidCommand carries a bid request.
type PlaceBidCommand struct {
	AuctionID uuid.UUID
	UserID    uuid.UUID
	Amount    int64
}

// Service implements auction listing, administration and bid placement.
type Service struct {
	auctionRepo AuctionRepository
	bidRepo     BidRepository
	outboxRepo  events.OutboxRepository
	txManager   database.TransactionManager
}

func NewService(
	auctionRepo AuctionRepository,
	bidRepo BidRepository,
	outboxRepo events.OutboxRepository,
	txManager database.TransactionManager,
) *Service {
	return &Service{
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
	}
}

// List returns all auctions, newest first.
func (s *Service) List(ctx context.Context) ([]*Auction, error) {
	list, err := s.auctionRepo.ListAuctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return list, nil
}

// Create opens a new auction with the starting price as its current bid.
func (s *Service) Create(ctx context.Context, cmd CreateAuctionCommand) (*Auction, error) {
	if err := validateAuction(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	auction := &Auction{
		ID:          uuid.New(),
		Title:       cmd.Title,
		Description: cmd.Description,
		StartTime:   cmd.StartTime,
		EndTime:     cmd.EndTime,
		CurrentBid:  cmd.StartingBid,
		CreatedBy:   cmd.CreatedBy,
		CreatedAt:   time.Now(),
	}
	if err := s.auctionRepo.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}
	return auction, nil
}

// Delete removes an auction and its bids.
func (s *Service) Delete(ctx context.Context, auctionID uuid.UUID) error {
	found, err := s.auctionRepo.DeleteAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	if !found {
		return ErrAuctionNotFound
	}
	return nil
}

// ListBids returns the bid history for an auction, newest first.
func (s *Service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error) {
	if _, err := s.auctionRepo.GetAuctionByID(ctx, auctionID); err != nil {
		return nil, err
	}
	bids, err := s.bidRepo.ListBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	return bids, nil
}

type bidPlacedEvent struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	PlacedAt  time.Time `json:"placed_at"`
}

// PlaceBid accepts a bid strictly greater than the auction's current bid.
//
// The auction row is locked with SELECT ... FOR UPDATE, so two concurrent
// bids serialise: the second one re-reads the updated current bid and fails
// the comparison if it no longer exceeds it. The bid row, the auction row
// update and the outbox event commit atomically.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (*Bid, error) {
	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	auction, err := s.auctionRepo.GetAuctionByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if auction.IsClosedAt(now) {
		return nil, ErrAuctionClosed
	}
	if cmd.Amount <= auction.CurrentBid {
		return nil, ErrBidTooLow
	}

	bid := &Bid{
		ID:        uuid.New(),
		AuctionID: cmd.AuctionID,
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		CreatedAt: now,
	}
	if err := s.bidRepo.SaveBid(ctx, tx, bid); err != nil {
		return nil, fmt.Errorf("failed to save bid: %w", err)
	}

	if err := s.auctionRepo.UpdateCurrentBid(ctx, tx, cmd.AuctionID, cmd.Amount, cmd.UserID); err != nil {
		return nil, fmt.Errorf("failed to update current bid: %w", err)
	}

	payload, err := json.Marshal(bidPlacedEvent{
		BidID:     bid.ID.String(),
		AuctionID: bid.AuctionID.String(),
		UserID:    bid.UserID.String(),
		Amount:    bid.Amount,
		PlacedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	outboxEvent := &events.OutboxEvent{
		ID:        uuid.New(),
		EventType: events.EventTypeBidPlaced,
		Payload:   payload,
		Status:    events.OutboxStatusPending,
		CreatedAt: now,
	}
	if err := s.outboxRepo.SaveEvent(ctx, tx, outboxEvent); err != nil {
		return nil, fmt.Errorf("failed to save outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bid, nil
}

func validateAuction(cmd CreateAuctionCommand) error {
	if cmd.Title == "" {
		return errors.New("title is required")
	}
	if cmd.StartingBid <= 0 {
		return errors.New("starting bid must be greater than 0")
	}
	if cmd.StartTime != nil && cmd.EndTime != nil && cmd.EndTime.Before(*cmd.StartTime) {
		return errors.New("end time must not be before start time")
	}
	return nil
}
