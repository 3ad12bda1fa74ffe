package auctions

import (
	"context"

	"github.com/google/uuid"

	"github.com/electrabid/backend/pkg/database"
)

// AuctionRepository defines the persistence interface for auctions.
// Lookup methods return ErrAuctionNotFound for unknown ids.
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error

	// ListAuctions returns all auctions, newest first.
	ListAuctions(ctx context.Context) ([]*Auction, error)

	GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*Auction, error)

	// GetAuctionByIDForUpdate locks the auction row for the duration of the
	// transaction so concurrent bids on the same auction serialise.
	GetAuctionByIDForUpdate(ctx context.Context, tx database.Tx, auctionID uuid.UUID) (*Auction, error)

	// UpdateCurrentBid records the new highest bid and bidder on the auction
	// row within the transaction.
	UpdateCurrentBid(ctx context.Context, tx database.Tx, auctionID uuid.UUID, amount int64, bidder uuid.UUID) error

	// DeleteAuction removes the auction and cascades to its bids.
	// Returns false when the id is unknown.
	DeleteAuction(ctx context.Context, auctionID uuid.UUID) (bool, error)
}

// BidRepository defines the persistence interface for bids.
type BidRepository interface {
	SaveBid(ctx context.Context, tx database.Tx, bid *Bid) error

	// ListBidsByAuction returns the auction's bid history, newest first.
	ListBidsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}
