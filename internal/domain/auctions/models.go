package auctions

import (
	"time"

	"github.com/google/uuid"
)

// Auction is an admin-created listing. CurrentBid starts at the admin's
// starting price and only ever increases; HighestBidder tracks who holds it.
type Auction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	StartTime     *time.Time `json:"startTime" db:"start_time"`
	EndTime       *time.Time `json:"endTime" db:"end_time"`
	CurrentBid    int64      `json:"currentBid" db:"current_bid"` // cents
	HighestBidder *uuid.UUID `json:"highestBidder" db:"highest_bidder"`
	CreatedBy     uuid.UUID  `json:"createdBy" db:"created_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// Bid is append-only. Amount was strictly greater than the auction's
// recorded current bid at acceptance time.
type Bid struct {
	ID        uuid.UUID `json:"id" db:"id"`
	AuctionID uuid.UUID `json:"auctionId" db:"auction_id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Amount    int64     `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsClosedAt reports whether the auction no longer accepts bids.
func (a *Auction) IsClosedAt(t time.Time) bool {
	return a.EndTime != nil && t.After(*a.EndTime)
}
