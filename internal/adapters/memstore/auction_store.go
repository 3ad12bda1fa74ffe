package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/electrabid/backend/internal/domain/auctions"
	"github.com/electrabid/backend/pkg/database"
)

// AuctionRepository returns the auctions.AuctionRepository view of the store.
func (s *Store) AuctionRepository() auctions.AuctionRepository {
	return (*auctionStore)(s)
}

// BidRepository returns the auctions.BidRepository view of the store.
func (s *Store) BidRepository() auctions.BidRepository {
	return (*bidStore)(s)
}

type auctionStore Store

func (a *auctionStore) CreateAuction(_ context.Context, auction *auctions.Auction) error {
	s := (*Store)(a)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (a *auctionStore) ListAuctions(_ context.Context) ([]*auctions.Auction, error) {
	s := (*Store)(a)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*auctions.Auction, 0, len(s.auctions))
	for _, auction := range s.auctions {
		result = append(result, cloneAuction(auction))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (a *auctionStore) GetAuctionByID(_ context.Context, auctionID uuid.UUID) (*auctions.Auction, error) {
	s := (*Store)(a)
	s.mu.Lock()
	defer s.mu.Unlock()
	return a.get(auctionID)
}

func (a *auctionStore) GetAuctionByIDForUpdate(_ context.Context, tx database.Tx, auctionID uuid.UUID) (*auctions.Auction, error) {
	s := (*Store)(a)
	if err := s.checkTx(tx); err != nil {
		return nil, err
	}
	return a.get(auctionID)
}

// get assumes the store lock is held.
func (a *auctionStore) get(auctionID uuid.UUID) (*auctions.Auction, error) {
	auction, ok := (*Store)(a).auctions[auctionID]
	if !ok {
		return nil, auctions.ErrAuctionNotFound
	}
	return cloneAuction(auction), nil
}

func (a *auctionStore) UpdateCurrentBid(_ context.Context, tx database.Tx, auctionID uuid.UUID, amount int64, bidder uuid.UUID) error {
	s := (*Store)(a)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	auction, ok := s.auctions[auctionID]
	if !ok {
		return auctions.ErrAuctionNotFound
	}
	auction.CurrentBid = amount
	b := bidder
	auction.HighestBidder = &b
	return nil
}

func (a *auctionStore) DeleteAuction(_ context.Context, auctionID uuid.UUID) (bool, error) {
	s := (*Store)(a)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return false, nil
	}
	delete(s.bids, auctionID)
	delete(s.auctions, auctionID)
	return true, nil
}

type bidStore Store

func (b *bidStore) SaveBid(_ context.Context, tx database.Tx, bid *auctions.Bid) error {
	s := (*Store)(b)
	if err := s.checkTx(tx); err != nil {
		return err
	}
	clone := *bid
	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], &clone)
	return nil
}

func (b *bidStore) ListBidsByAuction(_ context.Context, auctionID uuid.UUID) ([]*auctions.Bid, error) {
	s := (*Store)(b)
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*auctions.Bid, 0, len(s.bids[auctionID]))
	for _, bid := range s.bids[auctionID] {
		clone := *bid
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func cloneAuction(a *auctions.Auction) *auctions.Auction {
	clone := *a
	if a.HighestBidder != nil {
		bidder := *a.HighestBidder
		clone.HighestBidder = &bidder
	}
	return &clone
}
