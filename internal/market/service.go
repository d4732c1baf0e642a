// Package market implements the game-account marketplace. Purchases flip a
// listing from available to sold with a conditional update, so two buyers
// racing for the same account cannot both pay, and auction bids hold the
// bidder's coins until they are outbid or the auction settles.
package market

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// Marketplace errors.
var (
	// ErrNotFound indicates a missing or removed listing.
	ErrNotFound = errors.New("market: listing not found")
	// ErrNotAvailable indicates the listing is no longer purchasable.
	ErrNotAvailable = errors.New("market: listing not available")
	// ErrOwnListing indicates a seller acting on their own listing.
	ErrOwnListing = errors.New("market: cannot buy own listing")
	// ErrNotAuction indicates a bid on a fixed-price listing.
	ErrNotAuction = errors.New("market: listing is not an auction")
	// ErrBidTooLow indicates a bid below the current bid plus the step.
	ErrBidTooLow = errors.New("market: bid too low")
	// ErrAuctionClosed indicates a bid after the auction end time.
	ErrAuctionClosed = errors.New("market: auction closed")
	// ErrInsufficientBalance indicates the buyer cannot cover the price.
	ErrInsufficientBalance = errors.New("market: insufficient balance")
)

// Service handles marketplace listings, purchases and bids.
type Service struct {
	db *gorm.DB
}

// NewService constructs a market Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// List returns available listings, newest first.
func (s *Service) List(ctx context.Context, saleType string, limit, offset int) ([]models.Account, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("status = ?", models.AccountAvailable)
	if saleType == models.SaleTypeFixed || saleType == models.SaleTypeAuction {
		query = query.Where("sale_type = ?", saleType)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		return nil, 0, errCount
	}

	var rows []models.Account
	if errFind := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		return nil, 0, errFind
	}
	return rows, total, nil
}

// Get returns one listing. Credentials stay hidden unless the requester is
// the buyer or the seller.
func (s *Service) Get(ctx context.Context, requesterID, accountID uint64) (*models.Account, error) {
	var row models.Account
	if errFind := s.db.WithContext(ctx).First(&row, accountID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	if row.Status == models.AccountRemoved {
		return nil, ErrNotFound
	}

	isBuyer := row.BuyerID != nil && *row.BuyerID == requesterID
	if requesterID != row.SellerID && !isBuyer {
		row.Credentials = nil
	}
	return &row, nil
}

// Buy purchases a fixed-price listing: debit the buyer, flip the listing to
// sold, credit the seller minus the marketplace fee, all in one transaction.
func (s *Service) Buy(ctx context.Context, buyerID, accountID uint64) (*models.Account, error) {
	var bought models.Account

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Account
		if errFind := tx.First(&row, accountID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if row.SaleType != models.SaleTypeFixed {
			return ErrNotAuction
		}
		if row.SellerID == buyerID {
			return ErrOwnListing
		}

		if errDebit := wallet.Debit(ctx, tx, buyerID, row.Price, models.LedgerAccountPurchase, row.ID, row.Title); errDebit != nil {
			if errors.Is(errDebit, wallet.ErrInsufficientBalance) {
				return ErrInsufficientBalance
			}
			return errDebit
		}

		now := time.Now()
		res := tx.Model(&models.Account{}).
			Where("id = ? AND status = ?", accountID, models.AccountAvailable).
			Updates(map[string]any{
				"status":   models.AccountSold,
				"buyer_id": buyerID,
				"sold_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; roll back the debit with it.
			return ErrNotAvailable
		}

		proceeds := row.Price - row.Price*settings.MarketFeePercent()/100
		if proceeds > 0 {
			if errCredit := wallet.Credit(ctx, tx, row.SellerID, proceeds, models.LedgerAccountSale, row.ID, row.Title); errCredit != nil {
				return errCredit
			}
		}

		row.Status = models.AccountSold
		row.BuyerID = &buyerID
		row.SoldAt = &now
		bought = row
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"account_id": accountID,
		"buyer_id":   buyerID,
		"price":      bought.Price,
	}).Info("account sold")

	return &bought, nil
}

// Bid places an auction bid. The new bidder's coins are held and the
// previous bidder is refunded. The current_bid guard on the update rejects
// concurrent bids that lost the race.
func (s *Service) Bid(ctx context.Context, bidderID, accountID uint64, amount int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Account
		if errFind := tx.First(&row, accountID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if row.Status != models.AccountAvailable {
			return ErrNotAvailable
		}
		if row.SaleType != models.SaleTypeAuction {
			return ErrNotAuction
		}
		if row.SellerID == bidderID {
			return ErrOwnListing
		}
		if row.AuctionEndsAt != nil && time.Now().After(*row.AuctionEndsAt) {
			return ErrAuctionClosed
		}

		floor := row.Price
		if row.CurrentBid > 0 {
			floor = row.CurrentBid + settings.AuctionBidStep()
		}
		if amount < floor {
			return ErrBidTooLow
		}

		if errDebit := wallet.Debit(ctx, tx, bidderID, amount, models.LedgerAuctionBid, row.ID, row.Title); errDebit != nil {
			if errors.Is(errDebit, wallet.ErrInsufficientBalance) {
				return ErrInsufficientBalance
			}
			return errDebit
		}

		res := tx.Model(&models.Account{}).
			Where("id = ? AND status = ? AND current_bid = ?", accountID, models.AccountAvailable, row.CurrentBid).
			Updates(map[string]any{
				"current_bid":       amount,
				"current_bidder_id": bidderID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBidTooLow
		}

		if row.CurrentBidderID != nil && row.CurrentBid > 0 {
			if errRefund := wallet.Credit(ctx, tx, *row.CurrentBidderID, row.CurrentBid, models.LedgerAuctionRefund, row.ID, row.Title); errRefund != nil {
				return errRefund
			}
		}
		return nil
	})
}

// SettleAuction closes an ended auction: the highest bidder becomes the
// buyer and the seller is credited from the held bid. Listings with no bids
// stay available with the end time cleared.
func (s *Service) SettleAuction(ctx context.Context, accountID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Account
		if errFind := tx.First(&row, accountID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		if row.SaleType != models.SaleTypeAuction || row.Status != models.AccountAvailable {
			return ErrNotAvailable
		}
		if row.AuctionEndsAt == nil || time.Now().Before(*row.AuctionEndsAt) {
			return ErrNotAvailable
		}

		if row.CurrentBidderID == nil || row.CurrentBid <= 0 {
			return tx.Model(&models.Account{}).
				Where("id = ?", accountID).
				Update("auction_ends_at", nil).Error
		}

		now := time.Now()
		res := tx.Model(&models.Account{}).
			Where("id = ? AND status = ?", accountID, models.AccountAvailable).
			Updates(map[string]any{
				"status":   models.AccountSold,
				"buyer_id": *row.CurrentBidderID,
				"sold_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotAvailable
		}

		proceeds := row.CurrentBid - row.CurrentBid*settings.MarketFeePercent()/100
		if proceeds > 0 {
			if errCredit := wallet.Credit(ctx, tx, row.SellerID, proceeds, models.LedgerAccountSale, row.ID, row.Title); errCredit != nil {
				return errCredit
			}
		}
		return nil
	})
}
