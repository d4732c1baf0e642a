package models

import (
	"time"

	"gorm.io/datatypes"
)

// Account listing statuses.
const (
	// AccountAvailable marks a listing open for purchase or bidding.
	AccountAvailable = "available"
	// AccountReserved marks a listing held for a pending purchase.
	AccountReserved = "reserved"
	// AccountSold marks a completed sale.
	AccountSold = "sold"
	// AccountRemoved marks an admin-removed listing.
	AccountRemoved = "removed"
)

// Account sale types.
const (
	// SaleTypeFixed sells at a fixed price.
	SaleTypeFixed = "fixed"
	// SaleTypeAuction sells to the highest bidder.
	SaleTypeAuction = "auction"
)

// Account is a game-account listing on the marketplace.
type Account struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SellerID uint64 `gorm:"not null;index"`    // Listing owner.
	Seller   *User  `gorm:"foreignKey:SellerID"` // Listing owner record.

	Title       string         `gorm:"type:text;not null"`  // Listing title.
	Description string         `gorm:"type:text"`           // Listing description.
	Credentials datatypes.JSON `gorm:"type:jsonb;not null"` // Account credentials, revealed to the buyer only.
	Images      datatypes.JSON `gorm:"type:jsonb"`          // Image URLs.

	SaleType string `gorm:"type:text;not null;default:fixed"` // fixed or auction.
	Price    int64  `gorm:"not null;default:0"`               // Fixed price or auction starting price, in xu.

	CurrentBid      int64   `gorm:"not null;default:0"` // Highest bid so far, in xu.
	CurrentBidderID *uint64 `gorm:"index"`              // Highest bidder, if any.
	AuctionEndsAt   *time.Time                          // Auction close time.

	Status  string  `gorm:"type:text;not null;default:available;index"` // Account* status value.
	BuyerID *uint64 `gorm:"index"`                                      // Buyer once sold.
	SoldAt  *time.Time                                                  // Sale settlement time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
