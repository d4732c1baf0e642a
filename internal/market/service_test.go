package market

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

func setupMarketTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:market_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Account{}, &models.CoinLedger{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func createMarketUser(t *testing.T, db *gorm.DB, coins int64) *models.User {
	t.Helper()
	user := models.User{
		Username:     fmt.Sprintf("user_%d", time.Now().UnixNano()),
		Password:     "x",
		Coins:        coins,
		Role:         models.RoleUser,
		ReferralCode: fmt.Sprintf("ref_%d", time.Now().UnixNano()),
	}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	time.Sleep(time.Microsecond)
	return &user
}

func createListing(t *testing.T, db *gorm.DB, sellerID uint64, saleType string, price int64) *models.Account {
	t.Helper()
	account := models.Account{
		SellerID:    sellerID,
		Title:       "Acc VIP",
		Credentials: datatypes.JSON([]byte(`{"username":"game1","password":"secret"}`)),
		SaleType:    saleType,
		Price:       price,
		Status:      models.AccountAvailable,
	}
	if saleType == models.SaleTypeAuction {
		ends := time.Now().Add(time.Hour)
		account.AuctionEndsAt = &ends
	}
	if errCreate := db.Create(&account).Error; errCreate != nil {
		t.Fatalf("create listing: %v", errCreate)
	}
	return &account
}

func TestBuyTransfersCoinsAndCredentials(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	buyer := createMarketUser(t, db, 1000)
	listing := createListing(t, db, seller.ID, models.SaleTypeFixed, 1000)

	bought, errBuy := svc.Buy(context.Background(), buyer.ID, listing.ID)
	if errBuy != nil {
		t.Fatalf("buy: %v", errBuy)
	}
	if bought.Status != models.AccountSold {
		t.Fatalf("status = %s, want sold", bought.Status)
	}

	var buyerRow, sellerRow models.User
	db.First(&buyerRow, buyer.ID)
	db.First(&sellerRow, seller.ID)
	if buyerRow.Coins != 0 {
		t.Fatalf("buyer coins = %d, want 0", buyerRow.Coins)
	}
	fee := int64(1000) * settings.DefaultMarketFeePercent / 100
	if sellerRow.Coins != 1000-fee {
		t.Fatalf("seller coins = %d, want %d", sellerRow.Coins, 1000-fee)
	}

	// Buyer now sees the credentials; strangers do not.
	visible, errGet := svc.Get(context.Background(), buyer.ID, listing.ID)
	if errGet != nil {
		t.Fatalf("get as buyer: %v", errGet)
	}
	if len(visible.Credentials) == 0 {
		t.Fatalf("buyer should see credentials")
	}
	stranger := createMarketUser(t, db, 0)
	hidden, errGet := svc.Get(context.Background(), stranger.ID, listing.ID)
	if errGet != nil {
		t.Fatalf("get as stranger: %v", errGet)
	}
	if len(hidden.Credentials) != 0 {
		t.Fatalf("stranger should not see credentials")
	}
}

func TestBuySoldListingFails(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	first := createMarketUser(t, db, 500)
	second := createMarketUser(t, db, 500)
	listing := createListing(t, db, seller.ID, models.SaleTypeFixed, 500)

	if _, errBuy := svc.Buy(context.Background(), first.ID, listing.ID); errBuy != nil {
		t.Fatalf("first buy: %v", errBuy)
	}
	if _, errBuy := svc.Buy(context.Background(), second.ID, listing.ID); !errors.Is(errBuy, ErrNotAvailable) {
		t.Fatalf("second buy = %v, want ErrNotAvailable", errBuy)
	}

	// The losing buyer's debit rolled back with the transaction.
	var secondRow models.User
	db.First(&secondRow, second.ID)
	if secondRow.Coins != 500 {
		t.Fatalf("second buyer coins = %d, want 500", secondRow.Coins)
	}
}

func TestBuyRejectsPoorBuyerAndOwnListing(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 10000)
	poor := createMarketUser(t, db, 499)
	listing := createListing(t, db, seller.ID, models.SaleTypeFixed, 500)

	if _, errBuy := svc.Buy(context.Background(), poor.ID, listing.ID); !errors.Is(errBuy, ErrInsufficientBalance) {
		t.Fatalf("poor buy = %v, want ErrInsufficientBalance", errBuy)
	}
	if _, errBuy := svc.Buy(context.Background(), seller.ID, listing.ID); !errors.Is(errBuy, ErrOwnListing) {
		t.Fatalf("self buy = %v, want ErrOwnListing", errBuy)
	}
}

func TestBidHoldsCoinsAndRefundsPrevious(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	alice := createMarketUser(t, db, 1000)
	bob := createMarketUser(t, db, 2000)
	listing := createListing(t, db, seller.ID, models.SaleTypeAuction, 500)

	if errBid := svc.Bid(context.Background(), alice.ID, listing.ID, 500); errBid != nil {
		t.Fatalf("first bid: %v", errBid)
	}
	var aliceRow models.User
	db.First(&aliceRow, alice.ID)
	if aliceRow.Coins != 500 {
		t.Fatalf("alice coins = %d, want 500 held", aliceRow.Coins)
	}

	// Below current bid plus the step.
	if errBid := svc.Bid(context.Background(), bob.ID, listing.ID, 500); !errors.Is(errBid, ErrBidTooLow) {
		t.Fatalf("low bid = %v, want ErrBidTooLow", errBid)
	}

	step := int64(settings.DefaultAuctionBidStep)
	if errBid := svc.Bid(context.Background(), bob.ID, listing.ID, 500+step); errBid != nil {
		t.Fatalf("second bid: %v", errBid)
	}

	db.First(&aliceRow, alice.ID)
	if aliceRow.Coins != 1000 {
		t.Fatalf("alice coins = %d, want full refund", aliceRow.Coins)
	}
	var bobRow models.User
	db.First(&bobRow, bob.ID)
	if bobRow.Coins != 2000-(500+step) {
		t.Fatalf("bob coins = %d, want %d", bobRow.Coins, 2000-(500+step))
	}

	var listingRow models.Account
	db.First(&listingRow, listing.ID)
	if listingRow.CurrentBid != 500+step || listingRow.CurrentBidderID == nil || *listingRow.CurrentBidderID != bob.ID {
		t.Fatalf("listing bid state = %d/%v", listingRow.CurrentBid, listingRow.CurrentBidderID)
	}
}

func TestBidRejectsFixedPriceAndClosedAuction(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	bidder := createMarketUser(t, db, 5000)

	fixed := createListing(t, db, seller.ID, models.SaleTypeFixed, 500)
	if errBid := svc.Bid(context.Background(), bidder.ID, fixed.ID, 600); !errors.Is(errBid, ErrNotAuction) {
		t.Fatalf("bid on fixed = %v, want ErrNotAuction", errBid)
	}

	closed := createListing(t, db, seller.ID, models.SaleTypeAuction, 500)
	past := time.Now().Add(-time.Minute)
	db.Model(closed).Update("auction_ends_at", past)
	if errBid := svc.Bid(context.Background(), bidder.ID, closed.ID, 600); !errors.Is(errBid, ErrAuctionClosed) {
		t.Fatalf("bid on closed = %v, want ErrAuctionClosed", errBid)
	}
}

func TestSettleAuctionPaysSellerFromHeldBid(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	bidder := createMarketUser(t, db, 1000)
	listing := createListing(t, db, seller.ID, models.SaleTypeAuction, 500)

	if errBid := svc.Bid(context.Background(), bidder.ID, listing.ID, 800); errBid != nil {
		t.Fatalf("bid: %v", errBid)
	}
	past := time.Now().Add(-time.Minute)
	db.Model(listing).Update("auction_ends_at", past)

	if errSettle := svc.SettleAuction(context.Background(), listing.ID); errSettle != nil {
		t.Fatalf("settle: %v", errSettle)
	}

	var listingRow models.Account
	db.First(&listingRow, listing.ID)
	if listingRow.Status != models.AccountSold || listingRow.BuyerID == nil || *listingRow.BuyerID != bidder.ID {
		t.Fatalf("listing = %s buyer %v", listingRow.Status, listingRow.BuyerID)
	}

	fee := int64(800) * settings.DefaultMarketFeePercent / 100
	var sellerRow models.User
	db.First(&sellerRow, seller.ID)
	if sellerRow.Coins != 800-fee {
		t.Fatalf("seller coins = %d, want %d", sellerRow.Coins, 800-fee)
	}
}

func TestListFiltersAvailableOnly(t *testing.T) {
	settings.StoreDBConfig(time.Now(), nil)
	db := setupMarketTestDB(t)
	svc := NewService(db)
	seller := createMarketUser(t, db, 0)
	buyer := createMarketUser(t, db, 500)

	open := createListing(t, db, seller.ID, models.SaleTypeFixed, 300)
	sold := createListing(t, db, seller.ID, models.SaleTypeFixed, 500)
	if _, errBuy := svc.Buy(context.Background(), buyer.ID, sold.ID); errBuy != nil {
		t.Fatalf("buy: %v", errBuy)
	}

	rows, total, errList := svc.List(context.Background(), "", 20, 0)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if total != 1 || len(rows) != 1 || rows[0].ID != open.ID {
		t.Fatalf("list = %d rows total %d", len(rows), total)
	}
}
