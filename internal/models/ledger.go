package models

import "time"

// Coin ledger reasons.
const (
	// LedgerMissionReward credits a verified mission.
	LedgerMissionReward = "mission_reward"
	// LedgerReferralCommission credits a referrer's commission.
	LedgerReferralCommission = "referral_commission"
	// LedgerCardTopup credits a settled card transaction.
	LedgerCardTopup = "card_topup"
	// LedgerGiftToken credits a gift token redemption.
	LedgerGiftToken = "gift_token"
	// LedgerCheckin credits a daily check-in.
	LedgerCheckin = "checkin"
	// LedgerMinigameBet debits a minigame bet.
	LedgerMinigameBet = "minigame_bet"
	// LedgerMinigameWin credits a minigame payout.
	LedgerMinigameWin = "minigame_win"
	// LedgerAccountPurchase debits an account purchase.
	LedgerAccountPurchase = "account_purchase"
	// LedgerAccountSale credits a seller's proceeds.
	LedgerAccountSale = "account_sale"
	// LedgerAuctionBid debits an auction bid hold.
	LedgerAuctionBid = "auction_bid"
	// LedgerAuctionRefund refunds an outbid user.
	LedgerAuctionRefund = "auction_refund"
	// LedgerAdminAdjust records a manual admin adjustment.
	LedgerAdminAdjust = "admin_adjust"
)

// CoinLedger is the append-only audit trail of balance mutations. Amount is
// signed; the row never stores a running balance.
type CoinLedger struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Affected user.
	Amount int64  `gorm:"not null"`       // Signed xu delta.

	Reason      string `gorm:"type:text;not null;index"` // Ledger* reason value.
	ReferenceID uint64 `gorm:"not null;default:0"`       // Related row ID (mission, card tx, token...).
	Note        string `gorm:"type:text"`                // Free-form detail.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Mutation timestamp.
}
