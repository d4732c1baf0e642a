package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Kiemxu"

	// CommissionPercentKey controls the referral commission on mission rewards.
	CommissionPercentKey = "COMMISSION_PERCENT"
	// DefaultCommissionPercent is the fallback referral commission percent.
	DefaultCommissionPercent = 20

	// CardRateKey controls xu credited per 1000 VND of resolved card value.
	CardRateKey = "CARD_RATE_PER_1000"
	// DefaultCardRate is the fallback xu per 1000 VND.
	DefaultCardRate = 800

	// CheckinRewardKey controls the daily check-in reward in xu.
	CheckinRewardKey = "CHECKIN_REWARD"
	// DefaultCheckinReward is the fallback check-in reward.
	DefaultCheckinReward = 50

	// MinigameMultiplierKey controls the Tài/Xỉu win payout multiplier.
	MinigameMultiplierKey = "MINIGAME_MULTIPLIER"
	// DefaultMinigameMultiplier is the fallback payout multiplier.
	DefaultMinigameMultiplier = 1.95

	// MinigameMinBetKey controls the minimum Tài/Xỉu bet in xu.
	MinigameMinBetKey = "MINIGAME_MIN_BET"
	// DefaultMinigameMinBet is the fallback minimum bet.
	DefaultMinigameMinBet = 100

	// MarketFeePercentKey controls the marketplace fee on account sales.
	MarketFeePercentKey = "MARKET_FEE_PERCENT"
	// DefaultMarketFeePercent is the fallback marketplace fee percent.
	DefaultMarketFeePercent = 5

	// AuctionBidStepKey controls the minimum auction bid increment in xu.
	AuctionBidStepKey = "AUCTION_BID_STEP"
	// DefaultAuctionBidStep is the fallback bid increment.
	DefaultAuctionBidStep = 100

	// MissionStartTTLMinutesKey controls how long a start marker stays valid.
	MissionStartTTLMinutesKey = "MISSION_START_TTL_MINUTES"
	// DefaultMissionStartTTLMinutes is the fallback start marker TTL.
	DefaultMissionStartTTLMinutes = 120
)
