// Package minigame implements the Tài/Xỉu dice game. Dice are rolled
// server-side from crypto/rand; the bet is debited atomically before the
// roll resolves, so a losing player can never go negative and a winning
// payout is a plain credit.
package minigame

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
	"github.com/kiemxuonline/kiemxu/internal/wallet"
)

// Minigame errors.
var (
	// ErrInvalidChoice indicates a choice other than tai or xiu.
	ErrInvalidChoice = errors.New("minigame: choice must be tai or xiu")
	// ErrBetTooSmall indicates a bet below the configured minimum.
	ErrBetTooSmall = errors.New("minigame: bet below minimum")
	// ErrInsufficientBalance indicates the bet exceeds the user's balance.
	ErrInsufficientBalance = errors.New("minigame: insufficient balance")
)

// Service runs Tài/Xỉu rounds.
type Service struct {
	db *gorm.DB
}

// NewService constructs a minigame Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Result reports one resolved round.
type Result struct {
	Dice    [3]int `json:"dice"`
	Sum     int    `json:"sum"`
	Outcome string `json:"outcome"`
	Won     bool   `json:"won"`
	Payout  int64  `json:"payout"`
	Balance int64  `json:"balance"`
}

// Classify maps a three-dice sum to its outcome: 11-18 is Tài, 3-10 is Xỉu.
// The split is 11 sums against 8, not a fair coin.
func Classify(sum int) string {
	if sum >= 11 {
		return models.ChoiceTai
	}
	return models.ChoiceXiu
}

// rollDie returns a uniform value in 1..6 from crypto/rand.
func rollDie() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(6))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1, nil
}

// Play debits the bet, rolls three dice and credits the payout on a win.
func (s *Service) Play(ctx context.Context, userID uint64, bet int64, choice string) (*Result, error) {
	if choice != models.ChoiceTai && choice != models.ChoiceXiu {
		return nil, ErrInvalidChoice
	}
	if bet < settings.MinigameMinBet() {
		return nil, ErrBetTooSmall
	}

	var dice [3]int
	for i := range dice {
		die, errRoll := rollDie()
		if errRoll != nil {
			return nil, errRoll
		}
		dice[i] = die
	}
	sum := dice[0] + dice[1] + dice[2]
	outcome := Classify(sum)
	won := outcome == choice

	payout := int64(0)
	if won {
		payout = int64(float64(bet) * settings.MinigameMultiplier())
	}

	result := &Result{Dice: dice, Sum: sum, Outcome: outcome, Won: won, Payout: payout}

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round := models.MinigameRound{
			UserID:  userID,
			Bet:     bet,
			Choice:  choice,
			Die1:    dice[0],
			Die2:    dice[1],
			Die3:    dice[2],
			Outcome: outcome,
			Won:     won,
			Payout:  payout,
		}
		if errCreate := tx.Create(&round).Error; errCreate != nil {
			return errCreate
		}

		if errDebit := wallet.Debit(ctx, tx, userID, bet, models.LedgerMinigameBet, round.ID, ""); errDebit != nil {
			if errors.Is(errDebit, wallet.ErrInsufficientBalance) {
				return ErrInsufficientBalance
			}
			return errDebit
		}

		if payout > 0 {
			if errCredit := wallet.Credit(ctx, tx, userID, payout, models.LedgerMinigameWin, round.ID, ""); errCredit != nil {
				return errCredit
			}
		}

		balance, errBalance := wallet.Balance(ctx, tx, userID)
		if errBalance != nil {
			return errBalance
		}
		result.Balance = balance
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"bet":     bet,
		"sum":     sum,
		"won":     won,
	}).Debug("taixiu round resolved")

	return result, nil
}

// Winner is a recent winning round for the public feed.
type Winner struct {
	Username string `json:"username"`
	Bet      int64  `json:"bet"`
	Payout   int64  `json:"payout"`
}

// RecentWinners returns the latest winning rounds, newest first.
func (s *Service) RecentWinners(ctx context.Context, limit int) ([]Winner, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var rounds []models.MinigameRound
	if errFind := s.db.WithContext(ctx).
		Preload("User").
		Where("won = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rounds).Error; errFind != nil {
		return nil, errFind
	}

	winners := make([]Winner, 0, len(rounds))
	for _, round := range rounds {
		name := "?"
		if round.User != nil {
			name = maskUsername(round.User.Username)
		}
		winners = append(winners, Winner{Username: name, Bet: round.Bet, Payout: round.Payout})
	}
	return winners, nil
}

// maskUsername hides the middle of a username on the public feed.
func maskUsername(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return string(runes[:1]) + "***"
	}
	return string(runes[:2]) + "***" + string(runes[len(runes)-1:])
}
