package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	log "github.com/sirupsen/logrus"

	"github.com/kiemxuonline/kiemxu/internal/config"
)

// ErrGatewayRejected indicates the gateway refused to accept a card.
var ErrGatewayRejected = errors.New("provider: card gateway rejected submission")

// CardGateway forwards card submissions to the external charging gateway.
// Results arrive later on the callback endpoint, keyed by request id.
type CardGateway struct {
	cfg    config.CardGatewayConfig
	client *req.Client
}

// NewCardGateway constructs a CardGateway from config.
func NewCardGateway(cfg config.CardGatewayConfig) *CardGateway {
	return &CardGateway{
		cfg: cfg,
		client: req.C().
			SetTimeout(20 * time.Second).
			SetUserAgent("kiemxu/1.0"),
	}
}

// chargingResponse is the gateway's synchronous acknowledgement. Status 99
// means accepted for async processing.
type chargingResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	TransID string `json:"trans_id"`
}

// sign computes the partner signature over the card code and serial.
func (g *CardGateway) sign(code, serial string) string {
	sum := md5.Sum([]byte(g.cfg.PartnerKey + code + serial))
	return hex.EncodeToString(sum[:])
}

// Submit sends one card to the gateway for charging.
func (g *CardGateway) Submit(ctx context.Context, requestID, telco, code, serial string, amount int64) error {
	var body chargingResponse
	resp, errDo := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"request_id":   requestID,
			"partner_id":   g.cfg.PartnerID,
			"telco":        telco,
			"code":         code,
			"serial":       serial,
			"amount":       strconv.FormatInt(amount, 10),
			"command":      "charging",
			"sign":         g.sign(code, serial),
			"callback_url": g.cfg.CallbackURL,
		}).
		SetSuccessResult(&body).
		Post(g.cfg.APIURL)
	if errDo != nil {
		return fmt.Errorf("card gateway: %w", errDo)
	}
	if !resp.IsSuccessState() {
		return fmt.Errorf("card gateway: %w: http %d", ErrGatewayRejected, resp.StatusCode)
	}
	// 99 = accepted pending, 1 = instant success; anything else is a refusal.
	if body.Status != 99 && body.Status != 1 {
		log.WithFields(log.Fields{
			"request_id": requestID,
			"status":     body.Status,
			"message":    body.Message,
		}).Warn("card gateway refused card")
		return fmt.Errorf("card gateway: %w: %s", ErrGatewayRejected, body.Message)
	}
	return nil
}

// VerifyCallbackSign checks the signature on an incoming gateway callback.
func (g *CardGateway) VerifyCallbackSign(code, serial, gotSign string) bool {
	return gotSign != "" && gotSign == g.sign(code, serial)
}
