// Package provider holds HTTP clients for the third-party services the
// platform depends on: link shorteners that wrap mission destinations, and
// the card top-up gateway.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	log "github.com/sirupsen/logrus"

	"github.com/kiemxuonline/kiemxu/internal/models"
)

// Shortener errors.
var (
	// ErrProviderDisabled indicates the provider is switched off.
	ErrProviderDisabled = errors.New("provider: disabled")
	// ErrShortenFailed indicates the provider rejected the request.
	ErrShortenFailed = errors.New("provider: shorten failed")
)

// Shortener shortens mission links through a configured provider.
type Shortener struct {
	client *req.Client
}

// NewShortener constructs a Shortener with a bounded request timeout.
func NewShortener() *Shortener {
	return &Shortener{
		client: req.C().
			SetTimeout(15 * time.Second).
			SetUserAgent("kiemxu/1.0"),
	}
}

// shortenResponse is the common response shape of the quick-link APIs the
// platform integrates with (link1s, yeumoney and compatible services).
type shortenResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ShortenedURL string `json:"shortenedUrl"`
}

// Shorten wraps longURL through the given provider and returns the short
// link users must traverse.
func (s *Shortener) Shorten(ctx context.Context, p *models.Provider, longURL string) (string, error) {
	if p == nil || !p.IsEnabled {
		return "", ErrProviderDisabled
	}

	var body shortenResponse
	resp, errDo := s.client.R().
		SetContext(ctx).
		SetQueryParam("api", p.APIKey).
		SetQueryParam("url", longURL).
		SetSuccessResult(&body).
		Get(p.APIURL)
	if errDo != nil {
		return "", fmt.Errorf("provider %s: %w", p.Name, errDo)
	}
	if !resp.IsSuccessState() {
		return "", fmt.Errorf("provider %s: %w: http %d", p.Name, ErrShortenFailed, resp.StatusCode)
	}
	if !strings.EqualFold(body.Status, "success") || strings.TrimSpace(body.ShortenedURL) == "" {
		log.WithFields(log.Fields{
			"provider": p.Name,
			"status":   body.Status,
			"message":  body.Message,
		}).Warn("shortener rejected link")
		return "", fmt.Errorf("provider %s: %w: %s", p.Name, ErrShortenFailed, body.Message)
	}
	return body.ShortenedURL, nil
}
