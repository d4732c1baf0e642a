package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiemxuonline/kiemxu/internal/config"
	"github.com/kiemxuonline/kiemxu/internal/models"
)

func TestShortenReturnsShortLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api") != "key123" {
			t.Errorf("api key = %q", r.URL.Query().Get("api"))
		}
		if r.URL.Query().Get("url") != "https://example.com/landing" {
			t.Errorf("url = %q", r.URL.Query().Get("url"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","shortenedUrl":"https://s.io/abc"}`))
	}))
	defer srv.Close()

	shortener := NewShortener()
	p := &models.Provider{Name: "link1s", APIURL: srv.URL, APIKey: "key123", IsEnabled: true}

	short, errShorten := shortener.Shorten(context.Background(), p, "https://example.com/landing")
	if errShorten != nil {
		t.Fatalf("shorten: %v", errShorten)
	}
	if short != "https://s.io/abc" {
		t.Fatalf("short = %q", short)
	}
}

func TestShortenRejectsDisabledAndErrors(t *testing.T) {
	shortener := NewShortener()

	if _, errShorten := shortener.Shorten(context.Background(), &models.Provider{IsEnabled: false}, "x"); !errors.Is(errShorten, ErrProviderDisabled) {
		t.Fatalf("disabled = %v, want ErrProviderDisabled", errShorten)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"error","message":"invalid api token"}`))
	}))
	defer srv.Close()

	p := &models.Provider{Name: "link1s", APIURL: srv.URL, APIKey: "bad", IsEnabled: true}
	if _, errShorten := shortener.Shorten(context.Background(), p, "https://example.com"); !errors.Is(errShorten, ErrShortenFailed) {
		t.Fatalf("rejected = %v, want ErrShortenFailed", errShorten)
	}
}

func TestCardGatewaySubmitSignsRequest(t *testing.T) {
	var gotSign, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotSign = r.PostFormValue("sign")
		gotRequestID = r.PostFormValue("request_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":99,"message":"PENDING","trans_id":"t1"}`))
	}))
	defer srv.Close()

	gw := NewCardGateway(config.CardGatewayConfig{
		APIURL:     srv.URL,
		PartnerID:  "p1",
		PartnerKey: "secret",
	})

	if errSubmit := gw.Submit(context.Background(), "req-1", "VIETTEL", "1234567890123", "12345678901", 50000); errSubmit != nil {
		t.Fatalf("submit: %v", errSubmit)
	}
	if gotRequestID != "req-1" {
		t.Fatalf("request_id = %q", gotRequestID)
	}
	if !gw.VerifyCallbackSign("1234567890123", "12345678901", gotSign) {
		t.Fatalf("sign %q does not verify", gotSign)
	}
	if gw.VerifyCallbackSign("1234567890123", "12345678901", "tampered") {
		t.Fatalf("tampered sign verified")
	}
}

func TestCardGatewaySubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":3,"message":"PARTNER LOCKED"}`))
	}))
	defer srv.Close()

	gw := NewCardGateway(config.CardGatewayConfig{APIURL: srv.URL, PartnerID: "p1", PartnerKey: "k"})
	if errSubmit := gw.Submit(context.Background(), "req-2", "VIETTEL", "1", "2", 10000); !errors.Is(errSubmit, ErrGatewayRejected) {
		t.Fatalf("submit = %v, want ErrGatewayRejected", errSubmit)
	}
}
