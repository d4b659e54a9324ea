package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/errors"
)

func newTestServer(t *testing.T, orderStatus, amount string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v2/checkout/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PAY-123",
			"status": orderStatus,
			"purchase_units": []map[string]any{
				{"amount": map[string]string{"currency_code": "USD", "value": amount}},
			},
			"payer": map[string]string{"email_address": "buyer@example.com"},
		})
	})
	return httptest.NewServer(mux)
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.PayPalConfig{
		BaseURL:        baseURL,
		ClientID:       "id",
		ClientSecret:   "secret",
		Currency:       "USD",
		RequestTimeout: 2 * time.Second,
		ToleranceCents: 1,
	}, nil)
}

func TestVerifyOrderCompleted(t *testing.T) {
	srv := newTestServer(t, "COMPLETED", "129.99")
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.VerifyOrder(context.Background(), "PAY-123", 12999)
	if err != nil {
		t.Fatalf("verify order: %v", err)
	}
	if result.ProviderID != "PAY-123" {
		t.Errorf("provider id = %q, want PAY-123", result.ProviderID)
	}
	if result.Email != "buyer@example.com" {
		t.Errorf("payer email = %q", result.Email)
	}
}

func TestVerifyOrderWithinTolerance(t *testing.T) {
	srv := newTestServer(t, "COMPLETED", "130.00")
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.VerifyOrder(context.Background(), "PAY-123", 12999); err != nil {
		t.Fatalf("one cent difference should pass: %v", err)
	}
}

func TestVerifyOrderAmountMismatch(t *testing.T) {
	srv := newTestServer(t, "COMPLETED", "100.00")
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.VerifyOrder(context.Background(), "PAY-123", 12999)
	if err == nil {
		t.Fatal("expected amount mismatch error")
	}
	if !errors.HasCode(err, errors.CodePaymentNotVerified) {
		t.Errorf("unexpected error code: %v", err)
	}
}

func TestVerifyOrderNotCompleted(t *testing.T) {
	srv := newTestServer(t, "CREATED", "129.99")
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.VerifyOrder(context.Background(), "PAY-123", 12999)
	if err == nil {
		t.Fatal("expected status error")
	}
	if !errors.HasCode(err, errors.CodePaymentNotVerified) {
		t.Errorf("unexpected error code: %v", err)
	}
}

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"129.99", 12999},
		{"130", 13000},
		{"0.5", 50},
		{"0.05", 5},
	}
	for _, tc := range cases {
		got, err := parseAmountCents(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("parse %q = %d, want %d", tc.in, got, tc.want)
		}
	}
}
