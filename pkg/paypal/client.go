package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rigforge/rigforge-backend/pkg/config"
	"github.com/rigforge/rigforge-backend/pkg/errors"
	"github.com/rigforge/rigforge-backend/pkg/logger"
	"github.com/rigforge/rigforge-backend/pkg/types"
)

// Client verifies captured PayPal orders against the REST API. It only reads;
// capture itself happens on the storefront before checkout is submitted.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	currency     string
	tolerance    int
	httpClient   *http.Client
	logg         *logger.Logger
}

func NewClient(cfg config.PayPalConfig, logg *logger.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		currency:     cfg.Currency,
		tolerance:    cfg.ToleranceCents,
		httpClient:   &http.Client{Timeout: timeout},
		logg:         logg,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
	Payer struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

// VerifyOrder checks that the referenced PayPal order is COMPLETED and that
// its captured amount matches expectedCents within the configured tolerance.
func (c *Client) VerifyOrder(ctx context.Context, providerOrderID string, expectedCents int) (*types.PaymentResult, error) {
	if strings.TrimSpace(providerOrderID) == "" {
		return nil, errors.New(errors.CodePaymentNotVerified, "paypal order id is required")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodePaymentNotVerified, err, "fetching paypal access token")
	}

	order, err := c.fetchOrder(ctx, token, providerOrderID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(order.Status, "COMPLETED") {
		return nil, errors.New(errors.CodePaymentNotVerified,
			fmt.Sprintf("paypal order %s has status %s", providerOrderID, order.Status))
	}
	if len(order.PurchaseUnits) == 0 {
		return nil, errors.New(errors.CodePaymentNotVerified, "paypal order has no purchase units")
	}

	unit := order.PurchaseUnits[0]
	if c.currency != "" && !strings.EqualFold(unit.Amount.CurrencyCode, c.currency) {
		return nil, errors.New(errors.CodePaymentNotVerified,
			fmt.Sprintf("paypal order currency %s does not match %s", unit.Amount.CurrencyCode, c.currency))
	}

	capturedCents, err := parseAmountCents(unit.Amount.Value)
	if err != nil {
		return nil, errors.Wrap(errors.CodePaymentNotVerified, err, "parsing paypal amount")
	}
	if diff := capturedCents - expectedCents; diff > c.tolerance || diff < -c.tolerance {
		return nil, errors.New(errors.CodePaymentNotVerified,
			fmt.Sprintf("paypal captured %d cents, expected %d", capturedCents, expectedCents))
	}

	return &types.PaymentResult{
		ProviderID: order.ID,
		Status:     order.Status,
		Email:      order.Payer.EmailAddress,
	}, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token endpoint returned %d", resp.StatusCode)
	}
	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("paypal token response missing access_token")
	}
	return token.AccessToken, nil
}

func (c *Client) fetchOrder(ctx context.Context, token, providerOrderID string) (*orderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(providerOrderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodePaymentNotVerified, err, "fetching paypal order")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.New(errors.CodePaymentNotVerified,
			fmt.Sprintf("paypal order %s not found", providerOrderID))
	default:
		return nil, errors.New(errors.CodePaymentNotVerified,
			fmt.Sprintf("paypal orders endpoint returned %d", resp.StatusCode))
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.Wrap(errors.CodePaymentNotVerified, err, "decoding paypal order")
	}
	return &order, nil
}

// parseAmountCents converts PayPal's decimal string ("123.45") to cents
// without floating point.
func parseAmountCents(value string) (int, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, found := strings.Cut(v, ".")
	w, err := strconv.Atoi(whole)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	cents := w * 100
	if !found {
		return cents, nil
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, err := strconv.Atoi(frac)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	if w < 0 {
		return cents - f, nil
	}
	return cents + f, nil
}
