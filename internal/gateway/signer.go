package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrSigningUnavailable marks failures the customer may simply retry,
// always with a fresh order id so no gateway reference is ever reused.
var ErrSigningUnavailable = errors.New("payment gateway signing unavailable")

// Signer produces the integrity signature the gateway's embedded checkout
// widget requires. Server-side only: the signing secret never leaves this
// process.
type Signer interface {
	Sign(ctx context.Context, orderID string, amount int64, currency string) (string, error)
}

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "gateway-signer",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

type signRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

func (c *Client) Sign(ctx context.Context, orderID string, amount int64, currency string) (string, error) {
	signature, err := c.breaker.Execute(func() (string, error) {
		return c.sign(ctx, orderID, amount, currency)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrSigningUnavailable)
		}
		return "", err
	}
	return signature, nil
}

func (c *Client) sign(ctx context.Context, orderID string, amount int64, currency string) (string, error) {
	body, err := json.Marshal(signRequest{OrderID: orderID, Amount: amount, Currency: currency})
	if err != nil {
		return "", fmt.Errorf("marshal sign request: %w", err)
	}

	url := c.baseURL + "/v1/signatures"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: gateway returned status %d", ErrSigningUnavailable, resp.StatusCode)
	}

	var signed signResponse
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("decode sign response: %w", err)
	}
	if signed.Signature == "" {
		return "", fmt.Errorf("%w: empty signature in response", ErrSigningUnavailable)
	}

	return signed.Signature, nil
}
