// Package payment talks to the Razorpay payment gateway: it opens orders for
// the checkout widget and verifies the signature the widget hands back.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable means checkout could not be started; the participant may
// resubmit.
var ErrUnavailable = errors.New("payment gateway unavailable")

// ErrDismissed means the participant closed checkout without paying.
var ErrDismissed = errors.New("payment cancelled")

// ErrBadSignature means the success callback could not be authenticated.
var ErrBadSignature = errors.New("payment signature mismatch")

// FailedError is a declined or failed payment reported by the widget.
type FailedError struct {
	Description string
	Code        string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("Payment Failed: %s (Code: %s)", e.Description, e.Code)
}

// Order is a Razorpay order.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Client is a minimal Razorpay REST client.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// NewClient constructs a Client. baseURL is normally https://api.razorpay.com.
func NewClient(keyID, keySecret, baseURL string) *Client {
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// KeyID is the public key the checkout widget is opened with.
func (c *Client) KeyID() string { return c.keyID }

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens an order for amountMinor (paise). Any failure wraps
// ErrUnavailable.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body, err := json.Marshal(orderRequest{Amount: amountMinor, Currency: currency, Receipt: receipt, Notes: notes})
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode/100 != 2 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		return nil, fmt.Errorf("%w: create order: status %d: %s %s",
			ErrUnavailable, resp.StatusCode, ae.Error.Code, ae.Error.Description)
	}
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrUnavailable, err)
	}
	return &o, nil
}

// Signature computes the checkout signature for an order/payment pair.
func (c *Client) Signature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature returned by a successful checkout.
func (c *Client) Verify(orderID, paymentID, signature string) error {
	want := c.Signature(orderID, paymentID)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	return nil
}
