// Package email dispatches transactional email through the Brevo HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrQuotaExhausted is returned when every configured API key is over quota.
var ErrQuotaExhausted = errors.New("all email api keys exhausted")

// Attachment is a file sent with a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Result is the outcome of a send.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// keyRing rotates through API keys, parking a key until the next UTC day
// once Brevo reports its quota spent.
type keyRing struct {
	mu     sync.Mutex
	keys   []string
	parked []time.Time
	cursor int
	now    func() time.Time
}

func newKeyRing(keys []string, now func() time.Time) *keyRing {
	return &keyRing{keys: keys, parked: make([]time.Time, len(keys)), now: now}
}

// next returns the index and value of the first usable key at or after the
// cursor.
func (r *keyRing) next() (int, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for i := 0; i < len(r.keys); i++ {
		idx := (r.cursor + i) % len(r.keys)
		if now.Before(r.parked[idx]) {
			continue
		}
		r.cursor = idx
		return idx, r.keys[idx], true
	}
	return 0, "", false
}

// exhaust parks key idx and moves the cursor past it.
func (r *keyRing) exhaust(idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	r.parked[idx] = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	if r.cursor == idx {
		r.cursor = (idx + 1) % len(r.keys)
	}
}

// Client sends mail through Brevo.
type Client struct {
	baseURL     string
	senderName  string
	senderEmail string
	keys        *keyRing
	http        *http.Client
}

// NewClient constructs a Client rotating over apiKeys.
func NewClient(baseURL, senderName, senderEmail string, apiKeys []string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		senderName:  senderName,
		senderEmail: senderEmail,
		keys:        newKeyRing(apiKeys, time.Now),
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

type brevoRequest struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

// Send delivers m, moving to the next API key when the current one is over
// quota.
func (c *Client) Send(ctx context.Context, m Message) (Result, error) {
	payload := brevoRequest{
		Sender:      brevoContact{Name: c.senderName, Email: c.senderEmail},
		To:          []brevoContact{{Name: m.ToName, Email: m.To}},
		Subject:     m.Subject,
		HTMLContent: m.HTML,
	}
	for _, a := range m.Attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(a.Content),
			Name:    a.Name,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: err.Error()}, fmt.Errorf("encode email: %w", err)
	}

	for attempt := 0; attempt < len(c.keys.keys); attempt++ {
		idx, key, ok := c.keys.next()
		if !ok {
			break
		}
		res, status, err := c.post(ctx, key, body)
		if status == http.StatusPaymentRequired || status == http.StatusTooManyRequests {
			slog.Warn("email api key over quota, rotating", "key_index", idx, "status", status)
			c.keys.exhaust(idx)
			continue
		}
		return res, err
	}
	return Result{Error: ErrQuotaExhausted.Error()}, ErrQuotaExhausted
}

func (c *Client) post(ctx context.Context, key string, body []byte) (Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return Result{Error: err.Error()}, 0, fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", key)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Error: err.Error()}, 0, fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	var out brevoResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode/100 != 2 {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{Error: msg}, resp.StatusCode, fmt.Errorf("send email: status %d: %s", resp.StatusCode, msg)
	}
	return Result{Success: true, MessageID: out.MessageID}, resp.StatusCode, nil
}

// LogSender stands in for Brevo when no API key is configured; it logs the
// message and reports success.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) (Result, error) {
	slog.Info("email not sent, no api key configured", "to", m.To, "subject", m.Subject, "attachments", len(m.Attachments))
	return Result{Success: true, MessageID: "log-only"}, nil
}
