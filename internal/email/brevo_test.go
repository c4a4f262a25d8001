package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
}

func (r *recordingSender) Send(_ context.Context, m Message) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return Result{Success: true}, nil
}

func TestClientSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/smtp/email", r.URL.Path)
		assert.Equal(t, "key-a", r.Header.Get("api-key"))

		var req brevoRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Impulse 2026", req.Sender.Name)
		if assert.Len(t, req.To, 1) {
			assert.Equal(t, "asha@example.com", req.To[0].Email)
		}
		if assert.Len(t, req.Attachment, 1) {
			raw, err := base64.StdEncoding.DecodeString(req.Attachment[0].Content)
			assert.NoError(t, err)
			assert.Equal(t, "%PDF-", string(raw))
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<abc@smtp>"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Impulse 2026", "noreply@example.com", []string{"key-a"})
	res, err := c.Send(context.Background(), Message{
		To:          "asha@example.com",
		Subject:     "hi",
		HTML:        "<p>hi</p>",
		Attachments: []Attachment{{Name: "a.pdf", Content: []byte("%PDF-")}},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "<abc@smtp>", res.MessageID)
}

func TestClientSend_RotatesOnQuota(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api-key")
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
		if key == "key-a" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"m1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", "s@example.com", []string{"key-a", "key-b"})
	ctx := context.Background()

	res, err := c.Send(ctx, Message{To: "x@example.com"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	// key-a stays parked for the rest of the day.
	_, err = c.Send(ctx, Message{To: "y@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"key-a", "key-b", "key-b"}, seen)
}

func TestClientSend_AllKeysExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"code":"not_enough_credits","message":"quota"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", "s@example.com", []string{"a", "b"})
	res, err := c.Send(context.Background(), Message{To: "x@example.com"})
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.False(t, res.Success)
}

func TestClientSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter","message":"email is not valid"}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "s", "s@example.com", []string{"a"}).Send(context.Background(), Message{To: "bad"})
	require.Error(t, err)
	assert.Equal(t, "email is not valid", res.Error)
}

func TestKeyRing_UnparksNextDay(t *testing.T) {
	now := time.Date(2026, 2, 10, 23, 0, 0, 0, time.UTC)
	r := newKeyRing([]string{"a"}, func() time.Time { return now })

	idx, _, ok := r.next()
	require.True(t, ok)
	r.exhaust(idx)
	_, _, ok = r.next()
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, key, ok := r.next()
	assert.True(t, ok)
	assert.Equal(t, "a", key)
}

func TestMailer_Registration(t *testing.T) {
	rec := &recordingSender{}
	m := NewMailer(rec)

	_, err := m.SendRegistration(context.Background(), RegistrationEmail{
		To:          "asha@example.com",
		Name:        "Asha",
		EventName:   "Paper Presentation",
		Amount:      450,
		PaymentID:   "pay_1",
		RefID:       "reg-1",
		TeamName:    "Volts",
		TeamMembers: []string{"Ravi", "Meena"},
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)

	got := rec.sent[0]
	assert.Equal(t, "Registration Confirmed - Paper Presentation | IMPULSE 2026", got.Subject)
	assert.Contains(t, got.HTML, "Asha")
	assert.Contains(t, got.HTML, "450.00")
	assert.Contains(t, got.HTML, "Member 3")
	assert.Contains(t, got.HTML, "Meena")
	assert.Contains(t, got.HTML, "Volts")
}

func TestMailer_OnDutyAttachesLetter(t *testing.T) {
	rec := &recordingSender{}
	_, err := NewMailer(rec).SendOnDuty(context.Background(), OnDutyEmail{
		To:        "asha@example.com",
		Name:      "Asha",
		EventName: "Paper Presentation",
		Filename:  "OD_Letter_Asha.pdf",
		PDF:       []byte("%PDF-1.3"),
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "On-Duty Letter - Impulse 2026", rec.sent[0].Subject)
	require.Len(t, rec.sent[0].Attachments, 1)
	assert.Equal(t, "OD_Letter_Asha.pdf", rec.sent[0].Attachments[0].Name)
}
