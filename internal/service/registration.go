package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/config"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/payment"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/pricing"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/registration"
)

// pendingCheckout is a validated form waiting on the gateway.
type pendingCheckout struct {
	form *registration.Form
	uid  string
}

// RegistrationService runs the public registration flow: validation, the
// payment decision and, for paid entries, the gateway checkout round trip.
type RegistrationService struct {
	catalog   Catalog
	submitter *Submitter
	gateway   Gateway
	live      bool
	rzp       config.RazorpayConfig
	delay     time.Duration
	metrics   *metrics.Registry
	log       *slog.Logger

	// pending holds forms by gateway order id; inflight holds one lock per
	// user while a submission is being processed.
	pending  *cache.Cache
	inflight *cache.Cache

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRegistrationService constructs a RegistrationService. gateway is only
// used when rzp carries a real key.
func NewRegistrationService(
	catalog Catalog,
	submitter *Submitter,
	gateway Gateway,
	rzp config.RazorpayConfig,
	wf config.WorkflowConfig,
	m *metrics.Registry,
	log *slog.Logger,
) *RegistrationService {
	if log == nil {
		log = slog.Default()
	}
	ttl := wf.CheckoutTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RegistrationService{
		catalog:   catalog,
		submitter: submitter,
		gateway:   gateway,
		live:      rzp.Configured() && gateway != nil,
		rzp:       rzp,
		delay:     wf.SimulatedPaymentDelay,
		metrics:   m,
		log:       log,
		pending:   cache.New(ttl, 2*ttl),
		inflight:  cache.New(time.Minute, 2*time.Minute),
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Quote prices a team size for an entry.
func (s *RegistrationService) Quote(ctx context.Context, category model.Category, id string, teamCount int) (model.Quote, error) {
	entry, err := s.catalog.Get(ctx, category, id)
	if err != nil {
		return model.Quote{}, err
	}
	return pricing.Quote(entry, teamCount), nil
}

// lock claims the per-user in-flight slot. The returned func releases it.
func (s *RegistrationService) lock(uid string) (func(), error) {
	key := "inflight:" + uid
	if err := s.inflight.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		return nil, ErrCheckoutInProgress
	}
	return func() { s.inflight.Delete(key) }, nil
}

// Begin validates a submission and either records it directly (free and
// simulated payment) or opens a gateway order for it.
func (s *RegistrationService) Begin(ctx context.Context, id model.Identity, in model.RegistrationForm) (*model.SubmissionResult, error) {
	unlock, err := s.lock(id.UID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err := s.catalog.Get(ctx, in.Category, in.CatalogID)
	if err != nil {
		return nil, err
	}
	form := registration.NewForm(entry, id)
	form.Apply(in)
	if err := form.Validate(); err != nil {
		return nil, err
	}

	total := form.Total()
	mode := registration.DecidePayment(total, s.live)
	switch mode {
	case registration.PaymentSimulated:
		if err := s.sleep(ctx, s.delay); err != nil {
			return nil, err
		}
		fallthrough
	case registration.PaymentFree:
		return s.record(ctx, form, id.UID, mode, mode.Sentinel())
	}

	order, err := s.gateway.CreateOrder(ctx, pricing.MinorUnits(total), s.rzp.Currency, receipt(), map[string]string{
		"eventName": entry.Title,
		"uid":       id.UID,
	})
	if err != nil {
		s.metrics.Checkouts.WithLabelValues("unavailable").Inc()
		return nil, err
	}
	s.pending.SetDefault(order.ID, &pendingCheckout{form: form, uid: id.UID})
	s.metrics.Checkouts.WithLabelValues("opened").Inc()
	s.log.InfoContext(ctx, "checkout opened", "order_id", order.ID, "event", entry.Title, "amount", total)

	return &model.SubmissionResult{
		Status: model.StatusPaymentRequired,
		Mode:   mode.String(),
		Total:  total,
		Checkout: &model.CheckoutOptions{
			Key:              s.gateway.KeyID(),
			OrderID:          order.ID,
			AmountMinorUnits: order.Amount,
			Currency:         order.Currency,
			Name:             s.rzp.Name,
			Description:      "Registration for " + entry.Title,
			Image:            s.rzp.Image,
			Prefill: model.CheckoutPrefill{
				Name:    form.Name,
				Email:   form.Email,
				Contact: form.Phone,
			},
		},
	}, nil
}

// Confirm finishes a gateway checkout. Every outcome is terminal: the
// pending form is discarded and a retry starts again from Begin.
func (s *RegistrationService) Confirm(ctx context.Context, id model.Identity, orderID string, cb model.CheckoutCallback) (*model.SubmissionResult, error) {
	unlock, err := s.lock(id.UID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := s.pending.Get(orderID)
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	pc := v.(*pendingCheckout)
	if pc.uid != id.UID {
		return nil, ErrCheckoutNotFound
	}
	s.pending.Delete(orderID)

	switch {
	case cb.Dismissed:
		s.metrics.Checkouts.WithLabelValues("dismissed").Inc()
		return nil, payment.ErrDismissed
	case cb.Error != nil:
		s.metrics.Checkouts.WithLabelValues("failed").Inc()
		s.log.WarnContext(ctx, "payment failed", "order_id", orderID, "code", cb.Error.Code)
		return nil, &payment.FailedError{Description: cb.Error.Description, Code: cb.Error.Code}
	case cb.PaymentID == "":
		return nil, ErrInvalidCallback
	}

	if err := s.gateway.Verify(orderID, cb.PaymentID, cb.Signature); err != nil {
		s.metrics.Checkouts.WithLabelValues("bad_signature").Inc()
		return nil, err
	}
	s.metrics.Checkouts.WithLabelValues("paid").Inc()
	return s.record(ctx, pc.form, pc.uid, registration.PaymentGateway, cb.PaymentID)
}

func (s *RegistrationService) record(ctx context.Context, f *registration.Form, uid string, mode registration.PaymentMode, paymentID string) (*model.SubmissionResult, error) {
	regID, err := s.submitter.Submit(ctx, Submission{Form: f, UID: uid, PaymentID: paymentID})
	if err != nil {
		return nil, fmt.Errorf("submit registration: %w", err)
	}
	s.metrics.Registrations.WithLabelValues(mode.String()).Inc()
	return &model.SubmissionResult{
		Status:    model.StatusRegistered,
		ID:        regID,
		Mode:      mode.String(),
		PaymentID: paymentID,
		Total:     f.Total(),
	}, nil
}

// receipt is a gateway receipt reference; Razorpay caps it at 40 characters.
func receipt() string {
	return "imp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) (*registration.ValidationError, bool) {
	var ve *registration.ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
