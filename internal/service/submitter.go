package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/config"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/email"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/registration"
)

// Submission is a validated form ready to be recorded.
type Submission struct {
	Form      *registration.Form
	UID       string
	PaymentID string
}

// Submitter records registrations. The public path reports success as soon
// as the id is allocated; the write, the confirmation email and the profile
// link run afterwards and their failures are only logged and counted.
type Submitter struct {
	regs     RegistrationStore
	profiles ProfileStore
	mailer   Mailer
	metrics  *metrics.Registry
	log      *slog.Logger

	timeout  time.Duration
	attempts uint64
	interval time.Duration
	now      func() time.Time

	wg sync.WaitGroup
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(
	regs RegistrationStore,
	profiles ProfileStore,
	mailer Mailer,
	m *metrics.Registry,
	cfg config.WorkflowConfig,
	log *slog.Logger,
) *Submitter {
	if log == nil {
		log = slog.Default()
	}
	attempts := cfg.BackgroundAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &Submitter{
		regs:     regs,
		profiles: profiles,
		mailer:   mailer,
		metrics:  m,
		log:      log,
		timeout:  cfg.BackgroundTimeout,
		attempts: attempts,
		interval: cfg.RetryInterval,
		now:      time.Now,
	}
}

// Submit allocates an id, starts the background side effects and returns the
// id without waiting for them.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (string, error) {
	if err := sub.Form.Validate(); err != nil {
		return "", err
	}
	id := s.regs.NewID()
	reg := s.assemble(id, sub)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.background(ctx, reg)
	}()
	return id, nil
}

// SubmitManual records an operator-entered registration with a single
// synchronous write. No email is sent.
func (s *Submitter) SubmitManual(ctx context.Context, f *registration.Form) (*model.Registration, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	reg := s.assemble(s.regs.NewID(), Submission{Form: f, UID: model.ManualUID, PaymentID: model.PaymentManual})
	if err := s.regs.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save manual registration: %w", err)
	}
	s.metrics.Registrations.WithLabelValues("manual").Inc()
	return reg, nil
}

// Drain blocks until every background group started so far has finished or
// ctx is done.
func (s *Submitter) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submitter) assemble(id string, sub Submission) *model.Registration {
	f := sub.Form
	total := f.Total()
	return &model.Registration{
		ID:             id,
		UID:            sub.UID,
		Name:           f.Name,
		Email:          f.Email,
		Phone:          f.Phone,
		College:        f.College,
		Year:           f.Year,
		TeamName:       f.TeamName,
		CatalogID:      f.Entry.ID,
		EventName:      f.Entry.Title,
		Category:       f.Entry.Category,
		PricePerPerson: f.Entry.Price,
		TeamCount:      f.TeamCount(),
		TotalPrice:     &total,
		TeamMembers:    f.Members(),
		PaymentID:      sub.PaymentID,
		RegisteredAt:   s.now().UTC(),
	}
}

// background runs the three side effects concurrently. They are independent:
// one failing does not cancel the others.
func (s *Submitter) background(parent context.Context, reg *model.Registration) {
	ctx := context.WithoutCancel(parent)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var g errgroup.Group
	g.Go(func() error {
		return s.run(ctx, "persist", reg.ID, func(ctx context.Context) error {
			return s.regs.Save(ctx, reg)
		})
	})
	g.Go(func() error {
		err := s.run(ctx, "email", reg.ID, func(ctx context.Context) error {
			return s.sendConfirmation(ctx, reg)
		})
		result := "ok"
		if err != nil {
			result = "failed"
		}
		s.metrics.EmailsSent.WithLabelValues("registration", result).Inc()
		return err
	})
	if reg.UID != "" {
		g.Go(func() error {
			return s.run(ctx, "profile", reg.ID, func(ctx context.Context) error {
				return s.profiles.AppendRegistration(ctx, reg.UID, reg.Summary(reg.RegisteredAt))
			})
		})
	}

	if err := g.Wait(); err != nil {
		s.log.Warn("registration recorded with incomplete side effects",
			"registration_id", reg.ID, "error", err)
		return
	}
	s.log.Info("registration side effects complete", "registration_id", reg.ID, "event", reg.EventName)
}

func (s *Submitter) sendConfirmation(ctx context.Context, reg *model.Registration) error {
	members := make([]string, 0, len(reg.TeamMembers))
	for _, m := range reg.TeamMembers {
		members = append(members, m.Name)
	}
	res, err := s.mailer.SendRegistration(ctx, email.RegistrationEmail{
		To:          reg.Email,
		Name:        reg.Name,
		EventName:   reg.EventName,
		College:     reg.College,
		Year:        reg.Year,
		Amount:      *reg.TotalPrice,
		PaymentID:   reg.PaymentID,
		RefID:       reg.ID,
		TeamName:    reg.TeamName,
		TeamMembers: members,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

// run retries op with exponential backoff, then logs and counts a final
// failure.
func (s *Submitter) run(ctx context.Context, task, id string, op func(context.Context) error) error {
	start := time.Now()
	err := backoff.Retry(func() error {
		err := op(ctx)
		if errors.Is(err, email.ErrQuotaExhausted) {
			return backoff.Permanent(err)
		}
		return err
	}, s.policy(ctx))
	s.metrics.BackgroundSec.WithLabelValues(task).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.BackgroundFailed.WithLabelValues(task).Inc()
		s.log.Error("background task failed",
			"task", task, "registration_id", id, "attempts", s.attempts, "error", err)
		return fmt.Errorf("%s: %w", task, err)
	}
	return nil
}

func (s *Submitter) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if s.interval > 0 {
		eb.InitialInterval = s.interval
	}
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, s.attempts-1), ctx)
}
