package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/config"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/email"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/export"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/odletter"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/registration"
)

// AdminService backs the operator console.
type AdminService struct {
	regs       RegistrationStore
	catalog    Catalog
	submitter  *Submitter
	mailer     Mailer
	creds      config.AdminConfig
	letterhead odletter.Letterhead
	metrics    *metrics.Registry
	log        *slog.Logger
	now        func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(
	regs RegistrationStore,
	catalog Catalog,
	submitter *Submitter,
	mailer Mailer,
	creds config.AdminConfig,
	m *metrics.Registry,
	log *slog.Logger,
) *AdminService {
	if log == nil {
		log = slog.Default()
	}
	return &AdminService{
		regs:       regs,
		catalog:    catalog,
		submitter:  submitter,
		mailer:     mailer,
		creds:      creds,
		letterhead: odletter.DefaultLetterhead(),
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// Authenticate is a literal match against the configured credentials.
func (s *AdminService) Authenticate(username, password string) bool {
	if s.creds.Password == "" {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(username), []byte(s.creds.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(s.creds.Password))
	return u&p == 1
}

// List returns registrations newest first, filtered by a case-insensitive
// substring of name, email, phone, event name or college.
func (s *AdminService) List(ctx context.Context, query string) ([]model.Registration, error) {
	regs, err := s.regs.ListRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return Search(regs, query), nil
}

// Search filters regs, keeping their order.
func Search(regs []model.Registration, query string) []model.Registration {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return regs
	}
	out := make([]model.Registration, 0, len(regs))
	for _, r := range regs {
		for _, field := range []string{r.Name, r.Email, r.Phone, r.EventName, r.College} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Stats aggregates the dashboard counters.
func (s *AdminService) Stats(ctx context.Context) (model.Stats, error) {
	regs, err := s.regs.ListRecent(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("list registrations: %w", err)
	}
	return s.aggregate(ctx, regs), nil
}

// aggregate counts distinct participants by phone number. Revenue uses the
// stored total, falling back to the entry's current price for rows that
// predate stored totals.
func (s *AdminService) aggregate(ctx context.Context, regs []model.Registration) model.Stats {
	st := model.Stats{Total: len(regs)}
	phones := make(map[string]struct{}, len(regs))
	for i := range regs {
		r := &regs[i]
		phones[r.Phone] = struct{}{}
		if r.TotalPrice != nil {
			st.Revenue += *r.TotalPrice
			continue
		}
		st.Revenue += s.currentPrice(ctx, r)
	}
	st.Unique = len(phones)
	return st
}

func (s *AdminService) currentPrice(ctx context.Context, r *model.Registration) float64 {
	if r.CatalogID != "" && r.Category.Valid() {
		if e, err := s.catalog.Get(ctx, r.Category, r.CatalogID); err == nil {
			return e.Price
		}
	}
	if e, ok := s.catalog.FindByTitle(ctx, r.EventName); ok {
		return e.Price
	}
	return 0
}

// Export renders every registration as a spreadsheet.
func (s *AdminService) Export(ctx context.Context) ([]byte, error) {
	regs, err := s.regs.ListRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return export.Workbook(regs)
}

// SubmitManual records a registration on a participant's behalf, without
// payment.
func (s *AdminService) SubmitManual(ctx context.Context, in model.RegistrationForm) (*model.Registration, error) {
	entry, err := s.catalog.Get(ctx, in.Category, in.CatalogID)
	if err != nil {
		return nil, err
	}
	f := registration.NewForm(entry, model.Identity{})
	f.Apply(in)
	f.Email = strings.TrimSpace(in.Email)

	reg, err := s.submitter.SubmitManual(ctx, f)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "manual registration recorded", "registration_id", reg.ID, "event", reg.EventName)
	return reg, nil
}

// EnableOD turns on the On-Duty letter for a registration. With notify set
// the letter is rendered and emailed to the participant; a failed email
// leaves the flag set and returns ErrNotifyFailed with the record.
func (s *AdminService) EnableOD(ctx context.Context, id string, notify bool) (*model.Registration, error) {
	reg, err := s.regs.EnableOD(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.metrics.ODEnabled.Inc()
	s.log.InfoContext(ctx, "od letter enabled", "registration_id", reg.ID)
	if !notify {
		return reg, nil
	}

	pdf, err := odletter.Render(*reg, s.letterhead, s.now())
	if err != nil {
		return reg, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	res, err := s.mailer.SendOnDuty(ctx, email.OnDutyEmail{
		To:        reg.Email,
		Name:      reg.Name,
		EventName: reg.EventName,
		Filename:  odletter.Filename(*reg),
		PDF:       pdf,
	})
	if err == nil && !res.Success {
		err = errors.New(res.Error)
	}
	if err != nil {
		s.metrics.EmailsSent.WithLabelValues("onduty", "failed").Inc()
		return reg, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	s.metrics.EmailsSent.WithLabelValues("onduty", "ok").Inc()
	return reg, nil
}
