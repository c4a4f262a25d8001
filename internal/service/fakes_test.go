package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/config"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/email"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/payment"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/repository"
)

var (
	wiring = model.CatalogEntry{
		ID: "2", Title: "Wiring Challenge", Category: model.CategoryTechnical,
		Price: 50, MinTeamSize: 1, MaxTeamSize: 1,
	}
	quiz = model.CatalogEntry{
		ID: "3", Title: "Technical Quiz", Category: model.CategoryTechnical,
		Price: 50, IsTeamEvent: true, MinTeamSize: 1, MaxTeamSize: 3,
	}
	cadathon = model.CatalogEntry{
		ID: "6", Title: "E-Cadathon", Category: model.CategoryTechnical,
		Price: 100, IsTeamEvent: true, IsFixedPrice: true, MinTeamSize: 1, MaxTeamSize: 3,
	}
	editing = model.CatalogEntry{
		ID: "7", Title: "Video Editing", Category: model.CategoryWorkshop,
		Price: 0, MinTeamSize: 1, MaxTeamSize: 1,
	}

	asha = model.Identity{UID: "u1", DisplayName: "Asha K", Email: "asha@example.com"}
)

type fakeCatalog struct {
	entries []model.CatalogEntry
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: []model.CatalogEntry{wiring, quiz, cadathon, editing}}
}

func (c *fakeCatalog) List(_ context.Context, category model.Category) ([]model.CatalogEntry, error) {
	var out []model.CatalogEntry
	for _, e := range c.entries {
		if category == "" || e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Get(_ context.Context, category model.Category, id string) (model.CatalogEntry, error) {
	for _, e := range c.entries {
		if e.Category == category && e.ID == id {
			return e, nil
		}
	}
	return model.CatalogEntry{}, catalog.ErrNotFound
}

func (c *fakeCatalog) FindByTitle(_ context.Context, title string) (model.CatalogEntry, bool) {
	for _, e := range c.entries {
		if e.Title == title {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

type memRegistrations struct {
	mu      sync.Mutex
	seq     int
	regs    map[string]model.Registration
	saveErr error
	saves   int
}

func newMemRegistrations() *memRegistrations {
	return &memRegistrations{regs: map[string]model.Registration{}}
}

func (m *memRegistrations) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("reg%09d", m.seq)
}

func (m *memRegistrations) Save(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.regs[reg.ID] = *reg
	return nil
}

func (m *memRegistrations) Get(_ context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memRegistrations) sorted(keep func(model.Registration) bool) []model.Registration {
	out := []model.Registration{}
	for _, r := range m.regs {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memRegistrations) ListByEmail(_ context.Context, email string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(r model.Registration) bool { return strings.EqualFold(r.Email, email) }), nil
}

func (m *memRegistrations) ListRecent(_ context.Context) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(model.Registration) bool { return true }), nil
}

func (m *memRegistrations) EnableOD(_ context.Context, id string, at time.Time) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.ODGenerated = true
	r.ODGeneratedAt = &at
	m.regs[id] = r
	return &r, nil
}

func (m *memRegistrations) put(r model.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[r.ID] = r
}

func (m *memRegistrations) only(t *testing.T) model.Registration {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.regs) != 1 {
		t.Fatalf("want exactly one registration, have %d", len(m.regs))
	}
	for _, r := range m.regs {
		return r
	}
	return model.Registration{}
}

type memProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.UserProfile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: map[string]*model.UserProfile{}}
}

func (m *memProfiles) Upsert(_ context.Context, id model.Identity, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id.UID]
	if !ok {
		p = &model.UserProfile{RegisteredEvents: []model.RegistrationSummary{}}
		m.profiles[id.UID] = p
	}
	p.Identity = id
	p.LastLogin = at
	return nil
}

func (m *memProfiles) AppendRegistration(_ context.Context, uid string, s model.RegistrationSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[uid]
	if !ok {
		p = &model.UserProfile{Identity: model.Identity{UID: uid}}
		m.profiles[uid] = p
	}
	for _, e := range p.RegisteredEvents {
		if e.RegistrationID == s.RegistrationID {
			return nil
		}
	}
	p.RegisteredEvents = append(p.RegisteredEvents, s)
	return nil
}

func (m *memProfiles) Get(_ context.Context, uid string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeMailer struct {
	mu           sync.Mutex
	registration []email.RegistrationEmail
	onDuty       []email.OnDutyEmail
	err          error
}

func (f *fakeMailer) SendRegistration(_ context.Context, e email.RegistrationEmail) (email.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registration = append(f.registration, e)
	if f.err != nil {
		return email.Result{Error: f.err.Error()}, f.err
	}
	return email.Result{Success: true, MessageID: "m"}, nil
}

func (f *fakeMailer) SendOnDuty(_ context.Context, e email.OnDutyEmail) (email.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDuty = append(f.onDuty, e)
	if f.err != nil {
		return email.Result{Error: f.err.Error()}, f.err
	}
	return email.Result{Success: true, MessageID: "m"}, nil
}

func (f *fakeMailer) registrations() []email.RegistrationEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]email.RegistrationEmail(nil), f.registration...)
}

// fakeGateway signs like the real client but opens orders locally.
type fakeGateway struct {
	*payment.Client
	mu     sync.Mutex
	orders int
	err    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{Client: payment.NewClient("rzp_test_live", "secret", "")}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amountMinor int64, currency, receipt string, _ map[string]string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	if g.err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrUnavailable, g.err)
	}
	return &payment.Order{ID: fmt.Sprintf("order_%d", g.orders), Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}

func (g *fakeGateway) created() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders
}

type harness struct {
	regs     *memRegistrations
	profiles *memProfiles
	mailer   *fakeMailer
	gateway  *fakeGateway
	catalog  *fakeCatalog
	metrics  *metrics.Registry
	logs     *syncBuffer

	submitter *Submitter
	reg       *RegistrationService
	admin     *AdminService
	profile   *ProfileService
}

// syncBuffer lets background goroutines log while a test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var testWorkflow = config.WorkflowConfig{
	BackgroundTimeout:  5 * time.Second,
	BackgroundAttempts: 2,
	RetryInterval:      time.Millisecond,
	CheckoutTTL:        time.Minute,
}

func newHarness(t *testing.T, live bool) *harness {
	t.Helper()
	h := &harness{
		regs:     newMemRegistrations(),
		profiles: newMemProfiles(),
		mailer:   &fakeMailer{},
		gateway:  newFakeGateway(),
		catalog:  newFakeCatalog(),
		metrics:  metrics.NewRegistry(),
		logs:     &syncBuffer{},
	}
	log := slog.New(slog.NewJSONHandler(h.logs, nil))
	rzp := config.RazorpayConfig{KeyID: config.PlaceholderRazorpayKey, Currency: "INR", Name: "Impulse 2026"}
	if live {
		rzp.KeyID = "rzp_test_live"
	}

	h.submitter = NewSubmitter(h.regs, h.profiles, h.mailer, h.metrics, testWorkflow, log)
	h.reg = NewRegistrationService(h.catalog, h.submitter, h.gateway, rzp, testWorkflow, h.metrics, log)
	h.admin = NewAdminService(h.regs, h.catalog, h.submitter, h.mailer,
		config.AdminConfig{Username: "admin", Password: "s3cret"}, h.metrics, log)
	h.profile = NewProfileService(h.profiles, h.regs)
	return h
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.submitter.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func (h *harness) logLines(match string) []string {
	var out []string
	for _, l := range strings.Split(h.logs.String(), "\n") {
		if strings.Contains(l, match) {
			out = append(out, l)
		}
	}
	return out
}

var errStoreDown = errors.New("store unavailable")

func soloForm(e model.CatalogEntry) model.RegistrationForm {
	return model.RegistrationForm{
		Category: e.Category, CatalogID: e.ID,
		College: "CIT", Year: "2", Phone: "9876543210", TeamCount: 1,
	}
}
