// Package repository implements the document store on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// CatalogRepository handles persistence for catalog entries.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const catalogColumns = `category, id, title, description, details, price, is_team_event,
	min_team_size, max_team_size, is_fixed_price, coordinators, rules`

func scanCatalogEntry(row pgx.CollectableRow) (model.CatalogEntry, error) {
	var e model.CatalogEntry
	err := row.Scan(&e.Category, &e.ID, &e.Title, &e.Description, &e.Details, &e.Price, &e.IsTeamEvent,
		&e.MinTeamSize, &e.MaxTeamSize, &e.IsFixedPrice, &e.Coordinators, &e.Rules)
	return e, err
}

// ReplaceAll swaps the whole catalog for entries inside one transaction.
// This is the bulk administrative seed; the registration workflow never
// writes the catalog.
func (r *CatalogRepository) ReplaceAll(ctx context.Context, entries []model.CatalogEntry) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM catalog_entries`); err != nil {
		return fmt.Errorf("clear catalog: %w", err)
	}
	for i, e := range entries {
		_, err = tx.Exec(ctx,
			`INSERT INTO catalog_entries (`+catalogColumns+`, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			e.Category, e.ID, e.Title, e.Description, e.Details, e.Price, e.IsTeamEvent,
			e.MinTeamSize, e.MaxTeamSize, e.IsFixedPrice, e.Coordinators, e.Rules, i,
		)
		if err != nil {
			return fmt.Errorf("insert catalog entry %s/%s: %w", e.Category, e.ID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// List returns the entries of a category in seed order, or every entry when
// category is empty.
func (r *CatalogRepository) List(ctx context.Context, category model.Category) ([]model.CatalogEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+catalogColumns+`
		 FROM catalog_entries
		 WHERE $1 = '' OR category = $1
		 ORDER BY position ASC`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanCatalogEntry)
	if err != nil {
		return nil, fmt.Errorf("scan catalog entry: %w", err)
	}
	return entries, nil
}

// Get returns a single catalog entry or ErrNotFound.
func (r *CatalogRepository) Get(ctx context.Context, category model.Category, id string) (*model.CatalogEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+catalogColumns+` FROM catalog_entries WHERE category = $1 AND id = $2`,
		string(category), id,
	)
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanCatalogEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return &e, nil
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, uid, name, email, phone, college, year, team_name, catalog_id,
	event_name, category, price_per_person, team_count, total_price, team_members, payment_id,
	registered_at, od_generated, od_generated_at`

func scanRegistration(row pgx.CollectableRow) (model.Registration, error) {
	var reg model.Registration
	err := row.Scan(&reg.ID, &reg.UID, &reg.Name, &reg.Email, &reg.Phone, &reg.College, &reg.Year,
		&reg.TeamName, &reg.CatalogID, &reg.EventName, &reg.Category, &reg.PricePerPerson,
		&reg.TeamCount, &reg.TotalPrice, &reg.TeamMembers, &reg.PaymentID,
		&reg.RegisteredAt, &reg.ODGenerated, &reg.ODGeneratedAt)
	if reg.TeamMembers == nil {
		reg.TeamMembers = []model.TeamMember{}
	}
	return reg, err
}

// NewID pre-allocates a registration id so callers know it before the write
// completes.
func (r *RegistrationRepository) NewID() string {
	return uuid.New().String()
}

// Save writes reg under reg.ID. A second write to the same id replaces the
// first (last write wins). registered_at is assigned by the database.
func (r *RegistrationRepository) Save(ctx context.Context, reg *model.Registration) error {
	members := reg.TeamMembers
	if members == nil {
		members = []model.TeamMember{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO registrations (id, uid, name, email, phone, college, year, team_name, catalog_id,
			event_name, category, price_per_person, team_count, total_price, team_members, payment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
			uid = EXCLUDED.uid, name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			college = EXCLUDED.college, year = EXCLUDED.year, team_name = EXCLUDED.team_name,
			catalog_id = EXCLUDED.catalog_id, event_name = EXCLUDED.event_name,
			category = EXCLUDED.category, price_per_person = EXCLUDED.price_per_person,
			team_count = EXCLUDED.team_count, total_price = EXCLUDED.total_price,
			team_members = EXCLUDED.team_members, payment_id = EXCLUDED.payment_id`,
		reg.ID, reg.UID, reg.Name, reg.Email, reg.Phone, reg.College, reg.Year, reg.TeamName,
		reg.CatalogID, reg.EventName, string(reg.Category), reg.PricePerPerson, reg.TeamCount,
		reg.TotalPrice, members, reg.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// Get returns a single registration or ErrNotFound.
func (r *RegistrationRepository) Get(ctx context.Context, id string) (*model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	reg, err := pgx.CollectExactlyOneRow(rows, scanRegistration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// ListByEmail returns a participant's registrations, newest first. Emails
// compare case-insensitively.
func (r *RegistrationRepository) ListByEmail(ctx context.Context, email string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE lower(email) = lower($1)
		 ORDER BY registered_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations by email: %w", err)
	}
	regs, err := pgx.CollectRows(rows, scanRegistration)
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return regs, nil
}

// ListRecent returns every registration ordered by registration time descending.
func (r *RegistrationRepository) ListRecent(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY registered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	regs, err := pgx.CollectRows(rows, scanRegistration)
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return regs, nil
}

// EnableOD sets the On-Duty flag and stamps the time. Repeating it only moves
// the timestamp.
func (r *RegistrationRepository) EnableOD(ctx context.Context, id string, at time.Time) (*model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`UPDATE registrations SET od_generated = TRUE, od_generated_at = $2
		 WHERE id = $1
		 RETURNING `+registrationColumns,
		id, at,
	)
	if err != nil {
		return nil, fmt.Errorf("enable od: %w", err)
	}
	reg, err := pgx.CollectExactlyOneRow(rows, scanRegistration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("enable od: %w", err)
	}
	return &reg, nil
}

// ProfileRepository handles persistence for user profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert mirrors the identity into the profile on sign-in, merging with any
// existing document.
func (r *ProfileRepository) Upsert(ctx context.Context, id model.Identity, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_profiles (uid, email, display_name, photo_url, last_login)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email, display_name = EXCLUDED.display_name,
			photo_url = EXCLUDED.photo_url, last_login = EXCLUDED.last_login`,
		id.UID, id.Email, id.DisplayName, id.PhotoURL, at,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// AppendRegistration adds s to the user's registered events. A summary
// whose registration id is already listed is left alone, so retries do not
// duplicate it.
func (r *ProfileRepository) AppendRegistration(ctx context.Context, uid string, s model.RegistrationSummary) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_profiles (uid, registered_events)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (uid) DO UPDATE SET
			registered_events = user_profiles.registered_events || EXCLUDED.registered_events
		 WHERE NOT user_profiles.registered_events @>
			jsonb_build_array(jsonb_build_object('registrationId', $3::text))`,
		uid, []model.RegistrationSummary{s}, s.RegistrationID,
	)
	if err != nil {
		return fmt.Errorf("append profile registration: %w", err)
	}
	return nil
}

// Get returns a user profile or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := r.db.QueryRow(ctx,
		`SELECT uid, email, display_name, photo_url, last_login, registered_events
		 FROM user_profiles WHERE uid = $1`,
		uid,
	).Scan(&p.UID, &p.Email, &p.DisplayName, &p.PhotoURL, &p.LastLogin, &p.RegisteredEvents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p.RegisteredEvents == nil {
		p.RegisteredEvents = []model.RegistrationSummary{}
	}
	return &p, nil
}
