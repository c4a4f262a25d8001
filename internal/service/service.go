// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/email"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/payment"
)

var (
	// ErrCheckoutInProgress rejects a second submission while one is running
	// for the same user.
	ErrCheckoutInProgress = errors.New("a registration is already being processed")
	// ErrCheckoutNotFound means the order is unknown, expired or already
	// finished.
	ErrCheckoutNotFound = errors.New("checkout not found or expired")
	// ErrInvalidCallback means a checkout callback carried none of the
	// expected outcomes.
	ErrInvalidCallback = errors.New("checkout callback must report a payment, an error or a dismissal")
	// ErrForbidden hides registrations owned by someone else.
	ErrForbidden = errors.New("registration belongs to another user")
	// ErrODNotEnabled means the admin has not enabled the On-Duty letter.
	ErrODNotEnabled = errors.New("On-Duty letter not enabled yet")
	// ErrNotifyFailed means a state change succeeded but its email did not.
	ErrNotifyFailed = errors.New("email notification failed")
)

// RegistrationStore persists registrations.
type RegistrationStore interface {
	NewID() string
	Save(ctx context.Context, reg *model.Registration) error
	Get(ctx context.Context, id string) (*model.Registration, error)
	ListByEmail(ctx context.Context, email string) ([]model.Registration, error)
	ListRecent(ctx context.Context) ([]model.Registration, error)
	EnableOD(ctx context.Context, id string, at time.Time) (*model.Registration, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	Upsert(ctx context.Context, id model.Identity, at time.Time) error
	AppendRegistration(ctx context.Context, uid string, s model.RegistrationSummary) error
	Get(ctx context.Context, uid string) (*model.UserProfile, error)
}

// Catalog reads catalog entries.
type Catalog interface {
	List(ctx context.Context, category model.Category) ([]model.CatalogEntry, error)
	Get(ctx context.Context, category model.Category, id string) (model.CatalogEntry, error)
	FindByTitle(ctx context.Context, title string) (model.CatalogEntry, bool)
}

// Mailer sends the symposium's transactional emails.
type Mailer interface {
	SendRegistration(ctx context.Context, e email.RegistrationEmail) (email.Result, error)
	SendOnDuty(ctx context.Context, e email.OnDutyEmail) (email.Result, error)
}

// Gateway opens and verifies payment checkouts.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*payment.Order, error)
	Verify(orderID, paymentID, signature string) error
}
