// Package model defines the core domain types for the symposium registration system.
package model

import "time"

// Category tags a catalog entry.
type Category string

const (
	CategoryTechnical Category = "Technical"
	CategoryOnline    Category = "Online"
	CategoryWorkshop  Category = "Workshop"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryOnline, CategoryWorkshop:
		return true
	}
	return false
}

// Sentinel payment ids stored when no real charge occurred.
const (
	PaymentFree      = "FREE_REGISTRATION"
	PaymentSimulated = "SIMULATED_PAYMENT_ID"
	PaymentManual    = "MANUAL"
)

// ManualUID marks registrations entered by an operator.
const ManualUID = "ADMIN_MANUAL"

// Coordinator is a display-only contact for a catalog entry.
type Coordinator struct {
	Name    string `json:"name" yaml:"name"`
	Contact string `json:"contact" yaml:"contact"`
}

// CatalogEntry is a registerable offering: a technical event, an online
// event or a workshop.
type CatalogEntry struct {
	ID           string        `json:"id" yaml:"id"`
	Title        string        `json:"title" yaml:"title"`
	Category     Category      `json:"category" yaml:"category"`
	Description  string        `json:"description" yaml:"description"`
	Details      string        `json:"details" yaml:"details"`
	Price        float64       `json:"price" yaml:"price"`
	IsTeamEvent  bool          `json:"isTeamEvent" yaml:"isTeamEvent"`
	MinTeamSize  int           `json:"minTeamSize" yaml:"minTeamSize"`
	MaxTeamSize  int           `json:"maxTeamSize" yaml:"maxTeamSize"`
	IsFixedPrice bool          `json:"isFixedPrice" yaml:"isFixedPrice"`
	Coordinators []Coordinator `json:"coordinators" yaml:"coordinators"`
	Rules        []string      `json:"rules" yaml:"rules"`
}

// Normalize resolves the team bounds once at ingestion so every reader sees
// 1 <= MinTeamSize <= MaxTeamSize, with both pinned to 1 for solo entries.
func (e *CatalogEntry) Normalize() {
	if !e.IsTeamEvent {
		e.MinTeamSize, e.MaxTeamSize = 1, 1
	}
	if e.MinTeamSize < 1 {
		e.MinTeamSize = 1
	}
	if e.MaxTeamSize < e.MinTeamSize {
		e.MaxTeamSize = e.MinTeamSize
	}
	if e.Price < 0 {
		e.Price = 0
	}
	if e.Coordinators == nil {
		e.Coordinators = []Coordinator{}
	}
	if e.Rules == nil {
		e.Rules = []string{}
	}
}

// TeamMember is one additional participant on a team registration.
type TeamMember struct {
	Name string `json:"name"`
}

// Registration is a participant's registration for a catalog entry.
type Registration struct {
	ID             string       `json:"id"`
	UID            string       `json:"uid"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	Phone          string       `json:"phone"`
	College        string       `json:"college"`
	Year           string       `json:"year"`
	TeamName       string       `json:"teamName,omitempty"`
	CatalogID      string       `json:"catalogId"`
	EventName      string       `json:"eventName"`
	Category       Category     `json:"category"`
	PricePerPerson float64      `json:"pricePerPerson"`
	TeamCount      int          `json:"teamCount"`
	TotalPrice     *float64     `json:"totalPrice,omitempty"` // nil on rows created before totals were stored
	TeamMembers    []TeamMember `json:"teamMembers"`
	PaymentID      string       `json:"paymentId"`
	RegisteredAt   time.Time    `json:"registeredAt"`
	ODGenerated    bool         `json:"odGenerated"`
	ODGeneratedAt  *time.Time   `json:"odGeneratedAt,omitempty"`
}

// Summary returns the profile index entry for this registration.
func (r *Registration) Summary(at time.Time) RegistrationSummary {
	return RegistrationSummary{
		RegistrationID: r.ID,
		CatalogID:      r.CatalogID,
		EventName:      r.EventName,
		Category:       r.Category,
		PaymentID:      r.PaymentID,
		RegisteredAt:   at.UTC(),
	}
}

// Identity is the authenticated user as reported by the auth provider.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}

// RegistrationSummary is the denormalised entry appended to a user profile.
type RegistrationSummary struct {
	RegistrationID string    `json:"registrationId"`
	CatalogID      string    `json:"catalogId"`
	EventName      string    `json:"eventName"`
	Category       Category  `json:"category"`
	PaymentID      string    `json:"paymentId"`
	RegisteredAt   time.Time `json:"registeredAt"`
}

// UserProfile mirrors the auth identity plus the user's registrations.
// Registration rows remain the source of truth.
type UserProfile struct {
	Identity
	LastLogin        time.Time             `json:"lastLogin"`
	RegisteredEvents []RegistrationSummary `json:"registeredEvents"`
}

// RegistrationForm is the payload for the public and manual registration flows.
type RegistrationForm struct {
	Category    Category `json:"category"`
	CatalogID   string   `json:"catalogId"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone"`
	College     string   `json:"college"`
	Year        string   `json:"year"`
	TeamName    string   `json:"teamName,omitempty"`
	TeamCount   int      `json:"teamCount"`
	TeamMembers []string `json:"teamMembers"`
}

// Quote is the priced outcome of a team-size selection.
type Quote struct {
	CatalogID  string  `json:"catalogId"`
	TeamCount  int     `json:"teamCount"`
	MinTeam    int     `json:"minTeamSize"`
	MaxTeam    int     `json:"maxTeamSize"`
	RosterSize int     `json:"rosterSize"`
	UnitPrice  float64 `json:"pricePerPerson"`
	Total      float64 `json:"totalPrice"`
}

// CheckoutPrefill pre-populates the gateway's checkout form.
type CheckoutPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// CheckoutOptions are what the browser needs to open the gateway widget.
type CheckoutOptions struct {
	Key              string          `json:"key"`
	OrderID          string          `json:"orderId"`
	AmountMinorUnits int64           `json:"amountMinorUnits"`
	Currency         string          `json:"currency"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Image            string          `json:"image,omitempty"`
	Prefill          CheckoutPrefill `json:"prefill"`
}

// CheckoutFailure is the gateway's failure report.
type CheckoutFailure struct {
	Description string `json:"description"`
	Code        string `json:"code"`
}

// CheckoutCallback reports how a gateway checkout ended. Exactly one of the
// success pair, Error or Dismissed is expected.
type CheckoutCallback struct {
	PaymentID string           `json:"paymentId,omitempty"`
	Signature string           `json:"signature,omitempty"`
	Error     *CheckoutFailure `json:"error,omitempty"`
	Dismissed bool             `json:"dismissed,omitempty"`
}

// Submission statuses.
const (
	StatusRegistered      = "registered"
	StatusPaymentRequired = "payment_required"
)

// SubmissionResult is returned from the registration endpoints.
type SubmissionResult struct {
	Status    string           `json:"status"`
	ID        string           `json:"id,omitempty"`
	Mode      string           `json:"mode"`
	PaymentID string           `json:"paymentId,omitempty"`
	Total     float64          `json:"totalPrice"`
	Checkout  *CheckoutOptions `json:"checkout,omitempty"`
}

// AdminLoginRequest is the body of an admin login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Stats aggregates the admin dashboard counters.
type Stats struct {
	Total   int     `json:"total"`
	Unique  int     `json:"unique"`
	Revenue float64 `json:"revenue"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
