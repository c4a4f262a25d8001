// Package registration holds the registration form state: participant fields,
// the team roster, validation and the payment handoff decision.
package registration

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
	"github.com/Shivanand-hulikatti/impulse-registration/internal/pricing"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Form is the state behind one registration attempt.
// Email always comes from the authenticated identity.
type Form struct {
	Entry    model.CatalogEntry
	Name     string
	Email    string
	College  string
	Year     string
	Phone    string
	TeamName string

	teamCount int
	roster    []string
}

// NewForm starts a form for entry, pre-filled from the signed-in identity.
func NewForm(entry model.CatalogEntry, id model.Identity) *Form {
	f := &Form{
		Entry: entry,
		Name:  id.DisplayName,
		Email: id.Email,
	}
	f.SetTeamCount(entry.MinTeamSize)
	return f
}

// Apply copies the editable fields of a submitted payload onto the form.
// The payload's email is ignored.
func (f *Form) Apply(in model.RegistrationForm) {
	if name := strings.TrimSpace(in.Name); name != "" {
		f.Name = name
	}
	f.College = strings.TrimSpace(in.College)
	f.Year = strings.TrimSpace(in.Year)
	f.Phone = strings.TrimSpace(in.Phone)
	if f.Entry.IsTeamEvent {
		f.TeamName = strings.TrimSpace(in.TeamName)
	}
	f.SetTeamCount(in.TeamCount)
	for i, m := range in.TeamMembers {
		f.SetMember(i, m)
	}
}

// TeamCount is the current team size.
func (f *Form) TeamCount() int { return f.teamCount }

// Roster returns a copy of the member names.
func (f *Form) Roster() []string {
	out := make([]string, len(f.roster))
	copy(out, f.roster)
	return out
}

// SetTeamCount clamps n to the entry's range and resizes the roster,
// keeping names in retained slots.
func (f *Form) SetTeamCount(n int) {
	f.teamCount = pricing.Clamp(f.Entry, n)
	size := pricing.RosterSize(f.teamCount)
	switch {
	case size < len(f.roster):
		f.roster = f.roster[:size:size]
	case size > len(f.roster):
		f.roster = append(f.roster, make([]string, size-len(f.roster))...)
	}
}

// Increment adds one member, up to the maximum.
func (f *Form) Increment() { f.SetTeamCount(f.teamCount + 1) }

// Decrement removes the last member, down to the minimum.
func (f *Form) Decrement() { f.SetTeamCount(f.teamCount - 1) }

// SetMember names roster slot i. Out-of-range slots are ignored.
func (f *Form) SetMember(i int, name string) {
	if i < 0 || i >= len(f.roster) {
		return
	}
	f.roster[i] = strings.TrimSpace(name)
}

// Total is the amount due for the current team size.
func (f *Form) Total() float64 {
	return pricing.ComputeTotal(f.Entry, f.teamCount)
}

// Members returns the roster as registration team members.
func (f *Form) Members() []model.TeamMember {
	out := make([]model.TeamMember, 0, len(f.roster))
	for _, n := range f.roster {
		out = append(out, model.TeamMember{Name: n})
	}
	return out
}

// ValidationError lists the fields that block submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// Validate checks the form before any payment is attempted.
func (f *Form) Validate() error {
	errs := map[string]string{}
	if f.Name == "" {
		errs["name"] = "name is required"
	}
	if f.Email == "" {
		errs["email"] = "email is required"
	}
	if f.College == "" {
		errs["college"] = "college is required"
	}
	if f.Year == "" {
		errs["year"] = "year of study is required"
	}
	switch {
	case f.Phone == "":
		errs["phone"] = "phone is required"
	case !phonePattern.MatchString(f.Phone):
		errs["phone"] = "please enter a valid 10-digit number"
	}
	if f.Entry.IsTeamEvent {
		if f.TeamName == "" {
			errs["teamName"] = "team name is required"
		}
		for _, m := range f.roster {
			if m == "" {
				errs["teamMembers"] = "every team member needs a name"
				break
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
