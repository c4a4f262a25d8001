package registration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

var (
	user = model.Identity{UID: "u1", DisplayName: "Asha K", Email: "asha@example.com"}

	quiz = model.CatalogEntry{
		ID: "3", Title: "Technical Quiz", Category: model.CategoryTechnical,
		Price: 50, IsTeamEvent: true, MinTeamSize: 1, MaxTeamSize: 3,
	}
	wiring = model.CatalogEntry{
		ID: "2", Title: "Wiring Challenge", Category: model.CategoryTechnical,
		Price: 50, MinTeamSize: 1, MaxTeamSize: 1,
	}
)

func filled(entry model.CatalogEntry) *Form {
	f := NewForm(entry, user)
	f.College = "CIT"
	f.Year = "2"
	f.Phone = "9876543210"
	return f
}

func TestNewForm_PrefillsFromIdentity(t *testing.T) {
	f := NewForm(quiz, user)
	assert.Equal(t, "Asha K", f.Name)
	assert.Equal(t, "asha@example.com", f.Email)
	assert.Equal(t, 1, f.TeamCount())
	assert.Empty(t, f.Roster())
}

func TestApply_IgnoresSubmittedEmail(t *testing.T) {
	f := NewForm(wiring, user)
	f.Apply(model.RegistrationForm{Email: "someone@else.com", College: "CIT", Year: "1", Phone: "9876543210"})
	assert.Equal(t, "asha@example.com", f.Email)
}

func TestSetTeamCount_PreservesRetainedNames(t *testing.T) {
	f := NewForm(quiz, user)
	f.SetTeamCount(3)
	f.SetMember(0, "Ravi")
	f.SetMember(1, "Meena")

	f.Decrement()
	assert.Equal(t, []string{"Ravi"}, f.Roster())

	f.Increment()
	assert.Equal(t, []string{"Ravi", ""}, f.Roster(), "removed slot names are discarded")
}

func TestRoster_LengthInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := NewForm(quiz, user)
		ops := rapid.SliceOf(rapid.IntRange(-2, 5)).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case -2:
				f.Decrement()
			case -1:
				f.Increment()
			default:
				f.SetTeamCount(op)
			}
			want := f.TeamCount() - 1
			if want < 0 {
				want = 0
			}
			if len(f.Roster()) != want {
				t.Fatalf("roster %d for team %d", len(f.Roster()), f.TeamCount())
			}
			if f.TeamCount() < 1 || f.TeamCount() > 3 {
				t.Fatalf("team count %d out of range", f.TeamCount())
			}
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *Form)
		field  string
	}{
		{"missing college", func(f *Form) { f.College = "" }, "college"},
		{"missing year", func(f *Form) { f.Year = "" }, "year"},
		{"short phone", func(f *Form) { f.Phone = "12345" }, "phone"},
		{"alpha phone", func(f *Form) { f.Phone = "98765abcde" }, "phone"},
		{"missing team name", func(f *Form) { f.TeamName = "" }, "teamName"},
		{"empty member", func(f *Form) { f.SetMember(1, "") }, "teamMembers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := filled(quiz)
			f.TeamName = "Sparks"
			f.SetTeamCount(3)
			f.SetMember(0, "Ravi")
			f.SetMember(1, "Meena")
			require.NoError(t, f.Validate())

			tt.mutate(f)
			err := f.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidate_SoloEntryNeedsNoTeam(t *testing.T) {
	f := filled(wiring)
	require.NoError(t, f.Validate())
	assert.Empty(t, f.Members())
	assert.Equal(t, 50.0, f.Total())
}

func TestDecidePayment(t *testing.T) {
	assert.Equal(t, PaymentFree, DecidePayment(0, true))
	assert.Equal(t, PaymentFree, DecidePayment(-5, false))
	assert.Equal(t, PaymentSimulated, DecidePayment(50, false))
	assert.Equal(t, PaymentGateway, DecidePayment(50, true))
	assert.Equal(t, model.PaymentFree, PaymentFree.Sentinel())
	assert.Equal(t, model.PaymentSimulated, PaymentSimulated.Sentinel())
	assert.Empty(t, PaymentGateway.Sentinel())
}
