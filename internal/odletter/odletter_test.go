package odletter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

func TestReference(t *testing.T) {
	l := DefaultLetterhead()
	assert.Equal(t, "IMPULSE/OD/123456", l.Reference("abcdef123456"))
	assert.Equal(t, "IMPULSE/OD/9F3ABC", l.Reference("c0ffee-9f3abc"))
	assert.Equal(t, "IMPULSE/OD/AB1", l.Reference("ab1"))
	assert.Equal(t, "IMPULSE/OD/000000", l.Reference(""))
	assert.Equal(t, l.Reference("abcdef123456"), l.Reference("abcdef123456"), "stable across renders")
}

func TestYearLabel(t *testing.T) {
	for in, want := range map[string]string{
		"1": "1st Year", "2": "2nd Year", "3": "3rd Year", "4": "4th Year",
		"5": "5", "PG": "PG", "": "",
	} {
		assert.Equal(t, want, YearLabel(in), in)
	}
}

func TestFilename(t *testing.T) {
	r := model.Registration{Name: "Asha  K  Rao", EventName: "Technical Quiz"}
	assert.Equal(t, "OD_Letter_Asha_K_Rao_Technical_Quiz.pdf", Filename(r))
}

func TestRender_ProducesPDF(t *testing.T) {
	r := model.Registration{
		ID:        "abcdef123456",
		Name:      "Asha K",
		College:   "Chennai Institute of Technology",
		Year:      "3",
		EventName: "Circuit Debugging",
	}
	now := time.Date(2026, 2, 6, 10, 0, 0, 0, time.UTC)

	out, err := Render(r, DefaultLetterhead(), now)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	again, err := Render(r, DefaultLetterhead(), now)
	require.NoError(t, err)
	assert.Len(t, again, len(out))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Department of Electrical and Electronics Engineering",
		titleCase("DEPARTMENT OF ELECTRICAL AND ELECTRONICS ENGINEERING"))
}
