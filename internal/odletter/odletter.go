// Package odletter renders the On-Duty permission letter for a registration.
// Rendering is a pure function of the registration and the letterhead; it
// never touches the network or the store.
package odletter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

// Letterhead is the static institution content printed on every letter.
type Letterhead struct {
	Department     string
	Symposium      string
	SymposiumShort string
	EventDate      string
	DepartmentAbbr string
	Signatory      string
	RefPrefix      string
}

// DefaultLetterhead is the symposium's letterhead.
func DefaultLetterhead() Letterhead {
	return Letterhead{
		Department:     "DEPARTMENT OF ELECTRICAL AND ELECTRONICS ENGINEERING",
		Symposium:      "IMPULSE 2026 - National Level Technical Symposium",
		SymposiumShort: "IMPULSE 2026",
		EventDate:      "February 2026",
		DepartmentAbbr: "Department of EEE",
		Signatory:      "Event Coordinator",
		RefPrefix:      "IMPULSE/OD/",
	}
}

// Reference is the letter's reference number: the prefix followed by the
// last six characters of the registration id, uppercased.
func (l Letterhead) Reference(registrationID string) string {
	tail := registrationID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	if tail == "" {
		tail = "000000"
	}
	return l.RefPrefix + strings.ToUpper(tail)
}

// YearLabel maps a year-of-study code to its ordinal label. Unknown values
// pass through unchanged.
func YearLabel(year string) string {
	switch year {
	case "1":
		return "1st Year"
	case "2":
		return "2nd Year"
	case "3":
		return "3rd Year"
	case "4":
		return "4th Year"
	}
	return year
}

var whitespace = regexp.MustCompile(`\s+`)

// Filename is the download name for a registration's letter.
func Filename(r model.Registration) string {
	return fmt.Sprintf("OD_Letter_%s_%s.pdf",
		whitespace.ReplaceAllString(r.Name, "_"),
		whitespace.ReplaceAllString(r.EventName, "_"))
}

const (
	margin     = 20.0
	lineHeight = 6.0
)

// Render lays out the letter for r and returns the PDF bytes.
func Render(r model.Registration, l Letterhead, now time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("On-Duty Letter - "+r.Name, true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	textW := pageW - 2*margin

	pdf.SetLineWidth(0.8)
	pdf.Rect(margin/2, margin/2, pageW-margin, pageH-margin, "D")

	center := func(text string, y, size float64) {
		pdf.SetFontSize(size)
		s := tr(text)
		pdf.Text((pageW-pdf.GetStringWidth(s))/2, y, s)
	}
	text := func(s string, x, y float64) {
		pdf.Text(x, y, tr(s))
	}
	paragraph := func(s string, y float64) float64 {
		lines := pdf.SplitText(tr(s), textW)
		for i, line := range lines {
			pdf.Text(margin, y+float64(i)*lineHeight, line)
		}
		return y + float64(len(lines))*lineHeight
	}

	y := 22.0
	pdf.SetFont("Times", "B", 14)
	center(l.Department, y, 14)
	y += 8
	center(l.Symposium, y, 12)
	y += 6
	pdf.SetFont("Times", "", 11)
	center(l.EventDate, y, 11)
	y += 10

	pdf.SetLineWidth(0.5)
	pdf.Line(margin, y, pageW-margin, y)
	y += 14

	pdf.SetFontSize(11)
	text("Date: "+now.Format("2 January 2006"), margin, y)
	y += 8
	text("Ref: "+l.Reference(r.ID), margin, y)
	y += 14

	college := r.College
	if college == "" {
		college = "College Name"
	}
	text("To,", margin, y)
	y += 7
	text("The Principal / Head of the Department,", margin, y)
	y += 7
	text(college, margin, y)
	y += 14

	pdf.SetFont("Times", "B", 11)
	text("Subject: On-Duty Letter for Participation in "+l.SymposiumShort, margin, y)
	y += 12

	pdf.SetFont("Times", "", 11)
	text("Respected Sir/Madam,", margin, y)
	y += 10

	y = paragraph(fmt.Sprintf("This is to certify that the following student from your esteemed institution "+
		"has registered and participated in %s, a National Level Technical Symposium organized by the "+
		"%s on %s.", l.SymposiumShort, titleCase(l.Department), l.EventDate), y)
	y += 8

	details := []string{
		"Name: " + r.Name,
		"Year of Study: " + YearLabel(r.Year),
		"Event Participated: " + r.EventName,
		"College: " + r.College,
	}
	boxH := 10 + float64(len(details))*8
	pdf.SetLineWidth(0.3)
	pdf.Rect(margin, y-6, textW, boxH, "D")
	pdf.SetFont("Times", "B", 11)
	text("Student Details:", margin+4, y)
	y += 9
	pdf.SetFont("Times", "", 11)
	for _, d := range details {
		text(d, margin+10, y)
		y += 8
	}
	y += 6

	y = paragraph("We kindly request you to grant the necessary On-Duty permission to the above-mentioned "+
		"student for attending this symposium. The student's participation and presence has been "+
		"verified and confirmed.", y)
	y += 6
	y = paragraph("We appreciate your cooperation and support in encouraging students to participate in "+
		"such technical events that enhance their knowledge and skills.", y)
	y += 12

	text("Thanking you,", margin, y)
	y += 8
	text("Yours faithfully,", margin, y)
	y += 22

	pdf.SetFont("Times", "B", 11)
	text(l.Signatory, margin, y)
	y += 7
	text(l.SymposiumShort, margin, y)
	y += 7
	text(l.DepartmentAbbr, margin, y)
	y += 14

	pdf.SetFont("Times", "I", 9)
	text("(This is a computer-generated letter and is valid without signature)", margin, y)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render od letter: %w", err)
	}
	return buf.Bytes(), nil
}

// titleCase turns the shouted letterhead department into running-text form.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if w == "of" || w == "and" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
