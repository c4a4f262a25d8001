package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, m Message) (Result, error)
}

// RegistrationEmail carries the fields of a registration confirmation.
type RegistrationEmail struct {
	To          string
	Name        string
	EventName   string
	College     string
	Year        string
	Amount      float64
	PaymentID   string
	RefID       string
	TeamName    string
	TeamMembers []string
}

// OnDutyEmail carries an On-Duty letter to its participant.
type OnDutyEmail struct {
	To        string
	Name      string
	EventName string
	Filename  string
	PDF       []byte
}

var registrationTmpl = template.Must(template.New("registration").Funcs(template.FuncMap{
	"add": func(a, b int) int { return a + b },
}).Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background-color:#0a0a0f;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
  <div style="max-width:600px;margin:0 auto;padding:40px 20px;">
    <h1 style="color:#00d4ff;text-align:center;">IMPULSE 2026</h1>
    <p style="color:#888;text-align:center;">EEE Department Symposium</p>
    <h2 style="color:#00d4ff;">Registration Successful!</h2>
    <p style="color:#e0e0e0;">Dear <strong>{{.Name}}</strong>,<br><br>
      Your registration for <strong>{{.EventName}}</strong> has been confirmed. We're excited to have you join us!</p>
    <table style="width:100%;border-collapse:collapse;color:#e0e0e0;">
      <tr><td style="color:#888;padding:8px 0;">Reference</td><td style="text-align:right;">{{.RefID}}</td></tr>
      <tr><td style="color:#888;padding:8px 0;">Event</td><td style="text-align:right;">{{.EventName}}</td></tr>
      <tr><td style="color:#888;padding:8px 0;">Name</td><td style="text-align:right;">{{.Name}}</td></tr>
      <tr><td style="color:#888;padding:8px 0;">College</td><td style="text-align:right;">{{or .College "N/A"}}</td></tr>
      <tr><td style="color:#888;padding:8px 0;">Year</td><td style="text-align:right;">{{or .Year "N/A"}}</td></tr>
      {{- if .TeamName}}
      <tr><td style="color:#888;padding:8px 0;">Team</td><td style="text-align:right;">{{.TeamName}}</td></tr>
      {{- end}}
      {{- range $i, $m := .TeamMembers}}
      <tr><td style="color:#888;padding:8px 0;">Member {{add $i 2}}</td><td style="text-align:right;">{{$m}}</td></tr>
      {{- end}}
      <tr><td style="color:#888;padding:8px 0;">Amount Paid</td><td style="text-align:right;color:#00ff88;">&#8377;{{printf "%.2f" .Amount}}</td></tr>
      <tr><td style="color:#888;padding:8px 0;">Transaction ID</td><td style="text-align:right;font-family:monospace;">{{or .PaymentID "N/A"}}</td></tr>
    </table>
    <p style="color:#666;font-size:12px;text-align:center;margin-top:30px;">
      For any queries, contact us at impulse2026@citimpulse.com<br>&copy; 2026 IMPULSE - EEE Department Symposium</p>
  </div>
</body>
</html>`))

var onDutyTmpl = template.Must(template.New("onduty").Parse(`<div style="font-family:Arial,sans-serif;padding:20px;">
  <h2 style="color:#0f172a;">On-Duty Letter</h2>
  <p>Hello <strong>{{.Name}}</strong>,</p>
  <p>Please find attached the On-Duty letter for your participation in <strong>{{.EventName}}</strong> at Impulse 2026.</p>
  <p>You can submit this to your institution.</p>
  <br>
  <p>Regards,<br>Impulse Team<br>Chennai Institute of Technology</p>
</div>`))

// Mailer renders the symposium's templates and hands them to a Sender.
type Mailer struct {
	sender Sender
}

// NewMailer constructs a Mailer.
func NewMailer(s Sender) *Mailer {
	return &Mailer{sender: s}
}

// SendRegistration sends the registration confirmation.
func (m *Mailer) SendRegistration(ctx context.Context, e RegistrationEmail) (Result, error) {
	var buf bytes.Buffer
	if err := registrationTmpl.Execute(&buf, e); err != nil {
		return Result{Error: err.Error()}, fmt.Errorf("render registration email: %w", err)
	}
	return m.sender.Send(ctx, Message{
		To:      e.To,
		ToName:  e.Name,
		Subject: fmt.Sprintf("Registration Confirmed - %s | IMPULSE 2026", e.EventName),
		HTML:    buf.String(),
	})
}

// SendOnDuty sends the On-Duty letter as a PDF attachment.
func (m *Mailer) SendOnDuty(ctx context.Context, e OnDutyEmail) (Result, error) {
	var buf bytes.Buffer
	if err := onDutyTmpl.Execute(&buf, e); err != nil {
		return Result{Error: err.Error()}, fmt.Errorf("render od email: %w", err)
	}
	return m.sender.Send(ctx, Message{
		To:          e.To,
		ToName:      e.Name,
		Subject:     "On-Duty Letter - Impulse 2026",
		HTML:        buf.String(),
		Attachments: []Attachment{{Name: e.Filename, Content: e.PDF}},
	})
}
