package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/dmitrymomot/coldcall/pkg/email"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

var meetingEmail = template.Must(template.New("meeting").Parse(`<!doctype html>
<html><body>
<p>Hi {{.Name}},</p>
<p>Thanks for taking the time to talk with {{.Company}}. Your meeting is booked.</p>
<p><a href="{{.Link}}">Join the meeting</a></p>
</body></html>`))

var internalEmail = template.Must(template.New("internal").Parse(`<!doctype html>
<html><body>
<p>Meeting booked with {{.Name}}{{if .LeadCompany}} ({{.LeadCompany}}){{end}}, {{.Phone}}.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
</body></html>`))

type meetingEmailData struct {
	Name        string
	Phone       string
	Company     string
	LeadCompany string
	Link        string
}

// EmailNotifier emails the lead, and optionally an internal recipient, when
// a meeting is booked.
type EmailNotifier struct {
	cfg    NotifierConfig
	sender email.EmailSender
}

var _ dialer.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg NotifierConfig, sender email.EmailSender) (*EmailNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &EmailNotifier{cfg: cfg, sender: sender}, nil
}

// MeetingScheduled sends both emails; a lead without email only produces
// the internal one.
func (n *EmailNotifier) MeetingScheduled(ctx context.Context, lead dialer.LeadContext, meetingLink string) error {
	data := meetingEmailData{
		Name:        lead.Name,
		Phone:       lead.Phone,
		Company:     n.cfg.CompanyName,
		LeadCompany: lead.Company,
		Link:        meetingLink,
	}

	var errs []error
	if lead.Email != "" {
		errs = append(errs, n.send(ctx, lead.Email, "Your meeting is booked", "meeting-scheduled", meetingEmail, data))
	}
	if n.cfg.InternalRecipient != "" {
		subject := fmt.Sprintf("Meeting booked: %s", lead.Name)
		errs = append(errs, n.send(ctx, n.cfg.InternalRecipient, subject, "meeting-scheduled-internal", internalEmail, data))
	}
	return errors.Join(errs...)
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, tag string, tpl *template.Template, data meetingEmailData) error {
	var body bytes.Buffer
	if err := tpl.Execute(&body, data); err != nil {
		return fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return n.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: body.String(),
		Tag:      tag,
	})
}
