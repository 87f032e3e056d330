package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/coldcall/pkg/validator"
)

type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

// Validate requires a valid recipient, a subject and at least one body.
func (p SendEmailParams) Validate() error {
	err := validator.Apply(
		validator.RequiredString("send_to", p.SendTo),
		validator.When(p.SendTo != "", validator.ValidEmail("send_to", p.SendTo)),
		validator.RequiredString("subject", p.Subject),
		validator.MaxLenString("subject", p.Subject, 2000),
		validator.When(p.BodyText == "", validator.RequiredString("body_html", p.BodyHTML)),
		validator.MaxLenString("tag", p.Tag, 1000),
	)
	if err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}
