package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coldcall/pkg/logger"
	"github.com/dmitrymomot/coldcall/pkg/sanitizer"
	"github.com/dmitrymomot/coldcall/pkg/validator"
)

// LeadInput is the payload for adding a lead.
type LeadInput struct {
	Phone    string   `json:"phone"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Company  string   `json:"company,omitempty"`
	Title    string   `json:"title,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Priority Priority `json:"priority,omitempty"`
}

var (
	seniorTitles    = []string{"ceo", "cto", "director", "manager", "vp"}
	largeCompanyTag = []string{"enterprise", "corporation", "inc", "llc"}
)

// SuggestPriority scores a lead from its title and company. An explicit
// priority above the score wins. The result is capped at PriorityUrgent.
func SuggestPriority(title, company string, explicit Priority) Priority {
	p := PriorityLow
	if containsAny(strings.ToLower(company), largeCompanyTag) {
		p++
	}
	if containsAny(strings.ToLower(title), seniorTitles) {
		p++
	}
	p = max(p, explicit)
	return min(p, PriorityUrgent)
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

var cleanText = sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.NormalizeWhitespace)

// Normalize trims and canonicalises the input so equal phone numbers and
// emails compare equal in storage.
func (in LeadInput) Normalize() LeadInput {
	in.Phone = sanitizer.NormalizePhone(in.Phone)
	in.Email = sanitizer.NormalizeEmail(in.Email)
	in.Name = cleanText(in.Name)
	in.Company = cleanText(in.Company)
	in.Title = cleanText(in.Title)
	in.Industry = cleanText(in.Industry)
	return in
}

func (p LeadPatch) normalize() LeadPatch {
	clean := func(v *string, fn func(string) string) *string {
		if v == nil {
			return nil
		}
		out := fn(*v)
		return &out
	}
	p.Name = clean(p.Name, cleanText)
	p.Email = clean(p.Email, sanitizer.NormalizeEmail)
	p.Company = clean(p.Company, cleanText)
	p.Title = clean(p.Title, cleanText)
	p.Industry = clean(p.Industry, cleanText)
	return p
}

func (in LeadInput) validate() error {
	return validator.Apply(
		validator.RequiredString("name", in.Name),
		validator.MaxLenString("name", in.Name, 255),
		validator.ValidPhone("phone", in.Phone),
		validator.When(in.Email != "", validator.ValidEmail("email", in.Email)),
		validator.MaxLenString("company", in.Company, 255),
		validator.MaxLenString("title", in.Title, 255),
		validator.MaxLenString("industry", in.Industry, 255),
		validator.When(in.Priority != 0, validator.RangeNum("priority", in.Priority, PriorityLow, PriorityUrgent)),
	)
}

// AddLead validates and inserts a new pending lead.
func (e *Engine) AddLead(ctx context.Context, in LeadInput) (*Lead, error) {
	in = in.Normalize()
	if err := in.validate(); err != nil {
		return nil, errors.Join(ErrInvalidLead, err)
	}

	now := e.now()
	lead := &Lead{
		ID:          uuid.New(),
		Phone:       in.Phone,
		Name:        in.Name,
		Email:       in.Email,
		Company:     in.Company,
		Title:       in.Title,
		Industry:    in.Industry,
		Priority:    SuggestPriority(in.Title, in.Company, in.Priority),
		Status:      LeadStatusPending,
		NextAttempt: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	e.logger.InfoContext(ctx, "lead added",
		logger.LeadID(lead.ID),
		slog.String("phone", sanitizer.MaskPhone(lead.Phone)),
		slog.Int("priority", int(lead.Priority)),
	)
	return lead, nil
}

func (e *Engine) GetLead(ctx context.Context, id uuid.UUID) (*Lead, error) {
	return e.store.GetLead(ctx, id)
}

// UpdateLead applies CRUD edits. Edits are refused while a call is in
// flight so they never race the engine's own lead writes.
func (e *Engine) UpdateLead(ctx context.Context, id uuid.UUID, patch LeadPatch) (*Lead, error) {
	patch = patch.normalize()
	var rules []validator.Rule
	if patch.Name != nil {
		rules = append(rules, validator.RequiredString("name", *patch.Name), validator.MaxLenString("name", *patch.Name, 255))
	}
	if patch.Email != nil && *patch.Email != "" {
		rules = append(rules, validator.ValidEmail("email", *patch.Email))
	}
	if patch.Priority != nil {
		rules = append(rules, validator.RangeNum("priority", *patch.Priority, PriorityLow, PriorityUrgent))
	}
	if patch.Status != nil {
		rules = append(rules, validator.OneOf("status", *patch.Status,
			LeadStatusPending, LeadStatusCalled, LeadStatusScheduled, LeadStatusNotInterested,
		))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, errors.Join(ErrInvalidLead, err)
	}

	lead, err := e.store.UpdateLead(ctx, id, patch, e.now())
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return lead, nil
}

// ScheduleCall queues the lead for a call at at, bringing it back into the
// queue if it had left it. A zero or past at means as soon as possible.
// The calling window still applies when the call is dispatched.
func (e *Engine) ScheduleCall(ctx context.Context, id uuid.UUID, at time.Time) (*Lead, error) {
	now := e.now()
	if !at.After(now) {
		at = time.Time{}
	}

	lead, err := e.store.UpdateLead(ctx, id, LeadPatch{CallAt: &at}, now)
	if err != nil {
		return nil, fmt.Errorf("schedule call: %w", err)
	}

	attrs := []any{logger.LeadID(id), logger.AttemptNumber(lead.NextAttempt)}
	if !at.IsZero() {
		attrs = append(attrs, slog.Time("call_at", at))
	}
	e.logger.InfoContext(ctx, "call scheduled", attrs...)
	return lead, nil
}

// DeleteLead removes the lead. An in-flight call is not cancelled; its
// outcome is discarded when it ends.
func (e *Engine) DeleteLead(ctx context.Context, id uuid.UUID) error {
	if err := e.store.DeleteLead(ctx, id); err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	e.logger.InfoContext(ctx, "lead deleted", logger.LeadID(id))
	return nil
}

// LeadHistory lists the lead's attempts in attempt order. History outlives
// the lead itself.
func (e *Engine) LeadHistory(ctx context.Context, id uuid.UUID) ([]CallAttempt, error) {
	attempts, err := e.store.ListAttemptsByLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) == 0 {
		if _, err := e.store.GetLead(ctx, id); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}
