package pgstore

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

const leadColumns = `id, phone, name, email, company, title, industry, priority, status,
	next_attempt, not_before, claimed_by, claimed_at, created_at, updated_at, last_called_at`

const attemptColumns = `id, lead_id, attempt_number, phone, state, outcome, call_handle,
	failure_reason, discarded, created_at, updated_at, started_at, answered_at, ended_at,
	meeting_link, recording_url, transcript, summary`

func scanLead(row pgx.Row) (dialer.Lead, error) {
	var l dialer.Lead
	err := row.Scan(
		&l.ID, &l.Phone, &l.Name, &l.Email, &l.Company, &l.Title, &l.Industry, &l.Priority, &l.Status,
		&l.NextAttempt, &l.NotBefore, &l.ClaimedBy, &l.ClaimedAt, &l.CreatedAt, &l.UpdatedAt, &l.LastCalledAt,
	)
	return l, err
}

func scanAttempt(row pgx.Row) (dialer.CallAttempt, error) {
	var (
		a      dialer.CallAttempt
		handle *string
	)
	err := row.Scan(
		&a.ID, &a.LeadID, &a.AttemptNumber, &a.Phone, &a.State, &a.Outcome, &handle,
		&a.FailureReason, &a.Discarded, &a.CreatedAt, &a.UpdatedAt, &a.StartedAt, &a.AnsweredAt, &a.EndedAt,
		&a.MeetingLink, &a.RecordingURL, &a.Transcript, &a.Summary,
	)
	if handle != nil {
		a.CallHandle = *handle
	}
	return a, err
}

func collectLead(row pgx.CollectableRow) (dialer.Lead, error)           { return scanLead(row) }
func collectAttempt(row pgx.CollectableRow) (dialer.CallAttempt, error) { return scanAttempt(row) }

// nullString maps "" to SQL NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// qualified prefixes every column in a comma-separated list with table.
func qualified(table, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = table + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
