package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/coldcall/pkg/pg"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

func (s *Store) CreateAttempt(ctx context.Context, owner uuid.UUID, a *dialer.CallAttempt) error {
	if a == nil {
		return dialer.ErrAttemptNotFound
	}
	return s.inTx(ctx, "create attempt", func(tx pgx.Tx) error {
		var (
			lead        dialer.Lead
			lastAttempt int
		)
		err := tx.QueryRow(ctx, `
			SELECT status, next_attempt, claimed_by, last_attempt
			FROM leads WHERE id = $1 FOR UPDATE`, a.LeadID,
		).Scan(&lead.Status, &lead.NextAttempt, &lead.ClaimedBy, &lastAttempt)
		if pg.IsNotFoundError(err) {
			return dialer.ErrLeadNotFound
		}
		if err != nil {
			return err
		}

		busy, err := hasActiveAttempt(ctx, tx, a.LeadID)
		if err != nil {
			return err
		}
		if busy {
			return dialer.ErrActiveAttemptExists
		}
		if a.AttemptNumber <= lastAttempt {
			return dialer.ErrAttemptNumber
		}
		// The row lock makes this check and the insert below one step
		// relative to UpdateLead and DeleteLead.
		if !lead.HeldBy(owner, a.AttemptNumber) {
			return dialer.ErrLeadNotClaimable
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO call_attempts (`+attemptColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			a.ID, a.LeadID, a.AttemptNumber, a.Phone, a.State, a.Outcome, nullString(a.CallHandle),
			a.FailureReason, a.Discarded, a.CreatedAt, a.UpdatedAt, a.StartedAt, a.AnsweredAt, a.EndedAt,
			a.MeetingLink, a.RecordingURL, a.Transcript, a.Summary,
		)
		if name, ok := pg.UniqueViolation(err); ok {
			switch name {
			case constraintOneActive:
				return dialer.ErrActiveAttemptExists
			case constraintNumber:
				return dialer.ErrAttemptNumber
			}
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE leads SET status = $2, next_attempt = 0, not_before = NULL,
				claimed_by = NULL, claimed_at = NULL, last_attempt = $3, updated_at = $4
			WHERE id = $1`,
			a.LeadID, dialer.LeadStatusCalling, a.AttemptNumber, a.CreatedAt,
		)
		return err
	})
}

func (s *Store) GetAttempt(ctx context.Context, id uuid.UUID) (*dialer.CallAttempt, error) {
	return s.getAttempt(ctx, `SELECT `+attemptColumns+` FROM call_attempts WHERE id = $1`, id)
}

func (s *Store) GetAttemptByHandle(ctx context.Context, handle string) (*dialer.CallAttempt, error) {
	return s.getAttempt(ctx, `SELECT `+attemptColumns+` FROM call_attempts WHERE call_handle = $1`, handle)
}

func (s *Store) getAttempt(ctx context.Context, query string, arg any) (*dialer.CallAttempt, error) {
	a, err := scanAttempt(s.db.QueryRow(ctx, query, arg))
	if pg.IsNotFoundError(err) {
		return nil, dialer.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &a, nil
}

// updateAttemptSQL writes lifecycle fields. The handle is set once;
// artifacts only ever gain values; discarded is left alone.
const updateAttemptSQL = `
	UPDATE call_attempts SET
		state = $2, outcome = $3, failure_reason = $4,
		call_handle = COALESCE(call_handle, $5),
		started_at = $6, answered_at = $7, ended_at = $8, updated_at = $9,
		meeting_link = COALESCE(NULLIF($10, ''), meeting_link),
		recording_url = COALESCE(NULLIF($11, ''), recording_url),
		transcript = COALESCE(NULLIF($12, ''), transcript),
		summary = COALESCE(NULLIF($13, ''), summary)
	WHERE id = $1`

func updateAttemptArgs(a *dialer.CallAttempt) []any {
	return []any{
		a.ID, a.State, a.Outcome, a.FailureReason, nullString(a.CallHandle),
		a.StartedAt, a.AnsweredAt, a.EndedAt, a.UpdatedAt,
		a.MeetingLink, a.RecordingURL, a.Transcript, a.Summary,
	}
}

func (s *Store) UpdateAttempt(ctx context.Context, a *dialer.CallAttempt) error {
	tag, err := s.db.Exec(ctx, updateAttemptSQL, updateAttemptArgs(a)...)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dialer.ErrAttemptNotFound
	}
	return nil
}

func (s *Store) CompleteAttempt(ctx context.Context, a *dialer.CallAttempt, update dialer.LeadUpdate) error {
	return s.inTx(ctx, "complete attempt", func(tx pgx.Tx) error {
		var leadID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT lead_id FROM call_attempts WHERE id = $1`, a.ID).Scan(&leadID)
		if pg.IsNotFoundError(err) {
			return dialer.ErrAttemptNotFound
		}
		if err != nil {
			return err
		}

		// Lead before attempt, the same order DeleteLead and CreateAttempt use.
		if _, err := tx.Exec(ctx, `SELECT 1 FROM leads WHERE id = $1 FOR UPDATE`, leadID); err != nil {
			return err
		}

		var (
			state     dialer.CallState
			discarded bool
		)
		err = tx.QueryRow(ctx,
			`SELECT state, discarded FROM call_attempts WHERE id = $1 FOR UPDATE`, a.ID,
		).Scan(&state, &discarded)
		if err != nil {
			return err
		}
		if state.Terminal() {
			return dialer.ErrAttemptNotActive
		}

		if _, err := tx.Exec(ctx, updateAttemptSQL, updateAttemptArgs(a)...); err != nil {
			return err
		}
		a.Discarded = discarded
		if discarded {
			return nil
		}

		// A missing lead updates zero rows.
		_, err = tx.Exec(ctx, `
			UPDATE leads SET status = $2, last_called_at = $3, next_attempt = $4,
				not_before = $5, updated_at = $3
			WHERE id = $1`,
			leadID, update.Status, update.LastCalledAt, update.NextAttempt, update.NotBefore,
		)
		return err
	})
}

func (s *Store) SetArtifacts(ctx context.Context, id uuid.UUID, artifacts dialer.Artifacts) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE call_attempts SET
			meeting_link = COALESCE(NULLIF($2, ''), meeting_link),
			recording_url = COALESCE(NULLIF($3, ''), recording_url),
			transcript = COALESCE(NULLIF($4, ''), transcript),
			summary = COALESCE(NULLIF($5, ''), summary)
		WHERE id = $1`,
		id, artifacts.MeetingLink, artifacts.RecordingURL, artifacts.Transcript, artifacts.Summary,
	)
	if err != nil {
		return fmt.Errorf("set artifacts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dialer.ErrAttemptNotFound
	}
	return nil
}

func (s *Store) ListActiveAttempts(ctx context.Context) ([]dialer.CallAttempt, error) {
	return s.listAttempts(ctx,
		`SELECT `+attemptColumns+` FROM call_attempts ca WHERE `+activeClause+` ORDER BY ca.created_at`)
}

func (s *Store) ListAttemptsByLead(ctx context.Context, leadID uuid.UUID) ([]dialer.CallAttempt, error) {
	return s.listAttempts(ctx,
		`SELECT `+attemptColumns+` FROM call_attempts WHERE lead_id = $1 ORDER BY attempt_number`, leadID)
}

func (s *Store) ListAttemptsSince(ctx context.Context, since time.Time) ([]dialer.CallAttempt, error) {
	return s.listAttempts(ctx, `
		SELECT `+attemptColumns+` FROM call_attempts
		WHERE created_at >= $1
		ORDER BY created_at, attempt_number`, since)
}

func (s *Store) ListUnbookedMeetings(ctx context.Context, since time.Time) ([]dialer.CallAttempt, error) {
	return s.listAttempts(ctx, `
		SELECT `+attemptColumns+` FROM call_attempts
		WHERE outcome = $1 AND meeting_link = '' AND NOT discarded AND ended_at >= $2
		ORDER BY created_at`, dialer.OutcomeMeetingScheduled, since)
}

func (s *Store) listAttempts(ctx context.Context, query string, args ...any) ([]dialer.CallAttempt, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, collectAttempt)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
