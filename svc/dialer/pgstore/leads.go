package pgstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/coldcall/pkg/pg"
	"github.com/dmitrymomot/coldcall/svc/dialer"
)

func (s *Store) CreateLead(ctx context.Context, lead *dialer.Lead) error {
	if lead == nil {
		return dialer.ErrInvalidLead
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO leads (id, phone, name, email, company, title, industry, priority, status,
			next_attempt, not_before, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		lead.ID, lead.Phone, lead.Name, lead.Email, lead.Company, lead.Title, lead.Industry,
		lead.Priority, lead.Status, lead.NextAttempt, lead.NotBefore, lead.CreatedAt, lead.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return dialer.ErrDuplicateLead
	}
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (*dialer.Lead, error) {
	lead, err := scanLead(s.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, dialer.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return &lead, nil
}

func (s *Store) UpdateLead(ctx context.Context, id uuid.UUID, patch dialer.LeadPatch, now time.Time) (*dialer.Lead, error) {
	var out dialer.Lead
	err := s.inTx(ctx, "update lead", func(tx pgx.Tx) error {
		var lastAttempt int
		lead, err := scanLeadWithLast(tx.QueryRow(ctx,
			`SELECT `+leadColumns+`, last_attempt FROM leads WHERE id = $1 FOR UPDATE`, id), &lastAttempt)
		if pg.IsNotFoundError(err) {
			return dialer.ErrLeadNotFound
		}
		if err != nil {
			return err
		}

		busy, err := hasActiveAttempt(ctx, tx, id)
		if err != nil {
			return err
		}
		if busy {
			return dialer.ErrLeadBusy
		}

		patch.Apply(&lead, lastAttempt)
		lead.UpdatedAt = now
		_, err = tx.Exec(ctx, `
			UPDATE leads SET name = $2, email = $3, company = $4, title = $5, industry = $6,
				priority = $7, status = $8, next_attempt = $9, not_before = $10,
				claimed_by = $11, claimed_at = $12, updated_at = $13
			WHERE id = $1`,
			lead.ID, lead.Name, lead.Email, lead.Company, lead.Title, lead.Industry,
			lead.Priority, lead.Status, lead.NextAttempt, lead.NotBefore,
			lead.ClaimedBy, lead.ClaimedAt, lead.UpdatedAt,
		)
		out = lead
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func scanLeadWithLast(row pgx.Row, lastAttempt *int) (dialer.Lead, error) {
	var l dialer.Lead
	err := row.Scan(
		&l.ID, &l.Phone, &l.Name, &l.Email, &l.Company, &l.Title, &l.Industry, &l.Priority, &l.Status,
		&l.NextAttempt, &l.NotBefore, &l.ClaimedBy, &l.ClaimedAt, &l.CreatedAt, &l.UpdatedAt, &l.LastCalledAt,
		lastAttempt,
	)
	return l, err
}

func hasActiveAttempt(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) (bool, error) {
	var busy bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM call_attempts ca WHERE ca.lead_id = $1 AND `+activeClause+`)`,
		leadID,
	).Scan(&busy)
	return busy, err
}

func (s *Store) DeleteLead(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, "delete lead", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `SELECT 1 FROM leads WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return dialer.ErrLeadNotFound
		}
		if _, err := tx.Exec(ctx,
			`UPDATE call_attempts ca SET discarded = TRUE WHERE ca.lead_id = $1 AND `+activeClause, id,
		); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
		return err
	})
}

// ClaimLeads locks candidate rows with SKIP LOCKED so concurrent engines
// never claim the same lead.
func (s *Store) ClaimLeads(ctx context.Context, owner uuid.UUID, n int, now time.Time, claimTTL time.Duration) ([]dialer.Lead, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		WITH picked AS (
			SELECT l.id FROM leads l
			WHERE l.next_attempt > 0
				AND l.status IN ('pending', 'called')
				AND (l.not_before IS NULL OR l.not_before <= $2)
				AND (l.claimed_at IS NULL OR l.claimed_at <= $3)
				AND NOT EXISTS (SELECT 1 FROM call_attempts ca WHERE ca.lead_id = l.id AND `+activeClause+`)
			ORDER BY l.priority DESC, l.created_at ASC, l.id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads SET claimed_by = $1, claimed_at = $2
		FROM picked WHERE leads.id = picked.id
		RETURNING `+qualified("leads", leadColumns),
		owner, now, now.Add(-claimTTL), n,
	)
	if err != nil {
		return nil, fmt.Errorf("claim leads: %w", err)
	}
	leads, err := pgx.CollectRows(rows, collectLead)
	if err != nil {
		return nil, fmt.Errorf("claim leads: %w", err)
	}
	// RETURNING order is unspecified.
	slices.SortFunc(leads, dialer.CompareQueueOrder)
	return leads, nil
}

func (s *Store) ReleaseLead(ctx context.Context, id, owner uuid.UUID) error {
	var exists bool
	err := s.db.QueryRow(ctx, `
		WITH released AS (
			UPDATE leads SET claimed_by = NULL, claimed_at = NULL
			WHERE id = $1 AND claimed_by = $2
		)
		SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`,
		id, owner,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("release lead: %w", err)
	}
	if !exists {
		return dialer.ErrLeadNotFound
	}
	return nil
}

func (s *Store) CountQueued(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM leads l
		WHERE l.next_attempt > 0
			AND l.status IN ('pending', 'called')
			AND NOT EXISTS (SELECT 1 FROM call_attempts ca WHERE ca.lead_id = l.id AND `+activeClause+`)`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queued leads: %w", err)
	}
	return n, nil
}

func (s *Store) ListQueued(ctx context.Context) ([]dialer.Lead, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+qualified("l", leadColumns)+` FROM leads l
		WHERE l.next_attempt > 0
			AND l.status IN ('pending', 'called')
			AND NOT EXISTS (SELECT 1 FROM call_attempts ca WHERE ca.lead_id = l.id AND `+activeClause+`)
		ORDER BY l.priority DESC, l.created_at ASC, l.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list queued leads: %w", err)
	}
	leads, err := pgx.CollectRows(rows, collectLead)
	if err != nil {
		return nil, fmt.Errorf("list queued leads: %w", err)
	}
	return leads, nil
}
