package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/coldcall/svc/dialer"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements dialer.Store on PostgreSQL. Every multi-row change runs
// in one transaction and locks the lead row before its attempts.
type Store struct {
	db DB
}

var _ dialer.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db}
}

const (
	constraintOneActive = "call_attempts_one_active"
	constraintNumber    = "call_attempts_number_key"
)

var terminalStates = []dialer.CallState{
	dialer.StateCompleted,
	dialer.StateNoAnswer,
	dialer.StateBusy,
	dialer.StateRejected,
	dialer.StateFailed,
}

// activeClause filters call_attempts rows (aliased ca) to non-terminal ones.
var activeClause = func() string {
	quoted := make([]string, len(terminalStates))
	for i, s := range terminalStates {
		quoted[i] = "'" + string(s) + "'"
	}
	return "ca.state NOT IN (" + strings.Join(quoted, ", ") + ")"
}()

func (s *Store) inTx(ctx context.Context, op string, fn func(pgx.Tx) error) error {
	if err := pgx.BeginFunc(ctx, s.db, fn); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
