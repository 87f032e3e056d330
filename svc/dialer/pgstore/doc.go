// Package pgstore is the PostgreSQL implementation of dialer.Store.
//
// The schema lives in Migrations and is applied with pg.Migrate. Two
// indexes carry the engine's invariants: a partial unique index allows at
// most one non-terminal attempt per lead, and (lead_id, attempt_number) is
// unique. Lead claims use SELECT ... FOR UPDATE SKIP LOCKED, so several
// engines may share one database without claiming the same lead.
package pgstore
