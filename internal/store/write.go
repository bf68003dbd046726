package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/filare/internal/bom"
)

// BuildRecord describes one recorded build.
type BuildRecord struct {
	ID          string
	Fingerprint string
	CreatedAt   time.Time
	Harnesses   []string
	Inputs      []string

	// Entries is the number of stored BOM entries. Read only.
	Entries int
}

// NewBuildID returns a time-ordered UUIDv7 build id.
func NewBuildID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// RecordBuild inserts a build record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) RecordBuild(ctx context.Context, rec BuildRecord) error {
	return insertBuild(ctx, s.db, rec)
}

func insertBuild(ctx context.Context, ex execer, rec BuildRecord) error {
	harnesses, err := marshalStrings(rec.Harnesses)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	inputs, err := marshalStrings(rec.Inputs)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO builds (id, fingerprint, created_at, harnesses, inputs)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Fingerprint,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		harnesses,
		inputs,
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// WriteEntries stores the entries of a recorded build in one transaction.
// Entries already stored for the build are left unchanged.
//
// Note: The build referenced by buildID must exist (foreign key constraint).
func (s *Store) WriteEntries(ctx context.Context, buildID string, entries []*bom.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	defer tx.Rollback()

	if err := insertEntries(ctx, tx, buildID, entries); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEntries(ctx context.Context, ex execer, buildID string, entries []*bom.Entry) error {
	stmt, err := ex.PrepareContext(ctx, `
		INSERT INTO bom_entries
		(build_id, entry_id, fingerprint, description, category, qty, unit,
		 designators, partnumbers, qty_multiplier, per_harness)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id, entry_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		designators, err := marshalStrings(e.Designators)
		if err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
		pns, err := marshalPartNumbers(e.PartNumbers)
		if err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
		per, err := marshalPerHarness(e.PerHarness)
		if err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			buildID,
			e.ID,
			e.Fingerprint,
			e.Description,
			e.Category,
			e.Qty.NumberString(),
			e.Qty.Unit,
			designators,
			pns,
			e.QtyMultiplier,
			per,
		); err != nil {
			return fmt.Errorf("write entry %d: %w", e.ID, err)
		}
	}
	return nil
}

// SaveBuild records a build of b and stores its entries in one
// transaction, so a failed save leaves no build behind. The build's
// fingerprint is computed from the entries when rec has none.
func (s *Store) SaveBuild(ctx context.Context, rec BuildRecord, b *bom.BOM) error {
	entries := b.Entries()
	if rec.Fingerprint == "" {
		rec.Fingerprint = Fingerprint(entries)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save build: %w", err)
	}
	defer tx.Rollback()

	if err := insertBuild(ctx, tx, rec); err != nil {
		return err
	}
	if err := insertEntries(ctx, tx, rec.ID, entries); err != nil {
		return err
	}
	return tx.Commit()
}

// Prune deletes all but the keep most recent builds, with their entries,
// and returns the number of builds deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must not be negative, got %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM builds WHERE id NOT IN (
			SELECT id FROM builds
			ORDER BY created_at DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return int(n), nil
}
