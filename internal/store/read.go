package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/filare/internal/bom"
)

// ErrBuildNotFound is returned when a build id is not in the store.
var ErrBuildNotFound = errors.New("build not found")

// ListBuilds returns every recorded build, oldest first.
//
// Returns an empty slice (not nil) if no builds exist.
func (s *Store) ListBuilds(ctx context.Context) ([]BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.fingerprint, b.created_at, b.harnesses, b.inputs,
		       (SELECT COUNT(*) FROM bom_entries e WHERE e.build_id = b.id)
		FROM builds b
		ORDER BY b.created_at ASC, b.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []BuildRecord{}
	for rows.Next() {
		rec, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// GetBuild returns one build record, or ErrBuildNotFound.
func (s *Store) GetBuild(ctx context.Context, id string) (BuildRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT b.id, b.fingerprint, b.created_at, b.harnesses, b.inputs,
		       (SELECT COUNT(*) FROM bom_entries e WHERE e.build_id = b.id)
		FROM builds b
		WHERE b.id = ?
	`, id)
	rec, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (BuildRecord, error) {
	var (
		rec                        BuildRecord
		created, harnesses, inputs string
	)
	if err := row.Scan(&rec.ID, &rec.Fingerprint, &created, &harnesses, &inputs, &rec.Entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan build: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return rec, fmt.Errorf("build %s: parse created_at: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	if rec.Harnesses, err = unmarshalStrings(harnesses); err != nil {
		return rec, fmt.Errorf("build %s: %w", rec.ID, err)
	}
	if rec.Inputs, err = unmarshalStrings(inputs); err != nil {
		return rec, fmt.Errorf("build %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ReadEntries returns the BOM entries of a build ordered by entry id.
//
// Returns an empty slice (not nil) if the build has no entries.
func (s *Store) ReadEntries(ctx context.Context, buildID string) ([]*bom.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, fingerprint, description, category, qty, unit,
		       designators, partnumbers, qty_multiplier, per_harness
		FROM bom_entries
		WHERE build_id = ?
		ORDER BY entry_id ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []*bom.Entry{}
	for rows.Next() {
		var (
			e                                bom.Entry
			qty, unit, designators, pns, per string
		)
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.Description, &e.Category, &qty, &unit,
			&designators, &pns, &e.QtyMultiplier, &per); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Qty, err = parseQty(qty, unit); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if e.Designators, err = unmarshalStrings(designators); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if len(e.Designators) == 0 {
			e.Designators = nil
		}
		if e.PartNumbers, err = unmarshalPartNumbers(pns); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		if e.PerHarness, err = unmarshalPerHarness(per, unit); err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// EntryQty is the total of one BOM line in one build.
type EntryQty struct {
	BuildID   string
	CreatedAt time.Time
	Qty       string
	Unit      string
}

// EntryHistory returns the quantity of the BOM line with fingerprint in
// every build that has it, oldest first.
func (s *Store) EntryHistory(ctx context.Context, fingerprint string) ([]EntryQty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.created_at, e.qty, e.unit
		FROM bom_entries e
		JOIN builds b ON b.id = e.build_id
		WHERE e.fingerprint = ?
		ORDER BY b.created_at ASC, b.id COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query entry history: %w", err)
	}
	defer rows.Close()

	out := []EntryQty{}
	for rows.Next() {
		var (
			q       EntryQty
			created string
		)
		if err := rows.Scan(&q.BuildID, &created, &q.Qty, &q.Unit); err != nil {
			return nil, fmt.Errorf("scan entry history: %w", err)
		}
		if q.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("build %s: parse created_at: %w", q.BuildID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry history: %w", err)
	}
	return out, nil
}
