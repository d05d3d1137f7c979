package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/gatealloc/core/model"
)

// SQLiteStore keeps the latest snapshot in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    taken_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS gates (
    gate_id TEXT PRIMARY KEY,
    terminal TEXT NOT NULL,
    size TEXT NOT NULL,
    available INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS assignments (
    assignment_id TEXT PRIMARY KEY,
    gate_id TEXT NOT NULL REFERENCES gates(gate_id),
    assigned_from INTEGER NOT NULL,
    assigned_until INTEGER NOT NULL,
    flight TEXT NOT NULL
);`

// NewSQLiteStore opens or creates the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range []string{`DELETE FROM assignments`, `DELETE FROM gates`, `DELETE FROM snapshot_meta`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO snapshot_meta (id, taken_at) VALUES (1, ?)`, snap.TakenAt.UnixNano()); err != nil {
		return err
	}
	for _, g := range snap.Gates {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO gates (gate_id, terminal, size, available) VALUES (?, ?, ?, ?)`,
			g.ID, g.Terminal, g.Size.String(), g.Available); err != nil {
			return fmt.Errorf("save gate %s: %w", g.ID, err)
		}
	}
	for _, a := range snap.Assignments {
		var flight []byte
		if flight, err = json.Marshal(a.Flight); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO assignments (assignment_id, gate_id, assigned_from, assigned_until, flight) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.Gate.ID, a.From.UnixNano(), a.Until.UnixNano(), string(flight)); err != nil {
			return fmt.Errorf("save assignment %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// Load reads the stored snapshot. Assignment gate snapshots are rebuilt from
// the gates table.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, bool, error) {
	var taken int64
	err := s.db.QueryRowContext(ctx, `SELECT taken_at FROM snapshot_meta WHERE id = 1`).Scan(&taken)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	snap := Snapshot{TakenAt: time.Unix(0, taken).UTC()}

	gates, err := s.loadGates(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}
	byID := make(map[string]model.Gate, len(gates))
	for _, g := range gates {
		byID[g.ID] = g
	}
	snap.Gates = gates

	rows, err := s.db.QueryContext(ctx,
		`SELECT assignment_id, gate_id, assigned_from, assigned_until, flight FROM assignments ORDER BY assigned_from, gate_id, assignment_id`)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			a           model.GateAssignment
			gateID      string
			from, until int64
			flight      string
		)
		if err := rows.Scan(&a.ID, &gateID, &from, &until, &flight); err != nil {
			return Snapshot{}, false, err
		}
		if err := json.Unmarshal([]byte(flight), &a.Flight); err != nil {
			return Snapshot{}, false, fmt.Errorf("decode flight of %s: %w", a.ID, err)
		}
		g, ok := byID[gateID]
		if !ok {
			return Snapshot{}, false, fmt.Errorf("assignment %s references unknown gate %s", a.ID, gateID)
		}
		a.Gate = g
		a.From = time.Unix(0, from).UTC()
		a.Until = time.Unix(0, until).UTC()
		snap.Assignments = append(snap.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *SQLiteStore) loadGates(ctx context.Context) ([]model.Gate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT gate_id, terminal, size, available FROM gates ORDER BY gate_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Gate
	for rows.Next() {
		var (
			g    model.Gate
			size string
		)
		if err := rows.Scan(&g.ID, &g.Terminal, &size, &g.Available); err != nil {
			return nil, err
		}
		if g.Size, err = model.ParseAircraftSize(size); err != nil {
			return nil, fmt.Errorf("gate %s: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
