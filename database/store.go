package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrLocationNotFound is returned for a location with no stored waypoints.
var ErrLocationNotFound = errors.New("location not found")

// Waypoint is one pose the base can be sent to, expressed in Frame.
type Waypoint struct {
	Frame string  `json:"frame" yaml:"frame"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Theta float64 `json:"theta" yaml:"theta"`
}

// Store is the SQLite-backed task database: named waypoint lists, semantic
// locations, the parts expected at each location and the belief state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, e.g. "file:tasks.db" or
// ":memory:".
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Every pooled connection would get its own in-memory database.
		db.SetMaxOpenConns(1)
	}
	s, err := NewStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open handle and migrates the schema.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS waypoints (
        location TEXT NOT NULL,
        seq INTEGER NOT NULL,
        frame TEXT NOT NULL,
        x REAL NOT NULL DEFAULT 0,
        y REAL NOT NULL DEFAULT 0,
        theta REAL NOT NULL DEFAULT 0,
        PRIMARY KEY (location, seq)
    );
    CREATE TABLE IF NOT EXISTS semantic_locations (
        name TEXT PRIMARY KEY
    );
    CREATE TABLE IF NOT EXISTS parts_at_location (
        location TEXT NOT NULL,
        part TEXT NOT NULL,
        PRIMARY KEY (location, part)
    );
    CREATE TABLE IF NOT EXISTS beliefs (
        name TEXT PRIMARY KEY,
        value REAL NOT NULL,
        updated_at DATETIME
    );`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// PutWaypoints replaces the waypoint list stored for location.
func (s *Store) PutWaypoints(ctx context.Context, location string, wps []Waypoint) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM waypoints WHERE location = ?`, location); err != nil {
			return err
		}
		for i, wp := range wps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO waypoints (location, seq, frame, x, y, theta) VALUES (?, ?, ?, ?, ?, ?)`,
				location, i, wp.Frame, wp.X, wp.Y, wp.Theta,
			); err != nil {
				return fmt.Errorf("failed to insert waypoint %d of %s: %w", i, location, err)
			}
		}
		return nil
	})
}

// Waypoints returns the ordered waypoints of location.
func (s *Store) Waypoints(ctx context.Context, location string) ([]Waypoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame, x, y, theta FROM waypoints WHERE location = ? ORDER BY seq`, location)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var wps []Waypoint
	for rows.Next() {
		var wp Waypoint
		if err := rows.Scan(&wp.Frame, &wp.X, &wp.Y, &wp.Theta); err != nil {
			return nil, err
		}
		wps = append(wps, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(wps) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, location)
	}
	return wps, nil
}

// PutSemanticLocation registers a semantic location name.
func (s *Store) PutSemanticLocation(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO semantic_locations (name) VALUES (?)`, name)
	return err
}

// SemanticLocations lists the semantic location names in name order.
func (s *Store) SemanticLocations(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT name FROM semantic_locations ORDER BY name`)
}

// PutPartsAtLocation replaces the parts expected at location and registers
// the location.
func (s *Store) PutPartsAtLocation(ctx context.Context, location string, parts []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO semantic_locations (name) VALUES (?)`, location); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM parts_at_location WHERE location = ?`, location); err != nil {
			return err
		}
		for _, p := range parts {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO parts_at_location (location, part) VALUES (?, ?)`, location, p); err != nil {
				return fmt.Errorf("failed to insert part %s at %s: %w", p, location, err)
			}
		}
		return nil
	})
}

// PartsAtLocation lists the parts expected at location.
func (s *Store) PartsAtLocation(ctx context.Context, location string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT part FROM parts_at_location WHERE location = ? ORDER BY part`, location)
}

// SetBelief stores the value of one belief, e.g. robot_at_table = 1.
func (s *Store) SetBelief(ctx context.Context, key string, value float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO beliefs (name, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Beliefs returns every stored belief.
func (s *Store) Beliefs(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM beliefs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]float64)
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
