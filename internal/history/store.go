// Package history persists one record per analysis run so operators can see
// what was sent, where, and whether it arrived.
//
// Persistence is optional: with driver "none" (or empty) every method is a
// no-op. SQLite is the only real driver; the database is a single local file
// and the store keeps one writer connection, which is how SQLite likes it.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"marketbrief/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

var ErrDisabled = errors.New("history disabled")

type Config struct {
	// Driver is "sqlite", or "none"/empty to disable.
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means sqlite default
}

// Entry is one recorded run for one symbol.
type Entry struct {
	ID      string
	At      time.Time
	Symbol  string
	Summary string
	// Outcomes is the JSON-rendered per-channel outcome list.
	Outcomes string
	// OK and Failed count channels by result.
	OK     int
	Failed int
}

type Store struct {
	db  *sql.DB
	log logx.Logger
}

// Open returns a ready store, or nil when persistence is disabled.
// A nil *Store is safe to use; its methods return ErrDisabled.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none":
		return nil, nil
	case "sqlite":
	default:
		return nil, fmt.Errorf("history: unknown driver %q", cfg.Driver)
	}

	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("history: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log.With(logx.String("comp", "history"))}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one run entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, at, symbol, summary, outcomes, ok, failed)
		 VALUES(?,?,?,?,?,?,?)`,
		e.ID, e.At.Format(time.RFC3339Nano), e.Symbol, e.Summary, e.Outcomes, e.OK, e.Failed,
	)
	return err
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, at, symbol, summary, outcomes, ok, failed
		 FROM runs ORDER BY at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Symbol, &e.Summary, &e.Outcomes, &e.OK, &e.Failed); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries older than keep. Called opportunistically by the app.
func (s *Store) Prune(ctx context.Context, keep time.Duration) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if keep <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-keep).Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE at < ?`, cutoff)
	return err
}
