// Package storage persists sources, content items, analyses, personas, sales
// angles and product consolidations in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"persona-stack/shared/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is safe for sequential use by one pipeline. SQLite runs on a single
// connection, so nothing may touch s.db while a transaction is open.
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func Open(cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return OpenSQLite(cfg.DSN)
	case "postgres":
		return OpenPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenSQLite opens (and creates) a database file. ":memory:" is accepted for
// throwaway stores.
func OpenSQLite(path string) (*Store, error) {
	connStr := path
	if path == ":memory:" {
		connStr = "file::memory:?cache=shared"
	} else if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	if strings.Contains(connStr, "?") {
		connStr += "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	} else {
		connStr += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	return newStore(db, dialectSQLite)
}

func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return newStore(db, dialectPostgres)
}

func newStore(db *sql.DB, d dialect) (*Store, error) {
	s := &Store{db: db, dialect: d, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialectPostgres {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	schema := strings.ReplaceAll(`
	CREATE TABLE IF NOT EXISTS products (
		id {{pk}},
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		target_audience TEXT NOT NULL DEFAULT '',
		pain_points TEXT NOT NULL DEFAULT '',
		key_benefits TEXT NOT NULL DEFAULT '',
		value_proposition TEXT NOT NULL DEFAULT '',
		consolidation TEXT,
		last_consolidated_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS videos (
		id {{pk}},
		video_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		channel_title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		duration TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		view_count BIGINT NOT NULL DEFAULT 0,
		like_count BIGINT NOT NULL DEFAULT 0,
		comment_count BIGINT NOT NULL DEFAULT 0,
		published_at TEXT,
		product_id BIGINT REFERENCES products(id) ON DELETE SET NULL,
		is_analyzing INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS surveys (
		id {{pk}},
		spreadsheet_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		form_url TEXT NOT NULL DEFAULT '',
		responses_count INTEGER NOT NULL DEFAULT 0,
		product_id BIGINT REFERENCES products(id) ON DELETE SET NULL,
		is_analyzing INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_items (
		id {{pk}},
		external_id TEXT NOT NULL UNIQUE,
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		author_channel_id TEXT NOT NULL DEFAULT '',
		raw_text TEXT NOT NULL DEFAULT '',
		combined_text TEXT NOT NULL DEFAULT '',
		like_count BIGINT NOT NULL DEFAULT 0,
		reply_count BIGINT NOT NULL DEFAULT 0,
		published_at TEXT,
		replies TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_items_source ON content_items(source_type, source_id);

	CREATE TABLE IF NOT EXISTS analyses (
		id {{pk}},
		content_item_id BIGINT NOT NULL UNIQUE REFERENCES content_items(id) ON DELETE CASCADE,
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		category TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		relevance_score INTEGER NOT NULL,
		is_relevant INTEGER NOT NULL DEFAULT 0,
		keywords TEXT NOT NULL DEFAULT '[]',
		insights TEXT NOT NULL DEFAULT '{}',
		analysis TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		tokens_used INTEGER NOT NULL DEFAULT 0,
		analyzed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_source ON analyses(source_type, source_id);

	CREATE TABLE IF NOT EXISTS buyer_personas (
		id {{pk}},
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		age_range TEXT NOT NULL DEFAULT '',
		occupation TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		motivations TEXT NOT NULL DEFAULT '[]',
		pain_points TEXT NOT NULL DEFAULT '[]',
		dreams TEXT NOT NULL DEFAULT '[]',
		objections TEXT NOT NULL DEFAULT '[]',
		preferred_channels TEXT NOT NULL DEFAULT '[]',
		keywords TEXT NOT NULL DEFAULT '[]',
		audience_percentage INTEGER NOT NULL DEFAULT 0,
		priority_level TEXT NOT NULL DEFAULT 'medium',
		recommended_strategy TEXT NOT NULL DEFAULT '',
		behavior TEXT NOT NULL DEFAULT '',
		items_analyzed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_buyer_personas_source ON buyer_personas(source_type, source_id);

	CREATE TABLE IF NOT EXISTS sales_angles (
		id {{pk}},
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		copy_example TEXT NOT NULL DEFAULT '',
		focus TEXT NOT NULL DEFAULT '',
		content_type TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_angles_source ON sales_angles(source_type, source_id, position);

	CREATE TABLE IF NOT EXISTS copy_generations (
		id {{pk}},
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		copy_type TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		tone TEXT NOT NULL DEFAULT '',
		objective TEXT NOT NULL DEFAULT '',
		angle TEXT NOT NULL DEFAULT '',
		persona_index INTEGER,
		variations TEXT NOT NULL DEFAULT '[]',
		character_count INTEGER NOT NULL DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	`, "{{pk}}", pk)

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return s.addColumns()
}

// lateColumns were added after the first schema and are appended to tables
// of older databases.
var lateColumns = []struct{ table, column, def string }{
	{"buyer_personas", "behavior", "TEXT NOT NULL DEFAULT ''"},
}

func (s *Store) addColumns() error {
	for _, c := range lateColumns {
		if s.dialect == dialectPostgres {
			if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.table, c.column, c.def)); err != nil {
				return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
			}
			continue
		}
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", c.table, c.column).Scan(&n); err != nil {
			return fmt.Errorf("inspect %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.def)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	return parseTime(ns.String)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// encodeList stores nil slices as [] so reads never see null.
func encodeList(items []string) string {
	if items == nil {
		return "[]"
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func decodeList(s string) []string {
	out := []string{}
	if s == "" {
		return out
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
