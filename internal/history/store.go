// Package history persists generation results in a local SQLite database.
package history

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/roelfdiedericks/pagesmith/internal/engine"
	"github.com/roelfdiedericks/pagesmith/internal/llm"
	. "github.com/roelfdiedericks/pagesmith/internal/logging"
	"github.com/roelfdiedericks/pagesmith/internal/pricing"
)

const currentSchemaVersion = 2

// ErrNotFound is returned when no generation exists for an id.
var ErrNotFound = errors.New("generation not found")

// Record is one stored generation. Attempts, usage and cost are kept as
// JSON so the schema survives engine changes.
type Record struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"createdAt"`
	Model      string           `json:"model"`
	Provider   string           `json:"provider"`
	Status     string           `json:"status"`
	DurationMs int64            `json:"durationMs"`
	Prompt     string           `json:"prompt"`
	Attempts   []engine.Attempt `json:"attempts,omitempty"`
	Usage      *llm.Usage       `json:"usage,omitempty"`
	Cost       *pricing.Cost    `json:"cost,omitempty"`
	HTML       string           `json:"-"`
	HTMLBytes  int              `json:"htmlBytes"`
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	L_info("history: store opened", "path", path)
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		version = 0
	}

	if version >= currentSchemaVersion {
		L_debug("history: schema up to date", "version", version)
		return nil
	}

	L_info("history: migrating schema", "from", version, "to", currentSchemaVersion)

	migrations := []func(*sql.DB) error{
		migrateV1,
		migrateV2,
	}
	for i := version; i < len(migrations); i++ {
		if err := migrations[i](s.db); err != nil {
			return fmt.Errorf("migration v%d failed: %w", i+1, err)
		}
		L_debug("history: applied migration", "version", i+1)
	}
	return nil
}

func migrateV1(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	);
	INSERT INTO schema_version (version, applied_at) VALUES (1, ?);

	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		model TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		prompt TEXT NOT NULL DEFAULT '',
		attempts TEXT,
		usage TEXT,
		html TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
	`
	_, err := db.Exec(schema, time.Now().Format(time.RFC3339))
	return err
}

func migrateV2(db *sql.DB) error {
	schema := `
	ALTER TABLE generations ADD COLUMN cost TEXT;
	INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (2, ?);
	`
	_, err := db.Exec(schema, time.Now().Format(time.RFC3339))
	return err
}

func newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Save inserts a generation record, assigning an id and timestamp when
// unset, and returns the stored id.
func (s *Store) Save(rec *Record) (string, error) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	attempts, err := marshalNullable(rec.Attempts)
	if err != nil {
		return "", fmt.Errorf("marshal attempts: %w", err)
	}
	usage, err := marshalNullable(rec.Usage)
	if err != nil {
		return "", fmt.Errorf("marshal usage: %w", err)
	}
	cost, err := marshalNullable(rec.Cost)
	if err != nil {
		return "", fmt.Errorf("marshal cost: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO generations (id, created_at, model, provider, status, duration_ms, prompt, attempts, usage, cost, html)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.CreatedAt.Format(time.RFC3339), rec.Model, rec.Provider,
		rec.Status, rec.DurationMs, rec.Prompt, attempts, usage, cost, rec.HTML,
	)
	if err != nil {
		return "", fmt.Errorf("insert generation: %w", err)
	}

	L_debug("history: saved generation", "id", rec.ID, "model", rec.Model, "status", rec.Status)
	return rec.ID, nil
}

// List returns the newest records first, without their HTML bodies.
func (s *Store) List(limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(`
		SELECT id, created_at, model, provider, status, duration_ms, prompt,
			attempts, usage, cost, length(html)
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, false)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one record including its HTML body.
func (s *Store) Get(id string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, model, provider, status, duration_ms, prompt,
			attempts, usage, cost, length(html), html
		FROM generations WHERE id = ?
	`, id)

	rec, err := scanRecord(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Delete removes a record by id.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM generations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of stored generations.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM generations").Scan(&n)
	return n, err
}

// Prune deletes rows older than maxAgeDays and keeps at most maxRows of
// the newest remainder. A zero or negative bound skips that criterion.
func (s *Store) Prune(maxAgeDays, maxRows int) (int64, error) {
	var pruned int64

	if maxAgeDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -maxAgeDays).Format(time.RFC3339)
		result, err := s.db.Exec("DELETE FROM generations WHERE created_at < ?", cutoff)
		if err != nil {
			return pruned, fmt.Errorf("prune by age: %w", err)
		}
		n, _ := result.RowsAffected()
		pruned += n
	}

	if maxRows > 0 {
		result, err := s.db.Exec(`
			DELETE FROM generations WHERE id NOT IN (
				SELECT id FROM generations ORDER BY created_at DESC, id DESC LIMIT ?
			)
		`, maxRows)
		if err != nil {
			return pruned, fmt.Errorf("prune by count: %w", err)
		}
		n, _ := result.RowsAffected()
		pruned += n
	}

	if pruned > 0 {
		L_info("history: pruned generations", "count", pruned)
	}
	return pruned, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable, withHTML bool) (*Record, error) {
	var rec Record
	var createdAt string
	var attempts, usage, cost sql.NullString

	dest := []any{
		&rec.ID, &createdAt, &rec.Model, &rec.Provider, &rec.Status,
		&rec.DurationMs, &rec.Prompt, &attempts, &usage, &cost, &rec.HTMLBytes,
	}
	if withHTML {
		dest = append(dest, &rec.HTML)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = t

	if attempts.Valid && attempts.String != "" {
		if err := json.Unmarshal([]byte(attempts.String), &rec.Attempts); err != nil {
			return nil, fmt.Errorf("parse attempts: %w", err)
		}
	}
	if usage.Valid && usage.String != "" {
		if err := json.Unmarshal([]byte(usage.String), &rec.Usage); err != nil {
			return nil, fmt.Errorf("parse usage: %w", err)
		}
	}
	if cost.Valid && cost.String != "" {
		if err := json.Unmarshal([]byte(cost.String), &rec.Cost); err != nil {
			return nil, fmt.Errorf("parse cost: %w", err)
		}
	}
	return &rec, nil
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []engine.Attempt:
		if len(t) == 0 {
			return nil, nil
		}
	case *llm.Usage:
		if t == nil {
			return nil, nil
		}
	case *pricing.Cost:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
