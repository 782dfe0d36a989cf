// SQLite-backed result cache.
//
// Information Hiding:
// - SQLite connection management hidden behind Store
// - Schema details encapsulated
// - Identifier allocation and record insert share one transaction

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
)

const lastIDKey = "last_id"

// SQLiteStore implements Store using a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// OpenSQLite opens or creates a SQLite cache at the given path.
// Creates parent directories if they don't exist.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domainerrors.Storage("create database directory", err)
		}
	}

	// Immediate transactions take the write lock up front, so two
	// invocations cannot both read the same last id.
	dsn := "file:" + path + "?_txlock=immediate&_busy_timeout=5000"
	return openSQLite(dsn, opts)
}

// NewSQLiteInMemory creates an in-memory cache (useful for testing).
func NewSQLiteInMemory(opts ...Option) (*SQLiteStore, error) {
	return openSQLite(":memory:", opts)
}

func openSQLite(dsn string, opts []Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, domainerrors.Storage("open SQLite database", err)
	}
	// One connection: the CLI is single-threaded and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	o := applyOptions(opts)
	store := &SQLiteStore{
		db:     db,
		logger: o.logger.With("component", "cache", "backend", "sqlite"),
		now:    o.now,
	}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, domainerrors.Storage("initialize schema", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY,
			term TEXT NOT NULL,
			kind TEXT NOT NULL,
			protocol TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			stored_at INTEGER NOT NULL,
			size INTEGER NOT NULL,
			results BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_searches_stored
		ON searches(stored_at);

		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// NextID allocates and persists the next identifier.
func (s *SQLiteStore) NextID(ctx context.Context) (int, error) {
	var id int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.allocate(ctx, tx)
		return err
	})
	if err != nil {
		return 0, domainerrors.Storage("allocate search id", err)
	}
	return id, nil
}

// Save persists rec under rec.ID, replacing any existing record.
func (s *SQLiteStore) Save(ctx context.Context, rec SearchRecord) error {
	if !validID(rec.ID) {
		return domainerrors.Validationf("search id %d out of range [0, %d)", rec.ID, MaxID)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, rec)
	})
	if err != nil {
		return domainerrors.Storage(fmt.Sprintf("save search #%d", rec.ID), err)
	}
	return nil
}

// Create allocates an identifier and saves rec in one transaction.
func (s *SQLiteStore) Create(ctx context.Context, rec SearchRecord) (int, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		id, err := s.allocate(ctx, tx)
		if err != nil {
			return err
		}
		rec.ID = id
		return s.insert(ctx, tx, rec)
	})
	if err != nil {
		return 0, domainerrors.Storage("save search", err)
	}
	s.logger.Debug("search cached", "id", rec.ID, "term", rec.Term, "results", len(rec.Results))
	return rec.ID, nil
}

func (s *SQLiteStore) allocate(ctx context.Context, tx *sql.Tx) (int, error) {
	var last int
	err := tx.QueryRowContext(ctx, "SELECT value FROM state WHERE key = ?", lastIDKey).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read last id: %w", err)
	}

	id := nextID(last)
	_, err = tx.ExecContext(ctx,
		"INSERT INTO state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		lastIDKey, id)
	if err != nil {
		return 0, fmt.Errorf("failed to store last id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) insert(ctx context.Context, tx *sql.Tx, rec SearchRecord) error {
	results := rec.Results
	if results == nil {
		results = []model.Release{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO searches
		(id, term, kind, protocol, mode, created_at, stored_at, size, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Term,
		rec.Kind.String(),
		string(rec.Protocol),
		rec.Mode.String(),
		rec.Timestamp.UnixNano(),
		s.now().UnixNano(),
		len(payload),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to store search: %w", err)
	}
	return nil
}

// Load returns the full record for id.
func (s *SQLiteStore) Load(ctx context.Context, id int) (*SearchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, term, kind, protocol, mode, created_at, stored_at, size, results
		FROM searches WHERE id = ?`, id)

	var payload []byte
	rec, err := scanRecord(row.Scan, &payload)
	if err == sql.ErrNoRows {
		return nil, domainerrors.NotFoundf("search #%d not found", id)
	}
	if err != nil {
		return nil, domainerrors.NotFoundf("search #%d not found", id).WithCause(err)
	}

	var results []model.Release
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, domainerrors.NotFoundf("search #%d not found", id).WithCause(err)
	}
	rec.Results = results
	return rec, nil
}

// List returns metadata for every record ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, term, kind, protocol, mode, created_at, stored_at, size
		FROM searches ORDER BY id ASC`)
	if err != nil {
		return nil, domainerrors.Storage("list searches", err)
	}
	defer rows.Close()

	records := []SearchRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan, nil)
		if err != nil {
			s.logger.Debug("skipping unreadable record", "error", err)
			continue
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domainerrors.Storage("list searches", err)
	}
	return records, nil
}

// Latest returns the most recently stored record.
func (s *SQLiteStore) Latest(ctx context.Context) (*SearchRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	best := latest(records)
	if best == nil {
		return nil, domainerrors.NotFoundf("no recent searches found")
	}
	return best, nil
}

// Clear removes all records and resets the identifier pointer.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM searches"); err != nil {
			return fmt.Errorf("failed to delete searches: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM state WHERE key = ?", lastIDKey); err != nil {
			return fmt.Errorf("failed to reset last id: %w", err)
		}
		return nil
	})
	if err != nil {
		return domainerrors.Storage("clear cache", err)
	}
	return nil
}

// Cleanup enforces limits, judging age by stored_at.
func (s *SQLiteStore) Cleanup(ctx context.Context, limits Limits) (CleanupReport, error) {
	records, err := s.List(ctx)
	if err != nil {
		return CleanupReport{}, err
	}
	report := planEviction(records, limits, s.now())
	if report.Removed() == 0 {
		return report, nil
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM searches WHERE id = ?")
		if err != nil {
			return fmt.Errorf("failed to prepare delete statement: %w", err)
		}
		defer stmt.Close()

		for _, id := range append(append([]int{}, report.Expired...), report.Evicted...) {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return fmt.Errorf("failed to delete search #%d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return CleanupReport{}, domainerrors.Storage("clean up cache", err)
	}
	s.logger.Debug("cache cleaned", "expired", report.Expired, "evicted", report.Evicted, "remaining", report.Remaining)
	return report, nil
}

// inTx runs fn in a transaction, committing if it returns nil.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// scanRecord scans the metadata columns, plus results when payload is non-nil.
func scanRecord(scan func(dest ...any) error, payload *[]byte) (*SearchRecord, error) {
	var (
		rec                     SearchRecord
		kind, protocol, mode    string
		createdAt, storedAtNano int64
	)
	dest := []any{&rec.ID, &rec.Term, &kind, &protocol, &mode, &createdAt, &storedAtNano, &rec.Size}
	if payload != nil {
		dest = append(dest, payload)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if rec.Kind, err = model.ParseKind(kind); err != nil {
		return nil, err
	}
	if rec.Protocol, err = model.ParseProtocol(protocol); err != nil {
		return nil, err
	}
	if rec.Mode, err = model.ParseMode(mode); err != nil {
		return nil, err
	}
	rec.Timestamp = time.Unix(0, createdAt)
	rec.StoredAt = time.Unix(0, storedAtNano)
	return &rec, nil
}

var _ Store = (*SQLiteStore)(nil)
