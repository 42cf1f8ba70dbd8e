package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_path TEXT NOT NULL,
	dest_path TEXT,
	sha256 TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	category TEXT,
	course TEXT,
	confidence TEXT,
	status TEXT NOT NULL,
	zotero_key TEXT,
	calibre_id TEXT,
	summary_path TEXT,
	processed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_files_sha256 ON processed_files(sha256);
CREATE INDEX IF NOT EXISTS idx_processed_files_processed_at ON processed_files(processed_at);
`

const columns = `id, source_path, dest_path, sha256, size, category, course, confidence,
	status, zotero_key, calibre_id, summary_path, processed_at`

// Store is the SQLite-backed processing ledger
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or opens the ledger database at path
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// one writer at a time; the pragmas below are per-connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}

	store := &Store{db: db, path: path, logger: logging.OrDiscard(logger)}
	store.logger.Debug("ledger opened", logging.Path(path))
	return store, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry and returns its row id
func (s *Store) Record(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	processedAt := e.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO processed_files (
				source_path, dest_path, sha256, size, category, course, confidence,
				status, zotero_key, calibre_id, summary_path, processed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.SourcePath,
			nullableString(e.DestPath),
			e.SHA256,
			e.Size,
			nullableString(e.Category),
			nullableString(e.Course),
			nullableString(string(e.Confidence)),
			string(e.Status),
			nullableString(e.ZoteroKey),
			nullableString(e.CalibreID),
			nullableString(e.SummaryPath),
			processedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record ledger entry: %w", err)
	}
	return id, nil
}

// FindByHash returns the newest organized entry with this content hash.
// A missing row is not an error.
func (s *Store) FindByHash(ctx context.Context, sha256 string) (*domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+`
		FROM processed_files
		WHERE sha256 = ? AND status = ?
		ORDER BY id DESC
		LIMIT 1`, sha256, string(domain.StatusOrganized))

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by hash: %w", err)
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM processed_files
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// StatusCounts returns how many entries were recorded per status
func (s *Store) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processed_files GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.LedgerEntry, error) {
	var (
		e                                  domain.LedgerEntry
		dest, category, course, confidence sql.NullString
		zoteroKey, calibreID, summary      sql.NullString
		status, processedAt                string
	)
	if err := row.Scan(
		&e.ID,
		&e.SourcePath,
		&dest,
		&e.SHA256,
		&e.Size,
		&category,
		&course,
		&confidence,
		&status,
		&zoteroKey,
		&calibreID,
		&summary,
		&processedAt,
	); err != nil {
		return nil, err
	}

	e.DestPath = dest.String
	e.Category = category.String
	e.Course = course.String
	e.Confidence = domain.Confidence(confidence.String)
	e.Status = domain.Status(status)
	e.ZoteroKey = zoteroKey.String
	e.CalibreID = calibreID.String
	e.SummaryPath = summary.String
	if t, err := time.Parse(time.RFC3339Nano, processedAt); err == nil {
		e.ProcessedAt = t
	}
	return &e, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == 5 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries fn with exponential backoff while SQLite reports busy
func retryOnBusy(ctx context.Context, fn func() error) error {
	const maxAttempts = 5
	backoff := 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if !isBusy(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 200*time.Millisecond)
	}
	return err
}
