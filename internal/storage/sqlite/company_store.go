// Package sqlite provides a local company store backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/company-profiler/internal/company"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrNotFound is returned when an update matches no company row.
var ErrNotFound = errors.New("company not found")

// CompanyStore implements company.Store on a SQLite database.
type CompanyStore struct {
	db    *sql.DB
	table string
}

// Open opens the database at dsn and configures WAL mode. SQLite allows one
// writer, so the pool is capped at a single connection.
func Open(dsn, table string) (*CompanyStore, error) {
	if table == "" {
		table = "company"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &CompanyStore{db: db, table: table}, nil
}

// Migrate creates the company table when it does not exist.
func (s *CompanyStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	homepageurl TEXT,
	description TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_description ON %[1]s(description);
`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Insert adds a company with an empty description and returns its id.
func (s *CompanyStore) Insert(ctx context.Context, homepageURL string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (homepageurl, description) VALUES (?, '')`, s.table),
		homepageURL,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert company: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: last insert id: %w", err)
	}
	return id, nil
}

// FetchBatch returns up to limit companies whose description is still empty.
func (s *CompanyStore) FetchBatch(ctx context.Context, limit int) ([]company.Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, COALESCE(homepageurl, '') FROM %s WHERE description = '' LIMIT ?`, s.table),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select pending companies: %w", err)
	}
	defer rows.Close()

	var records []company.Record
	for rows.Next() {
		var rec company.Record
		if err := rows.Scan(&rec.ID, &rec.URL); err != nil {
			return nil, fmt.Errorf("sqlite: scan company row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate company rows: %w", err)
	}
	return records, nil
}

// Description returns the stored description for id.
func (s *CompanyStore) Description(ctx context.Context, id int64) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT description FROM %s WHERE id = ?`, s.table), id,
	).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("company %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: select description: %w", err)
	}
	return text, nil
}

// UpdateDescription stores text as the description of company id.
func (s *CompanyStore) UpdateDescription(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET description = ? WHERE id = ?`, s.table),
		text, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update company %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update company %d: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database.
func (s *CompanyStore) Close() error {
	return s.db.Close()
}
