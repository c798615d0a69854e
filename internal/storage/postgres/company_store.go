// Package postgres provides the Postgres-backed company store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/company-profiler/internal/company"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrNotFound is returned when an update matches no company row.
var ErrNotFound = errors.New("company not found")

// CompanyStoreConfig controls the Postgres connection pool used for company rows.
type CompanyStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type queryExecCloser interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// CompanyStore reads pending companies and writes their descriptions.
type CompanyStore struct {
	pool  queryExecCloser
	table string
}

// NewCompanyStore creates a Postgres-backed CompanyStore using the provided config.
func NewCompanyStore(ctx context.Context, cfg CompanyStoreConfig) (*CompanyStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &CompanyStore{pool: pool, table: table}, nil
}

// NewCompanyStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewCompanyStoreWithPool(pool queryExecCloser, table string) (*CompanyStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &CompanyStore{pool: pool, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "company"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *CompanyStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// FetchBatch returns up to limit companies whose description is still empty.
func (s *CompanyStore) FetchBatch(ctx context.Context, limit int) ([]company.Record, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("company store is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	query := fmt.Sprintf(`
		SELECT id, COALESCE(homepageurl, '')
		FROM %s
		WHERE description = ''
		LIMIT $1;
	`, s.table)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending companies: %w", err)
	}
	defer rows.Close()

	var records []company.Record
	for rows.Next() {
		var rec company.Record
		if err := rows.Scan(&rec.ID, &rec.URL); err != nil {
			return nil, fmt.Errorf("scan company row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company rows: %w", err)
	}
	return records, nil
}

// UpdateDescription stores text as the description of company id.
func (s *CompanyStore) UpdateDescription(ctx context.Context, id int64, text string) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("company store is not configured")
	}
	query := fmt.Sprintf(`UPDATE %s SET description = $1 WHERE id = $2;`, s.table)
	res, err := s.pool.Exec(ctx, query, text, id)
	if err != nil {
		return fmt.Errorf("update company %d: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("update company %d: %w", id, ErrNotFound)
	}
	return nil
}
