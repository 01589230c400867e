package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"incidentdeck/config"
	"incidentdeck/core/utils"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the sql handle together with the statement builder configured for
// the driver's placeholder format.
type DB struct {
	*sql.DB
	driver  string
	builder sq.StatementBuilderType
}

func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if driver == "" {
		driver = DriverPostgres
	}
	if cfg.DBPath != "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverPostgres:
		handle, err := sql.Open("pgx", cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Printf("using postgres database")
		return &DB{
			DB:      handle,
			driver:  DriverPostgres,
			builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		}, nil
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.DBPath)
		handle, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// modernc sqlite serializes writes; a single connection avoids
		// SQLITE_BUSY churn under concurrent handlers.
		handle.SetMaxOpenConns(1)
		logger.Printf("using sqlite database at %s", cfg.DBPath)
		return &DB{
			DB:      handle,
			driver:  DriverSQLite,
			builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

func (db *DB) Driver() string { return db.driver }

func (db *DB) Builder() sq.StatementBuilderType { return db.builder }

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (db *DB) execBuilder(ctx context.Context, b sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.ExecContext(ctx, query, args...)
}

func (db *DB) queryBuilder(ctx context.Context, b sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.QueryContext(ctx, query, args...)
}

func (db *DB) queryRowBuilder(ctx context.Context, b sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.QueryRowContext(ctx, query, args...), nil
}
