package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/faceauth/internal/database"
)

// BackendName is the storage backend name used in configuration.
const BackendName = "mariadb"

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
// The DSN is rewritten to parse DATETIME columns as UTC time.Time values.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS faceauth_settings (
		id                   TINYINT PRIMARY KEY,
		schema_version       INT NOT NULL,
		accuracy_threshold   DOUBLE NOT NULL,
		min_samples_per_user INT NOT NULL,
		max_samples_per_user INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS faceauth_users (
		user_id              VARCHAR(255) PRIMARY KEY,
		enrollment_date      DATETIME(6) NOT NULL,
		last_authentication  DATETIME(6) NULL,
		authentication_count INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS faceauth_samples (
		user_id     VARCHAR(255) NOT NULL,
		sample_id   VARCHAR(64) NOT NULL,
		position    INT NOT NULL,
		descriptor  LONGTEXT NOT NULL,
		confidence  DOUBLE NOT NULL,
		captured_at DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, sample_id),
		CONSTRAINT fk_faceauth_samples_user FOREIGN KEY (user_id)
			REFERENCES faceauth_users (user_id) ON DELETE CASCADE
	)`,
}

// EnsureSchema creates the enrollment tables if they do not exist.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Open connects, creates the schema and returns the enrollment persister.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func init() {
	database.RegisterBackend(BackendName, func(ctx context.Context, target string) (database.Persister, error) {
		return Open(ctx, target)
	})
}
