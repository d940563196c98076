// Package database manages the Postgres connection used by the index
// builder, vector store, and result persister, via pgx's stdlib driver and
// sqlx for ergonomic query/scan.
package database

import (
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	apperrors "github.com/opportumatch/matcher/internal/errors"
	"github.com/opportumatch/matcher/pkg/shared/logging"
)

// Config describes a Postgres connection and its pool tuning.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns the service's documented default connection
// settings, suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		User:            "matcher",
		Database:        "program_matcher",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// LoadFromEnv overlays DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME/
// DB_SSL_MODE onto c, ignoring unset or unparsable values.
func (c *Config) LoadFromEnv() {
	loadFromEnvInto(c)
}

// Validate checks that the connection settings are usable.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be greater than 0")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections must be non-negative")
	}
	return nil
}

// ConnectionString renders c as a libpq keyword/value DSN. The password is
// omitted entirely when empty, rather than emitted as password="".
func (c *Config) ConnectionString() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password=%s", c.Password)
	}
	return dsn
}

// Connect validates config and opens a pooled connection to Postgres via
// pgx's database/sql-compatible driver, wrapped in an sqlx.DB.
func Connect(config *Config, logger *logrus.Logger) (*sqlx.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrorTypeConfig, "invalid database configuration").
			WithDetails(err.Error())
	}

	db, err := sqlx.Connect("pgx", config.ConnectionString())
	if err != nil {
		logger.WithFields(logging.DatabaseFields("connect", config.Database).Error(err).ToLogrus()).
			Error("failed to connect to database")
		return nil, apperrors.NewDatabaseError("connect", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	logger.WithFields(logging.DatabaseFields("connect", config.Database).ToLogrus()).
		Info("connected to database")

	return db, nil
}

// Migrate applies every pending goose migration served out of migrations
// to db, reading them from the "migrations" directory inside that
// filesystem (db.Migrations embeds them as migrations/*.sql).
func Migrate(db *sqlx.DB, migrations fs.FS, logger *logrus.Logger) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeConfig, "failed to set goose dialect")
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeDatabase, "failed to apply database migrations")
	}

	logger.Info("database migrations applied")
	return nil
}
