// Package database provides destination connection management for GoIngest.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dbsmedya/goingest/internal/config"
)

// Default ports applied when DatabaseConfig.Port is zero.
const (
	DefaultMySQLPort    = 3306
	DefaultPostgresPort = 5432
)

// Manager handles the destination database connection.
type Manager struct {
	Destination *sql.DB
	Driver      string
	config      *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect establishes the destination connection.
func (m *Manager) Connect(ctx context.Context) error {
	driver, err := DriverName(&m.config.Destination)
	if err != nil {
		return err
	}

	m.Destination, err = m.connectWithRetry(ctx, driver, &m.config.Destination)
	if err != nil {
		return fmt.Errorf("failed to connect to destination database: %w", err)
	}
	m.Driver = driver

	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, driver string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = Open(driver, cfg)
		if err == nil {
			pingErr := db.PingContext(ctx)
			if pingErr == nil {
				return db, nil
			}
			db.Close()
			err = pingErr
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// Open opens a pool for cfg without verifying it.
func Open(driver string, cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// every connection to :memory: would see its own database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// DriverName maps the configured driver to its database/sql name.
func DriverName(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "mysql", "":
		return "mysql", nil
	case "postgres":
		return "postgres", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported destination driver %q", cfg.Driver)
	}
}

// BuildDSN constructs a driver-specific DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "mysql", "":
		return buildMySQLDSN(cfg), nil
	case "postgres":
		return buildPostgresDSN(cfg), nil
	case "sqlite":
		return buildSQLiteDSN(cfg), nil
	default:
		return "", fmt.Errorf("unsupported destination driver %q", cfg.Driver)
	}
}

func buildMySQLDSN(cfg *config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(portOrDefault(cfg.Port, DefaultMySQLPort)))
	mc.DBName = cfg.Database
	mc.ParseTime = true

	switch cfg.TLS {
	case "disable":
		mc.TLSConfig = "false"
	case "required":
		mc.TLSConfig = "true"
	case "preferred", "":
		mc.TLSConfig = "preferred"
	}

	return mc.FormatDSN()
}

func buildPostgresDSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(portOrDefault(cfg.Port, DefaultPostgresPort))),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	switch cfg.TLS {
	case "disable":
		q.Set("sslmode", "disable")
	case "required":
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func buildSQLiteDSN(cfg *config.DatabaseConfig) string {
	if cfg.Path == ":memory:" {
		return cfg.Path
	}
	return cfg.Path + "?_pragma=busy_timeout(5000)"
}

func portOrDefault(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}

// Close closes the destination connection.
func (m *Manager) Close() error {
	if m.Destination != nil {
		if err := m.Destination.Close(); err != nil {
			return fmt.Errorf("destination close: %w", err)
		}
	}
	return nil
}

// Ping verifies the destination connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Destination != nil {
		if err := m.Destination.PingContext(ctx); err != nil {
			return fmt.Errorf("destination ping failed: %w", err)
		}
	}
	return nil
}
