package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // Pure Go sqlite driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

//go:generate sh -c "cd ../.. && sqlc generate"

const connPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DB provides a centralized database connection
type DB struct {
	SQL *sql.DB
}

// NewDB initializes the SQLite database and runs migrations.
func NewDB(dbPath string, logger *zap.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Schema first, so the app never sees a stale layout.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied", zap.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath+connPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{SQL: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.SQL.Close()
}

// RunMigrations applies database migrations using golang-migrate.
func RunMigrations(databasePath string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	// For modernc.org/sqlite the URL is "sqlite://<path_to_db>".
	databaseURL := fmt.Sprintf("sqlite://%s", databasePath)

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Provider opens the database on first use and hands the same connection to
// every caller afterwards.
type Provider struct {
	path   string
	logger *zap.Logger

	once sync.Once
	mu   sync.Mutex
	db   *DB
	err  error
}

// NewProvider creates a Provider for the database at path. Nothing is opened yet.
func NewProvider(path string, logger *zap.Logger) *Provider {
	return &Provider{path: path, logger: logger}
}

// Get returns the shared connection, opening it on the first call. A failed
// open is remembered and returned on every later call.
func (p *Provider) Get() (*DB, error) {
	p.once.Do(func() {
		db, err := NewDB(p.path, p.logger)
		p.mu.Lock()
		p.db, p.err = db, err
		p.mu.Unlock()
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db, p.err
}

// Close closes the connection if it was opened.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	p.err = errors.New("database provider closed")
	return err
}
