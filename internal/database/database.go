package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"holidayrent/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const memoryPath = ":memory:"

// DB is the SQLite implementation of domain.Store.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
	now    func() time.Time
}

var _ domain.Store = (*DB)(nil)

// NewDB opens (creating if needed) the database at path and applies the schema.
// Write transactions take the RESERVED lock up front so that a check followed by
// an insert inside one transaction cannot interleave with another writer.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_busy_timeout=5000&_txlock=immediate"
	if path != memoryPath {
		dsn += "&_journal_mode=WAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		DB:     sqlDB,
		path:   path,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Path is the file the database lives in.
func (db *DB) Path() string { return db.path }

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE COLLATE NOCASE,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            phone TEXT,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'guest',
            is_active INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS properties (
            id TEXT PRIMARY KEY,
            owner_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            property_type TEXT NOT NULL,
            address TEXT NOT NULL,
            city TEXT NOT NULL,
            region TEXT NOT NULL,
            postal_code TEXT NOT NULL,
            country TEXT NOT NULL,
            bedrooms INTEGER NOT NULL DEFAULT 0,
            bathrooms INTEGER NOT NULL DEFAULT 0,
            max_guests INTEGER NOT NULL,
            price_per_night REAL NOT NULL,
            amenities TEXT NOT NULL DEFAULT '[]',
            images TEXT NOT NULL DEFAULT '[]',
            is_active INTEGER NOT NULL DEFAULT 1,
            average_rating REAL,
            review_count INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            property_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            guests INTEGER NOT NULL,
            special_requests TEXT,
            total_price REAL NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            payment_status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            CHECK (check_out > check_in)
        )`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id TEXT PRIMARY KEY,
            property_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            booking_id TEXT,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            title TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            UNIQUE (user_id, property_id)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_properties_region ON properties(region)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_active ON properties(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_property_status ON bookings(property_id, status, check_in)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_property ON reviews(property_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// setClause accumulates the assignments of a partial UPDATE.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

func (s *setClause) sql() string { return strings.Join(s.cols, ", ") }
