package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"intake/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL CHECK (length(name) <= 255),
	email      TEXT NOT NULL CHECK (length(email) <= 255),
	message    TEXT NOT NULL CHECK (length(message) <= 4000),
	remote_ip  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email);
`

// SQLiteStorage stores leads in a SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating when needed) the database and its schema.
func NewSQLiteStorage(config Config) (*SQLiteStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for SQLite storage")
	}

	if err := ensureSQLiteDir(config.ConnectionString); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{
		db: db,
	}, nil
}

// ensureSQLiteDir creates the parent directory of a file DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// SaveLead inserts a lead and sets its ID
func (ss *SQLiteStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	prepareLead(lead)

	res, err := ss.db.ExecContext(ctx,
		`INSERT INTO leads (name, email, message, remote_ip, created_at) VALUES (?, ?, ?, ?, ?)`,
		lead.Name, lead.Email, lead.Message, lead.RemoteIP, formatTime(lead.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lead id: %w", err)
	}
	lead.ID = id
	return nil
}

// GetLead retrieves a lead by its ID
func (ss *SQLiteStorage) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, name, email, message, remote_ip, created_at FROM leads WHERE id = ?`, id)

	lead, err := scanSQLiteLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads newest first
func (ss *SQLiteStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := ss.db.QueryContext(ctx,
		`SELECT id, name, email, message, remote_ip, created_at FROM leads ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// CountLeads returns the number of stored leads
func (ss *SQLiteStorage) CountLeads(ctx context.Context) (int, error) {
	var n int
	if err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// Ping verifies the database connection
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the storage connection
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row rowScanner) (*models.Lead, error) {
	var (
		lead      models.Lead
		createdAt string
	)
	if err := row.Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Message, &lead.RemoteIP, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	lead.CreatedAt = t
	return &lead, nil
}
