package storage

import (
	"context"
	"errors"
	"fmt"

	"intake/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id         BIGSERIAL PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	email      VARCHAR(255) NOT NULL,
	message    VARCHAR(4000) NOT NULL,
	remote_ip  VARCHAR(64) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email);
`

// PostgresStorage implements the Storage interface using PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a new PostgreSQL storage instance and ensures the schema.
func NewPostgresStorage(config Config) (*PostgresStorage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required for PostgreSQL storage")
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if config.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(config.MaxOpenConns)
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// SaveLead inserts a lead and sets its ID.
func (ps *PostgresStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	prepareLead(lead)

	err := ps.pool.QueryRow(ctx,
		`INSERT INTO leads (name, email, message, remote_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		lead.Name, lead.Email, lead.Message, lead.RemoteIP, lead.CreatedAt,
	).Scan(&lead.ID)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by its ID.
func (ps *PostgresStorage) GetLead(ctx context.Context, id int64) (*models.Lead, error) {
	row := ps.pool.QueryRow(ctx,
		`SELECT id, name, email, message, remote_ip, created_at FROM leads WHERE id = $1`, id)

	lead, err := scanPgLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads newest first.
func (ps *PostgresStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	if offset < 0 {
		offset = 0
	}
	var limitArg any // NULL means no limit
	if limit > 0 {
		limitArg = limit
	}

	rows, err := ps.pool.Query(ctx,
		`SELECT id, name, email, message, remote_ip, created_at FROM leads
		 ORDER BY id DESC LIMIT $1 OFFSET $2`, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*models.Lead, 0)
	for rows.Next() {
		lead, err := scanPgLead(rows)
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

// CountLeads returns the number of stored leads.
func (ps *PostgresStorage) CountLeads(ctx context.Context) (int, error) {
	var n int64
	if err := ps.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return int(n), nil
}

// Ping verifies the database connection.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}

func scanPgLead(row pgx.Row) (*models.Lead, error) {
	var lead models.Lead
	if err := row.Scan(&lead.ID, &lead.Name, &lead.Email, &lead.Message, &lead.RemoteIP, &lead.CreatedAt); err != nil {
		return nil, err
	}
	lead.CreatedAt = lead.CreatedAt.UTC()
	return &lead, nil
}
