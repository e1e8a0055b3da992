package storage

import (
	"context"
	"time"

	"intake/internal/models"
)

// Storage defines the interface for lead persistence and retrieval.
// It provides a clean abstraction that can be implemented by different backends
// such as JSON files or databases.
type Storage interface {
	// SaveLead inserts a lead and sets its ID. CreatedAt is set when zero.
	SaveLead(ctx context.Context, lead *models.Lead) error

	// GetLead retrieves a lead by its ID
	GetLead(ctx context.Context, id int64) (*models.Lead, error)

	// ListLeads returns leads newest first
	ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error)

	// CountLeads returns the total number of stored leads
	CountLeads(ctx context.Context) (int, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}

// Config holds configuration for storage backends
type Config struct {
	// Type specifies the storage backend type (json, memory, sqlite, postgres)
	Type string `json:"type" yaml:"type"`

	// Path is used for file-based storage backends
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ConnectionString is used for database backends
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	// MaxOpenConns caps the database connection pool
	MaxOpenConns int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`

	// CacheTTL specifies how long to cache data in memory
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}
