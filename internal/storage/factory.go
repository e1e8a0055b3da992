package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"intake/internal/models"
)

// openPingTimeout bounds the reachability check done right after opening.
const openPingTimeout = 5 * time.Second

// providers lists the lead store backends in the order they are documented.
var providers = []string{
	models.StorageTypeJSON,
	models.StorageTypeMemory,
	models.StorageTypePostgres,
	models.StorageTypeSQLite,
}

// Factory opens the lead store named by the storage section of the config.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create validates config, opens the backend and checks it answers a ping.
// A backend that opens but cannot be reached is closed before returning, so
// the caller never holds a half-initialised store.
func (f *Factory) Create(config models.StorageConfig) (Storage, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	storageConfig := Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
		CacheTTL:         config.CacheTTL,
	}

	var (
		store Storage
		err   error
	)
	switch config.Type {
	case models.StorageTypeJSON:
		store, err = NewJSONStorage(storageConfig)
	case models.StorageTypeMemory:
		store, err = NewMemoryStorage(storageConfig)
	case models.StorageTypePostgres:
		store, err = NewPostgresStorage(storageConfig)
	case models.StorageTypeSQLite:
		store, err = NewSQLiteStorage(storageConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s lead store: %w", config.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("%s lead store unreachable: %w", config.Type, err), store.Close())
	}

	slog.Info("Lead store ready", "type", config.Type)
	return store, nil
}

func (f *Factory) GetSupportedProviders() []string {
	return append([]string(nil), providers...)
}

// ValidateConfig checks that config names a known backend and carries the
// location that backend needs.
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	switch config.Type {
	case models.StorageTypeJSON:
		if config.Path == "" {
			return errors.New("path is required for JSON storage")
		}
	case models.StorageTypeMemory:
	case models.StorageTypePostgres, models.StorageTypeSQLite:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %q", config.Type)
	}
	return nil
}
