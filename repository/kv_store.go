package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prism-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyValueStore persists small string values such as a reader's selection.
// Writes are last-writer-wins.
type KeyValueStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Remove deletes key; removing a missing key is not an error
	Remove(ctx context.Context, key string) error
}

// NewKeyValueStore picks the backend named by kvType
func NewKeyValueStore(kvType config.KVType, db *pgxpool.Pool, sqlitePath string) (KeyValueStore, error) {
	switch kvType {
	case config.KVTypePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres key-value store requires a database pool")
		}
		return NewPostgresKV(db), nil
	case config.KVTypeSQLite:
		return NewSQLiteKV(sqlitePath)
	case config.KVTypeMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown key-value store type: %s", kvType)
	}
}

// PostgresKV stores keys in the kv_store table
type PostgresKV struct {
	db *pgxpool.Pool
}

// NewPostgresKV creates a new Postgres-backed key-value store
func NewPostgresKV(db *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{db: db}
}

// Get retrieves a value by key
func (s *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(notFound(err), ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts a value
func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()`

	_, err := s.db.Exec(ctx, query, key, value)
	return err
}

// Remove deletes a key
func (s *PostgresKV) Remove(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// MemoryKV keeps keys in process memory
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryKV) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}
