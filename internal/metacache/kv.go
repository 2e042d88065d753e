package metacache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// KV persists whole values per (owner, key). A single Set is atomic; there is
// no coordination across keys or writers.
type KV interface {
	Get(ctx context.Context, owner, key string) ([]byte, bool, error)
	Set(ctx context.Context, owner, key string, value []byte) error
	Delete(ctx context.Context, owner string, keys ...string) error
	DeletePrefix(ctx context.Context, owner, prefix string) error
}

type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[owner][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(ctx context.Context, owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[owner] == nil {
		m.values[owner] = make(map[string][]byte)
	}
	m.values[owner][key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, owner string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values[owner], k)
	}
	return nil
}

func (m *MemoryKV) DeletePrefix(ctx context.Context, owner, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values[owner] {
		if strings.HasPrefix(k, prefix) {
			delete(m.values[owner], k)
		}
	}
	return nil
}

// PostgresKV stores values in the metadata_cache table.
type PostgresKV struct {
	db *sql.DB
}

func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

func (p *PostgresKV) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT value FROM metadata_cache
		WHERE owner_id = $1 AND key = $2
	`, owner, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, owner, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO metadata_cache (owner_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, owner, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (p *PostgresKV) Delete(ctx context.Context, owner string, keys ...string) error {
	for _, key := range keys {
		if _, err := p.db.ExecContext(ctx,
			"DELETE FROM metadata_cache WHERE owner_id = $1 AND key = $2",
			owner, key,
		); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

func (p *PostgresKV) DeletePrefix(ctx context.Context, owner, prefix string) error {
	_, err := p.db.ExecContext(ctx,
		"DELETE FROM metadata_cache WHERE owner_id = $1 AND starts_with(key, $2)",
		owner, prefix,
	)
	if err != nil {
		return fmt.Errorf("failed to delete keys with prefix %s: %w", prefix, err)
	}
	return nil
}
