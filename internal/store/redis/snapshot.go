// Package redis persists the last successful sync as a snapshot so a restart
// can serve a warm working set without an upstream fetch.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nsmith5/marksync/internal/domain"
)

const (
	// KeySnapshot holds the serialized working set of the last successful sync.
	KeySnapshot = "marksync:snapshot"

	// DefaultSnapshotTTL bounds how long a stored snapshot survives without
	// a successful sync refreshing it.
	DefaultSnapshotTTL = 48 * time.Hour
)

// Snapshot is the persisted form of a completed sync.
type Snapshot struct {
	Records  []domain.BookmarkRecord `json:"records"`
	SyncedAt time.Time               `json:"syncedAt"`
}

// Store handles snapshot persistence in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a snapshot store. A non-positive ttl falls back to the
// default.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Store{client: client, ttl: ttl}
}

// SaveSnapshot stores the working set of a completed sync.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, KeySnapshot, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the stored snapshot.
// Returns (nil, nil) when no snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, KeySnapshot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// DeleteSnapshot removes the stored snapshot.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	if err := s.client.Del(ctx, KeySnapshot).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
