// Package redisstore persists match snapshots in Redis. Snapshots are small
// and overwritten on every accepted action, so a key-per-match layout with a
// liberal TTL keeps the store self-cleaning.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bigtwo/internal/config"
	"bigtwo/internal/ports"
)

// snapshotTTL covers any realistic match duration; an abandoned match's
// snapshot expires on its own.
const snapshotTTL = 24 * time.Hour

const keyPrefix = "bigtwo:snapshot:"

// Store implements ports.SnapshotStore on Redis.
type Store struct {
	client *redis.Client
}

// Connect opens the Redis client and verifies the connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Save(ctx context.Context, snap ports.MatchSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.client.Set(ctx, keyPrefix+snap.MatchID, data, snapshotTTL).Err()
}

func (s *Store) Load(ctx context.Context, matchID string) (ports.MatchSnapshot, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+matchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.MatchSnapshot{}, false, nil
	}
	if err != nil {
		return ports.MatchSnapshot{}, false, err
	}
	var snap ports.MatchSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ports.MatchSnapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *Store) Delete(ctx context.Context, matchID string) error {
	return s.client.Del(ctx, keyPrefix+matchID).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
