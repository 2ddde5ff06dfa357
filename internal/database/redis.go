package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bidforecast/server/internal/history"
	"bidforecast/server/internal/models"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string

	// Optimistic transaction attempts before Update gives up
	MaxRetries int
}

// RedisStore keeps listing history as one JSON document per listing
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "history:"
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}

	return &RedisStore{client: client, prefix: prefix, maxRetries: retries}, nil
}

func (s *RedisStore) key(listingID string) string {
	return s.prefix + listingID
}

// Get returns the stored history of one listing
func (s *RedisStore) Get(ctx context.Context, listingID string) (*models.HistoryEntry, error) {
	val, err := s.client.Get(ctx, s.key(listingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.StoreUnavailable("redis get", err)
	}
	return decodeEntry(val)
}

// Update applies fn under WATCH so a concurrent writer on the same key forces a retry
func (s *RedisStore) Update(ctx context.Context, listingID string, fn history.UpdateFunc) (*models.HistoryEntry, error) {
	key := s.key(listingID)

	var (
		result *models.HistoryEntry
		fnErr  error
	)
	txf := func(tx *redis.Tx) error {
		var current *models.HistoryEntry
		val, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			current, err = decodeEntry(val)
			if err != nil {
				return err
			}
		case errors.Is(err, redis.Nil):
		default:
			return err
		}

		next, err := fn(current)
		if err != nil {
			fnErr = err
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		now := time.Now()
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		next.UpdatedAt = now
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if fnErr != nil {
			return nil, fnErr
		}
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, models.StoreUnavailable("redis update", err)
	}

	return nil, models.StoreUnavailable("redis update", fmt.Errorf("key %s changed during %d attempts", key, s.maxRetries))
}

// Ping checks that Redis answers within the context deadline
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeEntry(val []byte) (*models.HistoryEntry, error) {
	var entry models.HistoryEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("decode history entry: %w", err)
	}
	return &entry, nil
}
