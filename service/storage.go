package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/janpow77/flowinvoice-sub001/config"
)

// ErrKeyNotFound is returned by Storage.Get for missing or expired keys
var ErrKeyNotFound = errors.New("storage: key not found")

// Storage is the small key/value abstraction behind the session token, user
// preferences and the document cache.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewStorage builds the backend selected in the config
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "redis":
		return NewRedisStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStorage keeps keys in process memory
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrKeyNotFound
	}
	if s.expired(e) {
		s.dropExpired(key)
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (s *MemoryStorage) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// dropExpired deletes key only if the entry is still expired under the write
// lock. A Set that landed after the read keeps its value.
func (s *MemoryStorage) dropExpired(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && s.expired(e) {
		delete(s.entries, key)
	}
}

func (s *MemoryStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// RedisStorage keeps keys in redis under a common prefix
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(cfg *config.StorageConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis storage initialized", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return &RedisStorage{client: client, prefix: "flowaudit:"}, nil
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the redis connection pool
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
