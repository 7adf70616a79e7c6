package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store persists a single Configuration. Load returns Defaults when nothing
// has been saved yet.
type Store interface {
	Load(ctx context.Context) (Configuration, error)
	Save(ctx context.Context, c Configuration) error
	Reset(ctx context.Context) (Configuration, error)
}

// MemoryStore keeps the configuration in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	cfg *Configuration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return Defaults(), nil
	}
	return s.cfg.Snapshot(), nil
}

func (s *MemoryStore) Save(_ context.Context, c Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := c.Snapshot()
	s.cfg = &snap
	return nil
}

func (s *MemoryStore) Reset(_ context.Context) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
	return Defaults(), nil
}

// FileStore keeps the configuration as a JSON document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Configuration{}, fmt.Errorf("config: reading %s: %w", s.path, err)
	}
	return decode(data)
}

func (s *FileStore) Save(_ context.Context, c Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	// atomic replace
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("config: replacing %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Reset(_ context.Context) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Configuration{}, fmt.Errorf("config: removing %s: %w", s.path, err)
	}
	return Defaults(), nil
}

// RedisStore keeps the configuration as a JSON string under one key.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a RedisStore using key, or StorageKey when key is
// empty.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = StorageKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Configuration, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Defaults(), nil
	}
	if err != nil {
		return Configuration{}, fmt.Errorf("config: redis get %s: %w", s.key, err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, c Configuration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("config: redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context) (Configuration, error) {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return Configuration{}, fmt.Errorf("config: redis del %s: %w", s.key, err)
	}
	return Defaults(), nil
}

// decode starts from Defaults so documents written by older versions pick
// up fields they did not know about.
func decode(data []byte) (Configuration, error) {
	c := Defaults()
	if err := json.Unmarshal(data, &c); err != nil {
		return Configuration{}, fmt.Errorf("config: decoding: %w", err)
	}
	return c, nil
}
