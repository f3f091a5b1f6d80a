package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// MemoryBackend keeps settings in process memory. Nothing survives a restart
// unless the same backend value is reused.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Load(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryBackend) Save(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// FileBackend persists settings to a YAML file through viper.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend stores settings at path. The file and its directory are
// created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path reports the settings file location.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) Load(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, key := range v.AllKeys() {
		out[key] = v.GetString(key)
	}
	return out, nil
}

func (f *FileBackend) Save(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return err
	}
	v.Set(key, value)

	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func (f *FileBackend) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(f.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	return v, nil
}

// Repository is the slice of the Postgres store the settings need.
type Repository interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// RepositoryBackend adapts a Repository (the pgx store) to Backend.
type RepositoryBackend struct {
	repo Repository
}

// NewRepositoryBackend wraps repo.
func NewRepositoryBackend(repo Repository) *RepositoryBackend {
	return &RepositoryBackend{repo: repo}
}

func (r *RepositoryBackend) Load(ctx context.Context) (map[string]string, error) {
	return r.repo.ListSettings(ctx)
}

func (r *RepositoryBackend) Save(ctx context.Context, key, value string) error {
	return r.repo.UpsertSetting(ctx, key, value)
}

// hashClient is the subset of the redis client used by RedisBackend.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// DefaultRedisKey is the hash that holds the settings.
const DefaultRedisKey = "polyedge:settings"

// RedisBackend stores settings as fields of a single redis hash.
type RedisBackend struct {
	client hashClient
	key    string
}

// NewRedisBackend uses the hash at key, or DefaultRedisKey when key is empty.
func NewRedisBackend(client hashClient, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Load(ctx context.Context) (map[string]string, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", r.key, err)
	}
	return values, nil
}

func (r *RedisBackend) Save(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", r.key, err)
	}
	return nil
}

var (
	_ Backend    = (*MemoryBackend)(nil)
	_ Backend    = (*FileBackend)(nil)
	_ Backend    = (*RepositoryBackend)(nil)
	_ Backend    = (*RedisBackend)(nil)
	_ hashClient = (*redis.Client)(nil)
)
