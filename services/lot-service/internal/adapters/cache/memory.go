package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache реализация CachePort в памяти процесса
// Используется, когда Redis отключен в конфигурации
type MemoryCache struct {
	store *gocache.Cache
	mu    sync.Mutex
}

// NewMemoryCache создает кэш в памяти с указанным интервалом очистки
func NewMemoryCache(cleanupInterval time.Duration) interfaces.CachePort {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func ttl(expiration time.Duration) time.Duration {
	if expiration <= 0 {
		return gocache.NoExpiration
	}
	return expiration
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := m.store.Get(key)
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, errors.ErrCacheMiss
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)
	m.store.Set(key, data, ttl(expiration))
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Increment хранит счетчики как int64; go-cache не умеет создавать ключ при IncrementInt64
func (m *MemoryCache) Increment(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.Get(key); !ok {
		m.store.Set(key, delta, gocache.NoExpiration)
		return delta, nil
	}
	return m.store.IncrementInt64(key, delta)
}

// Lock использует Add, который завершается ошибкой, если ключ уже существует
func (m *MemoryCache) Lock(_ context.Context, key, token string, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Add("lock:"+key, token, ttl(expiration)); err != nil {
		return false, nil
	}
	return true, nil
}

// Unlock сравнивает владельца и удаляет ключ под одним мьютексом с Lock
func (m *MemoryCache) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.store.Get("lock:" + key)
	if !ok || owner != token {
		return fmt.Errorf("блокировка %s: %w", key, errors.ErrLockNotHeld)
	}
	m.store.Delete("lock:" + key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
