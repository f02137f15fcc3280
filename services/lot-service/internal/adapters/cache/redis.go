package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/go-redis/redis/v8"
)

// RedisCache реализация CachePort поверх Redis
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(ctx context.Context, host string, port int, password string, db int, prefix string) (interfaces.CachePort, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, prefix: prefix}, nil
}

func (r *RedisCache) buildKey(key string) string {
	if r.prefix != "" {
		return r.prefix + ":" + key
	}
	return key
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.buildKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.ErrCacheMiss
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, r.buildKey(key), value, expiration).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.buildKey(key)).Err()
}

func (r *RedisCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	val, err := r.client.IncrBy(ctx, r.buildKey(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("ошибка при увеличении счетчика %s: %w", key, err)
	}
	return val, nil
}

// unlockScript удаляет ключ блокировки только при совпадении владельца
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock реализует блокировку через SET NX с TTL; значение ключа хранит владельца
func (r *RedisCache) Lock(ctx context.Context, key, token string, expiration time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.buildKey("lock:"+key), token, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка при получении блокировки %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisCache) Unlock(ctx context.Context, key, token string) error {
	deleted, err := unlockScript.Run(ctx, r.client, []string{r.buildKey("lock:" + key)}, token).Int64()
	if err != nil {
		return fmt.Errorf("ошибка при снятии блокировки %s: %w", key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("блокировка %s: %w", key, errors.ErrLockNotHeld)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
