package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
// Реализации: Redis для нескольких реплик и go-cache для одиночного процесса
type CachePort interface {
	// Get получает значение из кэша по ключу
	// Возвращает errors.ErrCacheMiss, если значение не найдено
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия
	// Если expiration равно 0, срок действия не устанавливается
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значение из кэша по ключу
	Delete(ctx context.Context, key string) error

	// Increment увеличивает числовое значение ключа на delta
	// Если ключ не существует, он будет создан со значением delta
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Lock пытается получить блокировку с указанным ключом от имени владельца token
	// Возвращает true, если блокировка получена
	Lock(ctx context.Context, key, token string, expiration time.Duration) (bool, error)

	// Unlock освобождает блокировку, только если она все еще принадлежит token
	// Иначе возвращает errors.ErrLockNotHeld и ничего не удаляет
	Unlock(ctx context.Context, key, token string) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
