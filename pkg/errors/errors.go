package errors

import (
	"errors"
	"sort"
	"strings"
)

// ----------------- cache ------------------
var (
	ErrCacheMiss       = errors.New("cache miss")
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld возвращается из Unlock, если блокировка истекла и принадлежит другому владельцу
	ErrLockNotHeld = errors.New("lock is held by another owner")
)

// ----------------- marketplace ------------------
var (
	// ErrUnauthorized возвращается, если golden_key не принят маркетплейсом
	ErrUnauthorized = errors.New("marketplace rejected the credential token")
	// ErrSessionExpired возвращается, если сессия перестала быть действительной посреди операции
	ErrSessionExpired = errors.New("marketplace session expired")
	ErrNotFound       = errors.New("not found")
)

// ----------------- lot service ------------------
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrCopyInProgress = errors.New("copy operation is already running for this account")
)

// ValidationError описывает отказ маркетплейса принять форму лота
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error возвращает сообщение вида "field: message; field: message"
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return "marketplace rejected the lot"
		}
		return e.Message
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return strings.Join(parts, "; ")
}
