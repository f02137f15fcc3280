package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

var (
	ErrQueueFull     = errors.New("copy queue is full")
	ErrRunnerStopped = errors.New("copy runner is stopped")
)

// JobRunner пул воркеров для операций копирования
// Обработчик запроса только ставит задачу в очередь и ждет результат
type JobRunner struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	logger  interfaces.LoggerPort
}

// NewJobRunner запускает workers воркеров с очередью размера queueSize
func NewJobRunner(workers, queueSize int, logger interfaces.LoggerPort) *JobRunner {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	r := &JobRunner{
		tasks:  make(chan func(), queueSize),
		logger: logger,
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker(i)
	}
	return r
}

func (r *JobRunner) worker(id int) {
	defer r.wg.Done()
	for task := range r.tasks {
		r.run(id, task)
	}
}

func (r *JobRunner) run(id int, task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Паника в задаче копирования",
				interfaces.LogField{Key: "worker", Value: id},
				interfaces.LogField{Key: "panic", Value: fmt.Sprint(rec)},
			)
		}
	}()
	task()
}

// Submit ставит задачу в очередь без блокировки
func (r *JobRunner) Submit(task func()) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return ErrRunnerStopped
	}

	select {
	case r.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown перестает принимать задачи и ждет завершения уже поставленных
func (r *JobRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.tasks)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JobStore хранит записи асинхронных задач копирования в кэше
type JobStore struct {
	cache interfaces.CachePort
	ttl   time.Duration
}

// NewJobStore создает новый экземпляр JobStore
func NewJobStore(cache interfaces.CachePort, ttl time.Duration) *JobStore {
	return &JobStore{cache: cache, ttl: ttl}
}

func jobKey(id string) string {
	return "copy-job:" + id
}

// Save сохраняет запись задачи
func (s *JobStore) Save(ctx context.Context, job *models.CopyJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal copy job: %w", err)
	}
	if err := s.cache.Set(ctx, jobKey(job.ID), data, s.ttl); err != nil {
		return fmt.Errorf("failed to store copy job %s: %w", job.ID, err)
	}
	return nil
}

// Get возвращает запись задачи или perrors.ErrNotFound
func (s *JobStore) Get(ctx context.Context, id string) (*models.CopyJob, error) {
	data, err := s.cache.Get(ctx, jobKey(id))
	if err != nil {
		if errors.Is(err, perrors.ErrCacheMiss) {
			return nil, fmt.Errorf("copy job %s: %w", id, perrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load copy job %s: %w", id, err)
	}

	var job models.CopyJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode copy job %s: %w", id, err)
	}
	return &job, nil
}
