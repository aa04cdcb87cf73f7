// Package queue runs background jobs for the storefront.
//
// Usage:
//
//	type ResumeSale struct{ SaleID uint }
//	func (j *ResumeSale) Handle(ctx context.Context) error { ... }
//
//	q := queue.NewManager(queue.NewMemoryDriver(), queue.WithMaxRetry(3))
//	q.Register("sales.resume", func() queue.Job { return &ResumeSale{} })
//	q.Dispatch(ctx, "sales.resume", &ResumeSale{SaleID: 7})
//	q.Start(ctx, 4)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"

	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Jobs are JSON-encoded
// on dispatch, so only exported fields survive the trip.
type Job interface {
	Handle(ctx context.Context) error
}

// FailedJob holds a job that exhausted its retries.
type FailedJob struct {
	Name     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is available or ctx ends. A nil payload with
	// a nil error means "nothing yet, poll again".
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers that can hold a job until later.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

const drainWait = 200 * time.Millisecond

// ErrUnknownJob is returned by Dispatch for a name nobody registered.
var ErrUnknownJob = errors.New("queue: unknown job")

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	maxRetry int
	backoff  func(attempt int) time.Duration
	store    *gorm.DB

	pool *ants.Pool
	wg   sync.WaitGroup
}

type Option func(*Manager)

// WithMaxRetry sets how many times a failing job is attempted in total.
func WithMaxRetry(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxRetry = n
		}
	}
}

// WithBackoff replaces the linear one-second-per-attempt backoff.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(m *Manager) { m.backoff = fn }
}

// WithFailedJobStore persists exhausted jobs to the failed_jobs table.
func WithFailedJobStore(db *gorm.DB) Option {
	return func(m *Manager) { m.store = db }
}

func NewManager(driver Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:   driver,
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (m *Manager) encode(name string, job Job) ([]byte, error) {
	m.mu.RLock()
	_, ok := m.registry[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

// Dispatch pushes job onto the queue immediately.
func (m *Manager) Dispatch(ctx context.Context, name string, job Job) error {
	env, err := m.encode(name, job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, env)
}

// DispatchAfter pushes job after delay. Drivers that support delayed
// delivery hold it server-side; otherwise a timer re-dispatches in-process.
func (m *Manager) DispatchAfter(ctx context.Context, name string, job Job, delay time.Duration) error {
	env, err := m.encode(name, job)
	if err != nil {
		return err
	}
	if d, ok := m.driver.(DelayedDriver); ok {
		return d.PushDelayed(ctx, env, delay)
	}
	time.AfterFunc(delay, func() {
		if err := m.driver.Push(context.Background(), env); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", name, "error", err)
		}
	})
	return nil
}

// Start pulls jobs until ctx ends and runs them on a pool of n goroutines.
// It returns once the puller is running; Wait blocks until it has drained.
func (m *Manager) Start(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	pool, err := ants.NewPool(n)
	if err != nil {
		return fmt.Errorf("queue: create pool: %w", err)
	}
	m.pool = pool

	m.wg.Add(1)
	go m.pull(ctx)

	logger.Info("queue: workers started", "count", n)
	return nil
}

// Wait blocks until the puller has stopped and running jobs have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
	if m.pool != nil {
		_ = m.pool.ReleaseTimeout(30 * time.Second)
	}
}

func (m *Manager) pull(ctx context.Context) {
	defer m.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			sleep(ctx, 500*time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		m.wg.Add(1)
		// Submit blocks while every worker is busy, which throttles Pop.
		if err := m.pool.Submit(func() {
			defer m.wg.Done()
			m.process(ctx, raw)
		}); err != nil {
			m.wg.Done()
			logger.Error("queue: submit failed", "error", err)
		}
	}
}

// Drain runs queued jobs on the calling goroutine until the driver has had
// nothing ready for drainWait, and reports how many ran. One-shot commands
// use it instead of Start.
func (m *Manager) Drain(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		pctx, cancel := context.WithTimeout(ctx, drainWait)
		raw, err := m.driver.Pop(pctx)
		cancel()
		if err != nil || raw == nil {
			return n
		}
		m.process(ctx, raw)
		n++
	}
	return n
}

// Process decodes and runs one raw envelope synchronously. Used by workers
// and handy in tests.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	m.process(ctx, raw)
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env.Type)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, name string) {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed", "type", name, "attempt", attempt, "error", err)
			if attempt < m.maxRetry && !sleep(ctx, m.backoff(attempt)) {
				break
			}
			continue
		}
		metrics.RecordQueueJob(name, "success", start)
		logger.Info("queue: job processed", "type", name)
		return
	}

	metrics.RecordQueueJob(name, "failed", start)
	m.persistFailed(ctx, job, name, lastErr, m.maxRetry)
	logger.Error("queue: job exhausted retries", "type", name, "error", lastErr)
}

// FailedJobs returns the jobs that failed in this process.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}

// sleep waits for d or until ctx ends; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
