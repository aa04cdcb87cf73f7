// Package schedule runs periodic tasks on a cron clock.
//
// Usage:
//
//	s := schedule.New()
//	s.Cron("*/5 * * * *").Name("sales.sweep").WithoutOverlapping().Run(sweep)
//	s.Every(time.Hour).Name("rate.evict").Run(evict)
//
//	s.Start(ctx) // blocks until ctx is cancelled and running tasks return
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/storefront-go/storefront/pkg/logger"
)

// Task is the function signature for a scheduled task. ctx is cancelled
// when the scheduler stops.
type Task func(ctx context.Context) error

// Entry describes a registered task for CLI display.
type Entry struct {
	Name string
	Spec string
	Next time.Time
}

// Scheduler owns a cron instance and the tasks registered on it.
type Scheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	base    context.Context
	entries map[string]registered
}

type registered struct {
	id   cron.EntryID
	spec string
	task Task
}

// New creates a scheduler whose jobs recover from panics and log through
// pkg/logger.
func New() *Scheduler {
	log := cronLogger{}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log))),
		base:    context.Background(),
		entries: make(map[string]registered),
	}
}

// ─── Fluent builder ───────────────────────────────────────────────────────────

// Schedule is a fluent builder for a single task before it is registered.
type Schedule struct {
	s         *Scheduler
	spec      string
	name      string
	noOverlap bool
}

// Cron schedules with a standard 5-field expression (min hour dom mon dow)
// or a descriptor such as "@hourly".
func (s *Scheduler) Cron(spec string) *Schedule {
	return &Schedule{s: s, spec: spec}
}

// Every schedules the task at a fixed interval.
func (s *Scheduler) Every(d time.Duration) *Schedule {
	return &Schedule{s: s, spec: "@every " + d.String()}
}

// EveryMinute schedules the task to run once a minute.
func (s *Scheduler) EveryMinute() *Schedule { return s.Cron("* * * * *") }

// Name gives the task an identifier for logging and RunNow.
func (b *Schedule) Name(id string) *Schedule {
	b.name = id
	return b
}

// WithoutOverlapping skips a run while the previous one is still executing.
func (b *Schedule) WithoutOverlapping() *Schedule {
	b.noOverlap = true
	return b
}

// Run registers the task. The spec is parsed here, so a bad expression
// fails at boot rather than silently never firing.
func (b *Schedule) Run(task Task) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	name := b.name
	if name == "" {
		name = fmt.Sprintf("task-%d", len(s.entries)+1)
	}
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("schedule: task %q already registered", name)
	}

	var job cron.Job = cron.FuncJob(func() { s.invoke(name, task) })
	if b.noOverlap {
		job = cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(job)
	}

	id, err := s.cron.AddJob(b.spec, job)
	if err != nil {
		return fmt.Errorf("schedule: task %q: invalid spec %q: %w", name, b.spec, err)
	}
	s.entries[name] = registered{id: id, spec: b.spec, task: task}
	return nil
}

// ─── Lifecycle ────────────────────────────────────────────────────────────────

// Start runs the scheduler until ctx is cancelled, then waits for running
// tasks to return.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.cron.Start()
	logger.Info("schedule: scheduler started", "tasks", len(s.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	logger.Info("schedule: scheduler stopped")
}

// RunNow executes a registered task synchronously, outside the clock.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	reg, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("schedule: unknown task %q", name)
	}
	return reg.task(ctx)
}

// Entries lists registered tasks sorted by name. Next is zero until the
// scheduler has started.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, reg := range s.entries {
		out = append(out, Entry{Name: name, Spec: reg.spec, Next: s.cron.Entry(reg.id).Next})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) invoke(name string, task Task) {
	s.mu.Lock()
	ctx := s.base
	s.mu.Unlock()

	start := time.Now()
	log := logger.WithCtx(ctx).With("task", name)
	log.Debug("schedule: running task")
	if err := task(ctx); err != nil {
		log.Error("schedule: task failed", "error", err, "duration", time.Since(start))
		return
	}
	log.Debug("schedule: task finished", "duration", time.Since(start))
}

// cronLogger adapts pkg/logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
