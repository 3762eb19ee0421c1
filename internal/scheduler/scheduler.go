// Package scheduler runs background tasks on priority-tiered worker pools.
//
// Oracle calls and persistence run here so the keystroke-ingestion path
// never blocks on them. Each tier has its own concurrency ceiling and a
// bounded queue; a full queue rejects the task instead of blocking the
// caller. A synchronous escape hatch exists for sub-millisecond work that
// must complete before the caller proceeds.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Tier is a task priority tier.
type Tier int

const (
	// TierHigh is for latency-sensitive work feeding an open decision.
	TierHigh Tier = iota
	// TierNormal is for oracle lookups that warm caches.
	TierNormal
	// TierLow is for persistence and other housekeeping.
	TierLow

	tierCount
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	default:
		return "invalid"
	}
}

// Task is a unit of background work. The context is cancelled on shutdown.
type Task func(ctx context.Context)

// Config sets per-tier concurrency ceilings and queue depths.
type Config struct {
	HighWorkers   int
	NormalWorkers int
	LowWorkers    int
	QueueDepth    int
}

// DefaultConfig returns the standard 2/4/8 tier ceilings.
func DefaultConfig() Config {
	return Config{
		HighWorkers:   2,
		NormalWorkers: 4,
		LowWorkers:    8,
		QueueDepth:    64,
	}
}

var (
	// ErrQueueFull is returned when a tier's queue is at capacity.
	ErrQueueFull = errors.New("scheduler: queue full")

	// ErrStopped is returned after Shutdown.
	ErrStopped = errors.New("scheduler: stopped")
)

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Rejected  uint64
	Pending   int
}

type pool struct {
	queue   chan Task
	workers int
}

// Scheduler owns the tiered pools.
type Scheduler struct {
	pools [tierCount]*pool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	submitted atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a scheduler. Zero config fields fall back to defaults.
func New(cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.HighWorkers <= 0 {
		cfg.HighWorkers = def.HighWorkers
	}
	if cfg.NormalWorkers <= 0 {
		cfg.NormalWorkers = def.NormalWorkers
	}
	if cfg.LowWorkers <= 0 {
		cfg.LowWorkers = def.LowWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = def.QueueDepth
	}

	s := &Scheduler{}
	workers := [tierCount]int{cfg.HighWorkers, cfg.NormalWorkers, cfg.LowWorkers}
	for i := range s.pools {
		s.pools[i] = &pool{
			queue:   make(chan Task, cfg.QueueDepth),
			workers: workers[i],
		}
	}
	return s
}

// Start launches the worker goroutines.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, p := range s.pools {
		for i := 0; i < p.workers; i++ {
			s.wg.Add(1)
			go s.worker(p)
		}
	}
}

func (s *Scheduler) worker(p *pool) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-p.queue:
			task(s.ctx)
			s.completed.Add(1)
		}
	}
}

// Submit enqueues a task on the given tier without blocking. A full queue
// or a stopped scheduler rejects the task.
func (s *Scheduler) Submit(tier Tier, task Task) error {
	if tier < 0 || tier >= tierCount {
		tier = TierNormal
	}

	s.mu.Lock()
	if s.stopped || !s.started {
		s.mu.Unlock()
		s.rejected.Add(1)
		return ErrStopped
	}
	s.mu.Unlock()

	select {
	case s.pools[tier].queue <- task:
		s.submitted.Add(1)
		return nil
	default:
		s.rejected.Add(1)
		return ErrQueueFull
	}
}

// RunSync executes a task inline. Reserved for operations expected to be
// sub-millisecond, such as cache reads.
func (s *Scheduler) RunSync(ctx context.Context, task Task) {
	task(ctx)
}

// Shutdown stops accepting tasks, cancels the worker context, and waits
// for in-flight tasks up to the context deadline.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	pending := 0
	for _, p := range s.pools {
		pending += len(p.queue)
	}
	return Stats{
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
		Rejected:  s.rejected.Load(),
		Pending:   pending,
	}
}
