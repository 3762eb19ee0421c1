package cache

import (
	"context"
	"sync"
	"time"
)

// Sweepable is implemented by every cache the sweeper services.
type Sweepable interface {
	RemoveExpired() int
	Stats() Stats
}

// Sweeper periodically removes expired entries across all registered
// caches, so entries that are never looked up again still get reclaimed.
type Sweeper struct {
	mu       sync.Mutex
	caches   []Sweepable
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper creates a sweeper with the given interval.
func NewSweeper(interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{interval: interval}
}

// Register adds a cache to the sweep set.
func (s *Sweeper) Register(c Sweepable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = append(s.caches, c)
}

// Start begins the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepNow()
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SweepNow removes expired entries from every registered cache.
func (s *Sweeper) SweepNow() int {
	s.mu.Lock()
	caches := make([]Sweepable, len(s.caches))
	copy(caches, s.caches)
	s.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.RemoveExpired()
	}
	return total
}

// StatsAll returns a snapshot for every registered cache.
func (s *Sweeper) StatsAll() []Stats {
	s.mu.Lock()
	caches := make([]Sweepable, len(s.caches))
	copy(caches, s.caches)
	s.mu.Unlock()

	out := make([]Stats, 0, len(caches))
	for _, c := range caches {
		out = append(out, c.Stats())
	}
	return out
}
