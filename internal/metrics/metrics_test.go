package metrics

import (
	"sync"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewRegistry()

	c := r.Counter("words")
	c.Inc()
	c.Add(4)
	if got := c.Value(); got != 5 {
		t.Errorf("counter = %d, want 5", got)
	}

	g := r.Gauge("queue_depth")
	g.Set(3.5)
	if got := g.Value(); got != 3.5 {
		t.Errorf("gauge = %v, want 3.5", got)
	}
}

func TestSameNameReturnsSameMetric(t *testing.T) {
	r := NewRegistry()
	r.Counter("hits").Inc()
	r.Counter("hits").Inc()
	if got := r.Counter("hits").Value(); got != 2 {
		t.Errorf("counter = %d, want 2 (same instance)", got)
	}
}

func TestSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Counter("a").Add(3)
	r.Gauge("b").Set(1.5)

	snap := r.Snapshot()
	if snap.Counters["a"] != 3 {
		t.Errorf("counters = %v, want a=3", snap.Counters)
	}
	if snap.Gauges["b"] != 1.5 {
		t.Errorf("gauges = %v, want b=1.5", snap.Gauges)
	}
	if snap.Uptime < 0 {
		t.Errorf("uptime = %v, want non-negative", snap.Uptime)
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Counter("zeta")
	r.Gauge("alpha")
	r.Counter("mid")

	got := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestConcurrentCounter(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r.Counter("shared").Inc()
			}
		}()
	}
	wg.Wait()
	if got := r.Counter("shared").Value(); got != 8000 {
		t.Errorf("counter = %d, want 8000", got)
	}
}
