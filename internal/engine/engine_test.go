package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"layoutd/internal/cache"
	"layoutd/internal/classifier"
	"layoutd/internal/dict"
	"layoutd/internal/keyboard"
	"layoutd/internal/layout"
	"layoutd/internal/learning"
	"layoutd/internal/scheduler"
	"layoutd/internal/segmenter"
)

type recordingCorrector struct {
	mu      sync.Mutex
	applied []Correction
}

func (r *recordingCorrector) Apply(c Correction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, c)
	return nil
}

func (r *recordingCorrector) corrections() []Correction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Correction, len(r.applied))
	copy(out, r.applied)
	return out
}

type testEngine struct {
	eng      *Engine
	switcher *keyboard.FakeSwitcher
	rec      *recordingCorrector
	store    *learning.Store
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sw := keyboard.NewFakeSwitcher(layout.LangEnglish)
	rec := &recordingCorrector{}
	store := learning.NewStore(learning.DefaultConfig(), nil, log)
	eng := New(cfg, Deps{
		Registry:   layout.NewRegistry(),
		Segmenter:  segmenter.New(segmenter.Config{}),
		Classifier: classifier.New(classifier.DefaultConfig(), nil, nil, nil, nil, nil, log),
		Switcher:   sw,
		Corrector:  rec,
		Learning:   store,
		Log:        log,
	})
	return &testEngine{eng: eng, switcher: sw, rec: rec, store: store}
}

func (te *testEngine) typeString(s string) {
	for _, r := range s {
		te.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{
			Rune:      r,
			Timestamp: time.Now(),
		})
	}
}

func TestCorrectsWrongLayoutWord(t *testing.T) {
	te := newTestEngine(t, Config{})

	// "ghbdtn" is "привет" typed with the US layout active; the trailing
	// punctuation must survive the replacement untouched.
	te.typeString("ghbdtn!")

	corrs := te.rec.corrections()
	if len(corrs) != 1 {
		t.Fatalf("corrections = %d, want 1", len(corrs))
	}
	c := corrs[0]
	if c.From != layout.LangEnglish || c.To != layout.LangRussian {
		t.Errorf("correction %v -> %v, want english -> russian", c.From, c.To)
	}
	if c.Replacement != "привет!" {
		t.Errorf("replacement = %q, want привет!", c.Replacement)
	}
	if cur, _ := te.switcher.Current(); cur != layout.LangRussian {
		t.Errorf("active layout = %v, want russian", cur)
	}
	if got := te.eng.State(); got != StatePostSwitch {
		t.Errorf("state = %v, want post-switch", got)
	}
	if st := te.eng.Stats(); st.Switches != 1 || st.WordsProcessed != 1 {
		t.Errorf("stats = %+v, want 1 switch, 1 word", st)
	}
}

func TestCorrectLayoutLeftAlone(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("hello ")

	if st := te.eng.Stats(); st.Switches != 0 {
		t.Errorf("switches = %d, want 0 for a correctly-typed word", st.Switches)
	}
	if got := te.eng.State(); got != StateNormal {
		t.Errorf("state = %v, want normal", got)
	}
}

func TestSuppressionAbsorbsExpectedLanguage(t *testing.T) {
	te := newTestEngine(t, Config{SuppressionWindow: time.Minute, SuppressionWords: 5})

	te.typeString("ghbdtn ") // corrected, window opens expecting Russian
	te.typeString("ghjcnj ") // "просто": same wrong-layout habit, inside the window

	st := te.eng.Stats()
	if st.Switches != 1 {
		t.Fatalf("switches = %d, want 1 (second verdict suppressed)", st.Switches)
	}
	if st.Suppressed != 1 {
		t.Errorf("suppressed = %d, want 1", st.Suppressed)
	}
}

func TestSuppressionWordBudgetCloses(t *testing.T) {
	te := newTestEngine(t, Config{SuppressionWindow: time.Minute, SuppressionWords: 1})

	te.typeString("ghbdtn ") // switch #1
	te.typeString("ghjcnj ") // suppressed, consumes the one-word budget
	te.typeString("yfxfkj ") // budget gone, corrected again

	st := te.eng.Stats()
	if st.Switches != 2 {
		t.Errorf("switches = %d, want 2", st.Switches)
	}
	if st.Suppressed != 1 {
		t.Errorf("suppressed = %d, want 1", st.Suppressed)
	}
}

func TestManualOverrideClearsWindowAndRecordsRejection(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("ghbdtn ")
	te.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{LayoutShortcut: true})

	st := te.eng.Stats()
	if st.ManualOverrides != 1 || st.Rejections != 1 {
		t.Fatalf("overrides = %d, rejections = %d, want 1 and 1", st.ManualOverrides, st.Rejections)
	}
	if got := te.eng.State(); got != StateNormal {
		t.Errorf("state = %v, want normal after override", got)
	}

	// The window is gone: the same habit is corrected again immediately.
	te.typeString("ghjcnj ")
	if st := te.eng.Stats(); st.Switches != 2 {
		t.Errorf("switches = %d, want 2 after the window cleared", st.Switches)
	}
}

func TestRejectionHalvesLearnedWeight(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("ghbdtn ") // acceptance records russian weight 1.0
	te.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{LayoutShortcut: true})

	// "привет" is common vocabulary, so the rejection decays the mapping
	// without teaching the opposite language.
	lang, weight, ok := te.store.WordPreference("ghbdtn")
	if !ok || lang != layout.LangRussian {
		t.Fatalf("preference = %v %v, want russian retained", lang, ok)
	}
	if weight != 0.5 {
		t.Errorf("weight = %v, want 0.5", weight)
	}
}

func TestOverrideOutsideRejectionWindowIsNotRejection(t *testing.T) {
	te := newTestEngine(t, Config{RejectionWindow: time.Millisecond})

	te.typeString("ghbdtn ")
	time.Sleep(5 * time.Millisecond)
	te.eng.ManualOverride(time.Now())

	st := te.eng.Stats()
	if st.ManualOverrides != 1 {
		t.Fatalf("overrides = %d, want 1", st.ManualOverrides)
	}
	if st.Rejections != 0 {
		t.Errorf("rejections = %d, want 0 outside the window", st.Rejections)
	}
}

func TestShortWordRequiresTableMatch(t *testing.T) {
	te := newTestEngine(t, Config{})

	// "rjn" is "кот"; decisive pattern verdict, but at three runes the word
	// must be an exact short-table hit, and "кот" is not in it.
	te.typeString("rjn ")

	if st := te.eng.Stats(); st.Switches != 0 {
		t.Errorf("switches = %d, want 0 for an unlisted short word", st.Switches)
	}
}

func TestShortWordTableMatchCorrects(t *testing.T) {
	te := newTestEngine(t, Config{})

	// "vs" is "мы", which is in the Russian short-word table.
	te.typeString("vs ")

	corrs := te.rec.corrections()
	if len(corrs) != 1 {
		t.Fatalf("corrections = %d, want 1", len(corrs))
	}
	if corrs[0].Replacement != "мы" {
		t.Errorf("replacement = %q, want мы", corrs[0].Replacement)
	}
}

func TestSyntheticEventsNeverIngested(t *testing.T) {
	te := newTestEngine(t, Config{})

	for _, r := range "ghbdtn " {
		te.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{Rune: r, Synthetic: true})
	}

	if st := te.eng.Stats(); st.WordsProcessed != 0 {
		t.Errorf("words processed = %d, want 0 for synthetic input", st.WordsProcessed)
	}
}

func TestSecureFieldDiscardsBuffer(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("ghbdt")
	te.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{SecureField: true})
	te.typeString("n ")

	st := te.eng.Stats()
	if st.Switches != 0 {
		t.Errorf("switches = %d, want 0", st.Switches)
	}
	if st.WordsProcessed != 1 {
		t.Errorf("words processed = %d, want 1 (only the post-reset remainder)", st.WordsProcessed)
	}
}

func TestMixedAlphabetWordSkipped(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("приvet ")

	st := te.eng.Stats()
	if st.WordsProcessed != 1 {
		t.Fatalf("words processed = %d, want 1", st.WordsProcessed)
	}
	if st.Switches != 0 {
		t.Errorf("switches = %d, want 0 for a mixed-alphabet word", st.Switches)
	}
}

func TestSwitchFailureLeavesWordUncorrected(t *testing.T) {
	te := newTestEngine(t, Config{})
	te.switcher.FailNext = 99

	te.typeString("ghbdtn ")

	st := te.eng.Stats()
	if st.SwitchFailures != 1 {
		t.Errorf("switch failures = %d, want 1", st.SwitchFailures)
	}
	if st.Switches != 0 {
		t.Errorf("switches = %d, want 0", st.Switches)
	}
	if got := te.eng.State(); got != StateNormal {
		t.Errorf("state = %v, want normal after a failed switch", got)
	}
	if len(te.rec.corrections()) != 0 {
		t.Error("corrector must not run when the switch failed")
	}
}

func TestReconfigureAppliesNewThresholds(t *testing.T) {
	te := newTestEngine(t, Config{})

	te.typeString("ghbdtn ")
	if st := te.eng.Stats(); st.Switches != 1 {
		t.Fatalf("switches = %d, want 1 before reconfigure", st.Switches)
	}

	// Raise the length floor past six runes; the same habit no longer
	// qualifies.
	te.eng.Reconfigure(Config{MinWordLength: 7})
	te.eng.ManualOverride(time.Now()) // close the open window

	te.typeString("ghjcnj ")
	if st := te.eng.Stats(); st.Switches != 1 {
		t.Errorf("switches = %d, want 1 after raising the length floor", st.Switches)
	}
}

// reentrantCorrector responds to every injection by typing another
// wrong-layout word, alternating scripts so suppression never absorbs
// the follow-up. Each run of the pathological stream must terminate at
// the configured nesting bound.
type reentrantCorrector struct {
	eng     *Engine
	nesting int
	max     int
}

func (c *reentrantCorrector) Apply(corr Correction) error {
	c.nesting++
	if c.nesting > c.max {
		c.max = c.nesting
	}
	// Backstop so a broken bound cannot hang the test.
	if c.nesting < 10 {
		next := "ghbdtn "
		if corr.To == layout.LangRussian {
			next = "руддщ "
		}
		for _, r := range next {
			c.eng.HandleEvent(context.Background(), keyboard.CharacterEvent{
				Rune:      r,
				Timestamp: time.Now(),
			})
		}
	}
	c.nesting--
	return nil
}

func TestRecursionBoundHoldsAcrossRuns(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rc := &reentrantCorrector{}
	eng := New(Config{MaxRecursionDepth: 3}, Deps{
		Registry:   layout.NewRegistry(),
		Segmenter:  segmenter.New(segmenter.Config{}),
		Classifier: classifier.New(classifier.DefaultConfig(), nil, nil, nil, nil, nil, log),
		Switcher:   keyboard.NewFakeSwitcher(layout.LangEnglish),
		Corrector:  rc,
		Log:        log,
	})
	rc.eng = eng

	typeRun := func() {
		for _, r := range "ghbdtn " {
			eng.HandleEvent(context.Background(), keyboard.CharacterEvent{
				Rune:      r,
				Timestamp: time.Now(),
			})
		}
	}

	typeRun()
	if rc.max > 3 {
		t.Fatalf("nesting reached %d, want <= 3", rc.max)
	}
	if st := eng.Stats(); st.RecursionAborts != 1 {
		t.Fatalf("recursion aborts = %d, want 1", st.RecursionAborts)
	}

	// A second pathological stream must hit the same bound; a depth
	// counter left negative by the first abort would double it.
	rc.max = 0
	typeRun()
	if rc.max > 3 {
		t.Fatalf("second run nesting reached %d, want <= 3", rc.max)
	}
	if st := eng.Stats(); st.RecursionAborts != 2 {
		t.Errorf("recursion aborts = %d, want 2", st.RecursionAborts)
	}
}

// gateOracle blocks lookups until released, so tests can interleave typing
// with an in-flight deferred classification.
type gateOracle struct {
	inner   *dict.WordlistOracle
	started chan struct{}
	release chan struct{}
}

func (g *gateOracle) IsValidWord(ctx context.Context, word string, lang layout.Language) (bool, error) {
	g.started <- struct{}{}
	<-g.release
	return g.inner.IsValidWord(ctx, word, lang)
}

func (g *gateOracle) Suggestions(ctx context.Context, word string, lang layout.Language) ([]string, error) {
	return g.inner.Suggestions(ctx, word, lang)
}

// newDeferredEngine builds an engine whose only decisive signal for "sdqw"
// is the gated dictionary oracle, forcing the scheduler path.
func newDeferredEngine(t *testing.T) (*testEngine, *gateOracle, *scheduler.Scheduler) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	words := dict.NewWordlistOracle()
	words.AddWords(layout.LangEnglish, "hello")
	words.AddWords(layout.LangRussian, "ывйц")
	gate := &gateOracle{
		inner:   words,
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	oracle := dict.NewCachedOracle(gate,
		cache.New[string, bool]("validity", 64, time.Minute),
		cache.New[string, []string]("suggestions", 64, time.Minute),
		time.Minute)

	sched := scheduler.New(scheduler.Config{HighWorkers: 1, NormalWorkers: 1, LowWorkers: 1, QueueDepth: 8})
	sched.Start(context.Background())

	sw := keyboard.NewFakeSwitcher(layout.LangEnglish)
	rec := &recordingCorrector{}
	eng := New(Config{}, Deps{
		Registry:   layout.NewRegistry(),
		Segmenter:  segmenter.New(segmenter.Config{}),
		Classifier: classifier.New(classifier.DefaultConfig(), nil, oracle, nil, nil, nil, log),
		Switcher:   sw,
		Corrector:  rec,
		Scheduler:  sched,
		Log:        log,
	})
	return &testEngine{eng: eng, switcher: sw, rec: rec}, gate, sched
}

func waitStarted(t *testing.T, gate *gateOracle) {
	t.Helper()
	select {
	case <-gate.started:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred classification never reached the oracle")
	}
}

func shutdownSched(t *testing.T, sched *scheduler.Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sched.Shutdown(ctx); err != nil {
		t.Fatalf("scheduler shutdown: %v", err)
	}
}

func TestDeferredVerdictApplies(t *testing.T) {
	te, gate, sched := newDeferredEngine(t)

	te.typeString("sdqw ") // cheap stages abstain; oracle task queued
	waitStarted(t, gate)
	close(gate.release)
	shutdownSched(t, sched)

	corrs := te.rec.corrections()
	if len(corrs) != 1 {
		t.Fatalf("corrections = %d, want 1", len(corrs))
	}
	if corrs[0].Replacement != "ывйц" {
		t.Errorf("replacement = %q, want ывйц", corrs[0].Replacement)
	}
}

func TestSupersededVerdictDropped(t *testing.T) {
	te, gate, sched := newDeferredEngine(t)

	te.typeString("sdqw ") // oracle task queued and blocked
	waitStarted(t, gate)
	te.typeString("hello ") // newer word decided inline; the queue moved on
	close(gate.release)
	shutdownSched(t, sched)

	if st := te.eng.Stats(); st.Switches != 0 {
		t.Errorf("switches = %d, want 0 for a stale verdict", st.Switches)
	}
	if len(te.rec.corrections()) != 0 {
		t.Error("stale correction must not be applied")
	}
}
