// Package engine turns per-word language verdicts into layout corrections.
//
// The engine owns the ingestion loop: capture events feed the segmenter,
// completed words go through the classifier, and verdicts that clear the
// thresholds become switch-and-retype actions. Its key correctness
// property is anti-oscillation: after the engine itself switches layouts
// it opens a suppression window during which words matching the expected
// language are treated as the user correctly continuing, not as text to
// re-correct. A manual layout shortcut clears the window from any state.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"layoutd/internal/classifier"
	"layoutd/internal/keyboard"
	"layoutd/internal/layout"
	"layoutd/internal/learning"
	"layoutd/internal/scheduler"
	"layoutd/internal/segmenter"
)

// State is the engine's correction state.
type State int

const (
	// StateNormal means words are evaluated normally.
	StateNormal State = iota
	// StateCorrecting means a correction is being applied right now.
	StateCorrecting
	// StatePostSwitch means a self-initiated switch just happened and
	// the suppression window is open.
	StatePostSwitch
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateCorrecting:
		return "correcting"
	case StatePostSwitch:
		return "post-switch"
	default:
		return "invalid"
	}
}

// Config tunes the decision thresholds.
type Config struct {
	// MinWordLength is the minimum rune count for correction, unless
	// the word matches a short-word table.
	MinWordLength int

	// LongWordLength is where the stricter confidence bar starts.
	LongWordLength int

	// ConfidenceShort is the bar for words below LongWordLength.
	ConfidenceShort float64

	// ConfidenceLong is the bar for words at or above LongWordLength.
	ConfidenceLong float64

	// SuppressionWindow is the time half of the suppression budget.
	SuppressionWindow time.Duration

	// SuppressionWords is the word-count half of the budget; whichever
	// is exhausted first closes the window.
	SuppressionWords int

	// RejectionWindow is how soon after a self-switch a manual override
	// counts as the user rejecting the correction.
	RejectionWindow time.Duration

	// MaxRecursionDepth bounds corrections triggered while a previous
	// correction is still being applied.
	MaxRecursionDepth int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinWordLength:     4,
		LongWordLength:    5,
		ConfidenceShort:   0.8,
		ConfidenceLong:    0.9,
		SuppressionWindow: 5 * time.Second,
		SuppressionWords:  5,
		RejectionWindow:   3 * time.Second,
		MaxRecursionDepth: 3,
	}
}

// SuppressionState tracks the window opened by a self-initiated switch.
// Single-writer: only the engine mutates it. A new self-switch replaces
// the old window, never stacks.
type SuppressionState struct {
	LastSwitch       time.Time
	SelfInitiated    bool
	Expected         layout.Language
	WordsSinceSwitch int
}

// Correction describes a switch-and-retype action.
type Correction struct {
	Token       segmenter.WordToken
	From        layout.Language
	To          layout.Language
	Replacement string // corrected word with punctuation reattached
	Verdict     classifier.Verdict
}

// Corrector applies the text replacement once the layout has switched.
// The OS keystroke-injection mechanism is external; tests use fakes.
type Corrector interface {
	Apply(corr Correction) error
}

// NopCorrector performs no injection; the layout switch alone still helps.
type NopCorrector struct{}

// Apply does nothing.
func (NopCorrector) Apply(Correction) error { return nil }

// Stats is a snapshot of engine counters.
type Stats struct {
	WordsProcessed  uint64
	Switches        uint64
	SwitchFailures  uint64
	Suppressed      uint64
	ManualOverrides uint64
	Rejections      uint64
	RecursionAborts uint64
	State           string
}

// Deps carries the engine's collaborators.
type Deps struct {
	Registry   *layout.Registry
	Segmenter  *segmenter.Segmenter
	Classifier *classifier.Classifier
	Switcher   keyboard.Switcher
	Corrector  Corrector
	Learning   *learning.Store
	Scheduler  *scheduler.Scheduler
	Log        *slog.Logger

	// AppIdentity returns the frontmost application's identity for
	// context learning; may be nil.
	AppIdentity func() string
}

// Engine is the per-stream decision state machine.
type Engine struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	mu             sync.Mutex
	state          State
	suppression    SuppressionState
	depth          int
	lastCorrection *Correction
	lastSeq        uint64

	wordsProcessed  uint64
	switches        uint64
	switchFailures  uint64
	suppressed      uint64
	manualOverrides uint64
	rejections      uint64
	recursionAborts uint64
}

// withDefaults fills zero config fields from DefaultConfig.
func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.MinWordLength <= 0 {
		cfg.MinWordLength = def.MinWordLength
	}
	if cfg.LongWordLength <= 0 {
		cfg.LongWordLength = def.LongWordLength
	}
	if cfg.ConfidenceShort <= 0 {
		cfg.ConfidenceShort = def.ConfidenceShort
	}
	if cfg.ConfidenceLong <= 0 {
		cfg.ConfidenceLong = def.ConfidenceLong
	}
	if cfg.SuppressionWindow <= 0 {
		cfg.SuppressionWindow = def.SuppressionWindow
	}
	if cfg.SuppressionWords <= 0 {
		cfg.SuppressionWords = def.SuppressionWords
	}
	if cfg.RejectionWindow <= 0 {
		cfg.RejectionWindow = def.RejectionWindow
	}
	if cfg.MaxRecursionDepth <= 0 {
		cfg.MaxRecursionDepth = def.MaxRecursionDepth
	}
	return cfg
}

// New creates an engine. Zero config fields fall back to defaults.
func New(cfg Config, deps Deps) *Engine {
	if deps.Corrector == nil {
		deps.Corrector = NopCorrector{}
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Engine{
		cfg:  withDefaults(cfg),
		deps: deps,
		log:  deps.Log.With("component", "engine"),
	}
}

// Reconfigure swaps the threshold configuration at runtime. In-flight
// words finish under the snapshot they started with.
func (e *Engine) Reconfigure(cfg Config) {
	cfg = withDefaults(cfg)
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.log.Info("engine thresholds reconfigured",
		"min_word_length", cfg.MinWordLength,
		"confidence_short", cfg.ConfidenceShort,
		"confidence_long", cfg.ConfidenceLong,
		"suppression_words", cfg.SuppressionWords)
}

// Run consumes capture events until the context is cancelled. The
// ingestion path stays synchronous through the segmenter and the cheap
// classifier stages; only the full classification may be deferred.
func (e *Engine) Run(ctx context.Context, events <-chan keyboard.CharacterEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one capture event.
func (e *Engine) HandleEvent(ctx context.Context, ev keyboard.CharacterEvent) {
	switch {
	case ev.Synthetic:
		// Our own injected keystrokes; never re-ingested.
		return

	case ev.SecureField:
		// Password fields are never buffered, let alone corrected.
		e.deps.Segmenter.Reset()
		return

	case ev.LayoutShortcut:
		e.ManualOverride(time.Now())
		return

	case ev.Backspace:
		e.deps.Segmenter.Backspace()
		return

	case ev.Rune != 0:
		e.deps.Segmenter.ProcessChar(ev.Rune, ev.Timestamp)
	}

	for e.deps.Segmenter.ShouldProcessWord() {
		tok, ok := e.deps.Segmenter.NextWord()
		if !ok {
			break
		}
		e.processWord(ctx, tok)
	}
}

// ManualOverride handles a user-driven layout change: the suppression
// window clears immediately, and an override soon after a self-switch is
// recorded as the user rejecting that correction.
func (e *Engine) ManualOverride(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.manualOverrides++

	if e.lastCorrection != nil && e.suppression.SelfInitiated &&
		at.Sub(e.suppression.LastSwitch) <= e.cfg.RejectionWindow {
		corr := e.lastCorrection
		e.rejections++
		e.log.Info("correction rejected by manual override",
			"word", corr.Token.Text, "language", corr.To.String())
		if e.deps.Learning != nil {
			common := e.deps.Classifier.Tables().IsKnownWord(corr.Replacement, corr.To)
			e.deps.Learning.RecordRejected(corr.Token.Text, corr.To, e.appIdentity(), at, common)
		}
	}
	e.lastCorrection = nil
	e.suppression = SuppressionState{LastSwitch: at, SelfInitiated: false}
	e.state = StateNormal
	if e.deps.Classifier != nil {
		e.deps.Classifier.Sentences().Reset()
	}
}

// processWord classifies one token and acts on the verdict.
func (e *Engine) processWord(ctx context.Context, tok segmenter.WordToken) {
	e.mu.Lock()
	e.wordsProcessed++
	e.lastSeq = tok.Seq
	e.mu.Unlock()

	in, ok := e.buildInput(tok)
	if !ok {
		return
	}

	// Cheap signals run inline within the latency budget.
	verdict := e.deps.Classifier.ClassifyCheap(in)
	if verdict.Decisive() {
		e.applyVerdict(tok, in, verdict)
		return
	}

	// Full classification (oracle, neural) runs off the ingestion path.
	if e.deps.Scheduler == nil {
		e.applyVerdict(tok, in, e.deps.Classifier.Classify(ctx, in))
		return
	}
	err := e.deps.Scheduler.Submit(scheduler.TierHigh, func(taskCtx context.Context) {
		v := e.deps.Classifier.Classify(taskCtx, in)

		// Supersession: a newer word has been processed while the
		// oracles ran; applying this verdict now would correct text
		// the user has already typed past.
		e.mu.Lock()
		superseded := e.lastSeq != tok.Seq
		e.mu.Unlock()
		if superseded {
			return
		}
		e.applyVerdict(tok, in, v)
	})
	if err != nil {
		e.log.Debug("classification deferred task rejected", "error", err)
	}
}

// buildInput renders the token under every configured layout.
func (e *Engine) buildInput(tok segmenter.WordToken) (classifier.Input, bool) {
	if tok.Text == "" {
		return classifier.Input{}, false
	}
	apparent := e.deps.Registry.GuessSource(tok.Text)
	if apparent == layout.LangUnknown {
		// Mixed alphabets or digits only; nothing to decide.
		return classifier.Input{}, false
	}
	return classifier.Input{
		Word:       tok.Text,
		Apparent:   apparent,
		Renderings: e.deps.Registry.Renderings(tok.Text, apparent),
	}, true
}

// applyVerdict runs the decision rules and, when they all pass, corrects.
func (e *Engine) applyVerdict(tok segmenter.WordToken, in classifier.Input, verdict classifier.Verdict) {
	defer e.observeSentence(tok, verdict)

	if !verdict.Decisive() {
		return
	}

	e.mu.Lock()
	suppressed := e.suppressedLocked(verdict.Lang)
	if suppressed {
		e.suppressed++
	}
	e.mu.Unlock()
	if suppressed {
		e.log.Debug("verdict suppressed inside post-switch window",
			"word", tok.Text, "language", verdict.Lang.String())
		return
	}

	if verdict.Lang == in.Apparent {
		// The user is already on the right layout; remember the habit.
		if e.deps.Learning != nil {
			e.deps.Learning.ObserveContext(e.appIdentity(), verdict.Lang, tok.CompletedAt)
		}
		return
	}

	if !e.thresholdsPass(tok, in, verdict) {
		return
	}

	e.correct(tok, in, verdict)
}

// suppressedLocked reports whether the open window absorbs this verdict,
// advancing and expiring the window as a side effect.
func (e *Engine) suppressedLocked(lang layout.Language) bool {
	if e.state != StatePostSwitch || !e.suppression.SelfInitiated {
		return false
	}
	if time.Since(e.suppression.LastSwitch) > e.cfg.SuppressionWindow ||
		e.suppression.WordsSinceSwitch >= e.cfg.SuppressionWords {
		e.state = StateNormal
		e.suppression = SuppressionState{}
		return false
	}
	e.suppression.WordsSinceSwitch++
	return lang == e.suppression.Expected
}

// thresholdsPass applies the length and confidence bars.
func (e *Engine) thresholdsPass(tok segmenter.WordToken, in classifier.Input, verdict classifier.Verdict) bool {
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	length := utf8.RuneCountInString(tok.Text)

	if length < cfg.MinWordLength {
		// Short words must be exact short-table matches to qualify.
		if !e.deps.Classifier.Tables().IsShortWord(in.Renderings[verdict.Lang], verdict.Lang) {
			return false
		}
	}

	bar := cfg.ConfidenceShort
	if length >= cfg.LongWordLength {
		bar = cfg.ConfidenceLong
	}
	return verdict.Confidence >= bar
}

// correct switches the layout and retypes the word, guarding recursion.
func (e *Engine) correct(tok segmenter.WordToken, in classifier.Input, verdict classifier.Verdict) {
	e.mu.Lock()
	maxDepth := e.cfg.MaxRecursionDepth
	if e.depth >= maxDepth {
		// Abort without touching depth: the unwinding outer frames each
		// run their deferred decrement, restoring the count to zero.
		e.recursionAborts++
		e.state = StateNormal
		e.mu.Unlock()
		e.log.Warn("correction recursion bound exceeded, aborting",
			"word", tok.Text, "depth", maxDepth)
		return
	}
	e.depth++
	e.state = StateCorrecting
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.depth--
		e.mu.Unlock()
	}()

	replacement := in.Renderings[verdict.Lang] + tok.Trailing
	if tok.Leading != "" {
		replacement = tok.Leading + replacement
	}
	corr := Correction{
		Token:       tok,
		From:        in.Apparent,
		To:          verdict.Lang,
		Replacement: replacement,
		Verdict:     verdict,
	}

	if err := e.deps.Switcher.SwitchTo(verdict.Lang); err != nil {
		e.mu.Lock()
		e.switchFailures++
		e.state = StateNormal
		e.mu.Unlock()
		e.log.Warn("layout switch failed, word left uncorrected",
			"word", tok.Text, "language", verdict.Lang.String(), "error", err)
		return
	}

	// Open the window before injecting: a corrector that feeds events
	// back synchronously is then covered by suppression as well as the
	// recursion guard.
	now := time.Now()
	e.mu.Lock()
	e.switches++
	e.suppression = SuppressionState{
		LastSwitch:    now,
		SelfInitiated: true,
		Expected:      verdict.Lang,
	}
	e.state = StatePostSwitch
	e.lastCorrection = &corr
	e.mu.Unlock()

	if err := e.deps.Corrector.Apply(corr); err != nil {
		e.log.Warn("correction injection failed", "word", tok.Text, "error", err)
		// Layout did switch; the window stays open so continued typing
		// on the new layout is not re-corrected.
	}

	e.log.Info("corrected word",
		"from", corr.From.String(), "to", corr.To.String(),
		"word", tok.Text, "replacement", corr.Replacement,
		"confidence", verdict.Confidence, "signals", signalNames(verdict))

	if e.deps.Learning != nil {
		e.deps.Learning.RecordAccepted(tok.Text, in.Renderings[verdict.Lang], verdict.Lang, e.appIdentity(), now)
	}
}

// observeSentence feeds the sentence tracker after each word.
func (e *Engine) observeSentence(tok segmenter.WordToken, verdict classifier.Verdict) {
	sentences := e.deps.Classifier.Sentences()
	if verdict.Decisive() {
		sentences.Record(verdict.Lang)
	}
	sentences.ObservePunctuation(tok.Trailing)
}

func (e *Engine) appIdentity() string {
	if e.deps.AppIdentity == nil {
		return ""
	}
	return e.deps.AppIdentity()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Suppression returns a copy of the suppression state.
func (e *Engine) Suppression() SuppressionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suppression
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		WordsProcessed:  e.wordsProcessed,
		Switches:        e.switches,
		SwitchFailures:  e.switchFailures,
		Suppressed:      e.suppressed,
		ManualOverrides: e.manualOverrides,
		Rejections:      e.rejections,
		RecursionAborts: e.recursionAborts,
		State:           e.state.String(),
	}
}

func signalNames(v classifier.Verdict) string {
	names := make([]string, len(v.Signals))
	for i, s := range v.Signals {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}
