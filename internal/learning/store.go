// Package learning records user feedback about corrections and predicts
// language preferences from it.
//
// The store accumulates four kinds of evidence: explicit language
// selections, accepted corrections, rejected corrections, and coarse
// context observations (which application the word was typed in, at what
// hour). Weights decay exponentially once stale and are evicted below a
// floor, so the store tracks current habits rather than history. All of it
// is advisory: losing the store loses convenience, never correctness.
package learning

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"layoutd/internal/layout"
)

// EventKind identifies a feedback event.
type EventKind int

const (
	// EventLanguageSelected means the user manually chose a language.
	EventLanguageSelected EventKind = iota
	// EventCorrectionAccepted means an auto-correction was kept.
	EventCorrectionAccepted
	// EventCorrectionRejected means an auto-correction was undone.
	EventCorrectionRejected
	// EventContextObserved means a word was typed in a known context.
	EventContextObserved
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventLanguageSelected:
		return "language-selected"
	case EventCorrectionAccepted:
		return "correction-accepted"
	case EventCorrectionRejected:
		return "correction-rejected"
	case EventContextObserved:
		return "context-observed"
	default:
		return "invalid"
	}
}

// WordPreference accumulates per-word correction weights.
type WordPreference struct {
	Weights     map[layout.Language]float64 `json:"weights"`
	Selections  []string                    `json:"selections,omitempty"`
	LastTouched time.Time                   `json:"last_touched"`
}

// ContextPattern is a coarse-grained bias keyed by application identity.
type ContextPattern struct {
	App         string          `json:"app"`
	Lang        layout.Language `json:"lang"`
	Confidence  float64         `json:"confidence"`
	MatchCount  int             `json:"match_count"`
	LastMatched time.Time       `json:"last_matched"`
}

// Config tunes decay and capacity.
type Config struct {
	// DecayRate multiplies stale weights on each sweep.
	DecayRate float64

	// Staleness is how long an entry may go untouched before decaying.
	Staleness time.Duration

	// WeightFloor evicts entries decayed below it.
	WeightFloor float64

	// MaxContextPatterns caps the context-pattern map; least-confident
	// entries are evicted first.
	MaxContextPatterns int

	// MaxSelections caps a word's auto-complete selection list.
	MaxSelections int

	// PersistInterval is how often the store saves itself.
	PersistInterval time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DecayRate:          0.99,
		Staleness:          7 * 24 * time.Hour,
		WeightFloor:        0.05,
		MaxContextPatterns: 200,
		MaxSelections:      8,
		PersistInterval:    5 * time.Minute,
	}
}

// Persistence is the opaque save/load contract. Failures are non-fatal;
// the store keeps operating in memory and retries on the next interval.
type Persistence interface {
	Save(blob []byte) error
	Load() ([]byte, error)
}

// Stats is a snapshot of store counters.
type Stats struct {
	Words           int
	ContextPatterns int
	EventsRecorded  uint64
	SaveFailures    uint64
	LastSaved       time.Time
}

// Store is the learning and preference store.
type Store struct {
	mu  sync.RWMutex
	cfg Config
	log *slog.Logger

	words      map[string]*WordPreference
	contexts   map[string]*ContextPattern
	globalBias map[layout.Language]float64
	appBias    map[string]map[layout.Language]float64
	hourBias   [24]map[layout.Language]float64

	persistence  Persistence
	dirty        bool
	events       uint64
	saveFailures uint64
	lastSaved    time.Time
}

// NewStore creates a store. persistence may be nil for memory-only use.
func NewStore(cfg Config, persistence Persistence, log *slog.Logger) *Store {
	def := DefaultConfig()
	if cfg.DecayRate <= 0 || cfg.DecayRate >= 1 {
		cfg.DecayRate = def.DecayRate
	}
	if cfg.Staleness <= 0 {
		cfg.Staleness = def.Staleness
	}
	if cfg.WeightFloor <= 0 {
		cfg.WeightFloor = def.WeightFloor
	}
	if cfg.MaxContextPatterns <= 0 {
		cfg.MaxContextPatterns = def.MaxContextPatterns
	}
	if cfg.MaxSelections <= 0 {
		cfg.MaxSelections = def.MaxSelections
	}
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = def.PersistInterval
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		cfg:         cfg,
		log:         log.With("component", "learning"),
		words:       make(map[string]*WordPreference),
		contexts:    make(map[string]*ContextPattern),
		globalBias:  make(map[layout.Language]float64),
		appBias:     make(map[string]map[layout.Language]float64),
		persistence: persistence,
	}
	for i := range s.hourBias {
		s.hourBias[i] = make(map[layout.Language]float64)
	}
	return s
}

func wordKey(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// RecordSelection records a manual language selection for a word.
// chosen is the rendering the user picked; it feeds the word's
// selection list.
func (s *Store) RecordSelection(word, chosen string, lang layout.Language, app string, at time.Time) {
	s.record(word, chosen, lang, app, at, 2.0)
}

// RecordAccepted records that an auto-correction of word to chosen was kept.
func (s *Store) RecordAccepted(word, chosen string, lang layout.Language, app string, at time.Time) {
	s.record(word, chosen, lang, app, at, 1.0)
}

// RecordRejected records that a correction of word to rejected was undone.
// The rejected mapping decays and the opposite language is reinforced,
// unless the word is common dictionary vocabulary that should not be
// poisoned by a one-off.
func (s *Store) RecordRejected(word string, rejected layout.Language, app string, at time.Time, commonWord bool) {
	key := wordKey(word)
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events++
	s.dirty = true

	pref := s.words[key]
	if pref == nil {
		pref = &WordPreference{Weights: make(map[layout.Language]float64)}
		s.words[key] = pref
	}
	pref.Weights[rejected] *= 0.5
	pref.LastTouched = at

	if !commonWord {
		opposite := rejected.Other()
		if opposite != layout.LangUnknown {
			pref.Weights[opposite] += 2.0
			s.bumpBiasLocked(opposite, app, at, 1.0)
		}
	}
}

// ObserveContext records which language was in use in an application.
func (s *Store) ObserveContext(app string, lang layout.Language, at time.Time) {
	if app == "" || lang == layout.LangUnknown {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events++
	s.dirty = true

	key := app + ":" + lang.String()
	pat := s.contexts[key]
	if pat == nil {
		if len(s.contexts) >= s.cfg.MaxContextPatterns {
			s.evictLeastConfidentLocked()
		}
		pat = &ContextPattern{App: app, Lang: lang}
		s.contexts[key] = pat
	}
	pat.MatchCount++
	pat.LastMatched = at
	// Confidence saturates with repeated observation.
	pat.Confidence = float64(pat.MatchCount) / float64(pat.MatchCount+3)

	s.bumpBiasLocked(lang, app, at, 0.5)
}

func (s *Store) record(word, chosen string, lang layout.Language, app string, at time.Time, weight float64) {
	key := wordKey(word)
	if key == "" || lang == layout.LangUnknown {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events++
	s.dirty = true

	pref := s.words[key]
	if pref == nil {
		pref = &WordPreference{Weights: make(map[layout.Language]float64)}
		s.words[key] = pref
	}
	pref.Weights[lang] += weight
	pref.LastTouched = at
	if chosen != "" {
		pref.Selections = frontSelection(pref.Selections, chosen, s.cfg.MaxSelections)
	}

	s.bumpBiasLocked(lang, app, at, weight)
}

// frontSelection moves chosen to the front of the list, newest first,
// capped at max.
func frontSelection(list []string, chosen string, max int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, chosen)
	for _, s := range list {
		if s != chosen {
			out = append(out, s)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func (s *Store) bumpBiasLocked(lang layout.Language, app string, at time.Time, weight float64) {
	s.globalBias[lang] += weight
	if app != "" {
		m := s.appBias[app]
		if m == nil {
			m = make(map[layout.Language]float64)
			s.appBias[app] = m
		}
		m[lang] += weight
	}
	s.hourBias[at.Hour()][lang] += weight
}

// WordPreference returns the preferred language for a word and its
// accumulated weight. It implements classifier.PreferenceSource.
func (s *Store) WordPreference(word string) (layout.Language, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.words[wordKey(word)]
	if !ok {
		return layout.LangUnknown, 0, false
	}

	best, bestW := layout.LangUnknown, 0.0
	for lang, w := range pref.Weights {
		if w > bestW {
			best, bestW = lang, w
		}
	}
	if best == layout.LangUnknown || bestW <= 0 {
		return layout.LangUnknown, 0, false
	}
	return best, bestW, true
}

// Selections returns a copy of a word's chosen renderings, newest first.
func (s *Store) Selections(word string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.words[wordKey(word)]
	if !ok || len(pref.Selections) == 0 {
		return nil
	}
	out := make([]string, len(pref.Selections))
	copy(out, pref.Selections)
	return out
}

// AppBias returns the dominant language bias for an application.
func (s *Store) AppBias(app string) (layout.Language, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.appBias[app]
	if !ok {
		return layout.LangUnknown, 0, false
	}
	best, bestW, total := layout.LangUnknown, 0.0, 0.0
	for lang, w := range m {
		total += w
		if w > bestW {
			best, bestW = lang, w
		}
	}
	if best == layout.LangUnknown || total == 0 {
		return layout.LangUnknown, 0, false
	}
	return best, bestW / total, true
}

// HourBias returns the dominant language for an hour of day as a weak
// prior, with its share of that hour's evidence.
func (s *Store) HourBias(hour int) (layout.Language, float64, bool) {
	if hour < 0 || hour > 23 {
		return layout.LangUnknown, 0, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	best, bestW, total := layout.LangUnknown, 0.0, 0.0
	for lang, w := range s.hourBias[hour] {
		total += w
		if w > bestW {
			best, bestW = lang, w
		}
	}
	if best == layout.LangUnknown || total == 0 {
		return layout.LangUnknown, 0, false
	}
	return best, bestW / total, true
}

// DecaySweep decays entries untouched beyond the staleness window and
// evicts those below the weight floor. Returns how many words it evicted.
func (s *Store) DecaySweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, pref := range s.words {
		if now.Sub(pref.LastTouched) < s.cfg.Staleness {
			continue
		}
		alive := false
		for lang, w := range pref.Weights {
			w *= s.cfg.DecayRate
			if w < s.cfg.WeightFloor {
				delete(pref.Weights, lang)
				continue
			}
			pref.Weights[lang] = w
			alive = true
		}
		if !alive {
			delete(s.words, key)
			evicted++
		}
		s.dirty = true
	}

	for key, pat := range s.contexts {
		if now.Sub(pat.LastMatched) < s.cfg.Staleness {
			continue
		}
		pat.Confidence *= s.cfg.DecayRate
		if pat.Confidence < s.cfg.WeightFloor {
			delete(s.contexts, key)
		}
		s.dirty = true
	}
	return evicted
}

func (s *Store) evictLeastConfidentLocked() {
	var worstKey string
	worst := 2.0
	for key, pat := range s.contexts {
		if pat.Confidence < worst {
			worstKey, worst = key, pat.Confidence
		}
	}
	if worstKey != "" {
		delete(s.contexts, worstKey)
	}
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Words:           len(s.words),
		ContextPatterns: len(s.contexts),
		EventsRecorded:  s.events,
		SaveFailures:    s.saveFailures,
		LastSaved:       s.lastSaved,
	}
}
