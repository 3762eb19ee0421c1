package classifier

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"layoutd/internal/dict"
	"layoutd/internal/layout"
)

// Config tunes the fusion stages. Every signal can be disabled
// independently; a disabled signal abstains unconditionally.
type Config struct {
	EnableKnownWords bool
	EnablePatterns   bool
	EnableOracle     bool
	EnableLearned    bool
	EnableNgram      bool
	EnableNeural     bool
	EnableContext    bool

	// RepeatThreshold is the minimum weighted count before a learned
	// preference fires.
	RepeatThreshold float64

	// NgramMargin is how far one language's bigram score must exceed the
	// other's to win when both are positive.
	NgramMargin float64

	// NeuralFloor is the minimum neural confidence accepted.
	NeuralFloor float64

	// NeuralOverride is the neural confidence at which sentence context
	// is ignored entirely.
	NeuralOverride float64

	// ContextNudge is added to the confidence when sentence context
	// agrees with the verdict.
	ContextNudge float64
}

// DefaultConfig enables every signal with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		EnableKnownWords: true,
		EnablePatterns:   true,
		EnableOracle:     true,
		EnableLearned:    true,
		EnableNgram:      true,
		EnableNeural:     true,
		EnableContext:    true,
		RepeatThreshold:  2,
		NgramMargin:      1,
		NeuralFloor:      0.65,
		NeuralOverride:   0.9,
		ContextNudge:     0.05,
	}
}

// PreferenceSource exposes the learning store's per-word preferences
// without importing it (the store imports this package's types).
type PreferenceSource interface {
	// WordPreference returns the preferred language for a word (keyed
	// case-insensitively by its typed form) and the accumulated weight.
	WordPreference(word string) (layout.Language, float64, bool)
}

// Input is one word rendered under every configured layout.
type Input struct {
	// Word is the word as typed, glyphs of the active layout.
	Word string

	// Apparent is the language whose alphabet the typed glyphs belong to.
	Apparent layout.Language

	// Renderings maps each candidate language to the word as it would
	// read had that layout been active. Renderings[Apparent] == Word.
	Renderings map[layout.Language]string
}

// Options modify a single classification call.
type Options struct {
	// CheapOnly skips the oracle and neural stages; used on the
	// ingestion path where only sub-millisecond signals may run.
	CheapOnly bool
}

// Classifier fuses the signals into a per-word language verdict.
type Classifier struct {
	cfg    Config
	tables *Tables
	oracle *dict.CachedOracle
	neural *dict.CachedNeural
	prefs  PreferenceSource
	ctx    *SentenceTracker
	log    *slog.Logger
}

// New creates a classifier. oracle, neural, and prefs may be nil; the
// corresponding signals then abstain.
func New(cfg Config, tables *Tables, oracle *dict.CachedOracle, neural *dict.CachedNeural, prefs PreferenceSource, sentences *SentenceTracker, log *slog.Logger) *Classifier {
	if tables == nil {
		tables = NewTables()
	}
	if sentences == nil {
		sentences = NewSentenceTracker()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		cfg:    cfg,
		tables: tables,
		oracle: oracle,
		neural: neural,
		prefs:  prefs,
		ctx:    sentences,
		log:    log.With("component", "classifier"),
	}
}

// Tables returns the live tables, for rule-file merging at startup.
func (c *Classifier) Tables() *Tables { return c.tables }

// Sentences returns the sentence tracker the decision path records into.
func (c *Classifier) Sentences() *SentenceTracker { return c.ctx }

// Classify runs the fusion pipeline over one word. Signals run
// cheapest-first and the first decisive one wins; errors and timeouts are
// abstentions. An all-abstain run returns an unknown verdict.
func (c *Classifier) Classify(ctx context.Context, in Input) Verdict {
	if utf8.RuneCountInString(in.Word) == 0 {
		return abstain()
	}
	return c.classify(ctx, in, Options{})
}

// ClassifyCheap runs only the local, synchronous stages.
func (c *Classifier) ClassifyCheap(in Input) Verdict {
	return c.classify(context.Background(), in, Options{CheapOnly: true})
}

func (c *Classifier) classify(ctx context.Context, in Input, opts Options) Verdict {
	// Stage 1: known-word tables. Exact hits return immediately without
	// the context nudge; they are already calibrated.
	if c.cfg.EnableKnownWords {
		if v, ok := c.knownWordStage(in); ok {
			return v
		}
	}

	// Stage 2: impossible n-gram patterns.
	if c.cfg.EnablePatterns {
		if v, ok := c.patternStage(in); ok {
			return v
		}
	}

	// Stage 3: dictionary oracle.
	if c.cfg.EnableOracle && !opts.CheapOnly && c.oracle != nil {
		if v, ok := c.oracleStage(ctx, in); ok {
			return c.contextStage(v, 0)
		}
	}

	// Stage 4: learned preference.
	if c.cfg.EnableLearned && c.prefs != nil {
		if v, ok := c.learnedStage(in); ok {
			return c.contextStage(v, 0)
		}
	}

	// Stage 5: bigram frequency scoring.
	if c.cfg.EnableNgram {
		if v, ok := c.ngramStage(in); ok {
			return c.contextStage(v, 0)
		}
	}

	// Stage 6: neural classifier, consulted only when 1-5 abstained.
	if c.cfg.EnableNeural && !opts.CheapOnly && c.neural != nil {
		if v, conf, ok := c.neuralStage(ctx, in); ok {
			return c.contextStage(v, conf)
		}
	}

	return abstain()
}

// knownWordStage matches each rendering against its language's tables.
// A hit in exactly one language is decisive; a hit in several abstains.
func (c *Classifier) knownWordStage(in Input) (Verdict, bool) {
	var hit layout.Language
	hits := 0
	for lang, rendering := range in.Renderings {
		if c.tables.IsKnownWord(rendering, lang) || c.tables.IsShortWord(rendering, lang) {
			hit = lang
			hits++
		}
	}
	if hits != 1 {
		return abstain(), false
	}
	conf := 0.9
	if hit != in.Apparent {
		// The word only makes sense on the other layout.
		conf = 0.95
	}
	return Verdict{Lang: hit, Confidence: conf, Signals: []Signal{SignalKnownWord}}, true
}

// patternStage looks for substrings impossible in the apparent language.
func (c *Classifier) patternStage(in Input) (Verdict, bool) {
	if in.Apparent == layout.LangUnknown {
		return abstain(), false
	}
	if p := c.tables.MatchImpossible(in.Word, in.Apparent); p != "" {
		other := in.Apparent.Other()
		if other == layout.LangUnknown {
			return abstain(), false
		}
		c.log.Debug("impossible pattern matched",
			"word", in.Word, "pattern", p, "verdict", other.String())
		return Verdict{
			Lang:       other,
			Confidence: 0.95,
			Signals:    []Signal{SignalImpossiblePattern},
		}, true
	}
	return abstain(), false
}

// oracleStage is decisive only when validity differs between languages.
// A word valid in both is explicitly ambiguous and the stage abstains —
// guessing here is the classic short-word false positive.
func (c *Classifier) oracleStage(ctx context.Context, in Input) (Verdict, bool) {
	type validity struct {
		lang  layout.Language
		valid bool
	}
	var results []validity
	for lang, rendering := range in.Renderings {
		valid, err := c.oracle.IsValidWord(ctx, rendering, lang)
		if err != nil {
			// Oracle failure is an abstention for the whole stage.
			c.log.Debug("dictionary oracle abstained", "word", in.Word, "error", err)
			return abstain(), false
		}
		results = append(results, validity{lang, valid})
	}

	var winner layout.Language
	validCount := 0
	for _, r := range results {
		if r.valid {
			winner = r.lang
			validCount++
		}
	}
	if validCount != 1 {
		return abstain(), false
	}
	conf := 0.85
	if winner != in.Apparent {
		conf = 0.9
	}
	return Verdict{Lang: winner, Confidence: conf, Signals: []Signal{SignalDictionary}}, true
}

// learnedStage applies explicit user teaching above the repeat threshold.
func (c *Classifier) learnedStage(in Input) (Verdict, bool) {
	lang, weight, ok := c.prefs.WordPreference(strings.ToLower(in.Word))
	if !ok || lang == layout.LangUnknown || weight < c.cfg.RepeatThreshold {
		return abstain(), false
	}
	// Scale with history, capped below the pattern signals.
	conf := 0.6 + 0.05*weight
	if conf > 0.95 {
		conf = 0.95
	}
	return Verdict{Lang: lang, Confidence: conf, Signals: []Signal{SignalLearned}}, true
}

// ngramStage scores each rendering against its language's bigram table.
func (c *Classifier) ngramStage(in Input) (Verdict, bool) {
	type score struct {
		lang layout.Language
		val  float64
	}
	var scores []score
	for lang, rendering := range in.Renderings {
		scores = append(scores, score{lang, c.bigramScore(rendering, lang)})
	}
	if len(scores) < 2 {
		return abstain(), false
	}

	best, second := scores[0], score{lang: layout.LangUnknown, val: -1}
	for _, s := range scores[1:] {
		if s.val > best.val {
			second = best
			best = s
		} else if s.val > second.val {
			second = s
		}
	}

	switch {
	case best.val > 0 && second.val == 0:
		// Strictly-positive versus zero wins outright.
		return Verdict{Lang: best.lang, Confidence: 0.75, Signals: []Signal{SignalNgram}}, true
	case best.val > second.val+c.cfg.NgramMargin:
		return Verdict{Lang: best.lang, Confidence: 0.7, Signals: []Signal{SignalNgram}}, true
	default:
		// Within the margin, or a tie: unknown.
		return abstain(), false
	}
}

// bigramScore sums bigram weights, doubling the word-initial bigram.
func (c *Classifier) bigramScore(word string, lang layout.Language) float64 {
	runes := []rune(strings.ToLower(word))
	if len(runes) < 2 {
		return 0
	}
	var total float64
	for i := 0; i+1 < len(runes); i++ {
		w := c.tables.BigramWeight(string(runes[i:i+2]), lang)
		if i == 0 {
			w *= 2
		}
		total += w
	}
	return total
}

// neuralStage consults the external classifier on each rendering and keeps
// the rendering whose detected language matches its own, above the floor.
func (c *Classifier) neuralStage(ctx context.Context, in Input) (Verdict, float64, bool) {
	var (
		best     layout.Language
		bestConf float64
	)
	for lang, rendering := range in.Renderings {
		got, conf, err := c.neural.Classify(ctx, rendering)
		if err != nil {
			c.log.Debug("neural classifier abstained", "word", in.Word, "error", err)
			continue
		}
		if got == lang && conf >= c.cfg.NeuralFloor && conf > bestConf {
			best, bestConf = lang, conf
		}
	}
	if best == layout.LangUnknown {
		return abstain(), 0, false
	}
	return Verdict{Lang: best, Confidence: bestConf, Signals: []Signal{SignalNeural}}, bestConf, true
}

// contextStage nudges the confidence when the sentence's dominant language
// agrees with the verdict. Disagreement is ignored entirely, and a
// high-confidence neural verdict bypasses context regardless.
func (c *Classifier) contextStage(v Verdict, neuralConf float64) Verdict {
	if !c.cfg.EnableContext || !v.Decisive() {
		return v
	}
	if neuralConf >= c.cfg.NeuralOverride {
		return v
	}
	dominant, n := c.ctx.Dominant()
	if dominant == layout.LangUnknown || n == 0 || dominant != v.Lang {
		return v
	}
	v.Confidence += c.cfg.ContextNudge
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	v.Signals = append(v.Signals, SignalContext)
	return v
}
