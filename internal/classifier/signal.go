// Package classifier decides which language a typed word was intended for.
//
// The decision fuses several independent, imperfect signals: curated
// known-word tables, orthographically-impossible n-gram patterns, a cached
// dictionary oracle, learned user preferences, bigram frequency scoring, a
// cached neural language identifier, and sentence-level context. Signals
// are evaluated cheapest-first and short-circuit: the first decisive stage
// returns its own calibrated confidence. There is no combined numeric
// formula; precedence order is the behavior.
package classifier

import "layoutd/internal/layout"

// Signal identifies one contributing signal in a verdict.
type Signal int

const (
	// SignalKnownWord fired on an exact known-word table match.
	SignalKnownWord Signal = iota
	// SignalImpossiblePattern fired on an impossible-n-gram match.
	SignalImpossiblePattern
	// SignalDictionary fired on a decisive dictionary-oracle answer.
	SignalDictionary
	// SignalLearned fired on an explicit user-taught preference.
	SignalLearned
	// SignalNgram fired on bigram frequency scoring.
	SignalNgram
	// SignalNeural fired on the external neural classifier.
	SignalNeural
	// SignalContext fired when sentence context adjusted the confidence.
	SignalContext
)

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case SignalKnownWord:
		return "known-word"
	case SignalImpossiblePattern:
		return "impossible-pattern"
	case SignalDictionary:
		return "dictionary"
	case SignalLearned:
		return "learned"
	case SignalNgram:
		return "ngram"
	case SignalNeural:
		return "neural"
	case SignalContext:
		return "context"
	default:
		return "invalid"
	}
}

// Verdict is the classifier's per-word output.
type Verdict struct {
	// Lang is the language the word was intended for, or LangUnknown.
	Lang layout.Language

	// Confidence is in [0,1].
	Confidence float64

	// Signals lists the contributing signals in evaluation order.
	Signals []Signal
}

// Decisive reports whether the verdict names a language.
func (v Verdict) Decisive() bool {
	return v.Lang != layout.LangUnknown && v.Confidence > 0
}

// abstain is the empty verdict.
func abstain() Verdict {
	return Verdict{Lang: layout.LangUnknown}
}
