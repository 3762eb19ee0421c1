// Package segmenter turns a raw keystroke character stream into words.
//
// The segmenter is a small state machine: it is either idle or accumulating
// a partial word. Boundary characters (space, tab, newline) complete the
// partial word and are discarded; punctuation completes the word and is
// kept, attached to the token as leading or trailing punctuation.
// Apostrophes and hyphens continue a word when they follow a letter, so
// contractions and compounds stay whole; left dangling at the end of a
// word they detach as trailing punctuation. Completed words queue in FIFO
// order until the classifier consumes them.
//
// The raw character history is bounded. On overflow the oldest characters
// are dropped, and if the in-progress partial word can no longer be derived
// from what remains it is discarded rather than risk emitting a malformed
// token.
package segmenter

import (
	"sync"
	"time"
	"unicode"
)

// Config bounds the segmenter's buffers.
type Config struct {
	// MaxWordLength force-completes a partial word that reaches it.
	MaxWordLength int

	// MaxHistory caps the raw character history.
	MaxHistory int

	// MaxQueue caps the completed-token queue; the oldest token is
	// dropped when a new one arrives at capacity.
	MaxQueue int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWordLength: 50,
		MaxHistory:    1000,
		MaxQueue:      16,
	}
}

// WordToken is a completed word plus its detached punctuation.
// Text never contains boundary characters; apostrophes and hyphens may
// appear inside it between letters, all other punctuation detaches.
type WordToken struct {
	Text        string
	Leading     string
	Trailing    string
	CompletedAt time.Time

	// Seq increases by one per emitted token. The decision path uses it
	// to discard oracle results that arrive after the queue has moved on.
	Seq uint64
}

// Stats is a snapshot of segmenter counters.
type Stats struct {
	CharsSeen       uint64
	TokensEmitted   uint64
	Backspaces      uint64
	Overflows       uint64
	PartialDiscards uint64
	QueueDrops      uint64
}

// Segmenter consumes one character at a time and emits completed words.
type Segmenter struct {
	mu  sync.Mutex
	cfg Config

	// Raw characters since the last emitted token.
	history []rune

	partial []rune
	leading []rune
	queue   []WordToken
	seq     uint64

	stats Stats
}

// New creates a segmenter. Zero config fields fall back to defaults.
func New(cfg Config) *Segmenter {
	def := DefaultConfig()
	if cfg.MaxWordLength <= 0 {
		cfg.MaxWordLength = def.MaxWordLength
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.MaxQueue <= 0 {
		cfg.MaxQueue = def.MaxQueue
	}
	return &Segmenter{cfg: cfg}
}

// isBoundary reports whether r separates words and is never stored.
func isBoundary(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// isWordChar reports whether r belongs inside a word.
func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isJoiner reports whether r may continue a word it did not start.
// These keys carry letters on other layouts, so splitting on them would
// cut a wrong-layout word in half.
func isJoiner(r rune) bool {
	return r == '\'' || r == '-'
}

// isPunct reports whether r is punctuation the segmenter attaches to tokens.
func isPunct(r rune) bool {
	return !isBoundary(r) && !isWordChar(r) && unicode.IsPrint(r)
}

// ProcessChar feeds one typed character into the state machine.
func (s *Segmenter) ProcessChar(r rune, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.CharsSeen++

	switch {
	case isBoundary(r):
		// Boundaries complete the word and are never stored.
		if len(s.partial) > 0 {
			s.emitLocked("", at)
		} else {
			s.leading = s.leading[:0]
			s.history = s.history[:0]
		}
		return

	case isWordChar(r):
		s.appendHistoryLocked(r)
		s.partial = append(s.partial, r)
		if len(s.partial) >= s.cfg.MaxWordLength {
			s.emitLocked("", at)
		}
		return

	case isJoiner(r) && len(s.partial) > 0 && isWordChar(s.partial[len(s.partial)-1]):
		// Word-internal apostrophe or hyphen; emitLocked re-detaches it
		// if no letter follows.
		s.appendHistoryLocked(r)
		s.partial = append(s.partial, r)
		if len(s.partial) >= s.cfg.MaxWordLength {
			s.emitLocked("", at)
		}
		return

	case isPunct(r):
		if len(s.partial) > 0 {
			s.emitLocked(string(r), at)
		} else {
			s.appendHistoryLocked(r)
			s.leading = append(s.leading, r)
		}
		return
	}
	// Control characters and other unprintables are ignored.
}

// Backspace removes the last raw character and recomputes the partial word
// by replaying the remaining history. It never resurrects an emitted token.
func (s *Segmenter) Backspace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Backspaces++
	if len(s.history) == 0 {
		return
	}
	s.history = s.history[:len(s.history)-1]
	s.replayLocked()
}

// ShouldProcessWord reports whether at least one completed token is queued.
func (s *Segmenter) ShouldProcessWord() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

// NextWord returns the oldest queued token, FIFO.
func (s *Segmenter) NextWord() (WordToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return WordToken{}, false
	}
	tok := s.queue[0]
	copy(s.queue, s.queue[1:])
	s.queue = s.queue[:len(s.queue)-1]
	return tok, true
}

// Partial returns the current in-progress word, for diagnostics.
func (s *Segmenter) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.partial)
}

// Sequence returns the sequence number of the most recently emitted token.
func (s *Segmenter) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset clears all state without emitting anything.
func (s *Segmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = s.history[:0]
	s.partial = s.partial[:0]
	s.leading = s.leading[:0]
	s.queue = s.queue[:0]
}

// Stats returns a snapshot of the counters.
func (s *Segmenter) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// emitLocked queues the current partial word as a token. Joiners with no
// letter after them move from the word into the trailing punctuation.
func (s *Segmenter) emitLocked(trailing string, at time.Time) {
	word := s.partial
	for len(word) > 0 && isJoiner(word[len(word)-1]) {
		trailing = string(word[len(word)-1]) + trailing
		word = word[:len(word)-1]
	}

	s.seq++
	tok := WordToken{
		Text:        string(word),
		Leading:     string(s.leading),
		Trailing:    trailing,
		CompletedAt: at,
		Seq:         s.seq,
	}

	if len(s.queue) >= s.cfg.MaxQueue {
		copy(s.queue, s.queue[1:])
		s.queue = s.queue[:len(s.queue)-1]
		s.stats.QueueDrops++
	}
	s.queue = append(s.queue, tok)
	s.stats.TokensEmitted++

	s.partial = s.partial[:0]
	s.leading = s.leading[:0]
	s.history = s.history[:0]
}

// appendHistoryLocked records a raw character, trimming on overflow.
func (s *Segmenter) appendHistoryLocked(r rune) {
	if len(s.history) >= s.cfg.MaxHistory {
		s.stats.Overflows++
		// Drop the oldest half, shadow-buffer style.
		half := len(s.history) / 2
		copy(s.history, s.history[half:])
		s.history = s.history[:len(s.history)-half]

		before := string(s.partial)
		s.replayLocked()
		if before != string(s.partial) {
			// The partial can no longer be derived from history.
			s.partial = s.partial[:0]
			s.leading = s.leading[:0]
			s.stats.PartialDiscards++
		}
	}
	s.history = append(s.history, r)
}

// replayLocked recomputes partial and leading punctuation from history.
func (s *Segmenter) replayLocked() {
	s.partial = s.partial[:0]
	s.leading = s.leading[:0]
	for _, r := range s.history {
		switch {
		case isWordChar(r):
			s.partial = append(s.partial, r)
		case isJoiner(r) && len(s.partial) > 0 && isWordChar(s.partial[len(s.partial)-1]):
			s.partial = append(s.partial, r)
		case isPunct(r) && len(s.partial) == 0:
			s.leading = append(s.leading, r)
		}
	}
}
