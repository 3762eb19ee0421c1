package classifier

import (
	"strings"
	"sync"

	"layoutd/internal/layout"
)

// SentenceTracker keeps the dominant language of the sentence being typed.
// The decision path records each classified word; sentence-ending
// punctuation resets the counts. It is a nudge signal only: the classifier
// uses it to adjust confidence, never to override a word's own verdict.
type SentenceTracker struct {
	mu     sync.Mutex
	counts map[layout.Language]int
	total  int
}

// NewSentenceTracker creates an empty tracker.
func NewSentenceTracker() *SentenceTracker {
	return &SentenceTracker{counts: make(map[layout.Language]int)}
}

// Record notes a word classified as lang.
func (st *SentenceTracker) Record(lang layout.Language) {
	if lang == layout.LangUnknown {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.counts[lang]++
	st.total++
}

// ObservePunctuation resets the tracker on sentence-ending punctuation.
func (st *SentenceTracker) ObservePunctuation(p string) {
	if !strings.ContainsAny(p, ".!?") && !strings.Contains(p, "\n") {
		return
	}
	st.Reset()
}

// Reset clears the sentence.
func (st *SentenceTracker) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.counts = make(map[layout.Language]int)
	st.total = 0
}

// Dominant returns the sentence's dominant language and how many words
// support it. A tie or an empty sentence is LangUnknown.
func (st *SentenceTracker) Dominant() (layout.Language, int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	best, bestN, tied := layout.LangUnknown, 0, false
	for lang, n := range st.counts {
		switch {
		case n > bestN:
			best, bestN, tied = lang, n, false
		case n == bestN && n > 0:
			tied = true
		}
	}
	if tied {
		return layout.LangUnknown, 0
	}
	return best, bestN
}
