package classifier

import (
	"strings"
	"sync"

	"layoutd/internal/layout"
)

// Tables holds the curated pattern data the cheap signals run on. Rule
// files can extend every table at startup; the built-in data covers the
// English/Russian pair.
type Tables struct {
	mu sync.RWMutex

	// knownWords are words that decisively identify their language.
	knownWords map[layout.Language]map[string]struct{}

	// shortWords are common words below the engine's minimum length that
	// are still eligible for correction.
	shortWords map[layout.Language]map[string]struct{}

	// impossible maps an apparent language to substrings that cannot
	// occur in that language's orthography but are common prefixes of
	// words mistyped from the other layout.
	impossible map[layout.Language][]string

	// bigrams are per-language common-bigram weights.
	bigrams map[layout.Language]map[string]float64
}

// NewTables returns tables seeded with the built-in data.
func NewTables() *Tables {
	t := &Tables{
		knownWords: make(map[layout.Language]map[string]struct{}),
		shortWords: make(map[layout.Language]map[string]struct{}),
		impossible: make(map[layout.Language][]string),
		bigrams:    make(map[layout.Language]map[string]float64),
	}
	t.AddKnownWords(layout.LangEnglish, builtinEnglishWords...)
	t.AddKnownWords(layout.LangRussian, builtinRussianWords...)
	t.AddShortWords(layout.LangEnglish, builtinEnglishShort...)
	t.AddShortWords(layout.LangRussian, builtinRussianShort...)
	t.AddImpossiblePatterns(layout.LangEnglish, builtinImpossibleInEnglish...)
	t.AddImpossiblePatterns(layout.LangRussian, builtinImpossibleInRussian...)
	t.setBigrams(layout.LangEnglish, builtinEnglishBigrams)
	t.setBigrams(layout.LangRussian, builtinRussianBigrams)
	return t
}

// AddKnownWords registers decisive words for a language.
func (t *Tables) AddKnownWords(lang layout.Language, words ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.knownWords[lang]
	if set == nil {
		set = make(map[string]struct{}, len(words))
		t.knownWords[lang] = set
	}
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
}

// AddShortWords registers short correctable words for a language.
func (t *Tables) AddShortWords(lang layout.Language, words ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.shortWords[lang]
	if set == nil {
		set = make(map[string]struct{}, len(words))
		t.shortWords[lang] = set
	}
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
}

// AddImpossiblePatterns registers impossible substrings for an apparent
// language. Patterns shorter than three runes are rejected silently; they
// would fire on legitimate words.
func (t *Tables) AddImpossiblePatterns(lang layout.Language, patterns ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range patterns {
		p = strings.ToLower(p)
		if len([]rune(p)) < 3 {
			continue
		}
		t.impossible[lang] = append(t.impossible[lang], p)
	}
}

func (t *Tables) setBigrams(lang layout.Language, weights map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bigrams[lang] = weights
}

// IsKnownWord reports whether word is in lang's known-word table.
func (t *Tables) IsKnownWord(word string, lang layout.Language) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.knownWords[lang][strings.ToLower(word)]
	return ok
}

// IsShortWord reports whether word is in lang's short-word table.
func (t *Tables) IsShortWord(word string, lang layout.Language) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.shortWords[lang][strings.ToLower(word)]
	return ok
}

// MatchImpossible returns the first impossible pattern found in word when
// read as lang, or "".
func (t *Tables) MatchImpossible(word string, lang layout.Language) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lower := strings.ToLower(word)
	for _, p := range t.impossible[lang] {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

// BigramWeight returns the weight of a bigram in lang, or 0.
func (t *Tables) BigramWeight(bigram string, lang layout.Language) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bigrams[lang][bigram]
}
