package dict

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"layoutd/internal/layout"
)

// WordlistOracle is a dictionary oracle backed by plain-text word lists,
// one word per line. It stands in for the system spelling dictionary on
// platforms where no native oracle is wired up, and doubles as the test
// oracle.
type WordlistOracle struct {
	mu    sync.RWMutex
	words map[layout.Language]map[string]struct{}
}

// NewWordlistOracle creates an empty oracle.
func NewWordlistOracle() *WordlistOracle {
	return &WordlistOracle{
		words: make(map[layout.Language]map[string]struct{}),
	}
}

// AddWords registers words for a language.
func (o *WordlistOracle) AddWords(lang layout.Language, words ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	set, ok := o.words[lang]
	if !ok {
		set = make(map[string]struct{}, len(words))
		o.words[lang] = set
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
}

// LoadFile reads a one-word-per-line list for a language. Lines starting
// with '#' are comments.
func (o *WordlistOracle) LoadFile(lang layout.Language, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var words []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	o.AddWords(lang, words...)
	return nil
}

// IsValidWord reports membership, case-insensitively.
func (o *WordlistOracle) IsValidWord(_ context.Context, word string, lang layout.Language) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	set, ok := o.words[lang]
	if !ok {
		return false, ErrUnsupportedLanguage
	}
	_, found := set[strings.ToLower(word)]
	return found, nil
}

// Suggestions returns dictionary words within edit distance 1 of word,
// shortest and lexicographically-smallest first, capped at 8.
func (o *WordlistOracle) Suggestions(_ context.Context, word string, lang layout.Language) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	set, ok := o.words[lang]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	lower := strings.ToLower(word)
	var out []string
	for candidate := range set {
		if candidate == lower {
			continue
		}
		if editDistanceAtMost1(lower, candidate) {
			out = append(out, candidate)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	if len(out) > 8 {
		out = out[:8]
	}
	return out, nil
}

// editDistanceAtMost1 reports whether a and b differ by at most one
// substitution, insertion, or deletion.
func editDistanceAtMost1(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}
	if lb-la > 1 {
		return false
	}

	ra, rb := []rune(a), []rune(b)
	i, j, edits := 0, 0, 0
	for i < len(ra) && j < len(rb) {
		if ra[i] == rb[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		if la == lb {
			i++
			j++
		} else {
			j++ // skip one rune of the longer string
		}
	}
	edits += (len(rb) - j) + (len(ra) - i)
	return edits <= 1
}
