// Package layout models keyboard layouts and the languages they produce.
//
// A Layout is a mapping from physical key positions to character glyphs.
// Physical positions are identified by the glyph the key produces on the
// US QWERTY reference layout, which lets us re-render a typed word as it
// would have appeared had a different layout been active: map each glyph
// back to its physical key, then forward through the other layout.
package layout

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// Language identifies a supported input language.
type Language int

const (
	// LangUnknown means the language could not be determined.
	LangUnknown Language = iota
	// LangEnglish is English on a US QWERTY layout.
	LangEnglish
	// LangRussian is Russian on the standard ЙЦУКЕН layout.
	LangRussian
)

// String returns the canonical lowercase name of the language.
func (l Language) String() string {
	switch l {
	case LangEnglish:
		return "english"
	case LangRussian:
		return "russian"
	default:
		return "unknown"
	}
}

// Parse returns the Language for a canonical name (case-insensitive).
func Parse(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "english", "en", "en_us":
		return LangEnglish, nil
	case "russian", "ru", "ru_ru":
		return LangRussian, nil
	case "unknown", "":
		return LangUnknown, nil
	}
	return LangUnknown, fmt.Errorf("layout: unknown language %q", name)
}

// Other returns the opposite language of a two-language pair. It is the
// common case for wrong-layout correction: text meant for one language
// typed while the other layout was active.
func (l Language) Other() Language {
	switch l {
	case LangEnglish:
		return LangRussian
	case LangRussian:
		return LangEnglish
	default:
		return LangUnknown
	}
}

// Layout maps physical keys (identified by their US QWERTY glyph) to the
// glyphs this layout produces, and back.
type Layout struct {
	Lang     Language
	toGlyph  map[rune]rune // physical key -> glyph
	fromKeys map[rune]rune // glyph -> physical key
}

// New builds a Layout from a physical-key -> glyph table. Uppercase
// pairings are derived with unicode case mapping.
func New(lang Language, keys map[rune]rune) *Layout {
	l := &Layout{
		Lang:     lang,
		toGlyph:  make(map[rune]rune, len(keys)*2),
		fromKeys: make(map[rune]rune, len(keys)*2),
	}
	for key, glyph := range keys {
		l.toGlyph[key] = glyph
		l.fromKeys[glyph] = key

		uk := unicode.ToUpper(key)
		ug := unicode.ToUpper(glyph)
		if ug != glyph {
			// Glyphs on caseless physical keys (e.g. 'х' on '[') still
			// need a reverse mapping for their uppercase form.
			l.fromKeys[ug] = uk
			if uk != key {
				l.toGlyph[uk] = ug
			}
		}
	}
	return l
}

// Glyph returns the glyph the layout produces for a physical key, or the
// key itself when the layout does not remap it (digits, most punctuation).
func (l *Layout) Glyph(key rune) rune {
	if g, ok := l.toGlyph[key]; ok {
		return g
	}
	return key
}

// Key returns the physical key that produces a glyph under this layout,
// and whether the glyph belongs to the layout at all.
func (l *Layout) Key(glyph rune) (rune, bool) {
	if k, ok := l.fromKeys[glyph]; ok {
		return k, true
	}
	return glyph, false
}

// Owns reports whether the glyph is produced by this layout's letter keys.
func (l *Layout) Owns(glyph rune) bool {
	_, ok := l.fromKeys[glyph]
	return ok
}

// Registry holds the set of configured layouts.
type Registry struct {
	mu      sync.RWMutex
	layouts map[Language]*Layout
	order   []Language
}

// NewRegistry creates a registry seeded with the built-in layouts.
func NewRegistry() *Registry {
	r := &Registry{layouts: make(map[Language]*Layout)}
	r.Register(qwerty())
	r.Register(jcuken())
	return r
}

// Register adds or replaces a layout.
func (r *Registry) Register(l *Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.layouts[l.Lang]; !exists {
		r.order = append(r.order, l.Lang)
	}
	r.layouts[l.Lang] = l
}

// Get returns the layout for a language.
func (r *Registry) Get(lang Language) (*Layout, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layouts[lang]
	return l, ok
}

// Languages returns the registered languages in registration order.
func (r *Registry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Language, len(r.order))
	copy(out, r.order)
	return out
}

// Render re-renders word as it would read had it been typed with the "to"
// layout active instead of "from". Runes that do not map to a physical key
// of the source layout pass through unchanged.
func (r *Registry) Render(word string, from, to Language) string {
	r.mu.RLock()
	src, okSrc := r.layouts[from]
	dst, okDst := r.layouts[to]
	r.mu.RUnlock()

	if !okSrc || !okDst || from == to {
		return word
	}

	var b strings.Builder
	b.Grow(len(word))
	for _, g := range word {
		key, ok := src.Key(g)
		if !ok {
			b.WriteRune(g)
			continue
		}
		b.WriteRune(dst.Glyph(key))
	}
	return b.String()
}

// Renderings returns the word as seen under every registered layout,
// assuming it was physically typed with the "from" layout active. The
// "from" rendering is the word itself.
func (r *Registry) Renderings(word string, from Language) map[Language]string {
	out := make(map[Language]string)
	for _, lang := range r.Languages() {
		if lang == from {
			out[lang] = word
			continue
		}
		out[lang] = r.Render(word, from, lang)
	}
	return out
}

// GuessSource returns the language whose alphabet the word's letters belong
// to, or LangUnknown when the word mixes alphabets or has no letters.
func (r *Registry) GuessSource(word string) Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match Language
	for _, g := range word {
		if !unicode.IsLetter(g) {
			continue
		}
		found := LangUnknown
		for _, lang := range r.order {
			if r.layouts[lang].Owns(g) {
				found = lang
				break
			}
		}
		if found == LangUnknown {
			return LangUnknown
		}
		if match == LangUnknown {
			match = found
		} else if match != found {
			return LangUnknown
		}
	}
	return match
}
