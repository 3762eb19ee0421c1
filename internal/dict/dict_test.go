package dict

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"layoutd/internal/cache"
	"layoutd/internal/layout"
)

// countingOracle wraps WordlistOracle and counts real lookups.
type countingOracle struct {
	inner *WordlistOracle
	calls atomic.Int64
	fail  atomic.Bool
}

func (c *countingOracle) IsValidWord(ctx context.Context, word string, lang layout.Language) (bool, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return false, ErrUnavailable
	}
	return c.inner.IsValidWord(ctx, word, lang)
}

func (c *countingOracle) Suggestions(ctx context.Context, word string, lang layout.Language) ([]string, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, ErrUnavailable
	}
	return c.inner.Suggestions(ctx, word, lang)
}

func newTestOracle() *WordlistOracle {
	o := NewWordlistOracle()
	o.AddWords(layout.LangEnglish, "hello", "world", "help", "hells")
	o.AddWords(layout.LangRussian, "привет", "мир")
	return o
}

func TestWordlistIsValidWord(t *testing.T) {
	o := newTestOracle()
	ctx := context.Background()

	ok, err := o.IsValidWord(ctx, "hello", layout.LangEnglish)
	if err != nil || !ok {
		t.Errorf("hello should be valid english, got %v %v", ok, err)
	}

	ok, err = o.IsValidWord(ctx, "HELLO", layout.LangEnglish)
	if err != nil || !ok {
		t.Error("lookup should be case-insensitive")
	}

	ok, err = o.IsValidWord(ctx, "ghbdtn", layout.LangEnglish)
	if err != nil || ok {
		t.Error("ghbdtn should not be valid english")
	}

	_, err = o.IsValidWord(ctx, "hola", layout.LangUnknown)
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("unknown language error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestWordlistLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.txt")
	content := "# test wordlist\nfoo\n\nbar\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	o := NewWordlistOracle()
	if err := o.LoadFile(layout.LangEnglish, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	ok, _ := o.IsValidWord(context.Background(), "foo", layout.LangEnglish)
	if !ok {
		t.Error("foo should be loaded")
	}
	ok, _ = o.IsValidWord(context.Background(), "# test wordlist", layout.LangEnglish)
	if ok {
		t.Error("comment lines must be skipped")
	}
}

func TestWordlistSuggestions(t *testing.T) {
	o := newTestOracle()

	got, err := o.Suggestions(context.Background(), "helo", layout.LangEnglish)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	want := map[string]bool{"hello": true, "help": true}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected suggestion %q", s)
		}
		delete(want, s)
	}
	if len(want) > 0 {
		t.Errorf("missing suggestions: %v", want)
	}
}

func TestEditDistanceAtMost1(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"hello", "hello", true},
		{"hello", "hallo", true}, // substitution
		{"hello", "helo", true},  // deletion
		{"helo", "hello", true},  // insertion
		{"hello", "world", false},
		{"hello", "hel", false}, // two deletions
		{"", "a", true},
		{"ab", "ba", false}, // transposition is two edits
	}
	for _, tt := range tests {
		if got := editDistanceAtMost1(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistanceAtMost1(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCachedOracleCachesPerLanguage(t *testing.T) {
	co := &countingOracle{inner: newTestOracle()}
	validity := cache.New[string, bool]("v", 16, time.Minute)
	suggestions := cache.New[string, []string]("s", 16, time.Minute)
	cached := NewCachedOracle(co, validity, suggestions, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.IsValidWord(ctx, "hello", layout.LangEnglish); err != nil {
			t.Fatal(err)
		}
	}
	if got := co.calls.Load(); got != 1 {
		t.Errorf("inner oracle called %d times, want 1", got)
	}

	// Same spelling, different language, must not collide.
	if _, err := cached.IsValidWord(ctx, "hello", layout.LangRussian); err != nil {
		t.Fatal(err)
	}
	if got := co.calls.Load(); got != 2 {
		t.Errorf("inner oracle called %d times, want 2", got)
	}
}

func TestCachedOracleDoesNotCacheErrors(t *testing.T) {
	co := &countingOracle{inner: newTestOracle()}
	co.fail.Store(true)
	cached := NewCachedOracle(co,
		cache.New[string, bool]("v", 16, time.Minute),
		cache.New[string, []string]("s", 16, time.Minute),
		time.Second)
	ctx := context.Background()

	if _, err := cached.IsValidWord(ctx, "hello", layout.LangEnglish); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}

	// Recovery: the failed lookup must not have been cached.
	co.fail.Store(false)
	ok, err := cached.IsValidWord(ctx, "hello", layout.LangEnglish)
	if err != nil || !ok {
		t.Errorf("after recovery got %v %v, want true", ok, err)
	}
}

func TestCachedNeural(t *testing.T) {
	var calls atomic.Int64
	inner := neuralFunc(func(_ context.Context, text string) (layout.Language, float64, error) {
		calls.Add(1)
		return layout.LangRussian, 0.9, nil
	})
	cached := NewCachedNeural(inner, cache.New[string, NeuralResult]("n", 16, time.Minute), time.Second)

	for i := 0; i < 3; i++ {
		lang, conf, err := cached.Classify(context.Background(), "привет")
		if err != nil || lang != layout.LangRussian || conf != 0.9 {
			t.Fatalf("Classify = %v %v %v", lang, conf, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("inner classifier called %d times, want 1", calls.Load())
	}
}

type neuralFunc func(ctx context.Context, text string) (layout.Language, float64, error)

func (f neuralFunc) Classify(ctx context.Context, text string) (layout.Language, float64, error) {
	return f(ctx, text)
}

func TestCharModelClassify(t *testing.T) {
	m := NewCharModel()
	ctx := context.Background()

	lang, conf, err := m.Classify(ctx, "привет")
	if err != nil {
		t.Fatal(err)
	}
	if lang != layout.LangRussian {
		t.Errorf("привет classified as %v", lang)
	}
	if conf <= 0.5 || conf > 1 {
		t.Errorf("confidence %v out of range (0.5, 1]", conf)
	}

	lang, conf, err = m.Classify(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if lang != layout.LangEnglish {
		t.Errorf("hello classified as %v", lang)
	}
	if conf <= 0.5 {
		t.Errorf("confidence %v too low", conf)
	}
}
