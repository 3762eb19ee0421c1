// Package dict defines the external language oracles the classifier
// consults: a dictionary oracle (is this a valid word?) and a neural
// language classifier (what language is this text?). Both may be slow or
// unavailable; callers treat any error as a signal abstention, never a
// fault. Caching wrappers keep repeat lookups off the slow path.
package dict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"layoutd/internal/cache"
	"layoutd/internal/layout"
)

var (
	// ErrUnavailable means the oracle cannot serve requests right now.
	ErrUnavailable = errors.New("dict: oracle unavailable")

	// ErrUnsupportedLanguage means the oracle has no data for the language.
	ErrUnsupportedLanguage = errors.New("dict: unsupported language")
)

// Oracle answers dictionary validity queries. Implementations may block;
// callers run them off the ingestion path and cache results.
type Oracle interface {
	// IsValidWord reports whether word is a valid word of lang.
	IsValidWord(ctx context.Context, word string, lang layout.Language) (bool, error)

	// Suggestions returns correction candidates for word in lang.
	Suggestions(ctx context.Context, word string, lang layout.Language) ([]string, error)
}

// NeuralClassifier is an external probabilistic language identifier.
type NeuralClassifier interface {
	// Classify returns the most likely language and a confidence in [0,1].
	Classify(ctx context.Context, text string) (layout.Language, float64, error)
}

// CachedOracle wraps an Oracle with a bounded TTL cache and a per-call
// timeout. The cache key carries the language so lookups for the same
// spelling in different languages never collide.
type CachedOracle struct {
	inner       Oracle
	validity    *cache.Cache[string, bool]
	suggestions *cache.Cache[string, []string]
	timeout     time.Duration
}

// NewCachedOracle wraps inner. The caches should be registered with the
// process-wide sweeper by the caller.
func NewCachedOracle(inner Oracle, validity *cache.Cache[string, bool], suggestions *cache.Cache[string, []string], timeout time.Duration) *CachedOracle {
	if timeout <= 0 {
		timeout = 150 * time.Millisecond
	}
	return &CachedOracle{
		inner:       inner,
		validity:    validity,
		suggestions: suggestions,
		timeout:     timeout,
	}
}

func oracleKey(word string, lang layout.Language) string {
	return fmt.Sprintf("%s:%s", lang, word)
}

// IsValidWord answers from cache when possible.
func (c *CachedOracle) IsValidWord(ctx context.Context, word string, lang layout.Language) (bool, error) {
	key := oracleKey(word, lang)
	if v, ok := c.validity.Get(key); ok {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.inner.IsValidWord(ctx, word, lang)
	if err != nil {
		return false, err
	}
	c.validity.Set(key, v)
	return v, nil
}

// Suggestions answers from cache when possible.
func (c *CachedOracle) Suggestions(ctx context.Context, word string, lang layout.Language) ([]string, error) {
	key := oracleKey(word, lang)
	if v, ok := c.suggestions.Get(key); ok {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.inner.Suggestions(ctx, word, lang)
	if err != nil {
		return nil, err
	}
	c.suggestions.Set(key, v)
	return v, nil
}

// NeuralResult is a cached classification.
type NeuralResult struct {
	Lang       layout.Language
	Confidence float64
}

// CachedNeural wraps a NeuralClassifier with a cache and a per-call timeout.
type CachedNeural struct {
	inner   NeuralClassifier
	results *cache.Cache[string, NeuralResult]
	timeout time.Duration
}

// NewCachedNeural wraps inner.
func NewCachedNeural(inner NeuralClassifier, results *cache.Cache[string, NeuralResult], timeout time.Duration) *CachedNeural {
	if timeout <= 0 {
		timeout = 150 * time.Millisecond
	}
	return &CachedNeural{inner: inner, results: results, timeout: timeout}
}

// Classify answers from cache when possible.
func (c *CachedNeural) Classify(ctx context.Context, text string) (layout.Language, float64, error) {
	if r, ok := c.results.Get(text); ok {
		return r.Lang, r.Confidence, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lang, conf, err := c.inner.Classify(ctx, text)
	if err != nil {
		return layout.LangUnknown, 0, err
	}
	c.results.Set(text, NeuralResult{Lang: lang, Confidence: conf})
	return lang, conf, nil
}
