// Package keyboard defines the OS-facing contracts the correction core
// depends on: an ordered keystroke event source and a layout-switch
// primitive. Platform implementations live in build-tagged files; tests
// and unsupported platforms use the in-memory fakes.
//
// Capture implementations must tag events they injected themselves
// (Synthetic) distinctly from genuine user input, or the decision engine
// cannot suppress feedback loops.
package keyboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"layoutd/internal/layout"
)

// Modifier flags for a character event.
type Modifier uint8

const (
	// ModShift was held.
	ModShift Modifier = 1 << iota
	// ModCtrl was held.
	ModCtrl
	// ModAlt was held.
	ModAlt
	// ModMeta (cmd/super) was held.
	ModMeta
)

// CharacterEvent is a single typed character. Ephemeral: the segmenter
// consumes it immediately.
type CharacterEvent struct {
	Rune      rune
	Modifiers Modifier
	Timestamp time.Time

	// Backspace is set for deletion events; Rune is then zero.
	Backspace bool

	// Synthetic marks events this process injected itself.
	Synthetic bool

	// LayoutShortcut marks a user-driven layout-change key chord.
	LayoutShortcut bool

	// SecureField is set while the focused field suppresses echo
	// (password entry); such input is never buffered or corrected.
	SecureField bool
}

var (
	// ErrNotAvailable means capture cannot run on this platform or with
	// current permissions.
	ErrNotAvailable = errors.New("keyboard: capture not available")

	// ErrSwitchFailed means the layout-switch primitive reported failure.
	ErrSwitchFailed = errors.New("keyboard: layout switch failed")
)

// Capture delivers CharacterEvents in typing order.
type Capture interface {
	// Start begins delivering events.
	Start(ctx context.Context) error

	// Stop stops delivery and closes the event channel.
	Stop() error

	// Events returns the ordered event stream.
	Events() <-chan CharacterEvent

	// Pause suspends delivery without tearing down the capture.
	Pause()

	// Resume re-enables delivery after Pause.
	Resume()

	// Available reports whether capture can run here, with a reason.
	Available() (bool, string)
}

// Switcher is the OS layout-switch primitive. Implementations must be
// idempotent: switching to the already-active language succeeds.
type Switcher interface {
	// SwitchTo activates the layout for lang.
	SwitchTo(lang layout.Language) error

	// Current returns the active layout's language.
	Current() (layout.Language, error)

	// List returns the languages with installed layouts.
	List() []layout.Language
}

// RetrySwitcher wraps a Switcher with a bounded-attempt backoff loop.
// Retry state is an explicit attempt count, not recursion.
type RetrySwitcher struct {
	inner    Switcher
	attempts int
	backoff  time.Duration

	mu       sync.Mutex
	failures uint64
}

// NewRetrySwitcher wraps inner with up to attempts tries and a doubling
// backoff starting at base.
func NewRetrySwitcher(inner Switcher, attempts int, base time.Duration) *RetrySwitcher {
	if attempts <= 0 {
		attempts = 3
	}
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	return &RetrySwitcher{inner: inner, attempts: attempts, backoff: base}
}

// SwitchTo retries transient failures with backoff before giving up.
func (r *RetrySwitcher) SwitchTo(lang layout.Language) error {
	delay := r.backoff
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		if lastErr = r.inner.SwitchTo(lang); lastErr == nil {
			return nil
		}
	}

	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
	return errors.Join(ErrSwitchFailed, lastErr)
}

// Current delegates to the wrapped switcher.
func (r *RetrySwitcher) Current() (layout.Language, error) {
	return r.inner.Current()
}

// List delegates to the wrapped switcher.
func (r *RetrySwitcher) List() []layout.Language {
	return r.inner.List()
}

// Failures returns how many switches exhausted their retry budget.
func (r *RetrySwitcher) Failures() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}
