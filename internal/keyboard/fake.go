package keyboard

import (
	"context"
	"sync"
	"time"

	"layoutd/internal/layout"
)

// FakeCapture is an in-memory Capture for tests and unsupported platforms.
type FakeCapture struct {
	mu      sync.Mutex
	events  chan CharacterEvent
	paused  bool
	running bool
}

// NewFakeCapture creates a fake capture with a buffered event channel.
func NewFakeCapture() *FakeCapture {
	return &FakeCapture{events: make(chan CharacterEvent, 256)}
}

// Start marks the capture running.
func (f *FakeCapture) Start(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

// Stop closes the event channel.
func (f *FakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		f.running = false
		close(f.events)
	}
	return nil
}

// Events returns the event stream.
func (f *FakeCapture) Events() <-chan CharacterEvent { return f.events }

// Pause suspends Inject delivery.
func (f *FakeCapture) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

// Resume re-enables Inject delivery.
func (f *FakeCapture) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
}

// Available always succeeds.
func (f *FakeCapture) Available() (bool, string) { return true, "" }

// Inject delivers an event as if typed. Dropped while paused or stopped.
func (f *FakeCapture) Inject(ev CharacterEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running || f.paused {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case f.events <- ev:
	default:
	}
}

// Type is a convenience that injects each rune of s as a genuine event.
func (f *FakeCapture) Type(s string) {
	for _, r := range s {
		f.Inject(CharacterEvent{Rune: r})
	}
}

// FakeSwitcher is an in-memory Switcher for tests.
type FakeSwitcher struct {
	mu      sync.Mutex
	current layout.Language
	langs   []layout.Language

	// FailNext makes the next n SwitchTo calls fail.
	FailNext int

	switches int
}

// NewFakeSwitcher creates a switcher starting on lang.
func NewFakeSwitcher(current layout.Language, available ...layout.Language) *FakeSwitcher {
	if len(available) == 0 {
		available = []layout.Language{layout.LangEnglish, layout.LangRussian}
	}
	return &FakeSwitcher{current: current, langs: available}
}

// SwitchTo changes the active language, honoring FailNext.
func (f *FakeSwitcher) SwitchTo(lang layout.Language) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext > 0 {
		f.FailNext--
		return ErrSwitchFailed
	}
	f.current = lang
	f.switches++
	return nil
}

// Current returns the active language.
func (f *FakeSwitcher) Current() (layout.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

// List returns the available languages.
func (f *FakeSwitcher) List() []layout.Language {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]layout.Language, len(f.langs))
	copy(out, f.langs)
	return out
}

// Switches returns how many successful switches occurred.
func (f *FakeSwitcher) Switches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.switches
}
