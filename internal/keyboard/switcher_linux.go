//go:build linux

package keyboard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"layoutd/internal/layout"
)

// IBus D-Bus constants.
const (
	ibusService      = "org.freedesktop.IBus"
	ibusPath         = "/org/freedesktop/IBus"
	ibusInterface    = "org.freedesktop.IBus"
	propGlobalEngine = "GlobalEngine"
	methodSetEngine  = ibusInterface + ".SetGlobalEngine"
)

// IBusSwitcher switches keyboard layouts through the IBus daemon on the
// session bus. Engine names follow the xkb convention, e.g. "xkb:us::eng"
// and "xkb:ru::rus".
type IBusSwitcher struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	engine map[layout.Language]string
}

// NewIBusSwitcher connects to the session bus.
func NewIBusSwitcher() (*IBusSwitcher, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}
	return &IBusSwitcher{
		conn: conn,
		engine: map[layout.Language]string{
			layout.LangEnglish: "xkb:us::eng",
			layout.LangRussian: "xkb:ru::rus",
		},
	}, nil
}

// SetEngineName overrides the IBus engine used for a language.
func (s *IBusSwitcher) SetEngineName(lang layout.Language, engine string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine[lang] = engine
}

// SwitchTo activates the IBus engine mapped to lang.
func (s *IBusSwitcher) SwitchTo(lang layout.Language) error {
	s.mu.Lock()
	engine, ok := s.engine[lang]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no engine for %s", ErrSwitchFailed, lang)
	}

	obj := s.conn.Object(ibusService, dbus.ObjectPath(ibusPath))
	if call := obj.Call(methodSetEngine, 0, engine); call.Err != nil {
		return fmt.Errorf("%w: %v", ErrSwitchFailed, call.Err)
	}
	return nil
}

// Current reads the active global engine and maps it back to a language.
func (s *IBusSwitcher) Current() (layout.Language, error) {
	obj := s.conn.Object(ibusService, dbus.ObjectPath(ibusPath))
	variant, err := obj.GetProperty(ibusInterface + "." + propGlobalEngine)
	if err != nil {
		return layout.LangUnknown, fmt.Errorf("global engine: %w", err)
	}

	name := fmt.Sprintf("%v", variant.Value())
	s.mu.Lock()
	defer s.mu.Unlock()
	for lang, engine := range s.engine {
		if strings.Contains(name, engine) {
			return lang, nil
		}
	}
	return layout.LangUnknown, nil
}

// List returns the languages with a configured engine mapping.
func (s *IBusSwitcher) List() []layout.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]layout.Language, 0, len(s.engine))
	for lang := range s.engine {
		out = append(out, lang)
	}
	return out
}
