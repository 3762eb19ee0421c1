//go:build linux

package keyboard

import "layoutd/internal/layout"

// NewPlatformCapture returns the evdev capture on Linux.
func NewPlatformCapture() Capture {
	return NewEvdevCapture()
}

// NewPlatformSwitcher returns the IBus switcher on Linux. The engines
// map overrides the built-in language to engine-name mapping.
func NewPlatformSwitcher(engines map[string]string) (Switcher, error) {
	sw, err := NewIBusSwitcher()
	if err != nil {
		return nil, err
	}
	for name, engine := range engines {
		lang, err := layout.Parse(name)
		if err != nil {
			return nil, err
		}
		sw.SetEngineName(lang, engine)
	}
	return sw, nil
}
