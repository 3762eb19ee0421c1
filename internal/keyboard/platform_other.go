//go:build !linux

package keyboard

// NewPlatformCapture has no real implementation off Linux; the daemon
// falls back to the fake capture for development.
func NewPlatformCapture() Capture {
	return nil
}

// NewPlatformSwitcher reports ErrNotAvailable off Linux.
func NewPlatformSwitcher(engines map[string]string) (Switcher, error) {
	return nil, ErrNotAvailable
}
