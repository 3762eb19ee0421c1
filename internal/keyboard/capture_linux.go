//go:build linux

package keyboard

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// EvdevCapture reads key events from /dev/input/event* devices. It is a
// best-effort adapter: key codes are translated through the US reference
// keymap and the active layout is left to the Switcher; distributions
// running Wayland compositors with restricted input access will report
// unavailable and the daemon falls back to an IME-integrated source.
type EvdevCapture struct {
	mu      sync.Mutex
	events  chan CharacterEvent
	paused  atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	devices []string

	shift bool
	ctrl  bool
	alt   bool
	meta  bool
}

// NewEvdevCapture creates a capture over all keyboard input devices.
func NewEvdevCapture() *EvdevCapture {
	return &EvdevCapture{events: make(chan CharacterEvent, 256)}
}

// inputEvent mirrors struct input_event from <linux/input.h> on 64-bit.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey         = 0x01
	keyPress      = 1
	keyBackspace  = 14
	keyLeftShift  = 42
	keyRightShift = 54
	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftAlt    = 56
	keyRightAlt   = 100
	keyLeftMeta   = 125
)

// usKeymap maps evdev key codes to the glyph the key produces on the US
// reference layout. The layout registry re-renders from there.
var usKeymap = map[uint16]rune{
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5', 7: '6', 8: '7', 9: '8',
	10: '9', 11: '0', 12: '-', 13: '=',
	16: 'q', 17: 'w', 18: 'e', 19: 'r', 20: 't', 21: 'y', 22: 'u',
	23: 'i', 24: 'o', 25: 'p', 26: '[', 27: ']',
	30: 'a', 31: 's', 32: 'd', 33: 'f', 34: 'g', 35: 'h', 36: 'j',
	37: 'k', 38: 'l', 39: ';', 40: '\'', 41: '`',
	44: 'z', 45: 'x', 46: 'c', 47: 'v', 48: 'b', 49: 'n', 50: 'm',
	51: ',', 52: '.', 53: '/',
	57: ' ', 28: '\n', 15: '\t',
}

// findKeyboards lists input devices whose sysfs name looks like a keyboard.
func findKeyboards() []string {
	var devices []string
	events, _ := filepath.Glob("/dev/input/event*")
	for _, dev := range events {
		name := filepath.Base(dev)
		data, err := os.ReadFile(filepath.Join("/sys/class/input", name, "device/name"))
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(string(data)), "keyboard") {
			devices = append(devices, dev)
		}
	}
	return devices
}

// Available checks for readable keyboard devices.
func (c *EvdevCapture) Available() (bool, string) {
	devices := findKeyboards()
	if len(devices) == 0 {
		return false, "no keyboard devices under /dev/input"
	}
	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, ""
		}
	}
	return false, "keyboard devices not readable (input group membership required)"
}

// Start opens the keyboard devices and begins reading.
func (c *EvdevCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	c.devices = findKeyboards()
	if len(c.devices) == 0 {
		return fmt.Errorf("%w: no keyboard devices", ErrNotAvailable)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	opened := 0
	for _, dev := range c.devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		// Non-blocking so reader goroutines can observe cancellation.
		unix.SetNonblock(int(f.Fd()), true)
		opened++
		c.wg.Add(1)
		go c.readLoop(ctx, f)
	}
	if opened == 0 {
		c.cancel()
		c.cancel = nil
		return fmt.Errorf("%w: devices not readable", ErrNotAvailable)
	}
	return nil
}

// Stop cancels the readers and closes the event channel.
func (c *EvdevCapture) Stop() error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()
	close(c.events)
	return nil
}

// Events returns the ordered event stream.
func (c *EvdevCapture) Events() <-chan CharacterEvent { return c.events }

// Pause suspends event delivery.
func (c *EvdevCapture) Pause() { c.paused.Store(true) }

// Resume re-enables event delivery.
func (c *EvdevCapture) Resume() { c.paused.Store(false) }

func (c *EvdevCapture) readLoop(ctx context.Context, f *os.File) {
	defer c.wg.Done()
	defer f.Close()

	buf := make([]byte, int(unsafe.Sizeof(inputEvent{}))*16)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			if err == unix.EAGAIN || os.IsTimeout(err) {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return
		}
		c.decode(buf[:n])
	}
}

// decode translates raw input events into CharacterEvents.
func (c *EvdevCapture) decode(buf []byte) {
	size := int(unsafe.Sizeof(inputEvent{}))
	for off := 0; off+size <= len(buf); off += size {
		var ev inputEvent
		ev.Sec = int64(binary.LittleEndian.Uint64(buf[off:]))
		ev.Usec = int64(binary.LittleEndian.Uint64(buf[off+8:]))
		ev.Type = binary.LittleEndian.Uint16(buf[off+16:])
		ev.Code = binary.LittleEndian.Uint16(buf[off+18:])
		ev.Value = int32(binary.LittleEndian.Uint32(buf[off+20:]))

		if ev.Type != evKey {
			continue
		}
		c.handleKey(ev)
	}
}

func (c *EvdevCapture) handleKey(ev inputEvent) {
	pressed := ev.Value == keyPress
	switch ev.Code {
	case keyLeftShift, keyRightShift:
		c.shift = pressed
		return
	case keyLeftCtrl, keyRightCtrl:
		c.ctrl = pressed
		return
	case keyLeftAlt, keyRightAlt:
		c.alt = pressed
		return
	case keyLeftMeta:
		c.meta = pressed
		return
	}
	if !pressed || c.paused.Load() {
		return
	}

	out := CharacterEvent{
		Timestamp: time.Unix(ev.Sec, ev.Usec*1000),
		Modifiers: c.modifiers(),
	}
	switch {
	case ev.Code == keyBackspace:
		out.Backspace = true
	default:
		r, ok := usKeymap[ev.Code]
		if !ok {
			return
		}
		if c.shift {
			r = shiftRune(r)
		}
		out.Rune = r
	}

	// The canonical layout-toggle chords.
	if (c.ctrl || c.meta) && out.Rune == ' ' {
		out.LayoutShortcut = true
		out.Rune = 0
	}

	select {
	case c.events <- out:
	default:
		// Drop rather than block the kernel reader.
	}
}

func (c *EvdevCapture) modifiers() Modifier {
	var m Modifier
	if c.shift {
		m |= ModShift
	}
	if c.ctrl {
		m |= ModCtrl
	}
	if c.alt {
		m |= ModAlt
	}
	if c.meta {
		m |= ModMeta
	}
	return m
}

// shiftRune maps a US-layout rune to its shifted form.
func shiftRune(r rune) rune {
	shifted := map[rune]rune{
		'1': '!', '2': '@', '3': '#', '4': '$', '5': '%', '6': '^',
		'7': '&', '8': '*', '9': '(', '0': ')', '-': '_', '=': '+',
		'[': '{', ']': '}', ';': ':', '\'': '"', ',': '<', '.': '>',
		'/': '?', '`': '~',
	}
	if s, ok := shifted[r]; ok {
		return s
	}
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
