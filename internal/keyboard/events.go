package keyboard

import (
	"syscall"

	"github.com/uplg/layerd/internal/layout"
)

// KeyEvent represents a raw key press, release or repeat from a device.
type KeyEvent struct {
	Code      layout.Keycode
	Value     int32 // 0=release, 1=press, 2=repeat
	Timestamp syscall.Timeval
	Device    *Device
}

// IsPress returns true if this is a key press event.
func (e *KeyEvent) IsPress() bool {
	return e.Value == 1
}

// IsRelease returns true if this is a key release event.
func (e *KeyEvent) IsRelease() bool {
	return e.Value == 0
}

// IsRepeat returns true if this is a key repeat event.
func (e *KeyEvent) IsRepeat() bool {
	return e.Value == 2
}
