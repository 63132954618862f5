package keyboard

import (
	"fmt"
	"log/slog"

	"github.com/bendahl/uinput"

	"github.com/uplg/layerd/internal/layout"
)

// maxKeyCode is the highest key code the uinput keyboard registers.
const maxKeyCode = 248

// VirtualKeyboard injects the engine's synthetic key events into the OS.
type VirtualKeyboard struct {
	keyboard uinput.Keyboard
	logger   *slog.Logger
}

// NewVirtualKeyboard creates a new virtual keyboard for output.
func NewVirtualKeyboard(name string, logger *slog.Logger) (*VirtualKeyboard, error) {
	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte(name))
	if err != nil {
		return nil, fmt.Errorf("creating virtual keyboard: %w", err)
	}

	return &VirtualKeyboard{
		keyboard: kb,
		logger:   logger,
	}, nil
}

// Close releases the virtual keyboard.
func (vk *VirtualKeyboard) Close() error {
	return vk.keyboard.Close()
}

// Key emits one engine emission: a press or a release of a keycode.
func (vk *VirtualKeyboard) Key(code layout.Keycode, pressed bool) error {
	if pressed {
		return vk.keyboard.KeyDown(int(code))
	}
	return vk.keyboard.KeyUp(int(code))
}

// Supports reports whether the virtual device can emit the keycode.
func (vk *VirtualKeyboard) Supports(code layout.Keycode) bool {
	return int(code) <= maxKeyCode
}

// Forward forwards a raw event unchanged.
func (vk *VirtualKeyboard) Forward(code layout.Keycode, value int32) error {
	switch value {
	case 0: // Release
		return vk.keyboard.KeyUp(int(code))
	case 1: // Press
		return vk.keyboard.KeyDown(int(code))
	case 2: // Repeat - the key is already down, another KeyDown triggers
		// repeat in the kernel
		return vk.keyboard.KeyDown(int(code))
	}
	return nil
}
