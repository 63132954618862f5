// Package mappings translates between profile files and the engine
// configuration: key name tables, the action grammar and YAML profiles.
package mappings

import (
	"strings"

	evdev "github.com/holoplot/go-evdev"

	"github.com/uplg/layerd/internal/layout"
)

// NameToKeyCode maps canonical key names (uppercase, without the KEY_
// prefix) to evdev key codes.
var NameToKeyCode = map[string]layout.Keycode{
	"ESC":          evdev.KEY_ESC,
	"1":            evdev.KEY_1,
	"2":            evdev.KEY_2,
	"3":            evdev.KEY_3,
	"4":            evdev.KEY_4,
	"5":            evdev.KEY_5,
	"6":            evdev.KEY_6,
	"7":            evdev.KEY_7,
	"8":            evdev.KEY_8,
	"9":            evdev.KEY_9,
	"0":            evdev.KEY_0,
	"MINUS":        evdev.KEY_MINUS,
	"EQUAL":        evdev.KEY_EQUAL,
	"BACKSPACE":    evdev.KEY_BACKSPACE,
	"TAB":          evdev.KEY_TAB,
	"Q":            evdev.KEY_Q,
	"W":            evdev.KEY_W,
	"E":            evdev.KEY_E,
	"R":            evdev.KEY_R,
	"T":            evdev.KEY_T,
	"Y":            evdev.KEY_Y,
	"U":            evdev.KEY_U,
	"I":            evdev.KEY_I,
	"O":            evdev.KEY_O,
	"P":            evdev.KEY_P,
	"LEFTBRACE":    evdev.KEY_LEFTBRACE,
	"RIGHTBRACE":   evdev.KEY_RIGHTBRACE,
	"ENTER":        evdev.KEY_ENTER,
	"LEFTCTRL":     evdev.KEY_LEFTCTRL,
	"A":            evdev.KEY_A,
	"S":            evdev.KEY_S,
	"D":            evdev.KEY_D,
	"F":            evdev.KEY_F,
	"G":            evdev.KEY_G,
	"H":            evdev.KEY_H,
	"J":            evdev.KEY_J,
	"K":            evdev.KEY_K,
	"L":            evdev.KEY_L,
	"SEMICOLON":    evdev.KEY_SEMICOLON,
	"APOSTROPHE":   evdev.KEY_APOSTROPHE,
	"GRAVE":        evdev.KEY_GRAVE,
	"LEFTSHIFT":    evdev.KEY_LEFTSHIFT,
	"BACKSLASH":    evdev.KEY_BACKSLASH,
	"Z":            evdev.KEY_Z,
	"X":            evdev.KEY_X,
	"C":            evdev.KEY_C,
	"V":            evdev.KEY_V,
	"B":            evdev.KEY_B,
	"N":            evdev.KEY_N,
	"M":            evdev.KEY_M,
	"COMMA":        evdev.KEY_COMMA,
	"DOT":          evdev.KEY_DOT,
	"SLASH":        evdev.KEY_SLASH,
	"RIGHTSHIFT":   evdev.KEY_RIGHTSHIFT,
	"KPASTERISK":   evdev.KEY_KPASTERISK,
	"LEFTALT":      evdev.KEY_LEFTALT,
	"SPACE":        evdev.KEY_SPACE,
	"CAPSLOCK":     evdev.KEY_CAPSLOCK,
	"F1":           evdev.KEY_F1,
	"F2":           evdev.KEY_F2,
	"F3":           evdev.KEY_F3,
	"F4":           evdev.KEY_F4,
	"F5":           evdev.KEY_F5,
	"F6":           evdev.KEY_F6,
	"F7":           evdev.KEY_F7,
	"F8":           evdev.KEY_F8,
	"F9":           evdev.KEY_F9,
	"F10":          evdev.KEY_F10,
	"F11":          evdev.KEY_F11,
	"F12":          evdev.KEY_F12,
	"NUMLOCK":      evdev.KEY_NUMLOCK,
	"SCROLLLOCK":   evdev.KEY_SCROLLLOCK,
	"KP7":          evdev.KEY_KP7,
	"KP8":          evdev.KEY_KP8,
	"KP9":          evdev.KEY_KP9,
	"KPMINUS":      evdev.KEY_KPMINUS,
	"KP4":          evdev.KEY_KP4,
	"KP5":          evdev.KEY_KP5,
	"KP6":          evdev.KEY_KP6,
	"KPPLUS":       evdev.KEY_KPPLUS,
	"KP1":          evdev.KEY_KP1,
	"KP2":          evdev.KEY_KP2,
	"KP3":          evdev.KEY_KP3,
	"KP0":          evdev.KEY_KP0,
	"KPDOT":        evdev.KEY_KPDOT,
	"KPENTER":      evdev.KEY_KPENTER,
	"KPSLASH":      evdev.KEY_KPSLASH,
	"RIGHTCTRL":    evdev.KEY_RIGHTCTRL,
	"RIGHTALT":     evdev.KEY_RIGHTALT,
	"HOME":         evdev.KEY_HOME,
	"UP":           evdev.KEY_UP,
	"PAGEUP":       evdev.KEY_PAGEUP,
	"LEFT":         evdev.KEY_LEFT,
	"RIGHT":        evdev.KEY_RIGHT,
	"END":          evdev.KEY_END,
	"DOWN":         evdev.KEY_DOWN,
	"PAGEDOWN":     evdev.KEY_PAGEDOWN,
	"INSERT":       evdev.KEY_INSERT,
	"DELETE":       evdev.KEY_DELETE,
	"LEFTMETA":     evdev.KEY_LEFTMETA,
	"RIGHTMETA":    evdev.KEY_RIGHTMETA,
	"102ND":        evdev.KEY_102ND,
	"COMPOSE":      evdev.KEY_COMPOSE,
	"SYSRQ":        evdev.KEY_SYSRQ,
	"PAUSE":        evdev.KEY_PAUSE,
	"MUTE":         evdev.KEY_MUTE,
	"VOLUMEDOWN":   evdev.KEY_VOLUMEDOWN,
	"VOLUMEUP":     evdev.KEY_VOLUMEUP,
	"PLAYPAUSE":    evdev.KEY_PLAYPAUSE,
	"NEXTSONG":     evdev.KEY_NEXTSONG,
	"PREVIOUSSONG": evdev.KEY_PREVIOUSSONG,
}

// KeyCodeToName is the reverse mapping, for logging.
var KeyCodeToName map[layout.Keycode]string

func init() {
	KeyCodeToName = make(map[layout.Keycode]string, len(NameToKeyCode))
	for name, code := range NameToKeyCode {
		KeyCodeToName[code] = name
	}
}

// LookupKey resolves a key name from a profile file. Names are
// case-insensitive and may carry the KEY_ prefix.
func LookupKey(name string) (layout.Keycode, bool) {
	canonical := strings.ToUpper(strings.TrimSpace(name))
	canonical = strings.TrimPrefix(canonical, "KEY_")
	code, ok := NameToKeyCode[canonical]
	return code, ok
}

// KeyName returns the canonical name of a keycode, or "unknown".
func KeyName(code layout.Keycode) string {
	if name, ok := KeyCodeToName[code]; ok {
		return name
	}
	return "unknown"
}
