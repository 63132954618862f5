package layout

import evdev "github.com/holoplot/go-evdev"

// modifierCodes is the fixed set of keycodes the engine treats as modifiers.
var modifierCodes = map[Keycode]bool{
	evdev.KEY_LEFTSHIFT:  true,
	evdev.KEY_RIGHTSHIFT: true,
	evdev.KEY_LEFTCTRL:   true,
	evdev.KEY_RIGHTCTRL:  true,
	evdev.KEY_LEFTALT:    true,
	evdev.KEY_RIGHTALT:   true,
	evdev.KEY_LEFTMETA:   true,
	evdev.KEY_RIGHTMETA:  true,
}

// IsModifier reports whether the keycode is in the fixed modifier set.
func IsModifier(k Keycode) bool {
	return modifierCodes[k]
}

// KeyGroup is an ordered sequence of keycodes emitted together. Pressing the
// group emits its modifiers first and its other keycodes after; releasing
// reverses that order. Mask lists host modifiers that must be temporarily
// released around the group's emission.
type KeyGroup struct {
	Keys []Keycode
	Mask []Keycode
}

// Group builds a KeyGroup from the given keycodes.
func Group(keys ...Keycode) KeyGroup {
	return KeyGroup{Keys: keys}
}

// Masking returns a copy of the group that masks the given modifiers while
// it is emitted.
func (g KeyGroup) Masking(mods ...Keycode) KeyGroup {
	out := KeyGroup{Keys: g.Keys}
	out.Mask = append(append([]Keycode(nil), g.Mask...), mods...)
	return out
}

// pressOrder returns the group's keycodes in emission order for a press:
// modifiers first, then the rest, each preserving declaration order.
func (g KeyGroup) pressOrder() []Keycode {
	order := make([]Keycode, 0, len(g.Keys))
	for _, k := range g.Keys {
		if IsModifier(k) {
			order = append(order, k)
		}
	}
	for _, k := range g.Keys {
		if !IsModifier(k) {
			order = append(order, k)
		}
	}
	return order
}

// hasNonModifier reports whether the group emits anything beyond modifiers.
func (g KeyGroup) hasNonModifier() bool {
	for _, k := range g.Keys {
		if !IsModifier(k) {
			return true
		}
	}
	return false
}

// empty reports whether the group emits nothing at all.
func (g KeyGroup) empty() bool {
	return len(g.Keys) == 0
}
