// Package layout implements the layered keymap engine: action resolution
// across a stack of layers, per-key state machines for tap/hold style keys,
// and the ordered emission of host key events.
package layout

import (
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// Keycode identifies a host-visible key. The engine treats it as an opaque
// value apart from the modifier check in IsModifier.
type Keycode = evdev.EvCode

// KeyCoords addresses one physical key as (block, row, column).
type KeyCoords struct {
	Block uint8
	Row   uint8
	Col   uint8
}

// TransitionKind enumerates the physical key transitions fed to the engine.
type TransitionKind uint8

const (
	TransitionPressed TransitionKind = iota
	TransitionReleased
	// TransitionClick is a press and release at the same instant. It produces
	// exactly the emissions of Pressed followed by Released.
	TransitionClick
	// TransitionLongPress is advisory: the input adapter has decided the key
	// has been held past the long-press delay. Repeats are idempotent.
	TransitionLongPress
)

// KeyStateChange is one input transition on one physical key.
type KeyStateChange struct {
	Kind   TransitionKind
	Coords KeyCoords
}

func Pressed(c KeyCoords) KeyStateChange   { return KeyStateChange{TransitionPressed, c} }
func Released(c KeyCoords) KeyStateChange  { return KeyStateChange{TransitionReleased, c} }
func Click(c KeyCoords) KeyStateChange     { return KeyStateChange{TransitionClick, c} }
func LongPress(c KeyCoords) KeyStateChange { return KeyStateChange{TransitionLongPress, c} }

// TapThreshold separates a tap from a hold. A release at or below the
// threshold counts as a tap; a LongPress transition is only honored once the
// key has been down strictly longer than it.
const TapThreshold = 200 * time.Millisecond

// ActionKind discriminates the Action sum type.
type ActionKind uint8

const (
	ActionPass ActionKind = iota
	ActionInherit
	ActionNo
	ActionKey
	ActionLong
	ActionHold
	ActionTap
	ActionActivate
	ActionDeactivate
	ActionHoldTapLayer
	ActionHoldTapKey
	ActionKeyHoldLayer
	ActionKeyHoldTapLayer
)

// Action is what a keymap cell does. It is a closed tagged sum; only the
// fields relevant to Kind are meaningful.
type Action struct {
	Kind ActionKind

	// Group is the emitted key group: the whole of Key, the short group of
	// Long, and the tap group of HoldTapKey, KeyHoldLayer and KeyHoldTapLayer.
	Group KeyGroup

	// LongGroup is the long alternative of Long.
	LongGroup KeyGroup

	// Layer is the layer operand: the target of Hold, Tap, Activate and
	// Deactivate, and the hold layer of the dual-function variants.
	Layer int

	// TapLayer is the tap target of HoldTapLayer.
	TapLayer int
}

// Pass falls through to the next lower layer mapping this coordinate.
func Pass() Action { return Action{Kind: ActionPass} }

// Inherit resolves at the layer's inherit target, falling through when unset.
func Inherit() Action { return Action{Kind: ActionInherit} }

// No is an explicit no-op that stops resolution.
func No() Action { return Action{Kind: ActionNo} }

// Key presses the group on physical down and releases it on physical up.
func Key(g KeyGroup) Action { return Action{Kind: ActionKey, Group: g} }

// Long emits short as a click on release, or long as a click on the first
// honored LongPress.
func Long(short, long KeyGroup) Action {
	return Action{Kind: ActionLong, Group: short, LongGroup: long}
}

// Hold keeps the layer active while the physical key is held.
func Hold(layer int) Action { return Action{Kind: ActionHold, Layer: layer} }

// Tap activates the layer until the next consuming keypress.
func Tap(layer int) Action { return Action{Kind: ActionTap, Layer: layer} }

// Activate explicitly activates the layer. Idempotent.
func Activate(layer int) Action { return Action{Kind: ActionActivate, Layer: layer} }

// Deactivate explicitly deactivates the layer. Idempotent.
func Deactivate(layer int) Action { return Action{Kind: ActionDeactivate, Layer: layer} }

// HoldTapLayer holds hold while pressed; a quick release switches to tap
// until consumed.
func HoldTapLayer(hold, tap int) Action {
	return Action{Kind: ActionHoldTapLayer, Layer: hold, TapLayer: tap}
}

// HoldTapKey holds the layer while pressed; a quick release clicks the group.
func HoldTapKey(hold int, tap KeyGroup) Action {
	return Action{Kind: ActionHoldTapKey, Layer: hold, Group: tap}
}

// KeyHoldLayer clicks the group on a quick release; a long press activates
// the layer for the remainder of the hold.
func KeyHoldLayer(tap KeyGroup, hold int) Action {
	return Action{Kind: ActionKeyHoldLayer, Group: tap, Layer: hold}
}

// KeyHoldTapLayer is KeyHoldLayer whose promoted layer outlives the hold and
// deactivates on the next consuming keypress.
func KeyHoldTapLayer(tap KeyGroup, hold int) Action {
	return Action{Kind: ActionKeyHoldTapLayer, Group: tap, Layer: hold}
}
