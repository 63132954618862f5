package layout

// keyPhase is the finite state of one pressed physical key.
type keyPhase uint8

const (
	// phaseInert covers No, Activate and Deactivate: the release has nothing
	// left to do, but the record still pairs it with this press.
	phaseInert keyPhase = iota
	phaseHeldKey
	phasePendingLong
	phaseLongDone
	phaseHeldLayer
	phaseHeldTap
	phasePendingHoldTap
	phasePendingKeyHold
)

// keyState pairs a physical press with the action and layer that resolved
// it, so the release replays against the same cell even after the layer
// stack has shifted.
type keyState struct {
	coords    KeyCoords
	action    Action
	layer     int // resolving layer id, NoLayer when nothing matched
	pressedAt uint64
	phase     keyPhase

	// exceeded is set on HoldTap* keys once a LongPress put them past the
	// tap threshold.
	exceeded bool

	// promoted is set on KeyHold* keys once the hold layer activated.
	promoted bool

	// mask is the modifier mask applied around this key's press, restored on
	// release.
	mask *maskRecord
}
