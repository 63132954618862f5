package layout

import (
	"sort"
	"time"
)

// consumable marks a tap-activated layer that the next consuming keypress
// deactivates. Consumption waits until the activator key is physically up.
type consumable struct {
	layer        int
	activator    KeyCoords
	hasActivator bool
}

// LayerSwitcher is the engine dispatcher. It owns the layer stack, the
// per-key state machines and the emission buffer. It is single-threaded and
// purely synchronous: one ProcessKeyEvent call is one atomic step, and the
// caller supplies a monotonic millisecond timestamp on every call.
type LayerSwitcher struct {
	layers      []Layer
	status      []LayerStatus
	timeoutAt   []uint64 // 0 = not armed
	consumables []consumable
	keys        map[KeyCoords]*keyState
	held        map[KeyCoords]bool
	em          *emitter
	used        []Keycode
}

// NewLayerSwitcher validates the layer configuration and builds an engine.
// Layer 0 is the default layer and must be active on reset; every layer
// reference must be in range and inherit chains must terminate.
func NewLayerSwitcher(layers []Layer) (*LayerSwitcher, error) {
	if err := validateLayers(layers); err != nil {
		return nil, err
	}
	ls := &LayerSwitcher{
		layers:    layers,
		status:    make([]LayerStatus, len(layers)),
		timeoutAt: make([]uint64, len(layers)),
		keys:      make(map[KeyCoords]*keyState),
		held:      make(map[KeyCoords]bool),
		em:        newEmitter(),
	}
	ls.used = collectUsedKeys(layers)
	return ls, nil
}

// Start resets the stack: layer 0 becomes active, every other layer is live
// only if its reset status is Active. OnActiveKeys of layers active at reset
// are pressed and their timeouts armed.
func (ls *LayerSwitcher) Start() {
	for id := range ls.layers {
		if id == 0 || ls.layers[id].StatusOnReset == LayerActive {
			ls.status[id] = LayerActive
		} else {
			ls.status[id] = LayerDisabled
		}
	}
	for id := range ls.layers {
		if ls.status[id] != LayerActive {
			continue
		}
		for _, k := range ls.layers[id].OnActiveKeys {
			ls.em.press(k)
		}
		ls.armTimeout(id, 0)
	}
}

// ProcessKeyEvent feeds one transition into the engine. Pending layer
// timeouts are advanced to at before the transition is handled.
func (ls *LayerSwitcher) ProcessKeyEvent(ev KeyStateChange, at uint64) {
	ls.advanceTimeouts(at)
	switch ev.Kind {
	case TransitionPressed:
		ls.handlePress(ev.Coords, at)
	case TransitionReleased:
		ls.handleRelease(ev.Coords, at)
	case TransitionClick:
		ls.handlePress(ev.Coords, at)
		ls.handleRelease(ev.Coords, at)
	case TransitionLongPress:
		ls.handleLongPress(ev.Coords, at)
	}
}

// Render drains the pending emissions in FIFO order. The visitor must not
// re-enter the engine.
func (ls *LayerSwitcher) Render(visit func(code Keycode, pressed bool)) {
	ls.em.drain(visit)
}

// ActiveLayers returns the live layer ids in ascending order.
func (ls *LayerSwitcher) ActiveLayers() []int {
	var ids []int
	for id := range ls.layers {
		if ls.status[id] != LayerDisabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// UsedKeys returns every keycode the configuration can ever emit, for
// device-capability registration.
func (ls *LayerSwitcher) UsedKeys() []Keycode {
	out := make([]Keycode, len(ls.used))
	copy(out, ls.used)
	return out
}

// resolve walks the live layers from the highest id down and returns the
// first concrete action for c together with the id of the layer owning the
// concrete cell. Inherit cells hop to their layer's inherit target; with no
// target set they fall through like Pass.
func (ls *LayerSwitcher) resolve(c KeyCoords) (Action, int) {
	for id := len(ls.layers) - 1; id >= 0; id-- {
		if ls.status[id] == LayerDisabled {
			continue
		}
		act, ok := ls.layers[id].cellAt(c)
		if !ok {
			if ls.status[id] == LayerPassthrough {
				continue
			}
			act = ls.layers[id].DefaultAction
		}
		owner := id
		for act.Kind == ActionInherit {
			target := ls.layers[owner].Inherit
			if target == NoLayer {
				act = Pass()
				break
			}
			owner = target
			if act, ok = ls.layers[owner].cellAt(c); !ok {
				act = ls.layers[owner].DefaultAction
			}
		}
		if act.Kind == ActionPass {
			continue
		}
		return act, owner
	}
	return No(), NoLayer
}

func (ls *LayerSwitcher) handlePress(c KeyCoords, at uint64) {
	ls.held[c] = true
	if _, exists := ls.keys[c]; exists {
		// Repeated press without a release; the first one still drives the key.
		return
	}
	act, owner := ls.resolve(c)
	st := &keyState{coords: c, action: act, layer: owner, pressedAt: at, phase: phaseInert}
	ls.keys[c] = st

	mark := ls.em.size()
	switch act.Kind {
	case ActionNo:
	case ActionKey:
		ls.emitGroupPress(st)
		st.phase = phaseHeldKey
	case ActionLong:
		st.phase = phasePendingLong
	case ActionHold:
		ls.activate(act.Layer, &c, at, false)
		st.phase = phaseHeldLayer
	case ActionTap:
		ls.activate(act.Layer, &c, at, true)
		st.phase = phaseHeldTap
	case ActionActivate:
		ls.activate(act.Layer, nil, at, false)
	case ActionDeactivate:
		ls.deactivate(act.Layer)
	case ActionHoldTapLayer, ActionHoldTapKey:
		ls.activate(act.Layer, &c, at, false)
		st.phase = phasePendingHoldTap
	case ActionKeyHoldLayer, ActionKeyHoldTapLayer:
		st.phase = phasePendingKeyHold
	}

	// A press whose effects emitted anything consumes pending tap layers.
	if ls.em.size() > mark {
		ls.consumeTapLayers()
	}
}

func (ls *LayerSwitcher) handleRelease(c KeyCoords, at uint64) {
	delete(ls.held, c)
	st, ok := ls.keys[c]
	if !ok {
		// Release without a matching press; never emit unpaired releases.
		return
	}
	delete(ls.keys, c)

	switch st.phase {
	case phaseHeldKey:
		ls.emitGroupRelease(st)
	case phasePendingLong:
		ls.emitClick(st.layer, st.action.Group)
	case phaseHeldLayer:
		ls.deactivate(st.action.Layer)
	case phaseHeldTap:
		// The tap layer stays active until consumed.
	case phasePendingHoldTap:
		ls.deactivate(st.action.Layer)
		if !st.exceeded && elapsed(st.pressedAt, at) <= TapThreshold {
			if st.action.Kind == ActionHoldTapLayer {
				ls.activate(st.action.TapLayer, &c, at, true)
			} else {
				ls.emitClick(st.layer, st.action.Group)
			}
		}
	case phasePendingKeyHold:
		switch {
		case st.promoted && st.action.Kind == ActionKeyHoldLayer:
			ls.deactivate(st.action.Layer)
		case st.promoted:
			// KeyHoldTapLayer: the layer outlives the hold as tap-consumable.
		case elapsed(st.pressedAt, at) <= TapThreshold:
			ls.emitClick(st.layer, st.action.Group)
		}
	}
}

func (ls *LayerSwitcher) handleLongPress(c KeyCoords, at uint64) {
	st, ok := ls.keys[c]
	if !ok {
		return
	}
	// The adapter may fire early or repeat; only a LongPress past the tap
	// threshold counts, and only the first one transitions the machine.
	if elapsed(st.pressedAt, at) <= TapThreshold {
		return
	}
	switch st.phase {
	case phasePendingLong:
		ls.emitClick(st.layer, st.action.LongGroup)
		st.phase = phaseLongDone
	case phasePendingHoldTap:
		st.exceeded = true
	case phasePendingKeyHold:
		if st.promoted {
			return
		}
		st.promoted = true
		ls.activate(st.action.Layer, &c, at, st.action.Kind == ActionKeyHoldTapLayer)
	}
}

// activate makes the layer live. Hold-style activations give Passthrough to a
// layer declared Passthrough on reset and Active to any other; tap-style ones
// are Passthrough and registered as consumable. Idempotent on already live
// layers.
func (ls *LayerSwitcher) activate(id int, by *KeyCoords, at uint64, tap bool) {
	if ls.status[id] != LayerDisabled {
		return
	}
	if tap || ls.layers[id].StatusOnReset == LayerPassthrough {
		ls.status[id] = LayerPassthrough
	} else {
		ls.status[id] = LayerActive
	}
	for _, k := range ls.layers[id].OnActiveKeys {
		ls.em.press(k)
	}
	ls.armTimeout(id, at)
	if tap {
		rec := consumable{layer: id}
		if by != nil {
			rec.activator = *by
			rec.hasActivator = true
		}
		ls.consumables = append(ls.consumables, rec)
	}
}

// deactivate disables the layer and releases its OnActiveKeys in reverse
// order. Keys currently suppressed by a mask are dropped from the pending
// restore instead, so unmask will not bring them back. Layer 0 never
// deactivates.
func (ls *LayerSwitcher) deactivate(id int) {
	if id == 0 || ls.status[id] == LayerDisabled {
		return
	}
	ls.status[id] = LayerDisabled
	keys := ls.layers[id].OnActiveKeys
	for i := len(keys) - 1; i >= 0; i-- {
		if ls.em.isDown(keys[i]) {
			ls.em.release(keys[i])
		} else {
			ls.em.cancelMasked(keys[i])
		}
	}
	ls.timeoutAt[id] = 0
	kept := ls.consumables[:0]
	for _, rec := range ls.consumables {
		if rec.layer != id {
			kept = append(kept, rec)
		}
	}
	ls.consumables = kept
}

// consumeTapLayers deactivates every consumable layer whose activator key is
// no longer physically held, most recently activated first.
func (ls *LayerSwitcher) consumeTapLayers() {
	var due []int
	for i := len(ls.consumables) - 1; i >= 0; i-- {
		rec := ls.consumables[i]
		if rec.hasActivator && ls.held[rec.activator] {
			continue
		}
		due = append(due, rec.layer)
	}
	for _, id := range due {
		ls.deactivate(id)
	}
}

func (ls *LayerSwitcher) armTimeout(id int, at uint64) {
	if t := ls.layers[id].Timeout; t > 0 {
		ls.timeoutAt[id] = at + uint64(t.Milliseconds())
	}
}

// advanceTimeouts fires every armed layer timeout that at has passed,
// deactivating the layer and activating its timeout target if configured.
func (ls *LayerSwitcher) advanceTimeouts(at uint64) {
	for id := range ls.layers {
		if ls.status[id] == LayerDisabled || ls.timeoutAt[id] == 0 || at < ls.timeoutAt[id] {
			continue
		}
		ls.deactivate(id)
		if target := ls.layers[id].OnTimeoutLayer; target != NoLayer {
			ls.activate(target, nil, at, false)
		}
	}
}

// maskModsFor combines the group's own masked modifiers with the resolving
// layer's OnActiveKeys when that layer disables them around non-modifier
// emissions.
func (ls *LayerSwitcher) maskModsFor(owner int, g KeyGroup) []Keycode {
	mods := append([]Keycode(nil), g.Mask...)
	if owner != NoLayer {
		l := &ls.layers[owner]
		if l.DisableActiveOnPress && g.hasNonModifier() {
			mods = append(mods, l.OnActiveKeys...)
		}
	}
	return mods
}

func (ls *LayerSwitcher) emitGroupPress(st *keyState) {
	g := st.action.Group
	if mods := ls.maskModsFor(st.layer, g); len(mods) > 0 {
		st.mask = ls.em.mask(mods)
	}
	for _, k := range g.pressOrder() {
		ls.em.press(k)
	}
}

func (ls *LayerSwitcher) emitGroupRelease(st *keyState) {
	order := st.action.Group.pressOrder()
	for i := len(order) - 1; i >= 0; i-- {
		ls.em.release(order[i])
	}
	if st.mask != nil {
		ls.em.unmask(st.mask)
		st.mask = nil
	}
}

// emitClick emits a full press and release of the group, applying the
// masking protocol around the whole click.
func (ls *LayerSwitcher) emitClick(owner int, g KeyGroup) {
	if g.empty() {
		return
	}
	var rec *maskRecord
	if mods := ls.maskModsFor(owner, g); len(mods) > 0 {
		rec = ls.em.mask(mods)
	}
	order := g.pressOrder()
	for _, k := range order {
		ls.em.press(k)
	}
	for i := len(order) - 1; i >= 0; i-- {
		ls.em.release(order[i])
	}
	ls.em.unmask(rec)
}

func elapsed(from, to uint64) time.Duration {
	if to < from {
		return 0
	}
	return time.Duration(to-from) * time.Millisecond
}

func collectUsedKeys(layers []Layer) []Keycode {
	set := make(map[Keycode]bool)
	addGroup := func(g KeyGroup) {
		for _, k := range g.Keys {
			set[k] = true
		}
		for _, k := range g.Mask {
			set[k] = true
		}
	}
	for id := range layers {
		for _, k := range layers[id].OnActiveKeys {
			set[k] = true
		}
		layers[id].eachAction(func(a Action) {
			addGroup(a.Group)
			addGroup(a.LongGroup)
		})
	}
	out := make([]Keycode, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
