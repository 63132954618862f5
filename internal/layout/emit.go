package layout

// emitter is the FIFO of pending host key events produced during one
// dispatcher call. It tracks how many presses of each keycode are
// outstanding so the engine never emits an unpaired release, and it owns the
// modifier masking protocol.
type emitter struct {
	queue []emission
	down  map[Keycode]int
	masks []*maskRecord
}

type emission struct {
	Code    Keycode
	Pressed bool
}

// maskRecord remembers the modifiers a mask call actually released, in
// original order, so unmask can restore exactly those still wanted.
type maskRecord struct {
	mods []Keycode
}

func newEmitter() *emitter {
	return &emitter{down: make(map[Keycode]int)}
}

func (e *emitter) size() int { return len(e.queue) }

func (e *emitter) press(k Keycode) {
	e.down[k]++
	e.queue = append(e.queue, emission{k, true})
}

// release appends a release only when a matching press is outstanding.
func (e *emitter) release(k Keycode) {
	if e.down[k] == 0 {
		return
	}
	e.down[k]--
	e.queue = append(e.queue, emission{k, false})
}

func (e *emitter) isDown(k Keycode) bool { return e.down[k] > 0 }

// mask releases every currently held modifier in mods and records it for
// restoration. Returns nil when nothing was held.
func (e *emitter) mask(mods []Keycode) *maskRecord {
	var rec *maskRecord
	for _, m := range mods {
		if !e.isDown(m) {
			continue
		}
		e.release(m)
		if rec == nil {
			rec = &maskRecord{}
		}
		rec.mods = append(rec.mods, m)
	}
	if rec != nil {
		e.masks = append(e.masks, rec)
	}
	return rec
}

// unmask re-presses the record's modifiers in original order. Modifiers
// whose owning layer deactivated in the meantime were dropped from the
// record by cancelMasked and stay up.
func (e *emitter) unmask(rec *maskRecord) {
	if rec == nil {
		return
	}
	for _, m := range rec.mods {
		e.press(m)
	}
	for i, r := range e.masks {
		if r == rec {
			e.masks = append(e.masks[:i], e.masks[i+1:]...)
			break
		}
	}
}

// cancelMasked drops k from every pending mask record: the modifier is no
// longer logically held, so unmask must not restore it.
func (e *emitter) cancelMasked(k Keycode) {
	for _, rec := range e.masks {
		kept := rec.mods[:0]
		for _, m := range rec.mods {
			if m != k {
				kept = append(kept, m)
			}
		}
		rec.mods = kept
	}
}

// drain delivers and clears the queued emissions in FIFO order.
func (e *emitter) drain(visit func(Keycode, bool)) {
	for _, ev := range e.queue {
		visit(ev.Code, ev.Pressed)
	}
	e.queue = e.queue[:0]
}
