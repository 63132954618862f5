package layout

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
)

func drainAll(e *emitter) []emission {
	var got []emission
	e.drain(func(k Keycode, pressed bool) {
		got = append(got, emission{k, pressed})
	})
	return got
}

func TestEmitterNeverEmitsUnpairedRelease(t *testing.T) {
	e := newEmitter()
	e.release(evdev.KEY_B)
	if got := drainAll(e); len(got) != 0 {
		t.Fatalf("unpaired release emitted: %v", got)
	}

	e.press(evdev.KEY_B)
	e.release(evdev.KEY_B)
	e.release(evdev.KEY_B)
	got := drainAll(e)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	if e.isDown(evdev.KEY_B) {
		t.Fatal("key should be up")
	}
}

func TestEmitterMaskSkipsKeysNotDown(t *testing.T) {
	e := newEmitter()
	e.press(evdev.KEY_LEFTSHIFT)
	drainAll(e)

	rec := e.mask([]Keycode{evdev.KEY_LEFTSHIFT, evdev.KEY_LEFTALT})
	if rec == nil || len(rec.mods) != 1 || rec.mods[0] != evdev.KEY_LEFTSHIFT {
		t.Fatalf("mask record: %+v", rec)
	}
	if got := drainAll(e); len(got) != 1 || got[0] != ku(evdev.KEY_LEFTSHIFT) {
		t.Fatalf("mask emissions: %v", got)
	}

	e.unmask(rec)
	if got := drainAll(e); len(got) != 1 || got[0] != kd(evdev.KEY_LEFTSHIFT) {
		t.Fatalf("unmask emissions: %v", got)
	}
}

func TestEmitterCancelMasked(t *testing.T) {
	e := newEmitter()
	e.press(evdev.KEY_LEFTSHIFT)
	rec := e.mask([]Keycode{evdev.KEY_LEFTSHIFT})
	drainAll(e)

	// The owner released the modifier while it was masked: restoring it
	// would leave it stuck down.
	e.cancelMasked(evdev.KEY_LEFTSHIFT)
	e.unmask(rec)
	if got := drainAll(e); len(got) != 0 {
		t.Fatalf("cancelled mask still restored: %v", got)
	}
}

func TestEmitterMaskNothingHeld(t *testing.T) {
	e := newEmitter()
	if rec := e.mask([]Keycode{evdev.KEY_LEFTSHIFT}); rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
	e.unmask(nil)
	if got := drainAll(e); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}
