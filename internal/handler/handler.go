// Package handler pumps raw keyboard events through the layout engine and
// delivers the rewritten stream to the virtual keyboard.
package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uplg/layerd/internal/keyboard"
	"github.com/uplg/layerd/internal/layout"
)

// DefaultLongPressDelay is how long a key must be physically down before
// the handler reports a LongPress to the engine.
const DefaultLongPressDelay = 500 * time.Millisecond

// KeySink consumes the handler's output events.
type KeySink interface {
	// Key emits one engine emission.
	Key(code layout.Keycode, pressed bool) error
	// Forward passes a raw event through unchanged.
	Forward(code layout.Keycode, value int32) error
}

// Handler translates device scancodes to grid coordinates, drives the
// engine and renders its emissions. Keys outside the grid are forwarded
// unchanged, as is everything while the handler is disabled.
type Handler struct {
	mu             sync.Mutex
	engine         *layout.LayerSwitcher
	grid           map[layout.Keycode]layout.KeyCoords
	sink           KeySink
	enabled        bool
	logger         *slog.Logger
	longPressDelay time.Duration

	epoch time.Time
	now   func() time.Time

	// timers holds the armed long-press timer of every mapped key that is
	// currently down.
	timers map[layout.KeyCoords]*time.Timer
	long   chan layout.KeyCoords
}

// New creates a handler, starts the engine and flushes its reset emissions.
func New(engine *layout.LayerSwitcher, grid map[layout.Keycode]layout.KeyCoords, sink KeySink, logger *slog.Logger, longPressDelay time.Duration) *Handler {
	if longPressDelay <= 0 {
		longPressDelay = DefaultLongPressDelay
	}
	h := &Handler{
		engine:         engine,
		grid:           grid,
		sink:           sink,
		enabled:        true,
		logger:         logger,
		longPressDelay: longPressDelay,
		epoch:          time.Now(),
		now:            time.Now,
		timers:         make(map[layout.KeyCoords]*time.Timer),
		long:           make(chan layout.KeyCoords, 16),
	}
	h.engine.Start()
	h.render()
	return h
}

// SetEnabled enables or disables key mapping.
func (h *Handler) SetEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = enabled
	h.logger.Info("handler state changed", "enabled", enabled)
}

// SetProfile swaps in a new engine and grid, e.g. after a profile change.
func (h *Handler) SetProfile(engine *layout.LayerSwitcher, grid map[layout.Keycode]layout.KeyCoords) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c, t := range h.timers {
		t.Stop()
		delete(h.timers, c)
	}
	h.engine = engine
	h.grid = grid
	h.engine.Start()
	h.render()
	h.logger.Info("profile changed")
}

// ProcessEvents reads device events and long-press firings until the
// context is cancelled.
func (h *Handler) ProcessEvents(ctx context.Context, events <-chan *keyboard.KeyEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-h.long:
			h.fireLongPress(c)
		case ev := <-events:
			if err := h.handleEvent(ev); err != nil {
				h.logger.Error("error handling event", "error", err)
			}
		}
	}
}

// handleEvent processes a single raw key event.
func (h *Handler) handleEvent(ev *keyboard.KeyEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	coords, mapped := h.grid[ev.Code]
	if !h.enabled || !mapped {
		return h.sink.Forward(ev.Code, ev.Value)
	}

	at := h.timestamp()
	switch {
	case ev.IsPress():
		h.engine.ProcessKeyEvent(layout.Pressed(coords), at)
		h.armLongPress(coords)
	case ev.IsRelease():
		h.disarmLongPress(coords)
		h.engine.ProcessKeyEvent(layout.Released(coords), at)
	default:
		// Repeats are dropped; the engine models holds itself.
		return nil
	}
	return h.render()
}

// fireLongPress reports an expired hold to the engine. Stale firings for
// keys already released are dropped.
func (h *Handler) fireLongPress(c layout.KeyCoords) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, armed := h.timers[c]; !armed {
		return
	}
	delete(h.timers, c)
	h.engine.ProcessKeyEvent(layout.LongPress(c), h.timestamp())
	if err := h.render(); err != nil {
		h.logger.Error("error rendering long press", "error", err)
	}
}

func (h *Handler) armLongPress(c layout.KeyCoords) {
	if t, ok := h.timers[c]; ok {
		t.Stop()
	}
	h.timers[c] = time.AfterFunc(h.longPressDelay, func() {
		select {
		case h.long <- c:
		default:
		}
	})
}

func (h *Handler) disarmLongPress(c layout.KeyCoords) {
	if t, ok := h.timers[c]; ok {
		t.Stop()
		delete(h.timers, c)
	}
}

// render drains the engine's pending emissions into the sink.
func (h *Handler) render() error {
	var firstErr error
	h.engine.Render(func(code layout.Keycode, pressed bool) {
		if err := h.sink.Key(code, pressed); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (h *Handler) timestamp() uint64 {
	d := h.now().Sub(h.epoch)
	if d < 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}
