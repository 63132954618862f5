package layout

import (
	"fmt"
	"time"
)

// LayerStatus is the runtime status of a layer. Passthrough differs from
// Active only in that out-of-range coordinates fall through to lower layers
// instead of using the layer's default action.
type LayerStatus uint8

const (
	LayerActive LayerStatus = iota
	LayerPassthrough
	LayerDisabled
)

// NoLayer marks an unset layer reference.
const NoLayer = -1

// Layer is the static configuration of one keymap layer.
type Layer struct {
	Name string

	// StatusOnReset decides whether the layer is live after Start and which
	// status a hold-style activation gives it. Only Active layers are live at
	// reset; a Passthrough layer stays dormant until activated.
	StatusOnReset LayerStatus

	// Inherit is the resolution target for Inherit cells, NoLayer for none.
	Inherit int

	// OnActiveKeys are pressed when the layer activates and released when it
	// deactivates.
	OnActiveKeys []Keycode

	// DisableActiveOnPress temporarily releases OnActiveKeys around any
	// non-modifier emission resolved from this layer.
	DisableActiveOnPress bool

	// OnTimeoutLayer is activated when Timeout fires, NoLayer for none.
	OnTimeoutLayer int

	// Timeout deactivates the layer this long after its activation. Zero
	// disables the timeout. Timeouts are evaluated lazily on the next event.
	Timeout time.Duration

	// Keymap is indexed by block, row, column.
	Keymap [][][]Action

	// DefaultAction is used for coordinates outside the keymap while the
	// layer is Active; a Passthrough layer falls through there instead.
	DefaultAction Action
}

// BaseLayer returns a layer with all references unset, suitable as a
// starting point for literal configs.
func BaseLayer() Layer {
	return Layer{
		StatusOnReset:  LayerActive,
		Inherit:        NoLayer,
		OnTimeoutLayer: NoLayer,
		DefaultAction:  Pass(),
	}
}

// cellAt returns the action mapped at c and whether c is inside the keymap.
func (l *Layer) cellAt(c KeyCoords) (Action, bool) {
	if int(c.Block) >= len(l.Keymap) {
		return Action{}, false
	}
	rows := l.Keymap[c.Block]
	if int(c.Row) >= len(rows) {
		return Action{}, false
	}
	cols := rows[c.Row]
	if int(c.Col) >= len(cols) {
		return Action{}, false
	}
	return cols[c.Col], true
}

// eachAction visits every action the layer can produce, including the
// default action.
func (l *Layer) eachAction(visit func(Action)) {
	for _, block := range l.Keymap {
		for _, row := range block {
			for _, a := range row {
				visit(a)
			}
		}
	}
	visit(l.DefaultAction)
}

func validateLayers(layers []Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("layout needs at least the default layer")
	}
	if layers[0].StatusOnReset != LayerActive {
		return fmt.Errorf("layer 0 must be active on reset")
	}
	n := len(layers)
	checkRef := func(id int, what string, ref int) error {
		if ref < 0 || ref >= n {
			return fmt.Errorf("layer %d: %s references unknown layer %d", id, what, ref)
		}
		return nil
	}
	for id := range layers {
		l := &layers[id]
		if l.Inherit != NoLayer {
			if err := checkRef(id, "inherit", l.Inherit); err != nil {
				return err
			}
		}
		if l.OnTimeoutLayer != NoLayer {
			if err := checkRef(id, "on_timeout_layer", l.OnTimeoutLayer); err != nil {
				return err
			}
		}
		var cellErr error
		l.eachAction(func(a Action) {
			if cellErr != nil {
				return
			}
			switch a.Kind {
			case ActionHold, ActionTap, ActionActivate, ActionDeactivate,
				ActionHoldTapKey, ActionKeyHoldLayer, ActionKeyHoldTapLayer:
				cellErr = checkRef(id, "action", a.Layer)
			case ActionHoldTapLayer:
				if cellErr = checkRef(id, "action", a.Layer); cellErr == nil {
					cellErr = checkRef(id, "action", a.TapLayer)
				}
			}
		})
		if cellErr != nil {
			return cellErr
		}
	}
	// Inherit chains must terminate.
	for id := range layers {
		seen := make(map[int]bool)
		cur := id
		for layers[cur].Inherit != NoLayer {
			if seen[cur] {
				return fmt.Errorf("layer %d: inherit cycle", id)
			}
			seen[cur] = true
			cur = layers[cur].Inherit
		}
	}
	return nil
}
