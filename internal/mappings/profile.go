package mappings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uplg/layerd/internal/layout"
)

// Profile is the on-disk description of a keyboard profile: the physical
// grid of scancodes and the layered keymap in the action grammar.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Grid lists the physical scancodes block by block, row by row. Its
	// shape defines the coordinate space of the keymaps.
	Grid [][][]string `yaml:"grid"`

	Layers []ProfileLayer `yaml:"layers"`
}

// ProfileLayer is one layer record in a profile file.
type ProfileLayer struct {
	Name                 string       `yaml:"name"`
	Default              bool         `yaml:"default,omitempty"`
	OnReset              string       `yaml:"on_reset,omitempty"`
	Inherit              *LayerRef    `yaml:"inherit,omitempty"`
	OnActiveKeys         []string     `yaml:"on_active_keys,omitempty"`
	DisableActiveOnPress bool         `yaml:"disable_active_on_press,omitempty"`
	Timeout              string       `yaml:"timeout,omitempty"`
	OnTimeoutLayer       *LayerRef    `yaml:"on_timeout_layer,omitempty"`
	DefaultAction        string       `yaml:"default_action,omitempty"`
	Keymap               [][][]string `yaml:"keymap,omitempty"`
}

// LayerRef is a reference to another layer, by name or by index.
type LayerRef struct {
	name  string
	index int
	byIdx bool
}

func (r *LayerRef) UnmarshalYAML(value *yaml.Node) error {
	var idx int
	if err := value.Decode(&idx); err == nil {
		r.index = idx
		r.byIdx = true
		return nil
	}
	return value.Decode(&r.name)
}

func (r *LayerRef) String() string {
	if r.byIdx {
		return strconv.Itoa(r.index)
	}
	return r.name
}

// LoadProfile reads a profile file from disk.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile file: %w", err)
	}
	return &p, nil
}

// Compiled is a profile translated into engine configuration.
type Compiled struct {
	Layers []layout.Layer

	// Grid maps physical scancodes to keymap coordinates.
	Grid map[layout.Keycode]layout.KeyCoords
}

// Compile resolves names, parses the action grammar and produces the layer
// list and the scancode grid. Layer names are resolved here and an unknown
// name is an error; numeric layer references are range-checked, with the
// rest of the structural validation, by the engine constructor.
func (p *Profile) Compile() (*Compiled, error) {
	if len(p.Layers) == 0 {
		return nil, fmt.Errorf("profile %q has no layers", p.Name)
	}
	byName := make(map[string]int, len(p.Layers))
	for i, l := range p.Layers {
		if l.Name == "" {
			return nil, fmt.Errorf("layer %d has no name", i)
		}
		if _, dup := byName[l.Name]; dup {
			return nil, fmt.Errorf("duplicate layer name %q", l.Name)
		}
		if l.Default && i != 0 {
			return nil, fmt.Errorf("layer %q declares itself the default but is not first", l.Name)
		}
		byName[l.Name] = i
	}

	grid, err := p.compileGrid()
	if err != nil {
		return nil, err
	}

	c := &Compiled{Grid: grid}
	for i := range p.Layers {
		l, err := p.Layers[i].compile(byName)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", p.Layers[i].Name, err)
		}
		c.Layers = append(c.Layers, l)
	}
	return c, nil
}

func (p *Profile) compileGrid() (map[layout.Keycode]layout.KeyCoords, error) {
	grid := make(map[layout.Keycode]layout.KeyCoords)
	for bi, block := range p.Grid {
		for ri, row := range block {
			for ci, name := range row {
				if name == "" || name == "-" {
					continue
				}
				code, ok := LookupKey(name)
				if !ok {
					return nil, fmt.Errorf("grid: unknown key %q", name)
				}
				coords := layout.KeyCoords{Block: uint8(bi), Row: uint8(ri), Col: uint8(ci)}
				if prev, dup := grid[code]; dup {
					return nil, fmt.Errorf("grid: key %q mapped at both %v and %v", name, prev, coords)
				}
				grid[code] = coords
			}
		}
	}
	return grid, nil
}

func (pl *ProfileLayer) compile(byName map[string]int) (layout.Layer, error) {
	l := layout.BaseLayer()
	l.Name = pl.Name

	switch strings.ToLower(pl.OnReset) {
	case "", "active":
		l.StatusOnReset = layout.LayerActive
	case "passthrough":
		l.StatusOnReset = layout.LayerPassthrough
	case "disabled":
		l.StatusOnReset = layout.LayerDisabled
	default:
		return l, fmt.Errorf("unknown on_reset status %q", pl.OnReset)
	}

	var err error
	if pl.Inherit != nil {
		if l.Inherit, err = pl.Inherit.resolve(byName); err != nil {
			return l, fmt.Errorf("inherit: %w", err)
		}
	}
	if pl.OnTimeoutLayer != nil {
		if l.OnTimeoutLayer, err = pl.OnTimeoutLayer.resolve(byName); err != nil {
			return l, fmt.Errorf("on_timeout_layer: %w", err)
		}
	}
	if pl.Timeout != "" {
		if l.Timeout, err = time.ParseDuration(pl.Timeout); err != nil {
			return l, fmt.Errorf("timeout: %w", err)
		}
	}
	for _, name := range pl.OnActiveKeys {
		code, ok := LookupKey(name)
		if !ok {
			return l, fmt.Errorf("on_active_keys: unknown key %q", name)
		}
		l.OnActiveKeys = append(l.OnActiveKeys, code)
	}
	l.DisableActiveOnPress = pl.DisableActiveOnPress

	if pl.DefaultAction != "" {
		if l.DefaultAction, err = ParseAction(pl.DefaultAction, byName); err != nil {
			return l, fmt.Errorf("default_action: %w", err)
		}
	}

	for bi, block := range pl.Keymap {
		var rows [][]layout.Action
		for ri, row := range block {
			var cells []layout.Action
			for ci, spec := range row {
				a, err := ParseAction(spec, byName)
				if err != nil {
					return l, fmt.Errorf("cell (%d,%d,%d): %w", bi, ri, ci, err)
				}
				cells = append(cells, a)
			}
			rows = append(rows, cells)
		}
		l.Keymap = append(l.Keymap, rows)
	}
	return l, nil
}

func (r *LayerRef) resolve(byName map[string]int) (int, error) {
	if r.byIdx {
		return r.index, nil
	}
	id, ok := byName[r.name]
	if !ok {
		return 0, fmt.Errorf("unknown layer %q", r.name)
	}
	return id, nil
}

func resolveLayerToken(tok string, byName map[string]int) (int, error) {
	if id, err := strconv.Atoi(tok); err == nil {
		return id, nil
	}
	id, ok := byName[tok]
	if !ok {
		return 0, fmt.Errorf("unknown layer %q", tok)
	}
	return id, nil
}

// ParseAction parses one cell of the action grammar:
//
//	pass | inherit | no
//	key <group>
//	long <group> <group>
//	hold <layer> | tap <layer> | activate <layer> | deactivate <layer>
//	holdtap <hold-layer> <tap-layer>
//	holdkey <hold-layer> <group>
//	keyhold <group> <hold-layer>
//	keyholdtap <group> <hold-layer>
//
// A group joins key names with "+"; a "^" prefix marks a modifier that is
// masked around the group's emission, e.g. "key ^LEFTSHIFT+E".
func ParseAction(spec string, byName map[string]int) (layout.Action, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return layout.Action{}, fmt.Errorf("empty action")
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	argc := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", verb, n, len(args))
		}
		return nil
	}

	switch verb {
	case "pass":
		return layout.Pass(), argc(0)
	case "inherit":
		return layout.Inherit(), argc(0)
	case "no":
		return layout.No(), argc(0)
	case "key":
		if err := argc(1); err != nil {
			return layout.Action{}, err
		}
		g, err := parseGroup(args[0])
		return layout.Key(g), err
	case "long":
		if err := argc(2); err != nil {
			return layout.Action{}, err
		}
		short, err := parseGroup(args[0])
		if err != nil {
			return layout.Action{}, err
		}
		long, err := parseGroup(args[1])
		if err != nil {
			return layout.Action{}, err
		}
		return layout.Long(short, long), nil
	case "hold", "tap", "activate", "deactivate":
		if err := argc(1); err != nil {
			return layout.Action{}, err
		}
		id, err := resolveLayerToken(args[0], byName)
		if err != nil {
			return layout.Action{}, err
		}
		switch verb {
		case "hold":
			return layout.Hold(id), nil
		case "tap":
			return layout.Tap(id), nil
		case "activate":
			return layout.Activate(id), nil
		default:
			return layout.Deactivate(id), nil
		}
	case "holdtap":
		if err := argc(2); err != nil {
			return layout.Action{}, err
		}
		hold, err := resolveLayerToken(args[0], byName)
		if err != nil {
			return layout.Action{}, err
		}
		tap, err := resolveLayerToken(args[1], byName)
		if err != nil {
			return layout.Action{}, err
		}
		return layout.HoldTapLayer(hold, tap), nil
	case "holdkey":
		if err := argc(2); err != nil {
			return layout.Action{}, err
		}
		hold, err := resolveLayerToken(args[0], byName)
		if err != nil {
			return layout.Action{}, err
		}
		g, err := parseGroup(args[1])
		if err != nil {
			return layout.Action{}, err
		}
		return layout.HoldTapKey(hold, g), nil
	case "keyhold", "keyholdtap":
		if err := argc(2); err != nil {
			return layout.Action{}, err
		}
		g, err := parseGroup(args[0])
		if err != nil {
			return layout.Action{}, err
		}
		hold, err := resolveLayerToken(args[1], byName)
		if err != nil {
			return layout.Action{}, err
		}
		if verb == "keyhold" {
			return layout.KeyHoldLayer(g, hold), nil
		}
		return layout.KeyHoldTapLayer(g, hold), nil
	default:
		return layout.Action{}, fmt.Errorf("unknown action %q", verb)
	}
}

func parseGroup(spec string) (layout.KeyGroup, error) {
	var g layout.KeyGroup
	for _, tok := range strings.Split(spec, "+") {
		masked := strings.HasPrefix(tok, "^")
		name := strings.TrimPrefix(tok, "^")
		code, ok := LookupKey(name)
		if !ok {
			return g, fmt.Errorf("unknown key %q", name)
		}
		if masked {
			if !layout.IsModifier(code) {
				return g, fmt.Errorf("masked key %q is not a modifier", name)
			}
			g.Mask = append(g.Mask, code)
		} else {
			g.Keys = append(g.Keys, code)
		}
	}
	if len(g.Keys) == 0 {
		return g, fmt.Errorf("group %q emits nothing", spec)
	}
	return g, nil
}
