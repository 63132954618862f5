package mappings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/uplg/layerd/internal/layout"
)

const sampleProfile = `
name: test
description: four key test pad
grid:
  - - [KEY_Q, W]
    - [A, S]
layers:
  - name: base
    default: true
    keymap:
      - - ["hold shift", "key B"]
        - ["key LEFTSHIFT", "no"]
  - name: shift
    on_reset: passthrough
    inherit: numbers
    on_active_keys: [LEFTSHIFT]
    disable_active_on_press: true
    timeout: 30s
    on_timeout_layer: 0
    keymap:
      - - ["key 0", "pass"]
        - ["inherit", "key ^LEFTSHIFT+E"]
  - name: numbers
    on_reset: disabled
    keymap:
      - - ["key 1", "key 9"]
        - ["key 2", "key 3"]
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing profile: %v", err)
	}
	return path
}

func TestLoadAndCompileProfile(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Name != "test" {
		t.Fatalf("name: got %q", p.Name)
	}

	c, err := p.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(c.Layers) != 3 {
		t.Fatalf("layers: got %d", len(c.Layers))
	}

	if got := c.Grid[evdev.KEY_Q]; got != (layout.KeyCoords{Block: 0, Row: 0, Col: 0}) {
		t.Fatalf("grid Q: got %v", got)
	}
	if got := c.Grid[evdev.KEY_S]; got != (layout.KeyCoords{Block: 0, Row: 1, Col: 1}) {
		t.Fatalf("grid S: got %v", got)
	}

	base := c.Layers[0]
	if base.StatusOnReset != layout.LayerActive {
		t.Fatalf("base reset status: got %v", base.StatusOnReset)
	}
	if a := base.Keymap[0][0][0]; a.Kind != layout.ActionHold || a.Layer != 1 {
		t.Fatalf("base cell (0,0): got %+v", a)
	}
	if a := base.Keymap[0][1][1]; a.Kind != layout.ActionNo {
		t.Fatalf("base cell (1,1): got %+v", a)
	}

	shift := c.Layers[1]
	if shift.StatusOnReset != layout.LayerPassthrough {
		t.Fatalf("shift reset status: got %v", shift.StatusOnReset)
	}
	if shift.Inherit != 2 {
		t.Fatalf("shift inherit: got %d", shift.Inherit)
	}
	if shift.Timeout != 30*time.Second {
		t.Fatalf("shift timeout: got %v", shift.Timeout)
	}
	if shift.OnTimeoutLayer != 0 {
		t.Fatalf("shift timeout layer: got %d", shift.OnTimeoutLayer)
	}
	if !shift.DisableActiveOnPress {
		t.Fatal("shift should disable active keys on press")
	}
	if len(shift.OnActiveKeys) != 1 || shift.OnActiveKeys[0] != evdev.KEY_LEFTSHIFT {
		t.Fatalf("shift on_active_keys: got %v", shift.OnActiveKeys)
	}
	masked := shift.Keymap[0][1][1]
	if masked.Kind != layout.ActionKey {
		t.Fatalf("masked cell kind: got %+v", masked)
	}
	if len(masked.Group.Mask) != 1 || masked.Group.Mask[0] != evdev.KEY_LEFTSHIFT {
		t.Fatalf("masked cell mask: got %v", masked.Group.Mask)
	}
	if len(masked.Group.Keys) != 1 || masked.Group.Keys[0] != evdev.KEY_E {
		t.Fatalf("masked cell keys: got %v", masked.Group.Keys)
	}
}

// A compiled profile must build a working engine.
func TestCompiledProfileDrivesEngine(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, sampleProfile))
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	c, err := p.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ls, err := layout.NewLayerSwitcher(c.Layers)
	if err != nil {
		t.Fatalf("NewLayerSwitcher: %v", err)
	}
	ls.Start()

	hold := c.Grid[evdev.KEY_Q]
	other := c.Grid[evdev.KEY_A]

	ls.ProcessKeyEvent(layout.Pressed(hold), 0)
	ls.ProcessKeyEvent(layout.Click(other), 1)
	ls.ProcessKeyEvent(layout.Released(hold), 2)

	var got []layout.Keycode
	ls.Render(func(k layout.Keycode, pressed bool) {
		got = append(got, k)
	})
	// Shift layer held: shift down, inherited 2 clicked, shift up.
	want := []layout.Keycode{
		evdev.KEY_LEFTSHIFT, evdev.KEY_2, evdev.KEY_2, evdev.KEY_LEFTSHIFT,
	}
	if len(got) != len(want) {
		t.Fatalf("emissions: got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("emissions: got %v, want %v", got, want)
		}
	}
}

func TestParseActionGrammar(t *testing.T) {
	byName := map[string]int{"base": 0, "fn": 1, "num": 2}
	cases := []struct {
		spec string
		kind layout.ActionKind
	}{
		{"pass", layout.ActionPass},
		{"inherit", layout.ActionInherit},
		{"no", layout.ActionNo},
		{"key LEFTCTRL+C", layout.ActionKey},
		{"long 0 LEFTALT+1", layout.ActionLong},
		{"hold fn", layout.ActionHold},
		{"tap 2", layout.ActionTap},
		{"activate num", layout.ActionActivate},
		{"deactivate num", layout.ActionDeactivate},
		{"holdtap fn num", layout.ActionHoldTapLayer},
		{"holdkey fn SPACE", layout.ActionHoldTapKey},
		{"keyhold SPACE fn", layout.ActionKeyHoldLayer},
		{"keyholdtap SPACE fn", layout.ActionKeyHoldTapLayer},
	}
	for _, tc := range cases {
		a, err := ParseAction(tc.spec, byName)
		if err != nil {
			t.Fatalf("ParseAction(%q): %v", tc.spec, err)
		}
		if a.Kind != tc.kind {
			t.Fatalf("ParseAction(%q): got kind %d, want %d", tc.spec, a.Kind, tc.kind)
		}
	}

	a, err := ParseAction("key LEFTCTRL+C", byName)
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if len(a.Group.Keys) != 2 || a.Group.Keys[0] != evdev.KEY_LEFTCTRL || a.Group.Keys[1] != evdev.KEY_C {
		t.Fatalf("group keys: got %v", a.Group.Keys)
	}

	a, err = ParseAction("holdtap fn num", byName)
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if a.Layer != 1 || a.TapLayer != 2 {
		t.Fatalf("holdtap layers: got %d/%d", a.Layer, a.TapLayer)
	}
}

func TestParseActionErrors(t *testing.T) {
	byName := map[string]int{"base": 0}
	for _, spec := range []string{
		"",
		"frobnicate",
		"key",
		"key NOSUCHKEY",
		"key ^E+B",       // masked key must be a modifier
		"key ^LEFTSHIFT", // group emits nothing
		"hold nosuchlayer",
		"long 0",
		"holdtap base",
	} {
		if _, err := ParseAction(spec, byName); err == nil {
			t.Fatalf("ParseAction(%q): expected error", spec)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate grid key": `
name: bad
grid:
  - - [Q, Q]
layers:
  - name: base
`,
		"unknown grid key": `
name: bad
grid:
  - - [NOSUCH]
layers:
  - name: base
`,
		"default on non-first layer": `
name: bad
grid:
  - - [Q]
layers:
  - name: base
  - name: extra
    default: true
`,
		"duplicate layer name": `
name: bad
grid:
  - - [Q]
layers:
  - name: base
  - name: base
`,
		"unknown inherit target": `
name: bad
grid:
  - - [Q]
layers:
  - name: base
    inherit: nosuch
`,
		"bad action": `
name: bad
grid:
  - - [Q]
layers:
  - name: base
    keymap:
      - - ["sproing"]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := LoadProfile(writeProfile(t, content))
			if err != nil {
				t.Fatalf("LoadProfile: %v", err)
			}
			if _, err := p.Compile(); err == nil {
				t.Fatal("expected compile error")
			}
		})
	}
}

func TestLookupKey(t *testing.T) {
	for _, name := range []string{"B", "b", "KEY_B", "key_b", " B "} {
		code, ok := LookupKey(name)
		if !ok || code != evdev.KEY_B {
			t.Fatalf("LookupKey(%q): got %d/%v", name, code, ok)
		}
	}
	if _, ok := LookupKey("NOSUCH"); ok {
		t.Fatal("LookupKey should fail for unknown names")
	}
	if got := KeyName(evdev.KEY_LEFTSHIFT); got != "LEFTSHIFT" {
		t.Fatalf("KeyName: got %q", got)
	}
}
