package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Profile != "default" {
		t.Fatalf("profile: got %q", cfg.Profile)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level: got %q", cfg.LogLevel)
	}
	if cfg.KeyboardDevice != "auto" {
		t.Fatalf("device: got %q", cfg.KeyboardDevice)
	}
	if cfg.LongPressMs != 500 {
		t.Fatalf("long press: got %d", cfg.LongPressMs)
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
profile: numpad
log_level: debug
keyboard_device: /dev/input/event3
long_press_ms: 350
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != "numpad" {
		t.Fatalf("profile: got %q", cfg.Profile)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: got %q", cfg.LogLevel)
	}
	if cfg.KeyboardDevice != "/dev/input/event3" {
		t.Fatalf("device: got %q", cfg.KeyboardDevice)
	}
	if cfg.LongPressMs != 350 {
		t.Fatalf("long press: got %d", cfg.LongPressMs)
	}
	if cfg.ConfigDir != dir {
		t.Fatalf("config dir: got %q, want %q", cfg.ConfigDir, dir)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profile: media\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile != "media" {
		t.Fatalf("profile: got %q", cfg.Profile)
	}
	if cfg.LogLevel != "info" || cfg.LongPressMs != 500 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profile: [unclosed"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProfilePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfigDir = "/etc/layerd"
	want := filepath.Join("/etc/layerd", "profiles", "numpad.yaml")
	if got := cfg.ProfilePath("numpad"); got != want {
		t.Fatalf("ProfilePath: got %q, want %q", got, want)
	}
}

func TestAvailableProfiles(t *testing.T) {
	dir := t.TempDir()
	profileDir := filepath.Join(dir, "profiles")
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"default.yaml", "numpad.yaml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(profileDir, name), []byte("name: x\n"), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	cfg := DefaultConfig()
	cfg.ConfigDir = dir
	profiles, err := cfg.AvailableProfiles()
	if err != nil {
		t.Fatalf("AvailableProfiles: %v", err)
	}
	if !reflect.DeepEqual(profiles, []string{"default", "numpad"}) {
		t.Fatalf("profiles: got %v", profiles)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfigDir = t.TempDir()
	cfg.Profile = "numpad"
	cfg.LongPressMs = 650

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(filepath.Join(cfg.ConfigDir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Profile != "numpad" || loaded.LongPressMs != 650 {
		t.Fatalf("round trip: got %+v", loaded)
	}
}
