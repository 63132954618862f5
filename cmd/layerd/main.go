// Layerd: programmable layered key remapping daemon for Linux
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/uplg/layerd/internal/config"
	"github.com/uplg/layerd/internal/handler"
	"github.com/uplg/layerd/internal/keyboard"
	"github.com/uplg/layerd/internal/layout"
	"github.com/uplg/layerd/internal/mappings"
	"github.com/uplg/layerd/internal/tray"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	profileName := flag.String("profile", "", "Profile name to use")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	noTray := flag.Bool("no-tray", false, "Run without system tray")
	flag.Parse()

	if *showVersion {
		fmt.Printf("layerd %s (%s) built %s\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup logging. The level comes from -log-level, or from the config
	// file's log_level when the flag is not given.
	var level slog.LevelVar
	setLevel := func(name string) {
		switch name {
		case "debug":
			level.Set(slog.LevelDebug)
		case "warn":
			level.Set(slog.LevelWarn)
		case "error":
			level.Set(slog.LevelError)
		default:
			level.Set(slog.LevelInfo)
		}
	}
	setLevel(*logLevel)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *logLevel == "" {
		setLevel(cfg.LogLevel)
	}

	// Override profile if specified on command line
	if *profileName != "" {
		cfg.Profile = *profileName
	}

	logger.Info("layerd starting",
		"version", version,
		"profile", cfg.Profile,
	)

	// Create config directory if needed
	if err := ensureConfigDir(cfg); err != nil {
		logger.Error("failed to create config directory", "error", err)
		os.Exit(1)
	}

	// Load and compile the profile
	engine, compiled, err := buildEngine(cfg, cfg.Profile, logger)
	if err != nil {
		logger.Error("failed to load profile", "profile", cfg.Profile, "error", err)
		os.Exit(1)
	}

	// Create virtual keyboard
	vkb, err := keyboard.NewVirtualKeyboard("layerd-virtual", logger)
	if err != nil {
		logger.Error("failed to create virtual keyboard", "error", err)
		logger.Error("make sure you have write access to /dev/uinput")
		os.Exit(1)
	}
	defer vkb.Close()

	checkCapabilities(engine, vkb, logger)

	// Find and grab keyboard devices
	devManager := keyboard.NewDeviceManager(logger)
	defer devManager.Close()

	var keyboards []*keyboard.Device
	if cfg.KeyboardDevice != "" && cfg.KeyboardDevice != "auto" {
		dev, err := devManager.Open(cfg.KeyboardDevice)
		if err != nil {
			logger.Error("failed to open keyboard", "path", cfg.KeyboardDevice, "error", err)
			os.Exit(1)
		}
		keyboards = []*keyboard.Device{dev}
	} else {
		keyboards, err = devManager.FindKeyboards()
		if err != nil {
			logger.Error("failed to find keyboards", "error", err)
			os.Exit(1)
		}
	}

	if len(keyboards) == 0 {
		logger.Error("no keyboards found")
		os.Exit(1)
	}

	for _, kb := range keyboards {
		if err := devManager.GrabDevice(kb); err != nil {
			logger.Error("failed to grab keyboard", "name", kb.Name(), "error", err)
			continue
		}
	}

	// Create event channel
	events := make(chan *keyboard.KeyEvent, 100)

	// Create context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start reading events from keyboards
	for _, kb := range keyboards {
		go func(dev *keyboard.Device) {
			if err := keyboard.ReadEvents(ctx, dev, events); err != nil {
				logger.Error("error reading events", "device", dev.Name(), "error", err)
			}
		}(kb)
	}

	// Create handler; it starts the engine and flushes reset emissions.
	longPress := time.Duration(cfg.LongPressMs) * time.Millisecond
	h := handler.New(engine, compiled.Grid, vkb, logger, longPress)

	// Start event processing in background
	go func() {
		if err := h.ProcessEvents(ctx, events); err != nil {
			logger.Error("error processing events", "error", err)
		}
	}()

	// Get available profiles for tray menu
	availableProfiles, err := cfg.AvailableProfiles()
	if err != nil {
		logger.Warn("could not list profiles", "error", err)
		availableProfiles = []string{cfg.Profile}
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *noTray {
		// Run without tray, wait for signal
		logger.Info("running without system tray, press Ctrl+C to quit")
		<-sigChan
		logger.Info("shutting down...")
	} else {
		// Create and run system tray
		trayCfg := tray.Config{
			CurrentProfile:    cfg.Profile,
			AvailableProfiles: availableProfiles,
			Enabled:           true,
			OnProfileChange: func(profileName string) {
				newEngine, newCompiled, err := buildEngine(cfg, profileName, logger)
				if err != nil {
					logger.Error("failed to load profile", "profile", profileName, "error", err)
					return
				}
				cfg.Profile = profileName
				cfg.Save()
				checkCapabilities(newEngine, vkb, logger)
				h.SetProfile(newEngine, newCompiled.Grid)
			},
			OnToggle: func(enabled bool) {
				h.SetEnabled(enabled)
			},
			OnQuit: func() {
				logger.Info("shutting down...")
				cancel()
				os.Exit(0)
			},
			Logger: logger,
		}

		trayIcon := tray.New(trayCfg)

		// Handle signals in a goroutine
		go func() {
			<-sigChan
			logger.Info("shutting down...")
			trayIcon.Quit()
		}()

		// Run systray (blocks)
		trayIcon.Run()
	}

	logger.Info("layerd stopped")
}

// buildEngine loads a profile file and constructs the engine from it.
func buildEngine(cfg *config.Config, profileName string, logger *slog.Logger) (*layout.LayerSwitcher, *mappings.Compiled, error) {
	path := cfg.ProfilePath(profileName)
	logger.Debug("loading profile file", "path", path)

	profile, err := mappings.LoadProfile(path)
	if err != nil {
		return nil, nil, err
	}
	compiled, err := profile.Compile()
	if err != nil {
		return nil, nil, err
	}
	engine, err := layout.NewLayerSwitcher(compiled.Layers)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded profile",
		"name", profile.Name,
		"description", profile.Description,
		"layers", len(compiled.Layers),
		"keys", len(compiled.Grid),
	)
	return engine, compiled, nil
}

// checkCapabilities warns about emitted keys the virtual device cannot
// register.
func checkCapabilities(engine *layout.LayerSwitcher, vkb *keyboard.VirtualKeyboard, logger *slog.Logger) {
	used := engine.UsedKeys()
	for _, code := range used {
		if !vkb.Supports(code) {
			logger.Warn("profile emits unsupported key", "key", mappings.KeyName(code), "code", code)
		}
	}
	logger.Debug("registered output keys", "count", len(used))
}

// ensureConfigDir creates the config directory and profile directory if needed.
func ensureConfigDir(cfg *config.Config) error {
	profileDir := filepath.Join(cfg.ConfigDir, "profiles")
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return err
	}
	return nil
}
