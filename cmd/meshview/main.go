// Package main is the entry point for the meshview model viewer.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/config"
	"github.com/Faultbox/meshview/internal/engine/gpu"
	"github.com/Faultbox/meshview/internal/engine/window"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/internal/viewer"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if path := config.WriteConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			fmt.Fprintf(os.Stderr, "Write config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("config written to %s\n", path)
		return
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, config.ModelPath()); err != nil {
		// Fatal flushes the entry and exits with status 1.
		logger.Fatal("initialization failed", zap.Error(err))
	}
	logger.Info("viewer closed normally")
	logger.Sync()
}

// run owns the window, GL device and session so their deferred cleanup
// happens before main exits.
func run(cfg *config.Config, modelPath string) error {
	logger.Info("=== meshview ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer win.Close()

	dev, err := gpu.NewGLDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	session, err := viewer.New(cfg, win, dev)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer session.Close()

	if modelPath != "" {
		// A bad initial file is not fatal; the window opens empty.
		if err := session.Load(modelPath); err != nil {
			logger.Warn("initial model not loaded", zap.String("path", modelPath))
		}
	}

	session.Run()
	return nil
}
