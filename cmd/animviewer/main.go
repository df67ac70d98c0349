// animviewer opens an ABM bundle and drives its animation controller from
// the keyboard.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/assets"
	"github.com/Faultbox/midgard-anim/internal/config"
	"github.com/Faultbox/midgard-anim/internal/logger"
)

const windowTitle = "Midgard Anim"

func main() {
	// Parse CLI flags
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	name := cfg.Viewer.Bundle
	if name == "" {
		name = flag.Arg(0)
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "Usage: animviewer [flags] <bundle.abm>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger.Info("=== Midgard Anim Viewer ===", zap.String("bundle", name))

	kind, err := cfg.Codec.Kind()
	if err != nil {
		logger.Fatal("invalid compressor", zap.Error(err))
	}
	manager, err := assets.NewManager(assets.Options{
		Root:       cfg.Assets.Root,
		StorePath:  cfg.Assets.CacheDB,
		Watch:      cfg.Assets.Watch,
		Compressor: kind,
		Level:      cfg.Codec.Level,
	})
	if err != nil {
		logger.Fatal("failed to open asset manager", zap.Error(err))
	}

	v, err := newViewer(cfg, manager, name)
	if err != nil {
		manager.Close()
		if errors.Is(err, assets.ErrNotFound) {
			logger.Fatal("bundle not found", zap.String("bundle", name))
		}
		logger.Fatal("failed to start viewer", zap.Error(err))
	}

	v.run()
	v.close()

	if err := manager.Close(); err != nil {
		logger.Warn("closing asset manager", zap.Error(err))
	}
	logger.Info("viewer closed")
}
