package main

import (
	"context"
	"flag"
	"log"
	"os"

	"Booster/internal/di"
	"Booster/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s instruments=%d", cfg.Environment, cfg.Storage.Backend, len(cfg.Pipeline.Instruments))

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	if *once {
		err = app.RunOnce(context.Background())
	} else {
		// blocks until signal
		err = app.Run(context.Background())
	}
	if err != nil {
		log.Printf("app error: %v", err)
		cleanup()
		os.Exit(1)
	}
}
