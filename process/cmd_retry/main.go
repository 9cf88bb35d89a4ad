package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/setup"
	"github.com/BlakeDonn/inven/pkg/store"
	"github.com/BlakeDonn/inven/process/retry"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default: config.yaml in . or ./config)")
	runID := flag.String("run", "", "run id whose unmatched records are retried")
	dir := flag.String("dir", "", "directory holding the crops (default: images.dir)")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	enhance := flag.Bool("enhance", false, "sharpen and raise contrast before OCR")
	flag.Parse()

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "-run is required")
		os.Exit(2)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *dir == "" {
		*dir = cfg.Images.Dir
	}
	logger, closer, err := setup.Logger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closer.Close()

	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	pipe, err := setup.Pipeline(cfg, logger)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := retry.Run(ctx, db, pipe, *dir, *runID, retry.Options{DryRun: *dry, Enhance: *enhance, Logger: logger}); err != nil {
		logger.Printf("ERROR retry failed: %v", err)
		os.Exit(1)
	}
}
