package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/store"
	"github.com/BlakeDonn/inven/process/sanitize"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default: config.yaml in . or ./config)")
	dryRun := flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
	yes := flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
	tables := flag.String("tables", strings.Join(sanitize.DefaultTables, ","), "Comma-separated list of tables to truncate")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	opts := sanitize.Options{
		Tables: strings.Split(*tables, ","),
		DryRun: *dryRun,
		Yes:    *yes,
		Out:    os.Stdout,
	}
	if err := sanitize.Run(context.Background(), db, opts); err != nil {
		log.Fatalf("sanitize failed: %v", err)
	}
}
