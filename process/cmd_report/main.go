package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/store"
	"github.com/BlakeDonn/inven/process/report"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default: config.yaml in . or ./config)")
	runID := flag.String("run", "", "run id to report (default: latest run)")
	list := flag.Bool("list", false, "list every record of the run")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(2)
	}
	if err := report.Run(context.Background(), db, *runID, *list, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
