package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/api"
	"github.com/BlakeDonn/inven/pkg/export"
	"github.com/BlakeDonn/inven/pkg/pipeline"
	"github.com/BlakeDonn/inven/pkg/setup"
	"github.com/BlakeDonn/inven/pkg/store"
	"github.com/BlakeDonn/inven/process/watch"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] [run|watch|serve|migrate]\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}

func main() {
	cfgPath := flag.String("config", "", "config file (default: config.yaml in . or ./config)")
	flag.Usage = usage
	flag.Parse()

	cmd := "run"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, closer, err := setup.Logger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	switch cmd {
	case "run":
		_, err = runOnce(ctx, cfg, logger)
	case "watch":
		err = runWatch(ctx, cfg, logger)
	case "serve":
		err = serve(cfg, logger)
	case "migrate":
		err = migrate(cfg, logger)
	default:
		usage()
		os.Exit(2)
	}
	stop()
	if err != nil {
		logger.Printf("ERROR %s: %v", cmd, err)
		closer.Close()
		os.Exit(1)
	}
	closer.Close()
}

// pass is the outcome of one directory run.
type pass struct {
	pipe *pipeline.Pipeline
	exps []export.Exporter
	run  models.Run
	recs []pipeline.Record
}

// runOnce processes the image directory once and exports the table. Catalog
// failures stop it before any image is read.
func runOnce(ctx context.Context, cfg *config.Config, logger *log.Logger) (*pass, error) {
	pipe, err := setup.Pipeline(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	var db *gorm.DB
	if cfg.HasFormat(export.FormatPostgres) {
		if db, err = openDB(cfg, logger); err != nil {
			return nil, err
		}
	}
	exps, err := export.Build(cfg.Output.Formats, cfg.Output.Dir, db, logger)
	if err != nil {
		return nil, err
	}

	run := models.Run{ID: uuid.NewString(), StartedAt: time.Now().UTC(), SourceDir: cfg.Images.Dir}
	logger.Printf("run=%s starting dir=%s workers=%d", run.ID, cfg.Images.Dir, cfg.Workers.Count)
	sum, recs, err := pipe.ProcessDir(ctx, cfg.Images.Dir)
	if err != nil {
		return nil, err
	}
	run.FinishedAt = time.Now().UTC()
	run.Groups = sum.Groups
	run.Incomplete = sum.Incomplete
	run.Skipped = sum.Skipped
	run.Records = sum.Records

	if err := export.All(ctx, exps, run, recs, logger); err != nil {
		logger.Printf("ERROR export run=%s: %v", run.ID, err)
	}
	logger.Printf("run=%s done groups=%d records=%d incomplete=%d skipped=%d took=%s",
		run.ID, sum.Groups, sum.Records, sum.Incomplete, sum.Skipped, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return &pass{pipe: pipe, exps: exps, run: run, recs: recs}, nil
}

// runWatch does an initial pass, then follows the directory and re-exports the
// growing table after each new group until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	p, err := runOnce(ctx, cfg, logger)
	if err != nil {
		return err
	}
	w := watch.New(cfg.Images.Dir, p.pipe.Naming(), cfg.Watch.Debounce, logger)
	for _, r := range p.recs {
		w.MarkDone(r.ID)
	}
	groups, err := w.Run(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Images.Dir, err)
	}
	run := p.run
	base := run.Groups - run.Records
	watch.Accumulate(ctx, p.pipe, groups, p.recs, func(recs []pipeline.Record) error {
		run.Records = len(recs)
		run.Groups = base + len(recs)
		run.FinishedAt = time.Now().UTC()
		return export.All(ctx, p.exps, run, recs, logger)
	}, logger)
	logger.Printf("watch stopped run=%s", run.ID)
	return nil
}

func serve(cfg *config.Config, logger *log.Logger) error {
	pipe, err := setup.Pipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}
	var db *gorm.DB
	if cfg.DB.DSN != "" {
		if db, err = openDB(cfg, logger); err != nil {
			return err
		}
	}
	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := api.New(pipe, db, api.Config{
		JWTSecret: cfg.Server.JWTSecret,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	}, logger)
	return srv.Run(":" + cfg.Server.Port)
}

func migrate(cfg *config.Config, logger *log.Logger) error {
	db, err := store.Open(cfg.DB.DSN)
	if err != nil {
		return err
	}
	if err := store.Migrate(db, logger); err != nil {
		return err
	}
	fmt.Println("migration completed")
	return nil
}
