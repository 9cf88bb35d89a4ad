// Package setup builds the long-lived components every command needs from a
// loaded config.
package setup

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/catalog"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/ocr/tesseract"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

// Logger writes to stdout and appends to cfg.Log.File. The returned closer
// releases the file.
func Logger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	if cfg.Log.File == "" {
		return log.New(os.Stdout, "", flags), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.Log.File, err)
	}
	return log.New(io.MultiWriter(os.Stdout, f), "", flags), f, nil
}

// Catalogs loads the item and trait catalogs. Either failing is fatal for the
// caller; nothing should be processed without them.
func Catalogs(cfg *config.Config, logger *log.Logger) (*catalog.ItemCatalog, *catalog.TraitCatalog, error) {
	items, err := catalog.LoadItems(cfg.Catalog.Items, logger)
	if err != nil {
		return nil, nil, err
	}
	traits, err := catalog.LoadTraits(cfg.Catalog.Traits, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Printf("catalogs loaded items=%d traits=%d", items.Len(), traits.Len())
	return items, traits, nil
}

// Engines returns engine A and engine B.
func Engines(cfg *config.Config) (ocr.Engine, ocr.Engine) {
	tc := tesseract.Config{Language: cfg.OCR.Language, TessdataPrefix: cfg.OCR.TessdataPrefix}
	return tesseract.NewLineEngine(tc), tesseract.NewDetectorEngine(tc)
}

// Pipeline loads the catalogs and wires them with both engines.
func Pipeline(cfg *config.Config, logger *log.Logger) (*pipeline.Pipeline, error) {
	items, traits, err := Catalogs(cfg, logger)
	if err != nil {
		return nil, err
	}
	a, b := Engines(cfg)
	arb := ocr.NewArbiter(a, b, logger)
	arb.Verbose = cfg.Log.Debug
	return pipeline.New(items, traits, arb, PipelineConfig(cfg), logger), nil
}

func PipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Workers:     cfg.Workers.Count,
		UnitTimeout: cfg.Workers.UnitTimeout,
		Threshold:   cfg.Match.Threshold,
		Limit:       cfg.Match.Limit,
		Naming:      pipeline.Naming{TitlePrefix: cfg.Images.TitlePrefix, TraitPrefix: cfg.Images.TraitPrefix},
		Verbose:     cfg.Log.Debug,
	}
}
