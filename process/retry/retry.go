// Package retry re-reads the crops of stored records that ended with a
// sentinel, typically after the catalogs were extended.
package retry

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/disintegration/imaging"
	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/catalog"
	"github.com/BlakeDonn/inven/pkg/export"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

type Options struct {
	// DryRun only prints proposed changes.
	DryRun bool
	// Enhance sharpens and raises contrast before the regular preprocessing.
	Enhance bool
	Logger  *log.Logger
}

type Result struct {
	Considered int
	Updated    int
	Unchanged  int
	Missing    int
}

// Run re-processes every record of runID whose item or trait is unmatched, using
// the crops found in dir, and stores the new values when they resolve more than
// before.
func Run(ctx context.Context, db *gorm.DB, pipe *pipeline.Pipeline, dir, runID string, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	db = db.WithContext(ctx)

	var rows []models.Record
	if err := db.Where("run_id = ? AND (item_name = ? OR trait_name = ?)", runID, catalog.NoItemMatch, catalog.NoTraitMatch).
		Order("file_id").Find(&rows).Error; err != nil {
		return Result{}, fmt.Errorf("query unmatched records: %w", err)
	}

	names, err := pipeline.ListImages(dir)
	if err != nil {
		return Result{}, err
	}
	byID := map[string]pipeline.Group{}
	for _, g := range pipeline.GroupFiles(dir, names, pipe.Naming(), logger) {
		byID[g.ID] = g
	}

	var res Result
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Considered++
		g, ok := byID[row.FileID]
		if !ok || !g.Complete() {
			logger.Printf("WARN retry group=%s crops not found in %s", row.FileID, dir)
			res.Missing++
			continue
		}
		rec, err := process(ctx, pipe, g, opts.Enhance)
		if err != nil {
			logger.Printf("ERROR retry group=%s: %v", g.ID, err)
			res.Missing++
			continue
		}
		if !Improved(row, rec) {
			logger.Printf("retry group=%s unchanged item=%q trait=%q", g.ID, rec.ItemName, rec.TraitName)
			res.Unchanged++
			continue
		}
		if opts.DryRun {
			fmt.Printf("DRY: would update record id=%d file=%s item=%q->%q trait=%q->%q\n", row.ID, row.FileID, row.ItemName, rec.ItemName, row.TraitName, rec.TraitName)
			res.Updated++
			continue
		}
		next := export.ToModel(runID, rec)
		if err := db.Model(&models.Record{}).Where("id = ?", row.ID).Updates(map[string]any{
			"item_name":   next.ItemName,
			"item_type":   next.ItemType,
			"rarity":      next.Rarity,
			"trait_name":  next.TraitName,
			"title_text":  next.TitleText,
			"trait_text":  next.TraitText,
			"item_score":  next.ItemScore,
			"trait_score": next.TraitScore,
		}).Error; err != nil {
			logger.Printf("ERROR update record id=%d: %v", row.ID, err)
			continue
		}
		res.Updated++
		fmt.Printf("updated record id=%d file=%s item=%q trait=%q\n", row.ID, row.FileID, rec.ItemName, rec.TraitName)
	}
	logger.Printf("retry run=%s considered=%d updated=%d unchanged=%d missing=%d", runID, res.Considered, res.Updated, res.Unchanged, res.Missing)
	return res, nil
}

func process(ctx context.Context, pipe *pipeline.Pipeline, g pipeline.Group, enhance bool) (pipeline.Record, error) {
	if !enhance {
		return pipe.ProcessGroup(ctx, g)
	}
	title, err := ocr.LoadImage(g.TitlePath)
	if err != nil {
		return pipeline.Record{}, err
	}
	trait, err := ocr.LoadImage(g.TraitPath)
	if err != nil {
		return pipeline.Record{}, err
	}
	return pipe.ProcessImages(ctx, g.ID, Enhance(title), Enhance(trait)), nil
}

// Enhance applies the aggressive sharpen and contrast pass used for retries.
func Enhance(img image.Image) image.Image {
	out := imaging.Sharpen(img, 2.0)
	return imaging.AdjustContrast(out, 30)
}

// Improved reports whether rec resolves a part that old left unmatched without
// losing a part old had resolved.
func Improved(old models.Record, rec pipeline.Record) bool {
	oldItem := old.ItemName != catalog.NoItemMatch
	oldTrait := old.TraitName != catalog.NoTraitMatch
	newItem := rec.ItemName != catalog.NoItemMatch
	newTrait := rec.TraitName != catalog.NoTraitMatch
	if (oldItem && !newItem) || (oldTrait && !newTrait) {
		return false
	}
	return (newItem && !oldItem) || (newTrait && !oldTrait)
}
