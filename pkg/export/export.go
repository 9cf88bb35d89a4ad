// Package export writes assembled records to their sinks: CSV, an Excel workbook
// and Postgres.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatPostgres = "postgres"

	BaseName = "processed_inventory"
)

// Columns is the header shared by the tabular sinks.
var Columns = []string{"File", "Matched Items", "Type", "Rarity", "Matched Traits"}

// Exporter writes the full record set of a run. Calling it again for the same run
// replaces what it wrote before.
type Exporter interface {
	Name() string
	Export(ctx context.Context, run models.Run, recs []pipeline.Record) error
}

// ErrUnknownFormat is returned by Build for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Build returns one exporter per format. db may be nil unless postgres is requested.
func Build(formats []string, outDir string, db *gorm.DB, logger *log.Logger) ([]Exporter, error) {
	if logger == nil {
		logger = log.Default()
	}
	var out []Exporter
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatCSV:
			out = append(out, &CSV{Path: filepath.Join(outDir, BaseName+".csv"), Logger: logger})
		case FormatXLSX:
			out = append(out, &XLSX{Path: filepath.Join(outDir, BaseName+".xlsx"), Logger: logger})
		case FormatPostgres:
			if db == nil {
				return nil, fmt.Errorf("postgres output requires a database connection")
			}
			out = append(out, &Postgres{DB: db, Logger: logger})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	return out, nil
}

// All runs every exporter; a failing sink does not stop the others.
func All(ctx context.Context, exps []Exporter, run models.Run, recs []pipeline.Record, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	var errs []error
	for _, e := range exps {
		if err := e.Export(ctx, run, recs); err != nil {
			logger.Printf("ERROR export sink=%s: %v", e.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func row(r pipeline.Record) []string {
	return []string{r.ID, r.ItemName, r.Type, r.Rarity, r.TraitName}
}

// ToModel maps a record onto its persisted form.
func ToModel(runID string, r pipeline.Record) models.Record {
	return models.Record{
		RunID:      runID,
		FileID:     r.ID,
		ItemName:   r.ItemName,
		ItemType:   r.Type,
		Rarity:     r.Rarity,
		TraitName:  r.TraitName,
		TitleText:  r.TitleText,
		TraitText:  r.TraitText,
		ItemScore:  r.ItemScore,
		TraitScore: r.TraitScore,
	}
}

// FromModel is the inverse of ToModel.
func FromModel(m models.Record) pipeline.Record {
	return pipeline.Record{
		ID:         m.FileID,
		ItemName:   m.ItemName,
		Type:       m.ItemType,
		Rarity:     m.Rarity,
		TraitName:  m.TraitName,
		TitleText:  m.TitleText,
		TraitText:  m.TraitText,
		ItemScore:  m.ItemScore,
		TraitScore: m.TraitScore,
	}
}
