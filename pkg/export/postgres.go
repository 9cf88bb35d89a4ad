package export

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

const batchSize = 100

// Postgres upserts the run and its records in one transaction.
type Postgres struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func (p *Postgres) Name() string { return FormatPostgres }

func (p *Postgres) Export(ctx context.Context, run models.Run, recs []pipeline.Record) error {
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	rows := make([]models.Record, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, ToModel(run.ID, r))
	}
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&run).Error; err != nil {
			return fmt.Errorf("upsert run: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "file_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at", "item_name", "item_type", "rarity", "trait_name", "title_text", "trait_text", "item_score", "trait_score"}),
		}).Omit(clause.Associations).CreateInBatches(&rows, batchSize).Error; err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logf(p.Logger, "data saved records=%d run=%s sink=postgres", len(rows), run.ID)
	return nil
}
