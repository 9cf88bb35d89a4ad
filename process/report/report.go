package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/catalog"
)

// Summary aggregates the records of one run.
type Summary struct {
	Records       int
	ItemsMatched  int
	TraitsMatched int
	BothMatched   int
	ByRarity      map[string]int
}

// Summarize counts matches and rarities over recs.
func Summarize(recs []models.Record) Summary {
	s := Summary{Records: len(recs), ByRarity: map[string]int{}}
	for _, r := range recs {
		item := r.ItemName != catalog.NoItemMatch
		trait := r.TraitName != catalog.NoTraitMatch
		if item {
			s.ItemsMatched++
		}
		if trait {
			s.TraitsMatched++
		}
		if item && trait {
			s.BothMatched++
		}
		rarity := r.Rarity
		if rarity == "" {
			rarity = catalog.UnknownValue
		}
		s.ByRarity[rarity]++
	}
	return s
}

// Write prints s in a stable order.
func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "  records=%d items_matched=%d traits_matched=%d both=%d\n", s.Records, s.ItemsMatched, s.TraitsMatched, s.BothMatched)
	rarities := make([]string, 0, len(s.ByRarity))
	for k := range s.ByRarity {
		rarities = append(rarities, k)
	}
	sort.Strings(rarities)
	for _, k := range rarities {
		fmt.Fprintf(w, "  rarity=%s count=%d\n", k, s.ByRarity[k])
	}
}

// Run prints the report for runID, or for the most recent run when runID is
// empty. With list set every record follows the summary.
func Run(ctx context.Context, db *gorm.DB, runID string, list bool, w io.Writer) error {
	db = db.WithContext(ctx)
	var run models.Run
	q := db.Order("started_at DESC")
	if runID != "" {
		q = db.Where("id = ?", runID)
	}
	if err := q.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("run %q not found", runID)
		}
		return fmt.Errorf("fetch run: %w", err)
	}

	var rows []models.Record
	if err := db.Where("run_id = ?", run.ID).Order("file_id").Find(&rows).Error; err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}

	fmt.Fprintf(w, "Report for run=%s dir=%s started=%s (UTC):\n", run.ID, run.SourceDir, run.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  groups=%d incomplete=%d skipped=%d\n", run.Groups, run.Incomplete, run.Skipped)
	Summarize(rows).Write(w)

	if list {
		for _, r := range rows {
			fmt.Fprintf(w, "%s|%s|%s|%s|%s|%.1f|%.1f\n", r.FileID, r.ItemName, r.ItemType, r.Rarity, r.TraitName, r.ItemScore, r.TraitScore)
		}
	}
	return nil
}
