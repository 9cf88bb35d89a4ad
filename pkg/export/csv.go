package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BlakeDonn/inven/models"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

// CSV writes the records table to Path.
type CSV struct {
	Path   string
	Logger *log.Logger
}

func (c *CSV) Name() string { return FormatCSV }

func (c *CSV) Export(_ context.Context, _ models.Run, recs []pipeline.Record) error {
	if len(recs) == 0 {
		logf(c.Logger, "WARN no data to save path=%s", c.Path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := c.Path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(Columns)
	for _, r := range recs {
		_ = w.Write(row(r))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, c.Path); err != nil {
		return fmt.Errorf("replace %s: %w", c.Path, err)
	}
	logf(c.Logger, "data saved records=%d path=%s", len(recs), c.Path)
	return nil
}

func logf(l *log.Logger, format string, args ...any) {
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, args...)
}
