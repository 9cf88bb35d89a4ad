// Package sanitize empties the inventory tables. It is destructive and refuses
// to act unless explicitly confirmed.
package sanitize

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultTables is every table the app owns, records before runs.
var DefaultTables = []string{"records", "runs"}

var nameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type Options struct {
	Tables []string
	// DryRun lists what would be truncated and stops.
	DryRun bool
	// Yes confirms the truncate when DryRun is off.
	Yes    bool
	Out    io.Writer
	Logger *log.Logger
}

// ValidTables trims names and splits them into usable identifiers and rejected ones.
func ValidTables(names []string) (valid, invalid []string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !nameRE.MatchString(n) {
			invalid = append(invalid, n)
			continue
		}
		valid = append(valid, n)
	}
	return valid, invalid
}

// TruncateStatement quotes already validated table names.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run truncates the requested tables that exist in the public schema.
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	tables := opts.Tables
	if len(tables) == 0 {
		tables = DefaultTables
	}
	wanted, invalid := ValidTables(tables)
	for _, n := range invalid {
		logger.Printf("WARN skipping invalid table name %q", n)
	}

	var existing []string
	for _, t := range wanted {
		var cnt int64
		if err := db.WithContext(ctx).Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt == 0 {
			logger.Printf("table %s not found, skipping", t)
			continue
		}
		existing = append(existing, t)
	}
	if len(existing) == 0 {
		fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
		return nil
	}

	fmt.Fprintln(out, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(out, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use -dry-run=false -yes to execute.")
		return nil
	}
	if !opts.Yes {
		fmt.Fprintln(out, "Destructive operation. Pass -yes to confirm execution. Aborting.")
		return nil
	}

	stmt := TruncateStatement(existing)
	logger.Printf("executing: %s", stmt)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	logger.Printf("truncate completed tables=%s", strings.Join(existing, ","))
	return nil
}
