package setup

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/catalog"
)

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := &config.Config{Log: config.LogConfig{File: path}}

	logger, closer, err := Logger(cfg)
	require.NoError(t, err)
	logger.Printf("hello group=%s", "7")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello group=7")
}

func TestCatalogs(t *testing.T) {
	dir := t.TempDir()
	items := filepath.Join(dir, "weapons.csv")
	traits := filepath.Join(dir, "traits.csv")
	require.NoError(t, os.WriteFile(items, []byte("Weapon Name,Type,Rarity\nOrdinary Blade,Weapon,Rare\n"), 0o644))
	require.NoError(t, os.WriteFile(traits, []byte("Trait\nAttack Speed\n"), 0o644))
	logger := log.New(io.Discard, "", 0)

	cfg := &config.Config{Catalog: config.CatalogConfig{Items: []string{items}, Traits: traits}}
	ic, tc, err := Catalogs(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, 1, ic.Len())
	assert.Equal(t, 1, tc.Len())

	cfg.Catalog.Traits = filepath.Join(dir, "missing.csv")
	_, _, err = Catalogs(cfg, logger)
	assert.True(t, errors.Is(err, catalog.ErrCatalogLoad))
}

func TestPipelineConfig(t *testing.T) {
	cfg := &config.Config{
		Images:  config.ImagesConfig{TitlePrefix: "t", TraitPrefix: "r"},
		Workers: config.WorkersConfig{Count: 3, UnitTimeout: time.Second},
		Match:   config.MatchConfig{Threshold: 85, Limit: 2},
		Log:     config.LogConfig{Debug: true},
	}
	pc := PipelineConfig(cfg)
	assert.Equal(t, 3, pc.Workers)
	assert.Equal(t, time.Second, pc.UnitTimeout)
	assert.Equal(t, 85.0, pc.Threshold)
	assert.Equal(t, 2, pc.Limit)
	assert.Equal(t, "t", pc.Naming.TitlePrefix)
	assert.True(t, pc.Verbose)
}
