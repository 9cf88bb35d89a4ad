package watch

import (
	"context"
	"image"
	"image/color"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlakeDonn/inven/pkg/catalog"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/pipeline"
)

type fixedReader map[ocr.Mode]string

func (f fixedReader) Extract(_ context.Context, _ image.Image, mode ocr.Mode) ocr.Decision {
	return ocr.Decision{Text: f[mode]}
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func testPipeline() *pipeline.Pipeline {
	items := catalog.NewItemCatalog([]catalog.Entry{{Name: "Ordinary Blade", Type: "Weapon", Rarity: catalog.Rare}}, quiet())
	traits := catalog.NewTraitCatalog([]string{"Attack Speed"})
	reader := fixedReader{ocr.ModeTitle: "Ordinary Blade", ocr.ModeTrait: "Attack Speed"}
	return pipeline.New(items, traits, reader, pipeline.Config{Workers: 2}, quiet())
}

func saveCrop(t *testing.T, dir, name string) {
	t.Helper()
	img := imaging.New(30, 10, color.NRGBA{200, 200, 200, 255})
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
}

func next(t *testing.T, ch <-chan pipeline.Group) pipeline.Group {
	t.Helper()
	select {
	case g, ok := <-ch:
		require.True(t, ok, "channel closed")
		return g
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for group")
	}
	return pipeline.Group{}
}

func TestWatcherEmitsCompleteGroupsOnce(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(dir, pipeline.DefaultNaming(), 30*time.Millisecond, quiet())
	w.MarkDone("1")
	groups, err := w.Run(ctx)
	require.NoError(t, err)

	saveCrop(t, dir, "title_cropped_1.png")
	saveCrop(t, dir, "trait_cropped_1.png")
	saveCrop(t, dir, "title_cropped_2.png")
	saveCrop(t, dir, "notes.txt.png")
	saveCrop(t, dir, "trait_cropped_2.png")

	g := next(t, groups)
	assert.Equal(t, "2", g.ID)
	assert.Equal(t, filepath.Join(dir, "title_cropped_2.png"), g.TitlePath)
	assert.Equal(t, filepath.Join(dir, "trait_cropped_2.png"), g.TraitPath)

	// rewriting a crop of an emitted group does not emit it again
	saveCrop(t, dir, "trait_cropped_2.png")
	saveCrop(t, dir, "title_cropped_3.png")
	saveCrop(t, dir, "trait_cropped_3.png")
	g = next(t, groups)
	assert.Equal(t, "3", g.ID)

	cancel()
	done := make(chan struct{})
	go func() {
		for range groups {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatcherCompletesPairStartedBeforeRun(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saveCrop(t, dir, "title_cropped_7.png")
	w := New(dir, pipeline.DefaultNaming(), 30*time.Millisecond, quiet())
	groups, err := w.Run(ctx)
	require.NoError(t, err)

	saveCrop(t, dir, "trait_cropped_7.png")
	g := next(t, groups)
	assert.Equal(t, "7", g.ID)
	assert.Equal(t, filepath.Join(dir, "title_cropped_7.png"), g.TitlePath)
	assert.Equal(t, filepath.Join(dir, "trait_cropped_7.png"), g.TraitPath)
}

func TestWatcherEmitsPairsAlreadyOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, n := range []string{"title_cropped_1.png", "trait_cropped_1.png", "title_cropped_4.png", "trait_cropped_4.png"} {
		saveCrop(t, dir, n)
	}
	w := New(dir, pipeline.DefaultNaming(), 30*time.Millisecond, quiet())
	w.MarkDone("1")
	groups, err := w.Run(ctx)
	require.NoError(t, err)

	g := next(t, groups)
	assert.Equal(t, "4", g.ID)
	assert.True(t, g.Complete())
}

func TestWatcherMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), pipeline.DefaultNaming(), 0, quiet())
	_, err := w.Run(context.Background())
	assert.Error(t, err)
}

func TestAccumulate(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"title_cropped_5.png", "trait_cropped_5.png", "title_cropped_2.png", "trait_cropped_2.png"} {
		saveCrop(t, dir, n)
	}
	initial := []pipeline.Record{
		{ID: "2", ItemName: catalog.NoItemMatch, TraitName: catalog.NoTraitMatch},
		{ID: "9", ItemName: "Old", TraitName: "Old"},
	}
	in := make(chan pipeline.Group, 2)
	in <- pipeline.Group{ID: "5", TitlePath: filepath.Join(dir, "title_cropped_5.png"), TraitPath: filepath.Join(dir, "trait_cropped_5.png")}
	in <- pipeline.Group{ID: "2", TitlePath: filepath.Join(dir, "title_cropped_2.png"), TraitPath: filepath.Join(dir, "trait_cropped_2.png")}
	close(in)

	var flushes [][]string
	table := Accumulate(context.Background(), testPipeline(), in, initial, func(recs []pipeline.Record) error {
		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		flushes = append(flushes, ids)
		return nil
	}, quiet())

	require.Len(t, flushes, 2)
	assert.GreaterOrEqual(t, len(flushes[0]), 2)
	assert.Equal(t, []string{"2", "5", "9"}, flushes[1])
	require.Len(t, table, 3)
	assert.Equal(t, "2", table[0].ID)
	assert.Equal(t, "Ordinary Blade", table[0].ItemName)
	assert.Equal(t, "Attack Speed", table[0].TraitName)
	assert.Equal(t, "5", table[1].ID)
	assert.Equal(t, "Old", table[2].ItemName)
}
