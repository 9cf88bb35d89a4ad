package pipeline

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupFiles(t *testing.T) {
	var buf bytes.Buffer
	names := []string{
		"other_7.png",
		"title_cropped_12.jpg",
		"title_cropped_5.png",
		"title_cropped_b_5.png",
		"trait_cropped_5.PNG",
		"trait_cropped_nocapture.png",
	}
	groups := GroupFiles("shots", names, DefaultNaming(), log.New(&buf, "", 0))

	require.Len(t, groups, 3)
	assert.Equal(t, []string{"5", "7", "12"}, []string{groups[0].ID, groups[1].ID, groups[2].ID})

	assert.True(t, groups[0].Complete())
	assert.Equal(t, filepath.Join("shots", "title_cropped_b_5.png"), groups[0].TitlePath)
	assert.Equal(t, filepath.Join("shots", "trait_cropped_5.PNG"), groups[0].TraitPath)
	assert.Contains(t, buf.String(), "group=5 duplicate title")

	assert.False(t, groups[1].Complete())
	assert.False(t, groups[2].Complete())
	assert.NotEmpty(t, groups[2].TitlePath)
}

func TestGroupFilesCustomNaming(t *testing.T) {
	groups := GroupFiles("", []string{"name_3.png", "stats_3.png"}, Naming{TitlePrefix: "name", TraitPrefix: "stats"}, nil)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Complete())
}

func TestFileID(t *testing.T) {
	id, ok := FileID("/tmp/title_cropped_0042.png")
	assert.True(t, ok)
	assert.Equal(t, "0042", id)

	_, ok = FileID("title_cropped.png")
	assert.False(t, ok)
	_, ok = FileID("title_cropped_4.gif")
	assert.False(t, ok)
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b_2.png", "a_1.jpeg", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	names, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_1.jpeg", "b_2.png"}, names)
}
