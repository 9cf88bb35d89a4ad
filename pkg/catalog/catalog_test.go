package catalog

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseRarity(t *testing.T) {
	assert.Equal(t, Epic, ParseRarity(" epic "))
	assert.Equal(t, Rare, ParseRarity("RARE"))
	assert.Equal(t, Common, ParseRarity("Common"))
	assert.Equal(t, Unknown, ParseRarity("None"))
	assert.Equal(t, Unknown, ParseRarity(""))
}

func TestItemCatalogCollisionLastWins(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	c := NewItemCatalog([]Entry{
		{Name: "Sword of Agony", Type: "Sword", Rarity: Rare},
		{Name: "Bow of Dawn", Type: "Bow", Rarity: Common},
		{Name: "sword of agony ", Type: "Greatsword", Rarity: Epic},
	}, logger)

	assert.Equal(t, 2, c.Len())
	e, ok := c.Lookup("SWORD OF AGONY")
	require.True(t, ok)
	assert.Equal(t, "Greatsword", e.Type)
	assert.Equal(t, Epic, e.Rarity)
	assert.Contains(t, buf.String(), "collision")

	// the replaced key keeps its original position
	entries := c.Entries()
	assert.Equal(t, "sword of agony", entries[0].Name)
	assert.Equal(t, "Bow of Dawn", entries[1].Name)
}

func TestItemCatalogSameNameNoWarning(t *testing.T) {
	var buf bytes.Buffer
	c := NewItemCatalog([]Entry{{Name: "Bow"}, {Name: "Bow", Type: "Longbow"}}, log.New(&buf, "", 0))
	assert.Equal(t, 1, c.Len())
	assert.Empty(t, buf.String())
}

func TestTraitCatalogDuplicatesResolveToFirst(t *testing.T) {
	c := NewTraitCatalog([]string{"Attack Speed", "Max Health", " attack speed", ""})
	assert.Equal(t, 3, c.Len())
	got, ok := c.Lookup("ATTACK SPEED")
	require.True(t, ok)
	assert.Equal(t, "Attack Speed", got)

	res := c.Matcher().Match("attack speed")
	assert.Equal(t, "Attack Speed", res.Value)
}

func TestLoadItemsMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	weapons := writeFile(t, dir, "weapons.csv",
		"Weapon Name,Type,Rarity\nLequirus's Wings,Crossbow,Epic\nSword of Agony,Sword,Rare\nbroken\n")
	armor := writeFile(t, dir, "armor.csv",
		"Rarity,Armor Name,Type\nCommon,Plate of Dusk,Chest\nEpic,Sword of Agony,Shield\n")

	c, err := LoadItems([]string{weapons, armor}, log.New(&bytes.Buffer{}, "", 0))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	e, ok := c.Lookup("lequirus's wings")
	require.True(t, ok)
	assert.Equal(t, Entry{Name: "Lequirus's Wings", Type: "Crossbow", Rarity: Epic}, e)

	e, ok = c.Lookup("Plate of Dusk")
	require.True(t, ok)
	assert.Equal(t, "Chest", e.Type)
	assert.Equal(t, Common, e.Rarity)

	e, _ = c.Lookup("sword of agony")
	assert.Equal(t, "Shield", e.Type, "later file wins")
}

func TestLoadItemsDefaultColumns(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "misc.csv", "a,b,c\nRing of Ash,Ring,rare\n")
	c, err := LoadItems([]string{p}, nil)
	require.NoError(t, err)
	e, ok := c.Lookup("ring of ash")
	require.True(t, ok)
	assert.Equal(t, Rare, e.Rarity)
}

func TestLoadItemsXLSX(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "accessories.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Accessory Name", "Type", "Rarity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Band of Echoes", "Ring", "Epic"}))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	c, err := LoadItems([]string{p}, nil)
	require.NoError(t, err)
	e, ok := c.Lookup("band of echoes")
	require.True(t, ok)
	assert.Equal(t, "Ring", e.Type)
}

func TestLoadItemsErrors(t *testing.T) {
	_, err := LoadItems([]string{filepath.Join(t.TempDir(), "missing.csv")}, nil)
	assert.True(t, errors.Is(err, ErrCatalogLoad))

	p := writeFile(t, t.TempDir(), "empty.csv", "Weapon Name,Type,Rarity\n")
	_, err = LoadItems([]string{p}, nil)
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
}

func TestLoadTraits(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "traits.csv", "Trait\nAttack Speed\n\nOff-Hand Double Attack\nAttack Speed\n")
	c, err := LoadTraits(p, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Attack Speed", "Off-Hand Double Attack", "Attack Speed"}, c.Traits())

	_, err = LoadTraits(filepath.Join(dir, "nope.csv"), nil)
	assert.ErrorIs(t, err, ErrCatalogLoad)

	empty := writeFile(t, dir, "empty.csv", "Trait\n")
	_, err = LoadTraits(empty, nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}
