package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadItems reads every item source in order and merges them into one catalog.
// Sources may be .csv or .xlsx (first sheet); the first row is a header.
func LoadItems(paths []string, logger *log.Logger) (*ItemCatalog, error) {
	if logger == nil {
		logger = log.Default()
	}
	var all []Entry
	for _, p := range paths {
		entries, err := readItems(p, logger)
		if err != nil {
			return nil, err
		}
		logger.Printf("catalog loaded items=%d file=%s", len(entries), p)
		all = append(all, entries...)
	}
	c := NewItemCatalog(all, logger)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: items from %s", ErrEmptyCatalog, strings.Join(paths, ","))
	}
	return c, nil
}

// LoadTraits reads the first column of path, skipping the header and blank rows.
func LoadTraits(path string, logger *log.Logger) (*TraitCatalog, error) {
	if logger == nil {
		logger = log.Default()
	}
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var traits []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		traits = append(traits, row[0])
	}
	c := NewTraitCatalog(traits)
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: traits from %s", ErrEmptyCatalog, path)
	}
	logger.Printf("catalog loaded traits=%d file=%s", c.Len(), path)
	return c, nil
}

func readItems(path string, logger *log.Logger) ([]Entry, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	nameIdx, typeIdx, rarityIdx := itemColumns(rows[0])
	need := max(nameIdx, typeIdx, rarityIdx)
	out := make([]Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) <= need {
			logger.Printf("catalog skip short row file=%s line=%d cols=%d", path, i+2, len(row))
			continue
		}
		out = append(out, Entry{
			Name:   strings.TrimSpace(row[nameIdx]),
			Type:   strings.TrimSpace(row[typeIdx]),
			Rarity: ParseRarity(row[rarityIdx]),
		})
	}
	return out, nil
}

// itemColumns locates the name, type and rarity columns from the header, falling
// back to 0, 1, 2. The name column is "Name" or any header ending in " Name"
// ("Weapon Name", "Armor Name", ...).
func itemColumns(header []string) (name, typ, rarity int) {
	name, typ, rarity = -1, -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case name < 0 && (h == "Name" || strings.HasSuffix(h, " Name")):
			name = i
		case typ < 0 && h == "Type":
			typ = i
		case rarity < 0 && h == "Rarity":
			rarity = i
		}
	}
	if name < 0 {
		name = 0
	}
	if typ < 0 {
		typ = 1
	}
	if rarity < 0 {
		rarity = 2
	}
	return name, typ, rarity
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLoad, path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: %s: no sheets", ErrCatalogLoad, path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogLoad, path, err)
	}
	return rows, nil
}
