// Package catalog holds the reference lists OCR output is resolved against:
// items (with type and rarity) and traits. Catalogs are built once at startup and
// never mutated afterwards, so they can be shared across workers without locking.
package catalog

import (
	"errors"
	"log"
	"strings"

	"github.com/BlakeDonn/inven/pkg/match"
	"github.com/BlakeDonn/inven/pkg/textnorm"
)

var (
	// ErrCatalogLoad wraps any failure to read or parse a catalog source.
	ErrCatalogLoad = errors.New("catalog load failed")
	// ErrEmptyCatalog is returned when a source yields no usable rows.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

// Record sentinels written when nothing in a catalog matched.
const (
	NoItemMatch  = "No Match Found"
	NoTraitMatch = "No Traits Found"
	UnknownValue = "Unknown"
)

type Rarity string

const (
	Common  Rarity = "Common"
	Rare    Rarity = "Rare"
	Epic    Rarity = "Epic"
	Unknown Rarity = UnknownValue
)

// ParseRarity is case-insensitive; anything unrecognised is Unknown.
func ParseRarity(s string) Rarity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return Common
	case "rare":
		return Rare
	case "epic":
		return Epic
	default:
		return Unknown
	}
}

// Entry is one catalog item.
type Entry struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rarity Rarity `json:"rarity"`
}

// ItemCatalog maps normalized item names to entries, keeping the order in which
// keys were first seen.
type ItemCatalog struct {
	keys    []string
	entries map[string]Entry
}

// NewItemCatalog builds the catalog from entries in load order. A later entry
// whose name normalizes to an existing key replaces it; a warning is logged when
// the two raw names differ.
func NewItemCatalog(entries []Entry, logger *log.Logger) *ItemCatalog {
	if logger == nil {
		logger = log.Default()
	}
	c := &ItemCatalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Name = textnorm.Name(e.Name)
		k := textnorm.Key(e.Name)
		if k == "" {
			continue
		}
		prev, exists := c.entries[k]
		if !exists {
			c.keys = append(c.keys, k)
		} else if prev.Name != e.Name {
			logger.Printf("WARN catalog key collision key=%q replaced=%q by=%q", k, prev.Name, e.Name)
		}
		c.entries[k] = e
	}
	return c
}

func (c *ItemCatalog) Len() int { return len(c.keys) }

// Lookup probes by normalized name.
func (c *ItemCatalog) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[textnorm.Key(name)]
	return e, ok
}

// Entries returns the entries in key insertion order.
func (c *ItemCatalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.entries[k])
	}
	return out
}

// Matcher indexes the catalog for Match.
func (c *ItemCatalog) Matcher(opts ...match.Option) *match.Matcher[Entry] {
	entries := c.Entries()
	return match.New(append([]string(nil), c.keys...), entries, opts...)
}

// TraitCatalog is the ordered list of canonical trait names. Duplicates are kept;
// lookups resolve to the first occurrence.
type TraitCatalog struct {
	traits     []string
	normalized []string
	set        map[string]int
}

func NewTraitCatalog(traits []string) *TraitCatalog {
	c := &TraitCatalog{set: make(map[string]int, len(traits))}
	for _, t := range traits {
		t = textnorm.Name(t)
		if t == "" {
			continue
		}
		k := textnorm.Key(t)
		if _, ok := c.set[k]; !ok {
			c.set[k] = len(c.traits)
		}
		c.traits = append(c.traits, t)
		c.normalized = append(c.normalized, k)
	}
	return c
}

func (c *TraitCatalog) Len() int { return len(c.traits) }

func (c *TraitCatalog) Traits() []string { return append([]string(nil), c.traits...) }

// Lookup returns the canonical form of the first trait whose normalized form equals
// the normalized query.
func (c *TraitCatalog) Lookup(s string) (string, bool) {
	i, ok := c.set[textnorm.Key(s)]
	if !ok {
		return "", false
	}
	return c.traits[i], true
}

func (c *TraitCatalog) Matcher(opts ...match.Option) *match.Matcher[string] {
	return match.New(append([]string(nil), c.normalized...), c.Traits(), opts...)
}
