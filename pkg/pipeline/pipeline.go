// Package pipeline turns pairs of tooltip crops into inventory records: it groups
// files by capture id, runs OCR and catalog matching for each group on a bounded
// worker pool, and collects the records.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/BlakeDonn/inven/pkg/catalog"
	"github.com/BlakeDonn/inven/pkg/match"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/textnorm"
)

const DefaultWorkers = 4

// Reader is what the pipeline needs from OCR; *ocr.Arbiter satisfies it.
type Reader interface {
	Extract(ctx context.Context, img image.Image, mode ocr.Mode) ocr.Decision
}

type Config struct {
	Workers int
	// UnitTimeout bounds one group end to end. Zero disables it.
	UnitTimeout time.Duration
	Threshold   float64
	Limit       int
	Naming      Naming
	Verbose     bool
}

// Record is the assembled result for one complete group.
type Record struct {
	ID         string  `json:"file"`
	ItemName   string  `json:"item"`
	Type       string  `json:"type"`
	Rarity     string  `json:"rarity"`
	TraitName  string  `json:"trait"`
	TitleText  string  `json:"title_text"`
	TraitText  string  `json:"trait_text"`
	ItemScore  float64 `json:"item_score"`
	TraitScore float64 `json:"trait_score"`
}

// Matched reports whether both the item and the trait resolved.
func (r Record) Matched() bool {
	return r.ItemName != catalog.NoItemMatch && r.TraitName != catalog.NoTraitMatch
}

// Summary counts what a directory run did.
type Summary struct {
	Groups     int
	Incomplete int
	Skipped    int
	Records    int
}

type Pipeline struct {
	cfg    Config
	reader Reader
	items  *match.Matcher[catalog.Entry]
	traits *match.Matcher[string]
	logger *log.Logger
}

// New builds matchers over the catalogs once; the pipeline only reads them.
func New(items *catalog.ItemCatalog, traits *catalog.TraitCatalog, reader Reader, cfg Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Naming.TitlePrefix == "" || cfg.Naming.TraitPrefix == "" {
		cfg.Naming = DefaultNaming()
	}
	opts := []match.Option{match.WithThreshold(cfg.Threshold), match.WithLimit(cfg.Limit)}
	return &Pipeline{
		cfg:    cfg,
		reader: reader,
		items:  items.Matcher(opts...),
		traits: traits.Matcher(opts...),
		logger: logger,
	}
}

func (p *Pipeline) Naming() Naming { return p.cfg.Naming }

// ProcessDir groups the images in dir and processes every complete group.
func (p *Pipeline) ProcessDir(ctx context.Context, dir string) (Summary, []Record, error) {
	names, err := ListImages(dir)
	if err != nil {
		return Summary{}, nil, err
	}
	groups := GroupFiles(dir, names, p.cfg.Naming, p.logger)
	p.logger.Printf("found %d unique image groups dir=%s", len(groups), dir)

	sum := Summary{Groups: len(groups)}
	complete := make([]Group, 0, len(groups))
	for _, g := range groups {
		if !g.Complete() {
			p.logger.Printf("WARN group=%s missing title or trait image", g.ID)
			sum.Incomplete++
			continue
		}
		complete = append(complete, g)
	}
	recs := p.Process(ctx, complete)
	sum.Records = len(recs)
	sum.Skipped = len(complete) - len(recs)
	p.logger.Printf("total items processed: %d (incomplete=%d skipped=%d)", sum.Records, sum.Incomplete, sum.Skipped)
	return sum, recs, nil
}

// Process runs groups through the worker pool and returns their records in id order.
func (p *Pipeline) Process(ctx context.Context, groups []Group) []Record {
	in := make(chan Group)
	go func() {
		defer close(in)
		for _, g := range groups {
			select {
			case in <- g:
			case <-ctx.Done():
				return
			}
		}
	}()
	var out []Record
	for rec := range p.Stream(ctx, in) {
		out = append(out, rec)
	}
	SortRecords(out)
	return out
}

// Stream processes groups from in on cfg.Workers goroutines. The returned channel
// is closed once in is drained (or ctx is done) and every worker has finished.
// Groups that cannot be processed are logged and produce no record.
func (p *Pipeline) Stream(ctx context.Context, in <-chan Group) <-chan Record {
	out := make(chan Record, p.cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				var g Group
				var ok bool
				select {
				case g, ok = <-in:
					if !ok {
						return
					}
				case <-ctx.Done():
					return
				}
				rec, err := p.ProcessGroup(ctx, g)
				if err != nil {
					p.logger.Printf("ERROR group=%s skipped: %v", g.ID, err)
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ProcessGroup loads both crops of g and assembles its record. A crop that cannot
// be decoded fails the whole group.
func (p *Pipeline) ProcessGroup(ctx context.Context, g Group) (Record, error) {
	if !g.Complete() {
		return Record{}, fmt.Errorf("group %s: missing title or trait image", g.ID)
	}
	title, err := ocr.LoadImage(g.TitlePath)
	if err != nil {
		return Record{}, err
	}
	trait, err := ocr.LoadImage(g.TraitPath)
	if err != nil {
		return Record{}, err
	}
	return p.ProcessImages(ctx, g.ID, title, trait), nil
}

// ProcessImages assembles a record from already decoded crops.
func (p *Pipeline) ProcessImages(ctx context.Context, id string, title, trait image.Image) Record {
	if p.cfg.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.UnitTimeout)
		defer cancel()
	}
	rec := Record{
		ID:        id,
		ItemName:  catalog.NoItemMatch,
		Type:      catalog.UnknownValue,
		Rarity:    catalog.UnknownValue,
		TraitName: catalog.NoTraitMatch,
	}

	rec.TitleText = p.read(ctx, id, title, ocr.ModeTitle)
	p.logV("group=%s title text=%q", id, rec.TitleText)
	if item := p.MatchItem(rec.TitleText); item.Matched() {
		rec.ItemName = item.Value.Name
		rec.Type = item.Value.Type
		rec.Rarity = string(item.Value.Rarity)
		rec.ItemScore = item.Score
		p.logV("group=%s matched item=%q rarity=%s type=%s score=%.1f", id, rec.ItemName, rec.Rarity, rec.Type, item.Score)
	} else {
		p.logV("group=%s no item match", id)
	}

	rec.TraitText = p.read(ctx, id, trait, ocr.ModeTrait)
	normalized, tr := p.MatchTrait(rec.TraitText)
	p.logV("group=%s trait text=%q normalized=%q", id, rec.TraitText, normalized)
	if tr.Matched() {
		rec.TraitName = tr.Value
		rec.TraitScore = tr.Score
		p.logV("group=%s matched trait=%q score=%.1f", id, rec.TraitName, tr.Score)
	} else {
		p.logger.Printf("WARN group=%s unmatched trait %q", id, normalized)
	}
	return rec
}

// MatchItem resolves OCR'd title text against the item catalog.
func (p *Pipeline) MatchItem(text string) match.Result[catalog.Entry] {
	return p.items.Match(textnorm.Name(text))
}

// MatchTrait normalizes OCR'd trait text and resolves it against the trait catalog.
func (p *Pipeline) MatchTrait(text string) (string, match.Result[string]) {
	n := textnorm.Trait(text)
	return n, p.traits.Match(n)
}

func (p *Pipeline) read(ctx context.Context, id string, img image.Image, mode ocr.Mode) string {
	pre, err := ocr.Preprocess(img)
	if err != nil {
		p.logger.Printf("WARN group=%s %s preprocess failed: %v", id, mode, err)
		return ""
	}
	return p.reader.Extract(ctx, pre, mode).Text
}

func (p *Pipeline) logV(format string, args ...any) {
	if p.cfg.Verbose {
		p.logger.Printf(format, args...)
	}
}

// SortRecords orders records by numeric capture id.
func SortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool { return idLess(recs[i].ID, recs[j].ID) })
}
