// Package watch follows the image directory and hands each tooltip to the
// pipeline as soon as both of its crops have landed.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/BlakeDonn/inven/pkg/pipeline"
)

const DefaultDebounce = 300 * time.Millisecond

type Watcher struct {
	dir      string
	naming   pipeline.Naming
	debounce time.Duration
	logger   *log.Logger

	files   map[string][]string
	emitted map[string]bool
}

func New(dir string, naming pipeline.Naming, debounce time.Duration, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		naming:   naming,
		debounce: debounce,
		logger:   logger,
		files:    map[string][]string{},
		emitted:  map[string]bool{},
	}
}

// MarkDone records ids that were already processed so they are not emitted
// again. Call it before Run.
func (w *Watcher) MarkDone(ids ...string) {
	for _, id := range ids {
		w.emitted[id] = true
	}
}

// Run starts watching and returns the channel of newly completed groups. Each id
// is emitted at most once. The channel is closed when ctx is done or the
// underlying watcher stops.
func (w *Watcher) Run(ctx context.Context) (<-chan pipeline.Group, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, err
	}
	ready, err := w.seed()
	if err != nil {
		fw.Close()
		return nil, err
	}
	w.logger.Printf("watching %s (debounce=%s) known=%d ready=%d", w.dir, w.debounce, len(w.files), len(ready))

	out := make(chan pipeline.Group, 64)
	go func() {
		defer close(out)
		defer fw.Close()

		for _, g := range ready {
			select {
			case out <- g:
			case <-ctx.Done():
				return
			}
		}

		pending := map[string]time.Time{}
		tick := w.debounce / 2
		if tick < 10*time.Millisecond {
			tick = 10 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if !pipeline.IsSupportedExt(name) {
					continue
				}
				// restart the quiet period while the file is still being written
				pending[name] = time.Now()
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) < w.debounce {
						continue
					}
					delete(pending, name)
					g, ok := w.add(name)
					if !ok {
						continue
					}
					select {
					case out <- g:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Printf("ERROR watch: %v", err)
			}
		}
	}()
	return out, nil
}

// seed registers the crops already on disk once the directory is watched, so
// a pair whose first half predates Run still completes. Groups that are
// already complete and not yet done are returned for emission.
func (w *Watcher) seed() ([]pipeline.Group, error) {
	names, err := pipeline.ListImages(w.dir)
	if err != nil {
		return nil, err
	}
	var ready []pipeline.Group
	for _, name := range names {
		if g, ok := w.add(name); ok {
			ready = append(ready, g)
		}
	}
	return ready, nil
}

// add registers a settled file and returns its group once it first becomes complete.
func (w *Watcher) add(name string) (pipeline.Group, bool) {
	if _, err := os.Stat(filepath.Join(w.dir, name)); err != nil {
		return pipeline.Group{}, false
	}
	id, ok := pipeline.FileID(name)
	if !ok || w.emitted[id] {
		return pipeline.Group{}, false
	}
	for _, n := range w.files[id] {
		if n == name {
			return pipeline.Group{}, false
		}
	}
	w.files[id] = append(w.files[id], name)
	groups := pipeline.GroupFiles(w.dir, w.files[id], w.naming, w.logger)
	if len(groups) != 1 || !groups[0].Complete() {
		return pipeline.Group{}, false
	}
	w.emitted[id] = true
	delete(w.files, id)
	return groups[0], true
}

// Accumulate streams groups through p and merges each new record into the table
// seeded with initial, replacing any earlier record with the same id. flush gets
// the full table, in id order, after every record; a flush error is logged and
// the loop goes on. It returns the final table when groups is drained.
func Accumulate(ctx context.Context, p *pipeline.Pipeline, groups <-chan pipeline.Group, initial []pipeline.Record, flush func([]pipeline.Record) error, logger *log.Logger) []pipeline.Record {
	if logger == nil {
		logger = log.Default()
	}
	table := make([]pipeline.Record, 0, len(initial))
	index := map[string]int{}
	for _, r := range initial {
		index[r.ID] = len(table)
		table = append(table, r)
	}
	for rec := range p.Stream(ctx, groups) {
		if i, ok := index[rec.ID]; ok {
			table[i] = rec
		} else {
			index[rec.ID] = len(table)
			table = append(table, rec)
		}
		pipeline.SortRecords(table)
		for i, r := range table {
			index[r.ID] = i
		}
		logger.Printf("group=%s processed item=%q trait=%q total=%d", rec.ID, rec.ItemName, rec.TraitName, len(table))
		if flush == nil {
			continue
		}
		if err := flush(table); err != nil {
			logger.Printf("ERROR export after group=%s: %v", rec.ID, err)
		}
	}
	return table
}
