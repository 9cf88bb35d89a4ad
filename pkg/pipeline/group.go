package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// idRE extracts the capture id shared by the title and trait crops of one tooltip.
var idRE = regexp.MustCompile(`(?i)_(\d+)\.(png|jpe?g)$`)

// Naming is the file prefix convention of the cropping step.
type Naming struct {
	TitlePrefix string
	TraitPrefix string
}

func DefaultNaming() Naming {
	return Naming{TitlePrefix: "title_cropped", TraitPrefix: "trait_cropped"}
}

// Group pairs the two crops of one tooltip.
type Group struct {
	ID        string
	TitlePath string
	TraitPath string
}

func (g Group) Complete() bool { return g.TitlePath != "" && g.TraitPath != "" }

// FileID returns the capture id encoded in name, if any.
func FileID(name string) (string, bool) {
	m := idRE.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// GroupFiles pairs names from dir by capture id. Any name carrying an id opens a
// group even without a recognized prefix; such groups stay incomplete. When two
// files claim the same role the later one in names wins. Groups come back in
// numeric id order.
func GroupFiles(dir string, names []string, n Naming, logger *log.Logger) []Group {
	if logger == nil {
		logger = log.Default()
	}
	byID := map[string]*Group{}
	for _, name := range names {
		id, ok := FileID(name)
		if !ok {
			continue
		}
		g, ok := byID[id]
		if !ok {
			g = &Group{ID: id}
			byID[id] = g
		}
		full := filepath.Join(dir, name)
		switch {
		case strings.HasPrefix(name, n.TitlePrefix):
			if g.TitlePath != "" {
				logger.Printf("WARN group=%s duplicate title %s replaces %s", id, name, filepath.Base(g.TitlePath))
			}
			g.TitlePath = full
		case strings.HasPrefix(name, n.TraitPrefix):
			if g.TraitPath != "" {
				logger.Printf("WARN group=%s duplicate trait %s replaces %s", id, name, filepath.Base(g.TraitPath))
			}
			g.TraitPath = full
		}
	}
	out := make([]Group, 0, len(byID))
	for _, g := range byID {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

// ListImages returns the supported image files in dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !IsSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func IsSupportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// idLess orders numeric ids numerically and anything else lexically after them.
func idLess(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
