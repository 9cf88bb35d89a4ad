// Package match resolves noisy OCR text to a canonical catalog entry: an exact
// probe on the normalized key first, then token-sort fuzzy ranking.
package match

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/BlakeDonn/inven/pkg/textnorm"
)

const (
	DefaultThreshold = 80.0
	DefaultLimit     = 5
)

// Source tells how a Result was obtained.
type Source int

const (
	SourceNone Source = iota
	SourceExact
	SourceFuzzy
)

func (s Source) String() string {
	switch s {
	case SourceExact:
		return "exact"
	case SourceFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Candidate is one ranked fuzzy hit.
type Candidate struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Index int     `json:"-"`
}

// Result is the outcome of Match. A zero Source means no match; Value is then
// the zero T and Score is 0.
type Result[T any] struct {
	Value      T
	Key        string
	Score      float64
	Source     Source
	Candidates []Candidate
}

func (r Result[T]) Matched() bool { return r.Source != SourceNone }

type Option func(*options)

type options struct {
	threshold float64
	limit     int
}

// WithThreshold sets the minimum accepted fuzzy score (0-100].
func WithThreshold(t float64) Option {
	return func(o *options) {
		if t > 0 {
			o.threshold = t
		}
	}
}

// WithLimit caps how many ranked candidates are retained.
func WithLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.limit = n
		}
	}
}

// Matcher is immutable after New and safe for concurrent use.
type Matcher[T any] struct {
	keys   []string
	sorted []string
	values []T
	exact  map[string]int
	opts   options
}

// New indexes keys (normalized with textnorm.Key) against values. When two keys
// normalize identically the first one is kept. Empty keys are ignored.
func New[T any](keys []string, values []T, opts ...Option) *Matcher[T] {
	o := options{threshold: DefaultThreshold, limit: DefaultLimit}
	for _, fn := range opts {
		fn(&o)
	}
	m := &Matcher[T]{exact: make(map[string]int, len(keys)), opts: o}
	for i, k := range keys {
		if i >= len(values) {
			break
		}
		nk := textnorm.Key(k)
		if nk == "" {
			continue
		}
		if _, dup := m.exact[nk]; dup {
			continue
		}
		m.exact[nk] = len(m.keys)
		m.keys = append(m.keys, nk)
		m.sorted = append(m.sorted, sortTokens(nk))
		m.values = append(m.values, values[i])
	}
	return m
}

// Len reports the number of distinct keys.
func (m *Matcher[T]) Len() int { return len(m.keys) }

// Match resolves query against the index.
func (m *Matcher[T]) Match(query string) Result[T] {
	var res Result[T]
	q := textnorm.Key(query)
	if q == "" {
		return res
	}
	if i, ok := m.exact[q]; ok {
		return Result[T]{Value: m.values[i], Key: m.keys[i], Score: 100, Source: SourceExact}
	}

	sq := sortTokens(q)
	ranked := make([]Candidate, 0, len(m.keys))
	for i := range m.keys {
		ranked = append(ranked, Candidate{Key: m.keys[i], Score: ratio(sq, m.sorted[i]), Index: i})
	}
	slices.SortFunc(ranked, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(utf8.RuneCountInString(b.Key), utf8.RuneCountInString(a.Key)); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	if len(ranked) > m.opts.limit {
		ranked = ranked[:m.opts.limit]
	}
	res.Candidates = ranked

	// ranked is score-descending, so the head is the only candidate that can pass.
	if len(ranked) == 0 || ranked[0].Score < m.opts.threshold {
		return res
	}
	best := ranked[0]
	res.Value = m.values[best.Index]
	res.Key = best.Key
	res.Score = best.Score
	res.Source = SourceFuzzy
	return res
}

// TokenSortRatio scores a against b on a 0-100 scale after sorting their
// whitespace tokens.
func TokenSortRatio(a, b string) float64 {
	return ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	f := strings.Fields(s)
	slices.Sort(f)
	return strings.Join(f, " ")
}

// ratio is the normalized indel similarity: 200*LCS / (|a|+|b|).
func ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(total)
}
