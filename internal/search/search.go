// Package search resolves free-text queries to base cards across every
// loaded set: exact numbers (including alt printings) first, then name and
// subtitle substring matches.
package search

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ramonehamilton/swu-binder/internal/cards"
)

// DefaultLimit is the maximum number of suggestions returned.
const DefaultLimit = 10

// Kind says which branch produced a suggestion.
type Kind string

const (
	KindNumber Kind = "number"
	KindName   Kind = "name"
)

// Suggestion is one candidate base card.
type Suggestion struct {
	Kind       Kind   `json:"kind"`
	SetKey     string `json:"setKey"`
	BaseNumber int    `json:"baseNumber"`
	Name       string `json:"name"`
	Subtitle   string `json:"subtitle,omitempty"`
	Type       string `json:"type,omitempty"`
}

// Catalogs is the view of the catalog cache the resolver needs.
type Catalogs interface {
	// Loaded returns every built catalog, in a stable order.
	Loaded() []*cards.Catalog
}

// Resolver answers search queries. It is safe for concurrent use.
type Resolver struct {
	catalogs Catalogs
	limit    int

	mu    sync.Mutex
	index map[*cards.Catalog][]entry
}

type entry struct {
	card     cards.Card
	name     string
	subtitle string
}

// NewResolver creates a resolver over the given catalogs.
// A limit <= 0 selects DefaultLimit.
func NewResolver(catalogs Catalogs, limit int) *Resolver {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Resolver{
		catalogs: catalogs,
		limit:    limit,
		index:    make(map[*cards.Catalog][]entry),
	}
}

// Resolve returns at most limit suggestions for query. Sets that are not
// loaded yet simply contribute nothing.
func (r *Resolver) Resolve(query, activeSet string) []Suggestion {
	q := strings.TrimSpace(query)
	if q == "" {
		return []Suggestion{}
	}

	catalogs := orderCatalogs(r.catalogs.Loaded(), activeSet)

	numeric := numberMatches(q, catalogs)
	emitted := lo.SliceToMap(numeric, func(s Suggestion) (key, bool) {
		return key{set: s.SetKey, number: s.BaseNumber}, true
	})

	named := r.nameMatches(q, catalogs, activeSet, emitted)

	out := append(numeric, named...)
	if len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

type key struct {
	set    string
	number int
}

// orderCatalogs puts the active set first and keeps the rest in their given order.
func orderCatalogs(loaded []*cards.Catalog, activeSet string) []*cards.Catalog {
	out := make([]*cards.Catalog, 0, len(loaded))
	var rest []*cards.Catalog
	for _, cat := range loaded {
		if isActive(cat, activeSet) {
			out = append(out, cat)
		} else {
			rest = append(rest, cat)
		}
	}
	return append(out, rest...)
}

func isActive(cat *cards.Catalog, activeSet string) bool {
	return activeSet != "" && strings.EqualFold(cat.SetKey, activeSet)
}

// numberMatches handles all-digit queries: one suggestion per set whose
// base or alt printings include the number.
func numberMatches(q string, catalogs []*cards.Catalog) []Suggestion {
	if !isDigits(q) {
		return nil
	}
	trimmed := strings.TrimLeft(q, "0")
	if trimmed == "" {
		return nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil
	}

	var out []Suggestion
	for _, cat := range catalogs {
		base, ok := cat.ResolveBase(n)
		if !ok {
			continue
		}
		card, ok := cat.Base(base)
		if !ok {
			continue
		}
		out = append(out, suggestionFor(KindNumber, cat.SetKey, card))
	}
	return out
}

type hit struct {
	suggestion Suggestion
	active     bool
	pos        int
	setOrder   int
}

func (r *Resolver) nameMatches(q string, catalogs []*cards.Catalog, activeSet string, emitted map[key]bool) []Suggestion {
	needle := Normalize(q)
	if needle == "" {
		return nil
	}

	var hits []hit
	for order, cat := range catalogs {
		active := isActive(cat, activeSet)
		for _, e := range r.entries(cat) {
			if emitted[key{set: cat.SetKey, number: e.card.Number}] {
				continue
			}
			pos := matchPosition(needle, e)
			if pos < 0 {
				continue
			}
			hits = append(hits, hit{
				suggestion: suggestionFor(KindName, cat.SetKey, e.card),
				active:     active,
				pos:        pos,
				setOrder:   order,
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.active != b.active {
			return a.active
		}
		if a.pos != b.pos {
			return a.pos < b.pos
		}
		if a.suggestion.Name != b.suggestion.Name {
			return a.suggestion.Name < b.suggestion.Name
		}
		if a.setOrder != b.setOrder {
			return a.setOrder < b.setOrder
		}
		return a.suggestion.BaseNumber < b.suggestion.BaseNumber
	})

	return lo.Map(hits, func(h hit, _ int) Suggestion { return h.suggestion })
}

// matchPosition returns the earliest substring position of needle in the
// entry's name or subtitle, or -1.
func matchPosition(needle string, e entry) int {
	pos := strings.Index(e.name, needle)
	if sub := strings.Index(e.subtitle, needle); sub >= 0 && (pos < 0 || sub < pos) {
		pos = sub
	}
	return pos
}

func (r *Resolver) entries(cat *cards.Catalog) []entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.index[cat]; ok {
		return idx
	}
	idx := make([]entry, len(cat.BaseCards))
	for i, c := range cat.BaseCards {
		idx[i] = entry{card: c, name: Normalize(c.Name), subtitle: Normalize(c.Subtitle)}
	}
	r.index[cat] = idx
	return idx
}

func suggestionFor(kind Kind, setKey string, c cards.Card) Suggestion {
	return Suggestion{
		Kind:       kind,
		SetKey:     setKey,
		BaseNumber: c.Number,
		Name:       c.Name,
		Subtitle:   c.Subtitle,
		Type:       c.Type,
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Normalize lowercases s, folds accents, and drops everything that is not a
// letter or digit, so "Padmé Amidala" and "padme-amidala" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(accentFolder(), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
