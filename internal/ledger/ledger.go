// Package ledger tracks owned quantities per base card, one map per set,
// with a type-dependent quota per card.
//
// Every mutation computes a complete next map, persists it, and only then
// installs it, so readers never observe a half-applied change.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/events"
)

var (
	// ErrUnknownCard is returned when a number is not a printing in the set.
	ErrUnknownCard = errors.New("unknown card")

	// ErrNotBaseCard is returned when an alt printing number is passed where a
	// base number is required. Callers resolve alt printings to their base first.
	ErrNotBaseCard = errors.New("not a base card number")

	// ErrInvalidAction is returned for an unknown bulk action or import mode.
	ErrInvalidAction = errors.New("invalid action")

	// ErrCorruptLedger marks persisted ledger data that could not be decoded.
	ErrCorruptLedger = errors.New("corrupt ledger data")
)

// Counts maps base card number to owned quantity. Quantities are always
// positive; an absent number means zero.
type Counts map[int]int

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total returns the sum of all quantities.
func (c Counts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Numbers returns the tracked numbers in ascending order.
func (c Counts) Numbers() []int {
	out := make([]int, 0, len(c))
	for n := range c {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// CatalogProvider supplies the catalog for a set key.
type CatalogProvider interface {
	Get(ctx context.Context, setKey string) (*cards.Catalog, error)
}

// Change is one per-card quantity change within a persisted batch.
type Change struct {
	Number   int
	Delta    int
	Quantity int
}

// ChangeBatch groups the changes written by a single ledger operation.
type ChangeBatch struct {
	ID      string
	Source  string
	Changes []Change
}

// Store persists encoded per-set ledgers.
type Store interface {
	// LoadSet returns the stored payload for a set, or nil when none exists.
	LoadSet(ctx context.Context, setKey string) ([]byte, error)

	// SaveSet replaces the stored payload for a set and records the batch.
	SaveSet(ctx context.Context, setKey string, payload []byte, batch ChangeBatch) error

	// SetKeys lists every set with a stored payload.
	SetKeys(ctx context.Context) ([]string, error)
}

// SetWrite is one set's replacement payload within a multi-set save.
type SetWrite struct {
	SetKey  string
	Payload []byte
	Batch   ChangeBatch
}

// BatchStore is implemented by stores that can replace several sets
// atomically. Import uses it when available.
type BatchStore interface {
	SaveSets(ctx context.Context, writes []SetWrite) error
}

// Config configures a Ledger.
type Config struct {
	Catalogs  CatalogProvider
	Store     Store
	Synonyms  *cards.Synonyms
	Logger    *slog.Logger
	Publisher events.Publisher
}

// Ledger owns the per-set quantity maps for a session.
type Ledger struct {
	catalogs  CatalogProvider
	store     Store
	syn       *cards.Synonyms
	logger    *slog.Logger
	publisher events.Publisher

	mu   sync.Mutex
	sets map[string]*setState
}

type setState struct {
	key    string
	counts Counts
}

// New creates a ledger. A nil Store keeps everything in memory.
func New(cfg Config) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Synonyms == nil {
		cfg.Synonyms = cards.DefaultSynonyms()
	}
	return &Ledger{
		catalogs:  cfg.Catalogs,
		store:     cfg.Store,
		syn:       cfg.Synonyms,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		sets:      make(map[string]*setState),
	}
}

func foldSet(setKey string) string {
	return strings.ToLower(strings.TrimSpace(setKey))
}

// Quantities returns a copy of a set's ledger.
func (l *Ledger) Quantities(ctx context.Context, setKey string) (Counts, error) {
	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	st, err := l.load(ctx, cat.SetKey)
	if err != nil {
		return nil, err
	}
	return st.counts.Clone(), nil
}

// Quantity returns the owned quantity of one number (0 when untracked).
func (l *Ledger) Quantity(ctx context.Context, setKey string, number int) (int, error) {
	counts, err := l.Quantities(ctx, setKey)
	if err != nil {
		return 0, err
	}
	return counts[number], nil
}

// Increment adds one copy of a base card, saturating at its quota.
// It returns the resulting quantity.
func (l *Ledger) Increment(ctx context.Context, setKey string, baseNumber int) (int, error) {
	return l.step(ctx, setKey, baseNumber, +1, "increment")
}

// Decrement removes one copy of a base card. Reaching zero removes the entry.
func (l *Ledger) Decrement(ctx context.Context, setKey string, baseNumber int) (int, error) {
	return l.step(ctx, setKey, baseNumber, -1, "decrement")
}

func (l *Ledger) step(ctx context.Context, setKey string, number, delta int, source string) (int, error) {
	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return 0, err
	}
	card, err := baseCard(cat, number)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx, cat.SetKey)
	if err != nil {
		return 0, err
	}
	cur := st.counts[number]

	var want int
	switch {
	case delta > 0:
		quota := quotaFor(cat, card)
		if cur >= quota {
			return cur, nil
		}
		want = min(cur+delta, quota)
	default:
		if cur == 0 {
			return 0, nil
		}
		want = max(cur+delta, 0)
	}

	next := st.counts.Clone()
	setQuantity(next, number, want)

	if err := l.commit(ctx, st, next, source, ""); err != nil {
		return cur, err
	}
	return want, nil
}

// Reset clears a set's ledger.
func (l *Ledger) Reset(ctx context.Context, setKey string) error {
	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.load(ctx, cat.SetKey)
	if err != nil {
		return err
	}
	if len(st.counts) == 0 {
		return nil
	}
	if err := l.commit(ctx, st, Counts{}, "reset", uuid.NewString()); err != nil {
		return err
	}

	l.logger.Info("ledger reset", "set", st.key)
	l.dispatch(ctx, events.LedgerReset, events.LedgerResetEvent{SetKey: st.key})
	return nil
}

// catalog fetches a set's catalog, mapping cache errors to a wrapped error.
func (l *Ledger) catalog(ctx context.Context, setKey string) (*cards.Catalog, error) {
	if l.catalogs == nil {
		return nil, fmt.Errorf("ledger has no catalog provider")
	}
	cat, err := l.catalogs.Get(ctx, setKey)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", setKey, err)
	}
	return cat, nil
}

func baseCard(cat *cards.Catalog, number int) (cards.Card, error) {
	if card, ok := cat.Base(number); ok {
		return card, nil
	}
	if _, ok := cat.Printing(number); ok {
		return cards.Card{}, fmt.Errorf("%w: %s #%d", ErrNotBaseCard, cat.SetKey, number)
	}
	return cards.Card{}, fmt.Errorf("%w: %s #%d", ErrUnknownCard, cat.SetKey, number)
}

// quotaFor derives the quota from the base card's type, falling back to the
// printing list when the base entry has none.
func quotaFor(cat *cards.Catalog, card cards.Card) int {
	if card.Type != "" {
		return card.Quota()
	}
	t, _ := cat.TypeOf(card.Number)
	return cards.Quota(t)
}

func setQuantity(c Counts, number, quantity int) {
	if quantity <= 0 {
		delete(c, number)
		return
	}
	c[number] = quantity
}

// load returns the in-memory state for a set, reading the store on first
// access. Undecodable data yields an empty ledger; a store error is returned
// and nothing is cached, so the next call reads the store again.
// Caller holds l.mu.
func (l *Ledger) load(ctx context.Context, setKey string) (*setState, error) {
	k := foldSet(setKey)
	if st, ok := l.sets[k]; ok {
		return st, nil
	}

	payload, err := l.store.LoadSet(ctx, setKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", setKey, err)
	}

	st := &setState{key: setKey, counts: Counts{}}
	if payload != nil {
		counts, err := DecodeCounts(payload)
		if err != nil {
			l.logger.Warn("discarding unreadable ledger", "set", setKey, "error", err)
		} else {
			st.counts = counts
		}
	}
	l.sets[k] = st
	return st, nil
}

// pendingSet is a computed but not yet persisted replacement of a set's ledger.
type pendingSet struct {
	st      *setState
	next    Counts
	payload []byte
	batch   ChangeBatch
}

// prepare encodes next as a replacement for st. It returns nil when next
// equals the current ledger.
func (l *Ledger) prepare(st *setState, next Counts, source, batchID string) (*pendingSet, error) {
	changes := diff(st.counts, next)
	if len(changes) == 0 {
		return nil, nil
	}

	payload, err := EncodeCounts(next)
	if err != nil {
		return nil, err
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}
	return &pendingSet{
		st:      st,
		next:    next,
		payload: payload,
		batch:   ChangeBatch{ID: batchID, Source: source, Changes: changes},
	}, nil
}

// commit persists next and installs it. Caller holds l.mu.
func (l *Ledger) commit(ctx context.Context, st *setState, next Counts, source, batchID string) error {
	p, err := l.prepare(st, next, source, batchID)
	if err != nil || p == nil {
		return err
	}
	if err := l.store.SaveSet(ctx, st.key, p.payload, p.batch); err != nil {
		return fmt.Errorf("save ledger %s: %w", st.key, err)
	}
	l.install(ctx, p)
	return nil
}

// install swaps in a persisted replacement and announces it. Caller holds l.mu.
func (l *Ledger) install(ctx context.Context, p *pendingSet) {
	p.st.counts = p.next

	quantities := make(map[int]int, len(p.batch.Changes))
	for _, ch := range p.batch.Changes {
		quantities[ch.Number] = ch.Quantity
	}
	l.logger.Debug("ledger updated", "set", p.st.key, "source", p.batch.Source, "changes", len(p.batch.Changes))
	l.dispatch(ctx, events.LedgerUpdated, events.LedgerUpdatedEvent{
		SetKey:     p.st.key,
		Source:     p.batch.Source,
		Quantities: quantities,
	})
}

func (l *Ledger) dispatch(ctx context.Context, eventType string, data any) {
	if l.publisher == nil {
		return
	}
	l.publisher.Dispatch(events.New(ctx, eventType, data))
}

// diff lists per-number changes from prev to next in ascending number order.
func diff(prev, next Counts) []Change {
	seen := make(map[int]struct{}, len(prev)+len(next))
	for n := range prev {
		seen[n] = struct{}{}
	}
	for n := range next {
		seen[n] = struct{}{}
	}

	var out []Change
	for n := range seen {
		if d := next[n] - prev[n]; d != 0 {
			out = append(out, Change{Number: n, Delta: d, Quantity: next[n]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// EncodeCounts renders a ledger as a JSON object of "number": quantity.
func EncodeCounts(c Counts) ([]byte, error) {
	out := make(map[string]int, len(c))
	for n, q := range c {
		if q > 0 {
			out[strconv.Itoa(n)] = q
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return data, nil
}

// DecodeCounts parses a persisted ledger. Non-positive quantities are pruned.
func DecodeCounts(data []byte) (Counts, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptLedger, err)
	}
	out := make(Counts, len(raw))
	for k, q := range raw {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: bad card number %q", ErrCorruptLedger, k)
		}
		if q > 0 {
			out[n] = q
		}
	}
	return out, nil
}
