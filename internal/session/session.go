// Package session wires the catalog cache, search resolver, and ledger into
// one explicit object owned by the application's top-level controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/binder"
	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/cards/setcache"
	"github.com/ramonehamilton/swu-binder/internal/cards/source"
	"github.com/ramonehamilton/swu-binder/internal/events"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/search"
)

// Options configures a Session.
type Options struct {
	Source   source.Source
	Store    ledger.Store
	Synonyms *cards.Synonyms
	Logger   *slog.Logger

	// Dispatcher receives ledger and catalog events. One is created when nil.
	Dispatcher *events.Dispatcher

	FetchTimeout   time.Duration
	PrewarmWorkers int
	SearchLimit    int
}

// Session holds the per-session catalog and ledger state.
type Session struct {
	Catalogs   *setcache.Cache
	Ledger     *ledger.Ledger
	Resolver   *search.Resolver
	Dispatcher *events.Dispatcher

	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session. Nothing is fetched until first use or Prewarm.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.NewDispatcher()
	}
	if opts.Synonyms == nil {
		opts.Synonyms = cards.DefaultSynonyms()
	}

	cache := setcache.New(setcache.Config{
		Source:         opts.Source,
		Synonyms:       opts.Synonyms,
		Logger:         opts.Logger,
		Publisher:      opts.Dispatcher,
		FetchTimeout:   opts.FetchTimeout,
		PrewarmWorkers: opts.PrewarmWorkers,
	})

	return &Session{
		Catalogs: cache,
		Ledger: ledger.New(ledger.Config{
			Catalogs:  cache,
			Store:     opts.Store,
			Synonyms:  opts.Synonyms,
			Logger:    opts.Logger,
			Publisher: opts.Dispatcher,
		}),
		Resolver:   search.NewResolver(cache, opts.SearchLimit),
		Dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		cancel:     func() {},
	}
}

// PrewarmAsync builds every manifest set in the background so cross-set
// search fills in as sets arrive. activeSet is built first.
func (s *Session) PrewarmAsync(ctx context.Context, activeSet string) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if activeSet != "" {
			if _, err := s.Catalogs.Get(ctx, activeSet); err != nil {
				s.logger.Warn("active set failed to load", "set", activeSet, "error", err)
			}
		}
		if err := s.Catalogs.Prewarm(ctx); err != nil {
			s.logger.Warn("prewarm finished with errors", "error", err)
			return
		}
		s.logger.Info("prewarm complete", "sets", len(s.Catalogs.Loaded()))
	}()
}

// Close stops background work and waits for it to finish.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// Sets returns the manifest entries.
func (s *Session) Sets(ctx context.Context) ([]source.SetEntry, error) {
	m, err := s.Catalogs.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Sets, nil
}

// Catalog returns one set's catalog, building it if needed.
func (s *Session) Catalog(ctx context.Context, setKey string) (*cards.Catalog, error) {
	return s.Catalogs.Get(ctx, setKey)
}

// Search resolves a query across every loaded set. The active set is loaded
// first when it is not cached yet.
func (s *Session) Search(ctx context.Context, query, activeSet string) []search.Suggestion {
	if activeSet != "" {
		if _, err := s.Catalogs.Get(ctx, activeSet); err != nil {
			s.logger.Debug("search without active set", "set", activeSet, "error", err)
		}
	}
	return s.Resolver.Resolve(query, activeSet)
}

// ErrNotFound is returned when a number is not a printing in the set.
var ErrNotFound = errors.New("card not found")

// Location describes where a printing sits in the binder and who owns how many.
type Location struct {
	SetKey    string        `json:"setKey"`
	Card      cards.Card    `json:"card"`
	Base      cards.Card    `json:"base"`
	IsBase    bool          `json:"isBase"`
	Printings []int         `json:"printings"`
	Cursor    binder.Cursor `json:"cursor"`
	Quantity  int           `json:"quantity"`
	Quota     int           `json:"quota"`
}

// Locate resolves any printing number to its binder position and its
// base card's owned quantity.
func (s *Session) Locate(ctx context.Context, setKey string, number int) (Location, error) {
	cat, err := s.Catalogs.Get(ctx, setKey)
	if err != nil {
		return Location{}, err
	}
	card, ok := cat.Printing(number)
	if !ok {
		return Location{}, fmt.Errorf("%w: %s #%d", ErrNotFound, cat.SetKey, number)
	}
	baseNumber, ok := cat.ResolveBase(number)
	if !ok {
		return Location{}, fmt.Errorf("%w: %s #%d has no base card", ErrNotFound, cat.SetKey, number)
	}
	base, _ := cat.Base(baseNumber)

	qty, err := s.Ledger.Quantity(ctx, cat.SetKey, baseNumber)
	if err != nil {
		return Location{}, err
	}
	return Location{
		SetKey:    cat.SetKey,
		Card:      card,
		Base:      base,
		IsBase:    baseNumber == number,
		Printings: cat.Printings(baseNumber),
		Cursor:    binder.NewCursor(number),
		Quantity:  qty,
		Quota:     base.Quota(),
	}, nil
}

// IncrementPrinting resolves any printing to its base card and increments it.
// This is the entry point for clicks on alt-art slots.
func (s *Session) IncrementPrinting(ctx context.Context, setKey string, number int) (int, int, error) {
	base, err := s.resolve(ctx, setKey, number)
	if err != nil {
		return 0, 0, err
	}
	q, err := s.Ledger.Increment(ctx, setKey, base)
	return base, q, err
}

// DecrementPrinting resolves any printing to its base card and decrements it.
func (s *Session) DecrementPrinting(ctx context.Context, setKey string, number int) (int, int, error) {
	base, err := s.resolve(ctx, setKey, number)
	if err != nil {
		return 0, 0, err
	}
	q, err := s.Ledger.Decrement(ctx, setKey, base)
	return base, q, err
}

func (s *Session) resolve(ctx context.Context, setKey string, number int) (int, error) {
	cat, err := s.Catalogs.Get(ctx, setKey)
	if err != nil {
		return 0, err
	}
	base, ok := cat.ResolveBase(number)
	if !ok {
		return 0, fmt.Errorf("%w: %s #%d", ErrNotFound, cat.SetKey, number)
	}
	return base, nil
}

// Slot is one binder slot on a spread.
type Slot struct {
	Number     int                   `json:"number"`
	Position   binder.SpreadPosition `json:"position"`
	Card       *cards.Card           `json:"card,omitempty"`
	BaseNumber int                   `json:"baseNumber,omitempty"`
	Quantity   int                   `json:"quantity"`
	Quota      int                   `json:"quota,omitempty"`
}

// Spread is one rendered spread with ownership per slot.
type Spread struct {
	SetKey       string `json:"setKey"`
	Spread       int    `json:"spread"`
	TotalSpreads int    `json:"totalSpreads"`
	LeftPage     int    `json:"leftPage,omitempty"`
	RightPage    int    `json:"rightPage,omitempty"`
	Slots        []Slot `json:"slots"`
}

// SpreadView lists the slots of a spread. A slot whose number has no card
// (a gap in the numbering) carries no Card. Quantities are the base card's.
func (s *Session) SpreadView(ctx context.Context, setKey string, spread int) (Spread, error) {
	cat, err := s.Catalogs.Get(ctx, setKey)
	if err != nil {
		return Spread{}, err
	}
	counts, err := s.Ledger.Quantities(ctx, cat.SetKey)
	if err != nil {
		return Spread{}, err
	}

	maxNumber := cat.MaxNumber()
	total := binder.TotalSpreads(maxNumber)
	spread = min(max(spread, 0), total-1)
	left, right := binder.SpreadPages(spread)

	view := Spread{
		SetKey:       cat.SetKey,
		Spread:       spread,
		TotalSpreads: total,
		LeftPage:     left,
		RightPage:    right,
		Slots:        []Slot{},
	}
	for _, n := range binder.SpreadSlots(spread, maxNumber) {
		l := binder.LayoutFromNumber(n)
		slot := Slot{Number: n, Position: binder.SpreadCoords(l.Page, l.Row, l.Column)}
		if card, ok := cat.Printing(n); ok {
			slot.Card = &card
			if base, ok := cat.ResolveBase(n); ok {
				slot.BaseNumber = base
				slot.Quantity = counts[base]
				if b, ok := cat.Base(base); ok {
					slot.Quota = b.Quota()
				}
			}
		}
		view.Slots = append(view.Slots, slot)
	}
	return view, nil
}
