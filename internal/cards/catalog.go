package cards

import "github.com/ramonehamilton/swu-binder/internal/binder"

// Catalog is the normalized view of one set. It is built once and never
// mutated afterwards, so it is safe to share between goroutines.
type Catalog struct {
	SetKey string `json:"setKey"`

	// AllCards holds every printing, unique by number, ascending.
	AllCards []Card `json:"allCards"`
	// BaseCards holds one printing per (name, subtitle, type), ascending.
	BaseCards []Card `json:"baseCards"`

	// BaseToAll maps a base number to every number in its group, base first.
	BaseToAll map[int][]int `json:"baseToAll"`
	// AltToBase maps each non-base number to its base number.
	AltToBase map[int]int `json:"altToBase"`

	byNumber  map[int]int // base number -> index into BaseCards
	printings map[int]int // any number -> index into AllCards
}

// Base returns the base card with the given number.
func (c *Catalog) Base(number int) (Card, bool) {
	if c == nil {
		return Card{}, false
	}
	i, ok := c.byNumber[number]
	if !ok {
		return Card{}, false
	}
	return c.BaseCards[i], true
}

// Printing returns any printing (base or alt) with the given number.
func (c *Catalog) Printing(number int) (Card, bool) {
	if c == nil {
		return Card{}, false
	}
	i, ok := c.printings[number]
	if !ok {
		return Card{}, false
	}
	return c.AllCards[i], true
}

// IsBase reports whether number is a base card number.
func (c *Catalog) IsBase(number int) bool {
	_, ok := c.Base(number)
	return ok
}

// ResolveBase maps a base or alt number to its base number.
// ok is false when the number is unknown or the alt map points nowhere.
func (c *Catalog) ResolveBase(number int) (int, bool) {
	if c == nil {
		return 0, false
	}
	if _, ok := c.byNumber[number]; ok {
		return number, true
	}
	base, ok := c.AltToBase[number]
	if !ok {
		return 0, false
	}
	if _, exists := c.byNumber[base]; !exists {
		return 0, false
	}
	return base, true
}

// Printings returns every number in a base card's group, base first.
// An unknown base yields nil.
func (c *Catalog) Printings(base int) []int {
	if c == nil {
		return nil
	}
	nums := c.BaseToAll[base]
	out := make([]int, len(nums))
	copy(out, nums)
	return out
}

// TypeOf returns the type of a base card, falling back to the all-printings
// list when the base lookup misses.
func (c *Catalog) TypeOf(number int) (string, bool) {
	if card, ok := c.Base(number); ok {
		return card.Type, true
	}
	if card, ok := c.Printing(number); ok {
		return card.Type, true
	}
	return "", false
}

// MaxNumber returns the highest printing number in the set, or 0 when empty.
func (c *Catalog) MaxNumber() int {
	if c == nil || len(c.AllCards) == 0 {
		return 0
	}
	return c.AllCards[len(c.AllCards)-1].Number
}

// TotalSpreads returns the number of binder spreads needed for this set.
func (c *Catalog) TotalSpreads() int {
	return binder.TotalSpreads(c.MaxNumber())
}

// Summary is a compact description of a catalog.
type Summary struct {
	SetKey       string `json:"setKey"`
	Printings    int    `json:"printings"`
	BaseCards    int    `json:"baseCards"`
	AltPrintings int    `json:"altPrintings"`
	MaxNumber    int    `json:"maxNumber"`
	TotalPages   int    `json:"totalPages"`
	TotalSpreads int    `json:"totalSpreads"`
}

// Summary describes the catalog's size and binder geometry.
func (c *Catalog) Summary() Summary {
	return Summary{
		SetKey:       c.SetKey,
		Printings:    len(c.AllCards),
		BaseCards:    len(c.BaseCards),
		AltPrintings: len(c.AltToBase),
		MaxNumber:    c.MaxNumber(),
		TotalPages:   binder.TotalPages(c.MaxNumber()),
		TotalSpreads: c.TotalSpreads(),
	}
}
