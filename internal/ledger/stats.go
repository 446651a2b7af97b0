package ledger

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/ramonehamilton/swu-binder/internal/cards"
)

// Filter narrows the base cards considered by statistics and missing lists.
// Empty fields match anything; matching is case-insensitive.
type Filter struct {
	Rarity string `json:"rarity,omitempty"`
	Type   string `json:"type,omitempty"`
	Aspect string `json:"aspect,omitempty"`
}

// IsZero reports whether the filter matches every card.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

func (l *Ledger) filterMatcher(f Filter) func(cards.Card) bool {
	rarity := l.syn.NormalizeRarity(f.Rarity)
	kind := l.syn.NormalizeType(f.Type)
	aspect := strings.TrimSpace(f.Aspect)
	special := strings.EqualFold(rarity, cards.RaritySpecial)

	return func(c cards.Card) bool {
		if rarity != "" && !strings.EqualFold(c.Rarity, rarity) {
			if !special || !l.syn.IsSpecial(c.Rarity) {
				return false
			}
		}
		if kind != "" && !strings.EqualFold(c.Type, kind) {
			return false
		}
		if aspect != "" && !lo.ContainsBy(c.Aspects, func(a string) bool { return strings.EqualFold(a, aspect) }) {
			return false
		}
		return true
	}
}

// Stats partitions the considered base cards by ownership.
// Complete+Incomplete+Missing always equals Total.
type Stats struct {
	SetKey     string  `json:"setKey"`
	Complete   int     `json:"complete"`
	Incomplete int     `json:"incomplete"`
	Missing    int     `json:"missing"`
	Total      int     `json:"total"`
	Owned      int     `json:"owned"`
	Percent    float64 `json:"percent"`
	Filter     Filter  `json:"filter"`
}

// CompletionStats counts complete, incomplete, and missing base cards.
func (l *Ledger) CompletionStats(ctx context.Context, setKey string, f Filter) (Stats, error) {
	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return Stats{}, err
	}
	counts, err := l.Quantities(ctx, cat.SetKey)
	if err != nil {
		return Stats{}, err
	}

	match := l.filterMatcher(f)
	s := Stats{SetKey: cat.SetKey, Filter: f}
	for _, card := range cat.BaseCards {
		if !match(card) {
			continue
		}
		s.Total++
		q := counts[card.Number]
		s.Owned += q
		switch {
		case q >= quotaFor(cat, card):
			s.Complete++
		case q > 0:
			s.Incomplete++
		default:
			s.Missing++
		}
	}
	if s.Total > 0 {
		s.Percent = float64(s.Complete) / float64(s.Total) * 100
	}
	return s, nil
}

// MissingRow is one base card short of its quota. Have counts every
// printing of the card, so an owned alt printing completes the base.
type MissingRow struct {
	BaseNumber int     `json:"baseNumber" csv:"number"`
	Name       string  `json:"name" csv:"name"`
	Subtitle   string  `json:"subtitle,omitempty" csv:"subtitle"`
	Type       string  `json:"type,omitempty" csv:"type"`
	Rarity     string  `json:"rarity,omitempty" csv:"rarity"`
	Have       int     `json:"have" csv:"have"`
	Quota      int     `json:"quota" csv:"quota"`
	Needed     int     `json:"needed" csv:"needed"`
	UnitPrice  float64 `json:"unitPrice" csv:"unit_price"`
	LineCost   float64 `json:"lineCost" csv:"line_cost"`
}

// DisplayName returns "Name - Subtitle" when a subtitle is present.
func (r MissingRow) DisplayName() string {
	return cards.Card{Name: r.Name, Subtitle: r.Subtitle}.DisplayName()
}

// MissingReport is the missing list for one set.
type MissingReport struct {
	SetKey      string       `json:"setKey"`
	Rows        []MissingRow `json:"rows"`
	TotalNeeded int          `json:"totalNeeded"`
	TotalCost   float64      `json:"totalCost"`
}

// MissingList lists every considered base card whose combined quantity
// across all its printings is below quota.
func (l *Ledger) MissingList(ctx context.Context, setKey string, f Filter) (MissingReport, error) {
	cat, err := l.catalog(ctx, setKey)
	if err != nil {
		return MissingReport{}, err
	}
	counts, err := l.Quantities(ctx, cat.SetKey)
	if err != nil {
		return MissingReport{}, err
	}

	match := l.filterMatcher(f)
	rep := MissingReport{SetKey: cat.SetKey, Rows: []MissingRow{}}
	for _, card := range cat.BaseCards {
		if !match(card) {
			continue
		}
		quota := quotaFor(cat, card)
		have := lo.SumBy(cat.Printings(card.Number), func(n int) int { return counts[n] })
		if have >= quota {
			continue
		}

		needed := quota - have
		row := MissingRow{
			BaseNumber: card.Number,
			Name:       card.Name,
			Subtitle:   card.Subtitle,
			Type:       card.Type,
			Rarity:     card.Rarity,
			Have:       have,
			Quota:      quota,
			Needed:     needed,
			UnitPrice:  card.MarketPrice,
			LineCost:   float64(needed) * card.MarketPrice,
		}
		rep.Rows = append(rep.Rows, row)
		rep.TotalNeeded += needed
		rep.TotalCost += row.LineCost
	}
	return rep, nil
}
