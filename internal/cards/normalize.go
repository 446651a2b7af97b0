package cards

import "sort"

// Normalize adapts raw records for one set and builds its catalog.
// Records without a name or a positive number are dropped.
func Normalize(setKey string, records []RawCard, syn *Synonyms) *Catalog {
	adapted := make([]Card, 0, len(records))
	for _, rec := range records {
		card, ok := rec.Adapt(setKey, syn)
		if !ok {
			continue
		}
		adapted = append(adapted, card)
	}
	return BuildCatalog(setKey, adapted)
}

// BuildCatalog derives the catalog from already-adapted cards.
//
// Duplicate numbers collapse to one printing, preferring the record that has
// aspects. Printings sharing (name, subtitle, type) form a group whose lowest
// number is the base card; the others are alt printings of it.
func BuildCatalog(setKey string, input []Card) *Catalog {
	allCards := dedupeByNumber(input)

	groups := make(map[groupKey][]int)
	order := make([]groupKey, 0)
	for _, c := range allCards {
		k := keyOf(c)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c.Number)
	}

	cat := &Catalog{
		SetKey:    setKey,
		AllCards:  allCards,
		BaseCards: make([]Card, 0, len(order)),
		BaseToAll: make(map[int][]int, len(order)),
		AltToBase: make(map[int]int),
		byNumber:  make(map[int]int, len(order)),
		printings: make(map[int]int, len(allCards)),
	}
	for i, c := range allCards {
		cat.printings[c.Number] = i
	}

	// allCards is sorted, so each group's numbers are already ascending
	// and its first entry is the lowest number.
	for _, k := range order {
		numbers := groups[k]
		base := numbers[0]
		cat.BaseToAll[base] = numbers
		for _, n := range numbers[1:] {
			cat.AltToBase[n] = base
		}
		cat.BaseCards = append(cat.BaseCards, allCards[cat.printings[base]])
	}

	sort.Slice(cat.BaseCards, func(i, j int) bool {
		return cat.BaseCards[i].Number < cat.BaseCards[j].Number
	})
	for i, c := range cat.BaseCards {
		cat.byNumber[c.Number] = i
	}

	return cat
}

// dedupeByNumber keeps one record per number and returns them sorted ascending.
func dedupeByNumber(input []Card) []Card {
	byNumber := make(map[int]Card, len(input))
	for _, c := range input {
		if c.Number <= 0 || c.Name == "" {
			continue
		}
		existing, ok := byNumber[c.Number]
		if !ok || preferRecord(c, existing) {
			byNumber[c.Number] = c
		}
	}

	out := make([]Card, 0, len(byNumber))
	for _, c := range byNumber {
		if c.Aspects == nil {
			c.Aspects = []string{}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// preferRecord reports whether candidate should replace existing for the same number.
func preferRecord(candidate, existing Card) bool {
	candHas := len(candidate.Aspects) > 0
	existHas := len(existing.Aspects) > 0
	if candHas != existHas {
		return candHas
	}
	return candidate.Number < existing.Number
}
