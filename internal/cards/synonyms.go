package cards

import "strings"

// Synonyms maps historical rarity and type spellings onto canonical names.
// Keys are matched case-insensitively after trimming; unknown values pass through.
type Synonyms struct {
	Rarity map[string]string `toml:"rarity"`
	Type   map[string]string `toml:"type"`

	// Special lists the canonical rarities grouped under the "Special" bulk target.
	Special []string `toml:"special"`
}

// RaritySpecial is the grouping name for starter and promo rarities.
const RaritySpecial = "Special"

// DefaultSynonyms returns the built-in table.
func DefaultSynonyms() *Synonyms {
	return &Synonyms{
		Rarity: map[string]string{
			"c":                      "Common",
			"common":                 "Common",
			"u":                      "Uncommon",
			"uncommon":               "Uncommon",
			"r":                      "Rare",
			"rare":                   "Rare",
			"l":                      "Legendary",
			"legendary":              "Legendary",
			"s":                      RaritySpecial,
			"special":                RaritySpecial,
			"starter":                "Starter Deck Exclusive",
			"starter deck exclusive": "Starter Deck Exclusive",
			"sde":                    "Starter Deck Exclusive",
			"p":                      "Promo",
			"promo":                  "Promo",
		},
		Type: map[string]string{
			"leader":      TypeLeader,
			"base":        TypeBase,
			"unit":        "Unit",
			"ground":      "Unit",
			"space":       "Unit",
			"ground unit": "Unit",
			"space unit":  "Unit",
			"event":       "Event",
			"upgrade":     "Upgrade",
			"token":       "Token",
			"token unit":  "Token",
		},
		Special: []string{RaritySpecial, "Starter Deck Exclusive", "Promo"},
	}
}

// Merge returns a copy of s with the entries of other layered on top.
func (s *Synonyms) Merge(other *Synonyms) *Synonyms {
	if s == nil {
		s = DefaultSynonyms()
	}
	out := &Synonyms{
		Rarity:  make(map[string]string),
		Type:    make(map[string]string),
		Special: append([]string(nil), s.Special...),
	}
	for k, v := range s.Rarity {
		out.Rarity[foldKey(k)] = v
	}
	for k, v := range s.Type {
		out.Type[foldKey(k)] = v
	}
	if other == nil {
		return out
	}
	for k, v := range other.Rarity {
		out.Rarity[foldKey(k)] = v
	}
	for k, v := range other.Type {
		out.Type[foldKey(k)] = v
	}
	if len(other.Special) > 0 {
		out.Special = append([]string(nil), other.Special...)
	}
	return out
}

// NormalizeRarity maps a raw rarity onto its canonical name.
func (s *Synonyms) NormalizeRarity(raw string) string {
	return lookup(s.rarity(), raw)
}

// NormalizeType maps a raw type onto its canonical name.
func (s *Synonyms) NormalizeType(raw string) string {
	return lookup(s.types(), raw)
}

// IsSpecial reports whether a canonical rarity belongs to the Special grouping.
func (s *Synonyms) IsSpecial(rarity string) bool {
	var special []string
	if s == nil {
		special = DefaultSynonyms().Special
	} else {
		special = s.Special
	}
	for _, r := range special {
		if strings.EqualFold(strings.TrimSpace(r), strings.TrimSpace(rarity)) {
			return true
		}
	}
	return false
}

func (s *Synonyms) rarity() map[string]string {
	if s == nil {
		return DefaultSynonyms().Rarity
	}
	return s.Rarity
}

func (s *Synonyms) types() map[string]string {
	if s == nil {
		return DefaultSynonyms().Type
	}
	return s.Type
}

func lookup(table map[string]string, raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if v, ok := table[strings.ToLower(trimmed)]; ok {
		return v
	}
	return trimmed
}
