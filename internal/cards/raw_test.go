package cards

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseSetFile_Shapes(t *testing.T) {
	bare := `[{"Name":"Han Solo","Number":"012"}]`
	wrapped := `{"data":[{"Name":"Han Solo","Number":"012"},{"Name":"Chewbacca","Number":13}]}`

	records, err := ParseSetFile([]byte(bare))
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("bare array: got %d records", len(records))
	}

	records, err = ParseSetFile([]byte(wrapped))
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("wrapped: got %d records", len(records))
	}

	for _, bad := range []string{"", "   ", `"hello"`, `{"cards":[]}`, `[{"Name":}`} {
		if _, err := ParseSetFile([]byte(bad)); !errors.Is(err, ErrMalformedSetFile) {
			t.Errorf("ParseSetFile(%q) error = %v, want ErrMalformedSetFile", bad, err)
		}
	}
}

func TestRawCard_AdaptHeterogeneousFields(t *testing.T) {
	doc := `[{
		"name": "Grand Moff Tarkin",
		"subTitle": "Oversector Governor",
		"cardNumber": "006",
		"aspects": [{"Name": "Command"}, "Villainy", null],
		"Type": {"Name": "leader"},
		"Rarity": {"name": "Legendary"},
		"MarketPrice": "$1,204.50"
	}]`

	records, err := ParseSetFile([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSetFile: %v", err)
	}

	card, ok := records[0].Adapt("SOR", DefaultSynonyms())
	if !ok {
		t.Fatal("expected record to adapt")
	}

	want := Card{
		SetKey:      "SOR",
		Name:        "Grand Moff Tarkin",
		Subtitle:    "Oversector Governor",
		Number:      6,
		Aspects:     []string{"Command", "Villainy"},
		Type:        TypeLeader,
		Rarity:      "Legendary",
		MarketPrice: 1204.50,
	}
	if !reflect.DeepEqual(card, want) {
		t.Errorf("Adapt() = %+v\nwant %+v", card, want)
	}
	if card.DisplayName() != "Grand Moff Tarkin - Oversector Governor" {
		t.Errorf("DisplayName = %q", card.DisplayName())
	}
}

func TestRawCard_NegativePriceDefaultsToZero(t *testing.T) {
	rec := NewRawCard(map[string]any{"Name": "Jawa", "Number": 9, "MarketPrice": -3})
	card, ok := rec.Adapt("SOR", nil)
	if !ok {
		t.Fatal("expected record to adapt")
	}
	if card.MarketPrice != 0 {
		t.Errorf("MarketPrice = %v, want 0", card.MarketPrice)
	}
	if card.Aspects == nil || len(card.Aspects) != 0 {
		t.Errorf("Aspects = %#v, want empty slice", card.Aspects)
	}
}

func TestSynonyms(t *testing.T) {
	syn := DefaultSynonyms()

	tests := []struct {
		raw  string
		want string
	}{
		{"c", "Common"},
		{" COMMON ", "Common"},
		{"starter", "Starter Deck Exclusive"},
		{"Mythic", "Mythic"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := syn.NormalizeRarity(tt.raw); got != tt.want {
			t.Errorf("NormalizeRarity(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	if got := syn.NormalizeType("Ground Unit"); got != "Unit" {
		t.Errorf("NormalizeType(Ground Unit) = %q", got)
	}
	if !syn.IsSpecial("starter deck exclusive") || syn.IsSpecial("Rare") {
		t.Error("IsSpecial grouping is wrong")
	}

	merged := syn.Merge(&Synonyms{Rarity: map[string]string{"SP": "Special"}, Special: []string{"Special"}})
	if got := merged.NormalizeRarity("sp"); got != "Special" {
		t.Errorf("merged NormalizeRarity(sp) = %q", got)
	}
	if merged.IsSpecial("Starter Deck Exclusive") {
		t.Error("merged Special list should replace the default")
	}
	if got := merged.NormalizeRarity("c"); got != "Common" {
		t.Errorf("merge lost default entry: %q", got)
	}
}

func TestSynonyms_NilUsesDefaults(t *testing.T) {
	var syn *Synonyms

	if !syn.IsSpecial("Promo") || syn.IsSpecial("Common") {
		t.Error("nil IsSpecial should use the default grouping")
	}
	if got := syn.NormalizeRarity("c"); got != "Common" {
		t.Errorf("nil NormalizeRarity(c) = %q", got)
	}
}
