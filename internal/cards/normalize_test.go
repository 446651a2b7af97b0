package cards

import (
	"reflect"
	"testing"
)

func TestNormalize_AltPrintings(t *testing.T) {
	records := []RawCard{
		NewRawCard(map[string]any{"Name": "Ahsoka Tano", "Number": "003", "Aspects": []string{"Vigilance"}, "Type": "Unit", "Rarity": "R"}),
		NewRawCard(map[string]any{"Name": "Ahsoka Tano", "Number": 150, "Aspects": []string{"Vigilance"}, "Type": "Unit", "Rarity": "Rare"}),
		NewRawCard(map[string]any{"Name": "HK-47", "Number": 47, "Type": "Unit", "Rarity": "c"}),
		NewRawCard(map[string]any{"Name": "Darth Vader", "Subtitle": "Dark Lord of the Sith", "Number": 10, "Type": "Leader"}),
		NewRawCard(map[string]any{"Name": "Darth Vader", "Number": 11, "Type": "Unit"}),
	}

	cat := Normalize("SOR", records, DefaultSynonyms())

	if got := len(cat.AllCards); got != 5 {
		t.Fatalf("expected 5 printings, got %d", got)
	}
	if got := len(cat.BaseCards); got != 4 {
		t.Fatalf("expected 4 base cards, got %d", got)
	}

	if !reflect.DeepEqual(cat.BaseToAll[3], []int{3, 150}) {
		t.Errorf("BaseToAll[3] = %v, want [3 150]", cat.BaseToAll[3])
	}
	if cat.AltToBase[150] != 3 {
		t.Errorf("AltToBase[150] = %d, want 3", cat.AltToBase[150])
	}
	if _, ok := cat.AltToBase[3]; ok {
		t.Error("base number 3 must not be a key in AltToBase")
	}

	// Different subtitle or type splits the group.
	if !cat.IsBase(10) || !cat.IsBase(11) {
		t.Error("Darth Vader printings with different subtitle/type must both be base cards")
	}

	card, ok := cat.Base(3)
	if !ok {
		t.Fatal("base card 3 not found")
	}
	if card.Rarity != "Rare" {
		t.Errorf("rarity = %q, want Rare", card.Rarity)
	}
	if hk, _ := cat.Base(47); hk.Rarity != "Common" {
		t.Errorf("HK-47 rarity = %q, want Common", hk.Rarity)
	}
}

func TestNormalize_DiscardsInvalidRecords(t *testing.T) {
	records := []RawCard{
		NewRawCard(map[string]any{"Name": "", "Number": 1}),
		NewRawCard(map[string]any{"Name": "   ", "Number": 2}),
		NewRawCard(map[string]any{"Name": "No Number"}),
		NewRawCard(map[string]any{"Name": "Zero", "Number": 0}),
		NewRawCard(map[string]any{"Name": "Negative", "Number": -4}),
		NewRawCard(map[string]any{"Name": "Fraction", "Number": 2.5}),
		NewRawCard(map[string]any{"Name": "Garbage", "Number": "abc"}),
		NewRawCard(map[string]any{"Name": " Valid ", "Number": "7"}),
	}

	cat := Normalize("SOR", records, nil)
	if len(cat.AllCards) != 1 {
		t.Fatalf("expected 1 valid card, got %d: %+v", len(cat.AllCards), cat.AllCards)
	}
	if cat.AllCards[0].Name != "Valid" || cat.AllCards[0].Number != 7 {
		t.Errorf("unexpected card %+v", cat.AllCards[0])
	}
}

func TestNormalize_DuplicateNumberPrefersAspects(t *testing.T) {
	records := []RawCard{
		NewRawCard(map[string]any{"Name": "Luke Skywalker", "Number": 5}),
		NewRawCard(map[string]any{"Name": "Luke Skywalker", "Number": 5, "Aspects": []string{"Heroism"}}),
		NewRawCard(map[string]any{"Name": "Luke Skywalker", "Number": 5}),
	}

	cat := Normalize("SOR", records, nil)
	if len(cat.AllCards) != 1 {
		t.Fatalf("expected 1 printing after dedupe, got %d", len(cat.AllCards))
	}
	if got := cat.AllCards[0].PrimaryAspect(); got != "Heroism" {
		t.Errorf("PrimaryAspect = %q, want Heroism", got)
	}
}

func TestNormalize_GroupKeyIsCaseAndSpaceInsensitive(t *testing.T) {
	cat := BuildCatalog("SHD", []Card{
		{Name: "Boba Fett", Subtitle: "Disintegrator", Type: "Unit", Number: 40},
		{Name: " boba fett", Subtitle: "DISINTEGRATOR ", Type: "unit", Number: 300},
		{Name: "Boba Fett", Subtitle: "Disintegrator", Type: "Unit", Number: 290},
	})

	if !reflect.DeepEqual(cat.BaseToAll[40], []int{40, 290, 300}) {
		t.Errorf("BaseToAll[40] = %v", cat.BaseToAll[40])
	}
	if len(cat.BaseCards) != 1 {
		t.Errorf("expected 1 base card, got %d", len(cat.BaseCards))
	}
}

func TestBuildCatalog_CoverageInvariant(t *testing.T) {
	input := []Card{}
	names := []string{"A", "B", "C", "A", "B", "D", "A"}
	for i, n := range names {
		input = append(input, Card{Name: n, Number: (i + 1) * 3, Type: "Unit"})
	}
	cat := BuildCatalog("X", input)

	seen := make(map[int]int)
	for base, nums := range cat.BaseToAll {
		if nums[0] != base {
			t.Errorf("BaseToAll[%d] does not start with the base: %v", base, nums)
		}
		for _, n := range nums {
			seen[n]++
		}
	}
	for _, c := range cat.AllCards {
		if seen[c.Number] != 1 {
			t.Errorf("number %d appears %d times across BaseToAll", c.Number, seen[c.Number])
		}
		base, ok := cat.ResolveBase(c.Number)
		if !ok {
			t.Errorf("number %d does not resolve to a base", c.Number)
			continue
		}
		if alt, isAlt := cat.AltToBase[c.Number]; isAlt {
			if alt != base || alt == c.Number {
				t.Errorf("AltToBase[%d] = %d, resolved %d", c.Number, alt, base)
			}
		} else if base != c.Number {
			t.Errorf("non-alt number %d resolved to %d", c.Number, base)
		}
	}
}

func TestCatalog_Lookups(t *testing.T) {
	cat := BuildCatalog("SOR", []Card{
		{Name: "Leia", Type: "Leader", Number: 1},
		{Name: "Leia", Type: "Leader", Number: 200},
		{Name: "Echo Base", Type: "Base", Number: 20},
	})

	if _, ok := cat.ResolveBase(999); ok {
		t.Error("unknown number must not resolve")
	}
	if got, _ := cat.ResolveBase(200); got != 1 {
		t.Errorf("ResolveBase(200) = %d, want 1", got)
	}
	if typ, ok := cat.TypeOf(200); !ok || typ != "Leader" {
		t.Errorf("TypeOf(200) = %q, %v", typ, ok)
	}
	if cat.MaxNumber() != 200 {
		t.Errorf("MaxNumber = %d, want 200", cat.MaxNumber())
	}

	sum := cat.Summary()
	if sum.BaseCards != 2 || sum.AltPrintings != 1 || sum.TotalPages != 17 || sum.TotalSpreads != 9 {
		t.Errorf("unexpected summary %+v", sum)
	}

	var nilCat *Catalog
	if _, ok := nilCat.Base(1); ok {
		t.Error("nil catalog must report not found")
	}
}

func TestQuota(t *testing.T) {
	tests := map[string]int{
		"Leader": 1, "leader": 1, " BASE ": 1,
		"Unit": 3, "Event": 3, "": 3, "Upgrade": 3,
	}
	for typ, want := range tests {
		if got := Quota(typ); got != want {
			t.Errorf("Quota(%q) = %d, want %d", typ, got, want)
		}
	}
}
