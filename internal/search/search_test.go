package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/swu-binder/internal/cards"
)

type staticCatalogs []*cards.Catalog

func (s staticCatalogs) Loaded() []*cards.Catalog { return s }

func testCatalogs() staticCatalogs {
	shd := cards.BuildCatalog("SHD", []cards.Card{
		{Name: "Boba Fett", Subtitle: "Any Methods Necessary", Number: 12, Type: "Leader"},
		{Name: "Fett's Firespray", Number: 20, Type: "Unit"},
		{Name: "HK-47", Subtitle: "Meatbag Hunter", Number: 120, Type: "Unit"},
		{Name: "Padmé Amidala", Number: 47, Type: "Unit"},
	})
	sor := cards.BuildCatalog("SOR", []cards.Card{
		{Name: "Ahsoka Tano", Number: 3, Type: "Unit"},
		{Name: "Jango Fett", Number: 30, Type: "Unit"},
		{Name: "Ahsoka Tano", Number: 47, Type: "Unit"},
		{Name: "Ahsoka Tano", Number: 150, Type: "Unit"},
	})
	return staticCatalogs{shd, sor}
}

func TestResolve_NumberAndNameBothReturned(t *testing.T) {
	r := NewResolver(testCatalogs(), 0)

	got := r.Resolve("47", "SHD")
	require.Len(t, got, 3)

	// Numeric hits first, active set first.
	assert.Equal(t, Suggestion{Kind: KindNumber, SetKey: "SHD", BaseNumber: 47, Name: "Padmé Amidala", Type: "Unit"}, got[0])
	// SOR #47 is an alt printing of #3.
	assert.Equal(t, KindNumber, got[1].Kind)
	assert.Equal(t, "SOR", got[1].SetKey)
	assert.Equal(t, 3, got[1].BaseNumber)
	// Then the name hit on "HK-47".
	assert.Equal(t, KindName, got[2].Kind)
	assert.Equal(t, 120, got[2].BaseNumber)
}

func TestResolve_LeadingZeros(t *testing.T) {
	r := NewResolver(testCatalogs(), 0)

	got := r.Resolve("  0150 ", "SOR")
	require.Len(t, got, 1)
	assert.Equal(t, KindNumber, got[0].Kind)
	assert.Equal(t, 3, got[0].BaseNumber)

	assert.Empty(t, r.Resolve("000", "SOR"))
	assert.Empty(t, r.Resolve("   ", "SOR"))
}

func TestResolve_NameOrdering(t *testing.T) {
	r := NewResolver(testCatalogs(), 0)

	got := r.Resolve("fett", "SOR")
	require.Len(t, got, 3)
	// Active set first, then by match position, then by name.
	assert.Equal(t, "Jango Fett", got[0].Name)
	assert.Equal(t, "Fett's Firespray", got[1].Name)
	assert.Equal(t, "Boba Fett", got[2].Name)

	for _, s := range got {
		assert.Equal(t, KindName, s.Kind)
	}
}

func TestResolve_MatchesSubtitleAndIgnoresPunctuation(t *testing.T) {
	r := NewResolver(testCatalogs(), 0)

	got := r.Resolve("meat-bag", "")
	require.Len(t, got, 1)
	assert.Equal(t, "HK-47", got[0].Name)

	got = r.Resolve("padme", "")
	require.Len(t, got, 1)
	assert.Equal(t, 47, got[0].BaseNumber)
}

func TestResolve_Limit(t *testing.T) {
	var list []cards.Card
	for i := 1; i <= 30; i++ {
		list = append(list, cards.Card{Name: "Stormtrooper", Subtitle: string(rune('A' + i)), Number: i})
	}
	r := NewResolver(staticCatalogs{cards.BuildCatalog("SOR", list)}, 0)

	got := r.Resolve("storm", "SOR")
	assert.Len(t, got, DefaultLimit)
	assert.Equal(t, 1, got[0].BaseNumber)
}

func TestResolve_StableForIdenticalInput(t *testing.T) {
	r := NewResolver(testCatalogs(), 0)
	first := r.Resolve("a", "SHD")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Resolve("a", "SHD"))
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HK-47", "hk47"},
		{"  Padmé Amidala ", "padmeamidala"},
		{"Fett's Firespray", "fettsfirespray"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
