package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
	"github.com/ramonehamilton/swu-binder/internal/search"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	s := New(Options{})
	s.Catalogs.Seed(cards.BuildCatalog("SOR", []cards.Card{
		{Name: "Ahsoka Tano", Number: 3, Aspects: []string{"Vigilance"}, Type: "Unit"},
		{Name: "Darth Vader", Number: 10, Type: "Leader"},
		{Name: "Battlefield Marine", Number: 13, Type: "Unit"},
		{Name: "Ahsoka Tano", Number: 30, Aspects: []string{"Vigilance"}, Type: "Unit"},
	}))
	s.Catalogs.Seed(cards.BuildCatalog("SHD", []cards.Card{
		{Name: "Cad Bane", Number: 47, Type: "Unit"},
		{Name: "HK-47", Number: 120, Type: "Unit"},
	}))
	t.Cleanup(s.Close)
	return s
}

func TestIncrementPrinting_ResolvesAltToBase(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	base, q, err := s.IncrementPrinting(ctx, "SOR", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, base)
	assert.Equal(t, 1, q)

	counts, _ := s.Ledger.Quantities(ctx, "SOR")
	assert.Equal(t, ledger.Counts{3: 1}, counts)

	base, q, err = s.DecrementPrinting(ctx, "SOR", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, base)
	assert.Equal(t, 0, q)

	_, _, err = s.IncrementPrinting(ctx, "SOR", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocate(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	_, _, _ = s.IncrementPrinting(ctx, "SOR", 3)

	loc, err := s.Locate(ctx, "sor", 30)
	require.NoError(t, err)
	assert.False(t, loc.IsBase)
	assert.Equal(t, 3, loc.Base.Number)
	assert.Equal(t, []int{3, 30}, loc.Printings)
	assert.Equal(t, 1, loc.Quantity)
	assert.Equal(t, 3, loc.Quota)
	// #30 is page 3, row 2, column 2: odd page, so spread column 6 of spread 1.
	assert.Equal(t, 3, loc.Cursor.Layout.Page)
	assert.Equal(t, 1, loc.Cursor.Spread.Spread)
	assert.Equal(t, 6, loc.Cursor.Spread.Column)

	_, err = s.Locate(ctx, "SOR", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch_CrossSet(t *testing.T) {
	s := newTestSession(t)

	got := s.Search(context.Background(), "47", "SOR")
	require.Len(t, got, 2)
	assert.Equal(t, search.KindNumber, got[0].Kind)
	assert.Equal(t, "SHD", got[0].SetKey)
	assert.Equal(t, "Cad Bane", got[0].Name)
	assert.Equal(t, search.KindName, got[1].Kind)
	assert.Equal(t, "HK-47", got[1].Name)
}

func TestSpreadView(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	_, _, _ = s.IncrementPrinting(ctx, "SOR", 10)

	view, err := s.SpreadView(ctx, "SOR", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, view.LeftPage)
	assert.Equal(t, 1, view.RightPage)
	assert.Equal(t, 2, view.TotalSpreads)
	require.Len(t, view.Slots, 12)

	vader := view.Slots[9]
	require.NotNil(t, vader.Card)
	assert.Equal(t, 10, vader.Number)
	assert.Equal(t, 1, vader.Quantity)
	assert.Equal(t, 1, vader.Quota)
	assert.Nil(t, view.Slots[0].Card, "gap in numbering has no card")

	// Out-of-range spreads clamp to the last one.
	last, err := s.SpreadView(ctx, "SOR", 99)
	require.NoError(t, err)
	assert.Equal(t, 1, last.Spread)
	assert.Equal(t, 2, last.LeftPage)
	require.NotEmpty(t, last.Slots)
	assert.Equal(t, 13, last.Slots[0].Number)
	assert.Equal(t, 30, last.Slots[len(last.Slots)-1].Number)
}
