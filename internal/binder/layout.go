// Package binder maps linear card numbers onto the physical binder:
// pages of 3x4 slots, grouped into two-page spreads.
package binder

const (
	// Rows is the number of slot rows on a page.
	Rows = 3
	// Columns is the number of slot columns on a page.
	Columns = 4
	// SlotsPerPage is the number of card slots on a single page.
	SlotsPerPage = Rows * Columns
	// SpreadColumns is the number of slot columns across an open spread.
	SpreadColumns = Columns * 2
)

// Layout is the page-local position of a card number.
type Layout struct {
	Page   int `json:"page"`
	Row    int `json:"row"`
	Column int `json:"column"`
}

// SpreadPosition is the spread-local position of a slot.
// Column runs 1-8 across both pages, Row is unchanged from the page row.
type SpreadPosition struct {
	Spread int `json:"spread"`
	Column int `json:"column"`
	Row    int `json:"row"`
}

// LayoutFromNumber returns the page, row and column holding card number n.
// n must be >= 1; callers bound it by the set's card count.
func LayoutFromNumber(n int) Layout {
	idx := n - 1
	return Layout{
		Page:   idx/SlotsPerPage + 1,
		Row:    (idx%SlotsPerPage)/Columns + 1,
		Column: idx%Columns + 1,
	}
}

// NumberFromLayout is the inverse of LayoutFromNumber.
func NumberFromLayout(page, row, column int) int {
	return (page-1)*SlotsPerPage + (row-1)*Columns + column
}

// Number returns the card number stored at this layout position.
func (l Layout) Number() int {
	return NumberFromLayout(l.Page, l.Row, l.Column)
}

// PageToSpread returns the spread index showing the given page.
// Spread 0 holds only page 1.
func PageToSpread(page int) int {
	if page <= 1 {
		return 0
	}
	return (page-2)/2 + 1
}

// SpreadToPrimaryPage returns the first page shown on a spread:
// 1 for spread 0, otherwise the even left-hand page.
func SpreadToPrimaryPage(spread int) int {
	if spread <= 0 {
		return 1
	}
	return 2 + (spread-1)*2
}

// SpreadPages returns the left and right pages of a spread.
// Spread 0 has no left page, reported as 0.
func SpreadPages(spread int) (left, right int) {
	if spread <= 0 {
		return 0, 1
	}
	left = SpreadToPrimaryPage(spread)
	return left, left + 1
}

// SpreadCoords maps a page-local position to its spread-local position.
// Odd pages sit on the right (columns 5-8), even pages on the left (1-4).
func SpreadCoords(page, row, column int) SpreadPosition {
	col := column
	if page%2 == 1 {
		col = column + Columns
	}
	return SpreadPosition{
		Spread: PageToSpread(page),
		Column: col,
		Row:    row,
	}
}

// TotalPages returns the number of pages needed for maxNumber cards (minimum 1).
func TotalPages(maxNumber int) int {
	if maxNumber <= 0 {
		return 1
	}
	pages := (maxNumber + SlotsPerPage - 1) / SlotsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}

// TotalSpreads returns the number of spreads for a set whose highest number is maxNumber.
func TotalSpreads(maxNumber int) int {
	rest := TotalPages(maxNumber) - 1
	if rest < 0 {
		rest = 0
	}
	return 1 + (rest+1)/2
}

// SpreadSlots lists the card numbers visible on a spread, left page first,
// each page top-to-bottom then left-to-right. Numbers above maxNumber are omitted.
func SpreadSlots(spread, maxNumber int) []int {
	left, right := SpreadPages(spread)
	slots := make([]int, 0, SlotsPerPage*2)
	for _, page := range []int{left, right} {
		if page < 1 {
			continue
		}
		first := NumberFromLayout(page, 1, 1)
		for n := first; n < first+SlotsPerPage; n++ {
			if n > maxNumber {
				return slots
			}
			slots = append(slots, n)
		}
	}
	return slots
}
