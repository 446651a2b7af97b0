package binder

// Cursor is the ephemeral selection used for navigation. It is never persisted.
type Cursor struct {
	Number int            `json:"number"`
	Layout Layout         `json:"layout"`
	Spread SpreadPosition `json:"spread"`
}

// NewCursor places a cursor on card number n.
func NewCursor(n int) Cursor {
	if n < 1 {
		n = 1
	}
	l := LayoutFromNumber(n)
	return Cursor{
		Number: n,
		Layout: l,
		Spread: SpreadCoords(l.Page, l.Row, l.Column),
	}
}

// Step moves the cursor delta slots, clamped to [1, maxNumber].
func (c Cursor) Step(delta, maxNumber int) Cursor {
	n := c.Number + delta
	if maxNumber > 0 && n > maxNumber {
		n = maxNumber
	}
	if n < 1 {
		n = 1
	}
	return NewCursor(n)
}

// JumpToSpread moves the cursor to the first slot of a spread.
func (c Cursor) JumpToSpread(spread, maxNumber int) Cursor {
	if last := TotalSpreads(maxNumber) - 1; spread > last {
		spread = last
	}
	page := SpreadToPrimaryPage(spread)
	return NewCursor(NumberFromLayout(page, 1, 1)).Step(0, maxNumber)
}
