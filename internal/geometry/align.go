package geometry

import "fmt"

// Align names where an image span sits inside the terminal's columns
// or rows. The horizontal names and the vertical names behave the
// same; both exist so call sites read naturally.
type Align string

const (
	Left   Align = "left"
	Center Align = "center"
	Right  Align = "right"

	Top    Align = "top"
	Middle Align = "middle"
	Bottom Align = "bottom"
)

// ParseAlign validates a user-supplied alignment name.
func ParseAlign(s string) (Align, error) {
	switch a := Align(s); a {
	case Left, Center, Right, Top, Middle, Bottom:
		return a, nil
	}
	return "", fmt.Errorf("unknown alignment %q", s)
}

// Offset returns the cell offset that places a span of spanCells
// inside totalCells. Spans wider than the total pin to the start so
// the offset is never negative.
func (a Align) Offset(spanCells, totalCells int) int {
	switch a {
	case Center, Middle:
		return max(0, (totalCells-spanCells)/2)
	case Right, Bottom:
		return max(0, totalCells-spanCells)
	default:
		return 0
	}
}

// SplitCells decomposes a pixel distance into whole cells plus a
// leftover offset inside the next cell. The leftover is always in
// [0, cell) even for negative distances, because the protocol's
// pixel offset keys cannot carry negative values.
func SplitCells(px, cell int) (cells, offset int) {
	if cell < 1 {
		return 0, 0
	}
	cells = px / cell
	offset = px % cell
	if offset < 0 {
		cells--
		offset += cell
	}
	return cells, offset
}
