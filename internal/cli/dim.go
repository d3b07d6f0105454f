package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// Dim is a dimensional flag value: pixels by default, terminal cells
// with a trailing "t", so "300" means 300 pixels and "12t" means 12
// cells.
type Dim struct {
	Value int
	Cells bool
}

// UnmarshalText parses a flag value; kong calls this for Dim fields.
func (d *Dim) UnmarshalText(text []byte) error {
	s, cells := strings.CutSuffix(string(text), "t")
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid dimension %q: expected a number, with a trailing \"t\" for cells", string(text))
	}
	d.Value, d.Cells = v, cells
	return nil
}

// Px resolves the dimension to pixels given the pixel size of one cell
// along its axis.
func (d Dim) Px(cellSize int) int {
	if d.Cells {
		return d.Value * cellSize
	}
	return d.Value
}

// dimPx resolves an optional dimension, nil meaning zero.
func dimPx(d *Dim, cellSize int) int {
	if d == nil {
		return 0
	}
	return d.Px(cellSize)
}
