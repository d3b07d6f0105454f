// Package term reads terminal geometry, detects kitty graphics support and
// builds the cursor movement sequences image placement relies on.
package term

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// Fallback cell size in pixels when the terminal does not report its pixel
// dimensions through TIOCGWINSZ.
const (
	fallbackCellWidth  = 8
	fallbackCellHeight = 16
)

// Geometry is a snapshot of the terminal dimensions, in cells and in pixels
// per cell. Taken once per display call.
type Geometry struct {
	Cols       int
	Rows       int
	CellWidth  int
	CellHeight int
}

// PixelWidth returns the viewport width in pixels.
func (g Geometry) PixelWidth() int { return g.Cols * g.CellWidth }

// PixelHeight returns the viewport height in pixels.
func (g Geometry) PixelHeight() int { return g.Rows * g.CellHeight }

// Terminal wraps the controlling terminal on stdout.
type Terminal struct {
	out *os.File
}

// Current returns the terminal attached to stdout.
func Current() *Terminal {
	return &Terminal{out: os.Stdout}
}

// IsTTY reports whether the output is attached to a terminal.
func (t *Terminal) IsTTY() bool {
	return term.IsTerminal(int(t.out.Fd()))
}

// Geometry queries the terminal size. When the terminal reports no pixel
// dimensions, cell size falls back to 8x16 estimates.
func (t *Terminal) Geometry() (Geometry, error) {
	if !t.IsTTY() {
		return Geometry{}, errors.New("output is not a terminal")
	}

	cols, rows, xpx, ypx, err := querySize(int(t.out.Fd()))
	if err != nil || cols == 0 || rows == 0 {
		cols, rows, err = term.GetSize(int(t.out.Fd()))
		if err != nil {
			return Geometry{}, fmt.Errorf("query terminal size: %w", err)
		}
		xpx, ypx = 0, 0
	}

	g := Geometry{Cols: cols, Rows: rows}
	if xpx > 0 && ypx > 0 {
		g.CellWidth = xpx / cols
		g.CellHeight = ypx / rows
	}
	if g.CellWidth < 1 {
		g.CellWidth = fallbackCellWidth
	}
	if g.CellHeight < 1 {
		g.CellHeight = fallbackCellHeight
	}
	return g, nil
}

// Cursor movement sequences. Columns and rows are 1-based.

// MoveColumn moves the cursor to an absolute column on the current row.
func MoveColumn(col int) string {
	if col < 1 {
		col = 1
	}
	return fmt.Sprintf("\x1b[%dG", col)
}

// MoveRow moves the cursor to an absolute row, keeping the column.
func MoveRow(row int) string {
	if row < 1 {
		row = 1
	}
	return fmt.Sprintf("\x1b[%dd", row)
}

// MoveTo moves the cursor to an absolute row and column.
func MoveTo(row, col int) string {
	if row < 1 {
		row = 1
	}
	if col < 1 {
		col = 1
	}
	return fmt.Sprintf("\x1b[%d;%dH", row, col)
}

// MoveRight moves the cursor n columns to the right; negative n moves left.
func MoveRight(n int) string {
	switch {
	case n > 0:
		return fmt.Sprintf("\x1b[%dC", n)
	case n < 0:
		return fmt.Sprintf("\x1b[%dD", -n)
	}
	return ""
}

// MoveDown moves the cursor n rows down; negative n moves up.
func MoveDown(n int) string {
	switch {
	case n > 0:
		return fmt.Sprintf("\x1b[%dB", n)
	case n < 0:
		return fmt.Sprintf("\x1b[%dA", -n)
	}
	return ""
}
