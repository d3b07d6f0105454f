// Package grid lays out multiple images as uniform cells across the
// terminal, with optional captions under each cell.
package grid

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/llehouerou/pixcat/internal/geometry"
	"github.com/llehouerou/pixcat/internal/pix"
	"github.com/llehouerou/pixcat/internal/session"
	"github.com/llehouerou/pixcat/internal/term"
)

// Overflow decides what happens to captions wider than their cell.
type Overflow string

const (
	// OverflowTruncate cuts the caption to one cell width, ending in …
	OverflowTruncate Overflow = "truncate"
	// OverflowWrap breaks the caption onto the available caption rows.
	OverflowWrap Overflow = "wrap"
)

// Item is one grid entry: an image and an optional caption printed
// below it. Captions may carry ANSI styling; widths are measured on
// the visible characters only.
type Item struct {
	Image   pix.Image
	Caption string
}

// Grid walks items left to right, top to bottom, fitting each image
// into a CellCols x CellRows region of terminal cells. Images keep
// their aspect ratio inside the cell; Align controls where the slack
// goes.
type Grid struct {
	CellCols int // cell width in terminal columns
	CellRows int // cell height in terminal rows

	MaxCols int // images per row; 0 fits as many as the terminal holds
	MaxRows int // rows drawn before remaining items are dropped; 0 = all

	HAlign geometry.Align // image position inside its cell, horizontally
	VAlign geometry.Align // and vertically

	CaptionRows int      // rows reserved under each image; 0 = one when captions exist
	Overflow    Overflow // caption overflow handling, truncate by default

	// Enlarge scales small images up to fill their cell region.
	Enlarge bool
}

// Columns returns how many grid cells fit in one terminal row. One
// column of slack is kept so a cell never touches the right edge.
func (gr Grid) Columns(g term.Geometry) int {
	fit := (g.Cols - 1) / gr.CellCols
	if gr.MaxCols > 0 && gr.MaxCols < fit {
		fit = gr.MaxCols
	}
	return max(1, fit)
}

// Show draws the items and returns one error per item that failed,
// in input order. A failed item leaves its cell empty and the walk
// continues; the grid only aborts when the terminal itself rejects
// writes or lacks graphics support.
func (gr Grid) Show(g term.Geometry, sess *session.Session, items []Item) []error {
	if len(items) == 0 {
		return nil
	}
	if !sess.Supported() {
		return []error{session.ErrUnsupported}
	}
	capRows := gr.captionRows(items)
	if err := gr.validate(g, capRows); err != nil {
		return []error{err}
	}

	var (
		errs      []error
		perRow    = gr.Columns(g)
		rowHeight = gr.CellRows + capRows
		col, row  = 0, 0
	)

	spec := geometry.FitCell(gr.CellCols, gr.CellRows)
	if gr.Enlarge {
		spec = spec.Enlarged()
	}

	openRow := func() error {
		// Scroll enough lines into existence, then climb back to the
		// top of the fresh block.
		return sess.WriteString(strings.Repeat("\n", rowHeight) + term.MoveDown(-rowHeight))
	}
	closeRow := func() error {
		return sess.WriteString(term.MoveDown(rowHeight-1) + "\n")
	}

	if err := openRow(); err != nil {
		return append(errs, err)
	}

	for i, item := range items {
		if err := gr.showItem(g, sess, item, spec, col, capRows); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.Image.Origin(), err))
		}

		col++
		if col < perRow && i < len(items)-1 {
			continue
		}
		if err := closeRow(); err != nil {
			return append(errs, err)
		}

		col = 0
		row++
		if gr.MaxRows > 0 && row >= gr.MaxRows {
			break
		}
		if i < len(items)-1 {
			if err := openRow(); err != nil {
				return append(errs, err)
			}
		}
	}
	return errs
}

// showItem draws one image and its caption. The cursor starts on the
// row's top line and must be back there when this returns.
func (gr Grid) showItem(g term.Geometry, sess *session.Session, item Item, spec geometry.Spec, col, capRows int) error {
	srcW, srcH := item.Image.Size()
	res, err := geometry.Resolve(srcW, srcH, g, spec)
	if err != nil {
		return err
	}

	imgCols, imgRows := res.Cells(g)
	cellStart := col * gr.CellCols
	hOff := gr.HAlign.Offset(imgCols, gr.CellCols)
	vOff := gr.VAlign.Offset(imgRows, gr.CellRows)

	move := term.MoveColumn(cellStart + hOff + 1)
	if vOff > 0 {
		move += term.MoveDown(vOff)
	}
	if err := sess.WriteString(move); err != nil {
		return err
	}

	_, err = item.Image.Transform(spec).Show(g, sess, pix.ShowOptions{NoCursor: true})

	restore := ""
	if vOff > 0 {
		restore = term.MoveDown(-vOff)
	}
	if err != nil {
		if restore != "" {
			if werr := sess.WriteString(restore); werr != nil {
				return werr
			}
		}
		return err
	}
	if restore != "" {
		if err := sess.WriteString(restore); err != nil {
			return err
		}
	}

	return gr.showCaption(sess, item.Caption, cellStart, capRows)
}

// showCaption prints the caption rows under the image region and puts
// the cursor back on the row's top line.
func (gr Grid) showCaption(sess *session.Session, caption string, cellStart, capRows int) error {
	if capRows < 1 || caption == "" {
		return nil
	}

	lines := gr.captionLines(caption, capRows)
	var sb strings.Builder
	sb.WriteString(term.MoveDown(gr.CellRows))
	for _, line := range lines {
		off := gr.HAlign.Offset(ansi.StringWidth(line), gr.CellCols)
		sb.WriteString(term.MoveColumn(cellStart + off + 1))
		sb.WriteString(line)
		sb.WriteString(term.MoveDown(1))
	}
	// Climb back up past the caption rows and the image region.
	sb.WriteString(term.MoveDown(-(gr.CellRows + len(lines))))
	return sess.WriteString(sb.String())
}

func (gr Grid) captionLines(caption string, capRows int) []string {
	if caption == "" {
		return nil
	}
	if gr.Overflow == OverflowWrap && capRows > 1 {
		lines := strings.Split(ansi.Wrap(caption, gr.CellCols, ""), "\n")
		if len(lines) > capRows {
			lines = lines[:capRows]
			lines[capRows-1] = ansi.Truncate(lines[capRows-1], gr.CellCols, "…")
		}
		return lines
	}
	return []string{ansi.Truncate(caption, gr.CellCols, "…")}
}

func (gr Grid) captionRows(items []Item) int {
	if gr.CaptionRows > 0 {
		return gr.CaptionRows
	}
	for _, item := range items {
		if item.Caption != "" {
			return 1
		}
	}
	return 0
}

func (gr Grid) validate(g term.Geometry, capRows int) error {
	if gr.CellCols < 1 || gr.CellRows < 1 {
		return fmt.Errorf("cell size %dx%d: %w", gr.CellCols, gr.CellRows, geometry.ErrInvalidDimension)
	}
	if gr.CellCols > g.Cols {
		return fmt.Errorf("cell width %d exceeds the terminal's %d columns: %w",
			gr.CellCols, g.Cols, geometry.ErrInvalidDimension)
	}
	if height := gr.CellRows + capRows; height > g.Rows {
		return fmt.Errorf("cell height %d exceeds the terminal's %d rows: %w",
			height, g.Rows, geometry.ErrInvalidDimension)
	}
	return nil
}
