// Package geometry decides the pixel size an image is displayed at
// and where it sits on screen. Resolution is pure: same inputs always
// yield the same result and nothing here touches the terminal.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/llehouerou/pixcat/internal/term"
)

var (
	// ErrInvalidDimension reports a zero or negative requested size.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrConstraintConflict reports bounds no output size can satisfy.
	ErrConstraintConflict = errors.New("size constraints cannot be satisfied together")
)

type kind int

const (
	kindNative kind = iota
	kindExact
	kindThumbnail
	kindFitScreen
	kindFitCell
	kindBounded
)

// Spec describes one resize intent. The zero value displays the
// source at its native size. Specs are values; the With* modifiers
// return copies, so one Spec can be shared and varied freely.
type Spec struct {
	kind kind

	w, h int // exact target size, or fit-cell region span

	maxDim int // thumbnail bound

	enlarge          bool // fit: scale small sources up to the region
	hMargin, vMargin int  // fit-screen: cells kept free on each side

	minW, minH, maxW, maxH int  // bounded box, 0 = unbounded
	stretch                bool // bounded: distort instead of failing
}

// Native displays the source at its decoded size.
func Native() Spec { return Spec{} }

// Exact resizes to precisely w x h pixels, ignoring aspect ratio.
func Exact(w, h int) Spec {
	return Spec{kind: kindExact, w: w, h: h}
}

// Thumbnail scales proportionally so the longer side lands exactly on
// maxDim pixels, shrinking or growing as needed.
func Thumbnail(maxDim int) Spec {
	return Spec{kind: kindThumbnail, maxDim: maxDim}
}

// FitScreen scales the source down to fit the whole terminal viewport,
// preserving aspect ratio. With enlarge, small sources are scaled up
// to the largest size that still fits.
func FitScreen(enlarge bool) Spec {
	return Spec{kind: kindFitScreen, enlarge: enlarge}
}

// FitCell is FitScreen against a cols x rows sub-region of the
// terminal instead of the full viewport.
func FitCell(cols, rows int) Spec {
	return Spec{kind: kindFitCell, w: cols, h: rows}
}

// Bounded keeps the source between the given pixel bounds: scaled up
// just enough to satisfy the minimums, then down just enough to
// satisfy the maximums, aspect preserved. Zero means unbounded on
// that side. A source already inside the bounds is left untouched.
func Bounded(minW, minH, maxW, maxH int) Spec {
	return Spec{kind: kindBounded, minW: minW, minH: minH, maxW: maxW, maxH: maxH}
}

// WithMargins keeps h columns free on the left and right and v rows
// free on the top and bottom when fitting to the screen. Ignored by
// other transforms.
func (s Spec) WithMargins(h, v int) Spec {
	s.hMargin, s.vMargin = h, v
	return s
}

// WithStretch lets a bounded resize distort the aspect ratio when the
// bounds cannot hold it otherwise, clamping each axis into its own
// range instead of failing. Ignored by other transforms.
func (s Spec) WithStretch() Spec {
	s.stretch = true
	return s
}

// Enlarged lets a fit transform scale small sources up to its region.
// FitScreen(true) and FitScreen(false).Enlarged() are equivalent.
func (s Spec) Enlarged() Spec {
	s.enlarge = true
	return s
}

// Result is a resolved display size in pixels.
type Result struct {
	Width  int
	Height int
}

// Cells returns how many terminal cells the result spans, rounding up
// so no pixel row or column is cut off.
func (r Result) Cells(g term.Geometry) (cols, rows int) {
	return ceilDiv(r.Width, g.CellWidth), ceilDiv(r.Height, g.CellHeight)
}

// Resolve computes the display size for a srcW x srcH source under
// the given transform. The terminal geometry only matters for the fit
// transforms; the others never read it.
func Resolve(srcW, srcH int, g term.Geometry, s Spec) (Result, error) {
	if srcW < 1 || srcH < 1 {
		return Result{}, fmt.Errorf("source size %dx%d: %w", srcW, srcH, ErrInvalidDimension)
	}

	switch s.kind {
	case kindNative:
		return Result{srcW, srcH}, nil

	case kindExact:
		if s.w < 1 || s.h < 1 {
			return Result{}, fmt.Errorf("target size %dx%d: %w", s.w, s.h, ErrInvalidDimension)
		}
		return Result{s.w, s.h}, nil

	case kindThumbnail:
		if s.maxDim < 1 {
			return Result{}, fmt.Errorf("thumbnail bound %d: %w", s.maxDim, ErrInvalidDimension)
		}
		f := float64(s.maxDim) / float64(max(srcW, srcH))
		return scaled(srcW, srcH, f), nil

	case kindFitScreen:
		if s.hMargin < 0 || s.vMargin < 0 {
			return Result{}, fmt.Errorf("margins %d,%d: %w", s.hMargin, s.vMargin, ErrInvalidDimension)
		}
		cols := g.Cols - 2*s.hMargin
		rows := g.Rows - 2*s.vMargin
		if cols < 1 || rows < 1 {
			return Result{}, fmt.Errorf("margins %d,%d leave no room in %dx%d cells: %w",
				s.hMargin, s.vMargin, g.Cols, g.Rows, ErrInvalidDimension)
		}
		return fit(srcW, srcH, cols*g.CellWidth, rows*g.CellHeight, s.enlarge), nil

	case kindFitCell:
		if s.w < 1 || s.h < 1 {
			return Result{}, fmt.Errorf("cell region %dx%d: %w", s.w, s.h, ErrInvalidDimension)
		}
		return fit(srcW, srcH, s.w*g.CellWidth, s.h*g.CellHeight, s.enlarge), nil

	case kindBounded:
		return bounded(srcW, srcH, s)
	}

	return Result{}, fmt.Errorf("unknown transform kind %d", s.kind)
}

// fit scales into a boxW x boxH pixel region preserving aspect ratio.
func fit(w, h, boxW, boxH int, enlarge bool) Result {
	f := math.Min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	if !enlarge {
		f = math.Min(f, 1)
	}
	return scaled(w, h, f)
}

func bounded(w, h int, s Spec) (Result, error) {
	minW, minH := max(s.minW, 1), max(s.minH, 1)
	if (s.maxW > 0 && minW > s.maxW) || (s.maxH > 0 && minH > s.maxH) {
		return Result{}, fmt.Errorf("minimum %dx%d exceeds maximum %dx%d: %w",
			minW, minH, s.maxW, s.maxH, ErrConstraintConflict)
	}

	fw, fh := float64(w), float64(h)

	// Scale up just enough to satisfy both minimums; the axis needing
	// the larger factor wins.
	up := math.Max(1, math.Max(float64(minW)/fw, float64(minH)/fh))

	// Then down just enough to satisfy both maximums.
	down := 1.0
	if s.maxW > 0 {
		down = math.Min(down, float64(s.maxW)/(fw*up))
	}
	if s.maxH > 0 {
		down = math.Min(down, float64(s.maxH)/(fh*up))
	}

	f := up * down
	res := scaled(w, h, f)

	// When the down pass undoes what the up pass established, no
	// single scale factor can satisfy all four bounds at this aspect
	// ratio.
	const eps = 1e-9
	if fw*f < float64(minW)-eps || fh*f < float64(minH)-eps {
		if !s.stretch {
			return Result{}, fmt.Errorf("aspect ratio %d:%d does not fit %dx%d..%dx%d: %w",
				w, h, minW, minH, s.maxW, s.maxH, ErrConstraintConflict)
		}
		res.Width = clampAxis(res.Width, minW, s.maxW)
		res.Height = clampAxis(res.Height, minH, s.maxH)
	}
	return res, nil
}

func scaled(w, h int, f float64) Result {
	return Result{
		Width:  max(1, int(math.Round(float64(w)*f))),
		Height: max(1, int(math.Round(float64(h)*f))),
	}
}

// clampAxis clamps v into [lo, hi], where hi <= 0 means no upper
// bound.
func clampAxis(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int {
	if b < 1 {
		return 0
	}
	return (a + b - 1) / b
}
