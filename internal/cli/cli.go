// Package cli defines the pixcat command tree and runs batches of
// images through the display pipeline.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alecthomas/kong"

	"github.com/llehouerou/pixcat/internal/config"
	"github.com/llehouerou/pixcat/internal/geometry"
	"github.com/llehouerou/pixcat/internal/grid"
	"github.com/llehouerou/pixcat/internal/pix"
	"github.com/llehouerou/pixcat/internal/source"
	"github.com/llehouerou/pixcat/internal/term"
	"github.com/llehouerou/pixcat/internal/text"
)

// CLI is the root command tree. A bare invocation with locations runs
// the show command.
type CLI struct {
	Show      ShowCmd      `cmd:"" default:"withargs" help:"Display images at their native size"`
	Resize    ResizeCmd    `cmd:"" aliases:"r" help:"Display images scaled into minimum/maximum pixel bounds"`
	Thumbnail ThumbnailCmd `cmd:"" aliases:"t" help:"Display images as fixed-size thumbnails"`
	FitScreen FitScreenCmd `cmd:"" aliases:"f" help:"Display images scaled to fit the terminal"`
	Grid      GridCmd      `cmd:"" help:"Display images as a grid with captions"`
	Detect    DetectCmd    `cmd:"" help:"Exit with 0 if the terminal supports kitty graphics, else 1"`
}

// Vars exposes config values to kong tag interpolation, so configured
// settings become flag defaults visible in --help.
func Vars(cfg *config.Config) kong.Vars {
	return kong.Vars{
		"align":    cfg.Align,
		"resample": cfg.Resample,
		"h_margin": strconv.Itoa(cfg.FitScreen.HMargin),
		"v_margin": strconv.Itoa(cfg.FitScreen.VMargin),
	}
}

// DisplayFlags is the positioning and output surface shared by every
// command that displays images one after another.
type DisplayFlags struct {
	Align     string `short:"a" enum:"left,center,right" default:"${align}" help:"Horizontal alignment, used when no absolute X is given"`
	AbsoluteX *Dim   `short:"x" name:"absolute-x" placeholder:"NUM" help:"Left image origin, from the terminal's left"`
	AbsoluteY *Dim   `short:"y" name:"absolute-y" placeholder:"NUM" help:"Top image origin, from the terminal's top"`
	RelativeX Dim    `short:"X" name:"relative-x" placeholder:"NUM" help:"Shift added to the horizontal position, may be negative"`
	RelativeY Dim    `short:"Y" name:"relative-y" placeholder:"NUM" help:"Shift down from the current cursor row, may be negative"`
	ZIndex    int    `short:"z" name:"z-index" help:"Images with a higher index draw in front; -1 and lower draw behind text"`
	CropW     Dim    `name:"crop-w" placeholder:"NUM" help:"Crop the displayed image left-to-right to NUM"`
	CropH     Dim    `name:"crop-h" placeholder:"NUM" help:"Crop the displayed image top-to-bottom to NUM"`

	Resample string `short:"r" enum:"nearest,bilinear,bicubic,mitchell,lanczos" default:"${resample}" help:"Resampling filter, from fastest to best quality"`

	PrintName   bool `short:"n" help:"Print each image's filename before it"`
	PrintOrigin bool `short:"O" help:"Print each image's path or URL before it"`
	PrintID     bool `short:"i" help:"Print each image's kitty id after it"`

	Hang      bool `short:"g" help:"Wait for an enter keypress between every image"`
	HangFinal bool `short:"G" help:"Wait for an enter keypress after all images are drawn"`

	Quiet       bool `short:"q" help:"Do not print per-image errors or the batch summary"`
	RaiseErrors bool `short:"R" help:"Abort the batch on the first error instead of continuing"`
}

// ShowCmd displays images without resizing.
type ShowCmd struct {
	Display   DisplayFlags `embed:""`
	Locations []string     `arg:"" name:"location" help:"Files, directories, or http(s) URLs"`
}

func (c *ShowCmd) Run(app *App) error {
	return app.runBatch(c.Locations, c.Display, func(term.Geometry) geometry.Spec {
		return geometry.Native()
	})
}

// ResizeCmd displays images upscaled or downscaled into bounds.
type ResizeCmd struct {
	MinWidth  *Dim `short:"w" name:"min-width" placeholder:"NUM" help:"Upscale when the width is lower than NUM"`
	MinHeight *Dim `name:"min-height" placeholder:"NUM" help:"Upscale when the height is lower than NUM"`
	MaxWidth  *Dim `short:"W" name:"max-width" placeholder:"NUM" help:"Downscale when the width is higher than NUM"`
	MaxHeight *Dim `short:"H" name:"max-height" placeholder:"NUM" help:"Downscale when the height is higher than NUM"`
	Stretch   bool `short:"S" help:"Distort the aspect ratio instead of failing when the bounds cannot hold it"`

	Display   DisplayFlags `embed:""`
	Locations []string     `arg:"" name:"location" help:"Files, directories, or http(s) URLs"`
}

func (c *ResizeCmd) Validate() error {
	for _, b := range []struct {
		name string
		dim  *Dim
	}{
		{"min-width", c.MinWidth},
		{"min-height", c.MinHeight},
		{"max-width", c.MaxWidth},
		{"max-height", c.MaxHeight},
	} {
		if b.dim != nil && b.dim.Value < 1 {
			return fmt.Errorf("invalid %s: %d", b.name, b.dim.Value)
		}
	}
	return nil
}

func (c *ResizeCmd) Run(app *App) error {
	return app.runBatch(c.Locations, c.Display, func(g term.Geometry) geometry.Spec {
		spec := geometry.Bounded(
			dimPx(c.MinWidth, g.CellWidth),
			dimPx(c.MinHeight, g.CellHeight),
			dimPx(c.MaxWidth, g.CellWidth),
			dimPx(c.MaxHeight, g.CellHeight),
		)
		if c.Stretch {
			spec = spec.WithStretch()
		}
		return spec
	})
}

// ThumbnailCmd displays images scaled so their longer side lands on a
// fixed pixel size.
type ThumbnailCmd struct {
	Size int `short:"s" default:"256" placeholder:"PX" help:"Scale so the longer side is PX pixels"`

	Display   DisplayFlags `embed:""`
	Locations []string     `arg:"" name:"location" help:"Files, directories, or http(s) URLs"`
}

func (c *ThumbnailCmd) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("invalid thumbnail size: %d", c.Size)
	}
	return nil
}

func (c *ThumbnailCmd) Run(app *App) error {
	return app.runBatch(c.Locations, c.Display, func(term.Geometry) geometry.Spec {
		return geometry.Thumbnail(c.Size)
	})
}

// FitScreenCmd displays images scaled into the terminal viewport.
type FitScreenCmd struct {
	Enlarge          bool `short:"e" help:"Scale up images smaller than the terminal"`
	HorizontalMargin int  `short:"o" name:"horizontal-margin" default:"${h_margin}" placeholder:"N" help:"Keep N columns free on the left and right"`
	VerticalMargin   int  `short:"v" name:"vertical-margin" default:"${v_margin}" placeholder:"N" help:"Keep N rows free above and below"`

	Display   DisplayFlags `embed:""`
	Locations []string     `arg:"" name:"location" help:"Files, directories, or http(s) URLs"`
}

func (c *FitScreenCmd) Validate() error {
	if c.HorizontalMargin < 0 || c.VerticalMargin < 0 {
		return fmt.Errorf("margins cannot be negative: %d/%d", c.HorizontalMargin, c.VerticalMargin)
	}
	return nil
}

func (c *FitScreenCmd) Run(app *App) error {
	return app.runBatch(c.Locations, c.Display, func(term.Geometry) geometry.Spec {
		return geometry.FitScreen(c.Enlarge).WithMargins(c.HorizontalMargin, c.VerticalMargin)
	})
}

// GridCmd lays images out as uniform cells with filename captions.
type GridCmd struct {
	Size    int  `short:"s" default:"256" placeholder:"PX" help:"Cell size in pixels; every image is fitted into a PX by PX region"`
	Columns int  `short:"c" help:"Images per row, 0 to fit as many as the terminal holds"`
	Rows    int  `help:"Rows drawn before remaining images are dropped, 0 to draw all"`
	Enlarge bool `short:"e" help:"Scale up images smaller than their cell"`

	Align    string `short:"a" enum:"left,center,right" default:"${align}" help:"Image and caption position inside the cell"`
	Resample string `short:"r" enum:"nearest,bilinear,bicubic,mitchell,lanczos" default:"${resample}" help:"Resampling filter, from fastest to best quality"`

	Captions    bool `negatable:"" default:"true" help:"Print each image's filename under it"`
	CaptionRows int  `name:"caption-rows" help:"Caption lines reserved under each image"`
	Wrap        bool `help:"Wrap long captions over the caption lines instead of truncating"`

	Quiet bool `short:"q" help:"Do not print per-image errors"`

	Locations []string `arg:"" name:"location" help:"Files, directories, or http(s) URLs"`
}

func (c *GridCmd) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("invalid cell size: %d", c.Size)
	}
	if c.Columns < 0 || c.Rows < 0 || c.CaptionRows < 0 {
		return fmt.Errorf("columns, rows and caption-rows cannot be negative")
	}
	return nil
}

func (c *GridCmd) Run(app *App) error {
	g, err := app.Geometry()
	if err != nil {
		return err
	}
	align, err := geometry.ParseAlign(c.Align)
	if err != nil {
		return err
	}
	filter, err := pix.ParseFilter(c.Resample)
	if err != nil {
		return err
	}
	quiet := c.Quiet || app.Config.Quiet

	var items []grid.Item
	failed := 0
	for _, loc := range c.Locations {
		refs, err := source.Expand([]string{loc})
		if err != nil {
			failed++
			app.reportError(quiet, err)
			continue
		}
		for _, ref := range refs {
			item, err := app.Loader.Load(context.Background(), ref)
			if err != nil {
				failed++
				app.reportError(quiet, err)
				continue
			}
			gi := grid.Item{Image: pix.FromItem(item).WithFilter(filter)}
			if c.Captions {
				gi.Caption = text.Sanitize(filepath.Base(item.Origin))
			}
			items = append(items, gi)
		}
	}

	gr := grid.Grid{
		CellCols:    ceilDiv(c.Size, g.CellWidth),
		CellRows:    ceilDiv(c.Size, g.CellHeight),
		MaxCols:     c.Columns,
		MaxRows:     c.Rows,
		HAlign:      align,
		VAlign:      geometry.Middle,
		CaptionRows: c.CaptionRows,
		Enlarge:     c.Enlarge,
	}
	if c.Wrap {
		gr.Overflow = grid.OverflowWrap
	}

	for _, err := range gr.Show(g, app.Session, items) {
		failed++
		app.reportError(quiet, err)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d failed", ErrFailed, failed)
	}
	return nil
}

// DetectCmd reports kitty graphics support through the exit code.
type DetectCmd struct {
	Timeout time.Duration `short:"t" default:"1s" help:"How long to wait for the terminal's reply when probing"`
}

func (c *DetectCmd) Run(app *App) error {
	if term.GraphicsSupported() || app.Terminal.Probe(c.Timeout) {
		return nil
	}
	return ErrNoGraphics
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
