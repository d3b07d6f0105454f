package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/pixcat/internal/config"
	"github.com/llehouerou/pixcat/internal/geometry"
	"github.com/llehouerou/pixcat/internal/pix"
	"github.com/llehouerou/pixcat/internal/session"
	"github.com/llehouerou/pixcat/internal/source"
	"github.com/llehouerou/pixcat/internal/term"
	"github.com/llehouerou/pixcat/internal/text"
)

var (
	// ErrFailed reports that some images in a batch could not be
	// displayed. The details were already written to stderr.
	ErrFailed = errors.New("not all images could be displayed")

	// ErrNoGraphics is returned by detect on terminals without kitty
	// graphics. It maps to exit code 1 and is never printed.
	ErrNoGraphics = errors.New("no kitty graphics support")
)

var (
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// App carries the collaborators commands need at run time. Protocol
// and cursor bytes go through Session; everything meant for humans
// goes to Stderr.
type App struct {
	Config   *config.Config
	Terminal *term.Terminal
	Session  *session.Session
	Loader   *source.Loader

	// Geometry snapshots the terminal dimensions once per command.
	Geometry func() (term.Geometry, error)

	Stdin  io.Reader
	Stderr io.Writer

	in *bufio.Reader
}

// NewApp wires an App against the real terminal on stdout.
func NewApp(cfg *config.Config) *App {
	t := term.Current()

	var supported bool
	switch cfg.Graphics {
	case "kitty":
		supported = true
	case "none":
		supported = false
	default:
		supported = term.GraphicsSupported()
	}

	return &App{
		Config:   cfg,
		Terminal: t,
		Session:  session.New(os.Stdout, supported),
		Loader:   source.NewLoader(),
		Geometry: t.Geometry,
		Stdin:    os.Stdin,
		Stderr:   os.Stderr,
	}
}

// runBatch displays every image the locations expand to, one after
// another. A failed item never aborts its siblings unless RaiseErrors
// is set; failures are reported as they happen and the batch ends with
// ErrFailed so the process can exit non-zero.
func (app *App) runBatch(locations []string, fl DisplayFlags, makeSpec func(term.Geometry) geometry.Spec) error {
	g, err := app.Geometry()
	if err != nil {
		return err
	}
	align, err := geometry.ParseAlign(fl.Align)
	if err != nil {
		return err
	}
	filter, err := pix.ParseFilter(fl.Resample)
	if err != nil {
		return err
	}

	spec := makeSpec(g)
	quiet := fl.Quiet || app.Config.Quiet

	var shown, failed int
	for _, loc := range locations {
		// Expanding per location keeps a bad path from taking its
		// siblings down with it.
		refs, err := source.Expand([]string{loc})
		if err != nil {
			if fl.RaiseErrors {
				return err
			}
			failed++
			app.reportError(quiet, err)
			continue
		}

		for _, ref := range refs {
			if err := app.showOne(g, ref, spec, filter, align, fl); err != nil {
				if fl.RaiseErrors {
					return err
				}
				failed++
				app.reportError(quiet, err)
				continue
			}
			shown++

			if fl.Hang {
				if err := app.waitEnter(""); err != nil {
					return err
				}
			}
		}
	}

	if fl.HangFinal {
		if err := app.waitEnter("Press enter to exit..."); err != nil {
			return err
		}
	}

	if !quiet && shown > 1 {
		app.printSummary(shown)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrFailed, failed, failed+shown)
	}
	return nil
}

func (app *App) showOne(g term.Geometry, ref string, spec geometry.Spec, filter pix.Filter, align geometry.Align, fl DisplayFlags) error {
	item, err := app.Loader.Load(context.Background(), ref)
	if err != nil {
		return err
	}
	img := pix.FromItem(item).Transform(spec).WithFilter(filter)

	if fl.PrintName {
		if err := app.printAligned(g, align, filepath.Base(item.Origin)); err != nil {
			return err
		}
	}
	if fl.PrintOrigin {
		if err := app.printAligned(g, align, item.Origin); err != nil {
			return err
		}
	}

	opts := pix.ShowOptions{
		Align: align,
		RelX:  fl.RelativeX.Px(g.CellWidth),
		RelY:  fl.RelativeY.Px(g.CellHeight),
		CropW: fl.CropW.Px(g.CellWidth),
		CropH: fl.CropH.Px(g.CellHeight),
		Z:     fl.ZIndex,
		PNG:   app.Config.Transfer == "png",
	}
	if fl.AbsoluteX != nil {
		x := fl.AbsoluteX.Px(g.CellWidth)
		opts.X = &x
	}
	if fl.AbsoluteY != nil {
		y := fl.AbsoluteY.Px(g.CellHeight)
		opts.Y = &y
	}

	handle, err := img.Show(g, app.Session, opts)
	if err != nil {
		return err
	}
	if err := app.Session.WriteString("\n"); err != nil {
		return err
	}

	if fl.PrintID {
		return app.printAligned(g, align, strconv.FormatUint(uint64(handle.ID), 10))
	}
	return nil
}

// printAligned writes a text line through the session so it lands in
// order with the image placements around it.
func (app *App) printAligned(g term.Geometry, align geometry.Align, s string) error {
	line := lipgloss.PlaceHorizontal(g.Cols, alignPos(align), text.Sanitize(s))
	return app.Session.WriteString(strings.TrimRight(line, " ") + "\n")
}

func alignPos(a geometry.Align) lipgloss.Position {
	switch a {
	case geometry.Left:
		return lipgloss.Left
	case geometry.Right:
		return lipgloss.Right
	default:
		return lipgloss.Center
	}
}

func (app *App) reportError(quiet bool, err error) {
	if quiet {
		return
	}
	fmt.Fprintln(app.Stderr, errStyle.Render(err.Error()))
}

func (app *App) printSummary(shown int) {
	stats := app.Session.Stats()
	line := fmt.Sprintf("%d images, %s transmitted", shown, humanize.IBytes(uint64(stats.Bytes)))
	if stats.Reused > 0 {
		line += fmt.Sprintf(", %d reused", stats.Reused)
	}
	fmt.Fprintln(app.Stderr, summaryStyle.Render(line))
}

// waitEnter blocks until the user presses enter. EOF counts as enter
// so piped input never hangs the batch.
func (app *App) waitEnter(prompt string) error {
	if prompt != "" {
		fmt.Fprint(app.Stderr, prompt)
	}
	if app.in == nil {
		app.in = bufio.NewReader(app.Stdin)
	}
	if _, err := app.in.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("waiting for enter: %w", err)
	}
	return nil
}
