package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/pixcat/internal/config"
	"github.com/llehouerou/pixcat/internal/session"
	"github.com/llehouerou/pixcat/internal/source"
	"github.com/llehouerou/pixcat/internal/term"
)

func testApp(t *testing.T, supported bool) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	app := &App{
		Config:  config.Default(),
		Session: session.New(out, supported),
		Loader:  source.NewLoader(),
		Geometry: func() (term.Geometry, error) {
			return term.Geometry{Cols: 80, Rows: 24, CellWidth: 10, CellHeight: 20}, nil
		},
		Stdin:  strings.NewReader(""),
		Stderr: errOut,
	}
	return app, out, errOut
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 13), B: 99, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func displayDefaults() DisplayFlags {
	return DisplayFlags{Align: "center", Resample: "lanczos"}
}

func TestShowCmd_DisplaysDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6)
	writePNG(t, filepath.Join(dir, "b.png"), 6, 8)

	app, out, errOut := testApp(t, true)
	cmd := &ShowCmd{Display: displayDefaults(), Locations: []string{dir}}
	require.NoError(t, cmd.Run(app))

	assert.Equal(t, 2, strings.Count(out.String(), "a=T"), "both images transmitted")
	assert.Contains(t, errOut.String(), "2 images", "batch summary on stderr")
	assert.Contains(t, errOut.String(), "transmitted")
}

func TestShowCmd_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not pixels"), 0o644))
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 8, 6)

	app, out, errOut := testApp(t, true)
	cmd := &ShowCmd{Display: displayDefaults(), Locations: []string{bad, good}}
	err := cmd.Run(app)

	require.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, err.Error(), "1 of 2 failed")
	assert.Equal(t, 1, strings.Count(out.String(), "a=T"), "the good sibling still displays")
	assert.Contains(t, errOut.String(), "decoding")
}

func TestShowCmd_RaiseErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not pixels"), 0o644))
	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 8, 6)

	app, out, errOut := testApp(t, true)
	fl := displayDefaults()
	fl.RaiseErrors = true
	cmd := &ShowCmd{Display: fl, Locations: []string{bad, good}}
	err := cmd.Run(app)

	var decodeErr *source.DecodeError
	require.ErrorAs(t, err, &decodeErr, "the original error comes back verbatim")
	assert.NotErrorIs(t, err, ErrFailed)
	assert.Zero(t, out.Len(), "the batch stops before the good sibling")
	assert.Empty(t, errOut.String(), "a raised error is not also reported")
}

func TestShowCmd_Quiet(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not pixels"), 0o644))

	app, _, errOut := testApp(t, true)
	fl := displayDefaults()
	fl.Quiet = true
	err := (&ShowCmd{Display: fl, Locations: []string{bad}}).Run(app)
	require.ErrorIs(t, err, ErrFailed, "quiet still exits non-zero")
	assert.Empty(t, errOut.String())

	// Quiet from the config file behaves like the flag.
	app, _, errOut = testApp(t, true)
	app.Config.Quiet = true
	err = (&ShowCmd{Display: displayDefaults(), Locations: []string{bad}}).Run(app)
	require.ErrorIs(t, err, ErrFailed)
	assert.Empty(t, errOut.String())
}

func TestShowCmd_MissingLocation(t *testing.T) {
	app, _, errOut := testApp(t, true)
	err := (&ShowCmd{Display: displayDefaults(), Locations: []string{"/nonexistent/zz.png"}}).Run(app)

	require.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, errOut.String(), "zz.png")
}

func TestShowCmd_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	writePNG(t, path, 8, 6)

	app, out, errOut := testApp(t, false)
	err := (&ShowCmd{Display: displayDefaults(), Locations: []string{path}}).Run(app)

	require.ErrorIs(t, err, ErrFailed)
	assert.Zero(t, out.Len(), "nothing reaches a terminal without graphics")
	assert.Contains(t, errOut.String(), "kitty graphics")
}

func TestShowCmd_PrintNameAndID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	writePNG(t, path, 8, 6)

	app, out, _ := testApp(t, true)
	fl := displayDefaults()
	fl.Align = "left"
	fl.PrintName = true
	fl.PrintID = true
	require.NoError(t, (&ShowCmd{Display: fl, Locations: []string{path}}).Run(app))

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "cat.png\n"), "name precedes the image")
	assert.True(t, strings.HasSuffix(s, "\n1\n"), "first allocated id follows the image")
}

func TestShowCmd_AbsolutePosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	writePNG(t, path, 8, 6)

	app, out, _ := testApp(t, true)
	fl := displayDefaults()
	fl.AbsoluteX = &Dim{Value: 3, Cells: true}  // 30px, exactly 3 cells
	fl.AbsoluteY = &Dim{Value: 30, Cells: false} // 1 cell + 10px remainder
	require.NoError(t, (&ShowCmd{Display: fl, Locations: []string{path}}).Run(app))

	s := out.String()
	assert.Contains(t, s, "\x1b[4G", "cursor moved to column 4")
	assert.Contains(t, s, "\x1b[2d", "cursor moved to row 2")
	assert.Contains(t, s, "Y=10", "sub-cell remainder becomes a pixel offset")
}

func TestShowCmd_Hang(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6)
	writePNG(t, filepath.Join(dir, "b.png"), 6, 8)

	app, _, _ := testApp(t, true)
	app.Stdin = strings.NewReader("\n\n")
	fl := displayDefaults()
	fl.Hang = true
	require.NoError(t, (&ShowCmd{Display: fl, Locations: []string{dir}}).Run(app))
}

func TestShowCmd_HangFinalEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.png")
	writePNG(t, path, 8, 6)

	app, _, errOut := testApp(t, true)
	fl := displayDefaults()
	fl.HangFinal = true
	require.NoError(t, (&ShowCmd{Display: fl, Locations: []string{path}}).Run(app),
		"closed stdin counts as enter")
	assert.Contains(t, errOut.String(), "Press enter")
}

func TestThumbnailCmd_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	writePNG(t, path, 100, 80)

	app, out, _ := testApp(t, true)
	cmd := &ThumbnailCmd{Size: 50, Display: displayDefaults(), Locations: []string{path}}
	require.NoError(t, cmd.Run(app))

	assert.Contains(t, out.String(), "s=50")
	assert.Contains(t, out.String(), "v=40", "aspect ratio preserved")
}

func TestResizeCmd_CellBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.png")
	writePNG(t, path, 100, 100)

	app, out, _ := testApp(t, true)
	cmd := &ResizeCmd{
		MaxWidth:  &Dim{Value: 5, Cells: true},
		Display:   displayDefaults(),
		Locations: []string{path},
	}
	require.NoError(t, cmd.Run(app))

	assert.Contains(t, out.String(), "s=50", "5 cells of 10px each")
	assert.Contains(t, out.String(), "v=50")
}

func TestFitScreenCmd_Margins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pano.png")
	writePNG(t, path, 1000, 500)

	app, out, _ := testApp(t, true)
	cmd := &FitScreenCmd{
		HorizontalMargin: 2,
		Display:          displayDefaults(),
		Locations:        []string{path},
	}
	require.NoError(t, cmd.Run(app))

	// 80 cols minus 2 margin cells per side leaves 760px of width.
	assert.Contains(t, out.String(), "s=760")
	assert.Contains(t, out.String(), "v=380")
}

func TestGridCmd_Run(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 80, 80)
	writePNG(t, filepath.Join(dir, "b.png"), 60, 60)

	app, out, _ := testApp(t, true)
	cmd := &GridCmd{
		Size:      200,
		Align:     "center",
		Resample:  "lanczos",
		Captions:  true,
		Locations: []string{dir},
	}
	require.NoError(t, cmd.Run(app))

	s := out.String()
	assert.Equal(t, 2, strings.Count(s, "a=T"))
	assert.Contains(t, s, "C=1", "grid placements leave the cursor alone")
	assert.Contains(t, s, "a.png", "captions carry the filename")
	assert.Contains(t, s, "b.png")
}

func TestGridCmd_BadItemContinues(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "good.png"), 80, 80)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("not pixels"), 0o644))

	app, out, errOut := testApp(t, true)
	cmd := &GridCmd{
		Size:      200,
		Align:     "center",
		Resample:  "lanczos",
		Captions:  true,
		Locations: []string{dir},
	}
	err := cmd.Run(app)

	require.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, err.Error(), "1 failed")
	assert.Equal(t, 1, strings.Count(out.String(), "a=T"))
	assert.Contains(t, errOut.String(), "decoding")
}

func clearGraphicsEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PIXCAT_GRAPHICS", "CONTOUR_PROFILE", "KITTY_WINDOW_ID", "TERM",
		"TERM_PROGRAM", "GHOSTTY_RESOURCES_DIR", "KONSOLE_VERSION",
	} {
		t.Setenv(k, "")
	}
}

func TestDetectCmd(t *testing.T) {
	clearGraphicsEnv(t)
	app, _, _ := testApp(t, true)
	app.Terminal = term.Current()

	// Test output is not a tty, so the probe fails fast and only the
	// environment heuristics matter.
	err := (&DetectCmd{Timeout: time.Millisecond}).Run(app)
	assert.ErrorIs(t, err, ErrNoGraphics)

	t.Setenv("KITTY_WINDOW_ID", "1")
	assert.NoError(t, (&DetectCmd{Timeout: time.Millisecond}).Run(app))
}

func TestNewAppGraphicsOverride(t *testing.T) {
	clearGraphicsEnv(t)

	cfg := config.Default()
	cfg.Graphics = "kitty"
	assert.True(t, NewApp(cfg).Session.Supported())

	cfg.Graphics = "none"
	assert.False(t, NewApp(cfg).Session.Supported())

	cfg.Graphics = "auto"
	t.Setenv("KITTY_WINDOW_ID", "7")
	assert.True(t, NewApp(cfg).Session.Supported())
}
