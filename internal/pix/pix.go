// Package pix is the image facade: it ties source pixels, geometry
// resolution, resampling and the transmission session together behind
// a fluent transform-then-show call chain.
package pix

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/nfnt/resize"

	"github.com/llehouerou/pixcat/internal/geometry"
	"github.com/llehouerou/pixcat/internal/kitty"
	"github.com/llehouerou/pixcat/internal/session"
	"github.com/llehouerou/pixcat/internal/source"
	"github.com/llehouerou/pixcat/internal/term"
)

// Filter selects the resampling kernel used when pixels actually get
// rescaled. The zero value means Lanczos.
type Filter string

const (
	Lanczos  Filter = "lanczos"
	Bicubic  Filter = "bicubic"
	Bilinear Filter = "bilinear"
	Nearest  Filter = "nearest"
	Mitchell Filter = "mitchell"
)

// ParseFilter validates a user-supplied resampling filter name.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case Lanczos, Bicubic, Bilinear, Nearest, Mitchell:
		return f, nil
	}
	return "", fmt.Errorf("unknown resampling filter %q", s)
}

func (f Filter) interp() resize.InterpolationFunction {
	switch f {
	case Nearest:
		return resize.NearestNeighbor
	case Bilinear:
		return resize.Bilinear
	case Bicubic:
		return resize.Bicubic
	case Mitchell:
		return resize.MitchellNetravali
	default:
		return resize.Lanczos3
	}
}

type resizeKey struct {
	w, h   int
	filter Filter
}

// state is shared by every descriptor derived from one source image:
// the decoded pixels, the resample cache, and the handles of
// everything shown from it (so Hide can clean up all variants).
type state struct {
	item *source.Item

	mu      sync.Mutex
	resized map[resizeKey]image.Image
	handles []session.Handle
}

func (st *state) resample(w, h int, f Filter) image.Image {
	b := st.item.Image.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return st.item.Image
	}

	key := resizeKey{w, h, f}
	st.mu.Lock()
	defer st.mu.Unlock()
	if img, ok := st.resized[key]; ok {
		return img
	}
	img := resize.Resize(uint(w), uint(h), st.item.Image, f.interp())
	if st.resized == nil {
		st.resized = make(map[resizeKey]image.Image)
	}
	st.resized[key] = img
	return img
}

func (st *state) record(h session.Handle) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, held := range st.handles {
		if held.ID == h.ID {
			return
		}
	}
	st.handles = append(st.handles, h)
}

func (st *state) takeHandles() []session.Handle {
	st.mu.Lock()
	defer st.mu.Unlock()
	handles := st.handles
	st.handles = nil
	return handles
}

// Image is a displayable image plus its pending transform. Transform
// methods return modified copies sharing the underlying pixels, so
// several display variants can fan out from one decoded source
// without re-reading or re-decoding it.
type Image struct {
	st     *state
	spec   geometry.Spec
	filter Filter
}

// FromItem wraps a decoded source item.
func FromItem(item *source.Item) Image {
	return Image{st: &state{item: item}}
}

// FromImage wraps an in-memory image. origin is a label for output
// and error messages.
func FromImage(img image.Image, origin string) Image {
	return FromItem(&source.Item{Image: img, Origin: origin})
}

// FromBytes decodes an in-memory image. origin labels it in errors
// and printed output.
func FromBytes(data []byte, origin string) (Image, error) {
	item, err := source.Decode(data, origin)
	if err != nil {
		return Image{}, err
	}
	return FromItem(item), nil
}

// defaultLoader backs the package-level constructors. Callers that
// batch many loads carry their own source.Loader and use FromItem.
var defaultLoader = source.NewLoader()

// Open decodes the image file at path.
func Open(path string) (Image, error) {
	item, err := defaultLoader.Load(context.Background(), path)
	if err != nil {
		return Image{}, err
	}
	return FromItem(item), nil
}

// Fetch downloads and decodes the image at an http(s) URL.
func Fetch(ctx context.Context, url string) (Image, error) {
	item, err := defaultLoader.Load(ctx, url)
	if err != nil {
		return Image{}, err
	}
	return FromItem(item), nil
}

// Origin returns the file path, URL or label this image came from.
func (im Image) Origin() string { return im.st.item.Origin }

// Size returns the decoded source dimensions in pixels.
func (im Image) Size() (w, h int) {
	b := im.st.item.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Transform sets the resize applied at display time. Exactly one
// transform is active per display; calling Transform again replaces
// the earlier choice.
func (im Image) Transform(s geometry.Spec) Image {
	im.spec = s
	return im
}

// Exact resizes to precisely w x h pixels.
func (im Image) Exact(w, h int) Image {
	return im.Transform(geometry.Exact(w, h))
}

// Thumbnail scales so the longer side lands on maxDim pixels.
func (im Image) Thumbnail(maxDim int) Image {
	return im.Transform(geometry.Thumbnail(maxDim))
}

// FitScreen scales into the terminal viewport.
func (im Image) FitScreen(enlarge bool) Image {
	return im.Transform(geometry.FitScreen(enlarge))
}

// FitCell scales into a cols x rows cell region.
func (im Image) FitCell(cols, rows int) Image {
	return im.Transform(geometry.FitCell(cols, rows))
}

// Resize keeps the image between the given pixel bounds, zero meaning
// unbounded.
func (im Image) Resize(minW, minH, maxW, maxH int) Image {
	return im.Transform(geometry.Bounded(minW, minH, maxW, maxH))
}

// WithFilter picks the resampling kernel for this descriptor.
func (im Image) WithFilter(f Filter) Image {
	im.filter = f
	return im
}

// ShowOptions positions one display call. The zero value draws at the
// cursor position with no cropping, under the text layer.
type ShowOptions struct {
	// Align positions the image horizontally across the full terminal
	// width when X is nil. Empty or left keeps the cursor column.
	Align geometry.Align

	// X and Y place the top-left corner at absolute pixel coordinates,
	// overriding Align on their axis.
	X, Y *int

	// RelX and RelY shift the position by pixels relative to where the
	// image would otherwise land.
	RelX, RelY int

	// CropW and CropH display only the top-left region of that many
	// pixels. Zero means the full image.
	CropW, CropH int

	// Z stacks the image against text and other images; negative
	// values draw below text.
	Z int

	// PNG transmits the image as a PNG stream instead of raw pixels,
	// trading encode time for transmission size.
	PNG bool

	// NoCursor leaves the cursor where it was instead of letting the
	// terminal move it past the image. Layouts that place many images
	// from one anchor point rely on this.
	NoCursor bool
}

// Show resolves the pending transform against the terminal geometry,
// resamples if needed, and displays the result at the position the
// options describe. The returned handle identifies the image for
// later deletion; showing identical content twice reuses the first
// transmission.
func (im Image) Show(g term.Geometry, sess *session.Session, opts ShowOptions) (session.Handle, error) {
	if !sess.Supported() {
		return session.Handle{}, session.ErrUnsupported
	}

	srcW, srcH := im.Size()
	res, err := geometry.Resolve(srcW, srcH, g, im.spec)
	if err != nil {
		return session.Handle{}, fmt.Errorf("resolving size for %s: %w", im.Origin(), err)
	}

	img := im.st.resample(res.Width, res.Height, im.filter)
	p, err := pixmap(img, opts.PNG)
	if err != nil {
		return session.Handle{}, fmt.Errorf("encoding %s: %w", im.Origin(), err)
	}

	move, offX, offY := position(g, res, opts)
	if move != "" {
		if err := sess.WriteString(move); err != nil {
			return session.Handle{}, err
		}
	}

	handle, err := sess.Display(p, kitty.Placement{
		OffsetX:  offX,
		OffsetY:  offY,
		CropW:    opts.CropW,
		CropH:    opts.CropH,
		Z:        opts.Z,
		NoCursor: opts.NoCursor,
	})
	if err != nil {
		return session.Handle{}, err
	}
	im.st.record(handle)
	return handle, nil
}

// Hide deletes every placement this image and its resize variants
// produced, freeing the terminal-side data.
func (im Image) Hide(sess *session.Session) error {
	var firstErr error
	for _, h := range im.st.takeHandles() {
		if err := sess.Delete(h.ID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func pixmap(img image.Image, png bool) (*kitty.Pixmap, error) {
	switch {
	case png:
		return kitty.FromImage(img, kitty.FormatPNG)
	case kitty.Opaque(img):
		return kitty.FromImage(img, kitty.FormatRGB)
	default:
		return kitty.FromImage(img, kitty.FormatRGBA)
	}
}

// position builds the cursor movement preceding a display and the
// sub-cell pixel offsets that make up the remainder. Absolute
// coordinates and alignment move to an absolute column or row;
// relative shifts alone move from wherever the cursor sits.
func position(g term.Geometry, res geometry.Result, opts ShowOptions) (move string, offX, offY int) {
	var sb strings.Builder

	baseX, haveX := 0, false
	switch {
	case opts.X != nil:
		baseX, haveX = *opts.X, true
	case opts.Align == geometry.Center:
		baseX, haveX = (g.PixelWidth()-res.Width)/2, true
	case opts.Align == geometry.Right:
		baseX, haveX = g.PixelWidth()-res.Width, true
	}

	if haveX {
		x := max(0, baseX+opts.RelX)
		cells, off := geometry.SplitCells(x, g.CellWidth)
		sb.WriteString(term.MoveColumn(cells + 1))
		offX = off
	} else if opts.RelX != 0 {
		cells, off := geometry.SplitCells(opts.RelX, g.CellWidth)
		sb.WriteString(term.MoveRight(cells))
		offX = off
	}

	if opts.Y != nil {
		y := max(0, *opts.Y+opts.RelY)
		cells, off := geometry.SplitCells(y, g.CellHeight)
		sb.WriteString(term.MoveRow(cells + 1))
		offY = off
	} else if opts.RelY != 0 {
		cells, off := geometry.SplitCells(opts.RelY, g.CellHeight)
		sb.WriteString(term.MoveDown(cells))
		offY = off
	}

	return sb.String(), offX, offY
}
