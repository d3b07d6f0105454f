package session

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/pixcat/internal/kitty"
)

func testPixmap(w, h int, fill byte) *kitty.Pixmap {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = fill
	}
	return &kitty.Pixmap{Width: w, Height: h, Format: kitty.FormatRGB, Pix: pix}
}

type flakyWriter struct {
	fail bool
	buf  bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, errors.New("broken pipe")
	}
	return w.buf.Write(p)
}

func TestDisplay_AssignsMonotonicIDs(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	first, err := s.Display(testPixmap(1, 1, 10), kitty.Placement{})
	require.NoError(t, err)
	second, err := s.Display(testPixmap(1, 1, 20), kitty.Placement{})
	require.NoError(t, err)

	assert.Equal(t, uint32(1), first.ID)
	assert.Equal(t, uint32(2), second.ID)
}

func TestDisplay_ReusesTransmittedContent(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	first, err := s.Display(testPixmap(2, 2, 99), kitty.Placement{})
	require.NoError(t, err)
	second, err := s.Display(testPixmap(2, 2, 99), kitty.Placement{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "identical content should keep its id")
	assert.Equal(t, 1, strings.Count(out.String(), "a=T"), "pixels should be uploaded once")
	assert.Equal(t, 1, strings.Count(out.String(), "a=p"), "second display should be a placement")

	stats := s.Stats()
	assert.Equal(t, 1, stats.Transmitted)
	assert.Equal(t, 1, stats.Reused)
}

func TestDisplay_DistinctContentGetsDistinctIDs(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	a, err := s.Display(testPixmap(2, 2, 1), kitty.Placement{})
	require.NoError(t, err)
	b, err := s.Display(testPixmap(2, 2, 2), kitty.Placement{})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, strings.Count(out.String(), "a=T"))
}

func TestDisplay_Unsupported(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, false)

	_, err := s.Display(testPixmap(1, 1, 0), kitty.Placement{})
	require.ErrorIs(t, err, ErrUnsupported)
	assert.Zero(t, out.Len(), "nothing should be written to an unsupported terminal")
	assert.False(t, s.Supported())
}

func TestDisplay_FailedTransmitBurnsID(t *testing.T) {
	w := &flakyWriter{fail: true}
	s := New(w, true)

	_, err := s.Display(testPixmap(1, 1, 5), kitty.Placement{})
	require.Error(t, err)

	w.fail = false
	handle, err := s.Display(testPixmap(1, 1, 5), kitty.Placement{})
	require.NoError(t, err)

	assert.Equal(t, uint32(2), handle.ID, "the failed attempt's id must not be reissued")
	assert.Contains(t, w.buf.String(), "a=T", "retry should transmit fresh, not place")
	assert.Equal(t, 1, s.Stats().Transmitted, "failed attempts don't count as transmitted")
}

func TestRelease_ForcesRetransmission(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	handle, err := s.Display(testPixmap(1, 1, 3), kitty.Placement{})
	require.NoError(t, err)

	s.Release(handle)
	assert.NotContains(t, out.String(), "a=d", "release must not touch the terminal")

	again, err := s.Display(testPixmap(1, 1, 3), kitty.Placement{})
	require.NoError(t, err)
	assert.NotEqual(t, handle.ID, again.ID, "ids stay monotonic across release")
	assert.Equal(t, 2, strings.Count(out.String(), "a=T"), "released content transmits fresh")
}

func TestDelete_ForgetsContent(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	handle, err := s.Display(testPixmap(1, 1, 7), kitty.Placement{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(handle.ID))

	assert.Contains(t, out.String(), "a=d")
	assert.Contains(t, out.String(), "d=I")

	again, err := s.Display(testPixmap(1, 1, 7), kitty.Placement{})
	require.NoError(t, err)
	assert.NotEqual(t, handle.ID, again.ID, "deleted content needs a fresh id")
	assert.Equal(t, 2, strings.Count(out.String(), "a=T"), "deleted content must be retransmitted")
}

func TestDelete_UnknownID(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	require.NoError(t, s.Delete(12345))
	assert.Contains(t, out.String(), "i=12345")
}

func TestDeleteAll(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, true)

	_, err := s.Display(testPixmap(1, 1, 1), kitty.Placement{})
	require.NoError(t, err)
	_, err = s.Display(testPixmap(1, 1, 2), kitty.Placement{})
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll())
	assert.Contains(t, out.String(), "d=A")

	out.Reset()
	_, err = s.Display(testPixmap(1, 1, 1), kitty.Placement{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "a=T", "reuse table should be empty after delete-all")
}

func TestWriteString(t *testing.T) {
	var out bytes.Buffer
	s := New(&out, false)

	// Plain escape sequences don't need graphics support.
	require.NoError(t, s.WriteString("\x1b[5G"))
	assert.Equal(t, "\x1b[5G", out.String())
	assert.Equal(t, int64(4), s.Stats().Bytes)
}

func TestHashPixmap(t *testing.T) {
	base := testPixmap(2, 8, 42)

	assert.Equal(t, HashPixmap(base), HashPixmap(testPixmap(2, 8, 42)),
		"equal content should hash equal")
	assert.NotEqual(t, HashPixmap(base), HashPixmap(testPixmap(2, 8, 43)),
		"different bytes should hash differently")

	// Same byte count, different shape.
	reshaped := testPixmap(4, 4, 42)
	assert.NotEqual(t, HashPixmap(base), HashPixmap(reshaped),
		"dimensions are part of the identity")

	rgba := &kitty.Pixmap{Width: 2, Height: 8, Format: kitty.FormatRGBA, Pix: base.Pix}
	assert.NotEqual(t, HashPixmap(base), HashPixmap(rgba),
		"format is part of the identity")
}

func TestHashString(t *testing.T) {
	h := HashPixmap(testPixmap(1, 1, 0))
	assert.Len(t, h.String(), 16, "short hex form for logs")
}
