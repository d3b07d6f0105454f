// Package session tracks which images have been transmitted to the
// terminal and serializes all protocol writes to its output stream.
package session

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/llehouerou/pixcat/internal/kitty"
)

// ErrUnsupported is returned by display operations when the terminal
// was marked as lacking kitty graphics support. Callers can check it
// upfront via Supported to avoid any writes at all.
var ErrUnsupported = errors.New("terminal does not support the kitty graphics protocol")

// Hash is the BLAKE3 content identity of a pixmap. Two pixmaps with
// the same format, dimensions and pixel bytes share a hash, which is
// what lets a session place an image again without retransmitting it.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:8])
}

// HashPixmap fingerprints a pixmap. The format and dimensions are
// mixed in ahead of the pixel bytes so that, say, a 2x8 and a 4x4
// buffer with identical bytes do not collide.
func HashPixmap(p *kitty.Pixmap) Hash {
	hasher := blake3.New()

	var header [12]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(p.Format))
	binary.LittleEndian.PutUint32(header[4:], uint32(p.Width))
	binary.LittleEndian.PutUint32(header[8:], uint32(p.Height))
	hasher.Write(header[:])
	hasher.Write(p.Pix)

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// Handle identifies one transmitted image for later placement or
// deletion.
type Handle struct {
	ID     uint32
	Hash   Hash
	Width  int
	Height int
}

// Stats counts what a session has pushed through the terminal.
type Stats struct {
	Transmitted int   // full pixel uploads
	Reused      int   // displays served by referencing an earlier upload
	Bytes       int64 // bytes written to the output stream
}

// Session owns the terminal output stream for the lifetime of a run.
// Ids are allocated monotonically starting at 1 and are never reused,
// even when a transmission fails partway. All writes go through one
// mutex so concurrent callers cannot interleave escape sequences.
type Session struct {
	mu        sync.Mutex
	out       io.Writer
	supported bool
	nextID    uint32
	byHash    map[Hash]Handle
	byID      map[uint32]Hash
	stats     Stats
}

func New(out io.Writer, supported bool) *Session {
	return &Session{
		out:       out,
		supported: supported,
		nextID:    1,
		byHash:    make(map[Hash]Handle),
		byID:      make(map[uint32]Hash),
	}
}

// Supported reports whether display operations will be accepted.
func (s *Session) Supported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supported
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Display shows a pixmap at the current cursor position. A pixmap
// whose content hash was already transmitted in this session is placed
// by id without resending the pixels; anything else is transmitted in
// full. Returns the handle now backing the image on screen.
func (s *Session) Display(p *kitty.Pixmap, pl kitty.Placement) (Handle, error) {
	h := HashPixmap(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.supported {
		return Handle{}, ErrUnsupported
	}

	if held, ok := s.byHash[h]; ok {
		if err := s.send(kitty.Place(held.ID, pl)); err != nil {
			return Handle{}, err
		}
		s.stats.Reused++
		return held, nil
	}

	handle := Handle{ID: s.nextID, Hash: h, Width: p.Width, Height: p.Height}
	s.nextID++
	if err := s.send(kitty.Transmit(p, handle.ID, pl)...); err != nil {
		// The terminal may hold partial state under this id; the id
		// stays burned and the hash stays unregistered so a retry
		// transmits fresh.
		return Handle{}, err
	}
	s.byHash[h] = handle
	s.byID[handle.ID] = h
	s.stats.Transmitted++
	return handle, nil
}

// Release forgets a transmitted image's content hash without touching
// the terminal, so the next display of the same content transmits
// fresh instead of placing the terminal's copy. Used when pixels
// changed behind a logical image and the stale copy must not come
// back.
func (s *Session) Release(handle Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byID[handle.ID]; ok {
		delete(s.byHash, h)
		delete(s.byID, handle.ID)
	}
}

// Delete removes the image and all its placements from the terminal
// and forgets its hash, so showing the same content again transmits
// fresh. Deleting an id the session never issued is not an error; the
// terminal ignores unknown ids.
func (s *Session) Delete(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.send(kitty.Delete(id)); err != nil {
		return err
	}
	if h, ok := s.byID[id]; ok {
		delete(s.byHash, h)
		delete(s.byID, id)
	}
	return nil
}

// DeleteAll clears every image this terminal holds, including ones
// transmitted by other processes, and resets the reuse table.
func (s *Session) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.send(kitty.DeleteAll()); err != nil {
		return err
	}
	clear(s.byHash)
	clear(s.byID)
	return nil
}

// WriteString writes raw terminal data (cursor movement and the like)
// through the session's ordered writer. It does not require graphics
// support; plain escape sequences work on any terminal.
func (s *Session) WriteString(str string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(str)
}

func (s *Session) send(chunks ...kitty.Chunk) error {
	if !s.supported {
		return ErrUnsupported
	}
	for _, c := range chunks {
		if err := s.write(c.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) write(str string) error {
	n, err := io.WriteString(s.out, str)
	s.stats.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("writing to terminal: %w", err)
	}
	return nil
}
