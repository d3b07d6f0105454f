package term

import (
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/llehouerou/pixcat/internal/kitty"
)

// probeID is reserved for capability queries. Session ids are allocated
// upward from 1, so the top of the 32-bit range never collides.
const probeID = 1<<32 - 1

// Probe actively checks for kitty graphics support by transmitting a query
// for a 1x1 dummy image and waiting for an APC response on stdin. Any
// response that echoes the probe id proves the terminal understands the
// protocol; terminals that don't stay silent until the timeout.
//
// Requires both stdin and stdout to be attached to the terminal.
func (t *Terminal) Probe(timeout time.Duration) bool {
	stdinFd := int(os.Stdin.Fd())
	if !t.IsTTY() || !term.IsTerminal(stdinFd) {
		return false
	}

	// Raw mode so the response is readable byte by byte instead of being
	// line buffered and echoed.
	oldState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return false
	}
	defer term.Restore(stdinFd, oldState)

	if _, err := t.out.WriteString(kitty.Query(probeID).String()); err != nil {
		return false
	}

	reply := make(chan string, 1)
	go func() {
		var sb strings.Builder
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				sb.WriteByte(buf[0])
				if strings.HasSuffix(sb.String(), "\x1b\\") {
					reply <- sb.String()
					return
				}
			}
		}
	}()

	select {
	case answer := <-reply:
		return strings.Contains(answer, "_G")
	case <-time.After(timeout):
		return false
	}
}
