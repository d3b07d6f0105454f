//go:build unix

package term

import (
	"golang.org/x/sys/unix"
)

// querySize returns the terminal dimensions in cells and pixels via
// TIOCGWINSZ. Pixel fields are zero when the terminal does not report them.
func querySize(fd int) (cols, rows, xpx, ypx int, err error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}
