package term

import (
	"os"
	"strings"
)

// GraphicsSupported checks if the terminal supports the kitty graphics
// protocol, based on environment variables set by terminals known to
// implement it.
//
// The PIXCAT_GRAPHICS environment variable can override detection:
//   - "kitty": assume support
//   - "none": disable image display
func GraphicsSupported() bool {
	switch os.Getenv("PIXCAT_GRAPHICS") {
	case "kitty":
		return true
	case "none":
		return false
	}

	// Contour sets CONTOUR_PROFILE but doesn't support the kitty protocol.
	// Check early because parent terminal env vars (e.g. GHOSTTY_RESOURCES_DIR)
	// can leak into Contour when launched from a kitty-capable terminal.
	if os.Getenv("CONTOUR_PROFILE") != "" {
		return false
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}
	if os.Getenv("TERM") == "xterm-kitty" {
		return true
	}
	if os.Getenv("TERM_PROGRAM") == "WezTerm" {
		return true
	}
	if os.Getenv("GHOSTTY_RESOURCES_DIR") != "" {
		return true
	}
	if version := os.Getenv("KONSOLE_VERSION"); version != "" {
		// KONSOLE_VERSION is like "220401" for 22.04.01
		// Kitty graphics supported from 22.04+
		if len(version) >= 4 && version[:4] >= "2204" {
			return true
		}
	}
	return strings.Contains(os.Getenv("TERM"), "kitty")
}
