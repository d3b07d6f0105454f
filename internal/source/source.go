// Package source resolves image references (files, directories, URLs)
// into decoded images.
package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	fetchTimeout = 15 * time.Second
	userAgent    = "pixcat/1.0 (https://github.com/llehouerou/pixcat)"
)

// DecodeError reports a reference whose bytes could not be decoded as
// any supported image format. Batch runs use the reference to say
// which input was bad and keep going.
type DecodeError struct {
	Ref string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Ref, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError reports a failed URL download.
type FetchError struct {
	URL    string
	Status string // HTTP status line when the server answered, empty otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("fetching %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsURL reports whether ref should be fetched over HTTP rather than
// read from disk.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Expand resolves command line arguments into displayable references,
// in input order. URLs and files pass through; a directory contributes
// its regular entries sorted by name, without recursing into
// subdirectories. A leading ~ refers to the user's home directory.
//
// No extension filtering happens here: every entry is a candidate and
// undecodable ones surface later as per-item decode failures.
func Expand(args []string) ([]string, error) {
	var refs []string
	for _, arg := range args {
		if IsURL(arg) {
			refs = append(refs, arg)
			continue
		}

		path, err := expandUser(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			refs = append(refs, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			refs = append(refs, filepath.Join(path, entry.Name()))
		}
	}
	return refs, nil
}

func expandUser(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving ~: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Item is one decoded image plus where it came from.
type Item struct {
	Image  image.Image
	Origin string // file path or URL
	Format string // decoder name: "png", "jpeg", ...
}

// Loader decodes images from files and URLs.
type Loader struct {
	client *http.Client
}

func NewLoader() *Loader {
	return &Loader{
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// Load resolves one reference into a decoded image. URL references
// are fetched with the loader's HTTP client, anything else is read
// from disk. A body that is not a supported image format yields a
// *DecodeError either way.
func (l *Loader) Load(ctx context.Context, ref string) (*Item, error) {
	if IsURL(ref) {
		return l.fetch(ctx, ref)
	}

	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", ref, err)
	}
	defer f.Close()

	return decode(f, ref)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{URL: rawURL, Status: resp.Status}
	}

	return decode(resp.Body, rawURL)
}

// Decode decodes raw image bytes, reporting failures as *DecodeError
// tagged with ref.
func Decode(data []byte, ref string) (*Item, error) {
	return decode(bytes.NewReader(data), ref)
}

func decode(r io.Reader, ref string) (*Item, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	return &Item{Image: img, Origin: ref, Format: format}, nil
}
