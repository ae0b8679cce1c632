// Package static serves the prebuilt frontend bundle. Unknown paths fall back
// to the bundle's index document so the client-side router can resolve them.
package static

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// IndexFile is the fallback document served for unmatched paths.
const IndexFile = "index.html"

const (
	immutableCache = "public, max-age=31536000, immutable"
	shortCache     = "public, max-age=3600"
	noCache        = "no-cache, no-store, must-revalidate"
)

// ErrMissingIndex is returned when the bundle directory has no index document.
var ErrMissingIndex = errors.New("frontend bundle has no " + IndexFile)

// Option configures a Handler.
type Option func(*Handler)

// WithDevMode disables long-lived caching so rebuilt bundles show up immediately.
func WithDevMode(enabled bool) Option {
	return func(h *Handler) {
		h.dev = enabled
	}
}

// Handler serves files from a bundle directory with index fallback.
type Handler struct {
	root http.FileSystem
	dir  string
	dev  bool
}

// New validates dir and returns a Handler rooted there.
func New(dir string, opts ...Option) (*Handler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat bundle directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bundle path %s is not a directory", dir)
	}

	h := &Handler{root: http.Dir(dir), dir: dir}
	for _, opt := range opts {
		opt(h)
	}

	index, _, err := h.open(IndexFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingIndex, dir)
	}
	_ = index.Close()
	return h, nil
}

// Dir returns the bundle directory.
func (h *Handler) Dir() string {
	return h.dir
}

// ServeHTTP serves the requested file or the index document.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r) {
		return
	}

	name := cleanPath(r.URL.Path)
	if name != IndexFile {
		if f, info, err := h.open(name); err == nil {
			defer f.Close()
			h.serveFile(w, r, name, info.ModTime(), f)
			return
		}
	}
	h.serveIndex(w, r)
}

// Strict returns a handler that serves bundle files without index fallback,
// answering 404 for anything missing. Mount it behind http.StripPrefix.
func (h *Handler) Strict() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r) {
			return
		}
		name := cleanPath(r.URL.Path)
		f, info, err := h.open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		h.serveFile(w, r, name, info.ModTime(), f)
	})
}

// allowMethod answers 405 for anything but GET and HEAD.
func allowMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	return false
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, info, err := h.open(IndexFile)
	if err != nil {
		http.Error(w, "frontend bundle unavailable", http.StatusServiceUnavailable)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", noCache)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, IndexFile, info.ModTime(), f)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string, modTime time.Time, content io.ReadSeeker) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", h.cacheControl(name))
	http.ServeContent(w, r, name, modTime, content)
}

func (h *Handler) cacheControl(name string) string {
	switch {
	case h.dev || name == IndexFile:
		return noCache
	case strings.HasPrefix(name, "assets/"):
		return immutableCache
	default:
		return shortCache
	}
}

// open returns the named regular file; directories count as missing.
func (h *Handler) open(name string) (http.File, fs.FileInfo, error) {
	f, err := h.root.Open("/" + name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fs.ErrNotExist
	}
	return f, info, nil
}

// cleanPath maps a URL path to a slash-separated name relative to the bundle
// root. The root itself maps to the index document.
func cleanPath(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return IndexFile
	}
	return name
}
