// Package site serves the embedded dashboard.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// IndexFile is served for every path that is not an embedded asset.
const IndexFile = "index.html"

// Register attaches the dashboard as the catch-all route of mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", NewRootHandler())
}

// RootHandler serves embedded assets and falls back to the index page so
// client-side routes load the dashboard.
type RootHandler struct {
	fsys  http.FileSystem
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	fsys := FS()
	return &RootHandler{fsys: fsys, files: http.FileServer(fsys)}
}

// ServeHTTP handles GET and HEAD for everything the API does not own.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	// Unknown API paths stay 404 instead of returning the page.
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	if name != "/" && h.exists(name) {
		h.files.ServeHTTP(w, r)
		return
	}
	h.serveIndex(w, r)
}

func (h *RootHandler) exists(name string) bool {
	f, err := h.fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func (h *RootHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := h.fsys.Open("/" + IndexFile)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, IndexFile, st.ModTime(), f)
}
