package httpui

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// Browser-side assets for the dashboard page.
//
//go:embed static/*
var embedded embed.FS

// Handler serves the embedded static folder. Mount it under a prefix with
// http.StripPrefix; unknown files are 404.
func Handler() (http.Handler, error) {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, err
	}

	// Ensure common types are known (some systems miss .js/.css)
	_ = mime.AddExtensionType(".js", "application/javascript; charset=utf-8")
	_ = mime.AddExtensionType(".css", "text/css; charset=utf-8")

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		p := path.Clean("/" + r.URL.Path)
		name := strings.TrimPrefix(p, "/")
		if name == "" || !exists(sub, name) {
			http.NotFound(w, r)
			return
		}

		setCacheHeaders(w, name)
		fileServer.ServeHTTP(w, r)
	}), nil
}

// Names lists the embedded asset file names.
func Names() ([]string, error) {
	entries, err := fs.ReadDir(embedded, "static")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func exists(fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func setCacheHeaders(w http.ResponseWriter, name string) {
	// assets are not fingerprinted, so revalidate on every load
	switch strings.ToLower(filepath.Ext(name)) {
	case ".js", ".css":
		w.Header().Set("Cache-Control", "no-cache")
	default:
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
