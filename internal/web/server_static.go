package web

import (
	"io/fs"
	"net/http"
)

// staticFileHandler wraps the file server to handle content types and
// security. It returns a minimal 404 for unknown files to avoid leaking
// information.
func (s *Server) staticFileHandler(staticFS fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(staticFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		fsPath := path
		if len(fsPath) > 0 && fsPath[0] == '/' {
			fsPath = fsPath[1:]
		}

		s.logger.Debug("Static file request", "fs_path", fsPath, "remote_addr", r.RemoteAddr)

		f, err := staticFS.Open(fsPath)
		if err != nil {
			// Minimal 404, no path disclosure
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		f.Close()

		// HTML and JS change during development; stale cached assets cause
		// hard-to-debug issues, so caching is disabled for our own assets.
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		fileServer.ServeHTTP(w, r)
	})
}

// isStaticAsset returns true if the path is a static asset.
// Used by logging middleware to reduce log verbosity for asset requests.
func isStaticAsset(path string) bool {
	staticExtensions := []string{".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".woff", ".woff2", ".ttf"}
	for _, ext := range staticExtensions {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}
