//go:build !js
// +build !js

package hellodom

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// StaticHandler serves a directory staged by (*WASMHandler).Stage. Paths
// under /web are redirected to the root.
func StaticHandler(dir string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
		)
		if strings.HasPrefix(r.URL.Path, "/web") {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".wasm") {
			w.Header().Set("Content-Type", wasmContentType)
		}
		files.ServeHTTP(w, r)
	})
}
