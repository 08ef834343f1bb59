//go:build !js
// +build !js

package hellodom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Based on https://github.com/hajimehoshi/wasmserve, reworked for hellodom.

const indexHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>hellodom</title></head>
<body>
<script src="wasm_exec.js"></script>
<script>
(async () => {
  const resp = await fetch('main.wasm');
  if (!resp.ok) {
    const pre = document.createElement('pre');
    pre.innerText = await resp.text();
    document.body.appendChild(pre);
  } else {
    const src = await resp.arrayBuffer();
    const go = new Go();
    const result = await WebAssembly.instantiate(src, go.importObject);
    go.argv = [];
    go.run(result.instance);
  }
  const reload = await fetch('_wait');
  // The server answers '_wait' once '_notify' is requested or the module was rebuilt.
  if (reload.ok) {
    location.reload();
  }
})();
</script>
</body>
</html>
`

const wasmContentType = "application/wasm"

var errNoWASM = errors.New("no wasm content")

// WASMHandler serves the hellodom browser module along with the page that
// loads it. Implements http.Handler.
//
// The zero value serves WASMApplication, WASMExecContent and IndexHTML as set
// by the caller and never compiles. Use NewWASMHandler to compile from source.
type WASMHandler struct {
	// Compiler is the tool used to compile the WASM binary.
	Compiler string
	// IndexHTML is the loader page served at the root.
	IndexHTML string
	// WASMReload set to true recompiles the module on every request for it.
	WASMReload bool
	// WASMDir is the directory of the main package to compile. If empty the
	// handler serves WASMApplication as is.
	WASMDir string
	// WASMApplication is the compiled module. It is replaced by every
	// successful Build and must not be modified once the handler is serving.
	WASMApplication []byte
	// WASMExecContent is the wasm_exec.js support script shipped with the Go
	// distribution that matches Compiler.
	WASMExecContent []byte
	// WatchDebounce is the quiet period used by Watch. Zero means
	// DefaultWatchDebounce.
	WatchDebounce time.Duration

	logger     *zap.Logger
	subHandler http.Handler
	startTime  time.Time

	buildMu      sync.Mutex // serializes compiler runs
	tmpOutputDir string

	mu          sync.Mutex
	wasmModTime time.Time
	reload      chan struct{}
	waiting     int
}

// NewWASMHandler returns a handler that compiles the main package in wasmDir
// with GOOS=js GOARCH=wasm and serves it. Requests not handled by the
// WASMHandler are passed to subHandler, if not nil.
func NewWASMHandler(wasmDir string, subHandler http.Handler, logger *zap.Logger) (*WASMHandler, error) {
	if wasmDir == "" {
		wasmDir = "."
	}
	wsm := &WASMHandler{
		Compiler:   "go",
		IndexHTML:  indexHTML,
		WASMDir:    wasmDir,
		logger:     logger,
		subHandler: subHandler,
		startTime:  time.Now(),
	}
	var err error
	wsm.WASMExecContent, err = readWASMExec(wsm.Compiler)
	if err != nil {
		return nil, err
	}
	if err := wsm.Build(context.Background()); err != nil {
		wsm.Close()
		return nil, err
	}
	return wsm, nil
}

// readWASMExec finds wasm_exec.js in the compiler's GOROOT. Go 1.24 moved it
// from misc/wasm to lib/wasm.
func readWASMExec(compiler string) ([]byte, error) {
	out, err := exec.Command(compiler, "env", "GOROOT").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, string(out))
	}
	root := strings.TrimSpace(string(out))
	var firstErr error
	for _, dir := range []string{"lib", "misc"} {
		b, err := os.ReadFile(filepath.Join(root, dir, "wasm", "wasm_exec.js"))
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("wasm_exec.js not found in GOROOT %s: %w", root, firstErr)
}

// ServeHTTP implements http.Handler interface. For use with http.Handle
func (wsm *WASMHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/web") {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	fpath := path.Base(strings.TrimPrefix(r.URL.Path, "/"))
	switch fpath {
	case ".", "index.html":
		http.ServeContent(w, r, "index.html", wsm.startTime, strings.NewReader(wsm.IndexHTML))
		return
	case "wasm_exec.js":
		http.ServeContent(w, r, "wasm_exec.js", wsm.startTime, bytes.NewReader(wsm.WASMExecContent))
		return
	case "main.wasm":
		if wsm.WASMReload && wsm.WASMDir != "" {
			err := wsm.Build(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		app, modTime := wsm.module()
		if len(app) == 0 {
			http.Error(w, errNoWASM.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", wasmContentType)
		http.ServeContent(w, r, "main.wasm", modTime, bytes.NewReader(app))
		return
	case "_wait":
		wsm.waitForUpdate(w, r)
		return
	case "_notify":
		n := wsm.Notify()
		wsm.log().Debug("reload requested", zap.Int("waiters", n))
		http.ServeContent(w, r, "", time.Now(), bytes.NewReader(nil))
		return
	}

	if wsm.subHandler != nil {
		wsm.subHandler.ServeHTTP(w, r)
		return
	}
	wsm.log().Info("path not found", zap.String("path", r.URL.Path))
	http.Error(w, fmt.Sprintf("%q path not found", fpath), http.StatusNotFound)
}

// Build compiles WASMDir and replaces the served module on success.
func (wsm *WASMHandler) Build(ctx context.Context) error {
	wsm.buildMu.Lock()
	defer wsm.buildMu.Unlock()
	if wsm.tmpOutputDir == "" {
		dir, err := os.MkdirTemp("", "hellodom")
		if err != nil {
			return err
		}
		wsm.tmpOutputDir = dir
	}
	buildName := filepath.Join(wsm.tmpOutputDir, "main.wasm")
	args := []string{"build", "-o", buildName}
	wsm.log().Debug("building", zap.String("cmd", wsm.Compiler+" "+strings.Join(args, " ")), zap.String("dir", wsm.WASMDir))
	start := time.Now()
	cmdBuild := exec.CommandContext(ctx, wsm.Compiler, args...)
	cmdBuild.Env = append(os.Environ(), "GOOS=js", "GOARCH=wasm")
	cmdBuild.Dir = wsm.WASMDir
	out, err := cmdBuild.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w\n%s", err, string(out))
	}
	if len(out) > 0 {
		wsm.log().Info("compiler output", zap.ByteString("output", out))
	}
	wasmContent, err := os.ReadFile(buildName)
	if err != nil {
		return err
	}
	wsm.mu.Lock()
	wsm.WASMApplication = wasmContent
	wsm.wasmModTime = time.Now()
	wsm.mu.Unlock()
	wsm.log().Info("module built", zap.Int("bytes", len(wasmContent)), zap.Duration("took", time.Since(start)))
	return nil
}

// Notify wakes every request pending on /_wait, which makes their pages
// reload. It returns how many requests were waiting.
func (wsm *WASMHandler) Notify() int {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	n := wsm.waiting
	close(wsm.reloadLocked())
	wsm.reload = make(chan struct{})
	wsm.waiting = 0
	return n
}

// Close removes the compiler output directory.
func (wsm *WASMHandler) Close() error {
	wsm.buildMu.Lock()
	defer wsm.buildMu.Unlock()
	if wsm.tmpOutputDir == "" {
		return nil
	}
	err := os.RemoveAll(wsm.tmpOutputDir)
	wsm.tmpOutputDir = ""
	return err
}

// SetLogger sets the logger for build results and bad requests.
func (wsm *WASMHandler) SetLogger(logger *zap.Logger) { wsm.logger = logger }

// String describes what the handler serves.
func (wsm *WASMHandler) String() string {
	if wsm.WASMDir == "" {
		return "WASMHandler(static)"
	}
	return fmt.Sprintf("WASMHandler(%s build %s)", wsm.Compiler, wsm.WASMDir)
}

func (wsm *WASMHandler) log() *zap.Logger {
	if wsm.logger == nil {
		return zap.NewNop()
	}
	return wsm.logger
}

func (wsm *WASMHandler) module() ([]byte, time.Time) {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	modTime := wsm.wasmModTime
	if modTime.IsZero() {
		modTime = wsm.startTime
	}
	return wsm.WASMApplication, modTime
}

// reloadLocked returns the channel closed by the next Notify. waiting counts
// the requests blocked on it. wsm.mu must be held.
func (wsm *WASMHandler) reloadLocked() chan struct{} {
	if wsm.reload == nil {
		wsm.reload = make(chan struct{})
	}
	return wsm.reload
}

func (wsm *WASMHandler) waitForUpdate(w http.ResponseWriter, r *http.Request) {
	wsm.mu.Lock()
	reload := wsm.reloadLocked()
	wsm.waiting++
	wsm.mu.Unlock()
	defer func() {
		wsm.mu.Lock()
		if wsm.reload == reload {
			wsm.waiting--
		}
		wsm.mu.Unlock()
	}()

	select {
	case <-reload:
		http.ServeContent(w, r, "", time.Now(), bytes.NewReader(nil))
	case <-r.Context().Done():
	}
}

func (wsm *WASMHandler) waiters() int {
	wsm.mu.Lock()
	defer wsm.mu.Unlock()
	return wsm.waiting
}
