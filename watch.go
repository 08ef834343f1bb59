//go:build !js
// +build !js

package hellodom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce is the quiet period Watch waits for after the last
// source change before rebuilding.
const DefaultWatchDebounce = 250 * time.Millisecond

const sourceOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watch rebuilds the module whenever a .go file in dirs changes and then
// notifies the pages waiting on /_wait. dirs defaults to the directories of
// every package of the main module that WASMDir imports, WASMDir included.
// Failed builds are logged and watching goes on. Watch returns when ctx is
// done.
func (wsm *WASMHandler) Watch(ctx context.Context, dirs ...string) error {
	if wsm.WASMDir == "" {
		return errors.New("watch: handler has no WASMDir to build")
	}
	if len(dirs) == 0 {
		dirs = wsm.sourceDirs(ctx)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		wsm.log().Info("watching", zap.String("dir", dir))
	}

	debounce := wsm.WatchDebounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	rebuild := time.NewTimer(debounce)
	rebuild.Stop()
	defer rebuild.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".go") || ev.Op&sourceOps == 0 {
				continue
			}
			wsm.log().Debug("source changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			rebuild.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			wsm.log().Warn("watcher error", zap.Error(err))
		case <-rebuild.C:
			if err := wsm.Build(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				wsm.log().Error("rebuild failed", zap.Error(err))
				continue
			}
			n := wsm.Notify()
			wsm.log().Info("reloading pages", zap.Int("waiters", n))
		}
	}
}

// moduleDirsTemplate prints the directory of each dependency that belongs to
// the main module; standard library and module cache packages print nothing.
const moduleDirsTemplate = "{{if .Module}}{{if .Module.Main}}{{.Dir}}{{end}}{{end}}"

// sourceDirs lists the directories of the main module's packages that the
// WASMDir build depends on. It falls back to WASMDir alone if the listing
// fails.
func (wsm *WASMHandler) sourceDirs(ctx context.Context) []string {
	cmd := exec.CommandContext(ctx, wsm.Compiler, "list", "-deps", "-f", moduleDirsTemplate)
	cmd.Env = append(os.Environ(), "GOOS=js", "GOARCH=wasm")
	cmd.Dir = wsm.WASMDir
	out, err := cmd.Output()
	if err != nil {
		wsm.log().Warn("listing module packages failed, watching WASMDir only", zap.Error(err))
		return []string{wsm.WASMDir}
	}
	var dirs []string
	for _, line := range strings.Split(string(out), "\n") {
		if dir := strings.TrimSpace(line); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return []string{wsm.WASMDir}
	}
	return dirs
}
