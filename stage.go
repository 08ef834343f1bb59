//go:build !js
// +build !js

package hellodom

import (
	"fmt"
	"os"
	"path/filepath"
)

// Stage writes the module, wasm_exec.js and the loader page into dir so it
// can be served by any static file server, StaticHandler included.
func (wsm *WASMHandler) Stage(dir string) error {
	app, _ := wsm.module()
	if len(app) == 0 {
		return errNoWASM
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{"main.wasm", app},
		{"wasm_exec.js", wsm.WASMExecContent},
		{"index.html", []byte(wsm.IndexHTML)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", f.name, err)
		}
	}
	return nil
}
