//go:build !js
// +build !js

package hellodom

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRebuildsOnChange(t *testing.T) {
	wsm := newBuildTestHandler(t, false)
	wsm.WatchDebounce = 10 * time.Millisecond
	src := filepath.Join(wsm.WASMDir, "main.go")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wsm.Watch(ctx) }()

	// Keep touching the file: the first writes may land before the watch is set.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(src, []byte("package main\n"), 0o644)
		app, _ := wsm.module()
		return string(app) == "js/wasm"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchRebuildsOnDependencyChange(t *testing.T) {
	wsm := newBuildTestHandler(t, false)
	wsm.WatchDebounce = 10 * time.Millisecond
	lib := t.TempDir()
	wsm.Compiler = fakeCompiler(t, false, wsm.WASMDir, lib)
	src := filepath.Join(lib, "bootstrap.go")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wsm.Watch(ctx) }()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(src, []byte("package lib\n"), 0o644)
		app, _ := wsm.module()
		return string(app) == "js/wasm"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestSourceDirs(t *testing.T) {
	wsm := newBuildTestHandler(t, false)
	lib := t.TempDir()

	wsm.Compiler = fakeCompiler(t, false, wsm.WASMDir, lib)
	assert.Equal(t, []string{wsm.WASMDir, lib}, wsm.sourceDirs(context.Background()))

	wsm.Compiler = fakeCompiler(t, false)
	assert.Equal(t, []string{wsm.WASMDir}, wsm.sourceDirs(context.Background()), "empty listing")

	wsm.Compiler = fakeCompiler(t, true)
	assert.Equal(t, []string{wsm.WASMDir}, wsm.sourceDirs(context.Background()), "failed listing")
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	wsm := newBuildTestHandler(t, false)
	wsm.WatchDebounce = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wsm.Watch(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(wsm.WASMDir, "notes.txt"), []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}
	app, _ := wsm.module()
	assert.Empty(t, app)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchRequiresDir(t *testing.T) {
	wsm := newStaticTestHandler(t)
	assert.Error(t, wsm.Watch(context.Background()))
}

func TestWatchMissingDir(t *testing.T) {
	wsm := newBuildTestHandler(t, false)
	err := wsm.Watch(context.Background(), filepath.Join(wsm.WASMDir, "nope"))
	assert.Error(t, err)
}
