//go:build !js
// +build !js

// Command hellodomserve compiles the hellodom browser module and serves it
// with the page that loads it, or stages the whole site into a directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soypat/hellodom"
	"github.com/soypat/hellodom/internal/config"
	"github.com/soypat/hellodom/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// newRootCmd builds the command tree. Flags bind to fresh values on every
// call.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hellodomserve",
		Short: "Build and serve the hellodom wasm module",
		Long: `hellodomserve compiles the hellodom main package with GOOS=js GOARCH=wasm
and serves it next to wasm_exec.js and a loader page.

Run without a subcommand to serve.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			logger, err = logging.New(cfg.Verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: serve,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the module over HTTP",
		RunE:  serve,
	}

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the module and stage main.wasm, wasm_exec.js and index.html",
		RunE:  build,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("dir", "", "main package compiled to main.wasm")

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().String("listen", "", "listen address for http server")
		cmd.Flags().Bool("reload", false, "recompile on every request for main.wasm")
		cmd.Flags().Bool("watch", false, "rebuild on source changes and reload open pages")
		cmd.Flags().StringSlice("watch-dir", nil, "directories to watch (default: the module's own packages)")
		cmd.Flags().String("static", "", "directory served for paths the module handler does not own")
	}
	buildCmd.Flags().String("out", "", "output directory")

	rootCmd.AddCommand(serveCmd, buildCmd)
	return rootCmd
}

// applyFlags lays explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("dir") {
		cfg.WASMDir, _ = flags.GetString("dir")
	}
	if flags.Changed("listen") {
		cfg.Listen, _ = flags.GetString("listen")
	}
	if flags.Changed("reload") {
		cfg.Reload, _ = flags.GetBool("reload")
	}
	if flags.Changed("watch") {
		cfg.Watch, _ = flags.GetBool("watch")
	}
	if flags.Changed("watch-dir") {
		cfg.WatchDirs, _ = flags.GetStringSlice("watch-dir")
	}
	if flags.Changed("static") {
		cfg.StaticDir, _ = flags.GetString("static")
	}
	if flags.Changed("out") {
		cfg.OutDir, _ = flags.GetString("out")
	}
}

func serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var static http.Handler
	if cfg.StaticDir != "" {
		static = hellodom.StaticHandler(cfg.StaticDir, logger.Named("static"))
	}
	wsm, err := hellodom.NewWASMHandler(cfg.WASMDir, static, logger.Named("wasm"))
	if err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}
	defer wsm.Close()
	wsm.WASMReload = cfg.Reload

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %q failed: %w", cfg.Listen, err)
	}
	srv := &http.Server{Handler: wsm}
	logger.Info("listening", zap.String("url", "http://"+ln.Addr().String()), zap.Stringer("handler", wsm))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Watch {
		g.Go(func() error {
			return wsm.Watch(ctx, cfg.WatchDirs...)
		})
	}
	return g.Wait()
}

func build(cmd *cobra.Command, args []string) error {
	wsm, err := hellodom.NewWASMHandler(cfg.WASMDir, nil, logger.Named("wasm"))
	if err != nil {
		return err
	}
	defer wsm.Close()
	if err := wsm.Stage(cfg.OutDir); err != nil {
		return err
	}
	logger.Info("staged", zap.String("dir", cfg.OutDir))
	return nil
}

// execute runs cmd. cobra skips PersistentPostRun when a command fails, so
// the error is logged and the logger flushed here.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err != nil && logger != nil {
		logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		_ = logger.Sync()
	}
	return err
}

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}
