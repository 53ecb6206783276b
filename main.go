package main

import (
	"context"
	"errors"
	"fmt"
	"kgmemory/app/config"
	"kgmemory/app/service/memory"
	"kgmemory/app/service/tools"
	"kgmemory/app/service/visualizer"
	"kgmemory/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath string
	memoryFile string
	noViz      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "kgmemory",
		Short:        "Knowledge graph memory server for MCP clients",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.memoryFile, "memory-file", "", "memory file path, overrides config and MEMORY_FILE_PATH")
	cmd.Flags().BoolVar(&opts.noViz, "no-viz", false, "do not start the diagram web page")

	return cmd
}

func run(parent context.Context, opts options) error {
	if parent == nil {
		parent = context.Background()
	}

	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if opts.memoryFile != "" {
		if err = cfg.SetMemoryFile(opts.memoryFile); err != nil {
			return err
		}
	}
	if opts.noViz {
		cfg.Visualizer.Enabled = false
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		return fmt.Errorf("logging init failed: %w", err)
	}

	do.Provide(di, memory.New)
	do.Provide(di, tools.New)
	do.Provide(di, visualizer.New)

	toolsSvc, err := do.Invoke[*tools.Service](di)
	if err != nil {
		return fmt.Errorf("failed to init tools: %w", err)
	}

	g, gctx := errgroup.WithContext(appCtx)
	ctx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		defer stop()

		stdio := server.NewStdioServer(toolsSvc.Server())
		stdio.SetErrorLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

		if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio transport failed: %w", err)
		}

		return nil
	})

	if cfg.Visualizer.Enabled {
		viz, err := do.Invoke[*visualizer.Service](di)
		if err != nil {
			return fmt.Errorf("failed to init visualizer: %w", err)
		}

		g.Go(func() error {
			if err := viz.Run(ctx); err != nil {
				slog.Error("Visualization server stopped", "error", err)
			}
			return nil
		})
	}

	slog.Info("Knowledge Graph MCP Server running on stdio",
		"memory_file", cfg.Memory.FilePath,
		"visualizer", cfg.Visualizer.Enabled,
	)

	if err = g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		return err
	}

	log.Info("Shutting down...")

	return nil
}
