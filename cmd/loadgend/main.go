//go:build linux

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/loadgen/pkg/arena"
	"github.com/ja7ad/loadgen/pkg/config"
	"github.com/ja7ad/loadgen/pkg/control"
	"github.com/ja7ad/loadgen/pkg/engine"
	"github.com/ja7ad/loadgen/pkg/kernelhog"
	"github.com/ja7ad/loadgen/pkg/system/inventory"
	"github.com/ja7ad/loadgen/pkg/system/proc"
)

type opts struct {
	configPath string
	foreground bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "loadgend",
		Short: "Synthetic CPU, memory and I/O load daemon",
		Long: `loadgend realizes per-CPU user and kernel load, a memory footprint and a
block device read pattern as duty cycles of pinned worker threads.

It is driven by loadgenctl over a local socket. Socket, lock and log paths
come from the configuration file only.

Examples:
  loadgend --foreground
  loadgend --config /etc/loadgend.yaml`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	root.Flags().BoolVarP(&o.foreground, "foreground", "f", false, "log to stderr instead of the log file")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg, o.foreground)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	if err := os.Chdir(cfg.WorkDir); err != nil {
		return fmt.Errorf("work dir: %w", err)
	}

	lock, err := acquireLock(cfg.Lock)
	if err != nil {
		return err
	}
	defer lock.Release()

	inv, err := inventory.Discover(inventory.WithDevice(cfg.Device), inventory.WithLogger(log))
	if err != nil {
		return err
	}
	log.Info("inventory", "host", inv)

	hog, err := dialHogger(cfg)
	if err != nil {
		return err
	}

	mem := arena.New(inv.PageSize, inv.CPUs, arena.WithPopulate(cfg.PopulateMemory))
	eng := engine.New(engine.Config{
		Period:          cfg.Period,
		Stagger:         cfg.Stagger,
		Device:          inv.BlockDevice,
		ReadBufBytes:    cfg.ReadBuffer,
		InProcessKernel: hog == nil,
	}, log)

	hcfg := control.Config{
		CPUs:      inv.CPUs,
		PhysPages: inv.PhysPages,
		Engine:    eng,
		Memory:    mem,
		Logger:    log,
	}
	if hog != nil {
		hcfg.Hogger = hog
		defer hog.Close()
	}
	h := control.NewHandler(hcfg)

	ln, err := control.Listen(cfg.Socket)
	if err != nil {
		return err
	}
	srv := control.NewServer(ln, h, log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return h.Shutdown()
	})

	log.Info("listening", "socket", cfg.Socket, "pid", os.Getpid())
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("bye")
	return nil
}

func newLogger(cfg *config.Config, foreground bool) (*slog.Logger, func(), error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}

	var (
		w       io.Writer = os.Stderr
		closeFn           = func() {}
	)
	if !foreground {
		f, err := os.OpenFile(cfg.Log, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		w, closeFn = f, func() { _ = f.Close() }
	}

	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	return log, closeFn, nil
}

// dialHogger returns nil when the kernel path is disabled.
func dialHogger(cfg *config.Config) (kernelhog.Hogger, error) {
	if !cfg.Kernel.Enabled {
		return nil, nil
	}

	loaded, err := proc.ModuleLoaded(cfg.Kernel.Module)
	if err != nil {
		return nil, fmt.Errorf("kernel module check: %w", err)
	}
	if !loaded {
		return nil, fmt.Errorf("kernel module %s is not loaded", cfg.Kernel.Module)
	}

	c, err := kernelhog.Dial(cfg.Kernel.Family)
	if err != nil {
		return nil, err
	}
	return c, nil
}
