//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/loadgen/pkg/config"
	"github.com/ja7ad/loadgen/pkg/measure"
)

type measureOpts struct {
	samples  int
	interval time.Duration
	ema      float64
	cpus     cpuList
	pid      int
}

func measureCmd() *cobra.Command {
	var o measureOpts

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Sample per-CPU and daemon resource usage",
		Long: `measure samples /proc every interval and prints the user, system and
idle share of each CPU, plus the CPU, read bytes and RSS of the daemon (or of
--pid). Averages are printed at the end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMeasure(cmd.Context(), o)
		},
	}
	cmd.Flags().IntVarP(&o.samples, "samples", "s", 5, "number of samples to collect (0 = run until Ctrl-C)")
	cmd.Flags().DurationVarP(&o.interval, "interval", "i", time.Second, "sampling interval (e.g. 1s, 500ms)")
	cmd.Flags().Float64Var(&o.ema, "ema", 0.5, "EMA alpha for per-CPU smoothing [0..1]")
	cmd.Flags().Var(&o.cpus, "cpus", "only report these CPUs, e.g. 0-3")
	cmd.Flags().IntVarP(&o.pid, "pid", "p", 0, "process to sample (default: the daemon, from its lock file)")
	return cmd
}

func runMeasure(ctx context.Context, o measureOpts) error {
	if o.interval <= 0 {
		return measure.ErrBadInterval
	}
	if o.ema < 0 || o.ema > 1 {
		return fmt.Errorf("ema must be in [0,1]")
	}

	sampler, err := measure.NewSampler(&measure.Config{Alpha: o.ema, CPUs: o.cpus})
	if err != nil {
		return fmt.Errorf("sampler: %w", err)
	}

	pid := o.pid
	if pid == 0 {
		pid = daemonPID()
	}
	var ps *measure.ProcSampler
	if pid > 0 {
		if ps, err = measure.NewProcSampler(pid); err != nil {
			slog.Warn("process sampling disabled", "pid", pid, "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acc := measure.NewAccumulator()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCPU\tUSER %\tSYS %\tIDLE %")
	fmt.Fprintln(tw, "----\t---\t------\t-----\t------")
	tw.Flush()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for n := 0; o.samples == 0 || n < o.samples; n++ {
		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			printSummary(acc, ps != nil)
			return nil
		case <-ticker.C:
		}

		now := time.Now().Format("15:04:05")
		us, err := sampler.Sample()
		if err != nil {
			slog.Warn("sample error", "err", err)
			continue
		}
		acc.AddCPU(us)
		for _, u := range us {
			fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f\n", now, u.CPU, u.User, u.System, u.Idle)
		}

		if ps != nil {
			pu, err := ps.Sample(o.interval)
			switch {
			case errors.Is(err, measure.ErrExited):
				fmt.Fprintf(tw, "# pid %d exited\n", ps.PID())
				ps = nil
			case err != nil:
				slog.Warn("process sample error", "err", err)
			default:
				acc.AddProc(pu)
				fmt.Fprintf(tw, "%s\tpid %d\t%.1f\t%.1f\tread=%s rss=%s\n",
					now, pu.PID, pu.User, pu.System, pu.ReadBytes.Humanized(), pu.RSS.Humanized())
			}
		}
		tw.Flush()
	}

	printSummary(acc, acc.Samples() > 0)
	return nil
}

func printSummary(acc *measure.Accumulator, withProc bool) {
	fmt.Println()
	fmt.Println("average:")
	for _, u := range acc.CPUAverages() {
		fmt.Printf("- cpu%-3d user %5.1f%%  sys %5.1f%%  idle %5.1f%%\n", u.CPU, u.User, u.System, u.Idle)
	}
	if withProc {
		p := acc.ProcAverage()
		fmt.Printf("- pid %d user %.1f%%  sys %.1f%%  read %s  rss %s\n",
			p.PID, p.User, p.System, p.ReadBytes.Humanized(), p.RSS.Humanized())
	}
	fmt.Println()
}

// daemonPID reads the PID the daemon wrote into its lock file.
func daemonPID() int {
	cfg, err := config.Load(configPath)
	if err != nil {
		return 0
	}
	b, err := os.ReadFile(cfg.Lock)
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(b)))
	return pid
}
