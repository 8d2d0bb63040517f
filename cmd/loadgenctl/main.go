//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/loadgen/pkg/config"
	"github.com/ja7ad/loadgen/pkg/protocol"
	"github.com/ja7ad/loadgen/pkg/system/proc"
)

var configPath string

// cpuList is a pflag.Value for kernel cpulist syntax ("0-3,6").
type cpuList []int

var _ pflag.Value = (*cpuList)(nil)

func (c *cpuList) String() string {
	s := make([]string, len(*c))
	for i, v := range *c {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

func (c *cpuList) Set(s string) error {
	v, err := proc.ParseCPUList(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c *cpuList) Type() string { return "cpulist" }

func main() {
	root := &cobra.Command{
		Use:   "loadgenctl",
		Short: "Control and observe loadgend",
		Long: `loadgenctl edits the pending load of a running loadgend, applies or
releases it, and measures what the machine is actually doing.

Edits accumulate in the daemon between "init" and "run".

Examples:
  loadgenctl init
  loadgenctl cpu-user 50 --cpus 0-3
  loadgenctl mem 10
  loadgenctl run
  loadgenctl measure -s 10
  loadgenctl stop
  loadgenctl apply -f profile.yaml`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "daemon configuration file (for the socket path)")

	root.AddCommand(
		simpleCmd("init", "Start a new pending load", protocol.Init{}),
		simpleCmd("run", "Apply the pending load", protocol.Run{}),
		simpleCmd("stop", "Release the applied load", protocol.Stop{}),
		cpuCmd("cpu-user", "Set user-space load of CPUs", func(p float32, cpu int32) protocol.Message {
			return protocol.CPUUser{Percent: p, CPU: cpu}
		}),
		cpuCmd("cpu-kernel", "Set kernel load of CPUs", func(p float32, cpu int32) protocol.Message {
			return protocol.CPUKernel{Percent: p, CPU: cpu}
		}),
		percentCmd("mem", "Set memory load as a share of physical memory", func(p float32) protocol.Message {
			return protocol.Mem{Percent: p}
		}),
		percentCmd("io", "Set block device read duty cycle", func(p float32) protocol.Message {
			return protocol.IO{Percent: p}
		}),
		applyCmd(),
		measureCmd(),
		infoCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func dial(ctx context.Context) (*protocol.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	c, err := protocol.Dial(ctx, cfg.Socket)
	if err != nil {
		return nil, fmt.Errorf("connect to loadgend: %w", err)
	}
	return c, nil
}

// send delivers msgs over one connection and stops at the first error.
func send(ctx context.Context, msgs ...protocol.Message) error {
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	for _, m := range msgs {
		if err := c.Do(m); err != nil {
			return fmt.Errorf("%s: %w", m.Type(), err)
		}
	}
	return nil
}

func parsePercent(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q", s)
	}
	return float32(v), nil
}

func simpleCmd(use, short string, m protocol.Message) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd.Context(), m)
		},
	}
}

func percentCmd(use, short string, build func(float32) protocol.Message) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PERCENT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePercent(args[0])
			if err != nil {
				return err
			}
			return send(cmd.Context(), build(p))
		},
	}
}

func cpuCmd(use, short string, build func(float32, int32) protocol.Message) *cobra.Command {
	var cpus cpuList

	cmd := &cobra.Command{
		Use:   use + " PERCENT --cpus LIST",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePercent(args[0])
			if err != nil {
				return err
			}
			if len(cpus) == 0 {
				return fmt.Errorf("no CPUs given")
			}
			msgs := make([]protocol.Message, len(cpus))
			for i, cpu := range cpus {
				msgs[i] = build(p, int32(cpu))
			}
			return send(cmd.Context(), msgs...)
		},
	}
	cmd.Flags().Var(&cpus, "cpus", "CPU list, e.g. 0-3,6")
	_ = cmd.MarkFlagRequired("cpus")
	return cmd
}
