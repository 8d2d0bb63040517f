//go:build linux

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"

	"github.com/ja7ad/loadgen/pkg/system/inventory"
)

func infoCmd() *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the machine facts loads are sized against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			inv, err := inventory.Discover(inventory.WithDevice(device))
			if err != nil {
				return err
			}
			dev := inv.BlockDevice
			if dev == "" {
				dev = "none"
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			// host facts are informational; the inventory is what loads are sized against
			if hi, err := host.InfoWithContext(ctx); err == nil {
				fmt.Fprintf(tw, "Host:\t%s\n", hi.Hostname)
				fmt.Fprintf(tw, "Kernel:\t%s (%s)\n", hi.KernelVersion, hi.KernelArch)
			}
			fmt.Fprintf(tw, "CPUs:\t%d\n", inv.CPUs)
			if ci, err := cpu.InfoWithContext(ctx); err == nil && len(ci) > 0 {
				fmt.Fprintf(tw, "CPU model:\t%s\n", ci[0].ModelName)
			}
			fmt.Fprintf(tw, "Page size:\t%d\n", inv.PageSize)
			fmt.Fprintf(tw, "Physical pages:\t%d (%s)\n", inv.PhysPages, inv.Memory().Humanized())
			fmt.Fprintf(tw, "Block device:\t%s\n", dev)
			fmt.Fprintf(tw, "Cgroup:\t%s\n", inv.Cgroup)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "block device instead of discovering one")
	return cmd
}
