//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/loadgen/pkg/protocol"
	"github.com/ja7ad/loadgen/pkg/system/proc"
)

// profile is a complete load written as YAML:
//
//	cpu_user:
//	  - cpus: 0-3
//	    percent: 50
//	cpu_kernel:
//	  - cpus: "4"
//	    percent: 20
//	mem: 10
//	io: 5
type profile struct {
	CPUUser   []cpuEntry `yaml:"cpu_user"`
	CPUKernel []cpuEntry `yaml:"cpu_kernel"`
	Mem       float32    `yaml:"mem"`
	IO        float32    `yaml:"io"`
}

type cpuEntry struct {
	CPUs    string  `yaml:"cpus"`
	Percent float32 `yaml:"percent"`
}

func loadProfile(path string) (*profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// messages turns the profile into STOP, INIT, the loads and RUN.
func (p *profile) messages() ([]protocol.Message, error) {
	msgs := []protocol.Message{protocol.Stop{}, protocol.Init{}}

	add := func(entries []cpuEntry, build func(float32, int32) protocol.Message) error {
		for _, e := range entries {
			cpus, err := proc.ParseCPUList(e.CPUs)
			if err != nil {
				return err
			}
			for _, cpu := range cpus {
				msgs = append(msgs, build(e.Percent, int32(cpu)))
			}
		}
		return nil
	}
	if err := add(p.CPUUser, func(pc float32, cpu int32) protocol.Message {
		return protocol.CPUUser{Percent: pc, CPU: cpu}
	}); err != nil {
		return nil, err
	}
	if err := add(p.CPUKernel, func(pc float32, cpu int32) protocol.Message {
		return protocol.CPUKernel{Percent: pc, CPU: cpu}
	}); err != nil {
		return nil, err
	}
	if p.Mem > 0 {
		msgs = append(msgs, protocol.Mem{Percent: p.Mem})
	}
	if p.IO > 0 {
		msgs = append(msgs, protocol.IO{Percent: p.IO})
	}
	return append(msgs, protocol.Run{}), nil
}

func applyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply -f PROFILE",
		Short: "Replace the applied load with a YAML profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile(file)
			if err != nil {
				return err
			}
			msgs, err := p.messages()
			if err != nil {
				return err
			}
			return send(cmd.Context(), msgs...)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "profile file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
