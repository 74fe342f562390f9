//go:build !tinygo

// Package config loads the host run profile.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wcet/hal"
	"wcet/plan"
)

// Config is the YAML run profile.
type Config struct {
	Arch      string       `yaml:"arch"`
	Mode      string       `yaml:"mode"`
	Partition int          `yaml:"partition"`
	Sim       SimConfig    `yaml:"sim"`
	Serial    SerialConfig `yaml:"serial"`
	Trace     string       `yaml:"trace"`
}

// SimConfig configures the simulated hypervisor. When Partitions is set the
// cyclic plan is generated from it and this partition runs in its own slots.
type SimConfig struct {
	ReadCost        uint64           `yaml:"read_cost"`
	DispatchLatency uint64           `yaml:"dispatch_latency"`
	SliceTicks      uint64           `yaml:"slice_ticks"`
	Partitions      []plan.Partition `yaml:"partitions"`
}

// SerialConfig tees log lines to a serial port.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Default returns the default profile.
func Default() *Config {
	return &Config{
		Arch: "leon3",
		Mode: "sim",
		Sim: SimConfig{
			ReadCost:   1,
			SliceTicks: 100000,
		},
		Serial: SerialConfig{Baud: 115200},
	}
}

// Load reads a profile from YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Arch == "" {
		c.Arch = d.Arch
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.Sim.ReadCost == 0 {
		c.Sim.ReadCost = d.Sim.ReadCost
	}
	if c.Sim.SliceTicks == 0 {
		c.Sim.SliceTicks = d.Sim.SliceTicks
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = d.Serial.Baud
	}
}

// HostConfig resolves c into a hal.HostConfig.
func (c *Config) HostConfig() (hal.HostConfig, error) {
	arch, err := hal.ParseArch(c.Arch)
	if err != nil {
		return hal.HostConfig{}, err
	}
	mode, err := hal.ParseMode(c.Mode)
	if err != nil {
		return hal.HostConfig{}, err
	}

	hc := hal.HostConfig{
		Arch:      arch,
		Mode:      mode,
		Partition: c.Partition,
		Sim: hal.SimConfig{
			ReadCost:        c.Sim.ReadCost,
			DispatchLatency: c.Sim.DispatchLatency,
		},
		Serial: hal.SerialConfig{Port: c.Serial.Port, Baud: c.Serial.Baud},
	}

	if len(c.Sim.Partitions) > 0 {
		p, err := plan.Build(c.Sim.Partitions, c.Sim.SliceTicks)
		if err != nil {
			return hal.HostConfig{}, err
		}
		ws := p.WindowsFor(c.Partition)
		if len(ws) == 0 {
			return hal.HostConfig{}, fmt.Errorf("config: partition %d has no slot in the plan", c.Partition)
		}
		hc.Sim.MajorFrame = p.MajorFrame
		hc.Sim.Windows = ws
	}
	return hc, nil
}

// PlanFile is the input of the schedule generator.
type PlanFile struct {
	SliceMs      uint64           `yaml:"slice_ms"`
	FrequencyMHz int              `yaml:"frequency_mhz"`
	CPUs         int              `yaml:"cpus"`
	Partitions   []plan.Partition `yaml:"partitions"`
}

// LoadPlanFile reads a PlanFile from YAML.
func LoadPlanFile(path string) (*PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var f PlanFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if f.SliceMs == 0 {
		f.SliceMs = 100
	}
	if f.FrequencyMHz == 0 {
		f.FrequencyMHz = 400
	}
	if f.CPUs == 0 {
		f.CPUs = 1
	}
	return &f, nil
}
