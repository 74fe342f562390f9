// Package app wires a HAL to the measurement runner.
package app

import (
	"wcet/bench"
	"wcet/console"
	"wcet/hal"
	"wcet/internal/buildinfo"
)

// Config selects the optional outputs of a run.
type Config struct {
	Bench bench.Config
	// Observer receives every firing, e.g. a trace.Recorder.
	Observer bench.Observer
	// Console mirrors output on the display framebuffer, if there is one.
	Console bool
}

// platform overrides the HAL logger with the console tee.
type platform struct {
	hal.HAL
	log hal.Logger
}

func (p platform) Logger() hal.Logger { return p.log }

// New returns a Runner bound to h.
func New(h hal.HAL, cfg Config) *bench.Runner {
	log := h.Logger()
	if cfg.Console {
		if con := newConsole(h); con != nil {
			con.WriteLineString("wcet " + buildinfo.Short() + " on " + h.Arch().String())
			log = console.Tee{h.Logger(), con}
		}
	}

	r := bench.New(platform{HAL: h, log: log}, cfg.Bench)
	if cfg.Observer != nil {
		r.Handler().SetObserver(cfg.Observer)
	}
	return r
}

func newConsole(h hal.HAL) *console.Console {
	disp := h.Display()
	if disp == nil {
		return nil
	}
	return console.New(disp.Framebuffer())
}

// Run measures the default targets and halts the partition.
func Run(h hal.HAL) {
	RunWithConfig(h, Config{Bench: bench.DefaultConfig(), Console: true})
}

// RunWithConfig measures with cfg and halts the partition.
func RunWithConfig(h hal.HAL, cfg Config) {
	New(h, cfg).Run()
}
