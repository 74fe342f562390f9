//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"wcet/app"
	"wcet/bench"
	"wcet/hal"
	"wcet/internal/buildinfo"
	"wcet/internal/config"
	"wcet/trace"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		headless   bool
		configPath string
		arch       string
		mode       string
		serialPort string
		tracePath  string
		watchdog   time.Duration
		version    bool
	)
	flag.BoolVar(&headless, "headless", true, "Run without a window.")
	flag.StringVar(&configPath, "config", "", "YAML run profile.")
	flag.StringVar(&arch, "arch", "", "Interrupt model: leon3 or arm (overrides the profile).")
	flag.StringVar(&mode, "mode", "", "Host backend: sim or native (overrides the profile).")
	flag.StringVar(&serialPort, "serial", "", "Tee output to this serial port (overrides the profile).")
	flag.StringVar(&tracePath, "trace", "", "Write per-firing samples as CSV to this file.")
	flag.DurationVar(&watchdog, "watchdog", 0, "Abort if the run does not halt in time (0 = wait forever).")
	flag.BoolVar(&version, "version", false, "Print the build and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.Describe())
		return nil
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if arch != "" {
		cfg.Arch = arch
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if serialPort != "" {
		cfg.Serial.Port = serialPort
	}
	if tracePath != "" {
		cfg.Trace = tracePath
	}

	hc, err := cfg.HostConfig()
	if err != nil {
		return err
	}
	if !headless {
		hc.FramebufferWidth, hc.FramebufferHeight = 320, 240
	}
	h, err := hal.New(hc)
	if err != nil {
		return err
	}
	if c, ok := h.(interface{ Close() error }); ok {
		defer c.Close()
	}

	ac := app.Config{Bench: bench.DefaultConfig(), Console: !headless}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var drained chan error
	if cfg.Trace != "" {
		rec, err := trace.NewRecorder()
		if err != nil {
			return err
		}
		f, err := os.Create(cfg.Trace)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		defer f.Close()
		ac.Observer = rec

		drainCtx, cancel := context.WithCancel(context.Background())
		drained = make(chan error, 1)
		go func() {
			_, err := rec.Drain(drainCtx, f)
			drained <- err
		}()
		defer func() {
			cancel()
			if err := <-drained; err != nil {
				fmt.Fprintln(os.Stderr, "trace:", err)
			}
			if n := rec.Dropped(); n > 0 {
				fmt.Fprintf(os.Stderr, "trace: dropped %d samples\n", n)
			}
		}()
	}

	runApp := func(h hal.HAL) { app.RunWithConfig(h, ac) }
	if headless {
		return hal.RunHeadless(ctx, h, runApp, hal.RunConfig{Watchdog: watchdog})
	}
	return hal.RunWindow(h, runApp)
}
