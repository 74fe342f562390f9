//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Mode selects how the host backs the partition clocks and timer.
type Mode uint8

const (
	// ModeSim runs on a deterministic simulated hypervisor.
	ModeSim Mode = iota
	// ModeNative uses the host monotonic clock and per-thread CPU time.
	ModeNative
)

var (
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrNativeUnsupported is returned when the host has no per-thread CPU clock.
	ErrNativeUnsupported = errors.New("native mode requires linux")
)

// ParseMode maps a name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sim":
		return ModeSim, nil
	case "native":
		return ModeNative, nil
	default:
		return 0, fmt.Errorf("mode %q: %w", s, ErrUnsupportedMode)
	}
}

func (m Mode) String() string {
	if m == ModeNative {
		return "native"
	}
	return "sim"
}

// SerialConfig tees log lines to a serial port when Port is set.
type SerialConfig struct {
	Port string
	Baud int
}

// HostConfig configures the host HAL.
type HostConfig struct {
	Arch      Arch
	Mode      Mode
	Partition int
	Sim       SimConfig
	Serial    SerialConfig
	// Output receives log lines. It defaults to os.Stdout.
	Output io.Writer

	// FramebufferWidth and FramebufferHeight size the console framebuffer; zero
	// disables it.
	FramebufferWidth  int
	FramebufferHeight int
}

type backend interface {
	Clock
	Timer
	IRQ
}

type hostHAL struct {
	arch   Arch
	logger *hostLogger
	be     backend
	part   *partition
	fb     *hostFramebuffer
	closer io.Closer
}

// New returns a host HAL implementation.
func New(cfg HostConfig) (HAL, error) {
	if !cfg.Arch.Valid() {
		return nil, fmt.Errorf("hal: arch %d: %w", cfg.Arch, ErrUnsupportedArch)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	logger := &hostLogger{w: out}
	h := &hostHAL{
		arch:   cfg.Arch,
		logger: logger,
		part:   newPartition(cfg.Partition),
	}

	onPanic := func(v any, stack []byte) {
		logger.WriteLineString(fmt.Sprintf("[P%d] trap: handler panic: %v", cfg.Partition, v))
		for _, line := range strings.Split(string(stack), "\n") {
			if line == "" {
				continue
			}
			logger.WriteLineString(line)
		}
	}

	switch cfg.Mode {
	case ModeSim:
		sim, err := newSimHypervisor(cfg.Arch, cfg.Sim, h.part)
		if err != nil {
			return nil, fmt.Errorf("hal: %w", err)
		}
		sim.onPanic = onPanic
		h.be = sim
	case ModeNative:
		nat, err := newNativeHypervisor(cfg.Arch, h.part)
		if err != nil {
			return nil, fmt.Errorf("hal: %w", err)
		}
		nat.onPanic = onPanic
		h.be = nat
	default:
		return nil, fmt.Errorf("hal: mode %d: %w", cfg.Mode, ErrUnsupportedMode)
	}

	if cfg.Serial.Port != "" {
		port, err := openSerial(cfg.Serial)
		if err != nil {
			h.part.Halt()
			return nil, fmt.Errorf("hal: %w", err)
		}
		logger.w = io.MultiWriter(out, port)
		h.closer = port
	}

	if cfg.FramebufferWidth > 0 && cfg.FramebufferHeight > 0 {
		h.fb = newHostFramebuffer(cfg.FramebufferWidth, cfg.FramebufferHeight)
	}
	return h, nil
}

func (h *hostHAL) Arch() Arch           { return h.arch }
func (h *hostHAL) Logger() Logger       { return h.logger }
func (h *hostHAL) Clock() Clock         { return h.be }
func (h *hostHAL) Timer() Timer         { return h.be }
func (h *hostHAL) IRQ() IRQ             { return h.be }
func (h *hostHAL) Partition() Partition { return h.part }

func (h *hostHAL) Display() Display {
	if h.fb == nil {
		return nil
	}
	return hostDisplay{fb: h.fb}
}

// Close releases the serial port, if any.
func (h *hostHAL) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type partition struct {
	id     int
	once   sync.Once
	halted chan struct{}
}

func newPartition(id int) *partition {
	return &partition{id: id, halted: make(chan struct{})}
}

func (p *partition) ID() int { return p.id }

// Halt stops interrupt delivery and releases Halted. On the host it returns.
func (p *partition) Halt() {
	p.once.Do(func() { close(p.halted) })
}

func (p *partition) Halted() <-chan struct{} { return p.halted }

func (p *partition) isHalted() bool {
	select {
	case <-p.halted:
		return true
	default:
		return false
	}
}
