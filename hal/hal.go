package hal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedArch is returned for any architecture other than LEON3 or ARM.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// ClockKind selects one of the two partition clocks.
type ClockKind uint8

const (
	// HardwareClock is free-running.
	HardwareClock ClockKind = iota
	// ExecutionClock advances only while the partition is scheduled.
	ExecutionClock
)

func (k ClockKind) String() string {
	switch k {
	case HardwareClock:
		return "hw"
	case ExecutionClock:
		return "exec"
	default:
		return fmt.Sprintf("clock(%d)", uint8(k))
	}
}

// Clock returns monotonic tick counts. One tick is one microsecond.
type Clock interface {
	Now(kind ClockKind) uint64
}

// Timer arms the single partition timer.
//
// Arming replaces any deadline that has not fired yet. A firing invokes the
// installed Handler once.
type Timer interface {
	Arm(kind ClockKind, deadline uint64)
}

// Handler is invoked asynchronously when the timer fires.
type Handler func()

// IRQSource identifies an interrupt line.
type IRQSource uint8

// TimerIRQ is the hardware timer line. It starts masked.
const TimerIRQ IRQSource = 0

// IRQ installs the timer handler and controls interrupt delivery.
//
// Install must be called before the line is unmasked.
type IRQ interface {
	Install(h Handler)
	SetMask(src IRQSource, masked bool)
	EnableInterrupts()
}

// Partition is this execution context as seen by the hypervisor.
type Partition interface {
	ID() int
	// Halt terminates the partition. Bare-metal implementations never return.
	Halt()
	Halted() <-chan struct{}
}

// Arch is one of the two recognized interrupt models.
type Arch uint8

const (
	// ArchLEON3 installs a trap handler; unmasking the source is enough.
	ArchLEON3 Arch = iota + 1
	// ArchARM installs an IRQ handler, needs a global enable, and masks the
	// line on delivery until the handler re-enables it.
	ArchARM
)

// ParseArch maps a name to an Arch.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leon3", "leon3ft", "sparc":
		return ArchLEON3, nil
	case "arm":
		return ArchARM, nil
	default:
		return 0, fmt.Errorf("arch %q: %w", s, ErrUnsupportedArch)
	}
}

// Valid reports whether a is a recognized architecture.
func (a Arch) Valid() bool { return a == ArchLEON3 || a == ArchARM }

// NeedsGlobalEnable reports whether EnableInterrupts must be called once at startup.
func (a Arch) NeedsGlobalEnable() bool { return a == ArchARM }

// NeedsReenable reports whether the handler must unmask the line after each firing.
func (a Arch) NeedsReenable() bool { return a == ArchARM }

func (a Arch) String() string {
	switch a {
	case ArchLEON3:
		return "leon3"
	case ArchARM:
		return "arm"
	default:
		return "unknown"
	}
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// HAL provides the only contact point between the partition and the hypervisor.
type HAL interface {
	Arch() Arch
	Logger() Logger
	Clock() Clock
	Timer() Timer
	IRQ() IRQ
	Partition() Partition
	Display() Display
}
