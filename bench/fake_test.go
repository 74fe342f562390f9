package bench

import (
	"sync"

	"wcet/hal"
)

// fakePlatform is a single-threaded platform. Every clock read advances both
// clocks by one tick, and a pending firing is delivered synchronously from the
// Runner's spin hook.
type fakePlatform struct {
	arch hal.Arch
	id   int

	hw   uint64
	exec uint64

	armed    bool
	deadline uint64
	masked   bool
	enabled  int
	handler  hal.Handler

	// preempt adds hardware ticks, without execution time, to the workload of
	// the n-th firing (zero-based, across iterations).
	preempt map[int]uint64

	inFire    bool
	fireReads int
	fireExec  uint64

	firings  int
	arms     []uint64
	execUsed []uint64
	halted   bool
	lines    []string

	mu   sync.Mutex
	done chan struct{}
}

func newFake(arch hal.Arch) *fakePlatform {
	return &fakePlatform{
		arch:    arch,
		hw:      500,
		masked:  true,
		preempt: map[int]uint64{},
		done:    make(chan struct{}),
	}
}

func (f *fakePlatform) Arch() hal.Arch           { return f.arch }
func (f *fakePlatform) Logger() hal.Logger       { return f }
func (f *fakePlatform) Clock() hal.Clock         { return f }
func (f *fakePlatform) Timer() hal.Timer         { return f }
func (f *fakePlatform) IRQ() hal.IRQ             { return f }
func (f *fakePlatform) Partition() hal.Partition { return f }

func (f *fakePlatform) WriteLineString(s string) {
	f.mu.Lock()
	f.lines = append(f.lines, s)
	f.mu.Unlock()
}

func (f *fakePlatform) WriteLineBytes(b []byte) { f.WriteLineString(string(b)) }

func (f *fakePlatform) Now(kind hal.ClockKind) uint64 {
	f.hw++
	f.exec++
	if f.inFire {
		f.fireReads++
		// Reads 1 and 2 are the handler's exec and hw snapshots; read 3 is the
		// first workload poll.
		if f.fireReads == 3 {
			f.hw += f.preempt[f.firings]
		}
	}
	if kind == hal.ExecutionClock {
		return f.exec
	}
	return f.hw
}

func (f *fakePlatform) Arm(kind hal.ClockKind, deadline uint64) {
	f.armed = true
	f.deadline = deadline
	f.arms = append(f.arms, deadline)
}

func (f *fakePlatform) Install(h hal.Handler) { f.handler = h }

func (f *fakePlatform) SetMask(src hal.IRQSource, masked bool) {
	if src == hal.TimerIRQ {
		f.masked = masked
	}
}

func (f *fakePlatform) EnableInterrupts() { f.enabled++ }

func (f *fakePlatform) ID() int { return f.id }

func (f *fakePlatform) Halt() {
	if !f.halted {
		f.halted = true
		close(f.done)
	}
}

func (f *fakePlatform) Halted() <-chan struct{} { return f.done }

// spin delivers the armed firing if the line allows it.
func (f *fakePlatform) spin() {
	if !f.armed || f.masked || f.handler == nil || f.halted {
		return
	}
	if f.arch.NeedsGlobalEnable() && f.enabled == 0 {
		return
	}
	if f.deadline > f.hw {
		f.hw = f.deadline
	}
	f.armed = false
	if f.arch.NeedsReenable() {
		f.masked = true
	}

	f.inFire = true
	f.fireReads = 0
	exec0 := f.exec
	f.handler()
	f.inFire = false
	f.execUsed = append(f.execUsed, f.exec-exec0)
	f.firings++
}

type sampleLog struct {
	samples []Sample
}

func (l *sampleLog) Fired(s Sample) { l.samples = append(l.samples, s) }

func newFakeRunner(f *fakePlatform, targets []uint64, threshold uint32) (*Runner, *sampleLog) {
	r := New(f, Config{
		Targets:   targets,
		Threshold: threshold,
		Period:    DefaultPeriod,
		Spin:      f.spin,
	})
	log := &sampleLog{}
	r.Handler().SetObserver(log)
	return r, log
}
