//go:build !tinygo

package hal

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// nativeHypervisor backs the partition with host clocks. The handler runs on a
// dedicated OS thread so that its execution clock readings are consistent.
type nativeHypervisor struct {
	arch    Arch
	part    *partition
	epoch   time.Time
	onPanic func(v any, stack []byte)

	mu        sync.Mutex
	idle      *sync.Cond
	timer     *time.Timer
	gen       uint64
	pending   bool
	masked    bool
	enabled   bool
	inService bool
	handler   Handler

	fire chan struct{}
}

func newNativeHypervisor(arch Arch, part *partition) (*nativeHypervisor, error) {
	if _, err := threadCPUMicros(); err != nil {
		return nil, err
	}
	n := &nativeHypervisor{
		arch:   arch,
		part:   part,
		epoch:  time.Now(),
		masked: true,
		fire:   make(chan struct{}, 1),
	}
	n.idle = sync.NewCond(&n.mu)
	go n.interrupts()
	return n, nil
}

func (n *nativeHypervisor) Now(kind ClockKind) uint64 {
	if kind == ExecutionClock {
		us, _ := threadCPUMicros()
		return us
	}
	return uint64(time.Since(n.epoch) / time.Microsecond)
}

// Arm schedules the firing with a host timer. Execution clock deadlines are
// converted with the current offset, as the host never deschedules the
// partition on purpose.
func (n *nativeHypervisor) Arm(kind ClockKind, deadline uint64) {
	now := n.Now(kind)
	var delay time.Duration
	if deadline > now {
		delay = time.Duration(deadline-now) * time.Microsecond
	}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.pending = false
	n.timer = time.AfterFunc(delay, func() { n.expire(gen) })
	n.mu.Unlock()
}

func (n *nativeHypervisor) Install(h Handler) {
	n.mu.Lock()
	n.handler = h
	n.mu.Unlock()
	n.deliver()
}

func (n *nativeHypervisor) SetMask(src IRQSource, masked bool) {
	if src != TimerIRQ {
		return
	}
	n.mu.Lock()
	if masked {
		for n.inService {
			n.idle.Wait()
		}
	}
	n.masked = masked
	n.mu.Unlock()
	if !masked {
		n.deliver()
	}
}

func (n *nativeHypervisor) EnableInterrupts() {
	n.mu.Lock()
	n.enabled = true
	n.mu.Unlock()
	n.deliver()
}

func (n *nativeHypervisor) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.pending = true
	n.mu.Unlock()
	n.deliver()
}

func (n *nativeHypervisor) deliver() {
	n.mu.Lock()
	if n.part.isHalted() || !n.pending || n.masked || n.inService || n.handler == nil {
		n.mu.Unlock()
		return
	}
	if n.arch.NeedsGlobalEnable() && !n.enabled {
		n.mu.Unlock()
		return
	}
	n.pending = false
	n.inService = true
	if n.arch.NeedsReenable() {
		n.masked = true
	}
	n.mu.Unlock()

	select {
	case n.fire <- struct{}{}:
	default:
	}
}

func (n *nativeHypervisor) interrupts() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-n.part.Halted():
			n.mu.Lock()
			if n.timer != nil {
				n.timer.Stop()
			}
			n.mu.Unlock()
			return
		case <-n.fire:
			n.service()
		}
	}
}

func (n *nativeHypervisor) service() {
	n.mu.Lock()
	h := n.handler
	n.mu.Unlock()

	defer func() {
		if v := recover(); v != nil {
			if n.onPanic != nil {
				n.onPanic(v, debug.Stack())
			}
			n.part.Halt()
		}
		n.mu.Lock()
		n.inService = false
		n.idle.Broadcast()
		n.mu.Unlock()
		n.deliver()
	}()
	h()
}
