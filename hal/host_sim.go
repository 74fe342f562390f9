//go:build !tinygo

package hal

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// SimConfig describes the simulated hypervisor.
type SimConfig struct {
	// ReadCost is the execution time, in ticks, consumed by one clock read.
	ReadCost uint64
	// DispatchLatency is added between a timer expiring and the handler running.
	DispatchLatency uint64
	// MajorFrame and Windows form the cyclic plan of this partition. An empty
	// plan keeps the partition scheduled all the time.
	MajorFrame uint64
	Windows    []Window
	// Start is the initial hardware clock value.
	Start uint64
}

// simHypervisor runs the partition on virtual clocks. Main flow and handler
// share one virtual CPU: every clock read consumes ReadCost ticks and only
// advances the execution clock while inside a window.
type simHypervisor struct {
	arch     Arch
	sched    schedule
	readCost uint64
	latency  uint64
	onPanic  func(v any, stack []byte)

	mu        sync.Mutex
	idle      *sync.Cond
	hw        uint64
	exec      uint64
	armed     bool
	kind      ClockKind
	deadline  uint64
	masked    bool
	enabled   bool
	inService bool
	handler   Handler
	firings   uint64

	kick chan struct{}
	part *partition
}

func newSimHypervisor(arch Arch, cfg SimConfig, part *partition) (*simHypervisor, error) {
	sched, err := newSchedule(cfg.MajorFrame, cfg.Windows)
	if err != nil {
		return nil, err
	}
	readCost := cfg.ReadCost
	if readCost == 0 {
		readCost = 1
	}
	s := &simHypervisor{
		arch:     arch,
		sched:    sched,
		readCost: readCost,
		latency:  cfg.DispatchLatency,
		hw:       sched.next(cfg.Start),
		masked:   true,
		kick:     make(chan struct{}, 1),
		part:     part,
	}
	s.idle = sync.NewCond(&s.mu)
	go s.run()
	return s, nil
}

func (s *simHypervisor) Now(kind ClockKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hw = s.sched.advance(s.hw, s.readCost)
	s.exec += s.readCost
	if kind == ExecutionClock {
		return s.exec
	}
	return s.hw
}

func (s *simHypervisor) Arm(kind ClockKind, deadline uint64) {
	s.mu.Lock()
	s.armed = true
	s.kind = kind
	s.deadline = deadline
	s.mu.Unlock()
	s.notify()
}

func (s *simHypervisor) Install(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	s.notify()
}

// SetMask masks or unmasks the timer line. Masking waits for an in-service
// handler to return, as it would on a single core where the handler preempts
// the caller.
func (s *simHypervisor) SetMask(src IRQSource, masked bool) {
	if src != TimerIRQ {
		return
	}
	s.mu.Lock()
	if masked {
		for s.inService {
			s.idle.Wait()
		}
	}
	s.masked = masked
	s.mu.Unlock()
	s.notify()
}

func (s *simHypervisor) EnableInterrupts() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	s.notify()
}

// Firings returns how many times the handler has been dispatched.
func (s *simHypervisor) Firings() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firings
}

func (s *simHypervisor) notify() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *simHypervisor) run() {
	for {
		h, ok := s.take()
		if !ok {
			select {
			case <-s.kick:
				continue
			case <-s.part.Halted():
				return
			}
		}
		s.dispatch(h)
	}
}

// take claims the armed firing if it is deliverable, moving virtual time to
// the dispatch instant.
func (s *simHypervisor) take() (Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.part.isHalted() {
		return nil, false
	}
	if !s.armed || s.masked || s.inService || s.handler == nil {
		return nil, false
	}
	if s.arch.NeedsGlobalEnable() && !s.enabled {
		return nil, false
	}

	// The main flow keeps spinning until the firing, so execution time accrues
	// for every in-window tick that is skipped.
	switch s.kind {
	case ExecutionClock:
		if s.deadline > s.exec {
			s.hw = s.sched.advance(s.hw, s.deadline-s.exec)
			s.exec = s.deadline
		}
	default:
		if s.deadline > s.hw {
			s.exec += s.sched.busy(s.hw, s.deadline)
			s.hw = s.deadline
		}
	}
	at := s.sched.next(s.hw + s.latency)
	s.exec += s.sched.busy(s.hw, at)
	s.hw = at

	s.armed = false
	s.inService = true
	if s.arch.NeedsReenable() {
		s.masked = true
	}
	s.firings++
	return s.handler, true
}

func (s *simHypervisor) dispatch(h Handler) {
	defer func() {
		if v := recover(); v != nil {
			if s.onPanic != nil {
				s.onPanic(v, debug.Stack())
			}
			s.part.Halt()
		}
		s.mu.Lock()
		s.inService = false
		s.idle.Broadcast()
		s.mu.Unlock()
	}()
	h()
}

func (s *simHypervisor) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("sim(hw=%d exec=%d armed=%v masked=%v)", s.hw, s.exec, s.armed, s.masked)
}
