package bench

import (
	"sync/atomic"

	"wcet/hal"
)

// Sample describes one timer firing.
type Sample struct {
	Iteration int
	Cycle     uint32
	Target    uint64
	HW1       uint64
	HW2       uint64
	Latency   uint64
}

// Observer receives one Sample per firing, from interrupt context. It must
// not block.
type Observer interface {
	Fired(Sample)
}

// Handler is the timer interrupt routine.
type Handler struct {
	state     *State
	clock     hal.Clock
	timer     hal.Timer
	irq       hal.IRQ
	reenable  bool
	period    uint64
	threshold uint32
	obs       Observer

	iteration atomic.Int32
	final     atomic.Bool
}

// NewHandler returns a Handler that re-arms the timer period ticks after each
// workload completes. threshold is the number of firings per iteration; it is
// used to suppress the re-arm after the last firing of the last iteration.
func NewHandler(state *State, p Platform, period uint64, threshold uint32) *Handler {
	return &Handler{
		state:     state,
		clock:     p.Clock(),
		timer:     p.Timer(),
		irq:       p.IRQ(),
		reenable:  p.Arch().NeedsReenable(),
		period:    period,
		threshold: threshold,
	}
}

// SetObserver installs o. It must be called before the handler is installed.
func (h *Handler) SetObserver(o Observer) { h.obs = o }

// begin marks the start of iteration i; final is set for the last one.
func (h *Handler) begin(i int, final bool) {
	h.iteration.Store(int32(i))
	h.final.Store(final)
}

// Fire runs one firing: the calibrated workload, the latency update, the
// re-arm and the cycle count, in that order. The count is published last.
func (h *Handler) Fire() {
	// A firing past the threshold lands before the runner masks the line for
	// the next iteration. It must not touch the reported worst.
	if h.state.Cycles() >= h.threshold {
		return
	}

	exec0 := h.clock.Now(hal.ExecutionClock)
	hw1 := h.clock.Now(hal.HardwareClock)

	// The workload is bounded by execution time, so preemption by other
	// partitions stretches hw2 but not the amount of work done.
	target := h.state.Target()
	for h.clock.Now(hal.ExecutionClock)-exec0 < target {
	}

	hw2 := h.clock.Now(hal.HardwareClock)
	latency := hw2 - hw1
	h.state.Observe(latency)

	if !(h.final.Load() && h.state.Cycles()+1 >= h.threshold) {
		h.timer.Arm(hal.HardwareClock, hw2+h.period)
	}
	if h.reenable {
		h.irq.SetMask(hal.TimerIRQ, false)
	}

	if h.obs != nil {
		h.obs.Fired(Sample{
			Iteration: int(h.iteration.Load()),
			Cycle:     h.state.Cycles() + 1,
			Target:    target,
			HW1:       hw1,
			HW2:       hw2,
			Latency:   latency,
		})
	}
	h.state.completeCycle()
}
