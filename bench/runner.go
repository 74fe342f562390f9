package bench

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"wcet/hal"
)

// DefaultTargets are the workload durations, in execution-clock ticks, measured
// in order.
var DefaultTargets = []uint64{1000, 10000, 50000, 100000, 500000, 1000000}

const (
	// DefaultThreshold is the number of firings per target.
	DefaultThreshold uint32 = 100
	// DefaultPeriod is the gap, in hardware-clock ticks, between the end of one
	// workload and the next firing.
	DefaultPeriod uint64 = 79000
)

// Platform is the subset of hal.HAL the measurement needs.
type Platform interface {
	Arch() hal.Arch
	Logger() hal.Logger
	Clock() hal.Clock
	Timer() hal.Timer
	IRQ() hal.IRQ
	Partition() hal.Partition
}

// Config parameterizes a Runner.
type Config struct {
	Targets   []uint64
	Threshold uint32
	Period    uint64
	// Spin is called on every poll of the cycle counter. It defaults to
	// runtime.Gosched.
	Spin func()
}

// DefaultConfig returns the standard measurement plan.
func DefaultConfig() Config {
	return Config{
		Targets:   append([]uint64(nil), DefaultTargets...),
		Threshold: DefaultThreshold,
		Period:    DefaultPeriod,
	}
}

// Phase is the Runner state.
type Phase uint32

const (
	// PhaseIdle is the state before the first iteration.
	PhaseIdle Phase = iota
	// PhaseArming masks the line, resets the state and arms the first firing.
	PhaseArming
	// PhaseSpinning waits for the iteration's firings.
	PhaseSpinning
	// PhaseReporting emits the iteration's result. The next iteration returns
	// to PhaseArming.
	PhaseReporting
	// PhaseHalted follows the last result.
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArming:
		return "arming"
	case PhaseSpinning:
		return "spinning"
	case PhaseReporting:
		return "reporting"
	case PhaseHalted:
		return "halted"
	default:
		return fmt.Sprintf("phase(%d)", uint32(p))
	}
}

// Result is the worst latency measured for one target.
type Result struct {
	Target uint64
	Worst  uint64
}

// String formats r as the machine-parsable "<target>,<worst>" line.
func (r Result) String() string {
	return fmt.Sprintf("%d,%d", r.Target, r.Worst)
}

// Runner drives the measurement loop.
type Runner struct {
	p       Platform
	cfg     Config
	state   *State
	handler *Handler
	out     *Printer
	phase   atomic.Uint32

	mu      sync.Mutex
	results []Result
}

// New returns a Runner for p. The returned Runner owns a fresh State.
func New(p Platform, cfg Config) *Runner {
	if cfg.Spin == nil {
		cfg.Spin = runtime.Gosched
	}
	state := NewState()
	return &Runner{
		p:       p,
		cfg:     cfg,
		state:   state,
		handler: NewHandler(state, p, cfg.Period, cfg.Threshold),
		out:     NewPrinter(p.Logger(), p.Partition().ID()),
	}
}

// State returns the shared measurement state.
func (r *Runner) State() *State { return r.state }

// Handler returns the interrupt routine installed by Install.
func (r *Runner) Handler() *Handler { return r.handler }

// Phase returns the current phase.
func (r *Runner) Phase() Phase { return Phase(r.phase.Load()) }

// Results returns the results reported so far.
func (r *Runner) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func (r *Runner) setPhase(p Phase) { r.phase.Store(uint32(p)) }

// Install registers the handler, enables interrupts where the architecture
// requires it, and unmasks the timer line.
func (r *Runner) Install() {
	irq := r.p.IRQ()
	irq.Install(r.handler.Fire)
	if r.p.Arch().NeedsGlobalEnable() {
		irq.EnableInterrupts()
	}
	irq.SetMask(hal.TimerIRQ, false)
}

// Run measures every configured target in order, then halts the partition.
func (r *Runner) Run() []Result {
	r.out.Progress("Starting example 001...")
	r.Install()

	for i, target := range r.cfg.Targets {
		r.Iterate(i, target)
	}

	r.out.Progress("Halting")
	r.setPhase(PhaseHalted)
	results := r.Results()
	r.p.Partition().Halt()
	return results
}

// Iterate measures one target and reports its result. i selects whether this
// is the final iteration, after which the handler stops re-arming.
func (r *Runner) Iterate(i int, target uint64) Result {
	irq := r.p.IRQ()

	r.setPhase(PhaseArming)
	irq.SetMask(hal.TimerIRQ, true)
	r.state.Reset(target)
	r.handler.begin(i, i == len(r.cfg.Targets)-1)
	now := r.p.Clock().Now(hal.HardwareClock)
	r.p.Timer().Arm(hal.HardwareClock, now+r.cfg.Period)
	irq.SetMask(hal.TimerIRQ, false)

	r.setPhase(PhaseSpinning)
	r.WaitCycles(r.cfg.Threshold)

	r.setPhase(PhaseReporting)
	res := Result{Target: target, Worst: r.state.Worst()}
	r.out.Result(res)

	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	return res
}

// WaitCycles spins until n firings completed in the current iteration. There
// is no timeout: if a firing is lost it never returns.
func (r *Runner) WaitCycles(n uint32) {
	for r.state.Cycles() < n {
		r.cfg.Spin()
	}
}
