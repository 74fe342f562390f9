package bench

import (
	"reflect"
	"testing"

	"wcet/hal"
)

func TestRun_ReportsTargetLatencyOnIdleClock(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	r, _ := newFakeRunner(f, []uint64{1000, 10000}, 5)

	got := r.Run()

	want := []Result{{Target: 1000, Worst: 1000}, {Target: 10000, Worst: 10000}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Run() = %v, want %v", got, want)
	}
	wantLines := []string{"[P0] Starting example 001...", "1000,1000", "10000,10000", "[P0] Halting"}
	if !reflect.DeepEqual(f.lines, wantLines) {
		t.Fatalf("lines=%q, want %q", f.lines, wantLines)
	}
	if !f.halted {
		t.Fatalf("partition not halted")
	}
	if r.Phase() != PhaseHalted {
		t.Fatalf("Phase()=%v, want %v", r.Phase(), PhaseHalted)
	}
}

func TestRun_WorstIsMaxOfIteration(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	f.preempt[1] = 40
	f.preempt[3] = 700
	f.preempt[4] = 12
	r, log := newFakeRunner(f, []uint64{100}, 5)

	got := r.Run()

	if got[0].Worst != 800 {
		t.Fatalf("Worst=%d, want 800", got[0].Worst)
	}
	var max uint64
	for _, s := range log.samples {
		if s.Latency > max {
			max = s.Latency
		}
	}
	if max != got[0].Worst {
		t.Fatalf("max sample latency=%d, worst=%d", max, got[0].Worst)
	}
}

func TestRun_IterationsAreIsolated(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	f.preempt[2] = 5000
	r, log := newFakeRunner(f, []uint64{100, 50}, 4)

	got := r.Run()

	if got[0].Worst != 5100 {
		t.Fatalf("iteration 0 Worst=%d, want 5100", got[0].Worst)
	}
	if got[1].Worst != 50 {
		t.Fatalf("iteration 1 Worst=%d, want 50", got[1].Worst)
	}

	perIter := map[int]int{}
	for _, s := range log.samples {
		perIter[s.Iteration]++
		wantTarget := []uint64{100, 50}[s.Iteration]
		if s.Target != wantTarget {
			t.Fatalf("sample %+v target=%d, want %d", s, s.Target, wantTarget)
		}
	}
	if perIter[0] != 4 || perIter[1] != 4 {
		t.Fatalf("samples per iteration=%v, want 4 each", perIter)
	}
}

func TestRun_WorkloadBoundedByExecutionTime(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	f.preempt[0] = 9000
	r, log := newFakeRunner(f, []uint64{300}, 3)

	r.Run()

	if log.samples[0].Latency != 9300 {
		t.Fatalf("preempted latency=%d, want 9300", log.samples[0].Latency)
	}
	for i, used := range f.execUsed {
		if used != f.execUsed[0] {
			t.Fatalf("firing %d used %d exec ticks, firing 0 used %d", i, used, f.execUsed[0])
		}
	}
}

func TestRun_RearmsPeriodAfterWorkload(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	targets := []uint64{20, 30, 40}
	const threshold = 3
	r, log := newFakeRunner(f, targets, threshold)

	r.Run()

	total := len(targets) * threshold
	if f.firings != total {
		t.Fatalf("firings=%d, want %d", f.firings, total)
	}
	// One arm per iteration from the runner, one per firing from the handler,
	// minus the suppressed final re-arm.
	if got, want := len(f.arms), len(targets)+total-1; got != want {
		t.Fatalf("arms=%d, want %d", got, want)
	}
	if f.armed {
		t.Fatalf("timer still armed after the final firing")
	}

	deadlines := map[uint64]bool{}
	for _, d := range f.arms {
		deadlines[d] = true
	}
	for i, s := range log.samples {
		last := i == len(log.samples)-1
		if deadlines[s.HW2+DefaultPeriod] == last {
			t.Fatalf("sample %d: re-arm at hw2+period present=%v, want %v", i, !last, !last)
		}
	}
}

func TestRun_CycleCountsAreSequential(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	r, log := newFakeRunner(f, []uint64{10}, 6)

	r.Run()

	for i, s := range log.samples {
		if s.Cycle != uint32(i+1) {
			t.Fatalf("sample %d cycle=%d, want %d", i, s.Cycle, i+1)
		}
		if s.HW2-s.HW1 != s.Latency {
			t.Fatalf("sample %d latency=%d, want hw2-hw1=%d", i, s.Latency, s.HW2-s.HW1)
		}
	}
	if r.State().Cycles() != 6 {
		t.Fatalf("Cycles()=%d, want 6", r.State().Cycles())
	}
}

func TestRun_ARMEnablesAndReenables(t *testing.T) {
	f := newFake(hal.ArchARM)
	r, _ := newFakeRunner(f, []uint64{10, 20}, 4)

	got := r.Run()

	if f.enabled != 1 {
		t.Fatalf("EnableInterrupts calls=%d, want 1", f.enabled)
	}
	if f.firings != 8 {
		t.Fatalf("firings=%d, want 8", f.firings)
	}
	if got[1].Worst != 20 {
		t.Fatalf("Worst=%d, want 20", got[1].Worst)
	}
}

func TestRun_LEON3SkipsGlobalEnable(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	r, _ := newFakeRunner(f, []uint64{10}, 2)

	r.Run()

	if f.enabled != 0 {
		t.Fatalf("EnableInterrupts calls=%d, want 0", f.enabled)
	}
}

func TestRun_NoTargetsHalts(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	r, _ := newFakeRunner(f, nil, 3)

	if got := r.Run(); len(got) != 0 {
		t.Fatalf("Run() = %v, want none", got)
	}
	if !f.halted || f.firings != 0 {
		t.Fatalf("halted=%v firings=%d", f.halted, f.firings)
	}
}

func TestResultString(t *testing.T) {
	if got := (Result{Target: 50000, Worst: 50012}).String(); got != "50000,50012" {
		t.Fatalf("String()=%q, want %q", got, "50000,50012")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	want := []uint64{1000, 10000, 50000, 100000, 500000, 1000000}
	if !reflect.DeepEqual(cfg.Targets, want) {
		t.Fatalf("Targets=%v, want %v", cfg.Targets, want)
	}
	if cfg.Threshold != 100 || cfg.Period != 79000 {
		t.Fatalf("Threshold=%d Period=%d, want 100 79000", cfg.Threshold, cfg.Period)
	}
	cfg.Targets[0] = 1
	if DefaultTargets[0] != 1000 {
		t.Fatalf("DefaultConfig shares DefaultTargets")
	}
}

func TestPhaseString(t *testing.T) {
	if got := PhaseSpinning.String(); got != "spinning" {
		t.Fatalf("String()=%q, want %q", got, "spinning")
	}
	if got := Phase(42).String(); got != "phase(42)" {
		t.Fatalf("String()=%q, want %q", got, "phase(42)")
	}
}

func TestHandler_IgnoresFiringPastThreshold(t *testing.T) {
	f := newFake(hal.ArchLEON3)
	r, log := newFakeRunner(f, []uint64{100, 50}, 3)
	r.Install()

	if got := r.Iterate(0, 100); got.Worst != 100 {
		t.Fatalf("iteration 0 Worst=%d, want 100", got.Worst)
	}

	// The last firing re-armed the timer; deliver that firing before the next
	// iteration masks the line, with a workload stretch it must not measure.
	f.preempt[f.firings] = 9000
	arms := len(f.arms)
	f.spin()

	if f.firings != 4 {
		t.Fatalf("firings=%d, want 4", f.firings)
	}
	if got := f.execUsed[3]; got != 0 {
		t.Fatalf("late firing used %d exec ticks, want 0", got)
	}
	if got := r.State().Worst(); got != 100 {
		t.Fatalf("Worst()=%d after late firing, want 100", got)
	}
	if got := r.State().Cycles(); got != 3 {
		t.Fatalf("Cycles()=%d after late firing, want 3", got)
	}
	if len(f.arms) != arms {
		t.Fatalf("late firing re-armed the timer: arms=%v", f.arms)
	}
	if len(log.samples) != 3 {
		t.Fatalf("late firing was observed: %d samples", len(log.samples))
	}

	if got := r.Iterate(1, 50); got.Worst != 50 {
		t.Fatalf("iteration 1 Worst=%d, want 50", got.Worst)
	}
	perIter := map[int]int{}
	for _, s := range log.samples {
		perIter[s.Iteration]++
	}
	if perIter[0] != 3 || perIter[1] != 3 {
		t.Fatalf("samples per iteration=%v, want 3 each", perIter)
	}
}
