package hal

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Window is a [Start, Start+Duration) interval of the major frame during which
// the partition runs.
type Window struct {
	Start    uint64
	Duration uint64
}

// schedule is a cyclic partition plan. A zero major frame means the partition
// is always running.
type schedule struct {
	major   uint64
	windows []Window
}

func newSchedule(major uint64, windows []Window) (schedule, error) {
	if len(windows) == 0 {
		return schedule{}, nil
	}
	if major == 0 {
		return schedule{}, errors.New("schedule: windows without a major frame")
	}
	ws := append([]Window(nil), windows...)
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
	var prevEnd uint64
	for i, w := range ws {
		if w.Duration == 0 {
			return schedule{}, fmt.Errorf("schedule: window %d has zero duration", i)
		}
		if w.Start+w.Duration > major {
			return schedule{}, fmt.Errorf("schedule: window %d ends at %d past major frame %d", i, w.Start+w.Duration, major)
		}
		if i > 0 && w.Start < prevEnd {
			return schedule{}, fmt.Errorf("schedule: window %d overlaps its predecessor", i)
		}
		prevEnd = w.Start + w.Duration
	}
	return schedule{major: major, windows: ws}, nil
}

// running reports whether the partition runs at t and, if so, the absolute end
// of the current window.
func (s schedule) running(t uint64) (bool, uint64) {
	if s.major == 0 {
		return true, math.MaxUint64
	}
	off := t % s.major
	base := t - off
	for _, w := range s.windows {
		if off >= w.Start && off < w.Start+w.Duration {
			return true, base + w.Start + w.Duration
		}
	}
	return false, 0
}

// next returns the earliest time >= t at which the partition runs.
func (s schedule) next(t uint64) uint64 {
	if s.major == 0 {
		return t
	}
	off := t % s.major
	base := t - off
	for _, w := range s.windows {
		if off < w.Start+w.Duration {
			if off >= w.Start {
				return t
			}
			return base + w.Start
		}
	}
	return base + s.major + s.windows[0].Start
}

// advance returns the hardware time reached after the partition executes for
// d ticks starting at t.
func (s schedule) advance(t, d uint64) uint64 {
	t = s.next(t)
	for d > 0 {
		_, end := s.running(t)
		left := end - t
		if d < left {
			return t + d
		}
		d -= left
		t = s.next(end)
	}
	return t
}

// busy returns how many ticks of [from, to) fall inside windows.
func (s schedule) busy(from, to uint64) uint64 {
	if to <= from {
		return 0
	}
	if s.major == 0 {
		return to - from
	}
	var n uint64
	t := s.next(from)
	for t < to {
		_, end := s.running(t)
		if end > to {
			end = to
		}
		n += end - t
		t = s.next(end)
	}
	return n
}
