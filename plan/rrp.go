// Package plan builds cyclic schedules with Regular Resource
// Partitioning: each partition's availability factor is rounded up to a
// regular value by Magic7, and its time slices are then placed so that they
// repeat at a fixed distance.
package plan

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Idle marks a time slice no partition owns.
const Idle = -1

var (
	ErrUnschedulable = errors.New("partitions are unschedulable")
	ErrNoPartitions  = errors.New("no partitions")
)

// Partition is a resource requirement: WCET units of execution every Period
// units.
type Partition struct {
	ID     int     `yaml:"id"`
	WCET   float64 `yaml:"wcet"`
	Period float64 `yaml:"period"`
}

// AvailabilityFactor returns WCET/Period.
func (p Partition) AvailabilityFactor() float64 {
	return p.WCET / p.Period
}

// Regular is a partition after Magic7: WCET slices every Period slices.
type Regular struct {
	ID     int
	WCET   int
	Period int
	AAF    float64
}

// approximate snaps values within float noise of an integer or half.
func approximate(v float64) float64 {
	r := math.Floor(v)
	d := v - r
	switch {
	case d > 0.99999:
		return r + 1
	case d > 0.49999 && d < 0.5:
		return r + 0.5
	case d > 0 && d < 0.00001:
		return r
	}
	return v
}

// maxDoublings bounds the 7*2^n grid so a period never exceeds
// maxHyperperiod slices.
const (
	maxHyperperiod = 1 << 16
	maxDoublings   = 13
)

// Magic7 rounds p's availability factor up to the nearest value on the base-7
// regular grid. Factors below the finest grid step get 1/(7*2^13); factors
// closer to 1 than that step get a full processor.
func Magic7(p Partition) Regular {
	af := p.AvailabilityFactor()
	switch {
	case af == 0:
		return Regular{ID: p.ID, WCET: 0, Period: 1, AAF: 0}
	case af > 0 && af < 1.0/7:
		n := math.Floor(approximate(math.Log(7*af) / math.Log(0.5)))
		if n > maxDoublings {
			n = maxDoublings
		}
		period := 7 << int(n)
		return Regular{ID: p.ID, WCET: 1, Period: period, AAF: 1 / float64(period)}
	case af >= 1.0/7 && af <= 6.0/7:
		w := int(math.Ceil(approximate(7 * af)))
		return Regular{ID: p.ID, WCET: w, Period: 7, AAF: float64(w) / 7}
	case af > 6.0/7 && af < 1:
		n := math.Ceil(approximate(math.Log(7*(1-af)) / math.Log(0.5)))
		if !(n <= maxDoublings) {
			break
		}
		period := 7 << int(n)
		return Regular{ID: p.ID, WCET: period - 1, Period: period, AAF: 1 - 1/float64(period)}
	}
	return Regular{ID: p.ID, WCET: 1, Period: 1, AAF: 1}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Hyperperiod returns the least common multiple of the periods, or 0 for an
// empty list.
func Hyperperiod(parts []Regular) int {
	h := 0
	for _, p := range parts {
		if h == 0 {
			h = p.Period
			continue
		}
		h = h / gcd(h, p.Period) * p.Period
	}
	return h
}

// slots is the set of free time slice indices of a hyperperiod.
type slots struct {
	free []bool
	n    int
}

func newSlots(h int) *slots {
	s := &slots{free: make([]bool, h), n: h}
	for i := range s.free {
		s.free[i] = true
	}
	return s
}

func (s *slots) has(i int) bool { return i >= 0 && i < len(s.free) && s.free[i] }

func (s *slots) take(i int) {
	if s.free[i] {
		s.free[i] = false
		s.n--
	}
}

func (s *slots) min() (int, bool) {
	for i, f := range s.free {
		if f {
			return i, true
		}
	}
	return 0, false
}

// pattern returns the q regularly spaced offsets within a period p.
func pattern(p, q int) []int {
	out := make([]int, 0, q)
	if q <= 0 {
		return out
	}
	for k := 0; k < q; k++ {
		out = append(out, (k*p/q)%p)
	}
	return out
}

// fits reports whether every offset of pat shifted by delta is free. Only the
// first period is inspected.
func fits(avail *slots, pat []int, delta, p int) bool {
	for _, t := range pat {
		if !avail.has((t + delta) % p) {
			return false
		}
	}
	return true
}

// findDelta returns the smallest shift that places a q-of-p pattern in avail
// while leaving room for a qLeft-of-(p-q) pattern in the remainder, or -1.
func findDelta(avail *slots, p, q, qLeft int) int {
	own := pattern(p, q)
	var rest []int
	if p > q && qLeft > 0 {
		rest = make([]int, 0, qLeft)
		for k := 0; k < qLeft; k++ {
			rest = append(rest, (k*p/(p-q))%p)
		}
	}

	for d1 := 0; d1 < p; d1++ {
		if !fits(avail, own, d1, p) {
			continue
		}
		left := &slots{free: append([]bool(nil), avail.free...), n: avail.n}
		for _, t := range own {
			left.take((t + d1) % p)
		}
		for d2 := 0; d2 < p; d2++ {
			if fits(left, rest, d2, p) {
				return d1
			}
		}
	}
	return -1
}

// LaunchTable allocates the hyperperiod of parts slice by slice. The result
// holds the owning partition ID per slice, or Idle. Partitions are placed in
// decreasing AAF order.
func LaunchTable(parts []Regular) ([]int, error) {
	if len(parts) == 0 {
		return nil, ErrNoPartitions
	}
	sorted := append([]Regular(nil), parts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AAF > sorted[j].AAF })

	h := 0
	for _, p := range sorted {
		if p.Period <= 0 || p.Period > maxHyperperiod || p.WCET < 0 || p.WCET > p.Period {
			return nil, fmt.Errorf("partition %d: %d/%d: %w", p.ID, p.WCET, p.Period, ErrUnschedulable)
		}
		if h == 0 {
			h = p.Period
			continue
		}
		h = h / gcd(h, p.Period) * p.Period
		if h > maxHyperperiod {
			return nil, fmt.Errorf("hyperperiod above %d slices: %w", maxHyperperiod, ErrUnschedulable)
		}
	}
	avail := newSlots(h)
	table := make([]int, h)
	for i := range table {
		table[i] = Idle
	}

	for _, p := range sorted {
		var occupied []int
		if p.WCET != 1 {
			qLeft := int(float64(avail.n)/float64(h)*float64(p.Period)) - p.WCET
			d1 := findDelta(avail, p.Period, p.WCET, qLeft)
			if d1 < 0 {
				return nil, fmt.Errorf("partition %d: %w", p.ID, ErrUnschedulable)
			}
			for l := 0; l < h/p.Period; l++ {
				for k := 0; k < p.WCET; k++ {
					i := (k*p.Period/p.WCET+d1)%p.Period + l*p.Period
					if !avail.has(i) {
						return nil, fmt.Errorf("partition %d: slice %d taken: %w", p.ID, i, ErrUnschedulable)
					}
					occupied = append(occupied, i)
				}
			}
		} else {
			first, ok := avail.min()
			if !ok || first >= p.Period {
				return nil, fmt.Errorf("partition %d: %w", p.ID, ErrUnschedulable)
			}
			for l := 0; l < h/p.Period; l++ {
				i := first + l*p.Period
				if !avail.has(i) {
					return nil, fmt.Errorf("partition %d: slice %d taken: %w", p.ID, i, ErrUnschedulable)
				}
				occupied = append(occupied, i)
			}
		}
		for _, i := range occupied {
			table[i] = p.ID
			avail.take(i)
		}
	}
	return table, nil
}
