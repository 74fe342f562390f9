package plan

import (
	"fmt"
	"sort"
)

// zBases are the grid bases MulZ picks from for a processor's first
// partition.
var zBases = []int{3, 4, 5, 7}

// ZApprox rounds af up to the nearest value on the base-n grid
// {(n-1)/n, ..., 2/n, 1/n, 1/2n, 1/4n, ...}. A factor above (n-1)/n gets a
// full processor.
func ZApprox(id int, af float64, n int) Regular {
	if af <= 0 {
		return Regular{ID: id, WCET: 0, Period: 1, AAF: 0}
	}
	r := Regular{ID: id, WCET: 1, Period: 1, AAF: 1}
	for q := n - 1; q > 1; q-- {
		v := float64(q) / float64(n)
		if v < af {
			return r
		}
		r = Regular{ID: id, WCET: q, Period: n, AAF: v}
	}
	for j := 0; j <= maxDoublings; j++ {
		d := n << j
		v := 1 / float64(d)
		if v < af {
			return r
		}
		r = Regular{ID: id, WCET: 1, Period: d, AAF: v}
	}
	return r
}

// cpu is the allocation state of one processor.
type cpu struct {
	base  int
	rest  float64
	parts []Regular
}

// MulZ assigns parts to n processors first-fit in decreasing availability
// factor order. A processor takes the base that best approximates its first
// partition; later partitions are rounded on that base and fit if the
// processor has that much capacity left. The result holds the rounded
// partitions of each processor.
func MulZ(parts []Partition, n int) ([][]Regular, error) {
	if len(parts) == 0 {
		return nil, ErrNoPartitions
	}
	if n <= 0 {
		return nil, fmt.Errorf("%d processors: %w", n, ErrUnschedulable)
	}
	sorted := append([]Partition(nil), parts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AvailabilityFactor() > sorted[j].AvailabilityFactor()
	})

	cpus := make([]cpu, n)
	for _, p := range sorted {
		if !allocate(cpus, p) {
			return nil, fmt.Errorf("partition %d: no processor fits %.4f: %w", p.ID, p.AvailabilityFactor(), ErrUnschedulable)
		}
	}

	out := make([][]Regular, n)
	for i := range cpus {
		out[i] = cpus[i].parts
	}
	return out, nil
}

func allocate(cpus []cpu, p Partition) bool {
	af := p.AvailabilityFactor()
	for i := range cpus {
		c := &cpus[i]
		if c.base == 0 {
			best := Regular{AAF: 2}
			for _, b := range zBases {
				if r := ZApprox(p.ID, af, b); r.AAF < best.AAF {
					best, c.base = r, b
				}
			}
			c.rest = 1 - best.AAF
			c.parts = append(c.parts, best)
			return true
		}
		if r := ZApprox(p.ID, af, c.base); c.rest >= r.AAF {
			c.rest -= r.AAF
			c.parts = append(c.parts, r)
			return true
		}
	}
	return false
}

// BuildMulti allocates parts over n processors with MulZ and builds one plan
// per processor. A processor left without partitions gets an empty plan.
func BuildMulti(parts []Partition, n int, slice uint64) ([]Plan, error) {
	if slice == 0 {
		return nil, fmt.Errorf("plan: zero slice length")
	}
	for _, p := range parts {
		if p.Period <= 0 || p.WCET < 0 {
			return nil, fmt.Errorf("plan: partition %d: wcet %v period %v", p.ID, p.WCET, p.Period)
		}
	}
	alloc, err := MulZ(parts, n)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	plans := make([]Plan, len(alloc))
	for i, regs := range alloc {
		if len(regs) == 0 {
			continue
		}
		table, err := LaunchTable(regs)
		if err != nil {
			return nil, fmt.Errorf("plan: processor %d: %w", i, err)
		}
		plans[i] = Plan{
			MajorFrame: uint64(len(table)) * slice,
			Slots:      Slots(table, slice),
			Table:      table,
			Parts:      regs,
		}
	}
	return plans, nil
}
