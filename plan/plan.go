package plan

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"wcet/hal"
)

// Slot is a contiguous run of slices owned by one partition. Start and
// Duration are in time units, not slices.
type Slot struct {
	ID          int
	PartitionID int
	Start       uint64
	Duration    uint64
}

// Plan is a cyclic schedule.
type Plan struct {
	MajorFrame uint64
	Slots      []Slot
	Table      []int
	Parts      []Regular
}

// Build rounds parts with Magic7, allocates the launch table and lays it out
// with slices of the given length.
func Build(parts []Partition, slice uint64) (Plan, error) {
	if slice == 0 {
		return Plan{}, fmt.Errorf("plan: zero slice length")
	}
	regs := make([]Regular, 0, len(parts))
	for _, p := range parts {
		if p.Period <= 0 || p.WCET < 0 {
			return Plan{}, fmt.Errorf("plan: partition %d: wcet %v period %v", p.ID, p.WCET, p.Period)
		}
		regs = append(regs, Magic7(p))
	}
	table, err := LaunchTable(regs)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	return Plan{
		MajorFrame: uint64(len(table)) * slice,
		Slots:      Slots(table, slice),
		Table:      table,
		Parts:      regs,
	}, nil
}

// Slots merges runs of equal owners. Idle runs produce no slot but still
// advance the start time.
func Slots(table []int, slice uint64) []Slot {
	if len(table) == 0 {
		return nil
	}
	var out []Slot
	emit := func(owner int, start, dur uint64) {
		if owner == Idle {
			return
		}
		out = append(out, Slot{ID: len(out), PartitionID: owner, Start: start, Duration: dur})
	}

	last := table[0]
	var start, dur uint64
	for _, owner := range table {
		if owner == last {
			dur += slice
			continue
		}
		emit(last, start, dur)
		start += dur
		dur = slice
		last = owner
	}
	emit(last, start, dur)
	return out
}

// WindowsFor returns the windows of partition id within the major frame.
func (p Plan) WindowsFor(id int) []hal.Window {
	var ws []hal.Window
	for _, s := range p.Slots {
		if s.PartitionID == id {
			ws = append(ws, hal.Window{Start: s.Start, Duration: s.Duration})
		}
	}
	return ws
}

type xmlProcessorTable struct {
	XMLName    xml.Name       `xml:"ProcessorTable"`
	Processors []xmlProcessor `xml:"Processor"`
}

type xmlProcessor struct {
	ID        int           `xml:"id,attr"`
	Frequency string        `xml:"frequency,attr"`
	PlanTable xmlCyclicPlan `xml:"CyclicPlanTable"`
}

type xmlCyclicPlan struct {
	Plan xmlPlan `xml:"Plan"`
}

type xmlPlan struct {
	ID         int       `xml:"id,attr"`
	MajorFrame string    `xml:"majorFrame,attr"`
	Slots      []xmlSlot `xml:"Slot"`
}

type xmlSlot struct {
	ID          int    `xml:"id,attr"`
	Start       string `xml:"start,attr"`
	Duration    string `xml:"duration,attr"`
	PartitionID int    `xml:"partitionId,attr"`
}

func ms(v uint64) string { return strconv.FormatUint(v, 10) + "ms" }

// EncodeXML writes p as an XtratuM ProcessorTable for processor 0. Plan times
// are taken as milliseconds.
func EncodeXML(w io.Writer, p Plan, freqMHz int) error {
	return EncodeProcessorsXML(w, []Plan{p}, freqMHz)
}

// EncodeProcessorsXML writes one Processor per plan, numbered in order.
func EncodeProcessorsXML(w io.Writer, plans []Plan, freqMHz int) error {
	var doc xmlProcessorTable
	for id, p := range plans {
		xp := xmlProcessor{
			ID:        id,
			Frequency: strconv.Itoa(freqMHz) + "Mhz",
			PlanTable: xmlCyclicPlan{Plan: xmlPlan{ID: 0, MajorFrame: ms(p.MajorFrame)}},
		}
		for _, s := range p.Slots {
			xp.PlanTable.Plan.Slots = append(xp.PlanTable.Plan.Slots, xmlSlot{
				ID:          s.ID,
				Start:       ms(s.Start),
				Duration:    ms(s.Duration),
				PartitionID: s.PartitionID,
			})
		}
		doc.Processors = append(doc.Processors, xp)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("plan: encode: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return nil
}
