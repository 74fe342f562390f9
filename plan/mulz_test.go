package plan

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestZApprox(t *testing.T) {
	tests := []struct {
		af   float64
		base int
		want Regular
	}{
		{0.5, 4, Regular{WCET: 2, Period: 4, AAF: 0.5}},
		{0.5, 3, Regular{WCET: 2, Period: 3, AAF: 2.0 / 3}},
		{0.2, 7, Regular{WCET: 2, Period: 7, AAF: 2.0 / 7}},
		{0.2, 5, Regular{WCET: 1, Period: 5, AAF: 0.2}},
		{0.1, 3, Regular{WCET: 1, Period: 6, AAF: 1.0 / 6}},
		{0.9, 5, Regular{WCET: 1, Period: 1, AAF: 1}},
		{0, 7, Regular{WCET: 0, Period: 1, AAF: 0}},
	}
	for _, tc := range tests {
		if got := ZApprox(0, tc.af, tc.base); got != tc.want {
			t.Fatalf("ZApprox(%v, %d) = %+v, want %+v", tc.af, tc.base, got, tc.want)
		}
	}
	if got := ZApprox(0, 1e-30, 3); got.Period != 3<<maxDoublings {
		t.Fatalf("ZApprox(tiny) period=%d, want %d", got.Period, 3<<maxDoublings)
	}
}

func TestMulZ_Allocation(t *testing.T) {
	parts := []Partition{
		{ID: 1, WCET: 1, Period: 2},
		{ID: 2, WCET: 1, Period: 2},
		{ID: 3, WCET: 1, Period: 5},
	}
	got, err := MulZ(parts, 2)
	if err != nil {
		t.Fatalf("MulZ: %v", err)
	}
	want := [][]Regular{
		{{ID: 1, WCET: 2, Period: 4, AAF: 0.5}, {ID: 2, WCET: 2, Period: 4, AAF: 0.5}},
		{{ID: 3, WCET: 1, Period: 5, AAF: 0.2}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MulZ() = %+v, want %+v", got, want)
	}
}

func TestMulZ_Unschedulable(t *testing.T) {
	parts := []Partition{
		{ID: 1, WCET: 9, Period: 10},
		{ID: 2, WCET: 9, Period: 10},
		{ID: 3, WCET: 9, Period: 10},
	}
	if _, err := MulZ(parts, 2); !errors.Is(err, ErrUnschedulable) {
		t.Fatalf("MulZ err=%v, want %v", err, ErrUnschedulable)
	}
	if _, err := MulZ(parts, 0); !errors.Is(err, ErrUnschedulable) {
		t.Fatalf("MulZ(0 cpus) err=%v, want %v", err, ErrUnschedulable)
	}
	if _, err := MulZ(nil, 2); !errors.Is(err, ErrNoPartitions) {
		t.Fatalf("MulZ(nil) err=%v, want %v", err, ErrNoPartitions)
	}
}

func TestBuildMulti(t *testing.T) {
	parts := []Partition{
		{ID: 1, WCET: 1, Period: 2},
		{ID: 2, WCET: 1, Period: 2},
		{ID: 3, WCET: 1, Period: 5},
	}
	plans, err := BuildMulti(parts, 3, 100)
	if err != nil {
		t.Fatalf("BuildMulti: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("BuildMulti() returned %d plans, want 3", len(plans))
	}
	if want := []int{1, 2, 1, 2}; !reflect.DeepEqual(plans[0].Table, want) {
		t.Fatalf("cpu0 table = %v, want %v", plans[0].Table, want)
	}
	if want := []int{3, Idle, Idle, Idle, Idle}; !reflect.DeepEqual(plans[1].Table, want) {
		t.Fatalf("cpu1 table = %v, want %v", plans[1].Table, want)
	}
	if plans[2].MajorFrame != 0 || plans[2].Slots != nil {
		t.Fatalf("cpu2 plan = %+v, want empty", plans[2])
	}

	var buf bytes.Buffer
	if err := EncodeProcessorsXML(&buf, plans, 400); err != nil {
		t.Fatalf("EncodeProcessorsXML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<Processor id="0" frequency="400Mhz">`,
		`<Plan id="0" majorFrame="400ms">`,
		`<Slot id="3" start="300ms" duration="100ms" partitionId="2">`,
		`<Processor id="1" frequency="400Mhz">`,
		`<Plan id="0" majorFrame="500ms">`,
		`<Slot id="0" start="0ms" duration="100ms" partitionId="3">`,
		`<Processor id="2" frequency="400Mhz">`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("EncodeProcessorsXML output missing %q:\n%s", want, out)
		}
	}
}
