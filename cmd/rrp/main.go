//go:build !tinygo

// Command rrp generates an XtratuM cyclic plan from a YAML partition list.
// With one processor it rounds partitions with Magic7; with more it
// allocates them with MulZ and writes one Processor per CPU.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"wcet/internal/config"
	"wcet/plan"
)

func main() {
	in := flag.String("in", "partitions.yaml", "YAML partition list.")
	out := flag.String("out", "", "Write the ProcessorTable XML here (default stdout).")
	cpus := flag.Int("cpus", 0, "Number of processors (overrides the plan file).")
	flag.Parse()

	if err := run(options{in: *in, out: *out, cpus: *cpus}, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	in, out string
	cpus    int
}

func run(o options, stdout io.Writer) error {
	f, err := config.LoadPlanFile(o.in)
	if err != nil {
		return err
	}
	if o.cpus > 0 {
		f.CPUs = o.cpus
	}

	var plans []plan.Plan
	if f.CPUs > 1 {
		fmt.Fprintln(stdout, "Executing MulZ.")
		plans, err = plan.BuildMulti(f.Partitions, f.CPUs, f.SliceMs)
	} else {
		fmt.Fprintln(stdout, "Executing Magic7.")
		var p plan.Plan
		p, err = plan.Build(f.Partitions, f.SliceMs)
		plans = []plan.Plan{p}
	}
	if err != nil {
		return err
	}

	for cpu, p := range plans {
		if len(plans) > 1 {
			fmt.Fprintf(stdout, "Launch table for CPU %d :\n", cpu)
		}
		for _, r := range p.Parts {
			fmt.Fprintf(stdout, "partition %d: %d/%d (aaf %.4f)\n", r.ID, r.WCET, r.Period, r.AAF)
		}
		for i, id := range p.Table {
			fmt.Fprintf(stdout, "Time slice %d : %d\n", i, id)
		}
	}

	w := stdout
	if o.out != "" {
		file, err := os.Create(o.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return plan.EncodeProcessorsXML(w, plans, f.FrequencyMHz)
}
