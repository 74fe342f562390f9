package bench

import (
	"fmt"

	"wcet/hal"
)

// Printer writes progress and result lines to a line sink.
type Printer struct {
	log    hal.Logger
	prefix string
}

// NewPrinter prefixes progress lines with the partition id.
func NewPrinter(log hal.Logger, partitionID int) *Printer {
	return &Printer{log: log, prefix: fmt.Sprintf("[P%d] ", partitionID)}
}

// Progress writes a human-readable line.
func (p *Printer) Progress(format string, args ...any) {
	if p.log == nil {
		return
	}
	p.log.WriteLineString(p.prefix + fmt.Sprintf(format, args...))
}

// Result writes r unprefixed.
func (p *Printer) Result(r Result) {
	if p.log == nil {
		return
	}
	p.log.WriteLineString(r.String())
}
