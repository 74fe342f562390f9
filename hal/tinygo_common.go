//go:build tinygo && baremetal

package hal

import (
	"machine"
	"sync"
)

// uartLogger is the measurement sink on bare metal. Result lines are parsed
// off the serial port, so each ends in CRLF like the hypervisor console.
type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.crlf()
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	_, _ = l.uart.Write(b)
	l.crlf()
}

func (l *uartLogger) crlf() {
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type tinyGoPartition struct {
	once   sync.Once
	halted chan struct{}
	stop   func()
}

func (p *tinyGoPartition) ID() int { return 0 }

// Halt masks the timer and parks the CPU. It never returns.
func (p *tinyGoPartition) Halt() {
	p.once.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		close(p.halted)
	})
	select {}
}

func (p *tinyGoPartition) Halted() <-chan struct{} { return p.halted }
