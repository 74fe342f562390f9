//go:build tinygo && baremetal && rp2040

package hal

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

type tinyGoHAL struct {
	logger *uartLogger
	timer  *rpTimer
	part   *tinyGoPartition
}

// New returns a Pico (RP2040) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// Timer: TIMER alarm 1 (alarm 0 belongs to the TinyGo runtime), 1 tick = 1 µs.
// There is no hypervisor, so the execution clock is the hardware clock.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	t := newRPTimer()
	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		timer:  t,
		part: &tinyGoPartition{
			halted: make(chan struct{}),
			stop:   func() { t.SetMask(TimerIRQ, true) },
		},
	}
}

func (h *tinyGoHAL) Arch() Arch           { return ArchARM }
func (h *tinyGoHAL) Logger() Logger       { return h.logger }
func (h *tinyGoHAL) Clock() Clock         { return h.timer }
func (h *tinyGoHAL) Timer() Timer         { return h.timer }
func (h *tinyGoHAL) IRQ() IRQ             { return h.timer }
func (h *tinyGoHAL) Partition() Partition { return h.part }
func (h *tinyGoHAL) Display() Display     { return nil }

// timerHandler is read from interrupt context.
var timerHandler Handler

type rpTimer struct {
	intr interrupt.Interrupt
}

func newRPTimer() *rpTimer {
	return &rpTimer{intr: interrupt.New(rp.IRQ_TIMER_IRQ_1, handleAlarm1)}
}

func handleAlarm1(interrupt.Interrupt) {
	rp.TIMER.INTR.Set(rp.TIMER_INTR_ALARM_1)
	if h := timerHandler; h != nil {
		h()
	}
}

func (t *rpTimer) Now(kind ClockKind) uint64 {
	for {
		hi := rp.TIMER.TIMERAWH.Get()
		lo := rp.TIMER.TIMERAWL.Get()
		if rp.TIMER.TIMERAWH.Get() == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}

// Arm compares against the low 32 bits of the counter, which covers any
// deadline within ~71 minutes.
func (t *rpTimer) Arm(kind ClockKind, deadline uint64) {
	rp.TIMER.INTE.SetBits(rp.TIMER_INTE_ALARM_1)
	rp.TIMER.ALARM1.Set(uint32(deadline))
}

func (t *rpTimer) Install(h Handler) {
	timerHandler = h
}

func (t *rpTimer) SetMask(src IRQSource, masked bool) {
	if src != TimerIRQ {
		return
	}
	if masked {
		t.intr.Disable()
		return
	}
	t.intr.Enable()
}

func (t *rpTimer) EnableInterrupts() {
	interrupt.Restore(0)
}
