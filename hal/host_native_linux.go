//go:build !tinygo && linux

package hal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// threadCPUMicros reads the CPU time consumed by the calling OS thread.
func threadCPUMicros() (uint64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_THREAD_CPUTIME_ID, &ts); err != nil {
		return 0, fmt.Errorf("clock_gettime(CLOCK_THREAD_CPUTIME_ID): %w", err)
	}
	return uint64(ts.Nano()) / 1000, nil
}
