//go:build !tinygo && !linux

package hal

func threadCPUMicros() (uint64, error) {
	return 0, ErrNativeUnsupported
}
