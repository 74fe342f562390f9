//go:build !tinygo

package hal

import (
	"fmt"

	"github.com/tarm/serial"
)

const defaultSerialBaud = 115200

func openSerial(cfg SerialConfig) (*serial.Port, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = defaultSerialBaud
	}
	p, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", cfg.Port, err)
	}
	return p, nil
}
