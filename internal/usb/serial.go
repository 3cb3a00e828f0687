package usb

import (
	"fmt"
	"time"

	"github.com/goburrow/serial"
)

// SerialConfig selects the serial line a USB bridge forwards SETUP packets
// on, eg. /dev/ttyGS0 on a Linux gadget or /dev/ttyUSB0 behind a bridge MCU.
type SerialConfig struct {
	Address     string
	BaudRate    int
	PollTimeout time.Duration
}

// OpenSerial opens the line in 8N1 mode with the poll timeout as read
// timeout.
func OpenSerial(cfg SerialConfig) (*Stream, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.PollTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Address, err)
	}

	return NewStream(port, cfg.PollTimeout), nil
}
