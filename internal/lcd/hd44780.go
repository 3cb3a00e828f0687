// Package lcd implements device.Display for two 16x2 character LCDs.
package lcd

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/hd44780"
	"periph.io/x/host/v3"

	"github.com/oblq/usbpanel/internal/device"
)

// DataPins is the bus width: periph drives the controllers in 4-bit mode only.
const DataPins = 4

// Controller is the subset of *hd44780.Dev the panel uses.
type Controller interface {
	Reset() error
	Halt() error
	SetCursor(line uint8, column uint8) error
	WriteChar(data uint8) error
}

var _ Controller = (*hd44780.Dev)(nil)

// HD44780 drives display A and display B. The two controllers usually share
// the data and RS lines and differ only in their enable strobe.
type HD44780 struct {
	ctrl [2]Controller
}

func NewHD44780(a, b Controller) *HD44780 {
	return &HD44780{ctrl: [2]Controller{a, b}}
}

// OpenHD44780 initializes the host drivers and opens both controllers in
// 4-bit mode on the named pins.
func OpenHD44780(data []string, rs, enableA, enableB string) (*HD44780, error) {
	if len(data) != DataPins {
		return nil, fmt.Errorf("hd44780 needs %d data pins, got %d", DataPins, len(data))
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init(): %w", err)
	}

	dataPins := make([]gpio.PinOut, len(data))
	for i, name := range data {
		p, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		dataPins[i] = p
	}
	rsPin, err := pinByName(rs)
	if err != nil {
		return nil, err
	}

	var devs [2]Controller
	for i, name := range []string{enableA, enableB} {
		e, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		dev, err := hd44780.New(dataPins, rsPin, e)
		if err != nil {
			return nil, fmt.Errorf("hd44780.New(%s): %w", device.DisplayID(i), err)
		}
		devs[i] = dev
	}

	return NewHD44780(devs[0], devs[1]), nil
}

func pinByName(name string) (gpio.PinOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such pin %q", name)
	}
	return p, nil
}

func (h *HD44780) controller(id device.DisplayID) (Controller, error) {
	if int(id) >= len(h.ctrl) || h.ctrl[id] == nil {
		return nil, fmt.Errorf("no such display %s", id)
	}
	return h.ctrl[id], nil
}

// Reset re-runs the controller init sequence and clears the screen.
func (h *HD44780) Reset(id device.DisplayID) error {
	c, err := h.controller(id)
	if err != nil {
		return err
	}
	if err := c.Reset(); err != nil {
		return fmt.Errorf("display %s reset: %w", id, err)
	}
	return h.Clear(id)
}

func (h *HD44780) Clear(id device.DisplayID) error {
	c, err := h.controller(id)
	if err != nil {
		return err
	}
	if err := c.Halt(); err != nil {
		return fmt.Errorf("display %s clear: %w", id, err)
	}
	return nil
}

// WriteLine writes all 16 bytes verbatim, NULs included, from column 0.
func (h *HD44780) WriteLine(t device.Target, line [device.LineSize]byte) error {
	c, err := h.controller(t.Display)
	if err != nil {
		return err
	}
	if err := c.SetCursor(t.Line, 0); err != nil {
		return fmt.Errorf("display %s cursor: %w", t, err)
	}
	for _, ch := range line {
		if err := c.WriteChar(ch); err != nil {
			return fmt.Errorf("display %s write: %w", t, err)
		}
	}
	return nil
}
