// Package actuator implements device.Actuator for real pins, shell commands
// and a simulator.
package actuator

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/oblq/usbpanel/internal/device"
)

// DefaultFrequency is an 8-bit fast PWM with a /1024 prescaler on a 12MHz
// clock.
const DefaultFrequency = 46 * physic.Hertz

// Pins are the three outputs the panel drives.
type Pins struct {
	Backlight gpio.PinOut
	Fan       gpio.PinOut
	Light     gpio.PinOut
}

// GPIO drives the backlight as a digital output and the fan and light as
// hardware PWM.
type GPIO struct {
	pins Pins
	freq physic.Frequency
}

func NewGPIO(pins Pins, freq physic.Frequency) (*GPIO, error) {
	if pins.Backlight == nil || pins.Fan == nil || pins.Light == nil {
		return nil, errors.New("backlight, fan and light pins are all required")
	}
	if freq <= 0 {
		freq = DefaultFrequency
	}
	return &GPIO{pins: pins, freq: freq}, nil
}

// OpenGPIO initializes the host drivers and looks the pins up by name.
func OpenGPIO(backlight, fan, light string, freq physic.Frequency) (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init(): %w", err)
	}

	var pins Pins
	for _, p := range []struct {
		name string
		dst  *gpio.PinOut
	}{
		{backlight, &pins.Backlight},
		{fan, &pins.Fan},
		{light, &pins.Light},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, fmt.Errorf("no such pin %q", p.name)
		}
		*p.dst = pin
	}

	return NewGPIO(pins, freq)
}

func (g *GPIO) SetBacklight(on bool) error {
	return g.pins.Backlight.Out(gpio.Level(on))
}

func (g *GPIO) SetPWM(ch device.Channel, pwm device.PWM) error {
	var pin gpio.PinOut
	switch ch {
	case device.ChannelFan:
		pin = g.pins.Fan
	case device.ChannelLight:
		pin = g.pins.Light
	default:
		return fmt.Errorf("no such channel %s", ch)
	}

	// an enabled channel at duty 0 is electrically the same as off
	if !pwm.Enabled || pwm.Duty == 0 {
		return pin.Out(gpio.Low)
	}
	return pin.PWM(Duty(pwm.Duty), g.freq)
}

// Halt drives every output low.
func (g *GPIO) Halt() error {
	return errors.Join(
		g.pins.Backlight.Out(gpio.Low),
		g.pins.Fan.Out(gpio.Low),
		g.pins.Light.Out(gpio.Low),
	)
}

// Duty scales an 8-bit protocol duty to periph's duty range.
func Duty(v uint8) gpio.Duty {
	return gpio.Duty(uint64(v) * uint64(gpio.DutyMax) / 0xFF)
}
