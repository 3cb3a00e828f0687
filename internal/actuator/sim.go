package actuator

import (
	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/device"
)

// Sim keeps the last written outputs in memory and logs every change.
type Sim struct {
	log zerolog.Logger

	Backlight bool
	Fan       device.PWM
	Light     device.PWM
}

func NewSim(log zerolog.Logger) *Sim {
	return &Sim{log: log}
}

func (s *Sim) SetBacklight(on bool) error {
	s.Backlight = on
	s.log.Info().Bool("on", on).Msg("backlight")
	return nil
}

func (s *Sim) SetPWM(ch device.Channel, pwm device.PWM) error {
	switch ch {
	case device.ChannelFan:
		s.Fan = pwm
	case device.ChannelLight:
		s.Light = pwm
	}
	s.log.Info().
		Stringer("channel", ch).
		Bool("enabled", pwm.Enabled).
		Uint8("duty", pwm.Duty).
		Msg("pwm")
	return nil
}
