package device

import "fmt"

// Channel is a PWM output.
type Channel uint8

const (
	ChannelFan Channel = iota
	ChannelLight
)

func (ch Channel) String() string {
	switch ch {
	case ChannelFan:
		return "fan"
	case ChannelLight:
		return "light"
	}
	return fmt.Sprintf("channel(%d)", uint8(ch))
}

// PWM is the output state of a channel. Enabled and Duty are independent:
// an enabled channel may run at duty 0, a disabled one drives nothing.
type PWM struct {
	Enabled bool
	Duty    uint8
}

// ActuatorState is everything the host can set on the hardware outputs.
type ActuatorState struct {
	BacklightOn bool
	Fan         PWM
	Light       PWM
}

// Actuator is the hardware collaborator behind ActuatorState.
type Actuator interface {
	SetBacklight(on bool) error
	SetPWM(ch Channel, pwm PWM) error
}

// Actuators keeps ActuatorState and writes every change through to the
// hardware. The state is updated even when the hardware write fails.
type Actuators struct {
	state ActuatorState
	hw    Actuator
}

func NewActuators(hw Actuator) *Actuators {
	return &Actuators{hw: hw}
}

// State returns a copy of the current state.
func (a *Actuators) State() ActuatorState {
	return a.state
}

func (a *Actuators) SetBacklight(on bool) error {
	a.state.BacklightOn = on
	if err := a.hw.SetBacklight(on); err != nil {
		return fmt.Errorf("backlight %t: %w", on, err)
	}
	return nil
}

// SetDuty applies a duty value with the protocol's rule that 0 turns the
// channel off rather than running it at 0%.
func (a *Actuators) SetDuty(ch Channel, duty uint8) error {
	if duty == 0 {
		return a.SetPWM(ch, PWM{})
	}
	return a.SetPWM(ch, PWM{Enabled: true, Duty: duty})
}

// SetPWM sets both fields of a channel explicitly.
func (a *Actuators) SetPWM(ch Channel, pwm PWM) error {
	switch ch {
	case ChannelFan:
		a.state.Fan = pwm
	case ChannelLight:
		a.state.Light = pwm
	default:
		return fmt.Errorf("no such channel %s", ch)
	}
	if err := a.hw.SetPWM(ch, pwm); err != nil {
		return fmt.Errorf("%s pwm %+v: %w", ch, pwm, err)
	}
	return nil
}
