package device

import (
	"errors"

	"github.com/rs/zerolog"
)

// Dispatcher applies control requests to the device state it owns.
// It is not safe for concurrent use: requests arrive one at a time from the
// poll loop and each Dispatch runs to completion before the next.
type Dispatcher struct {
	actuators *Actuators
	display   Display
	buffer    LineBuffer

	log zerolog.Logger
}

// NewDispatcher takes ownership of actuators, which the boot sequence has
// already brought to their initial state.
func NewDispatcher(actuators *Actuators, display Display, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		actuators: actuators,
		display:   display,
		log:       log,
	}
}

// Dispatch executes req and returns the acknowledgement for the host, which
// is AckOK whatever happened: unknown opcodes are ignored, a full buffer
// drops the byte and collaborator errors are only logged.
func (d *Dispatcher) Dispatch(req Request) Ack {
	d.log.Debug().Stringer("request", req).Msg("dispatch")

	var err error

	switch req.Opcode {
	case OpBacklightOff:
		err = d.actuators.SetBacklight(false)
	case OpBacklightOn:
		err = d.actuators.SetBacklight(true)
	case OpClearDisplays:
		err = errors.Join(
			d.display.Clear(DisplayA),
			d.display.Clear(DisplayB),
		)
	case OpSetFanDuty:
		err = d.actuators.SetDuty(ChannelFan, req.Value)
	case OpSetLightDuty:
		err = d.actuators.SetDuty(ChannelLight, req.Value)
	case OpFlushA0, OpFlushA1, OpFlushB0, OpFlushB1:
		err = d.display.WriteLine(flushTargets[req.Opcode], d.buffer.Snapshot())
	case OpBeginString:
		d.buffer.Begin()
	case OpAppendByte:
		if errors.Is(d.buffer.Append(req.Value), ErrBufferFull) {
			d.log.Debug().Uint8("value", req.Value).Msg("line buffer full, byte dropped")
		}
	default:
		d.log.Debug().Stringer("opcode", req.Opcode).Msg("ignoring unknown opcode")
	}

	if err != nil {
		d.log.Warn().Err(err).Stringer("request", req).Msg("collaborator error")
	}

	return AckOK
}

// State returns a copy of the actuator state.
func (d *Dispatcher) State() ActuatorState {
	return d.actuators.State()
}

// Buffer returns the line buffer contents and cursor.
func (d *Dispatcher) Buffer() (line [LineSize]byte, cursor int) {
	return d.buffer.Snapshot(), d.buffer.Cursor()
}
