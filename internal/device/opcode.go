package device

import "fmt"

// Opcode is the bRequest field of a control request.
type Opcode uint8

const (
	OpBacklightOff  Opcode = 0x00
	OpBacklightOn   Opcode = 0x01
	OpClearDisplays Opcode = 0x02 // clears both displays
	OpSetFanDuty    Opcode = 0x03 // value 0 disables the channel
	OpSetLightDuty  Opcode = 0x05 // value 0 disables the channel
	OpFlushA0       Opcode = 0x06 // post buffer to display A, line 0
	OpFlushA1       Opcode = 0x07 // post buffer to display A, line 1
	OpFlushB0       Opcode = 0x08 // post buffer to display B, line 0
	OpFlushB1       Opcode = 0x09 // post buffer to display B, line 1
	OpBeginString   Opcode = 0x0A // resets the buffer cursor
	OpAppendByte    Opcode = 0x0B // stores value at the buffer cursor
)

var opcodeNames = map[Opcode]string{
	OpBacklightOff:  "backlight-off",
	OpBacklightOn:   "backlight-on",
	OpClearDisplays: "clear-displays",
	OpSetFanDuty:    "set-fan-duty",
	OpSetLightDuty:  "set-light-duty",
	OpFlushA0:       "flush-a0",
	OpFlushA1:       "flush-a1",
	OpFlushB0:       "flush-b0",
	OpFlushB1:       "flush-b1",
	OpBeginString:   "begin-string",
	OpAppendByte:    "append-byte",
}

// Known reports whether op belongs to the recognized opcode set.
func (op Opcode) Known() bool {
	_, ok := opcodeNames[op]
	return ok
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(op))
}

// flushTargets maps the four flush opcodes to the display line they commit to.
var flushTargets = map[Opcode]Target{
	OpFlushA0: {Display: DisplayA, Line: 0},
	OpFlushA1: {Display: DisplayA, Line: 1},
	OpFlushB0: {Display: DisplayB, Line: 0},
	OpFlushB1: {Display: DisplayB, Line: 1},
}

// Request is a control request as delivered by the USB stack.
type Request struct {
	Opcode Opcode
	// Value is the low byte of wValue.
	Value uint8
}

func (r Request) String() string {
	return fmt.Sprintf("%s value=%d", r.Opcode, r.Value)
}

// Ack is the status returned to the USB stack for every request.
type Ack uint8

// AckOK is the only acknowledgement the protocol defines.
const AckOK Ack = 0
