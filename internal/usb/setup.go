// Package usb is the boundary to the USB device stack: it decodes SETUP
// packets delivered over a Link and feeds them to the dispatcher from a
// single poll loop.
package usb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/oblq/usbpanel/internal/device"
)

// SetupSize is the size of a SETUP packet on the wire.
const SetupSize = 8

// bmRequestType fields.
const (
	DirMask      = 0x80
	DirOut       = 0x00 // host to device
	DirIn        = 0x80 // device to host
	TypeMask     = 0x60
	TypeStandard = 0x00
	TypeClass    = 0x20
	TypeVendor   = 0x40
)

// ErrShortSetup is returned when fewer than SetupSize bytes are decoded.
var ErrShortSetup = errors.New("setup packet too short")

// SetupPacket is a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

// ParseSetup decodes a little-endian SETUP packet into out.
func ParseSetup(data []byte, out *SetupPacket) error {
	if len(data) < SetupSize {
		return ErrShortSetup
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return nil
}

// MarshalTo encodes s into buf and returns the number of bytes written,
// 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupSize
}

func (s *SetupPacket) Type() uint8 {
	return s.RequestType & TypeMask
}

// IsStandard reports whether the request belongs to the device stack
// itself (GET_DESCRIPTOR, SET_ADDRESS, ...) rather than to the panel.
func (s *SetupPacket) IsStandard() bool {
	return s.Type() == TypeStandard
}

// DeviceRequest converts the packet to a dispatcher request: bRequest is the
// opcode and the low byte of wValue is the argument.
func (s *SetupPacket) DeviceRequest() device.Request {
	return device.Request{
		Opcode: device.Opcode(s.Request),
		Value:  uint8(s.Value & 0xFF),
	}
}

func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.RequestType&DirMask == DirIn {
		dir = "IN"
	}
	typ := "Standard"
	switch s.Type() {
	case TypeClass:
		typ = "Class"
	case TypeVendor:
		typ = "Vendor"
	}
	return fmt.Sprintf("SETUP[%s %s] Request=0x%02X Value=0x%04X Index=0x%04X Length=%d",
		dir, typ, s.Request, s.Value, s.Index, s.Length)
}
