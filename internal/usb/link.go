package usb

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/goburrow/serial"

	"github.com/oblq/usbpanel/internal/device"
)

// DefaultPollTimeout bounds a single ReadSetup so the poll loop comes back
// to feed the watchdog well within its period.
const DefaultPollTimeout = 100 * time.Millisecond

// ErrNoRequest is returned by ReadSetup when nothing arrived in time.
var ErrNoRequest = errors.New("no request pending")

// Link delivers SETUP packets from the USB device stack and carries the
// acknowledgement back. Requests arrive strictly one after the other: the
// next packet is not read before the previous one is replied to.
type Link interface {
	// ReadSetup waits for the next packet, returning ErrNoRequest after the
	// link's poll timeout.
	ReadSetup(ctx context.Context, out *SetupPacket) error
	Reply(ack device.Ack) error
	Close() error
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// Stream frames SETUP packets over a byte stream: 8 bytes in, one status
// byte out. A packet split across poll timeouts is reassembled, unless a
// whole poll period passes without a byte: the partial packet is then
// dropped and framing restarts with the next byte.
type Stream struct {
	rw      io.ReadWriteCloser
	timeout time.Duration

	buf [SetupSize]byte
	n   int
}

func NewStream(rw io.ReadWriteCloser, pollTimeout time.Duration) *Stream {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Stream{rw: rw, timeout: pollTimeout}
}

func (s *Stream) ReadSetup(ctx context.Context, out *SetupPacket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := s.rw.(readDeadliner); ok {
		if err := d.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}

	received := 0
	for s.n < SetupSize {
		n, err := s.rw.Read(s.buf[s.n:])
		s.n += n
		received += n
		if err != nil {
			if isTimeout(err) {
				return s.idle(received)
			}
			return err
		}
		if n == 0 {
			return s.idle(received)
		}
	}

	s.n = 0
	return ParseSetup(s.buf[:], out)
}

// idle ends a poll that timed out having read received bytes.
func (s *Stream) idle(received int) error {
	if received == 0 {
		s.n = 0
	}
	return ErrNoRequest
}

// Pending is the number of bytes of a partial packet held for the next poll.
func (s *Stream) Pending() int {
	return s.n
}

func (s *Stream) Reply(ack device.Ack) error {
	_, err := s.rw.Write([]byte{byte(ack)})
	return err
}

func (s *Stream) Close() error {
	return s.rw.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, serial.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
