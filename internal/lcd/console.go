package lcd

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/device"
)

// Console is a display simulator: it keeps a frame per display and logs
// each update.
type Console struct {
	log zerolog.Logger

	mutex  sync.Mutex
	frames [2][2][device.LineSize]byte
}

func NewConsole(log zerolog.Logger) *Console {
	return &Console{log: log}
}

func (c *Console) Reset(id device.DisplayID) error {
	return c.Clear(id)
}

func (c *Console) Clear(id device.DisplayID) error {
	if int(id) >= len(c.frames) {
		return nil
	}
	c.mutex.Lock()
	c.frames[id] = [2][device.LineSize]byte{}
	c.mutex.Unlock()
	c.log.Info().Stringer("display", id).Msg("clear")
	return nil
}

func (c *Console) WriteLine(t device.Target, line [device.LineSize]byte) error {
	if int(t.Display) >= len(c.frames) || int(t.Line) >= len(c.frames[0]) {
		return nil
	}
	c.mutex.Lock()
	c.frames[t.Display][t.Line] = line
	c.mutex.Unlock()
	c.log.Info().
		Stringer("target", t).
		Str("text", Printable(line)).
		Hex("raw", line[:]).
		Msg("line")
	return nil
}

// Line returns the last bytes written to t, zeros for a target the
// panel doesn't have.
func (c *Console) Line(t device.Target) (line [device.LineSize]byte) {
	if int(t.Display) >= len(c.frames) || int(t.Line) >= len(c.frames[0]) {
		return line
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.frames[t.Display][t.Line]
}

// Printable renders a line for logs, showing non-printable bytes as '.'.
func Printable(line [device.LineSize]byte) string {
	var sb strings.Builder
	for _, b := range line {
		if b < 0x20 || b > 0x7E {
			sb.WriteByte('.')
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}
