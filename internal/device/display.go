package device

import "fmt"

// LineSize is the number of characters on a display line.
const LineSize = 16

// DisplayID selects one of the two character displays.
type DisplayID uint8

const (
	DisplayA DisplayID = iota
	DisplayB
)

func (id DisplayID) String() string {
	switch id {
	case DisplayA:
		return "A"
	case DisplayB:
		return "B"
	}
	return fmt.Sprintf("display(%d)", uint8(id))
}

// Target is a single line on one of the displays.
type Target struct {
	Display DisplayID
	Line    uint8
}

func (t Target) String() string {
	return fmt.Sprintf("%s%d", t.Display, t.Line)
}

// Display is the character display collaborator.
// Calls are synchronous and must return in bounded time.
type Display interface {
	Clear(id DisplayID) error
	WriteLine(t Target, line [LineSize]byte) error
}
