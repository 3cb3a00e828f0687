package lcd

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblq/usbpanel/internal/device"
)

type fakeController struct {
	resets, clears int
	cursor         [2]uint8
	written        []byte
	err            error
}

func (f *fakeController) Reset() error { f.resets++; return f.err }
func (f *fakeController) Halt() error  { f.clears++; return f.err }

func (f *fakeController) SetCursor(line, column uint8) error {
	f.cursor = [2]uint8{line, column}
	return f.err
}

func (f *fakeController) WriteChar(data uint8) error {
	f.written = append(f.written, data)
	return f.err
}

var ready = [device.LineSize]byte{'L', 'C', 'D', 0, 'R', 'e', 'a', 'd', 'y', '!'}

func TestHD44780_WriteLine(t *testing.T) {
	a, b := &fakeController{}, &fakeController{}
	h := NewHD44780(a, b)

	require.NoError(t, h.WriteLine(device.Target{Display: device.DisplayB, Line: 1}, ready))

	assert.Empty(t, a.written)
	assert.Equal(t, [2]uint8{1, 0}, b.cursor)
	assert.Equal(t, ready[:], b.written, "all 16 bytes, NULs included")
}

func TestHD44780_ResetAndClear(t *testing.T) {
	a, b := &fakeController{}, &fakeController{}
	h := NewHD44780(a, b)

	require.NoError(t, h.Reset(device.DisplayA))
	require.NoError(t, h.Clear(device.DisplayB))
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 1, a.clears)
	assert.Equal(t, 0, b.resets)
	assert.Equal(t, 1, b.clears)

	require.Error(t, h.Clear(device.DisplayID(2)))
}

func TestHD44780_Errors(t *testing.T) {
	boom := errors.New("strobe stuck")
	h := NewHD44780(&fakeController{err: boom}, &fakeController{})

	err := h.WriteLine(device.Target{Display: device.DisplayA}, ready)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, h.Reset(device.DisplayA), boom)
}

func TestOpenHD44780_FourBitOnly(t *testing.T) {
	data := []string{"GPIO5", "GPIO6", "GPIO16", "GPIO20", "GPIO7", "GPIO8", "GPIO9", "GPIO10"}
	_, err := OpenHD44780(data, "GPIO21", "GPIO26", "GPIO19")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 4 data pins")
}

func TestConsole(t *testing.T) {
	c := NewConsole(zerolog.Nop())
	target := device.Target{Display: device.DisplayA, Line: 0}

	require.NoError(t, c.WriteLine(target, ready))
	assert.Equal(t, ready, c.Line(target))

	require.NoError(t, c.Clear(device.DisplayA))
	assert.Equal(t, [device.LineSize]byte{}, c.Line(target))
}

func TestConsole_OutOfRangeTargets(t *testing.T) {
	c := NewConsole(zerolog.Nop())

	for _, target := range []device.Target{
		{Display: device.DisplayID(2), Line: 0},
		{Display: device.DisplayA, Line: 2},
	} {
		require.NoError(t, c.WriteLine(target, ready))
		assert.Equal(t, [device.LineSize]byte{}, c.Line(target), target.String())
	}
	require.NoError(t, c.Clear(device.DisplayID(7)))
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, "LCD.Ready!......", Printable(ready))
}
