package device

import "errors"

// ErrBufferFull is returned by Append once LineSize bytes were written
// since the last Begin.
var ErrBufferFull = errors.New("line buffer full")

// LineBuffer assembles one display line a byte at a time.
// The zero value is an empty buffer with the cursor at 0.
type LineBuffer struct {
	bytes  [LineSize]byte
	cursor int
}

// Begin starts a new string. The contents are left as they are: slots that
// the new string does not overwrite keep the previous string's bytes.
func (b *LineBuffer) Begin() {
	b.cursor = 0
}

// Append stores c at the cursor and advances it.
func (b *LineBuffer) Append(c byte) error {
	if b.cursor >= LineSize {
		return ErrBufferFull
	}
	b.bytes[b.cursor] = c
	b.cursor++
	return nil
}

// Snapshot returns the whole buffer regardless of the cursor.
func (b *LineBuffer) Snapshot() [LineSize]byte {
	return b.bytes
}

// Cursor returns the index the next Append writes to.
func (b *LineBuffer) Cursor() int {
	return b.cursor
}
