package exec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	out, err := Command(context.Background(), time.Second, "echo 'fan' 200")
	require.NoError(t, err)
	require.Equal(t, "fan 200", out)

	_, err = Command(context.Background(), time.Second, "   ")
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestCommandPipe(t *testing.T) {
	out, err := CommandPipe(context.Background(), time.Second, "echo 127 | tr 1 9")
	require.NoError(t, err)
	require.Equal(t, "927", out)

	_, err = CommandPipe(context.Background(), time.Second, "exit 3")
	require.Error(t, err)
}

func TestCommandTimeout(t *testing.T) {
	start := time.Now()
	_, err := CommandPipe(context.Background(), 50*time.Millisecond, "sleep 5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "timed out")
	require.Less(t, time.Since(start), 2*time.Second)
}
