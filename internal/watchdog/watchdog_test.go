package watchdog

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSoft_ExpiresWithoutFeed(t *testing.T) {
	fired := make(chan struct{})
	s := NewSoft(30*time.Millisecond, func() { close(fired) })
	s.Start()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not expire")
	}
}

func TestSoft_FeedKeepsAlive(t *testing.T) {
	var fired atomic.Int32
	s := NewSoft(80*time.Millisecond, func() { fired.Add(1) })
	s.Start()

	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, s.Feed())
	}
	s.Stop()

	time.Sleep(120 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestSoft_FeedBeforeStartIsHarmless(t *testing.T) {
	s := NewSoft(0, nil)
	require.NoError(t, s.Feed())
	s.Stop()
}

func TestDev(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	d, err := OpenDev(path)
	require.NoError(t, err)
	require.NoError(t, d.Feed())
	require.NoError(t, d.Feed())
	require.NoError(t, d.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 'V'}, b)

	_, err = OpenDev(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
