package boot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oblq/usbpanel/internal/device"
	"github.com/oblq/usbpanel/internal/lcd"
)

// recorder collects every collaborator call as a line of text.
type recorder struct {
	events []string
	err    error
}

func (r *recorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) SetBacklight(on bool) error {
	r.add("backlight %t", on)
	return r.err
}

func (r *recorder) SetPWM(ch device.Channel, pwm device.PWM) error {
	r.add("%s %t %d", ch, pwm.Enabled, pwm.Duty)
	return r.err
}

func (r *recorder) Reset(id device.DisplayID) error {
	r.add("reset %s", id)
	return r.err
}

func (r *recorder) Clear(id device.DisplayID) error {
	r.add("clear %s", id)
	return r.err
}

func (r *recorder) WriteLine(t device.Target, line [device.LineSize]byte) error {
	r.add("write %s %s", t, lcd.Printable(line))
	return r.err
}

func (r *recorder) Sleep(_ context.Context, d time.Duration) error {
	r.add("sleep %s", d)
	return nil
}

func newTestSequencer(r *recorder, hooks Hooks) *Sequencer {
	s := New(device.NewActuators(r), r, hooks, zerolog.Nop())
	s.Sleeper = r
	// one slice per wait keeps the event list readable
	s.Timings.FeedInterval = 0
	return s
}

func TestRun_Sequence(t *testing.T) {
	r := &recorder{}
	hooks := Hooks{
		ArmWatchdog: func() { r.add("arm watchdog") },
		Connect: func(context.Context) error {
			r.add("connect")
			return nil
		},
	}
	s := newTestSequencer(r, hooks)

	require.NoError(t, s.Run(context.Background()))

	want := []string{
		"backlight true",
		"fan true 255",
		"sleep 2s",
		"fan true 127",
	}
	for i := 0; i < 3; i++ {
		want = append(want,
			"light true 255",
			"sleep 200ms",
			"light true 0",
			"sleep 200ms",
		)
	}
	want = append(want,
		"light true 20",
		"sleep 200ms",
		"reset A",
		"reset B",
		"write A0 LCD.Ready!......",
		"arm watchdog",
		"sleep 200ms",
		"connect",
		"write B0 USB.Ready!......",
	)
	require.Equal(t, want, r.events)

	st := s.actuators.State()
	assert.True(t, st.BacklightOn)
	assert.Equal(t, device.PWM{Enabled: true, Duty: FanIdleDuty}, st.Fan)
	assert.Equal(t, device.PWM{Enabled: true, Duty: LightIdleDuty}, st.Light)
}

func TestRun_MessagesAreBitExact(t *testing.T) {
	assert.Equal(t, [device.LineSize]byte{'L', 'C', 'D', 0, 'R', 'e', 'a', 'd', 'y', '!', 0, 0, 0, 0, 0, 0}, LCDReady)
	assert.Equal(t, [device.LineSize]byte{'U', 'S', 'B', 0, 'R', 'e', 'a', 'd', 'y', '!', 0, 0, 0, 0, 0, 0}, USBReady)
}

func TestRun_WaitsAreSlicedAndFed(t *testing.T) {
	r := &recorder{}
	feeds := 0
	s := newTestSequencer(r, Hooks{Feed: func() error { feeds++; return nil }})
	s.Timings = Timings{
		FanWarmup:     250 * time.Millisecond,
		Blink:         10 * time.Millisecond,
		Blinks:        1,
		DisplaySettle: 0,
		Reenumerate:   100 * time.Millisecond,
		FeedInterval:  100 * time.Millisecond,
	}

	require.NoError(t, s.Run(context.Background()))

	var sleeps []string
	for _, e := range r.events {
		if len(e) > 5 && e[:5] == "sleep" {
			sleeps = append(sleeps, e)
		}
	}
	require.Equal(t, []string{
		"sleep 100ms", "sleep 100ms", "sleep 50ms",
		"sleep 10ms", "sleep 10ms",
		"sleep 100ms",
	}, sleeps)
	require.Equal(t, len(sleeps), feeds)
}

func TestRun_HardwareErrorsDoNotStopBoot(t *testing.T) {
	r := &recorder{err: errors.New("pin busy")}
	connected := false
	s := newTestSequencer(r, Hooks{Connect: func(context.Context) error {
		connected = true
		return nil
	}})

	require.NoError(t, s.Run(context.Background()))
	require.True(t, connected)
}

func TestRun_ConnectErrorAborts(t *testing.T) {
	r := &recorder{}
	boom := errors.New("no such tty")
	s := newTestSequencer(r, Hooks{Connect: func(context.Context) error { return boom }})

	err := s.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.NotContains(t, r.events, "write B0 USB.Ready!......")
}

func TestRun_Cancelled(t *testing.T) {
	s := New(device.NewActuators(&recorder{}), &recorder{}, Hooks{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Run(ctx), context.Canceled)
}
