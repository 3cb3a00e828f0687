// Package boot brings the outputs and displays up before the panel starts
// answering requests.
package boot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/device"
)

// Startup messages, byte for byte. Index 3 is NUL, not a space.
var (
	LCDReady = [device.LineSize]byte{76, 67, 68, 0, 82, 101, 97, 100, 121, 33}
	USBReady = [device.LineSize]byte{85, 83, 66, 0, 82, 101, 97, 100, 121, 33}
)

// Boot-time output levels.
const (
	FanWarmupDuty uint8 = 0xFF // full power so the fan does not stall
	FanIdleDuty   uint8 = 0x7F
	BlinkDuty     uint8 = 0xFF
	LightIdleDuty uint8 = 0x14
)

// Display is a device.Display that can also re-run its init sequence.
type Display interface {
	device.Display
	Reset(id device.DisplayID) error
}

// Timings are the waits of the boot sequence.
type Timings struct {
	FanWarmup     time.Duration
	Blink         time.Duration // each half of a blink
	Blinks        int
	DisplaySettle time.Duration
	Reenumerate   time.Duration // time the device stays detached
	// FeedInterval is the longest stretch any wait runs without calling the
	// Feed hook.
	FeedInterval time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		FanWarmup:     2 * time.Second,
		Blink:         200 * time.Millisecond,
		Blinks:        3,
		DisplaySettle: 200 * time.Millisecond,
		Reenumerate:   200 * time.Millisecond,
		FeedInterval:  50 * time.Millisecond,
	}
}

// Hooks connect the sequence to the rest of the panel. All are optional.
type Hooks struct {
	// Feed is the liveness hook, run after every wait slice.
	Feed func() error
	// ArmWatchdog starts the watchdog right before USB comes up.
	ArmWatchdog func()
	// Connect attaches the request link at the end of re-enumeration.
	Connect func(ctx context.Context) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sequencer runs the boot steps once.
type Sequencer struct {
	actuators *device.Actuators
	display   Display
	hooks     Hooks
	log       zerolog.Logger

	Timings Timings
	Sleeper Sleeper
}

func New(actuators *device.Actuators, display Display, hooks Hooks, log zerolog.Logger) *Sequencer {
	return &Sequencer{
		actuators: actuators,
		display:   display,
		hooks:     hooks,
		log:       log,
		Timings:   DefaultTimings(),
		Sleeper:   TimerSleeper{},
	}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Run executes every step in order. Output and display failures are logged
// and the sequence goes on, as there is nobody to report them to yet; a
// cancelled context or a link that fails to connect aborts it.
func (s *Sequencer) Run(ctx context.Context) error {
	steps := []step{
		{"outputs", s.outputs},
		{"blink", s.blink},
		{"displays", s.displays},
		{"usb", s.usb},
		{"usb-ready", s.usbReady},
	}

	for _, st := range steps {
		s.log.Debug().Str("step", st.name).Msg("boot")
		if err := st.run(ctx); err != nil {
			return fmt.Errorf("boot %s: %w", st.name, err)
		}
	}

	s.log.Info().Msg("boot complete")
	return nil
}

func (s *Sequencer) outputs(ctx context.Context) error {
	s.check(s.actuators.SetBacklight(true))
	s.check(s.actuators.SetPWM(device.ChannelFan, device.PWM{Enabled: true, Duty: FanWarmupDuty}))
	if err := s.wait(ctx, s.Timings.FanWarmup); err != nil {
		return err
	}
	s.check(s.actuators.SetPWM(device.ChannelFan, device.PWM{Enabled: true, Duty: FanIdleDuty}))
	return nil
}

func (s *Sequencer) blink(ctx context.Context) error {
	for i := 0; i < s.Timings.Blinks; i++ {
		s.check(s.actuators.SetPWM(device.ChannelLight, device.PWM{Enabled: true, Duty: BlinkDuty}))
		if err := s.wait(ctx, s.Timings.Blink); err != nil {
			return err
		}
		s.check(s.actuators.SetPWM(device.ChannelLight, device.PWM{Enabled: true, Duty: 0}))
		if err := s.wait(ctx, s.Timings.Blink); err != nil {
			return err
		}
	}
	s.check(s.actuators.SetPWM(device.ChannelLight, device.PWM{Enabled: true, Duty: LightIdleDuty}))
	return nil
}

func (s *Sequencer) displays(ctx context.Context) error {
	if err := s.wait(ctx, s.Timings.DisplaySettle); err != nil {
		return err
	}
	s.check(s.display.Reset(device.DisplayA))
	s.check(s.display.Reset(device.DisplayB))
	s.check(s.display.WriteLine(device.Target{Display: device.DisplayA, Line: 0}, LCDReady))
	return nil
}

func (s *Sequencer) usb(ctx context.Context) error {
	if s.hooks.ArmWatchdog != nil {
		s.hooks.ArmWatchdog()
	}
	if err := s.wait(ctx, s.Timings.Reenumerate); err != nil {
		return err
	}
	if s.hooks.Connect != nil {
		return s.hooks.Connect(ctx)
	}
	return nil
}

func (s *Sequencer) usbReady(context.Context) error {
	s.check(s.display.WriteLine(device.Target{Display: device.DisplayB, Line: 0}, USBReady))
	return nil
}

// wait sleeps for d in slices of at most FeedInterval, feeding after each.
func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	slice := s.Timings.FeedInterval
	if slice <= 0 {
		slice = d
	}
	for d > 0 {
		n := min(d, slice)
		if err := s.Sleeper.Sleep(ctx, n); err != nil {
			return err
		}
		d -= n
		if s.hooks.Feed != nil {
			s.check(s.hooks.Feed())
		}
	}
	return nil
}

func (s *Sequencer) check(err error) {
	if err != nil {
		s.log.Warn().Err(err).Msg("boot")
	}
}
