package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/boot"
	"github.com/oblq/usbpanel/internal/device"
	"github.com/oblq/usbpanel/internal/usb"
)

var errWatchdogExpired = errors.New("watchdog expired")

// halter is implemented by actuators that can park their outputs on exit.
type halter interface {
	Halt() error
}

// Panel owns the hardware drivers and runs the device: boot, then poll for
// requests until the watchdog fires, which starts over with fresh state just
// like a hardware reset.
type Panel struct {
	mutex   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	config *PanelConfig
	log    zerolog.Logger

	actuator    device.Actuator
	display     boot.Display
	openLink    linkOpener
	newWatchdog watchdogFactory

	sleeper boot.Sleeper
	timings boot.Timings
	// restartDelay paces cycles that failed for any reason but the watchdog.
	restartDelay time.Duration

	resets atomic.Int64
}

// New builds the drivers selected by config.
func New(config *PanelConfig, log zerolog.Logger) (p *Panel, err error) {
	p = &Panel{
		config:       config,
		log:          log,
		sleeper:      boot.TimerSleeper{},
		timings:      boot.DefaultTimings(),
		restartDelay: time.Second,
	}

	if p.actuator, err = newActuator(config.Actuator, log.With().Str("component", "actuator").Logger()); err != nil {
		return nil, fmt.Errorf("actuator: %w", err)
	}
	if p.display, err = newDisplay(config.Display, log.With().Str("component", "display").Logger()); err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	if p.openLink, err = newLinkOpener(config.Link, log.With().Str("component", "link").Logger()); err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	if p.newWatchdog, err = newWatchdogFactory(config.Watchdog); err != nil {
		return nil, fmt.Errorf("watchdog: %w", err)
	}

	return p, nil
}

// Start runs the panel in the background.
func (p *Panel) Start(ctx context.Context) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop ends the current cycle, waits for it to wind down and turns the
// outputs off.
func (p *Panel) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.running {
		return
	}
	p.cancel()
	<-p.done
	p.running = false

	if h, ok := p.actuator.(halter); ok {
		if err := h.Halt(); err != nil {
			p.log.Warn().Err(err).Msg("actuator halt")
		}
	}
}

// Resets is the number of watchdog resets since Start.
func (p *Panel) Resets() int64 {
	return p.resets.Load()
}

func (p *Panel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := p.cycle(ctx)
		if ctx.Err() != nil {
			return
		}

		p.log.Error().Err(err).Msg("panel reset")
		if errors.Is(err, errWatchdogExpired) {
			p.resets.Add(1)
			continue
		}

		t := time.NewTimer(p.restartDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// cycle is one power-on: fresh device state, the boot sequence, then the
// poll loop.
func (p *Panel) cycle(ctx context.Context) error {
	ctx, reset := context.WithCancelCause(ctx)
	defer reset(nil)

	wd := p.newWatchdog(func() { reset(errWatchdogExpired) })
	defer func() {
		if err := wd.Disarm(); err != nil {
			p.log.Warn().Err(err).Msg("watchdog disarm")
		}
	}()

	actuators := device.NewActuators(p.actuator)

	var link usb.Link
	seq := boot.New(actuators, p.display, boot.Hooks{
		Feed: wd.Feed,
		ArmWatchdog: func() {
			if err := wd.Arm(); err != nil {
				p.log.Warn().Err(err).Msg("watchdog arm")
			}
		},
		Connect: func(ctx context.Context) (err error) {
			link, err = p.openLink(ctx)
			return err
		},
	}, p.log.With().Str("component", "boot").Logger())
	seq.Timings = p.timings
	seq.Sleeper = p.sleeper

	err := seq.Run(ctx)
	if link != nil {
		defer link.Close()
	}
	if err != nil {
		return causeOr(ctx, err)
	}

	dispatcher := device.NewDispatcher(actuators, p.display, p.log.With().Str("component", "dispatcher").Logger())
	poller := usb.NewPoller(link, dispatcher, wd, p.log.With().Str("component", "poller").Logger())
	poller.ErrorBackoff = min(poller.ErrorBackoff, msToDuration(p.config.Link.PollTimeoutMs))

	return causeOr(ctx, poller.Run(ctx))
}

func causeOr(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		return cause
	}
	return err
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
