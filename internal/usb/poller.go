package usb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/device"
	"github.com/oblq/usbpanel/internal/watchdog"
)

// Dispatcher handles one request and returns its acknowledgement.
type Dispatcher interface {
	Dispatch(req device.Request) device.Ack
}

// Poller is the main loop of the panel: every iteration feeds the watchdog
// and serves at most one request.
type Poller struct {
	link       Link
	dispatcher Dispatcher
	watchdog   watchdog.Feeder
	log        zerolog.Logger

	// ErrorBackoff is how long the loop waits after a link error before
	// polling again. It must stay well below the watchdog period.
	ErrorBackoff time.Duration
}

func NewPoller(link Link, d Dispatcher, wd watchdog.Feeder, log zerolog.Logger) *Poller {
	if wd == nil {
		wd = watchdog.Nop{}
	}
	return &Poller{
		link:         link,
		dispatcher:   d,
		watchdog:     wd,
		log:          log,
		ErrorBackoff: 100 * time.Millisecond,
	}
}

// Run polls until ctx is done and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.watchdog.Feed(); err != nil {
			p.log.Warn().Err(err).Msg("watchdog feed")
		}

		if _, err := p.Poll(ctx); err != nil && !errors.Is(err, ErrNoRequest) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn().Err(err).Msg("poll")

			t := time.NewTimer(p.ErrorBackoff)
			select {
			case <-ctx.Done():
			case <-t.C:
			}
			t.Stop()
		}
	}
}

// Poll reads one SETUP packet and answers it. Standard requests are the
// device stack's business and are acknowledged without reaching the
// dispatcher. A truncated packet is acknowledged and dropped so the peer
// is never left waiting. handled reports whether the dispatcher saw the
// request.
func (p *Poller) Poll(ctx context.Context) (handled bool, err error) {
	var setup SetupPacket
	if err = p.link.ReadSetup(ctx, &setup); err != nil {
		if errors.Is(err, ErrShortSetup) {
			p.log.Warn().Err(err).Msg("dropped malformed request")
			return false, p.link.Reply(device.AckOK)
		}
		return false, err
	}

	if setup.IsStandard() {
		p.log.Debug().Stringer("setup", &setup).Msg("standard request left to the device stack")
		return false, p.link.Reply(device.AckOK)
	}

	ack := p.dispatcher.Dispatch(setup.DeviceRequest())
	return true, p.link.Reply(ack)
}
