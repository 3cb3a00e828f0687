package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"

	"github.com/oblq/usbpanel/internal/actuator"
	"github.com/oblq/usbpanel/internal/boot"
	"github.com/oblq/usbpanel/internal/device"
	"github.com/oblq/usbpanel/internal/lcd"
	"github.com/oblq/usbpanel/internal/usb"
	"github.com/oblq/usbpanel/internal/watchdog"
)

// linkOpener attaches the request link; it runs once per boot.
type linkOpener func(ctx context.Context) (usb.Link, error)

// panelWatchdog is armed once per boot and disarmed when the boot cycle
// ends.
type panelWatchdog interface {
	watchdog.Feeder
	Arm() error
	Disarm() error
}

type watchdogFactory func(onExpire func()) panelWatchdog

func newActuator(c ActuatorConfig, log zerolog.Logger) (device.Actuator, error) {
	switch c.Driver {
	case "gpio":
		return actuator.OpenGPIO(c.BacklightPin, c.FanPin, c.LightPin, physic.Frequency(c.PWMHz)*physic.Hertz)
	case "exec":
		return actuator.NewExec(actuator.Commands{
			Backlight: c.BacklightCmd,
			Fan:       c.FanCmd,
			Light:     c.LightCmd,
			Direct:    c.CmdDirect,
		}, msToDuration(c.CmdTimeoutMs)), nil
	case "sim":
		return actuator.NewSim(log), nil
	}
	return nil, fmt.Errorf("no such actuator driver %s", c.Driver)
}

func newDisplay(c DisplayConfig, log zerolog.Logger) (boot.Display, error) {
	switch c.Driver {
	case "hd44780":
		return lcd.OpenHD44780(c.DataPins, c.RSPin, c.EnableAPin, c.EnableBPin)
	case "console":
		return lcd.NewConsole(log), nil
	}
	return nil, fmt.Errorf("no such display driver %s", c.Driver)
}

func newLinkOpener(c LinkConfig, log zerolog.Logger) (linkOpener, error) {
	pollTimeout := msToDuration(c.PollTimeoutMs)

	switch c.Kind {
	case "serial":
		return func(context.Context) (usb.Link, error) {
			return usb.OpenSerial(usb.SerialConfig{
				Address:     c.Address,
				BaudRate:    c.BaudRate,
				PollTimeout: pollTimeout,
			})
		}, nil
	case "websocket":
		return func(context.Context) (usb.Link, error) {
			ws := usb.NewWebSocket(pollTimeout, log)
			if err := ws.ListenAndServe(c.Listen); err != nil {
				return nil, fmt.Errorf("websocket link %s: %w", c.Listen, err)
			}
			return ws, nil
		}, nil
	}
	return nil, fmt.Errorf("no such link kind %s", c.Kind)
}

func newWatchdogFactory(c WatchdogConfig) (watchdogFactory, error) {
	switch c.Driver {
	case "soft":
		return func(onExpire func()) panelWatchdog {
			return &softWatchdog{Soft: watchdog.NewSoft(msToDuration(c.TimeoutMs), onExpire)}
		}, nil
	case "dev":
		return func(func()) panelWatchdog {
			return &devWatchdog{path: c.Device}
		}, nil
	case "none":
		return func(func()) panelWatchdog {
			return nopWatchdog{}
		}, nil
	}
	return nil, fmt.Errorf("no such watchdog driver %s", c.Driver)
}

type softWatchdog struct {
	*watchdog.Soft
}

func (w *softWatchdog) Arm() error {
	w.Start()
	return nil
}

func (w *softWatchdog) Disarm() error {
	w.Stop()
	return nil
}

// devWatchdog hands expiry to the kernel, which reboots the machine.
type devWatchdog struct {
	path string
	dev  *watchdog.Dev
}

func (w *devWatchdog) Arm() (err error) {
	if w.dev != nil {
		return nil
	}
	w.dev, err = watchdog.OpenDev(w.path)
	return err
}

func (w *devWatchdog) Feed() error {
	if w.dev == nil {
		return nil
	}
	return w.dev.Feed()
}

func (w *devWatchdog) Disarm() error {
	if w.dev == nil {
		return nil
	}
	err := w.dev.Close()
	w.dev = nil
	return err
}

type nopWatchdog struct {
	watchdog.Nop
}

func (nopWatchdog) Arm() error    { return nil }
func (nopWatchdog) Disarm() error { return nil }
