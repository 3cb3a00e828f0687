package actuator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oblq/usbpanel/internal/device"
	"github.com/oblq/usbpanel/internal/exec"
)

// Commands are shell templates run for each output change.
//
//	backlight: {on} is 1 or 0
//	fan/light: {enabled} is 1 or 0, {duty} is 0-255
//
// An empty template turns that output into a no-op. Templates run through
// `sh -c` unless Direct is set, in which case the command is split on
// whitespace and started without a shell.
type Commands struct {
	Backlight string
	Fan       string
	Light     string
	Direct    bool
}

// Exec drives outputs through external commands, eg. sysfs pwm writes or a
// vendor tool. Every command is killed after Timeout.
type Exec struct {
	cmds    Commands
	timeout time.Duration
}

func NewExec(cmds Commands, timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	return &Exec{cmds: cmds, timeout: timeout}
}

func (e *Exec) SetBacklight(on bool) error {
	return e.run(e.cmds.Backlight, strings.NewReplacer("{on}", flag(on)))
}

func (e *Exec) SetPWM(ch device.Channel, pwm device.PWM) error {
	var tmpl string
	switch ch {
	case device.ChannelFan:
		tmpl = e.cmds.Fan
	case device.ChannelLight:
		tmpl = e.cmds.Light
	default:
		return fmt.Errorf("no such channel %s", ch)
	}
	return e.run(tmpl, strings.NewReplacer(
		"{enabled}", flag(pwm.Enabled),
		"{duty}", strconv.Itoa(int(pwm.Duty)),
	))
}

func (e *Exec) run(tmpl string, r *strings.Replacer) error {
	if tmpl == "" {
		return nil
	}
	run := exec.CommandPipe
	if e.cmds.Direct {
		run = exec.Command
	}
	_, err := run(context.Background(), e.timeout, r.Replace(tmpl))
	return err
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
