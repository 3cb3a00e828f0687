package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/oblq/usbpanel/internal/lcd"
)

const configFileName = "usbpanel.yaml"

type PanelConfig struct {
	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Link     LinkConfig     `yaml:"link"`
	Actuator ActuatorConfig `yaml:"actuator"`
	Display  DisplayConfig  `yaml:"display"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// LinkConfig selects where SETUP packets come from.
type LinkConfig struct {
	// Kind is serial or websocket.
	Kind string `yaml:"kind"`

	// Address and BaudRate are used by the serial link, eg. /dev/ttyGS0.
	Address  string `yaml:"address"`
	BaudRate int    `yaml:"baud_rate"`

	// Listen is the websocket link listen address, eg. `:8085`.
	Listen string `yaml:"listen"`

	// PollTimeoutMs bounds a single wait for a request, in milliseconds.
	PollTimeoutMs int `yaml:"poll_timeout_ms"`
}

type ActuatorConfig struct {
	// Driver is gpio, exec or sim.
	Driver string `yaml:"driver"`

	// gpio driver: periph pin names, eg. GPIO13.
	BacklightPin string `yaml:"backlight_pin"`
	FanPin       string `yaml:"fan_pin"`
	LightPin     string `yaml:"light_pin"`
	PWMHz        int    `yaml:"pwm_hz"`

	// exec driver: command templates, see actuator.Commands. CmdDirect runs
	// them without a shell.
	BacklightCmd string `yaml:"backlight_cmd"`
	FanCmd       string `yaml:"fan_cmd"`
	LightCmd     string `yaml:"light_cmd"`
	CmdDirect    bool   `yaml:"cmd_direct"`
	CmdTimeoutMs int    `yaml:"cmd_timeout_ms"`
}

type DisplayConfig struct {
	// Driver is hd44780 or console.
	Driver string `yaml:"driver"`

	// hd44780 driver: 4 data pins (D4-D7) shared by both displays, a shared RS
	// pin and one enable pin per display.
	DataPins   []string `yaml:"data_pins"`
	RSPin      string   `yaml:"rs_pin"`
	EnableAPin string   `yaml:"enable_a_pin"`
	EnableBPin string   `yaml:"enable_b_pin"`
}

type WatchdogConfig struct {
	// Driver is soft, dev or none.
	Driver    string `yaml:"driver"`
	Device    string `yaml:"device"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// DefaultConfig is a Raspberry Pi wiring with the serial gadget link.
func DefaultConfig() *PanelConfig {
	c := &PanelConfig{}
	c.setDefaults()
	return c
}

// LoadConfig reads usbpanel.yaml from dir, fills in defaults and validates it.
func LoadConfig(dir string) (*PanelConfig, error) {
	path := filepath.Join(dir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &PanelConfig{}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	config.setDefaults()
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *PanelConfig) setDefaults() {
	setDefault(&c.LogLevel, "info")

	setDefault(&c.Link.Kind, "serial")
	setDefault(&c.Link.Address, "/dev/ttyGS0")
	setDefault(&c.Link.Listen, ":8085")
	if c.Link.BaudRate == 0 {
		c.Link.BaudRate = 115200
	}
	if c.Link.PollTimeoutMs == 0 {
		c.Link.PollTimeoutMs = 100
	}

	setDefault(&c.Actuator.Driver, "gpio")
	setDefault(&c.Actuator.BacklightPin, "GPIO4")
	setDefault(&c.Actuator.FanPin, "GPIO13")
	setDefault(&c.Actuator.LightPin, "GPIO12")
	if c.Actuator.PWMHz == 0 {
		c.Actuator.PWMHz = 46
	}
	if c.Actuator.CmdTimeoutMs == 0 {
		c.Actuator.CmdTimeoutMs = 200
	}

	setDefault(&c.Display.Driver, "hd44780")
	if len(c.Display.DataPins) == 0 {
		c.Display.DataPins = []string{"GPIO5", "GPIO6", "GPIO16", "GPIO20"}
	}
	setDefault(&c.Display.RSPin, "GPIO21")
	setDefault(&c.Display.EnableAPin, "GPIO26")
	setDefault(&c.Display.EnableBPin, "GPIO19")

	setDefault(&c.Watchdog.Driver, "soft")
	setDefault(&c.Watchdog.Device, "/dev/watchdog")
	if c.Watchdog.TimeoutMs == 0 {
		c.Watchdog.TimeoutMs = 1000
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Validate checks the driver names and the timing constraints between the
// poll loop and the watchdog.
func (c *PanelConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if err := oneOf("link.kind", c.Link.Kind, "serial", "websocket"); err != nil {
		return err
	}
	if err := oneOf("actuator.driver", c.Actuator.Driver, "gpio", "exec", "sim"); err != nil {
		return err
	}
	if err := oneOf("display.driver", c.Display.Driver, "hd44780", "console"); err != nil {
		return err
	}
	if err := oneOf("watchdog.driver", c.Watchdog.Driver, "soft", "dev", "none"); err != nil {
		return err
	}

	if c.Display.Driver == "hd44780" && len(c.Display.DataPins) != lcd.DataPins {
		return fmt.Errorf("display.data_pins: need %d pins, got %d", lcd.DataPins, len(c.Display.DataPins))
	}
	if c.Actuator.PWMHz < 0 {
		return errors.New("actuator.pwm_hz must be positive")
	}

	// the loop must come back to feed the watchdog before it fires
	if c.Watchdog.Driver != "none" && c.pollTimeout() >= c.watchdogTimeout()/2 {
		return fmt.Errorf("link.poll_timeout_ms (%d) must be less than half of watchdog.timeout_ms (%d)",
			c.Link.PollTimeoutMs, c.Watchdog.TimeoutMs)
	}
	if c.Actuator.Driver == "exec" && c.cmdTimeout() >= c.watchdogTimeout()/2 && c.Watchdog.Driver != "none" {
		return fmt.Errorf("actuator.cmd_timeout_ms (%d) must be less than half of watchdog.timeout_ms (%d)",
			c.Actuator.CmdTimeoutMs, c.Watchdog.TimeoutMs)
	}
	return nil
}

func oneOf(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q, want one of %v", name, value, allowed)
}

// Simulate swaps every hardware driver for its simulator.
func (c *PanelConfig) Simulate() {
	c.Link.Kind = "websocket"
	c.Actuator.Driver = "sim"
	c.Display.Driver = "console"
	c.Watchdog.Driver = "soft"
}

func (c *PanelConfig) pollTimeout() time.Duration {
	return time.Duration(c.Link.PollTimeoutMs) * time.Millisecond
}

func (c *PanelConfig) watchdogTimeout() time.Duration {
	return time.Duration(c.Watchdog.TimeoutMs) * time.Millisecond
}

func (c *PanelConfig) cmdTimeout() time.Duration {
	return time.Duration(c.Actuator.CmdTimeoutMs) * time.Millisecond
}
