// Package watchdog resets the panel when the poll loop stops feeding it.
package watchdog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultTimeout is the panel watchdog period.
const DefaultTimeout = time.Second

// Feeder is kept alive by periodic Feed calls.
type Feeder interface {
	Feed() error
}

// Nop never expires.
type Nop struct{}

func (Nop) Feed() error { return nil }

// Soft is a timer based watchdog. Once started, onExpire runs on its own
// goroutine if Feed is not called within the timeout.
type Soft struct {
	mutex    sync.Mutex
	timeout  time.Duration
	onExpire func()
	timer    *time.Timer
	gen      uint64
}

func NewSoft(timeout time.Duration, onExpire func()) *Soft {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Soft{timeout: timeout, onExpire: onExpire}
}

// Start arms the watchdog; a running watchdog is re-armed.
func (s *Soft) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.timeout, func() { s.expire(gen) })
}

func (s *Soft) expire(gen uint64) {
	s.mutex.Lock()
	if s.timer == nil || s.gen != gen {
		// stopped, or re-armed by Start
		s.mutex.Unlock()
		return
	}
	s.timer = nil
	s.mutex.Unlock()

	if s.onExpire != nil {
		s.onExpire()
	}
}

// Feed pushes the deadline out by one timeout. Feeding a watchdog that is
// not armed does nothing.
func (s *Soft) Feed() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.timer != nil {
		s.timer.Reset(s.timeout)
	}
	return nil
}

// Stop disarms the watchdog.
func (s *Soft) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Dev feeds a Linux watchdog device such as /dev/watchdog. Opening the
// device arms the hardware timer; the kernel reboots the machine when it
// is not written to in time.
type Dev struct {
	f *os.File
}

func OpenDev(path string) (*Dev, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}
	return &Dev{f: f}, nil
}

func (d *Dev) Feed() error {
	_, err := d.f.Write([]byte{0})
	return err
}

// Close disarms the hardware timer with the magic close character before
// releasing the device.
func (d *Dev) Close() error {
	if _, err := d.f.Write([]byte("V")); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}
