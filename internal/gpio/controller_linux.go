//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// HardwareController drives the reset/boot lines through the host's
// real GPIO header via periph.io, the project's chosen GPIO library
// (grounded on its being the standard Go embedded-Linux GPIO stack;
// none of the example repos touch GPIO themselves, so this backend has
// no in-pack teacher to imitate — see DESIGN.md).
type HardwareController struct {
	logger *zap.SugaredLogger

	mu     sync.Mutex
	pins   map[Pin]gpio.PinIO
	invert map[Pin]bool
}

// NewController returns a HardwareController backed by the local
// GPIO header, or a NullController if host initialization fails (no
// permission, not running on GPIO-capable hardware, etc.) — falling
// back rather than refusing to start lets the daemon still run with
// serial-only BOOT/RESET wiring.
func NewController(logger *zap.SugaredLogger) (Controller, error) {
	if _, err := host.Init(); err != nil {
		logger.Warnw("gpio: host init failed, falling back to no-op controller", "error", err)
		return NewNullController(logger), nil
	}
	return &HardwareController{logger: logger, pins: make(map[Pin]gpio.PinIO), invert: make(map[Pin]bool)}, nil
}

func (c *HardwareController) InitPin(pin Pin, dir Direction, invert bool) error {
	if pin == PinUartRTS || pin == PinUartDTR {
		c.logger.Warnw("gpio: modem-control-line pin configured but no serial dependency in this build exposes RTS/DTR toggling; this pin is a no-op", "pin", pin)
		return nil
	}

	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return fmt.Errorf("gpio: no such pin GPIO%d", pin)
	}

	level := gpio.Low
	if invert {
		level = gpio.High
	}
	if dir == Output {
		if err := p.Out(level); err != nil {
			return fmt.Errorf("gpio: configure GPIO%d as output: %w", pin, err)
		}
	} else if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("gpio: configure GPIO%d as input: %w", pin, err)
	}

	c.mu.Lock()
	c.pins[pin] = p
	c.invert[pin] = invert
	c.mu.Unlock()
	return nil
}

func (c *HardwareController) Set(pin Pin, value bool) error {
	if pin == PinUartRTS || pin == PinUartDTR {
		return nil
	}
	c.mu.Lock()
	p, ok := c.pins[pin]
	physical := value != c.invert[pin]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("gpio: pin %d not initialized", pin)
	}
	return p.Out(gpio.Level(physical))
}

func (c *HardwareController) Clear(pin Pin) error { return c.Set(pin, false) }
