package gpio

import "go.uber.org/zap"

// NullController implements Controller without touching any real
// hardware line. It records the invert flag per pin (so Set/Clear
// still report the logically-correct value to the caller via logging)
// but never drives a physical GPIO bank or UART modem-control line.
//
// It backs every build that isn't running on the Pi GPIO header, and
// also backs PinUartRTS/PinUartDTR on every platform: none of this
// project's serial dependencies expose modem-control-line toggling,
// so those two logical pins always resolve to this no-op controller.
type NullController struct {
	logger  *zap.SugaredLogger
	invert  map[Pin]bool
	warned  map[Pin]bool
}

// NewNullController builds a no-op Controller that logs what it would
// have done.
func NewNullController(logger *zap.SugaredLogger) *NullController {
	return &NullController{
		logger: logger,
		invert: make(map[Pin]bool),
		warned: make(map[Pin]bool),
	}
}

func (c *NullController) InitPin(pin Pin, dir Direction, invert bool) error {
	c.invert[pin] = invert
	c.warnOnce(pin)
	c.logger.Debugw("gpio: init pin (no-op controller)", "pin", pin, "direction", dir, "invert", invert)
	return nil
}

func (c *NullController) Set(pin Pin, value bool) error {
	logical := value != c.invert[pin]
	c.logger.Debugw("gpio: set pin (no-op controller)", "pin", pin, "logical_value", logical)
	return nil
}

func (c *NullController) Clear(pin Pin) error {
	return c.Set(pin, false)
}

func (c *NullController) warnOnce(pin Pin) {
	if pin != PinUartRTS && pin != PinUartDTR {
		return
	}
	if c.warned[pin] {
		return
	}
	c.warned[pin] = true
	c.logger.Warnw("gpio: modem-control-line pin configured but no serial dependency in this build exposes RTS/DTR toggling; this pin is a no-op", "pin", pin)
}
