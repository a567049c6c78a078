//go:build !linux

package gpio

import "go.uber.org/zap"

// NewController returns a NullController on platforms with no
// supported GPIO backend (anything but Linux); the radio FSM still
// works over the serial link alone, just without hardware reset/boot
// line control.
func NewController(logger *zap.SugaredLogger) (Controller, error) {
	return NewNullController(logger), nil
}
