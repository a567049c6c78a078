// Package address implements the 24-bit FANET address: an 8-bit
// manufacturer id paired with a 16-bit device id.
package address

import (
	"fmt"
	"strconv"
)

// Address is an immutable FANET node address.
type Address struct {
	Manufacturer uint8
	Device       uint16
}

// Broadcast is the well-known broadcast address (0,0), used for
// station-of-the-air weather and name announcements.
var Broadcast = Address{Manufacturer: 0, Device: 0}

// Invalid is the sentinel address (0xFF, 0xFFFF).
var Invalid = Address{Manufacturer: 0xFF, Device: 0xFFFF}

// New builds an Address from its two fields.
func New(manufacturer uint8, device uint16) Address {
	return Address{Manufacturer: manufacturer, Device: device}
}

// FromUint32 builds an Address from a packed 24-bit value where the
// high byte (bits 16-23) is the manufacturer id and the low 16 bits
// are the device id.
func FromUint32(v uint32) Address {
	return Address{
		Manufacturer: uint8((v >> 16) & 0xFF),
		Device:       uint16(v & 0xFFFF),
	}
}

// IsBroadcast reports whether a equals the broadcast address.
func (a Address) IsBroadcast() bool {
	return a == Broadcast
}

// IsValid reports whether a is not the invalid sentinel. The broadcast
// address counts as valid (it is a distinct, valid special case; use
// IsBroadcast to test for it separately when that matters).
func (a Address) IsValid() bool {
	return a != Invalid
}

// Format renders the address as lowercase hex, fixed-width per field
// (2 hex digits for manufacturer, 4 for device), joined by sep.
//
// The original implementation's toHex() always emits fixed-width
// fields on output even though its parser accepts variable width on
// input; Format follows the encoder side of that asymmetry so that
// Parse(Format(a, sep)) == a holds for every Address.
func (a Address) Format(sep string) string {
	return fmt.Sprintf("%02x%s%04x", a.Manufacturer, sep, a.Device)
}

// String implements fmt.Stringer using the comma separator.
func (a Address) String() string {
	return a.Format(",")
}

// ManufacturerName looks up the human-readable vendor name for the
// address's manufacturer id, or "Invalid/Unknown" if not recognized.
func (a Address) ManufacturerName() string {
	return ManufacturerName(a.Manufacturer)
}

// Parse decodes a textual address of the form "MM,DDDD" or "MM:DDDD"
// (case-insensitive hex, variable width per field: 1-2 hex digits for
// the manufacturer, 1-4 for the device). The separator is found by
// scanning for whichever of ',' or ':' appears first, mirroring the
// original constructor's rule that the separator index must be
// strictly between 0 and 3 (exclusive), i.e. the manufacturer field
// is 1-2 characters wide.
func Parse(s string) (Address, error) {
	sepIdx := -1
	for i, r := range s {
		if r == ',' || r == ':' {
			sepIdx = i
			break
		}
		if i >= 3 {
			break
		}
	}
	if sepIdx <= 0 || sepIdx >= 3 {
		return Address{}, fmt.Errorf("address: no valid separator in %q", s)
	}

	manuStr := s[:sepIdx]
	devStr := s[sepIdx+1:]
	if len(devStr) == 0 || len(devStr) > 4 {
		return Address{}, fmt.Errorf("address: device field width out of range in %q", s)
	}

	manu, err := strconv.ParseUint(manuStr, 16, 8)
	if err != nil {
		return Address{}, fmt.Errorf("address: bad manufacturer field %q: %w", manuStr, err)
	}
	dev, err := strconv.ParseUint(devStr, 16, 16)
	if err != nil {
		return Address{}, fmt.Errorf("address: bad device field %q: %w", devStr, err)
	}

	return Address{Manufacturer: uint8(manu), Device: uint16(dev)}, nil
}
