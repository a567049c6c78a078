// Package payload implements the bit-packed FANET payload codec:
// decoding received payloads into semantic values, and encoding the
// outbound Service (weather) and Name payloads this ground station
// broadcasts.
package payload

import "fmt"

// Type is the FANET payload type tag.
type Type uint8

const (
	Ack            Type = 0
	Tracking       Type = 1
	Name           Type = 2
	Message        Type = 3
	Service        Type = 4
	Landmarks      Type = 5
	RemoteConfig   Type = 6
	GroundTracking Type = 7
	HwInfoOld      Type = 8
	Thermal        Type = 9
	HwInfo         Type = 10
	Invalid        Type = 0xFF
)

func (t Type) String() string {
	switch t {
	case Ack:
		return "Ack"
	case Tracking:
		return "Tracking"
	case Name:
		return "Name"
	case Message:
		return "Message"
	case Service:
		return "Service"
	case Landmarks:
		return "Landmarks"
	case RemoteConfig:
		return "RemoteConfig"
	case GroundTracking:
		return "GroundTracking"
	case HwInfoOld:
		return "HwInfoOld"
	case Thermal:
		return "Thermal"
	case HwInfo:
		return "HwInfo"
	default:
		return "Invalid"
	}
}

// MalformedPayload is returned when a received payload's bytes fail
// the length/header invariants for its declared type. The original
// bytes are retained for diagnostics.
type MalformedPayload struct {
	Type   Type
	Reason string
	Bytes  []byte
}

func (e *MalformedPayload) Error() string {
	return fmt.Sprintf("malformed %s payload: %s", e.Type, e.Reason)
}

// Payload is an immutable (type, bytes) pair. The byte slice is
// defensively copied on construction and on every read via Bytes, so
// no caller can mutate a Payload after the fact.
type Payload struct {
	typ  Type
	data []byte
}

// Type returns the payload's type tag.
func (p Payload) Type() Type { return p.typ }

// Bytes returns a copy of the payload's raw bytes.
func (p Payload) Bytes() []byte {
	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

// Len returns the number of raw payload bytes.
func (p Payload) Len() int { return len(p.data) }

func newPayload(t Type, data []byte) Payload {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Payload{typ: t, data: cp}
}

func invalid(t Type, reason string, data []byte) (Payload, error) {
	err := &MalformedPayload{Type: t, Reason: reason, Bytes: append([]byte(nil), data...)}
	return Payload{typ: Invalid, data: append([]byte(nil), data...)}, err
}

// FromReceived decodes bytes received over the wire for the declared
// type, enforcing each type's length/header invariants. On violation
// it returns a Payload tagged Invalid alongside a *MalformedPayload
// error; callers should log and drop the event, per the error
// taxonomy's MalformedPayload category.
//
// Thermal is a deliberate asymmetry, preserved from the reference
// implementation: an undersized Thermal payload is still returned
// tagged Thermal (not downgraded to Invalid), alongside the error, so
// that a caller who chooses to ignore the error can still read what
// fields the truncated payload does contain.
func FromReceived(t Type, data []byte) (Payload, error) {
	switch t {
	case GroundTracking:
		if len(data) != 7 {
			return invalid(t, fmt.Sprintf("GroundTracking length must be 7, got %d", len(data)), data)
		}
	case Tracking:
		if len(data) < 11 {
			return invalid(t, fmt.Sprintf("Tracking length must be >= 11, got %d", len(data)), data)
		}
	case Thermal:
		if len(data) < 11 {
			return newPayload(t, data), &MalformedPayload{
				Type:   t,
				Reason: fmt.Sprintf("Thermal length must be >= 11, got %d", len(data)),
				Bytes:  append([]byte(nil), data...),
			}
		}
	case HwInfoOld:
		if len(data) < 3 {
			return invalid(t, fmt.Sprintf("HwInfoOld length must be >= 3, got %d", len(data)), data)
		}
	case HwInfo:
		if len(data) < 1 {
			return invalid(t, "HwInfo payload empty", data)
		}
		if data[0]&0x80 != 0 {
			return invalid(t, "HwInfo pull-request bit set, rejected", data)
		}
		minLen := hwInfoMinLength(data[0])
		if len(data) < minLen {
			return invalid(t, fmt.Sprintf("HwInfo length must be >= %d for header 0x%02x, got %d", minLen, data[0], len(data)), data)
		}
	case Service:
		if len(data) < 1 {
			return invalid(t, "Service payload empty", data)
		}
		minLen := serviceMinLength(data[0])
		if len(data) < minLen {
			return invalid(t, fmt.Sprintf("Service length must be >= %d for header 0x%02x, got %d", minLen, data[0], len(data)), data)
		}
	}
	return newPayload(t, data), nil
}

// NewAck builds an Ack payload (empty body).
func NewAck() Payload {
	return newPayload(Ack, nil)
}

// NewName builds a Name payload from a station display name. Per
// §4.1.5 the body is raw Latin-1 text with no header byte.
func NewName(name string) Payload {
	return newPayload(Name, latin1Encode(name))
}

// NewMessage builds a Message payload with the "normal" header byte
// (0x00) followed by Latin-1 text.
func NewMessage(text string) Payload {
	body := make([]byte, 0, 1+len(text))
	body = append(body, 0x00)
	body = append(body, latin1Encode(text)...)
	return newPayload(Message, body)
}

// latin1Encode truncates each rune to its low byte, which is exact
// for the Latin-1 range and matches the reference implementation's
// use of an 8-bit text encoding for station names and messages.
func latin1Encode(s string) []byte {
	rs := []rune(s)
	out := make([]byte, len(rs))
	for i, r := range rs {
		out[i] = byte(r)
	}
	return out
}

// Text decodes a Name or Message payload's bytes back to a string,
// skipping Message's leading header byte. It returns "" for any other
// payload type.
func (p Payload) Text() string {
	switch p.typ {
	case Name:
		return latin1Decode(p.data)
	case Message:
		if len(p.data) < 1 {
			return ""
		}
		return latin1Decode(p.data[1:])
	default:
		return ""
	}
}

func latin1Decode(b []byte) string {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs)
}
