// Package message implements the FANET serial protocol's message
// taxonomy: commands sent to the radio, and the replies/events it
// sends back. A single tagged struct stands in for the reference
// implementation's class hierarchy of command/reply/event types;
// serialization is a switch on the tag, and parsing returns a
// populated Message or an error.
package message

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
)

// Kind tags which variant a Message holds.
type Kind int

const (
	KindVersionCommand Kind = iota
	KindRegionCommand
	KindEnableCommand
	KindTransmitCommand
	KindVersionReply
	KindRegionReply
	KindFanetReply
	KindPktReceived
)

// Frequency is one of the two FANET regional bands.
type Frequency int

const (
	Freq868 Frequency = 868
	Freq915 Frequency = 915
)

// ReplyKind is the first token of a GenericReply body.
type ReplyKind int

const (
	ReplyOk ReplyKind = iota
	ReplyMsg
	ReplyError
	ReplyAck
	ReplyNack
)

// GenericReply is the parsed body of an FNR/DGR reply.
//
// Addr is only populated for Ack/Nack, matching transmitreply.cpp's
// TransmitReply constructor: the tokens after the keyword are parsed
// as an Address. Msg/Error carry a Code and Text instead, and only
// when the body supplies both a code and a text token after the
// keyword; with fewer tokens both stay at their zero values.
type GenericReply struct {
	Kind ReplyKind
	Code int
	Text string
	Addr address.Address
}

// ReceiveEvent is the parsed body of an FNF inbound-packet event.
type ReceiveEvent struct {
	Sender    address.Address
	Broadcast bool
	Signature string
	Payload   payload.Payload
}

// Message is a single tagged variant covering every command, reply,
// and event the serial protocol exchanges.
type Message struct {
	Kind Kind

	// Command fields.
	TxPower         int
	Frequency       Frequency
	EnableFlag      bool
	TransmitAddr    address.Address
	TransmitPayload payload.Payload
	Unicast         bool

	// Reply fields.
	Firmware string
	Reply    GenericReply

	// Event field.
	Event ReceiveEvent
}

// NewVersionCommand builds the "DGV" version query command.
func NewVersionCommand() Message {
	return Message{Kind: KindVersionCommand}
}

// NewRegionCommand builds the "DGL" region/power command. txPower is
// clamped to [2, 20] dBm at construction time, not at serialization.
func NewRegionCommand(txPower int, freq Frequency) Message {
	if txPower < 2 {
		txPower = 2
	}
	if txPower > 20 {
		txPower = 20
	}
	return Message{Kind: KindRegionCommand, TxPower: txPower, Frequency: freq}
}

// NewEnableCommand builds the "DGP" enable/disable command.
func NewEnableCommand(enable bool) Message {
	return Message{Kind: KindEnableCommand, EnableFlag: enable}
}

// NewTransmitCommand builds the "FNT" transmit command. unicast
// selects whether both the forward and ack bits are set (unicast) or
// cleared (broadcast) — the two always travel together.
func NewTransmitCommand(addr address.Address, p payload.Payload, unicast bool) Message {
	return Message{Kind: KindTransmitCommand, TransmitAddr: addr, TransmitPayload: p, Unicast: unicast}
}

// Serialize renders a command Message's wire body (without the
// leading '#' or trailing '\n', which the frame writer supplies).
func (m Message) Serialize() (string, error) {
	switch m.Kind {
	case KindVersionCommand:
		return "DGV", nil
	case KindRegionCommand:
		return fmt.Sprintf("DGL %d,%d", int(m.Frequency), m.TxPower), nil
	case KindEnableCommand:
		if m.EnableFlag {
			return "DGP 1", nil
		}
		return "DGP 0", nil
	case KindTransmitCommand:
		bit := 0
		if m.Unicast {
			bit = 1
		}
		payloadBytes := m.TransmitPayload.Bytes()
		return fmt.Sprintf("FNT %d,%s,%d,%d,%x,%s",
			int(m.TransmitPayload.Type()),
			m.TransmitAddr.Format(","),
			bit, bit,
			len(payloadBytes),
			hex.EncodeToString(payloadBytes),
		), nil
	default:
		return "", fmt.Errorf("message: kind %d is not a command", m.Kind)
	}
}

// ParseBody dispatches a trimmed frame body to the matching reply or
// event parser using its first 3 ASCII characters. Per §4.2, bodies
// shorter than 4 bytes are silently ignored (nil, nil); an
// unrecognized prefix is reported as an error for the caller to log
// as a warning.
func ParseBody(body string) (*Message, error) {
	if len(body) < 4 {
		return nil, nil
	}
	prefix := body[:3]
	rest := body[4:]

	switch prefix {
	case "FNF":
		ev, err, fatal := parseReceiveEvent(rest)
		if fatal {
			// MalformedFrame (bad address/hex/type token) or
			// MalformedPayload against an invariant that invalidates
			// the payload outright: the event is dropped entirely.
			return nil, err
		}
		// A non-fatal err here is the Thermal length warning: the
		// payload is still tagged Thermal (not Invalid), so the event
		// is returned alongside the error for the caller to log.
		return &Message{Kind: KindPktReceived, Event: ev}, err
	case "FNR":
		reply, err := parseGenericReply(rest)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindFanetReply, Reply: reply}, nil
	case "DGV":
		fw, err := parseVersionReply(rest)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindVersionReply, Firmware: fw}, nil
	case "DGR":
		reply, err := parseGenericReply(rest)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: KindRegionReply, Reply: reply}, nil
	default:
		return nil, fmt.Errorf("message: unrecognized frame prefix %q", prefix)
	}
}

func parseVersionReply(body string) (string, error) {
	const prefix = "build-"
	if !strings.HasPrefix(body, prefix) {
		return "", fmt.Errorf("message: version reply %q missing %q prefix", body, prefix)
	}
	return strings.TrimPrefix(body, prefix), nil
}

func parseGenericReply(body string) (GenericReply, error) {
	tokens := strings.Split(body, ",")
	if len(tokens) == 0 {
		return GenericReply{}, fmt.Errorf("message: empty reply body")
	}
	kind := strings.TrimSpace(tokens[0])
	switch kind {
	case "OK":
		return GenericReply{Kind: ReplyOk}, nil
	case "MSG":
		return GenericReply{Kind: ReplyMsg, Code: parseOptionalCode(tokens), Text: optionalText(tokens)}, nil
	case "ERR":
		return GenericReply{Kind: ReplyError, Code: parseOptionalCode(tokens), Text: optionalText(tokens)}, nil
	case "ACK":
		return GenericReply{Kind: ReplyAck, Addr: parseReplyAddr(tokens)}, nil
	case "NACK":
		return GenericReply{Kind: ReplyNack, Addr: parseReplyAddr(tokens)}, nil
	default:
		return GenericReply{}, fmt.Errorf("message: unrecognized reply keyword %q", kind)
	}
}

// parseReplyAddr decodes the tokens after an ACK/NACK keyword as an
// Address, mirroring transmitreply.cpp's TransmitReply constructor
// (FanetAddress(data.mid(data.indexOf(FANET_DATA_SEP)+1))). Address.
// Parse accepts the joined remainder's "MM,DDDD" shape directly; a
// malformed or missing address yields the zero Address rather than an
// error, since an unparsable ACK/NACK address is still a valid reply.
func parseReplyAddr(tokens []string) address.Address {
	if len(tokens) < 3 {
		return address.Address{}
	}
	addr, err := address.Parse(strings.TrimSpace(tokens[1]) + "," + strings.TrimSpace(tokens[2]))
	if err != nil {
		return address.Address{}
	}
	return addr
}

func parseOptionalCode(tokens []string) int {
	if len(tokens) <= 2 {
		return 0
	}
	code, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
	if err != nil {
		return 0
	}
	return code
}

func optionalText(tokens []string) string {
	if len(tokens) <= 2 {
		return ""
	}
	return strings.TrimSpace(tokens[2])
}

// LogFields flattens a ReceiveEvent into SugaredLogger-style
// alternating key/value pairs, one payload-type-specific field set per
// case, mirroring receiveevent.cpp's toString() field selection.
func (ev ReceiveEvent) LogFields() []interface{} {
	fields := []interface{}{"sender", ev.Sender.String(), "broadcast", ev.Broadcast}
	switch ev.Payload.Type() {
	case payload.Name:
		fields = append(fields, "name", ev.Payload.Text())
	case payload.Message:
		fields = append(fields, "message", ev.Payload.Text())
	case payload.Tracking:
		pos, _ := ev.Payload.Position()
		alt, _ := ev.Payload.Altitude()
		speed, _ := ev.Payload.Speed()
		climb, _ := ev.Payload.ClimbRate()
		heading, _ := ev.Payload.Heading()
		fields = append(fields,
			"position", pos, "altitude_m", alt, "speed_kmh_x10", speed,
			"climb_ms_x10", climb, "heading_deg", heading,
			"aircraft", ev.Payload.AircraftType().String())
	case payload.Thermal:
		pos, _ := ev.Payload.Position()
		quality, _ := ev.Payload.Quality()
		alt, _ := ev.Payload.Altitude()
		climb, _ := ev.Payload.AverageClimb()
		wind, _ := ev.Payload.AverageWindSpeed()
		heading, _ := ev.Payload.AverageWindHeading()
		fields = append(fields,
			"position", pos, "quality_pct", quality, "altitude_m", alt,
			"avg_climb_ms_x10", climb, "avg_wind_kmh_x10", wind,
			"avg_wind_heading_deg", heading)
	case payload.GroundTracking:
		pos, _ := ev.Payload.Position()
		fields = append(fields, "position", pos, "type", ev.Payload.GroundTrackingType().String())
	case payload.HwInfo, payload.HwInfoOld:
		fields = append(fields,
			"device", ev.Payload.DeviceType(ev.Sender.Manufacturer),
			"firmware", ev.Payload.FirmwareBuild(),
			"uptime_min", ev.Payload.Uptime())
	case payload.Service:
		pos, _ := ev.Payload.Position()
		temp, _ := ev.Payload.Temperature()
		dir, wind, gusts, _ := ev.Payload.WindDirWindGusts()
		fields = append(fields,
			"position", pos, "temperature_cx10", temp, "wind_dir_deg", dir,
			"wind_kmh_x10", wind, "gusts_kmh_x10", gusts)
	}
	return fields
}

func parseReceiveEvent(body string) (ev ReceiveEvent, err error, fatal bool) {
	tokens := strings.Split(body, ",")
	if len(tokens) < 7 {
		return ReceiveEvent{}, fmt.Errorf("message: receive event has %d tokens, want >= 7", len(tokens)), true
	}

	addr, err := address.Parse(tokens[0] + "," + tokens[1])
	if err != nil {
		return ReceiveEvent{}, fmt.Errorf("message: receive event address: %w", err), true
	}

	typ, err := strconv.ParseUint(strings.TrimSpace(tokens[4]), 16, 8)
	if err != nil {
		return ReceiveEvent{}, fmt.Errorf("message: receive event payload type %q: %w", tokens[4], err), true
	}

	raw, err := hex.DecodeString(strings.TrimSpace(tokens[6]))
	if err != nil {
		return ReceiveEvent{}, fmt.Errorf("message: receive event payload hex %q: %w", tokens[6], err), true
	}

	p, payloadErr := payload.FromReceived(payload.Type(typ), raw)

	ev = ReceiveEvent{
		Sender:    addr,
		Broadcast: strings.TrimSpace(tokens[2]) == "1",
		Signature: strings.TrimSpace(tokens[3]),
		Payload:   p,
	}
	if payloadErr != nil && p.Type() == payload.Invalid {
		return ReceiveEvent{}, payloadErr, true
	}
	return ev, payloadErr, false
}
