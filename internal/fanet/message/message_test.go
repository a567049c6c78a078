package message

import (
	"strconv"
	"testing"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
)

func TestSerializeVersionCommand(t *testing.T) {
	got, err := NewVersionCommand().Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if got != "DGV" {
		t.Errorf("got %q, want %q", got, "DGV")
	}
}

func TestSerializeRegionCommandClampsTxPower(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{14, 14},
		{20, 20},
		{25, 20},
	}
	for _, tt := range tests {
		got, err := NewRegionCommand(tt.in, Freq868).Serialize()
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		want := "DGL 868," + strconv.Itoa(tt.want)
		if got != want {
			t.Errorf("NewRegionCommand(%d): got %q, want %q", tt.in, got, want)
		}
	}
}

func TestSerializeEnableCommand(t *testing.T) {
	if got, _ := NewEnableCommand(true).Serialize(); got != "DGP 1" {
		t.Errorf("got %q, want DGP 1", got)
	}
	if got, _ := NewEnableCommand(false).Serialize(); got != "DGP 0" {
		t.Errorf("got %q, want DGP 0", got)
	}
}

func TestSerializeTransmitCommand(t *testing.T) {
	addr := address.Address{Manufacturer: 0x00, Device: 0x0000}
	p := payload.NewAck()
	got, err := NewTransmitCommand(addr, p, false).Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	want := "FNT 0,00,0000,0,0,0,"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseBodyShortIsIgnored(t *testing.T) {
	m, err := ParseBody("abc")
	if m != nil || err != nil {
		t.Errorf("short body: got (%v, %v), want (nil, nil)", m, err)
	}
}

func TestParseBodyUnknownPrefix(t *testing.T) {
	if _, err := ParseBody("XYZ whatever"); err == nil {
		t.Error("expected error for unrecognized prefix")
	}
}

func TestParseVersionReply(t *testing.T) {
	m, err := ParseBody("DGV build-202201131742")
	if err != nil {
		t.Fatalf("ParseBody failed: %v", err)
	}
	if m.Kind != KindVersionReply || m.Firmware != "202201131742" {
		t.Errorf("got %+v", m)
	}
}

func TestParseVersionReplyMissingPrefix(t *testing.T) {
	if _, err := ParseBody("DGV 202201131742"); err == nil {
		t.Error("expected error for version reply missing build- prefix")
	}
}

func TestParseGenericReplyVariants(t *testing.T) {
	tests := []struct {
		body     string
		kind     ReplyKind
		code     int
		text     string
		wantAddr address.Address
	}{
		{"FNR OK", ReplyOk, 0, "", address.Address{}},
		{"FNR MSG,1,initialized", ReplyMsg, 1, "initialized", address.Address{}},
		{"FNR ERR,5,bad command", ReplyError, 5, "bad command", address.Address{}},
		{"FNR ACK,0b,0042", ReplyAck, 0, "", address.Address{Manufacturer: 0x0b, Device: 0x0042}},
		{"FNR NACK,0b,0042", ReplyNack, 0, "", address.Address{Manufacturer: 0x0b, Device: 0x0042}},
	}
	for _, tt := range tests {
		m, err := ParseBody(tt.body)
		if err != nil {
			t.Fatalf("ParseBody(%q) failed: %v", tt.body, err)
		}
		if m.Reply.Kind != tt.kind || m.Reply.Code != tt.code || m.Reply.Text != tt.text {
			t.Errorf("ParseBody(%q) = %+v, want kind=%v code=%d text=%q", tt.body, m.Reply, tt.kind, tt.code, tt.text)
		}
		if m.Reply.Addr != tt.wantAddr {
			t.Errorf("ParseBody(%q) Addr = %+v, want %+v", tt.body, m.Reply.Addr, tt.wantAddr)
		}
	}
}

func TestParseReceiveEvent(t *testing.T) {
	body := "FNF 0b,032e,0,abcd,01,0b,5006fc0a0400aa0000000000"
	m, err := ParseBody(body)
	if err != nil {
		t.Fatalf("ParseBody failed: %v", err)
	}
	if m.Kind != KindPktReceived {
		t.Fatalf("got kind %v, want KindPktReceived", m.Kind)
	}
	want := address.Address{Manufacturer: 0x0b, Device: 0x032e}
	if m.Event.Sender != want {
		t.Errorf("sender = %+v, want %+v", m.Event.Sender, want)
	}
	if m.Event.Broadcast {
		t.Error("broadcast flag should be false for token '0'")
	}
	if m.Event.Signature != "abcd" {
		t.Errorf("signature = %q, want abcd", m.Event.Signature)
	}
	if m.Event.Payload.Type() != payload.Tracking {
		t.Errorf("payload type = %v, want Tracking", m.Event.Payload.Type())
	}
}

func TestParseReceiveEventTooFewTokens(t *testing.T) {
	if _, err := ParseBody("FNF 0b,032e,0"); err == nil {
		t.Error("expected error for receive event with too few tokens")
	}
}
