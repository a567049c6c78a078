package address

import "testing"

func TestParseFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		addr Address
		sep  string
	}{
		{"comma separator", Address{Manufacturer: 0x0b, Device: 0x032e}, ","},
		{"colon separator", Address{Manufacturer: 0x0b, Device: 0x032e}, ":"},
		{"broadcast", Broadcast, ","},
		{"invalid sentinel", Invalid, ","},
		{"zero device", Address{Manufacturer: 0x7a, Device: 0}, ","},
		{"max device", Address{Manufacturer: 0xff, Device: 0xfffe}, ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatted := tt.addr.Format(tt.sep)
			got, err := Parse(formatted)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", formatted, err)
			}
			if got != tt.addr {
				t.Errorf("round trip mismatch: got %+v, want %+v (via %q)", got, tt.addr, formatted)
			}
		})
	}
}

func TestFormatIsFixedWidth(t *testing.T) {
	a := Address{Manufacturer: 0x0b, Device: 0x2e}
	got := a.Format(",")
	want := "0b,002e"
	if got != want {
		t.Errorf("Format() = %q, want %q (must be fixed-width per field)", got, want)
	}
}

func TestParseAcceptsVariableWidth(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"b,32e", Address{Manufacturer: 0x0b, Device: 0x32e}},
		{"0b,032e", Address{Manufacturer: 0x0b, Device: 0x32e}},
		{"B,32E", Address{Manufacturer: 0x0b, Device: 0x32e}},
		{"0,0", Broadcast},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	tests := []string{
		"",
		"nosep",
		"12345,dddd",
		"0b,",
		"0b,00001",
		"gg,0000",
	}
	for _, in := range tests {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestIsBroadcastAndIsValid(t *testing.T) {
	if !Broadcast.IsBroadcast() {
		t.Error("Broadcast.IsBroadcast() = false")
	}
	if Invalid.IsValid() {
		t.Error("Invalid.IsValid() = true")
	}
	if !Broadcast.IsValid() {
		t.Error("Broadcast.IsValid() = false")
	}
	ordinary := Address{Manufacturer: 0x0b, Device: 42}
	if ordinary.IsBroadcast() {
		t.Error("ordinary address reports IsBroadcast() = true")
	}
	if !ordinary.IsValid() {
		t.Error("ordinary address reports IsValid() = false")
	}
}

func TestManufacturerName(t *testing.T) {
	if got := ManufacturerName(0x01); got != "Skytraxx" {
		t.Errorf("ManufacturerName(0x01) = %q, want Skytraxx", got)
	}
	if got := ManufacturerName(0x03); got != "BitBroker.eu" {
		t.Errorf("ManufacturerName(0x03) = %q, want BitBroker.eu", got)
	}
	if got := ManufacturerName(0x0a); got != "FLARM" {
		t.Errorf("ManufacturerName(0x0a) = %q, want FLARM", got)
	}
	if got := ManufacturerName(0x99); got != "Invalid/Unknown" {
		t.Errorf("ManufacturerName(0x99) = %q, want Invalid/Unknown", got)
	}
}
