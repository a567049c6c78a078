package payload

import "testing"

func TestDeviceName(t *testing.T) {
	tests := []struct {
		manufacturer, device byte
		want                 string
	}{
		{0x00, 0x00, "reserved/invalid"},
		{0x01, 0x01, "Skytraxx Wind station"},
		{0x01, 0x02, "Skytraxx unknown"},
		{0x11, 0x20, "Skybean Strato"},
		{0x11, 0x99, "FANET+ unknown"},
		{0xFB, 0x01, "Skytraxx WiFi base station"},
		{0xFB, 0x02, "Espressif base station"},
		{0x99, 0x00, "unknown"},
	}
	for _, tt := range tests {
		if got := DeviceName(tt.manufacturer, tt.device); got != tt.want {
			t.Errorf("DeviceName(0x%02x, 0x%02x) = %q, want %q", tt.manufacturer, tt.device, got, tt.want)
		}
	}
}

func TestHwInfoOldDeviceFirmwareUptime(t *testing.T) {
	// device id 0x01, build date 2024-6-15, uptime 100 minutes packed
	// across bytes 3-4 in 15s steps (raw 0x190 = 400).
	data := []byte{0x01, 0xCF, 0x0A, 0x90, 0x10}
	p, err := FromReceived(HwInfoOld, data)
	if err != nil {
		t.Fatalf("FromReceived(HwInfoOld) failed: %v", err)
	}
	if got := p.DeviceType(0x01); got != "Skytraxx Wind station" {
		t.Errorf("DeviceType(0x01) = %q, want Skytraxx Wind station", got)
	}
	if got := p.FirmwareBuild(); got != "2024-6-15" {
		t.Errorf("FirmwareBuild() = %q, want 2024-6-15", got)
	}
	if got := p.Uptime(); got != 100 {
		t.Errorf("Uptime() = %d, want 100", got)
	}
}

func TestHwInfoDeviceFirmwareUptime(t *testing.T) {
	// header 0x50: subtype+build-date (0x40) and uptime (0x10) present.
	data := []byte{0x50, 0x01, 0xCF, 0x0A, 0xC8, 0x00}
	p, err := FromReceived(HwInfo, data)
	if err != nil {
		t.Fatalf("FromReceived(HwInfo) failed: %v", err)
	}
	if got := p.DeviceType(0x01); got != "Skytraxx Wind station" {
		t.Errorf("DeviceType(0x01) = %q, want Skytraxx Wind station", got)
	}
	if got := p.FirmwareBuild(); got != "2024-6-15" {
		t.Errorf("FirmwareBuild() = %q, want 2024-6-15", got)
	}
	if got := p.Uptime(); got != 200 {
		t.Errorf("Uptime() = %d, want 200", got)
	}
}

func TestUptimeAbsentReturnsSentinel(t *testing.T) {
	p, err := FromReceived(HwInfo, []byte{0x00})
	if err != nil {
		t.Fatalf("FromReceived(HwInfo) failed: %v", err)
	}
	if got := p.Uptime(); got != -1 {
		t.Errorf("Uptime() on header without uptime bit = %d, want -1", got)
	}
	if got := p.FirmwareBuild(); got != "" {
		t.Errorf("FirmwareBuild() on header without subtype bit = %q, want \"\"", got)
	}
	if got := p.DeviceType(0x01); got != "Skytraxx unknown" {
		t.Errorf("DeviceType() on header without subtype bit = %q, want Skytraxx unknown (device id 0)", got)
	}
}
