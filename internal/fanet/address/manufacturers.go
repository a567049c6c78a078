package address

// manufacturerNames maps FANET manufacturer ids to vendor names,
// transcribed from fanetaddress.cpp's manufacturerName() switch.
var manufacturerNames = map[uint8]string{
	0x00: "reserved/broadcast",
	0x01: "Skytraxx",
	0x03: "BitBroker.eu",
	0x04: "AirWhere",
	0x05: "Windline",
	0x06: "Burnair.ch",
	0x07: "SoftRF",
	0x08: "GXAircom",
	0x09: "Airtribune",
	0x0a: "FLARM",
	0x0b: "FlyBeeper",
	0x10: "alfapilot",
	0x11: "FANET+",
	0x20: "XC Tracer",
	0xcb: "Cloudbuddy",
	0xdd: "reserved (compat.)",
	0xde: "reserved (compat.)",
	0xdf: "reserved (compat.)",
	0xf0: "reserved (compat.)",
	0xe0: "OGN Tracker",
	0xe4: "4aviation",
	0xfa: "Various",
	0xfb: "Expressif based stations",
	0xfc: "Unregistered devices",
	0xfd: "Unregistered devices",
	0xfe: "reserved/multicast",
	0xff: "reserved/broadcast",
}

// ManufacturerName returns the human-readable vendor name registered
// for id, or "Invalid/Unknown" if id is not in the registry, matching
// fanetaddress.cpp's default case.
func ManufacturerName(id uint8) string {
	if name, ok := manufacturerNames[id]; ok {
		return name
	}
	return "Invalid/Unknown"
}
