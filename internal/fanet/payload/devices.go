package payload

// fanetPlusDeviceNames maps device ids within manufacturer 0x11
// (FANET+) to the specific hardware model, transcribed from
// fanetpayload.cpp's deviceFromId() nested switch.
var fanetPlusDeviceNames = map[byte]string{
	0x01: "Skytraxx 3.0",
	0x02: "Skytraxx 2.1",
	0x03: "Skytraxx Beacon",
	0x04: "Skytraxx 4.0",
	0x05: "Skytraxx 5",
	0x06: "Skytraxx 5mini",
	0x10: "Naviter Oudie 5",
	0x11: "Naviter Blade",
	0x12: "Naviter Oudie N",
	0x20: "Skybean Strato",
}

// DeviceName returns the human-readable hardware model for a
// (manufacturerID, deviceID) pair embedded in a HwInfo/HwInfoOld
// payload, transcribed from fanetpayload.cpp's deviceFromId().
func DeviceName(manufacturerID, deviceID byte) string {
	switch manufacturerID {
	case 0x00:
		return "reserved/invalid"
	case 0x01:
		if deviceID == 0x01 {
			return "Skytraxx Wind station"
		}
		return "Skytraxx unknown"
	case 0x03:
		return "BitBroker.eu"
	case 0x04:
		return "AirWhere"
	case 0x05:
		return "Windline"
	case 0x06:
		if deviceID == 0x01 {
			return "Burnair base station WiFi"
		}
		return "Burnair unknown"
	case 0x07:
		return "SoftRF"
	case 0x08:
		return "GXAircom"
	case 0x09:
		return "Airtribune"
	case 0x0A:
		return "FLARM"
	case 0x0B:
		return "FlyBeeper"
	case 0x0C:
		return "Leaf Vario"
	case 0x10:
		return "alfapilot"
	case 0x11:
		if name, ok := fanetPlusDeviceNames[deviceID]; ok {
			return name
		}
		return "FANET+ unknown"
	case 0x20:
		return "XC Tracer"
	case 0xCB:
		return "Cloudbuddy"
	case 0xDD, 0xDE, 0xDF, 0xF0:
		return "reserved/compat."
	case 0xE0:
		return "OGN Tracker"
	case 0xE4:
		return "4aviation"
	case 0xFA:
		return "Various/GetroniX"
	case 0xFB:
		if deviceID == 0x01 {
			return "Skytraxx WiFi base station"
		}
		return "Espressif base station"
	case 0xFC, 0xFD:
		return "Unregistered device"
	default:
		return "unknown"
	}
}
