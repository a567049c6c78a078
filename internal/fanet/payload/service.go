package payload

// ServiceFlag is a bit of a Service payload's header byte (byte 0).
type ServiceFlag uint8

const (
	ExtendedHeader      ServiceFlag = 0x01
	StateOfCharge       ServiceFlag = 0x02
	SupportRemoteConfig ServiceFlag = 0x04
	Pressure            ServiceFlag = 0x08
	Humidity            ServiceFlag = 0x10
	Wind                ServiceFlag = 0x20
	Temperature         ServiceFlag = 0x40
	InternetGateway     ServiceFlag = 0x80
)

// nonDataServiceFlags are the header bits that do not, by themselves,
// require a position block: a station can declare itself an internet
// gateway, remote-config-capable, or carrying an extended header
// without reporting any weather data at all.
const nonDataServiceFlags = ExtendedHeader | SupportRemoteConfig | InternetGateway

// Has reports whether flag is set in the header byte f.
func (f ServiceFlag) Has(flag ServiceFlag) bool { return f&flag != 0 }

// serviceLayout describes where each optional Service section landed
// inside the payload's byte slice, in the fixed order position →
// temperature → wind-triple → humidity → pressure → state-of-charge,
// with the Extended Header byte (if present) immediately after byte 0.
type serviceLayout struct {
	flags          ServiceFlag
	extHeaderAt    int // -1 if absent
	positionAt     int
	temperatureAt  int
	windAt         int
	humidityAt     int
	pressureAt     int
	stateOfChargeAt int
	minLength      int
}

func layoutService(header byte) serviceLayout {
	flags := ServiceFlag(header)
	l := serviceLayout{flags: flags, extHeaderAt: -1, positionAt: -1, temperatureAt: -1, windAt: -1, humidityAt: -1, pressureAt: -1, stateOfChargeAt: -1}

	offset := 1
	if flags.Has(ExtendedHeader) {
		l.extHeaderAt = offset
		offset++
	}

	positionMandatory := ServiceFlag(header)&^nonDataServiceFlags != 0
	if positionMandatory {
		l.positionAt = offset
		offset += 6
	}
	if flags.Has(Temperature) {
		l.temperatureAt = offset
		offset++
	}
	if flags.Has(Wind) {
		l.windAt = offset
		offset += 3
	}
	if flags.Has(Humidity) {
		l.humidityAt = offset
		offset++
	}
	if flags.Has(Pressure) {
		l.pressureAt = offset
		offset += 2
	}
	if flags.Has(StateOfCharge) {
		l.stateOfChargeAt = offset
		offset++
	}
	l.minLength = offset
	return l
}

func serviceMinLength(header byte) int {
	return layoutService(header).minLength
}

// ServiceEncodeParams carries the inputs to the Service encoder
// (§4.1.7). Fields not implied by Flags are ignored.
type ServiceEncodeParams struct {
	Flags       ServiceFlag
	Position    LatLonAlt
	TempCx10    int // °C x10
	DirDeg      int // 0..359
	WindKmhX10  int
	GustsKmhX10 int
	Humidity    int // percent RH, 0..100
	PressureHPa float64
}

// NewService encodes an outbound Service (weather) payload per the
// encoder contract in §4.1.7. Position is emitted (as zeros when
// invalid) whenever any data-bearing flag beyond
// InternetGateway/SupportRemoteConfig/ExtendedHeader is set — this is
// reproduced literally from the reference encoder, including the
// zero-position case for an unconfigured station position.
func NewService(p ServiceEncodeParams) Payload {
	l := layoutService(byte(p.Flags))
	body := make([]byte, l.minLength)
	body[0] = byte(p.Flags)

	if l.positionAt >= 0 {
		encodePosition(body[l.positionAt:l.positionAt+6], p.Position)
	}
	if l.temperatureAt >= 0 {
		body[l.temperatureAt] = encodeServiceTemperature(p.TempCx10)
	}
	if l.windAt >= 0 {
		encodeServiceWind(body[l.windAt:l.windAt+3], p.DirDeg, p.WindKmhX10, p.GustsKmhX10)
	}
	if l.humidityAt >= 0 {
		body[l.humidityAt] = encodeServiceHumidity(p.Humidity)
	}
	if l.pressureAt >= 0 {
		encodeServicePressure(body[l.pressureAt:l.pressureAt+2], p.PressureHPa)
	}
	return newPayload(Service, body)
}

func encodeServiceTemperature(tempCx10 int) byte {
	return byte(int8(roundHalfAwayFromZero(float64(tempCx10) / 5.0)))
}

func encodeServiceWind(dst []byte, dirDeg, windX10, gustsX10 int) {
	dirRaw := int(roundHalfAwayFromZero(float64(dirDeg)*256.0/360.0)) % 256
	if dirRaw < 0 {
		dirRaw += 256
	}
	dst[0] = byte(dirRaw)
	dst[1] = encodeServiceWindByte(windX10)
	dst[2] = encodeServiceWindByte(gustsX10)
}

// encodeServiceWindByte packs a km/h x10 speed into a scale-bit + 7-bit
// magnitude byte: values above 254 km/h x10 (i.e. above 25.4 km/h)
// switch to a x5 coarser scale (units of 1 km/h instead of 0.2 km/h)
// so the 7-bit field still fits.
func encodeServiceWindByte(vX10 int) byte {
	if vX10 > 254 {
		scaled := int(roundHalfAwayFromZero(float64(vX10) / 10.0))
		return 0x80 | byte(scaled&0x7F)
	}
	return byte((vX10 >> 1) & 0x7F)
}

func encodeServiceHumidity(humidity int) byte {
	return byte(int(roundHalfAwayFromZero(float64(humidity) / 4.0)))
}

func encodeServicePressure(dst []byte, hPa float64) {
	raw := int16(roundHalfAwayFromZero((hPa - 430.0) * 10.0))
	dst[0] = byte(raw)
	dst[1] = byte(raw >> 8)
}

// Flags returns the Service header byte's flags. Zero for any other
// payload type.
func (p Payload) Flags() ServiceFlag {
	if p.typ != Service || len(p.data) < 1 {
		return 0
	}
	return ServiceFlag(p.data[0])
}

// Position returns the decoded ground position carried by a Tracking,
// GroundTracking, Thermal, or Service payload. ok is false if the
// payload type carries no position or the position section is absent.
func (p Payload) Position() (pos LatLonAlt, ok bool) {
	switch p.typ {
	case Tracking, GroundTracking, Thermal:
		if len(p.data) < 6 {
			return LatLonAlt{}, false
		}
		lat, lon := decodePosition(p.data[0:6])
		return LatLonAlt{Lat: lat, Lon: lon}, true
	case Service:
		l := layoutService(p.data[0])
		if l.positionAt < 0 || len(p.data) < l.positionAt+6 {
			return LatLonAlt{}, false
		}
		lat, lon := decodePosition(p.data[l.positionAt : l.positionAt+6])
		return LatLonAlt{Lat: lat, Lon: lon}, true
	default:
		return LatLonAlt{}, false
	}
}

// Temperature returns the decoded temperature in °C x10 carried by a
// Service payload with the Temperature flag set.
func (p Payload) Temperature() (tempCx10 int, ok bool) {
	if p.typ != Service || len(p.data) < 1 {
		return 0, false
	}
	l := layoutService(p.data[0])
	if l.temperatureAt < 0 || len(p.data) <= l.temperatureAt {
		return 0, false
	}
	raw := int8(p.data[l.temperatureAt])
	return int(raw) * 5, true
}

// WindDirWindGusts returns the decoded wind direction (degrees),
// average speed, and gust speed (both km/h x10) carried by a Service
// payload with the Wind flag set.
func (p Payload) WindDirWindGusts() (dirDeg, windX10, gustsX10 int, ok bool) {
	if p.typ != Service || len(p.data) < 1 {
		return 0, 0, 0, false
	}
	l := layoutService(p.data[0])
	if l.windAt < 0 || len(p.data) < l.windAt+3 {
		return 0, 0, 0, false
	}
	b := p.data[l.windAt : l.windAt+3]
	dirDeg = int(roundHalfAwayFromZero(float64(b[0]) * 360.0 / 256.0))
	return dirDeg, decodeServiceWindByte(b[1]), decodeServiceWindByte(b[2]), true
}

func decodeServiceWindByte(b byte) int {
	if b&0x80 != 0 {
		return int(b&0x7F) * 10
	}
	return int(b&0x7F) * 2
}

// Humidity returns the decoded relative humidity percentage carried by
// a Service payload with the Humidity flag set.
func (p Payload) Humidity() (percent int, ok bool) {
	if p.typ != Service || len(p.data) < 1 {
		return 0, false
	}
	l := layoutService(p.data[0])
	if l.humidityAt < 0 || len(p.data) <= l.humidityAt {
		return 0, false
	}
	return int(p.data[l.humidityAt]) * 4, true
}

// PressureHPa returns the decoded barometric pressure carried by a
// Service payload with the Pressure flag set.
func (p Payload) PressureHPa() (hPa float64, ok bool) {
	if p.typ != Service || len(p.data) < 1 {
		return 0, false
	}
	l := layoutService(p.data[0])
	if l.pressureAt < 0 || len(p.data) < l.pressureAt+2 {
		return 0, false
	}
	raw := int16(uint16(p.data[l.pressureAt]) | uint16(p.data[l.pressureAt+1])<<8)
	return float64(raw)/10.0 + 430.0, true
}
