package payload

// AverageClimb returns the Thermal payload's average climb rate in
// m/s x10 (byte 8, same scale rules as Tracking's climb byte).
func (p Payload) AverageClimb() (msX10 int, ok bool) {
	if p.typ != Thermal || len(p.data) < 9 {
		return 0, false
	}
	return decodeScaledClimbByte(p.data[8]), true
}

// AverageWindSpeed returns the Thermal payload's average wind speed
// in km/h x10 (byte 9, same scale rules as Tracking's speed byte).
func (p Payload) AverageWindSpeed() (kmhX10 int, ok bool) {
	if p.typ != Thermal || len(p.data) < 10 {
		return 0, false
	}
	return decodeScaledSpeedByte(p.data[9]), true
}

// AverageWindHeading returns the Thermal payload's average wind
// heading in whole degrees (byte 10).
func (p Payload) AverageWindHeading() (deg int, ok bool) {
	if p.typ != Thermal || len(p.data) < 11 {
		return 0, false
	}
	return int(roundHalfAwayFromZero(float64(p.data[10]) * 360.0 / 256.0)), true
}

// Quality returns the Thermal payload's 3-bit confidence, rescaled to
// a 0..100 percentage (byte 7 bits 4-6).
func (p Payload) Quality() (percent int, ok bool) {
	if p.typ != Thermal || len(p.data) < 8 {
		return 0, false
	}
	bits := (p.data[7] >> 4) & 0x07
	return int(roundHalfAwayFromZero(100.0 * float64(bits) / 7.0)), true
}
