package payload

import "fmt"

// HwInfoFlag is a bit of a HwInfo/HwInfoOld payload's header byte.
type HwInfoFlag uint8

const (
	HwInfoExtendedHeader      HwInfoFlag = 0x01
	HwInfoRSSIAndAddress      HwInfoFlag = 0x08
	HwInfoUptime              HwInfoFlag = 0x10
	HwInfoICAO                HwInfoFlag = 0x20
	HwInfoSubtypeAndBuildDate HwInfoFlag = 0x40
	HwInfoPullRequest         HwInfoFlag = 0x80
)

type hwInfoLayout struct {
	extHeaderAt int
	subtypeAt   int // subtype byte + 2-byte build date follow
	icaoAt      int
	uptimeAt    int
	rssiAddrAt  int
	minLength   int
}

// layoutHwInfo computes the section offsets and the minimum payload
// length implied by header's optional-section flags. Section order (extended header,
// then subtype+build-date, uptime, ICAO, RSSI+address) follows
// fanetpayload.cpp's deviceType()/firmwareBuild()/uptime() index
// arithmetic, which only ever accounts for the extended-header and
// subtype+build-date sections ahead of uptime: ICAO and RSSI+address
// come after it.
func layoutHwInfo(header byte) hwInfoLayout {
	f := HwInfoFlag(header)
	l := hwInfoLayout{extHeaderAt: -1, subtypeAt: -1, icaoAt: -1, uptimeAt: -1, rssiAddrAt: -1}
	offset := 1
	if f&HwInfoExtendedHeader != 0 {
		l.extHeaderAt = offset
		offset++
	}
	if f&HwInfoSubtypeAndBuildDate != 0 {
		l.subtypeAt = offset
		offset += 3
	}
	if f&HwInfoUptime != 0 {
		l.uptimeAt = offset
		offset += 2
	}
	if f&HwInfoICAO != 0 {
		l.icaoAt = offset
		offset += 3
	}
	if f&HwInfoRSSIAndAddress != 0 {
		l.rssiAddrAt = offset
		offset += 4
	}
	l.minLength = offset
	return l
}

func hwInfoMinLength(header byte) int {
	return layoutHwInfo(header).minLength
}

// BuildDate is the decoded 2-byte build-date field carried by
// HwInfo's subtype+build-date section.
type BuildDate struct {
	Experimental bool
	Year         int // full year, e.g. 2024
	Month        int
	Day          int
}

func decodeBuildDate(raw uint16) BuildDate {
	return BuildDate{
		Experimental: raw&0x8000 != 0,
		Year:         2019 + int((raw>>9)&0x3F),
		Month:        int((raw >> 5) & 0x0F),
		Day:          int(raw & 0x1F),
	}
}

func formatBuildDate(d BuildDate) string {
	suffix := ""
	if d.Experimental {
		suffix = " (experimental)"
	}
	return fmt.Sprintf("%d-%d-%d%s", d.Year, d.Month, d.Day, suffix)
}

// HwSubtypeAndBuildDate returns the hardware subtype byte and decoded
// build date for a HwInfo payload with bit 6 set.
func (p Payload) HwSubtypeAndBuildDate() (subtype byte, date BuildDate, ok bool) {
	if p.typ != HwInfo || len(p.data) < 1 {
		return 0, BuildDate{}, false
	}
	l := layoutHwInfo(p.data[0])
	if l.subtypeAt < 0 || len(p.data) < l.subtypeAt+3 {
		return 0, BuildDate{}, false
	}
	subtype = p.data[l.subtypeAt]
	raw := uint16(p.data[l.subtypeAt+1]) | uint16(p.data[l.subtypeAt+2])<<8
	return subtype, decodeBuildDate(raw), true
}

// DeviceType returns the human-readable hardware name for a HwInfo or
// HwInfoOld payload's embedded device id, looked up against
// manufacturerID (normally the sender address's manufacturer byte).
// It returns "" for any other payload type.
func (p Payload) DeviceType(manufacturerID byte) string {
	var deviceID byte
	switch p.typ {
	case HwInfo:
		if len(p.data) < 1 {
			return ""
		}
		l := layoutHwInfo(p.data[0])
		if l.subtypeAt >= 0 && len(p.data) > l.subtypeAt {
			deviceID = p.data[l.subtypeAt]
		}
	case HwInfoOld:
		if len(p.data) < 1 {
			return ""
		}
		deviceID = p.data[0]
	default:
		return ""
	}
	return DeviceName(manufacturerID, deviceID)
}

// FirmwareBuild returns the decoded firmware build date for a HwInfo
// payload with bit 6 set, or a HwInfoOld payload, formatted as
// "YYYY-M-D", with an " (experimental)" suffix when the experimental
// flag is set. It returns "" when no build date is present.
func (p Payload) FirmwareBuild() string {
	var index int
	switch p.typ {
	case HwInfo:
		if len(p.data) < 1 {
			return ""
		}
		l := layoutHwInfo(p.data[0])
		if l.subtypeAt >= 0 {
			index = l.subtypeAt + 1
		}
	case HwInfoOld:
		index = 1
	default:
		return ""
	}
	if index == 0 || len(p.data) < index+2 {
		return ""
	}
	raw := uint16(p.data[index]) | uint16(p.data[index+1])<<8
	return formatBuildDate(decodeBuildDate(raw))
}

// Uptime returns the decoded device uptime in minutes for a HwInfo
// payload with bit 4 set (16-bit little-endian minutes) or a
// HwInfoOld payload (12-bit value packed across bytes 3 and 4, in
// 15-second steps, shifted right by 2 to give minutes). It returns -1
// when no uptime is present.
func (p Payload) Uptime() int {
	switch p.typ {
	case HwInfo:
		if len(p.data) < 1 {
			return -1
		}
		l := layoutHwInfo(p.data[0])
		if l.uptimeAt < 0 || len(p.data) < l.uptimeAt+2 {
			return -1
		}
		raw := uint16(p.data[l.uptimeAt]) | uint16(p.data[l.uptimeAt+1])<<8
		return int(raw)
	case HwInfoOld:
		if len(p.data) < 5 {
			return -1
		}
		raw := (uint16(p.data[4]&0xF0) << 4) | uint16(p.data[3])
		return int(raw >> 2)
	default:
		return -1
	}
}
