// Package weathersource abstracts the upstream data providers a
// configured station can be backed by — a cloud weather API, an
// embeddable JSON/HTML widget, or a community wind-network API —
// behind one capability set the dispatcher composes broadcasts from.
package weathersource

import (
	"context"
	"time"

	"github.com/mlohse/fanetgs/internal/fanet/payload"
)

// Capability is a bitset of the observation fields a Source can
// supply, mirroring the reference implementation's WeatherDataFlags.
type Capability uint8

const (
	CapWindSpeed Capability = 1 << iota
	CapWindGusts
	CapWindDirection
	CapTemperature
	CapHumidity
)

// Has reports whether bit is set in c.
func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Source is the dispatcher's view of a configured weather station: an
// upstream provider polled on its own schedule, exposing its most
// recent observation through plain getters. Per §4.4/C7, the
// dispatcher does not poll these getters on its fast path; it reads
// them only when composing a broadcast.
type Source interface {
	ID() int
	Name() string
	Position() payload.LatLonAlt
	LastUpdate() time.Time
	WindDir() int
	WindSpeed() int  // km/h ×10
	WindGusts() int  // km/h ×10
	Temperature() int // °C ×10
	Available() Capability
	SetUpdateInterval(d time.Duration)
	Update(ctx context.Context) error
}
