// Package config loads the ground-station daemon's configuration
// document: a versioned hierarchical record with a radio section, a
// fanet cadence section, and a list of weather stations (§3, §6 of the
// design). Two backends are provided, mirroring the teacher's
// ConfigProvider split: a read-only YAML file provider for the common
// case, and a SQLite provider for field deployments that want atomic
// config updates without shipping a text editor.
package config

import "fmt"

// ConfigProvider is the interface the rest of the daemon depends on;
// callers never need to know whether the document came from a YAML
// file or a SQLite database.
type ConfigProvider interface {
	LoadConfig() (*Document, error)
	IsReadOnly() bool
	Close() error
}

// Version is the configuration document's `version = MAJOR.MINOR`
// attribute.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Check validates v against the build's compiled version requirement:
// the major version must match exactly, and the minor version must be
// at least as new as what this build understands.
func (v Version) Check(compiledMajor, compiledMinor int) error {
	if v.Major != compiledMajor {
		return fmt.Errorf("config: document version %s is incompatible with this build's major version %d", v, compiledMajor)
	}
	if v.Minor < compiledMinor {
		return fmt.Errorf("config: document version %s is older than this build's minimum minor version %d", v, compiledMinor)
	}
	return nil
}

// Document is the complete, in-memory, value-copied configuration
// record the core consumes. The parser that produces it is an
// external collaborator to the core (§1); this package is that
// collaborator.
type Document struct {
	Version       Version
	Radio         RadioConfig
	Fanet         FanetConfig
	Stations      []StationConfig
	ManagementAPI ManagementAPIConfig
}

// ManagementAPIConfig configures the optional loopback diagnostics
// API (SPEC_FULL.md §6.2). A zero-value ListenAddr disables the API
// entirely; it is never required for core FANET behavior.
type ManagementAPIConfig struct {
	ListenAddr string
}

// PinConfig names a GPIO line and whether its sense is inverted.
type PinConfig struct {
	Pin    int
	Invert bool
}

// RadioConfig is the `radio` record (§3): uart device path, tx power,
// frequency, and the boot/reset GPIO lines.
type RadioConfig struct {
	Device       string
	TxPowerDBm   int
	FrequencyMHz int
	BootPin      PinConfig
	ResetPin     PinConfig
}

// FanetConfig is the `fanet` record (§3): the dispatcher's cadence
// policy, expressed in seconds in the document and converted to
// time.Duration on load.
type FanetConfig struct {
	TxIntervalWeatherSec int
	TxIntervalNamesSec   int
	InactivityTimeoutSec int
	WeatherDataMaxAgeSec int
}

// StationKind is one of the three supported weather-source adapters.
type StationKind string

const (
	StationHolfuyAPI    StationKind = "holfuyapi"
	StationHolfuyWidget StationKind = "holfuywidget"
	StationWindbird     StationKind = "windbird"
)

// PositionConfig is a station's fixed lat/lon/altitude, used to
// compose outbound Service payloads since none of the three providers
// report their own position.
type PositionConfig struct {
	Lat float64
	Lon float64
	Alt int
}

// StationConfig is one entry of the `stations` list (§3).
type StationConfig struct {
	Kind               StationKind
	ID                 int
	Name               string
	APIKey             string
	Position           PositionConfig
	UpdateIntervalSec  int
}
