package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files.
type YAMLProvider struct {
	filename string
	doc      *Document
}

// NewYAMLProvider creates a new YAML configuration provider.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// yamlDocument mirrors the on-disk shape with proper YAML tags; it is
// converted into the internal Document below, the same load-then-
// convert two-step the teacher's YAMLProvider uses for devices and
// controllers.
type yamlDocument struct {
	Version       string         `yaml:"version"`
	Radio         radioYAML      `yaml:"radio"`
	Fanet         fanetYAML      `yaml:"fanet"`
	Stations      []stationYAML  `yaml:"stations"`
	ManagementAPI managementYAML `yaml:"management-api,omitempty"`
}

type managementYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type pinYAML struct {
	Pin    int  `yaml:"pin"`
	Invert bool `yaml:"invert,omitempty"`
}

type radioYAML struct {
	Device       string  `yaml:"device"`
	TxPowerDBm   int     `yaml:"tx-power-dbm"`
	FrequencyMHz int     `yaml:"frequency-mhz"`
	BootPin      pinYAML `yaml:"boot-pin"`
	ResetPin     pinYAML `yaml:"reset-pin"`
}

type fanetYAML struct {
	TxIntervalWeatherSec int `yaml:"tx-interval-weather-sec"`
	TxIntervalNamesSec   int `yaml:"tx-interval-names-sec"`
	InactivityTimeoutSec int `yaml:"inactivity-timeout-sec"`
	WeatherDataMaxAgeSec int `yaml:"weather-data-max-age-sec"`
}

type stationYAML struct {
	Kind              string  `yaml:"kind"`
	ID                int     `yaml:"id"`
	Name              string  `yaml:"name"`
	APIKey            string  `yaml:"api-key,omitempty"`
	Lat               float64 `yaml:"lat"`
	Lon               float64 `yaml:"lon"`
	Alt               int     `yaml:"alt,omitempty"`
	UpdateIntervalSec int     `yaml:"update-interval-sec"`
}

// LoadConfig loads and converts the complete configuration document
// from the YAML file.
func (y *YAMLProvider) LoadConfig() (*Document, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", y.filename, err)
	}

	var yd yamlDocument
	if err := yaml.Unmarshal(raw, &yd); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", y.filename, err)
	}

	version, err := parseVersion(yd.Version)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", y.filename, err)
	}

	doc := &Document{
		Version: version,
		Radio: RadioConfig{
			Device:       yd.Radio.Device,
			TxPowerDBm:   yd.Radio.TxPowerDBm,
			FrequencyMHz: yd.Radio.FrequencyMHz,
			BootPin:      PinConfig{Pin: yd.Radio.BootPin.Pin, Invert: yd.Radio.BootPin.Invert},
			ResetPin:     PinConfig{Pin: yd.Radio.ResetPin.Pin, Invert: yd.Radio.ResetPin.Invert},
		},
		Fanet: FanetConfig{
			TxIntervalWeatherSec: yd.Fanet.TxIntervalWeatherSec,
			TxIntervalNamesSec:   yd.Fanet.TxIntervalNamesSec,
			InactivityTimeoutSec: yd.Fanet.InactivityTimeoutSec,
			WeatherDataMaxAgeSec: yd.Fanet.WeatherDataMaxAgeSec,
		},
		Stations:      make([]StationConfig, len(yd.Stations)),
		ManagementAPI: ManagementAPIConfig{ListenAddr: yd.ManagementAPI.ListenAddr},
	}

	for i, s := range yd.Stations {
		doc.Stations[i] = StationConfig{
			Kind:              StationKind(s.Kind),
			ID:                s.ID,
			Name:              s.Name,
			APIKey:            s.APIKey,
			Position:          PositionConfig{Lat: s.Lat, Lon: s.Lon, Alt: s.Alt},
			UpdateIntervalSec: s.UpdateIntervalSec,
		}
	}

	y.doc = doc
	return doc, nil
}

// parseVersion splits a "MAJOR.MINOR" string into a Version.
func parseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("malformed version %q, want MAJOR.MINOR", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("malformed version %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

// IsReadOnly returns true: YAML files are read-only through this
// interface, matching the teacher's YAMLProvider.
func (y *YAMLProvider) IsReadOnly() bool { return true }

// Close is a no-op for the YAML provider.
func (y *YAMLProvider) Close() error { return nil }
