package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider over a SQLite database,
// for field deployments that want to push an atomic configuration
// update without shipping a new YAML file. Schema:
//
//	CREATE TABLE document (version_major INTEGER, version_minor INTEGER);
//	CREATE TABLE radio (device TEXT, tx_power_dbm INTEGER, frequency_mhz INTEGER,
//	                    boot_pin INTEGER, boot_pin_invert INTEGER,
//	                    reset_pin INTEGER, reset_pin_invert INTEGER);
//	CREATE TABLE fanet (tx_interval_weather_sec INTEGER, tx_interval_names_sec INTEGER,
//	                    inactivity_timeout_sec INTEGER, weather_data_max_age_sec INTEGER);
//	CREATE TABLE stations (ord INTEGER, kind TEXT, id INTEGER, name TEXT, api_key TEXT,
//	                       lat REAL, lon REAL, alt INTEGER, update_interval_sec INTEGER);
//	CREATE TABLE management_api (listen_addr TEXT); -- optional; omit the table, or
//	                                                 -- leave it empty, to disable the API.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the SQLite database at dbPath and verifies
// the connection, matching the teacher's NewSQLiteProvider.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("config: open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("config: ping sqlite database: %w", err)
	}
	return &SQLiteProvider{db: db, dbPath: dbPath}, nil
}

// LoadConfig loads the complete configuration document from the
// database.
func (s *SQLiteProvider) LoadConfig() (*Document, error) {
	version, err := s.getVersion()
	if err != nil {
		return nil, fmt.Errorf("config: load version: %w", err)
	}
	radio, err := s.getRadio()
	if err != nil {
		return nil, fmt.Errorf("config: load radio: %w", err)
	}
	fanet, err := s.getFanet()
	if err != nil {
		return nil, fmt.Errorf("config: load fanet: %w", err)
	}
	stations, err := s.getStations()
	if err != nil {
		return nil, fmt.Errorf("config: load stations: %w", err)
	}
	mgmt := s.getManagementAPI()

	return &Document{
		Version:       version,
		Radio:         radio,
		Fanet:         fanet,
		Stations:      stations,
		ManagementAPI: mgmt,
	}, nil
}

func (s *SQLiteProvider) getVersion() (Version, error) {
	var major, minor int
	row := s.db.QueryRow(`SELECT version_major, version_minor FROM document LIMIT 1`)
	if err := row.Scan(&major, &minor); err != nil {
		return Version{}, fmt.Errorf("query document version: %w", err)
	}
	return Version{Major: major, Minor: minor}, nil
}

func (s *SQLiteProvider) getRadio() (RadioConfig, error) {
	var r RadioConfig
	var bootPin, resetPin int
	var bootInvert, resetInvert bool
	row := s.db.QueryRow(`
		SELECT device, tx_power_dbm, frequency_mhz,
		       boot_pin, boot_pin_invert, reset_pin, reset_pin_invert
		FROM radio LIMIT 1
	`)
	err := row.Scan(&r.Device, &r.TxPowerDBm, &r.FrequencyMHz,
		&bootPin, &bootInvert, &resetPin, &resetInvert)
	if err != nil {
		return RadioConfig{}, fmt.Errorf("query radio config: %w", err)
	}
	r.BootPin = PinConfig{Pin: bootPin, Invert: bootInvert}
	r.ResetPin = PinConfig{Pin: resetPin, Invert: resetInvert}
	return r, nil
}

func (s *SQLiteProvider) getFanet() (FanetConfig, error) {
	var f FanetConfig
	row := s.db.QueryRow(`
		SELECT tx_interval_weather_sec, tx_interval_names_sec,
		       inactivity_timeout_sec, weather_data_max_age_sec
		FROM fanet LIMIT 1
	`)
	err := row.Scan(&f.TxIntervalWeatherSec, &f.TxIntervalNamesSec,
		&f.InactivityTimeoutSec, &f.WeatherDataMaxAgeSec)
	if err != nil {
		return FanetConfig{}, fmt.Errorf("query fanet config: %w", err)
	}
	return f, nil
}

func (s *SQLiteProvider) getStations() ([]StationConfig, error) {
	rows, err := s.db.Query(`
		SELECT kind, id, name, api_key, lat, lon, alt, update_interval_sec
		FROM stations
		ORDER BY ord
	`)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var stations []StationConfig
	for rows.Next() {
		var st StationConfig
		var kind string
		var apiKey sql.NullString
		err := rows.Scan(&kind, &st.ID, &st.Name, &apiKey,
			&st.Position.Lat, &st.Position.Lon, &st.Position.Alt, &st.UpdateIntervalSec)
		if err != nil {
			return nil, fmt.Errorf("scan station row: %w", err)
		}
		st.Kind = StationKind(kind)
		if apiKey.Valid {
			st.APIKey = apiKey.String
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// getManagementAPI returns a zero-value (disabled) config if the
// management_api table is absent or empty, rather than treating it as
// a load error — the table is entirely optional.
func (s *SQLiteProvider) getManagementAPI() ManagementAPIConfig {
	var addr sql.NullString
	row := s.db.QueryRow(`SELECT listen_addr FROM management_api LIMIT 1`)
	if err := row.Scan(&addr); err != nil {
		return ManagementAPIConfig{}
	}
	return ManagementAPIConfig{ListenAddr: addr.String}
}

// IsReadOnly returns false: the SQLite provider supports atomic
// updates via ordinary SQL statements against the same database.
func (s *SQLiteProvider) IsReadOnly() bool { return false }

// Close closes the underlying database handle.
func (s *SQLiteProvider) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
