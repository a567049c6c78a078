// Package holfuyapi polls a single Holfuy weather station's live-data
// JSON endpoint (api.holfuy.com), grounded on original_source/'s
// HolfuyApi adapter.
package holfuyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/weathersource"
)

const (
	apiURLFormat = "http://api.holfuy.com/live/?s=%d&pw=%s&m=JSON&tu=C&su=km/h&avg=0&utc"
	replyLimit   = 1024
	requestTimeout = 15 * time.Second
	dateLayout   = "2006-01-02 15:04:05"
	expectedWindUnit = "km/h"
)

// Config is one holfuyapi-kind station's static configuration.
type Config struct {
	ID       int
	APIKey   string
	Name     string
	Position payload.LatLonAlt
}

type apiResponse struct {
	StationName string  `json:"stationName"`
	DateTime    string  `json:"dateTime"`
	Temperature float64 `json:"temperature"`
	Wind        struct {
		Speed     float64 `json:"speed"`
		Gust      float64 `json:"gust"`
		Direction int     `json:"direction"`
		Unit      string  `json:"unit"`
	} `json:"wind"`
}

// Station implements weathersource.Source over the Holfuy live JSON API.
type Station struct {
	cfg    Config
	client *http.Client
	logger *zap.SugaredLogger
	poller *weathersource.Poller

	mu          sync.Mutex
	name        string
	lastUpdate  time.Time
	windDir     int
	windSpeed   int
	windGusts   int
	temperature int
}

// NewStation builds a Station for cfg. ctx bounds the lifetime of its
// background poll loop.
func NewStation(ctx context.Context, cfg Config, logger *zap.SugaredLogger) *Station {
	s := &Station{
		cfg:    cfg,
		name:   cfg.Name,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.Named("holfuyapi").With("station_id", cfg.ID),
	}
	s.poller = weathersource.NewPoller(ctx, s.poll, s.logger)
	return s
}

func (s *Station) ID() int { return s.cfg.ID }

func (s *Station) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Station) Position() payload.LatLonAlt { return s.cfg.Position }

func (s *Station) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

func (s *Station) WindDir() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windDir
}

func (s *Station) WindSpeed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windSpeed
}

func (s *Station) WindGusts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windGusts
}

func (s *Station) Temperature() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.temperature
}

func (s *Station) Available() weathersource.Capability {
	return weathersource.CapWindDirection | weathersource.CapWindSpeed |
		weathersource.CapWindGusts | weathersource.CapTemperature
}

func (s *Station) SetUpdateInterval(d time.Duration) { s.poller.SetUpdateInterval(d) }

func (s *Station) Update(ctx context.Context) error { return s.poller.Update(ctx) }

// Close stops the background poll loop.
func (s *Station) Close() { s.poller.Close() }

func (s *Station) poll(ctx context.Context) error {
	url := fmt.Sprintf(apiURLFormat, s.cfg.ID, s.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("holfuyapi: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("holfuyapi: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("holfuyapi: unexpected status %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, replyLimit)).Decode(&data); err != nil {
		return fmt.Errorf("holfuyapi: decode response: %w", err)
	}
	if data.DateTime == "" || data.Wind.Unit == "" {
		return fmt.Errorf("holfuyapi: incomplete response")
	}
	if data.Wind.Unit != expectedWindUnit {
		return fmt.Errorf("holfuyapi: unexpected wind unit %q", data.Wind.Unit)
	}
	dt, err := time.ParseInLocation(dateLayout, data.DateTime, time.UTC)
	if err != nil {
		return fmt.Errorf("holfuyapi: parse dateTime: %w", err)
	}

	s.mu.Lock()
	if data.StationName != "" {
		s.name = data.StationName
	}
	s.windDir = data.Wind.Direction
	s.windSpeed = int(data.Wind.Speed * 10)
	s.windGusts = int(data.Wind.Gust * 10)
	s.temperature = int(data.Temperature * 10)
	s.lastUpdate = dt
	s.mu.Unlock()

	s.logger.Debugw("holfuyapi: updated",
		"wind_speed_x10", s.windSpeed, "wind_gusts_x10", s.windGusts,
		"wind_dir", s.windDir, "temperature_cx10", s.temperature)
	return nil
}
