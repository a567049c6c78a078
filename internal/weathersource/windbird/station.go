// Package windbird polls a single station on the OpenWindMap/Windbird
// community wind network (api.pioupiou.fr). Grounded on
// original_source/'s WindbirdApi adapter; no temperature capability is
// offered, matching the reference implementation.
package windbird

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
	apiURLFormat   = "http://api.pioupiou.fr/v1/live/%d"
	replyLimit     = 2048
	requestTimeout = 15 * time.Second
	dateLayout     = "2006-01-02T15:04:05.999Z07:00"
)

// Config is one windbird-kind station's static configuration.
type Config struct {
	ID       int
	Name     string
	Position payload.LatLonAlt
}

type apiResponse struct {
	Data struct {
		ID   int `json:"id"`
		Meta struct {
			Name string `json:"name"`
		} `json:"meta"`
		Measurements struct {
			WindSpeedAvg float64 `json:"wind_speed_avg"`
			WindSpeedMax float64 `json:"wind_speed_max"`
			WindHeading  float64 `json:"wind_heading"`
			Date         string  `json:"date"`
		} `json:"measurements"`
	} `json:"data"`
}

// Station implements weathersource.Source over the Windbird/pioupiou
// live JSON API.
type Station struct {
	cfg    Config
	client *http.Client
	logger *zap.SugaredLogger
	poller *weathersource.Poller

	mu         sync.Mutex
	name       string
	lastUpdate time.Time
	windDir    int
	windSpeed  int
	windGusts  int
}

// NewStation builds a Station for cfg. ctx bounds the lifetime of its
// background poll loop.
func NewStation(ctx context.Context, cfg Config, logger *zap.SugaredLogger) *Station {
	s := &Station{
		cfg:    cfg,
		name:   cfg.Name,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.Named("windbird").With("station_id", cfg.ID),
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

// Temperature is not offered by the Windbird network; matches the
// reference implementation's availableData(), which omits Temperature.
func (s *Station) Temperature() int { return 0 }

func (s *Station) Available() weathersource.Capability {
	return weathersource.CapWindDirection | weathersource.CapWindSpeed | weathersource.CapWindGusts
}

func (s *Station) SetUpdateInterval(d time.Duration) { s.poller.SetUpdateInterval(d) }

func (s *Station) Update(ctx context.Context) error { return s.poller.Update(ctx) }

// Close stops the background poll loop.
func (s *Station) Close() { s.poller.Close() }

func (s *Station) poll(ctx context.Context) error {
	url := fmt.Sprintf(apiURLFormat, s.cfg.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("windbird: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("windbird: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("windbird: unexpected status %d", resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, replyLimit)).Decode(&data); err != nil {
		return fmt.Errorf("windbird: decode response: %w", err)
	}
	if data.Data.Measurements.Date == "" {
		return fmt.Errorf("windbird: incomplete response")
	}
	if data.Data.ID != s.cfg.ID {
		return fmt.Errorf("windbird: response for wrong station id %d", data.Data.ID)
	}
	dt, err := time.Parse(dateLayout, data.Data.Measurements.Date)
	if err != nil {
		return fmt.Errorf("windbird: parse date: %w", err)
	}

	s.mu.Lock()
	if data.Data.Meta.Name != "" {
		s.name = data.Data.Meta.Name
	}
	s.windDir = int(data.Data.Measurements.WindHeading + 0.5)
	s.windSpeed = int(data.Data.Measurements.WindSpeedAvg*10 + 0.5)
	s.windGusts = int(data.Data.Measurements.WindSpeedMax*10 + 0.5)
	s.lastUpdate = dt
	s.mu.Unlock()

	s.logger.Debugw("windbird: updated",
		"wind_speed_x10", s.windSpeed, "wind_gusts_x10", s.windGusts, "wind_dir", s.windDir)
	return nil
}
