// Package holfuywidget extracts live wind data from Holfuy's public
// embeddable widget page, for stations whose owner has not issued an
// API key (so the JSON live API in holfuyapi is unavailable).
// Grounded on original_source/'s HolfuyWidget adapter, which scrapes
// the same `newWind(...)` JavaScript call out of the widget HTML.
package holfuywidget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/weathersource"
)

const (
	widgetURLFormat = "https://widget.holfuy.com/?station=%d&su=km/h&t=C&lang=en&mode=rose&size=160"
	replyLimit      = 5120
	requestTimeout  = 15 * time.Second
	dataStart       = "newWind("
	dataStop        = ");"
	timeOfDayLayout = "15:04"
)

// Config is one holfuywidget-kind station's static configuration.
type Config struct {
	ID       int
	Name     string
	Position payload.LatLonAlt
}

// Station implements weathersource.Source by scraping the Holfuy
// public widget page's embedded "newWind(dir,wind,temp,gust,'HH:mm')"
// call.
type Station struct {
	cfg    Config
	client *http.Client
	logger *zap.SugaredLogger
	poller *weathersource.Poller

	mu          sync.Mutex
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
		client: &http.Client{Timeout: requestTimeout},
		logger: logger.Named("holfuywidget").With("station_id", cfg.ID),
	}
	s.poller = weathersource.NewPoller(ctx, s.poll, s.logger)
	return s
}

func (s *Station) ID() int                     { return s.cfg.ID }
func (s *Station) Name() string                { return s.cfg.Name }
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
	url := fmt.Sprintf(widgetURLFormat, s.cfg.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("holfuywidget: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("holfuywidget: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("holfuywidget: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, replyLimit))
	if err != nil {
		return fmt.Errorf("holfuywidget: read response: %w", err)
	}

	dir, wind, gust, temp, tod, err := parseWidget(string(body))
	if err != nil {
		return fmt.Errorf("holfuywidget: %w", err)
	}

	now := time.Now()
	lastUpdate := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), 0, 0, now.Location())

	s.mu.Lock()
	s.windDir = dir
	s.windSpeed = wind
	s.windGusts = gust
	s.temperature = temp
	s.lastUpdate = lastUpdate
	s.mu.Unlock()

	s.logger.Debugw("holfuywidget: updated",
		"wind_speed_x10", s.windSpeed, "wind_gusts_x10", s.windGusts,
		"wind_dir", s.windDir, "temperature_cx10", s.temperature)
	return nil
}

// parseWidget extracts dir, wind×10, gust×10, temperature×10 and the
// observation time-of-day from a "newWind(dir,wind,temp,gust,'HH:mm')"
// call embedded in the widget's HTML, matching the reference's
// delimiter-based extraction and comma-separated field order.
func parseWidget(html string) (dir, wind, gust, temp int, tod time.Time, err error) {
	start := strings.Index(html, dataStart)
	if start < 0 {
		return 0, 0, 0, 0, time.Time{}, fmt.Errorf("no weather data found in widget response")
	}
	start += len(dataStart)
	stop := strings.Index(html[start:], dataStop)
	if stop < 0 {
		return 0, 0, 0, 0, time.Time{}, fmt.Errorf("unterminated weather data in widget response")
	}
	raw := html[start : start+stop]

	fields := strings.Split(raw, ",")
	if len(fields) < 5 {
		return 0, 0, 0, 0, time.Time{}, fmt.Errorf("malformed widget payload: %q", raw)
	}

	dir, errDir := strconv.Atoi(strings.TrimSpace(fields[0]))
	windInt, errWind := strconv.Atoi(strings.TrimSpace(fields[1]))
	tempF, errTemp := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	gustInt, errGust := strconv.Atoi(strings.TrimSpace(fields[3]))
	rawTime := strings.Trim(strings.TrimSpace(fields[4]), "'")
	t, errTime := time.Parse(timeOfDayLayout, rawTime)
	if errDir != nil || errWind != nil || errTemp != nil || errGust != nil || errTime != nil {
		return 0, 0, 0, 0, time.Time{}, fmt.Errorf("failed to parse widget payload: %q", raw)
	}

	return dir, windInt * 10, gustInt * 10, int(tempF * 10), t, nil
}
