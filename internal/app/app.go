// Package app wires the configured radio, dispatcher, and weather
// stations together and runs them until a shutdown signal arrives,
// the same orchestration role the teacher's internal/app/app.go plays
// for its storage/station/controller managers.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/dispatcher"
	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/gpio"
	"github.com/mlohse/fanetgs/internal/ipc"
	"github.com/mlohse/fanetgs/internal/mgmtapi"
	"github.com/mlohse/fanetgs/internal/radio"
	"github.com/mlohse/fanetgs/internal/weathersource"
	"github.com/mlohse/fanetgs/internal/weathersource/holfuyapi"
	"github.com/mlohse/fanetgs/internal/weathersource/holfuywidget"
	"github.com/mlohse/fanetgs/internal/weathersource/windbird"
	"github.com/mlohse/fanetgs/pkg/config"
)

// App is the composition root: it builds the radio, the stations, and
// the dispatcher from a loaded configuration document and runs them.
type App struct {
	doc    *config.Document
	logger *zap.SugaredLogger

	pidFile string

	mu      sync.Mutex
	lastEvt message.ReceiveEvent
	hasEvt  bool
}

// New creates an App from a loaded configuration document. pidFile
// may be empty to disable PID-file persistence.
func New(doc *config.Document, pidFile string, logger *zap.SugaredLogger) *App {
	return &App{doc: doc, pidFile: pidFile, logger: logger}
}

// Run builds the radio/station/dispatcher graph, starts it, writes
// the PID file, and blocks until ctx is canceled or a shutdown signal
// arrives. It returns after every worker goroutine has stopped and
// the PID file has been removed.
func (a *App) Run(ctx context.Context) error {
	if err := a.writePIDFile(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	defer a.removePIDFile()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gpioCtrl, err := gpio.NewController(a.logger)
	if err != nil {
		return fmt.Errorf("app: init gpio: %w", err)
	}

	radioCfg := radio.Config{
		Device:     a.doc.Radio.Device,
		TxPowerDBm: a.doc.Radio.TxPowerDBm,
		Frequency:  message.Frequency(a.doc.Radio.FrequencyMHz),
		BootPin:    gpio.PinConfig{Pin: gpio.Pin(a.doc.Radio.BootPin.Pin), Invert: a.doc.Radio.BootPin.Invert},
		ResetPin:   gpio.PinConfig{Pin: gpio.Pin(a.doc.Radio.ResetPin.Pin), Invert: a.doc.Radio.ResetPin.Invert},
	}
	r := radio.New(radioCfg, gpioCtrl, a.logger)

	stations, err := buildStations(ctx, a.doc.Stations, a.logger)
	if err != nil {
		return fmt.Errorf("app: build stations: %w", err)
	}

	dCfg := dispatcher.Config{
		InactivityTimeout: time.Duration(a.doc.Fanet.InactivityTimeoutSec) * time.Second,
		TxIntervalNames:   time.Duration(a.doc.Fanet.TxIntervalNamesSec) * time.Second,
		TxIntervalWeather: time.Duration(a.doc.Fanet.TxIntervalWeatherSec) * time.Second,
		WeatherDataMaxAge: time.Duration(a.doc.Fanet.WeatherDataMaxAgeSec) * time.Second,
	}
	d := dispatcher.New(dCfg, r, stations, a.logger)

	r.OnStateChange(d.HandleStateChange)
	r.OnPacket(func(ev message.ReceiveEvent) {
		a.logger.Debugw("app: received packet", ev.LogFields()...)
		a.recordEvent(ev)
		d.HandlePacket(ev)
	})

	wg.Add(2)
	go func() { defer wg.Done(); r.Run(ctx) }()
	go func() { defer wg.Done(); d.Run(ctx) }()

	r.Init()

	if err := a.startOptionalServices(ctx, &wg, r); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	a.logger.Infow("app: started")
	select {
	case <-sigs:
		a.logger.Infow("app: shutdown signal received")
	case <-ctx.Done():
		a.logger.Infow("app: context canceled")
	}

	r.Deinit()
	cancel()

	a.logger.Infow("app: waiting for workers to stop")
	wg.Wait()
	a.logger.Infow("app: shutdown complete")
	return nil
}

// startOptionalServices wires up the single-instance IPC listener and
// the loopback management API. The IPC listener always runs; the
// management API runs only when the configuration sets its listen
// address, and is skipped otherwise.
func (a *App) startOptionalServices(ctx context.Context, wg *sync.WaitGroup, r *radio.Radio) error {
	sockPath := ipc.DefaultSocketPath(a.pidFile)
	listener, err := ipc.Listen(sockPath, a.logger, ipc.Handler{
		Quit: func() {
			a.logger.Infow("ipc: quit requested by secondary instance")
			r.Deinit()
			os.Exit(0)
		},
		Message: func(addr address.Address, text string) {
			ok := r.Transmit(ctx, addr, payload.NewMessage(text))
			a.logger.Infow("ipc: message forwarded", "addr", addr, "ok", ok)
		},
	})
	if err != nil {
		return fmt.Errorf("start ipc listener: %w", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	if a.doc.ManagementAPI.ListenAddr == "" {
		a.logger.Infow("mgmtapi: no listen-addr configured, management API disabled")
		return nil
	}

	api := mgmtapi.New(a.doc.ManagementAPI.ListenAddr, mgmtapi.Status{
		State: func() string { return r.State().String() },
		LastEvent: func() (message.ReceiveEvent, bool) {
			a.mu.Lock()
			defer a.mu.Unlock()
			return a.lastEvt, a.hasEvt
		},
	}, func(addr address.Address, text string) bool {
		return r.Transmit(ctx, addr, payload.NewMessage(text))
	}, a.logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		api.Run(ctx)
	}()

	return nil
}

func (a *App) recordEvent(ev message.ReceiveEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastEvt = ev
	a.hasEvt = true
}

// buildStations constructs one weathersource.Source per configured
// station, dispatching on its kind.
func buildStations(ctx context.Context, cfgs []config.StationConfig, logger *zap.SugaredLogger) ([]dispatcher.Station, error) {
	stations := make([]dispatcher.Station, 0, len(cfgs))
	for _, sc := range cfgs {
		pos := payload.LatLonAlt{Lat: sc.Position.Lat, Lon: sc.Position.Lon, Alt: sc.Position.Alt}
		var src weathersource.Source
		switch sc.Kind {
		case config.StationHolfuyAPI:
			src = holfuyapi.NewStation(ctx, holfuyapi.Config{ID: sc.ID, APIKey: sc.APIKey, Name: sc.Name, Position: pos}, logger)
		case config.StationHolfuyWidget:
			src = holfuywidget.NewStation(ctx, holfuywidget.Config{ID: sc.ID, Name: sc.Name, Position: pos}, logger)
		case config.StationWindbird:
			src = windbird.NewStation(ctx, windbird.Config{ID: sc.ID, Name: sc.Name, Position: pos}, logger)
		default:
			return nil, fmt.Errorf("unknown station kind %q for station id %d", sc.Kind, sc.ID)
		}
		stations = append(stations, dispatcher.Station{
			Source:       src,
			PollInterval: time.Duration(sc.UpdateIntervalSec) * time.Second,
		})
	}
	return stations, nil
}

func (a *App) writePIDFile() error {
	if a.pidFile == "" {
		return nil
	}
	return os.WriteFile(a.pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644)
}

// removePIDFile removes the PID file only if it still contains this
// process's own pid, matching spec.md §6's "removed on exit if owned".
func (a *App) removePIDFile() {
	if a.pidFile == "" {
		return
	}
	data, err := os.ReadFile(a.pidFile)
	if err != nil {
		return
	}
	if fmt.Sprintf("%d\n", os.Getpid()) != string(data) {
		return
	}
	if err := os.Remove(a.pidFile); err != nil {
		a.logger.Warnw("app: failed to remove pid file", "path", a.pidFile, "error", err)
	}
}
