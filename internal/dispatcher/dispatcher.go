// Package dispatcher owns the broadcast cadence policy (§4.4): it
// ticks once per second when armed, gates Name/Service broadcasts on
// recently-seen FANET traffic, and composes outbound payloads from the
// configured weather stations. Like internal/radio, all of its mutable
// state lives on a single internal goroutine; external callers talk to
// it by enqueuing closures, the same actor shape the radio FSM uses.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/radio"
	"github.com/mlohse/fanetgs/internal/weathersource"
)

const tickInterval = 1 * time.Second

// Config is the dispatcher's cadence policy, read once at construction.
// A zero duration disables the corresponding check per §4.4.
type Config struct {
	InactivityTimeout time.Duration
	TxIntervalNames   time.Duration
	TxIntervalWeather time.Duration
	WeatherDataMaxAge time.Duration
}

// Radio is the subset of *radio.Radio the dispatcher drives.
type Radio interface {
	SupportsAddressChange() bool
	Transmit(ctx context.Context, addr address.Address, p payload.Payload) bool
}

// Station pairs a configured weather source with the polling interval
// it should run at once updates are enabled.
type Station struct {
	Source       weathersource.Source
	PollInterval time.Duration
}

// Dispatcher drives the Name/Service broadcast cadence described in
// §4.4, reacting to radio state changes and inbound traffic.
type Dispatcher struct {
	cfg      Config
	radio    Radio
	stations []Station
	logger   *zap.SugaredLogger

	actionCh chan func()
	loopDone chan struct{}

	armed         bool
	lastNodeSeen  time.Time
	lastNameTx    time.Time
	lastWeatherTx time.Time
}

// New builds a Dispatcher. Call Run to start its event loop, and wire
// HandleStateChange/HandlePacket to the radio's own callbacks.
func New(cfg Config, r Radio, stations []Station, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		radio:    r,
		stations: stations,
		logger:   logger,
		actionCh: make(chan func(), 8),
		loopDone: make(chan struct{}),
	}
}

// Run starts the dispatcher's internal event loop and blocks until ctx
// is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.loopDone)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case action := <-d.actionCh:
			action()
		case <-ticker.C:
			if d.armed {
				d.onTick(time.Now().UTC())
			}
		}
	}
}

// HandleStateChange reacts to a radio state transition. Wire this to
// the radio's OnStateChange callback.
func (d *Dispatcher) HandleStateChange(s radio.State) {
	d.enqueue(func() {
		if s != radio.Ready {
			return
		}
		if len(d.stations) > 1 && !d.radio.SupportsAddressChange() {
			d.logger.Warnw("dispatcher: radio firmware cannot change sender address between transmits; only the first configured station will be broadcast",
				"station_count", len(d.stations))
		}
		d.enableUpdates(time.Now().UTC())
	})
}

// HandlePacket reacts to an inbound FANET packet. Wire this to the
// radio's OnPacket callback.
func (d *Dispatcher) HandlePacket(ev message.ReceiveEvent) {
	d.enqueue(func() {
		switch ev.Payload.Type() {
		case payload.Tracking, payload.GroundTracking:
			now := time.Now().UTC()
			d.lastNodeSeen = now
			if !d.armed {
				d.logger.Infow("dispatcher: traffic seen while disabled, re-enabling updates", "sender", ev.Sender)
				d.enableUpdates(now)
			}
		}
	})
}

func (d *Dispatcher) enqueue(action func()) {
	select {
	case d.actionCh <- action:
	case <-d.loopDone:
	}
}

// enableUpdates arms the tick, starts each station polling at its
// configured interval, and kicks off one immediate poll per station.
// It does not touch last_node_seen: reaching Ready alone does not
// count as traffic, so if last_node_seen is still unset the very next
// tick's inactivity check (§4.4 step 1) disarms it again until an
// actual PktReceived event arrives — see TestActivityGating.
func (d *Dispatcher) enableUpdates(now time.Time) {
	d.armed = true
	for _, st := range d.stations {
		st.Source.SetUpdateInterval(st.PollInterval)
		go func(st Station) {
			if err := st.Source.Update(context.Background()); err != nil {
				d.logger.Warnw("dispatcher: initial poll failed", "station_id", st.Source.ID(), "error", err)
			}
		}(st)
	}
}

func (d *Dispatcher) disableUpdates() {
	d.armed = false
	for _, st := range d.stations {
		st.Source.SetUpdateInterval(0)
	}
}

// onTick implements the per-tick decision order from §4.4: inactivity
// check, then names, then weather.
func (d *Dispatcher) onTick(now time.Time) {
	if d.cfg.InactivityTimeout > 0 &&
		(d.lastNodeSeen.IsZero() || now.Sub(d.lastNodeSeen) > d.cfg.InactivityTimeout) {
		d.logger.Infow("dispatcher: no traffic seen recently, disabling updates", "last_node_seen", d.lastNodeSeen)
		d.disableUpdates()
		return
	}
	if d.cfg.TxIntervalNames > 0 &&
		(d.lastNameTx.IsZero() || now.Sub(d.lastNameTx) > d.cfg.TxIntervalNames) {
		d.broadcastNames()
		d.lastNameTx = now
	}
	if d.cfg.TxIntervalWeather > 0 &&
		(d.lastWeatherTx.IsZero() || now.Sub(d.lastWeatherTx) > d.cfg.TxIntervalWeather) {
		d.broadcastWeather(now)
		d.lastWeatherTx = now
	}
}

// broadcastNames sends a Name payload per station, in configuration
// order, stopping after the first when the radio cannot change its
// sender address between transmits.
func (d *Dispatcher) broadcastNames() {
	for _, st := range d.stations {
		p := payload.NewName(st.Source.Name())
		if !d.radio.Transmit(context.Background(), address.Broadcast, p) {
			d.logger.Warnw("dispatcher: name broadcast failed", "station_id", st.Source.ID())
		}
		if !d.radio.SupportsAddressChange() {
			return
		}
	}
}

// broadcastWeather sends a Service payload per station whose last
// observation is still fresh, in configuration order, with the same
// single-station fallback as broadcastNames.
func (d *Dispatcher) broadcastWeather(now time.Time) {
	for _, st := range d.stations {
		lastUpdate := st.Source.LastUpdate()
		if lastUpdate.IsZero() || now.Sub(lastUpdate) > d.cfg.WeatherDataMaxAge {
			d.logger.Debugw("dispatcher: skipping stale station", "station_id", st.Source.ID(), "last_update", lastUpdate)
		} else {
			flags := payload.Wind
			if st.Source.Available().Has(weathersource.CapTemperature) {
				flags |= payload.Temperature
			}

			p := payload.NewService(payload.ServiceEncodeParams{
				Flags:       flags,
				Position:    st.Source.Position(),
				TempCx10:    st.Source.Temperature(),
				DirDeg:      st.Source.WindDir(),
				WindKmhX10:  st.Source.WindSpeed(),
				GustsKmhX10: st.Source.WindGusts(),
			})
			if !d.radio.Transmit(context.Background(), address.Broadcast, p) {
				d.logger.Warnw("dispatcher: weather broadcast failed", "station_id", st.Source.ID())
			}
		}
		if !d.radio.SupportsAddressChange() {
			return
		}
	}
}
