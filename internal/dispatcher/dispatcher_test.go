package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/radio"
	"github.com/mlohse/fanetgs/internal/weathersource"
)

type fakeRadio struct {
	mu                sync.Mutex
	supportsAddrChg   bool
	transmits         []payload.Payload
	transmitOK        bool
}

func (f *fakeRadio) SupportsAddressChange() bool { return f.supportsAddrChg }

func (f *fakeRadio) Transmit(ctx context.Context, addr address.Address, p payload.Payload) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transmits = append(f.transmits, p)
	return f.transmitOK
}

func (f *fakeRadio) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transmits)
}

func (f *fakeRadio) types() []payload.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]payload.Type, len(f.transmits))
	for i, p := range f.transmits {
		out[i] = p.Type()
	}
	return out
}

type fakeSource struct {
	mu         sync.Mutex
	id         int
	name       string
	lastUpdate time.Time
	available  weathersource.Capability
	interval   time.Duration
	updates    int
	// failUpdate makes Update fail without advancing lastUpdate, the
	// way a source whose upstream fetch keeps failing stays stale.
	failUpdate bool
}

func (s *fakeSource) ID() int   { return s.id }
func (s *fakeSource) Name() string { return s.name }
func (s *fakeSource) Position() payload.LatLonAlt { return payload.LatLonAlt{Lat: 47.5, Lon: 10.25} }
func (s *fakeSource) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}
func (s *fakeSource) WindDir() int    { return 90 }
func (s *fakeSource) WindSpeed() int  { return 80 }
func (s *fakeSource) WindGusts() int  { return 150 }
func (s *fakeSource) Temperature() int { return 215 }
func (s *fakeSource) Available() weathersource.Capability { return s.available }
func (s *fakeSource) SetUpdateInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}
func (s *fakeSource) Update(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.failUpdate {
		return errors.New("fake upstream fetch failed")
	}
	s.lastUpdate = time.Now().UTC()
	return nil
}

func newTestDispatcher(t *testing.T, cfg Config, r *fakeRadio, stations []Station) *Dispatcher {
	t.Helper()
	logger := zap.NewNop().Sugar()
	d := New(cfg, r, stations, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)
	return d
}

// TestActivityGating implements §8 scenario 5: reaching Ready alone
// (with no PktReceived ever delivered) never produces a transmit,
// because last_node_seen stays unset and the first tick's inactivity
// check disarms updates again; a Tracking event then starts
// broadcasting, and it stops again once the inactivity timeout elapses
// with no further traffic. The dispatcher's tick is a real 1s ticker,
// so this test runs on a multi-second wall-clock budget.
func TestActivityGating(t *testing.T) {
	r := &fakeRadio{transmitOK: true}
	src := &fakeSource{id: 1, name: "test", available: weathersource.CapTemperature | weathersource.CapWindSpeed}
	cfg := Config{
		InactivityTimeout: 2 * time.Second,
		TxIntervalWeather: 1 * time.Second,
		WeatherDataMaxAge: time.Hour,
	}
	d := newTestDispatcher(t, cfg, r, []Station{{Source: src, PollInterval: time.Hour}})
	d.HandleStateChange(radio.Ready)

	time.Sleep(1200 * time.Millisecond)
	if r.count() != 0 {
		t.Fatalf("expected no transmits before any traffic, got %d", r.count())
	}

	d.HandlePacket(message.ReceiveEvent{Sender: address.Broadcast, Payload: mustTracking(t)})
	time.Sleep(1200 * time.Millisecond)
	if r.count() == 0 {
		t.Fatal("expected at least one weather broadcast after Tracking event")
	}

	// The inactivity timeout runs from the Tracking event, so a tick
	// may still broadcast until it has elapsed; wait past it (and the
	// tick that disarms updates) before taking the baseline.
	time.Sleep(2 * time.Second)
	after := r.count()
	time.Sleep(3 * time.Second)
	stillAfter := r.count()
	if stillAfter != after {
		t.Fatalf("expected transmits to stop once inactivity timeout elapsed: after=%d stillAfter=%d", after, stillAfter)
	}
}

// TestSingleStationFallback implements §8 scenario 6: with two
// stations configured and a radio that cannot change its sender
// address, only the first station's data is ever broadcast.
func TestSingleStationFallback(t *testing.T) {
	r := &fakeRadio{transmitOK: true, supportsAddrChg: false}
	s1 := &fakeSource{id: 1, name: "first", available: weathersource.CapTemperature}
	s2 := &fakeSource{id: 2, name: "second", available: weathersource.CapTemperature}
	cfg := Config{TxIntervalNames: 1 * time.Second, WeatherDataMaxAge: time.Hour}
	d := newTestDispatcher(t, cfg, r, []Station{
		{Source: s1, PollInterval: time.Hour},
		{Source: s2, PollInterval: time.Hour},
	})
	s1.lastUpdate = time.Now().UTC()
	s2.lastUpdate = time.Now().UTC()

	d.HandleStateChange(radio.Ready)
	d.HandlePacket(message.ReceiveEvent{Sender: address.Broadcast, Payload: mustTracking(t)})
	time.Sleep(1200 * time.Millisecond)

	for _, p := range r.types() {
		if p != payload.Name {
			t.Fatalf("unexpected payload type broadcast: %v", p)
		}
	}
	if r.count() == 0 {
		t.Fatal("expected at least one name broadcast")
	}
	r.mu.Lock()
	var names []string
	for _, p := range r.transmits {
		names = append(names, p.Text())
	}
	r.mu.Unlock()
	for _, n := range names {
		if n != "first" {
			t.Fatalf("name broadcast from station %q, want only the first configured station", n)
		}
	}
}

// TestWeatherStaleStationFallback covers sendWeatherData()'s
// unconditional per-iteration fallback check: once a station is
// skipped as stale, a radio that cannot change its sender address
// must still stop broadcasting altogether, not fall through to the
// next (fresher) station in the list.
func TestWeatherStaleStationFallback(t *testing.T) {
	r := &fakeRadio{transmitOK: true, supportsAddrChg: false}
	stale := &fakeSource{id: 1, name: "stale", available: weathersource.CapTemperature, failUpdate: true}
	fresh := &fakeSource{id: 2, name: "fresh", available: weathersource.CapTemperature, lastUpdate: time.Now().UTC()}
	cfg := Config{TxIntervalWeather: 1 * time.Second, WeatherDataMaxAge: time.Hour}
	d := newTestDispatcher(t, cfg, r, []Station{
		{Source: stale, PollInterval: time.Hour},
		{Source: fresh, PollInterval: time.Hour},
	})

	d.HandleStateChange(radio.Ready)
	d.HandlePacket(message.ReceiveEvent{Sender: address.Broadcast, Payload: mustTracking(t)})
	time.Sleep(1200 * time.Millisecond)

	for _, p := range r.types() {
		if p == payload.Service {
			t.Fatal("weather broadcast reached station after a stale station on a radio without address change support")
		}
	}
}

func mustTracking(t *testing.T) payload.Payload {
	t.Helper()
	data := make([]byte, 11)
	p, err := payload.FromReceived(payload.Tracking, data)
	if err != nil {
		t.Fatalf("FromReceived(Tracking): %v", err)
	}
	return p
}
