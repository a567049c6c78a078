// Package radio drives an attached FANET radio module through its
// bring-up/operation state machine over a serial link: reset, init,
// firmware check, region/power set, enable, ready — with timeouts and
// recovery. It owns the serial device exclusively; every state
// mutation happens on a single internal goroutine, so the package
// reads as a hand-written event loop even though its public methods
// are safe to call from any goroutine.
package radio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	serial "github.com/tarm/goserial"
	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/frame"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/gpio"
)

const (
	resetPulse     = 250 * time.Millisecond
	initTimeout    = 10 * time.Second
	comTimeout     = 3 * time.Second
	expectedFw     = "202201131742"
	serialBaudRate = 115200
)

// Config is the radio's slice of the configuration document.
type Config struct {
	Device      string
	TxPowerDBm  int
	Frequency   message.Frequency
	BootPin     gpio.PinConfig
	ResetPin    gpio.PinConfig
}

// dialFunc opens the underlying transport. Production code dials the
// real serial device; tests substitute an in-memory pipe.
type dialFunc func(cfg Config) (io.ReadWriteCloser, error)

func dialSerial(cfg Config) (io.ReadWriteCloser, error) {
	conn, err := serial.OpenPort(&serial.Config{Name: cfg.Device, Baud: serialBaudRate})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &notFoundError{err}
		}
		return nil, err
	}
	return conn, nil
}

type notFoundError struct{ err error }

func (e *notFoundError) Error() string { return e.err.Error() }
func (e *notFoundError) Unwrap() error { return e.err }

// Radio owns the serial link to the FANET module and drives its
// bring-up/operation state machine.
type Radio struct {
	cfg    Config
	gpio   gpio.Controller
	logger *zap.SugaredLogger
	dial   dialFunc

	conn   io.ReadWriteCloser
	parser *frame.Parser
	writer *frame.Writer
	timer  *reArmTimer

	state State

	onStateChange func(State)
	onPacket      func(message.ReceiveEvent)

	actionCh chan func()
	readCh   chan []byte
	readErrC chan error
	loopDone chan struct{}
	cancel   context.CancelFunc
}

// New builds a Radio in the Disabled state. Call Init to bring it up.
func New(cfg Config, gpioCtrl gpio.Controller, logger *zap.SugaredLogger) *Radio {
	r := &Radio{
		cfg:      cfg,
		gpio:     gpioCtrl,
		logger:   logger,
		dial:     dialSerial,
		timer:    newReArmTimer(),
		state:    Disabled,
		actionCh: make(chan func(), 8),
		readCh:   make(chan []byte, 16),
		readErrC: make(chan error, 1),
		loopDone: make(chan struct{}),
	}
	r.parser = frame.NewParser(func(reason string) { r.logger.Warnw("radio: frame parser", "reason", reason) })
	return r
}

// OnStateChange registers cb to be invoked (on the radio's internal
// goroutine) whenever the state machine transitions.
func (r *Radio) OnStateChange(cb func(State)) { r.onStateChange = cb }

// OnPacket registers cb to be invoked (on the radio's internal
// goroutine) for every successfully decoded inbound FANET packet.
func (r *Radio) OnPacket(cb func(message.ReceiveEvent)) { r.onPacket = cb }

// State returns the current state. Safe to call from any goroutine;
// it reflects the last state observed by the loop, which may be
// marginally stale relative to a transition in flight.
func (r *Radio) State() State { return r.state }

// SupportsAddressChange reports whether the radio firmware allows the
// sender address to change between transmits. The stock firmware this
// project targets does not (an explicit Non-goal), so this is always
// false; it exists as a method, not a constant, so the Dispatcher
// reads it the same way a future firmware capability bit would be
// reported.
func (r *Radio) SupportsAddressChange() bool { return false }

// Run starts the radio's internal event loop and blocks until ctx is
// canceled. Call this from its own goroutine; every other exported
// method is safe to call concurrently with Run.
func (r *Radio) Run(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer close(r.loopDone)

	for {
		select {
		case <-loopCtx.Done():
			r.closeConn()
			return
		case action := <-r.actionCh:
			action()
		case data := <-r.readCh:
			r.onBytesRead(data)
		case err := <-r.readErrC:
			r.logger.Warnw("radio: serial read error", "error", err)
			r.setState(Error)
		case <-r.timer.C():
			r.timer.fired()
			r.onTimerFired()
		}
	}
}

// Init requests a (re-)bring-up. If the radio is already open it is
// deinitialized first, matching the reference implementation's
// "init() while open calls deinit() first" rule.
func (r *Radio) Init() {
	r.enqueue(func() { r.doInit() })
}

// Deinit requests an immediate return to Disabled from any state.
func (r *Radio) Deinit() {
	r.enqueue(func() { r.doDeinit() })
}

// Transmit requests transmission of payload p to addr, blocking until
// the radio's loop has processed the request (or ctx has been
// canceled, in which case it returns false). It returns false and
// writes nothing to the serial line unless the radio is Ready and
// addr is valid, per §4.3.
func (r *Radio) Transmit(ctx context.Context, addr address.Address, p payload.Payload) bool {
	result := make(chan bool, 1)
	select {
	case r.actionCh <- func() { result <- r.doTransmit(addr, p) }:
	case <-ctx.Done():
		return false
	case <-r.loopDone:
		return false
	}
	select {
	case ok := <-result:
		return ok
	case <-ctx.Done():
		return false
	case <-r.loopDone:
		return false
	}
}

func (r *Radio) enqueue(action func()) {
	select {
	case r.actionCh <- action:
	case <-r.loopDone:
	}
}

// --- internal, loop-goroutine-only from here down ---

func (r *Radio) setState(s State) {
	if r.state == s {
		return
	}
	r.state = s
	if r.onStateChange != nil {
		r.onStateChange(s)
	}
}

func (r *Radio) doInit() {
	if r.conn != nil {
		r.doDeinit()
	}

	conn, err := r.dial(r.cfg)
	if err != nil {
		if _, ok := err.(*notFoundError); ok {
			r.logger.Errorw("radio: device not found", "device", r.cfg.Device, "error", err)
			r.setState(DevNotFound)
		} else {
			r.logger.Errorw("radio: failed to open device", "device", r.cfg.Device, "error", err)
			r.setState(DevOpenFail)
		}
		return
	}

	r.conn = conn
	r.writer = frame.NewWriter(conn)
	r.startReader(conn)

	r.gpio.InitPin(r.cfg.BootPin.Pin, gpio.Output, r.cfg.BootPin.Invert)
	r.gpio.InitPin(r.cfg.ResetPin.Pin, gpio.Output, r.cfg.ResetPin.Invert)
	r.gpio.Set(r.cfg.BootPin.Pin, true)
	r.gpio.Clear(r.cfg.ResetPin.Pin)

	r.setState(Resetting)
	r.timer.arm(resetPulse)
}

func (r *Radio) doDeinit() {
	r.timer.cancel()
	r.closeConn()
	r.setState(Disabled)
}

func (r *Radio) closeConn() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *Radio) startReader(conn io.Reader) {
	go func() {
		buf := make([]byte, 256)
		reader := bufio.NewReader(conn)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case r.readCh <- chunk:
				case <-r.loopDone:
					return
				}
			}
			if err != nil {
				if err == io.EOF {
					return
				}
				select {
				case r.readErrC <- err:
				case <-r.loopDone:
				}
				return
			}
		}
	}()
}

func (r *Radio) onBytesRead(data []byte) {
	bodies := r.parser.Feed(data)
	for _, body := range bodies {
		msg, err := message.ParseBody(body)
		if err != nil && msg == nil {
			r.logger.Warnw("radio: dropped malformed frame", "body", body, "error", err)
			continue
		}
		if err != nil {
			r.logger.Warnw("radio: payload decode warning", "body", body, "error", err)
		}
		if msg != nil {
			r.handleMessage(*msg)
		}
	}
}

func (r *Radio) onTimerFired() {
	switch r.state {
	case Resetting:
		r.gpio.Clear(r.cfg.BootPin.Pin)
		r.gpio.Set(r.cfg.ResetPin.Pin, true)
		r.setState(Initializing)
		r.timer.arm(initTimeout)
	case Initializing:
		r.logger.Errorw("radio: init timed out waiting for radio banner/reply")
		r.setState(InitTimeout)
	case Ready:
		r.logger.Warnw("radio: command timed out waiting for reply")
		r.setState(ComTimeout)
	}
}

func (r *Radio) doTransmit(addr address.Address, p payload.Payload) bool {
	if r.state != Ready || !addr.IsValid() {
		r.logger.Warnw("radio: transmit rejected", "state", r.state, "addr", addr, "valid", addr.IsValid())
		return false
	}
	unicast := !addr.IsBroadcast()
	cmd := message.NewTransmitCommand(addr, p, unicast)
	if err := r.writeCommand(cmd); err != nil {
		r.logger.Errorw("radio: transmit write failed", "error", err)
		r.timer.cancel()
		r.setState(Error)
		return false
	}
	return true
}

func (r *Radio) writeCommand(m message.Message) error {
	body, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("radio: serialize command: %w", err)
	}
	return r.writer.WriteBody(body)
}
