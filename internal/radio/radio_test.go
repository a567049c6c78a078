package radio

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/fanet/message"
	"github.com/mlohse/fanetgs/internal/fanet/payload"
	"github.com/mlohse/fanetgs/internal/gpio"
)

// newTestRadio builds a Radio whose serial link is a net.Pipe, giving
// the test the other end to play the role of the physical radio
// module. It returns the radio, the test's raw end of the pipe, and a
// channel of every state the radio transitions through.
func newTestRadio(t *testing.T) (*Radio, net.Conn, chan State) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	cfg := Config{
		Device:     "/dev/fake",
		TxPowerDBm: 14,
		Frequency:  message.Freq868,
	}
	r := New(cfg, gpio.NewNullController(logger), logger)

	client, server := net.Pipe()
	r.dial = func(Config) (io.ReadWriteCloser, error) { return server, nil }

	states := make(chan State, 16)
	r.OnStateChange(func(s State) {
		select {
		case states <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	return r, client, states
}

func waitForState(t *testing.T, states chan State, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("readLine failed: %v", err)
	}
	return line
}

func TestBringUpSequence(t *testing.T) {
	radio, client, states := newTestRadio(t)
	reader := bufio.NewReader(client)

	radio.Init()
	waitForState(t, states, Resetting, time.Second)
	waitForState(t, states, Initializing, 2*time.Second)

	client.Write([]byte("#FNR MSG,1,initialized\n"))
	if got, want := readLine(t, reader), "#DGV\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	client.Write([]byte("#DGV build-202201131742\n"))
	if got, want := readLine(t, reader), "#DGL 868,14\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	client.Write([]byte("#DGR OK\n"))
	if got, want := readLine(t, reader), "#DGP 1\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	waitForState(t, states, Ready, time.Second)

	client.Write([]byte("#FNR OK\n"))
	time.Sleep(50 * time.Millisecond)
	if radio.State() != Ready {
		t.Errorf("state after informational reply = %v, want Ready", radio.State())
	}
}

func TestWrongFirmwareGoesToWrongFw(t *testing.T) {
	radio, client, states := newTestRadio(t)
	reader := bufio.NewReader(client)

	radio.Init()
	waitForState(t, states, Resetting, time.Second)
	waitForState(t, states, Initializing, 2*time.Second)

	client.Write([]byte("#FNR MSG,1,initialized\n"))
	readLine(t, reader) // DGV

	client.Write([]byte("#DGV build-202001010000\n"))
	waitForState(t, states, WrongFw, time.Second)
}

func TestFanetErrorInReadyDegradesToError(t *testing.T) {
	_, client, states := bringUpToReady(t)
	client.Write([]byte("#FNR ERR,9,boom\n"))
	waitForState(t, states, Error, time.Second)
}

func TestTransmitOutsideReadyReturnsFalse(t *testing.T) {
	radio, _, _ := newTestRadio(t)
	p := payload.NewName("x")
	ok := radio.Transmit(context.Background(), address.Broadcast, p)
	if ok {
		t.Error("Transmit before bring-up should return false")
	}
}

func TestComTimeoutIsAbsorbingUntilReinit(t *testing.T) {
	// Entering Ready leaves the comTimeout timer armed from the Enable
	// command; with no further traffic it fires on its own.
	radio, client, states := bringUpToReady(t)
	_ = client

	waitForState(t, states, ComTimeout, comTimeout+time.Second)

	p := payload.NewName("x")
	if radio.Transmit(context.Background(), address.Broadcast, p) {
		t.Error("Transmit while ComTimeout should return false")
	}
}

func bringUpToReady(t *testing.T) (*Radio, net.Conn, chan State) {
	t.Helper()
	radio, client, states := newTestRadio(t)
	reader := bufio.NewReader(client)

	radio.Init()
	waitForState(t, states, Resetting, time.Second)
	waitForState(t, states, Initializing, 2*time.Second)

	client.Write([]byte("#FNR MSG,1,initialized\n"))
	readLine(t, reader)
	client.Write([]byte("#DGV build-202201131742\n"))
	readLine(t, reader)
	client.Write([]byte("#DGR OK\n"))
	readLine(t, reader)
	waitForState(t, states, Ready, time.Second)
	return radio, client, states
}
