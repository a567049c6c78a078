package ipc

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
)

func TestDefaultSocketPath(t *testing.T) {
	cases := []struct {
		pidFile string
		want    string
	}{
		{"", filepath.Join(os.TempDir(), "fanetgs.sock")},
		{"/var/run/fanetgs.pid", "/var/run/fanetgs.sock"},
		{"/tmp/test.pid.old", "/tmp/test.pid.sock"},
	}
	for _, c := range cases {
		got := DefaultSocketPath(c.pidFile)
		if got != c.want {
			t.Errorf("DefaultSocketPath(%q) = %q, want %q", c.pidFile, got, c.want)
		}
	}
}

func TestListenSendQuit(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	logger := zap.NewNop().Sugar()

	var mu sync.Mutex
	quit := false
	var gotAddr address.Address
	var gotText string

	l, err := Listen(sockPath, logger, Handler{
		Quit: func() {
			mu.Lock()
			quit = true
			mu.Unlock()
		},
		Message: func(addr address.Address, text string) {
			mu.Lock()
			gotAddr = addr
			gotText = text
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	if err := Send(sockPath, ForwardedArgs{Quit: true}); err != nil {
		t.Fatalf("Send quit: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return quit
	})

	addr := address.New(0x11, 0x1234)
	if err := Send(sockPath, ForwardedArgs{MessageAddr: addr.String(), MessageText: "hello"}); err != nil {
		t.Fatalf("Send message: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotText == "hello"
	})
	mu.Lock()
	if gotAddr != addr {
		t.Errorf("got addr %v, want %v", gotAddr, addr)
	}
	mu.Unlock()
}

func TestSendNoListener(t *testing.T) {
	if err := Send(filepath.Join(t.TempDir(), "nope.sock"), ForwardedArgs{Quit: true}); err == nil {
		t.Fatal("expected error dialing a socket with no listener")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
