// Package ipc implements the single-instance forwarding protocol
// (SPEC_FULL.md §6.1): a second invocation of the daemon connects to
// the running instance's Unix-domain socket, msgpack-encodes its
// parsed flags, and the primary decodes and dispatches them exactly
// as if they had arrived on its own command line. Grounded on
// original_source/'s QtSingleCoreApplication::sendMessage/
// onMessageReceived pair (join argv, forward, re-parse on receipt),
// re-expressed as a Unix socket instead of Qt's local-socket IPC, with
// github.com/vmihailenco/msgpack/v5 for the wire encoding (the same
// library the teacher's pkg/responseformat/formatter.go uses).
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/mlohse/fanetgs/internal/fanet/address"
)

// ForwardedArgs is the wire message a secondary invocation sends to
// the primary instance, mirroring the CLI flags a secondary process
// parsed for itself.
type ForwardedArgs struct {
	Quit        bool
	MessageAddr string
	MessageText string
}

// HasMessage reports whether a message was requested.
func (f ForwardedArgs) HasMessage() bool { return f.MessageAddr != "" }

// Handler is invoked by the primary instance for each decoded
// ForwardedArgs it receives.
type Handler struct {
	Quit    func()
	Message func(addr address.Address, text string)
}

// DefaultSocketPath derives the IPC socket path from the daemon's PID
// file path (same directory, ".sock" suffix instead of ".pid"), or
// falls back to a fixed path under os.TempDir when no PID file is
// configured.
func DefaultSocketPath(pidFile string) string {
	if pidFile == "" {
		return filepath.Join(os.TempDir(), "fanetgs.sock")
	}
	ext := filepath.Ext(pidFile)
	return pidFile[:len(pidFile)-len(ext)] + ".sock"
}

// Listener owns the primary instance's IPC socket.
type Listener struct {
	ln     net.Listener
	logger *zap.SugaredLogger
}

// Listen removes any stale socket file at path and starts accepting
// connections, dispatching each decoded ForwardedArgs to h. It
// returns immediately; accepting happens on its own goroutine.
func Listen(path string, logger *zap.SugaredLogger, h Handler) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ipc: remove stale socket %s: %w", path, err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen on %s: %w", path, err)
	}

	l := &Listener{ln: ln, logger: logger}
	go l.acceptLoop(h)
	return l, nil
}

func (l *Listener) acceptLoop(h Handler) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return
		}
		go l.handleConn(conn, h)
	}
}

func (l *Listener) handleConn(conn net.Conn, h Handler) {
	defer conn.Close()

	args, err := readFrame(conn)
	if err != nil {
		l.logger.Warnw("ipc: failed to read forwarded args", "error", err)
		return
	}

	l.logger.Infow("ipc: received forwarded args", "quit", args.Quit, "has_message", args.HasMessage())
	if args.Quit && h.Quit != nil {
		h.Quit()
		return
	}
	if args.HasMessage() && h.Message != nil {
		addr, err := address.Parse(args.MessageAddr)
		if err != nil {
			l.logger.Warnw("ipc: malformed message address", "addr", args.MessageAddr, "error", err)
			return
		}
		h.Message(addr, args.MessageText)
	}
}

// Close stops accepting connections and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	if a, ok := l.ln.Addr().(*net.UnixAddr); ok {
		os.Remove(a.Name)
	}
	return err
}

// Send connects to the primary instance's socket at path and forwards
// args, for use by a secondary invocation. It returns an error if no
// primary instance is listening.
func Send(path string, args ForwardedArgs) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("ipc: dial %s: %w", path, err)
	}
	defer conn.Close()
	return writeFrame(conn, args)
}

// writeFrame writes a 4-byte big-endian length prefix followed by the
// msgpack-encoded payload, so the reader never has to guess where one
// message ends, matching how the teacher's own length-prefixed
// protocols avoid Nagle/partial-read ambiguity on a stream socket.
func writeFrame(w io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

const maxFrameLen = 64 * 1024

func readFrame(r io.Reader) (ForwardedArgs, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return ForwardedArgs{}, fmt.Errorf("read length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameLen {
		return ForwardedArgs{}, fmt.Errorf("frame too large: %d bytes", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return ForwardedArgs{}, fmt.Errorf("read body: %w", err)
	}
	var args ForwardedArgs
	if err := msgpack.Unmarshal(body, &args); err != nil {
		return ForwardedArgs{}, fmt.Errorf("decode: %w", err)
	}
	return args, nil
}
