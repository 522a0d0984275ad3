package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkmn-tools/shinyhunt-go/gamestate"
)

// ErrNotConnected is returned by send operations when no socket is open.
var ErrNotConnected = errors.New("bridge is not connected")

// Role selects which side of the TCP link this process hosts.
type Role string

const (
	// RoleClient dials the emulator's listening socket.
	RoleClient Role = "client"
	// RoleServer binds and waits for the emulator to dial in.
	RoleServer Role = "server"
)

// ConnectionState tracks which socket operations are currently legal.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Listening
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Listening:
		return "listening"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultDialTimeout   = 5 * time.Second
	defaultAcceptTimeout = 1 * time.Second
	defaultReadTimeout   = 1 * time.Second
)

// Options configures a Bridge.
type Options struct {
	Host string
	Port int
	Role Role

	// DialTimeout bounds one client connect attempt.
	DialTimeout time.Duration
	// AcceptTimeout bounds one server accept attempt so Connect can be
	// retried by the caller instead of blocking forever.
	AcceptTimeout time.Duration
	// ReadTimeout bounds one ReceiveState call.
	ReadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.AcceptTimeout <= 0 {
		o.AcceptTimeout = defaultAcceptTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.Role == "" {
		o.Role = RoleClient
	}
	return o
}

// Bridge owns the TCP link to the emulator-side Lua script. All sends are
// serialized behind the mutex: the hunting loop and an asynchronous
// reset-on-interrupt path may write concurrently, and interleaved partial
// frames would corrupt the peer's line parser.
type Bridge struct {
	opts Options

	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	listener net.Listener
	state    ConnectionState

	// pending buffers a partially read line across bounded-read timeouts.
	// Guarded by mu: Close clears it concurrently with the polling
	// goroutine.
	pending []byte
}

// New creates a bridge for the given endpoint. No I/O happens until Connect.
func New(opts Options) *Bridge {
	return &Bridge{opts: opts.withDefaults(), state: Disconnected}
}

// State reports the current connection state.
func (b *Bridge) State() ConnectionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) addr() string {
	return net.JoinHostPort(b.opts.Host, fmt.Sprintf("%d", b.opts.Port))
}

// Connect establishes the link. Calling it while already connected is a
// no-op. In server role the listener is bound once and each call accepts for
// at most AcceptTimeout, returning an error the caller may retry.
func (b *Bridge) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return nil
	}
	if b.opts.Role == RoleServer {
		return b.acceptLocked()
	}
	return b.dialLocked()
}

func (b *Bridge) dialLocked() error {
	conn, err := net.DialTimeout("tcp", b.addr(), b.opts.DialTimeout)
	if err != nil {
		return fmt.Errorf("bridge dial %s: %w", b.addr(), err)
	}
	b.attachLocked(conn)
	return nil
}

func (b *Bridge) acceptLocked() error {
	if b.listener == nil {
		// net.Listen sets SO_REUSEADDR on the socket, so rebinding after
		// a restart does not trip over TIME_WAIT.
		listener, err := net.Listen("tcp", b.addr())
		if err != nil {
			return fmt.Errorf("bridge listen %s: %w", b.addr(), err)
		}
		b.listener = listener
	}
	b.state = Listening

	if tcp, ok := b.listener.(*net.TCPListener); ok {
		if err := tcp.SetDeadline(time.Now().Add(b.opts.AcceptTimeout)); err != nil {
			return fmt.Errorf("bridge accept deadline: %w", err)
		}
	}
	conn, err := b.listener.Accept()
	if err != nil {
		return fmt.Errorf("bridge waiting for emulator connection: %w", err)
	}
	b.attachLocked(conn)
	return nil
}

func (b *Bridge) attachLocked(conn net.Conn) {
	b.conn = conn
	b.reader = bufio.NewReader(conn)
	b.pending = nil
	b.state = Connected
}

// Close tears the link down: reader, socket, then listener, each step
// swallowing its own error so a partially failed teardown never leaves a
// later resource open. The state is always Disconnected afterwards, and
// repeated or concurrent calls are safe.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reader = nil
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	if b.listener != nil {
		_ = b.listener.Close()
		b.listener = nil
	}
	b.pending = nil
	b.state = Disconnected
	return nil
}

// SendButtons sends a one-tick button press command.
func (b *Bridge) SendButtons(buttons []string) error {
	line, err := EncodeInput(buttons)
	if err != nil {
		return err
	}
	return b.send(line)
}

// SendMacro sends a timed button macro.
func (b *Bridge) SendMacro(steps []MacroStep) error {
	line, err := EncodeMacro(steps)
	if err != nil {
		return err
	}
	return b.send(line)
}

// ResetInput clears all held input and aborts any running macro on the
// emulator side.
func (b *Bridge) ResetInput() error {
	line, err := EncodeReset()
	if err != nil {
		return err
	}
	return b.send(line)
}

func (b *Bridge) send(line []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return ErrNotConnected
	}
	if _, err := b.conn.Write(line); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

// ReceiveState reads one line from the link and returns the derived view.
// It returns (nil, nil) when there is nothing to act on this tick: a
// non-state message, a clean end of stream, or a bounded-read timeout.
// Malformed frames and hard I/O errors are returned to the caller.
func (b *Bridge) ReceiveState() (*gamestate.View, error) {
	b.mu.Lock()
	conn, reader := b.conn, b.reader
	b.mu.Unlock()
	if conn == nil || reader == nil {
		return nil, ErrNotConnected
	}

	if err := conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("bridge read deadline: %w", err)
	}
	line, err := reader.ReadBytes('\n')

	b.mu.Lock()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// Keep any partial line around for the next poll so a frame
			// split across two reads is not lost.
			b.pending = append(b.pending, line...)
			b.mu.Unlock()
			return nil, nil
		}
		if errors.Is(err, io.EOF) && len(line) == 0 && len(b.pending) == 0 {
			b.mu.Unlock()
			return nil, nil
		}
		if !errors.Is(err, io.EOF) {
			b.mu.Unlock()
			return nil, fmt.Errorf("bridge read: %w", err)
		}
	}
	if len(b.pending) > 0 {
		line = append(b.pending, line...)
		b.pending = nil
	}
	b.mu.Unlock()

	msg, err := DecodeLine(line)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	view := gamestate.NewView(msg.Data)
	return &view, nil
}
