package wpa

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	plog "github.com/p2pcoord/p2pcoord-go/pkg/log"
)

// Control socket errors.
var (
	ErrTimeout = errors.New("control request timed out")
	ErrClosed  = errors.New("control connection closed")
)

// DefaultRequestTimeout bounds a single control request.
const DefaultRequestTimeout = 3 * time.Second

const maxReply = 4096

var localSeq atomic.Uint32

// Transport sends control commands and returns their replies.
type Transport interface {
	Request(cmd string) (string, error)
	Close() error
}

// EventSource yields unsolicited event lines.
type EventSource interface {
	ReadEvent() (string, error)
	Close() error
}

// Conn is a connection to a wpa_supplicant control socket.
type Conn struct {
	conn    *net.UnixConn
	local   string
	timeout time.Duration

	// connID tags protocol log events for this socket.
	connID string
	plog   plog.Logger

	mu     sync.Mutex
	closed bool
}

// Dial connects to the control socket at path. logger may be nil.
func Dial(path string, logger plog.Logger) (*Conn, error) {
	local := filepath.Join(os.TempDir(), fmt.Sprintf("p2pcoord-%d-%d", os.Getpid(), localSeq.Add(1)))
	_ = os.Remove(local)

	c, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: local, Net: "unixgram"},
		&net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	if logger == nil {
		logger = plog.NoopLogger{}
	}
	return &Conn{
		conn:    c,
		local:   local,
		timeout: DefaultRequestTimeout,
		connID:  uuid.NewString(),
		plog:    logger,
	}, nil
}

// Request sends cmd and waits for its reply. Unsolicited event lines
// received meanwhile are discarded.
func (c *Conn) Request(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	c.logFrame(plog.DirectionOut, cmd)
	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		return "", err
	}

	buf := make([]byte, maxReply)
	deadline := time.Now().Add(c.timeout)
	for {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return "", err
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return "", fmt.Errorf("%w: %s", ErrTimeout, cmd)
			}
			return "", err
		}
		reply := string(buf[:n])
		if isEvent(reply) {
			continue
		}
		c.logFrame(plog.DirectionIn, reply)
		return strings.TrimRight(reply, "\n"), nil
	}
}

// Attach registers this connection for unsolicited events.
func (c *Conn) Attach() error {
	reply, err := c.Request("ATTACH")
	if err != nil {
		return err
	}
	if reply != "OK" {
		return fmt.Errorf("attach: %s", reply)
	}
	return nil
}

// ReadEvent blocks until the next event line arrives.
func (c *Conn) ReadEvent() (string, error) {
	buf := make([]byte, maxReply)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return "", ErrClosed
			}
			return "", err
		}
		line := strings.TrimRight(string(buf[:n]), "\n")
		if !isEvent(line) {
			// Late reply to a request, not an event.
			continue
		}
		c.logFrame(plog.DirectionIn, line)
		return line, nil
	}
}

// Close releases the socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	_ = os.Remove(c.local)
	return err
}

func (c *Conn) logFrame(dir plog.Direction, line string) {
	c.plog.Log(plog.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        plog.LayerTransport,
		Category:     plog.CategoryMessage,
		Frame: &plog.FrameEvent{
			Size: len(line),
			Data: []byte(line),
		},
	})
}

func isEvent(s string) bool {
	return strings.HasPrefix(s, "<") || strings.HasPrefix(s, "IFNAME=")
}

// Compile-time interface satisfaction checks.
var (
	_ Transport   = (*Conn)(nil)
	_ EventSource = (*Conn)(nil)
)
