// Package cdp implements a synchronous DevTools protocol client: a
// WebSocket-backed message pump that correlates command responses by id
// while draining interleaved protocol events.
package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// ReceiveStatus is the outcome of a ReceiveNextMessage call.
type ReceiveStatus int

const (
	// ReceiveOK means a frame was returned.
	ReceiveOK ReceiveStatus = iota
	// ReceiveTimeout means the deadline passed before a frame arrived.
	ReceiveTimeout
	// ReceiveDisconnected means the connection is gone.
	ReceiveDisconnected
)

// SyncWebSocket is a synchronous, single-owner WebSocket surface. The
// client pulls one frame at a time; the transport never interprets
// frames and knows nothing about message ids.
type SyncWebSocket interface {
	Connect(ctx context.Context, url string) error
	IsConnected() bool
	Send(ctx context.Context, message string) error

	// ReceiveNextMessage blocks until a frame arrives, the context
	// deadline passes, or the connection drops. An already-expired
	// context polls: it returns ReceiveTimeout without blocking.
	ReceiveNextMessage(ctx context.Context) (string, ReceiveStatus)

	// HasNextMessage reports whether a frame is already buffered and a
	// ReceiveNextMessage call would not need to block.
	HasNextMessage() bool

	Close() error
}

// SocketFactory returns a fresh transport for one connect attempt.
type SocketFactory func() SyncWebSocket

// recvBufferFrames bounds how far the reader goroutine can run ahead
// of the pump before backpressure reaches the peer.
const recvBufferFrames = 128

// syncSocket adapts a coder/websocket connection to the SyncWebSocket
// surface. A reader goroutine drains inbound frames into recv so that
// HasNextMessage can answer without blocking.
type syncSocket struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	recv    chan string
	dropped chan struct{} // closed when the reader observes an error
	quit    chan struct{} // closed by Close so the reader never wedges
}

// NewWebSocket returns an unconnected production transport.
func NewWebSocket() SyncWebSocket {
	return &syncSocket{}
}

func (s *syncSocket) Connect(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	// DevTools frames (screenshots, document snapshots) routinely
	// exceed the library default read limit.
	conn.SetReadLimit(-1)

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.recv = make(chan string, recvBufferFrames)
	s.dropped = make(chan struct{})
	s.quit = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop(conn, s.recv, s.dropped, s.quit)
	return nil
}

func (s *syncSocket) readLoop(conn *websocket.Conn, recv chan string, dropped, quit chan struct{}) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			close(dropped)
			return
		}
		select {
		case recv <- string(data):
		case <-quit:
			return
		}
	}
}

func (s *syncSocket) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *syncSocket) Send(ctx context.Context, message string) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()

	if conn == nil || !connected {
		return fmt.Errorf("not connected")
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(message)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (s *syncSocket) ReceiveNextMessage(ctx context.Context) (string, ReceiveStatus) {
	s.mu.Lock()
	recv, dropped := s.recv, s.dropped
	s.mu.Unlock()

	if recv == nil {
		return "", ReceiveDisconnected
	}
	if ctx.Err() != nil {
		return "", ReceiveTimeout
	}
	select {
	case msg := <-recv:
		return msg, ReceiveOK
	case <-ctx.Done():
		return "", ReceiveTimeout
	case <-dropped:
		// Frames read before the drop are still deliverable.
		select {
		case msg := <-recv:
			return msg, ReceiveOK
		default:
		}
		return "", ReceiveDisconnected
	}
}

func (s *syncSocket) HasNextMessage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recv != nil && len(s.recv) > 0
}

func (s *syncSocket) Close() error {
	s.mu.Lock()
	conn := s.conn
	quit := s.quit
	s.conn = nil
	s.quit = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	close(quit)
	return conn.Close(websocket.StatusNormalClosure, "client closing")
}
