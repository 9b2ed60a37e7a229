package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ActivityEvent is one raw token-spend message from the upstream firehose.
// Origin carries the raw network address; it never leaves this package
// unhashed.
type ActivityEvent struct {
	CreatorID string   `json:"creator_id"`
	VideoID   string   `json:"video_id"`
	ActorID   string   `json:"actor_id,omitempty"`
	ActorName string   `json:"actor_name,omitempty"`
	Origin    string   `json:"origin"`
	UsedAt    int64    `json:"used_at"`
	Source    string   `json:"source"`
	Comments  []string `json:"comments,omitempty"`
}

// WSSourceConfig configures WebSocket source behavior.
type WSSourceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSActivitySource streams activity events from the upstream firehose over
// gorilla/websocket, reconnecting with exponential backoff on failure.
type WSActivitySource struct {
	endpoint string
	config   WSSourceConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// events carries decoded messages; buffer absorbs bursts, blocking send
	// keeps delivery lossless once buffered.
	events chan *ActivityEvent

	reconnecting atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSActivitySource connects to the endpoint and starts streaming.
func NewWSActivitySource(ctx context.Context, endpoint string, config *WSSourceConfig) (*WSActivitySource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSActivitySource{
		endpoint: endpoint,
		config:   cfg,
		logger:   log.New(log.Writer(), "[ingestion] ", log.LstdFlags|log.Lshortfile),
		events:   make(chan *ActivityEvent, 10000),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Events returns the stream of decoded activity events. The channel is
// closed on Close.
func (s *WSActivitySource) Events() <-chan *ActivityEvent {
	return s.events
}

// connect establishes WebSocket connection.
func (s *WSActivitySource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Close closes the WebSocket connection and the events channel.
func (s *WSActivitySource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.events)
	return nil
}

// readLoop reads messages and dispatches decoded events.
func (s *WSActivitySource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// handleMessage decodes one firehose message. Malformed messages are logged
// and dropped, never fatal.
func (s *WSActivitySource) handleMessage(message []byte) {
	var event ActivityEvent
	if err := json.Unmarshal(message, &event); err != nil {
		s.logger.Printf("drop malformed message: %v", err)
		return
	}
	if event.CreatorID == "" || event.VideoID == "" || event.Origin == "" || event.UsedAt <= 0 {
		s.logger.Printf("drop incomplete event: creator=%q video=%q", event.CreatorID, event.VideoID)
		return
	}

	select {
	case s.events <- &event:
	case <-s.done:
	}
}

// reconnect attempts to reconnect after a delay.
func (s *WSActivitySource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	// Close existing connection
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		s.logger.Printf("reconnect failed: %v", err)
		return
	}
	s.logger.Println("reconnected")
}

// pingLoop sends periodic pings to keep the connection alive.
func (s *WSActivitySource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					s.logger.Printf("ping failed: %v", err)
				}
			}
			s.connMu.Unlock()
		}
	}
}
