package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/observability"
)

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
	// FromSlot is the first slot requested from the follower.
	FromSlot uint64
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WebSocket message types

type wsSubscribe struct {
	Action   string `json:"action"`
	FromSlot uint64 `json:"fromSlot"`
}

type wsMessage struct {
	Type string     `json:"type"`
	Tx   *domain.Tx `json:"tx,omitempty"`
	Slot uint64     `json:"slot,omitempty"`
}

// WSSource follows a chain follower over WebSocket. It reconnects with
// exponential backoff and resumes from the last delivered slot, skipping
// transactions it already delivered.
type WSSource struct {
	endpoint string
	config   WSSourceConfig
	log      *slog.Logger
	metrics  *observability.Metrics

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	txs  chan *domain.Tx
	done chan struct{}
	wg   sync.WaitGroup

	// owned by the read goroutine
	lastSlot   uint64
	seenAtLast map[string]struct{}
}

// Compile-time interface check.
var _ TxSource = (*WSSource)(nil)

// WSOption configures a WSSource.
type WSOption func(*WSSource)

// WithWSLogger sets the source logger.
func WithWSLogger(l *slog.Logger) WSOption {
	return func(s *WSSource) {
		s.log = l
	}
}

// WithWSMetrics counts reconnects.
func WithWSMetrics(m *observability.Metrics) WSOption {
	return func(s *WSSource) {
		s.metrics = m
	}
}

// NewWSSource connects to endpoint and subscribes from config.FromSlot.
func NewWSSource(ctx context.Context, endpoint string, config *WSSourceConfig, opts ...WSOption) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSSource{
		endpoint:   endpoint,
		config:     cfg,
		log:        logger.L(),
		txs:        make(chan *domain.Tx, 1024),
		done:       make(chan struct{}),
		seenAtLast: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.connect(ctx, cfg.FromSlot); err != nil {
		return nil, err
	}

	// Start reader goroutine
	s.wg.Add(1)
	go s.readLoop()

	// Start ping goroutine
	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect dials the endpoint and sends the subscription.
func (s *WSSource) connect(ctx context.Context, fromSlot uint64) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(wsSubscribe{Action: "subscribe", FromSlot: fromSlot}); err != nil {
		conn.Close()
		return fmt.Errorf("write subscribe: %w", err)
	}

	s.conn = conn
	return nil
}

// Next returns the next delivered transaction.
func (s *WSSource) Next(ctx context.Context) (*domain.Tx, error) {
	select {
	case tx := <-s.txs:
		return tx, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	}
}

// Close closes the WebSocket connection.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// readLoop reads messages and reconnects on failure.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(reconnectDelay) {
				// Increase delay for next reconnect (exponential backoff)
				reconnectDelay *= 2
				if reconnectDelay > s.config.MaxReconnectDelay {
					reconnectDelay = s.config.MaxReconnectDelay
				}
			} else {
				reconnectDelay = s.config.ReconnectDelay
			}
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.Warn("websocket read failed", "err", err)
			s.connMu.Lock()
			if s.conn == conn {
				s.conn.Close()
				s.conn = nil
			}
			s.connMu.Unlock()
			continue
		}

		s.handleMessage(message)
	}
}

// reconnect waits delay and dials again. Returns whether it succeeded.
func (s *WSSource) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	if s.metrics != nil {
		s.metrics.RecordReconnect()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx, s.lastSlot); err != nil {
		s.log.Warn("websocket reconnect failed", "endpoint", s.endpoint, "retry_in", delay, "err", err)
		return false
	}
	s.log.Info("websocket reconnected", "from_slot", s.lastSlot)
	return true
}

// handleMessage decodes one message and forwards transactions.
func (s *WSSource) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.log.Warn("dropping undecodable message", "err", err)
		return
	}

	switch msg.Type {
	case "tx":
		if msg.Tx == nil {
			return
		}
		s.deliver(msg.Tx)
	case "rollback":
		s.log.Warn("follower rolled back, ignoring", "slot", msg.Slot)
	default:
		s.log.Debug("ignoring message", "type", msg.Type)
	}
}

// deliver forwards tx unless it was already delivered before a reconnect.
func (s *WSSource) deliver(tx *domain.Tx) {
	hash := tx.Hash.String()
	switch {
	case tx.Slot < s.lastSlot:
		return
	case tx.Slot == s.lastSlot:
		if _, ok := s.seenAtLast[hash]; ok {
			return
		}
	default:
		s.lastSlot = tx.Slot
		s.seenAtLast = make(map[string]struct{})
	}
	s.seenAtLast[hash] = struct{}{}

	// Block until we can send - never drop transactions
	select {
	case s.txs <- tx:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (s *WSSource) pingLoop() {
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
				// Connection might be dead, reader will handle reconnect
				_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			}
			s.connMu.Unlock()
		}
	}
}
