package market

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stream maintains a websocket subscription to the OKX public tickers channel
// and keeps the latest ticker per instrument in memory. It is a warm cache in
// front of the REST client, never a source of record: consumers fall back to
// REST when an entry is missing or stale.
type Stream struct {
	logger         *zap.Logger
	url            string
	instIDs        []string
	reconnectDelay time.Duration

	mu      sync.RWMutex
	tickers map[string]streamEntry

	stopCh  chan struct{}
	stopped sync.Once
}

type streamEntry struct {
	ticker Ticker
	at     time.Time
}

// NewStream creates a ticker stream for the given instrument IDs.
func NewStream(logger *zap.Logger, url string, instIDs []string, reconnectDelay time.Duration) *Stream {
	return &Stream{
		logger:         logger,
		url:            url,
		instIDs:        instIDs,
		reconnectDelay: reconnectDelay,
		tickers:        make(map[string]streamEntry),
		stopCh:         make(chan struct{}),
	}
}

// Start begins the connect/subscribe/read loop in the background.
func (s *Stream) Start() {
	go s.run()
}

// Stop terminates the stream loop.
func (s *Stream) Stop() {
	s.stopped.Do(func() { close(s.stopCh) })
}

// Ticker returns the cached ticker for instID if it is younger than maxAge.
func (s *Stream) Ticker(instID string, maxAge time.Duration) (*Ticker, bool) {
	s.mu.RLock()
	entry, ok := s.tickers[instID]
	s.mu.RUnlock()
	if !ok || time.Since(entry.at) > maxAge {
		return nil, false
	}
	tk := entry.ticker
	return &tk, true
}

func (s *Stream) run() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := s.connectAndRead(); err != nil {
			s.logger.Warn("okx.stream_disconnected",
				zap.Error(err),
				zap.Duration("reconnect_delay", s.reconnectDelay))
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) connectAndRead() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := okxWSSubscribe{Op: "subscribe"}
	for _, id := range s.instIDs {
		sub.Args = append(sub.Args, okxWSArg{Channel: "tickers", InstID: id})
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	s.logger.Info("okx.stream_subscribed",
		zap.String("url", s.url),
		zap.Int("instruments", len(s.instIDs)))

	// Close the connection when Stop is called so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.stopCh:
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(data)
	}
}

func (s *Stream) handleMessage(data []byte) {
	var msg okxWSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("okx.stream_decode_failed", zap.Error(err))
		return
	}
	if msg.Event != "" || len(msg.Data) == 0 {
		// subscribe acks, errors, pings
		return
	}

	for _, raw := range msg.Data {
		instID := raw.InstID
		if instID == "" {
			instID = msg.Arg.InstID
		}
		tk, err := normalizeTicker(instID, raw)
		if err != nil {
			s.logger.Debug("okx.stream_ticker_rejected",
				zap.String("inst_id", instID),
				zap.Error(err))
			continue
		}
		s.mu.Lock()
		s.tickers[instID] = streamEntry{ticker: *tk, at: time.Now()}
		s.mu.Unlock()
	}
}
