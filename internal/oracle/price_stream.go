package oracle

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PriceStreamConfig configures the WebSocket price stream.
type PriceStreamConfig struct {
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReadTimeout       time.Duration
	// StaleAfter bounds how old a streamed price may be before LatestPrice
	// stops returning it.
	StaleAfter time.Duration
}

// DefaultPriceStreamConfig returns default stream configuration.
func DefaultPriceStreamConfig() PriceStreamConfig {
	return PriceStreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		StaleAfter:        30 * time.Second,
	}
}

// priceTick is one streamed price update.
type priceTick struct {
	Mint  string  `json:"mint"`
	Price float64 `json:"price"`
}

type cachedPrice struct {
	price float64
	at    time.Time
}

// PriceStream keeps the latest streamed price per mint. It reconnects with
// doubling delay on failure; consumers that find no fresh price fall back
// to the HTTP sources.
type PriceStream struct {
	endpoint string
	config   PriceStreamConfig
	logger   *zap.Logger

	mu     sync.RWMutex
	latest map[string]cachedPrice

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPriceStream creates a stream and starts its read loop.
func NewPriceStream(endpoint string, config *PriceStreamConfig, logger *zap.Logger) *PriceStream {
	cfg := DefaultPriceStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &PriceStream{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		latest:   make(map[string]cachedPrice),
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// LatestPrice returns the freshest streamed price for a mint, if one
// arrived within StaleAfter.
func (s *PriceStream) LatestPrice(mint string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.latest[mint]
	if !ok || time.Since(cached.at) > s.config.StaleAfter {
		return 0, false
	}
	return cached.price, true
}

// Close stops the stream.
func (s *PriceStream) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
	s.wg.Wait()
}

func (s *PriceStream) run() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.endpoint, nil)
		if err != nil {
			s.logger.Warn("price stream dial failed",
				zap.String("endpoint", s.endpoint),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}

		delay = s.config.ReconnectDelay
		s.readLoop(conn)
		conn.Close()
	}
}

// readLoop consumes ticks until the connection breaks or Close is called.
func (s *PriceStream) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.logger.Warn("price stream read failed", zap.Error(err))
			}
			return
		}

		var tick priceTick
		if err := json.Unmarshal(msg, &tick); err != nil {
			s.logger.Debug("skipping malformed price tick", zap.Error(err))
			continue
		}
		if tick.Mint == "" || tick.Price <= 0 {
			continue
		}

		s.mu.Lock()
		s.latest[tick.Mint] = cachedPrice{price: tick.Price, at: time.Now()}
		s.mu.Unlock()
	}
}
