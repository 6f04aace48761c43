package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mgalloway/crossbook/internal/domain"
)

const (
	// wsWriteWait is the time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// wsPongWait is the time allowed to read the next pong message.
	wsPongWait = 30 * time.Second

	// wsPingPeriod sends pings at this interval. Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	// wsHandshakePath is the path the auth headers are signed over.
	wsHandshakePath = "/trade-api/ws/v2"
)

// SnapshotHandler is called for every full-book snapshot.
type SnapshotHandler func(WSSnapshot)

// DeltaHandler is called for every signed level adjustment.
type DeltaHandler func(WSDelta)

// HeaderSigner produces the authentication headers for the WebSocket
// handshake. *Client implements it.
type HeaderSigner interface {
	AuthHeaders(method, path string) (http.Header, error)
}

// WSClient is a WebSocket client for real-time Kalshi orderbook data. The
// handshake is authenticated with the venue's signed-header scheme; both
// orderbook_snapshot and orderbook_delta frames arrive on the
// orderbook_delta channel.
type WSClient struct {
	wsURL  string
	signer HeaderSigner
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	cmdID  int64

	snapshotHandlers []SnapshotHandler
	deltaHandlers    []DeltaHandler
	handlerMu        sync.RWMutex

	// done is closed when the client shuts down; errCh carries the read
	// loop's terminal error.
	done  chan struct{}
	errCh chan error
}

// NewWSClient creates a new Kalshi WebSocket client.
//
// wsURL is the WebSocket endpoint, e.g. "wss://api.elections.kalshi.com/trade-api/ws/v2".
func NewWSClient(wsURL string, signer HeaderSigner, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		signer: signer,
		logger: logger.With(slog.String("component", "kalshi_ws")),
		done:   make(chan struct{}),
		errCh:  make(chan error, 1),
	}
}

// OnSnapshot registers a handler called for every orderbook snapshot.
func (w *WSClient) OnSnapshot(h SnapshotHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.snapshotHandlers = append(w.snapshotHandlers, h)
}

// OnDelta registers a handler called for every orderbook delta.
func (w *WSClient) OnDelta(h DeltaHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.deltaHandlers = append(w.deltaHandlers, h)
}

// Connect establishes the authenticated WebSocket connection and starts the
// read and ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("kalshi/ws: client is closed")
	}

	headers, err := w.signer.AuthHeaders(http.MethodGet, wsHandshakePath)
	if err != nil {
		return fmt.Errorf("kalshi/ws: sign handshake: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, headers)
	if err != nil {
		return fmt.Errorf("kalshi/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// Subscribe subscribes to orderbook updates for the given market tickers.
func (w *WSClient) Subscribe(ctx context.Context, tickers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("kalshi/ws: not connected")
	}

	w.cmdID++
	cmd := WSSubscribeCmd{
		ID:  w.cmdID,
		Cmd: "subscribe",
		Params: WSSubscribeParams{
			Channels: []string{"orderbook_delta"},
			Tickers:  tickers,
		},
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("kalshi/ws: marshal subscribe: %w", err)
	}

	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("kalshi/ws: subscribe: %w", err)
	}

	return nil
}

// Err returns a channel that receives the read loop's terminal error.
func (w *WSClient) Err() <-chan error {
	return w.errCh
}

// Close shuts down the WebSocket connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal methods
// --------------------------------------------------------------------------

// readLoop continuously reads frames and dispatches them to handlers. On
// read failure it reports the error and exits; reconnection is owned by the
// feed layer.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			case w.errCh <- fmt.Errorf("%w: %v", domain.ErrWSDisconnect, err):
			default:
			}
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw WebSocket frame and routes it by type. A frame
// that fails to parse is logged and discarded; it never closes the
// connection.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope WSMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		w.logger.Warn("discarding malformed frame", slog.String("error", err.Error()))
		return
	}

	switch envelope.Type {
	case "orderbook_snapshot":
		var snap WSSnapshot
		if err := json.Unmarshal(envelope.Msg, &snap); err != nil {
			w.logger.Warn("discarding malformed snapshot", slog.String("error", err.Error()))
			return
		}
		w.handlerMu.RLock()
		handlers := w.snapshotHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(snap)
		}

	case "orderbook_delta":
		var delta WSDelta
		if err := json.Unmarshal(envelope.Msg, &delta); err != nil {
			w.logger.Warn("discarding malformed delta", slog.String("error", err.Error()))
			return
		}
		w.handlerMu.RLock()
		handlers := w.deltaHandlers
		w.handlerMu.RUnlock()
		for _, h := range handlers {
			h(delta)
		}

	case "subscribed":
		w.logger.Debug("subscription confirmed", slog.Int64("sid", envelope.SID))

	case "error":
		var e WSError
		_ = json.Unmarshal(envelope.Msg, &e)
		w.logger.Warn("venue error frame", slog.String("error", e.Error))

	default:
		// Heartbeats and other frame types are ignored.
	}
}
