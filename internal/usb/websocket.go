package usb

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/oblq/usbpanel/internal/device"
)

// WebSocketPath is where WebSocket serves the request endpoint.
const WebSocketPath = "/ep0"

var errNoPeer = errors.New("no websocket peer connected")

// WebSocket is a Link for bench setups: each binary message carries one
// SETUP packet and is answered with a one byte binary message. Only the
// most recent connection is served.
type WebSocket struct {
	upgrader websocket.Upgrader
	timeout  time.Duration
	log      zerolog.Logger

	setups chan []byte
	done   chan struct{}
	once   sync.Once

	mutex  sync.Mutex
	conn   *websocket.Conn
	server *http.Server
}

func NewWebSocket(pollTimeout time.Duration, log zerolog.Logger) *WebSocket {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &WebSocket{
		upgrader: websocket.Upgrader{ReadBufferSize: 64, WriteBufferSize: 64},
		timeout:  pollTimeout,
		log:      log,
		setups:   make(chan []byte),
		done:     make(chan struct{}),
	}
}

// ListenAndServe serves WebSocketPath on addr in the background.
func (w *WebSocket) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, w)

	w.mutex.Lock()
	w.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	srv := w.server
	w.mutex.Unlock()

	go func() {
		w.log.Info().Str("addr", ln.Addr().String()).Msg("websocket link listening")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			w.log.Error().Err(err).Msg("websocket link server stopped")
		}
	}()
	return nil
}

func (w *WebSocket) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	w.mutex.Lock()
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.conn = conn
	w.mutex.Unlock()

	w.log.Info().Str("peer", r.RemoteAddr).Msg("websocket peer connected")

	defer func() {
		w.mutex.Lock()
		if w.conn == conn {
			w.conn = nil
		}
		w.mutex.Unlock()
		_ = conn.Close()
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		select {
		case w.setups <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocket) ReadSetup(ctx context.Context, out *SetupPacket) error {
	t := time.NewTimer(w.timeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return net.ErrClosed
	case <-t.C:
		return ErrNoRequest
	case data := <-w.setups:
		return ParseSetup(data, out)
	}
}

func (w *WebSocket) Reply(ack device.Ack) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.conn == nil {
		return errNoPeer
	}
	return w.conn.WriteMessage(websocket.BinaryMessage, []byte{byte(ack)})
}

func (w *WebSocket) Close() (err error) {
	w.once.Do(func() { close(w.done) })

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.conn != nil {
		err = w.conn.Close()
		w.conn = nil
	}
	if w.server != nil {
		err = errors.Join(err, w.server.Close())
	}
	return err
}
