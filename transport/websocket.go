// Package transport adapts gorilla/websocket connections to the
// relay's Conn contract and serves the HTTP upgrade endpoint.
package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConn wraps one websocket connection. Gorilla allows a single
// concurrent writer, so Send serializes writes behind a mutex; the
// session's read loop is the only reader.
type WSConn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func NewWSConn(conn *websocket.Conn, writeTimeout, pongTimeout time.Duration, readLimit int64) *WSConn {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	ws := &WSConn{conn: conn, writeTimeout: writeTimeout, pongTimeout: pongTimeout}

	// A missing pong past the deadline fails the next Receive, which
	// routes the connection through the normal teardown path.
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	return ws
}

// Send writes one text frame. A slow or broken peer fails its own
// write deadline; it cannot stall a broadcast to other peers beyond
// that bound.
func (w *WSConn) Send(payload []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}

// Receive blocks for the next inbound frame. Any error, including a
// normal close frame, means the connection is done.
func (w *WSConn) Receive() ([]byte, error) {
	_, payload, err := w.conn.ReadMessage()
	return payload, err
}

// Ping sends a control ping; the pong handler extends the read deadline.
func (w *WSConn) Ping() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.writeTimeout))
}

func (w *WSConn) Close() error {
	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(w.writeTimeout))
	w.writeMu.Unlock()
	return w.conn.Close()
}

func (w *WSConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
