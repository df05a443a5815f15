package port

import (
	"io"
	"net/url"

	"golang.org/x/net/websocket"
)

// WebSocket carries the byte stream in binary websocket messages.
type WebSocket struct {
	conn    *websocket.Conn
	pending []byte
}

// NewWebSocket wraps an established websocket.Conn.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// OpenWebSocket implements Opener for ws:// and wss:// URLs.
func OpenWebSocket(u *url.URL) (io.ReadWriteCloser, error) {
	origin := "http://localhost/"
	if u.Scheme == "wss" {
		origin = "https://localhost/"
	}
	conn, err := websocket.Dial(u.String(), "", origin)
	if err != nil {
		return nil, err
	}
	return NewWebSocket(conn), nil
}

// Read implements io.Reader. A message larger than p is returned over
// multiple reads.
func (w *WebSocket) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		var msg []byte
		if err := websocket.Message.Receive(w.conn, &msg); err != nil {
			return 0, err
		}
		w.pending = msg
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// Write implements io.Writer. Each call sends one message.
func (w *WebSocket) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(w.conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (w *WebSocket) Close() error {
	return w.conn.Close()
}
