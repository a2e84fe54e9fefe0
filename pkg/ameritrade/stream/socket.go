package stream

import (
	"context"

	"github.com/coder/websocket"
)

// Socket is one open streamer connection. SendText writes a single text
// frame; Read returns the next inbound frame verbatim, with no protocol
// interpretation.
type Socket interface {
	SendText(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens streamer sockets. Session takes one by injection so tests can
// substitute an in-memory socket.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// WebSocketDialer is the default Dialer, backed by coder/websocket.
type WebSocketDialer struct{}

var _ Dialer = WebSocketDialer{}

// Dial opens a websocket connection to url.
func (WebSocketDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsSocket{conn: conn}, nil
}

type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) SendText(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSocket) Read(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.Read(ctx)
	return data, err
}

func (s *wsSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
