package livedemo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	Lt "github.com/maroda/livedemo/types"
)

const (
	dialTimeout  = 5 * time.Second
	dialAttempts = 20
	dialBackoff  = 250 * time.Millisecond
)

// Upstream is the host side of the /ws stream
type Upstream struct {
	URL  string
	MU   sync.Mutex // one writer at a time
	conn *websocket.Conn
}

// DialUpstream connects to a livedemo server, e.g. ws://localhost:4000/ws.
// The server may still be starting, so refused dials are retried for a while.
func DialUpstream(ctx context.Context, url string) (*Upstream, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: dialTimeout,
	}

	var err error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		var conn *websocket.Conn
		conn, _, err = dialer.DialContext(ctx, url, nil)
		if err == nil {
			slog.Info("Connected upstream", slog.String("url", url), slog.Int("attempt", attempt))
			return &Upstream{URL: url, conn: conn}, nil
		}
		slog.Debug("Upstream dial failed", slog.Int("attempt", attempt), slog.Any("Error", err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dialBackoff):
		}
	}

	slog.Error("Could not reach upstream", slog.String("url", url), slog.Any("Error", err))
	return nil, fmt.Errorf("dial %s: %w", url, err)
}

// Listen decodes every frame into an Update until the stream ends.
// Undecodable frames are logged and skipped.
func (u *Upstream) Listen(ctx context.Context, fn func(*Lt.Update)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			u.Close()
		case <-done:
		}
	}()

	for {
		_, buf, err := u.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("upstream read: %w", err)
		}

		var up Lt.Update
		if err := json.Unmarshal(buf, &up); err != nil {
			slog.Error("Bad upstream frame", slog.String("frame", string(buf)), slog.Any("Error", err))
			continue
		}
		fn(&up)
	}
}

// Ack sends an empty frame, the server turns it into a Label
func (u *Upstream) Ack() error {
	u.MU.Lock()
	defer u.MU.Unlock()
	return u.conn.WriteMessage(websocket.TextMessage, []byte{})
}

func (u *Upstream) Close() error {
	u.MU.Lock()
	defer u.MU.Unlock()
	u.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return u.conn.Close()
}
