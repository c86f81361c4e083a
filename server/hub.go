package livedemo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	Lo "github.com/maroda/livedemo/obvy"
	Lp "github.com/maroda/livedemo/plugin"
	Lt "github.com/maroda/livedemo/types"
)

const (
	clientBuffer = 256
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket subscriber
type Client struct {
	send chan []byte
}

// Hub fans every update out to every subscribed client.
// Everything except the channels is only touched by the Run goroutine.
type Hub struct {
	clients     map[*Client]bool
	subscribe   chan *Client
	unsubscribe chan *Client
	broadcast   chan *Lt.Update
	done        chan struct{}

	Stream  *StreamStats
	Outputs []Lp.OutputAdapter
	Series  *SeriesSet
	Stats   *Lo.StatsInternal
	Now     func() time.Time

	plot *Plot
}

// NewHub creates a hub mirroring into a SeriesSet of seriesLen points
func NewHub(stats *Lo.StatsInternal, seriesLen int, outputs ...Lp.OutputAdapter) *Hub {
	ss := NewSeriesSet(seriesLen)
	return &Hub{
		clients:     make(map[*Client]bool),
		subscribe:   make(chan *Client),
		unsubscribe: make(chan *Client),
		broadcast:   make(chan *Lt.Update),
		done:        make(chan struct{}),
		Stream:      NewStreamStats(),
		Outputs:     outputs,
		Series:      ss,
		Stats:       stats,
		Now:         time.Now,
		plot:        NewPlotOnSet(ss),
	}
}

// Broadcast hands an update to Run, false once the hub has stopped
func (h *Hub) Broadcast(u *Lt.Update) bool {
	select {
	case h.broadcast <- u:
		return true
	case <-h.done:
		return false
	}
}

// Run owns the client set until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.subscribe:
			h.clients[c] = true
			h.recClients()
		case c := <-h.unsubscribe:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				h.recClients()
			}
		case u := <-h.broadcast:
			buf, ok := h.process(u)
			if !ok {
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- buf:
				default:
					slog.Warn("Dropping slow websocket client")
					delete(h.clients, c)
					close(c.send)
					h.recClients()
				}
			}
		}
	}
}

// process stamps, annotates, records, and encodes one update.
// Updates with no resolvable kind are dropped so clients never see them.
func (h *Hub) process(u *Lt.Update) ([]byte, bool) {
	if u.Time == 0 {
		u.Time = h.Now().UnixMilli()
	}

	if u.Value != nil && !u.Reset && !u.Label {
		h.Stream.Push(*u.Value)
		if h.Stream.Full() {
			u.Pred = h.Stream.Pred()
		}
	}

	ev, err := Resolve(u)
	if err != nil {
		slog.Error("Dropping update", slog.Any("error", err))
		return nil, false
	}

	for _, out := range h.Outputs {
		if err := out.WriteUpdate(u); err != nil {
			slog.Error("Failed to record update",
				slog.String("output", out.Type()),
				slog.Any("error", err))
			if h.Stats != nil {
				h.Stats.RecRecordError()
			}
		}
	}

	h.plot.Handle(ev)

	buf, err := json.Marshal(u)
	if err != nil {
		slog.Error("Failed to marshal update", slog.Any("error", err))
		return nil, false
	}

	if h.Stats != nil {
		h.Stats.RecUpdate(ev.Kind.String())
	}
	return buf, true
}

func (h *Hub) recClients() {
	if h.Stats != nil {
		h.Stats.SetClients(len(h.clients))
	}
}

// RunSource drives src into the hub, restarting it after a failure
func (h *Hub) RunSource(ctx context.Context, src Source) {
	emit := func(u *Lt.Update) { h.Broadcast(u) }
	for {
		slog.Info("Source starting", slog.String("source", src.Name()))
		err := src.Generate(ctx, emit)
		if ctx.Err() != nil {
			return
		}
		slog.Error("Source stopped", slog.String("source", src.Name()), slog.Any("error", err))
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

// WebsocketHandler streams updates to the client,
// every inbound frame is an operator acknowledgement
func (h *Hub) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	c := &Client{send: make(chan []byte, clientBuffer)}
	select {
	case h.subscribe <- c:
	case <-h.done:
		return
	}

	go func() {
		for buf := range c.send {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.Debug("Websocket write failed", slog.Any("error", err))
				}
				conn.Close()
				return
			}
		}
		// hub closed us, tell the peer
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Websocket read ended", slog.Any("error", err))
			}
			break
		}
		if !h.Broadcast(&Lt.Update{Label: true}) {
			break
		}
	}

	select {
	case h.unsubscribe <- c:
	case <-h.done:
	}
}
