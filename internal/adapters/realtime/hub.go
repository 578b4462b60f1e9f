package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vncsmyrnk/pollvote/internal/core/domain"
	"github.com/vncsmyrnk/pollvote/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

const MsgPollUpdated = "poll.updated"

var ErrHubClosed = errors.New("live updates are shutting down")

type Message struct {
	Type      string       `json:"type"`
	PollID    uuid.UUID    `json:"poll_id"`
	Poll      *domain.Poll `json:"poll"`
	Timestamp time.Time    `json:"timestamp"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	pollID uuid.UUID
}

// Hub keeps one room of subscribers per poll and broadcasts poll updates to
// them. A subscriber that cannot keep up is dropped.
type Hub struct {
	rooms      map[uuid.UUID]map[*client]struct{}
	broadcast  chan *Message
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*client]struct{}),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for c := range room {
					h.drop(c)
				}
			}
			return

		case c := <-h.register:
			room, ok := h.rooms[c.pollID]
			if !ok {
				room = make(map[*client]struct{})
				h.rooms[c.pollID] = room
			}
			room[c] = struct{}{}
			metrics.LiveSubscribers.Inc()

		case c := <-h.unregister:
			if room, ok := h.rooms[c.pollID]; ok {
				if _, ok := room[c]; ok {
					h.drop(c)
				}
			}

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal live message", "poll_id", msg.PollID, "error", err)
				continue
			}
			for c := range h.rooms[msg.PollID] {
				select {
				case c.send <- payload:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	room := h.rooms[c.pollID]
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.pollID)
	}
	close(c.send)
	metrics.LiveSubscribers.Dec()
}

// PublishPoll queues an update for the poll's room. It never blocks the
// caller; updates are dropped when the queue is full.
func (h *Hub) PublishPoll(poll *domain.Poll) {
	msg := &Message{
		Type:      MsgPollUpdated,
		PollID:    poll.ID,
		Poll:      poll,
		Timestamp: time.Now().UTC(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("live update dropped", "poll_id", poll.ID)
	}
}

// Subscribe upgrades the request and streams updates of pollID to it.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, pollID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		pollID: pollID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// readPump only services control frames; clients do not send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("live connection closed", "poll_id", c.pollID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
