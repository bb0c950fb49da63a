// Package events fans out upload and content events to websocket clients.
package events

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types.
const (
	ImagesUploaded     = "images.uploaded"
	PropertyUpdated    = "property.updated"
	ImageCopyGenerated = "image.copy_generated"
	ListingCopyQueued  = "listing.copy_queued"
)

// Event is the JSON message sent to every connected client.
type Event struct {
	Type       string    `json:"type"`
	PropertyID string    `json:"property_id"`
	ImageIDs   []string  `json:"image_ids,omitempty"`
	Failed     int       `json:"failed,omitempty"`
	At         time.Time `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket clients. Run must be running for Publish to deliver.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	log        logrus.FieldLogger
}

// NewHub constructs a Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log.WithField("service", "events"),
	}
}

// Run owns the client set until Shutdown is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.WithField("clients", len(h.clients)).Debug("client_connected")

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.log.WithField("clients", len(h.clients)).Debug("client_disconnected")

		case ev := <-h.broadcast:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.WithError(err).Error("event_marshal_failed")
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow client; drop it.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues ev for delivery. It never blocks the caller: events are
// dropped when the hub is stopped or its buffer is full.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case <-h.done:
	case h.broadcast <- ev:
	default:
		h.log.WithField("type", ev.Type).Warn("event_dropped")
	}
}

// Shutdown stops Run and closes every client.
func (h *Hub) Shutdown() {
	close(h.done)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades the request and streams events to the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket_upgrade_failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket_read_error")
			}
			return
		}
	}
}
