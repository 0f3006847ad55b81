package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/models"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientMessage is what a viewer may send over the socket. Absent fields are
// left unchanged.
type ClientMessage struct {
	Live     *bool                  `json:"live,omitempty"`
	Refresh  bool                   `json:"refresh,omitempty"`
	Controls *Controls              `json:"controls,omitempty"`
	Location *models.LocationSample `json:"location,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	controls Controls
	viewer   *models.LocationSample
	shown    *Snapshot
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		controls: DefaultControls(),
	}
}

func (c *client) settings() (Controls, *models.LocationSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controls, c.viewer
}

// enqueue hands data to the write pump without blocking. It reports false
// when the viewer is gone or has fallen sendBuffer frames behind.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Hub fans tracker snapshots out to websocket viewers.
type Hub struct {
	refresh  func(ctx context.Context) Snapshot
	fallback models.Location

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  *Snapshot
}

// NewHub creates a hub. refresh performs an out-of-cycle read for a viewer
// that asks for one.
func NewHub(fallback models.Location, refresh func(ctx context.Context) Snapshot) *Hub {
	return &Hub{
		refresh:  refresh,
		fallback: fallback,
		clients:  make(map[*client]struct{}),
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return Snapshot{}, false
	}
	return *h.latest, true
}

// Publish records snapshot and pushes it to live viewers if the vehicle
// document or the overlay availability changed since the previous Publish.
func (h *Hub) Publish(snapshot Snapshot) {
	h.mu.Lock()
	changed := h.latest == nil ||
		!sameState(h.latest.State, snapshot.State) ||
		(h.latest.Overlay == nil) != (snapshot.Overlay == nil)
	h.latest = &snapshot
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	if !changed {
		return
	}
	for _, c := range targets {
		controls, _ := c.settings()
		if !controls.Live {
			continue
		}
		h.send(c, snapshot)
	}
}

// ServeWS upgrades the request and registers the viewer.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	c := newClient(conn)
	h.add(c)
	go h.writePump(c)

	if snapshot, ok := h.Latest(); ok {
		h.send(c, snapshot)
	} else if h.refresh != nil {
		h.send(c, h.refresh(r.Context()))
	}
	go h.readPump(c)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.WithField("clients", count).Debug("Tracker viewer connected")
}

func (h *Hub) remove(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}

// send renders snapshot for c and queues it.
func (h *Hub) send(c *client, snapshot Snapshot) {
	c.mu.Lock()
	view := BuildView(snapshot.State, c.viewer, snapshot.Overlay, c.controls, h.fallback)
	c.shown = &snapshot
	c.mu.Unlock()

	data, err := json.Marshal(view)
	if err != nil {
		log.WithError(err).Error("Failed to encode tracker view")
		return
	}
	if !c.enqueue(data) {
		log.Debug("Dropping slow tracker viewer")
		h.remove(c)
	}
}

func (h *Hub) writePump(c *client) {
	defer h.remove(c)
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.WithError(err).Debug("Dropping tracker viewer")
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Debug("Ignoring malformed viewer message")
			continue
		}
		h.handle(c, msg)
	}
}

// handle applies a viewer message and re-renders for that viewer when its
// view is affected. A refresh reaches only this viewer and leaves the
// published snapshot alone.
func (h *Hub) handle(c *client, msg ClientMessage) {
	c.mu.Lock()
	rerender := false
	if msg.Controls != nil {
		live := c.controls.Live
		c.controls = msg.Controls.Normalize()
		c.controls.Live = live
		rerender = true
	}
	if msg.Live != nil {
		if *msg.Live && !c.controls.Live {
			rerender = true
		}
		c.controls.Live = *msg.Live
	}
	if msg.Location != nil {
		sample := *msg.Location
		c.viewer = &sample
		rerender = true
	}
	live := c.controls.Live
	shown := c.shown
	c.mu.Unlock()

	if msg.Refresh && h.refresh != nil {
		h.send(c, h.refresh(context.Background()))
		return
	}
	if !rerender || !live {
		return
	}
	if snapshot, ok := h.current(shown); ok {
		h.send(c, snapshot)
	}
}

// current picks the newer of the published snapshot and the one the viewer
// last saw.
func (h *Hub) current(shown *Snapshot) (Snapshot, bool) {
	latest, ok := h.Latest()
	if shown != nil && (!ok || shown.ReadAt.After(latest.ReadAt)) {
		return *shown, true
	}
	return latest, ok
}

func sameState(a, b models.VehicleState) bool {
	if a.Latitude != b.Latitude || a.Longitude != b.Longitude || a.Status != b.Status {
		return false
	}
	if a.Timestamp == nil || b.Timestamp == nil {
		return a.Timestamp == nil && b.Timestamp == nil
	}
	return *a.Timestamp == *b.Timestamp
}
