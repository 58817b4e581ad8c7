package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/metrics"
	"github.com/abrezinsky/cartepays/internal/models"
	"github.com/abrezinsky/cartepays/internal/selection"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/session"
)

// Outgoing message types
const (
	MessageState           = "state"
	MessageCountrySelected = "country_selected"
	MessageMapUpdated      = "map_updated"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	log        logger.Logger
	maps       services.MapServicer
	upgrader   websocket.Upgrader
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub.
// Each client drives its own map session.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
	session *session.Session
}

// New creates a new Hub. An empty allowedOrigins accepts every origin.
func New(log logger.Logger, maps services.MapServicer, allowedOrigins []string) *Hub {
	h := &Hub{
		log:        log,
		maps:       maps,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: checkOrigin(allowedOrigins)}
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		if len(set) == 0 || set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			metrics.ConnectedViewers.Inc()
			h.log.Debug("Client connected", "session", client.session.ID(), "total_clients", total)

			client.send <- models.WSMessage{Type: MessageState, Payload: client.session.Snapshot()}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.ConnectedViewers.Dec()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "session", client.session.ID(),
				"duration", time.Since(client.session.CreatedAt()).Round(time.Second), "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// BroadcastMapUpdated implements services.Broadcaster. Viewers reload
// because their sessions belong to the previous map.
func (h *Hub) BroadcastMapUpdated() {
	h.BroadcastMessage(MessageMapUpdated, nil)
}

// EmitSelection implements selection.Emitter. The clicked country goes to
// this viewer only, whose page forwards it to its own host.
func (c *Client) EmitSelection(rec models.CountryRecord) {
	c.reply(models.WSMessage{Type: MessageCountrySelected, Payload: rec})
}

// reply queues a message for this client only
func (c *Client) reply(msg models.WSMessage) {
	select {
	case c.send <- msg:
	default:
		c.hub.log.Warn("Dropping reply, send buffer full", "session", c.session.ID())
	}
}

// readPump decodes viewer events and dispatches them to the client's session
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}

		ev, err := session.DecodeEvent(message)
		if err != nil {
			c.hub.log.Debug("Ignoring event", "session", c.session.ID(), "error", err)
			continue
		}
		snap, err := c.session.Dispatch(ev)
		if err != nil {
			c.hub.log.Debug("Event rejected", "session", c.session.ID(), "error", err)
			continue
		}
		c.reply(models.WSMessage{Type: MessageState, Payload: snap})
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
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

// ServeWs mounts the map if needed and starts a session for the new viewer
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	m, err := h.maps.Map(r.Context())
	if err != nil {
		h.log.Error("Map unavailable for websocket client", "error", err)
		http.Error(w, "map unavailable", http.StatusBadGateway)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, sendBuffer),
	}
	client.session = session.New(m, client, session.WithLogger(h.log))
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}

var (
	_ services.Broadcaster = (*Hub)(nil)
	_ selection.Emitter    = (*Client)(nil)
)
