package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Message is the WebSocket envelope format, both directions
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents one connected client. A connection starts
// unscoped and joins a team channel via the joinTeam event; channel
// membership is advisory, not a security boundary.
type Connection struct {
	ID     string
	TeamID string
	Send   chan []byte
	Hub    *Hub
}

type broadcastMessage struct {
	TeamID  string // empty means every connection
	Message *Message
}

type subscription struct {
	conn   *Connection
	teamID string
}

// Hub manages WebSocket connections and their team channels
type Hub struct {
	mu    sync.RWMutex
	conns map[*Connection]bool
	teams map[string]map[*Connection]bool

	register   chan *Connection
	unregister chan *Connection
	subscribe  chan *subscription
	broadcast  chan *broadcastMessage
}

// NewHub creates a new WebSocket hub and starts its run loop
func NewHub() *Hub {
	h := &Hub{
		conns:      make(map[*Connection]bool),
		teams:      make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		subscribe:  make(chan *subscription),
		broadcast:  make(chan *broadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = true
			h.mu.Unlock()
			log.Printf("Client %s connected", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if h.conns[conn] {
				delete(h.conns, conn)
				if conn.TeamID != "" {
					if members, ok := h.teams[conn.TeamID]; ok {
						delete(members, conn)
						if len(members) == 0 {
							delete(h.teams, conn.TeamID)
						}
					}
				}
				close(conn.Send)
				log.Printf("Client %s disconnected", conn.ID)
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			// Leave the previous channel on re-join.
			if sub.conn.TeamID != "" && sub.conn.TeamID != sub.teamID {
				if members, ok := h.teams[sub.conn.TeamID]; ok {
					delete(members, sub.conn)
				}
			}
			sub.conn.TeamID = sub.teamID
			if h.teams[sub.teamID] == nil {
				h.teams[sub.teamID] = make(map[*Connection]bool)
			}
			h.teams[sub.teamID][sub.conn] = true
			h.mu.Unlock()
			log.Printf("Client %s joined team channel %s", sub.conn.ID, sub.teamID)

		case msg := <-h.broadcast:
			data, _ := json.Marshal(msg.Message)

			h.mu.RLock()
			if msg.TeamID == "" {
				for conn := range h.conns {
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			} else if members, ok := h.teams[msg.TeamID]; ok {
				for conn := range members {
					select {
					case conn.Send <- data:
					default:
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// Subscribe joins a connection to a team channel
func (h *Hub) Subscribe(conn *Connection, teamID string) {
	h.subscribe <- &subscription{conn: conn, teamID: teamID}
}

// BroadcastToTeam sends an event to one team's channel (implements
// service.Broadcaster)
func (h *Hub) BroadcastToTeam(teamID string, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		TeamID:  teamID,
		Message: &Message{Type: event, Payload: data},
	}
}

// BroadcastAll sends an event to every connection (implements
// service.Broadcaster)
func (h *Hub) BroadcastAll(event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &broadcastMessage{
		Message: &Message{Type: event, Payload: data},
	}
}

// SendTo queues an event for a single connection
func (h *Hub) SendTo(conn *Connection, event string, payload interface{}) {
	data, _ := json.Marshal(payload)
	raw, _ := json.Marshal(&Message{Type: event, Payload: data})
	select {
	case conn.Send <- raw:
	default:
	}
}
