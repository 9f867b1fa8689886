package hub

import (
	"encoding/json"
	"sync"

	"github.com/coinhatch/coinhatch/pkg/log"
)

// Hub tracks which clients occupy which coin room and fans broadcasts
// out to them. Rooms are implicit: one appears when its first client
// joins and vanishes when the membership set empties.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	mu         sync.RWMutex
}

// RoomMessage is one payload queued for fan-out to a room.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // Client ID to exclude
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if members, ok := h.rooms[msg.RoomID]; ok {
				for clientID, client := range members {
					if clientID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom adds the client to a room's membership set.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room")
}

// LeaveRoom removes the client from a room's membership set. Leaving a
// room the client is not in is a no-op.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room")
}

// BroadcastToRoom queues a message for every client in the room,
// optionally excluding one client id.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &RoomMessage{
		RoomID:  roomID,
		Message: data,
		Exclude: exclude,
	}
	return nil
}

// RoomClientCount returns the number of clients currently in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// InRoom reports whether the client is in the room's membership set.
func (h *Hub) InRoom(clientID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][clientID]
	return ok
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
