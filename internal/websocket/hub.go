package websocket

import (
	"encoding/json"
	"sync"

	"walipheros/internal/models"
)

// Message kinds sent to dashboard clients.
const (
	KindState = "state"
	KindToast = "toast"
)

type Message struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

type Toast struct {
	Title    string `json:"title"`
	Message  string `json:"msg"`
	Category string `json:"type"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// BroadcastState pushes a full state snapshot to every session of the user.
// This is the remote-change subscription surface of the dashboard.
func (h *Hub) BroadcastState(userID string, snapshot models.State) {
	h.broadcast(userID, Message{Kind: KindState, Payload: snapshot})
}

// BroadcastToast delivers a transient toast. Best effort: slow clients miss it.
func (h *Hub) BroadcastToast(userID string, toast Toast) {
	h.broadcast(userID, Message{Kind: KindToast, Payload: toast})
}

func (h *Hub) broadcast(userID string, message Message) {
	payload, _ := json.Marshal(message)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- payload:
		default:
		}
	}
}
