package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/fynbos-digital/invoiceflow/internal/models"
)

// Hub maintains the set of active dashboard clients and fans import updates
// out to all of them. Clients are passive listeners; there is no per-client
// routing.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("📡 Dashboard client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("📴 Dashboard client disconnected: %s", client.ID)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Buffer full or client dead; the write pump will
					// notice and unregister it.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastImportUpdate pushes the current state of an import to every
// connected dashboard. Called by the pipeline after each state change.
func (h *Hub) BroadcastImportUpdate(imp *models.OCRImport) {
	h.BroadcastJSON("IMPORT_UPDATED", imp)
}

// BroadcastJSON marshals and fans out a typed event.
func (h *Hub) BroadcastJSON(eventType string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Nobody is draining the hub; dropping a notification is harmless
		// because the dashboard refetches on reconnect.
	}
}
