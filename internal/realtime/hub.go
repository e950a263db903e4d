// Package realtime pushes live attendance snapshots and worksite changes to
// browser clients over websockets.
package realtime

import (
	"context"
	"log"
	"sync"

	"github.com/xelth-com/geoattend/internal/store"
)

// ConnectionObserver is told about every client that joins or leaves
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

// Hub maintains the set of active clients and the stores they subscribe to
type Hub struct {
	records   store.AttendanceStore
	worksites store.WorksiteStore
	observer  ConnectionObserver

	// Registered clients
	clients map[*Client]struct{}

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// NewHub creates a new Hub instance. observer may be nil.
func NewHub(records store.AttendanceStore, worksites store.WorksiteStore, observer ConnectionObserver) *Hub {
	return &Hub{
		records:    records,
		worksites:  worksites,
		observer:   observer,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. When ctx ends every client is dropped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			if h.observer != nil {
				h.observer.ClientConnected()
			}
			log.Printf("📱 Realtime: client connected (%s)", client.user.Email)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if ok {
				client.shutdown()
				if h.observer != nil {
					h.observer.ClientDisconnected()
				}
				log.Printf("📴 Realtime: client disconnected (%s)", client.user.Email)
			}

		case <-ctx.Done():
			h.mu.Lock()
			clients := h.clients
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			for client := range clients {
				client.shutdown()
				if h.observer != nil {
					h.observer.ClientDisconnected()
				}
			}
			return
		}
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.shutdown()
	}
}
