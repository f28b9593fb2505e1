// Package events fans checkout activity out to interested parties: an
// operator-facing WebSocket stream of per-item outcomes, and a Kafka topic
// carrying refund intents for the payments team.
package events

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the WebSocket connections of operators watching checkout
// activity and broadcasts outcome events to all of them.
type Hub struct {
	connections map[*websocket.Conn]struct{}
	Register    chan *websocket.Conn
	Unregister  chan *websocket.Conn
	Broadcast   chan []byte
	done        chan struct{}
	mu          sync.Mutex
}

// NewHub constructs a Hub. Run must be started before any channel is used.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]struct{}),
		Register:    make(chan *websocket.Conn),
		Unregister:  make(chan *websocket.Conn),
		Broadcast:   make(chan []byte),
		done:        make(chan struct{}),
	}
}

// Done is closed when Run returns; senders select on it to avoid blocking
// on a stopped hub.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes register/unregister/broadcast events until ctx is
// cancelled, then closes every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.connections {
				conn.Close()
				delete(h.connections, conn)
			}
			h.mu.Unlock()
			return
		case conn := <-h.Register:
			h.mu.Lock()
			h.connections[conn] = struct{}{}
			h.mu.Unlock()
		case conn := <-h.Unregister:
			h.mu.Lock()
			delete(h.connections, conn)
			h.mu.Unlock()
			conn.Close()
		case msg := <-h.Broadcast:
			h.mu.Lock()
			for conn := range h.connections {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.connections, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ConnectionCount reports the number of registered watchers.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}
