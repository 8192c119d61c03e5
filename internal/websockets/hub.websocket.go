package websockets

import (
	"sync"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_AUTHENTICATED
)

type Hub struct {
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func (h *Hub) run(manager *Manager) {
	log := manager.log.Function("run")

	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mutex.Unlock()
			log.Info("Client registered", "clientID", client.ID, "totalClients", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			count := len(h.clients)
			h.mutex.Unlock()
			log.Info("Client unregistered", "clientID", client.ID, "totalClients", count)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- message:
				default:
					log.Warn("Client send channel full, dropping broadcast", "clientID", client.ID)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// ClientCount reports connected clients, authenticated or not.
func (m *Manager) ClientCount() int {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()
	return len(m.hub.clients)
}
