package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"detectlab/internal/dto"
	"detectlab/internal/logger"

	"github.com/gorilla/websocket"
)

// BroadcastBuffer is how many frames may wait for the hub before new ones are dropped.
const BroadcastBuffer = 64

type subscription struct {
	conn    *websocket.Conn
	session string
}

// HubService fans frame messages out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]string // wartość = filtr sesji, "" = wszystkie
	broadcast  chan dto.FrameMessage
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan dto.FrameMessage, BroadcastBuffer),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is cancelled.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.session
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.send(message)

		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *HubService) send(message dto.FrameMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Error encoding frame message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client, session := range h.clients {
		if session != "" && session != message.Session {
			continue
		}
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Error("Error sending message: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
}

// Register adds a viewer; session limits it to one session's frames.
func (h *HubService) Register(client *websocket.Conn, session string) {
	select {
	case h.register <- subscription{conn: client, session: session}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a frame for all viewers. It never blocks; frames are dropped when the queue is full.
func (h *HubService) Broadcast(message dto.FrameMessage) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warning("Broadcast queue full - dropping frame %d of session %s", message.Frame, message.Session)
		return false
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
