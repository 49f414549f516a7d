package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel carries shift events between API instances
const RedisChannel = "finscale:events"

// Hub keeps the WebSocket connections of this instance and fans shift
// events out to all of them. With Redis every event goes through Pub/Sub so
// clients connected to other instances receive it too.
type Hub struct {
	// userID -> connections (one doctor may have the app open on several devices)
	clients map[uuid.UUID]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{} // closed when Run returns

	rdb *redis.Client // nil: deliver locally only
}

// NewHub creates a hub; rdb may be nil
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		rdb:        rdb,
	}
}

// Run starts the hub's event loop and blocks until ctx is done
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case data := <-h.broadcast:
			h.broadcastToLocal(data)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister queues a client for removal; a stopped hub has already dropped it
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends event to every connected client on every instance
func (h *Hub) Broadcast(event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling broadcast event: %v", err)
		return
	}

	if h.rdb != nil {
		err := h.rdb.Publish(context.Background(), RedisChannel, data).Err()
		if err == nil {
			return
		}
		log.Printf("⚠️  Redis publish failed, delivering locally: %v", err)
	}
	h.enqueue(data)
}

func (h *Hub) enqueue(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		log.Printf("⚠️  WS broadcast queue full, dropping event")
	}
}

// ConnectedUsers returns how many distinct users are connected to this instance
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	log.Printf("✅ Client connected: %s (connections: %d)", client.UserID, len(h.clients[client.UserID]))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.drop(client)
	log.Printf("❌ Client disconnected: %s", client.UserID)
}

// drop removes client and closes its send channel once; callers hold mu
func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) broadcastToLocal(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// send buffer full: the client is too slow, disconnect it
				h.drop(client)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.drop(client)
		}
	}
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.enqueue([]byte(msg.Payload))
		}
	}
}
