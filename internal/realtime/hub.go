package realtime

import (
	"context"
	"sync/atomic"

	"github.com/housebook/housebook-backend/pkg/logger"
)

const (
	broadcastBuffer   = 256
	registerBuffer    = 64
	maxClientsPerUser = 5
)

// Hub fans refresh events out to subscribed clients. The client map is owned
// by the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	perUser    map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan string
	done       chan struct{}
	count      atomic.Int64
	maxClients int
	logg       *logger.Logger
}

func NewHub(maxClients int, logg *logger.Logger) *Hub {
	if maxClients <= 0 {
		maxClients = 1000
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		perUser:    make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan string, broadcastBuffer),
		done:       make(chan struct{}),
		maxClients: maxClients,
		logg:       logg,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			if len(h.clients) >= h.maxClients {
				h.warn(ctx, "realtime client limit reached, dropping client")
				client.closeSend()
				continue
			}
			if h.perUser[client.UserID] >= maxClientsPerUser {
				h.warn(h.userCtx(ctx, client), "per-user realtime limit reached, dropping client")
				client.closeSend()
				continue
			}
			h.clients[client] = struct{}{}
			h.perUser[client.UserID]++
			h.count.Store(int64(len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
			h.count.Store(int64(len(h.clients)))

		case table := <-h.broadcast:
			msg := encodeRefresh(table)
			for client := range h.clients {
				if !client.Subscribed(table) {
					continue
				}
				select {
				case client.send <- msg:
				default:
					h.drop(client)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.closeSend()
	h.perUser[client.UserID]--
	if h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}
}

// Broadcast queues a refresh for clients subscribed to table.
func (h *Hub) Broadcast(change Change) {
	if change.Table == "" {
		return
	}
	select {
	case h.broadcast <- change.Table:
	default:
		h.warn(context.Background(), "realtime broadcast channel full, dropping event")
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.warn(context.Background(), "realtime register channel full, dropping client")
		c.closeSend()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) userCtx(ctx context.Context, c *Client) context.Context {
	if h.logg == nil {
		return ctx
	}
	return h.logg.WithUserID(ctx, c.UserID)
}

func (h *Hub) warn(ctx context.Context, msg string) {
	if h.logg != nil {
		h.logg.Warn(ctx, msg)
	}
}
