package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/housebook/housebook-backend/pkg/logger"
)

const (
	writeTimeout     = 10 * time.Second
	readLimit        = 1024
	clientSendBuffer = 32
	pingInterval     = 30 * time.Second
	pingTimeout      = 10 * time.Second
)

// Client is one websocket connection subscribed to a set of tables.
type Client struct {
	UserID    string
	tables    map[string]struct{}
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

// NewClient builds a client; with no tables it subscribes to DefaultTables.
func NewClient(userID string, conn *websocket.Conn, tables ...string) *Client {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return &Client{
		UserID: userID,
		tables: set,
		conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
	}
}

func (c *Client) Subscribed(table string) bool {
	_, ok := c.tables[table]
	return ok
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump discards client frames and returns when the connection closes.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusGoingAway, "server closed feed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Serve upgrades the request and streams refresh events to userID until
// either side closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, logg *logger.Logger) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		if logg != nil {
			logg.Warn(r.Context(), "websocket upgrade failed: "+err.Error())
		}
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	client := NewClient(userID, conn)
	h.Register(client)
	defer h.Unregister(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		client.readPump(ctx)
		cancel()
	}()
	client.writePump(ctx)
}
