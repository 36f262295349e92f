package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, maxClients int) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(maxClients, nil)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var evt Event
		require.NoError(t, json.Unmarshal(msg, &evt))
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHubBroadcastsOnlyToSubscribers(t *testing.T) {
	hub := startHub(t, 10)
	all := NewClient("u1", nil)
	jobsOnly := NewClient("u2", nil, "jobs")
	hub.Register(all)
	hub.Register(jobsOnly)
	waitForClients(t, hub, 2)

	hub.Broadcast(Change{Table: "spaces", Op: "INSERT", ID: "x"})
	assert.Equal(t, Event{Type: EventRefresh, Table: "spaces"}, receive(t, all))

	hub.Broadcast(Change{Table: "jobs", Op: "UPDATE"})
	assert.Equal(t, Event{Type: EventRefresh, Table: "jobs"}, receive(t, jobsOnly))
	assert.Empty(t, all.send)
}

func TestHubIgnoresChangesWithoutTable(t *testing.T) {
	hub := startHub(t, 10)
	c := NewClient("u1", nil)
	hub.Register(c)
	waitForClients(t, hub, 1)

	hub.Broadcast(Change{Op: "INSERT"})
	hub.Broadcast(Change{Table: "assets"})
	assert.Equal(t, "assets", receive(t, c).Table)
}

func TestHubEnforcesClientLimits(t *testing.T) {
	hub := startHub(t, 2)
	a, b, c := NewClient("u1", nil), NewClient("u2", nil), NewClient("u3", nil)
	hub.Register(a)
	hub.Register(b)
	waitForClients(t, hub, 2)
	hub.Register(c)

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("over-limit client was not closed")
	}
	assert.Equal(t, 2, hub.ClientCount())
}

func TestHubPerUserLimit(t *testing.T) {
	hub := startHub(t, 100)
	for i := 0; i < maxClientsPerUser; i++ {
		hub.Register(NewClient("same", nil))
	}
	waitForClients(t, hub, maxClientsPerUser)

	extra := NewClient("same", nil)
	hub.Register(extra)
	select {
	case _, ok := <-extra.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("extra client was not closed")
	}
}

func TestHubUnregister(t *testing.T) {
	hub := startHub(t, 10)
	c := NewClient("u1", nil)
	hub.Register(c)
	waitForClients(t, hub, 1)
	hub.Unregister(c)
	waitForClients(t, hub, 0)
}

func TestServeStreamsRefreshEvents(t *testing.T) {
	hub := startHub(t, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "owner-1", nil)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow() //nolint:errcheck

	waitForClients(t, hub, 1)
	hub.Broadcast(Change{Table: "properties", Op: "UPDATE", ID: "p1"})

	_, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"refresh","table":"properties"}`, string(msg))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	waitForClients(t, hub, 0)
}
