package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// WatchProperties subscribes to the owner property feed and calls fn for each
// refresh trigger until ctx ends or the server closes the stream. Events carry
// no row data; callers refetch, typically through a Loader.
func (c *Client) WatchProperties(ctx context.Context, fn func(FeedEvent)) error {
	wsURL := c.baseURL + ownerPrefix + "/properties/feed"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: "feed handshake rejected"}
		}
		return err
	}
	defer conn.CloseNow()

	for {
		var ev FeedEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		fn(ev)
	}
}
