package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/housebook/housebook-backend/pkg/logger"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
	readDeadline   = 2 * time.Minute
)

// Broadcaster receives decoded change notifications.
type Broadcaster interface {
	Broadcast(change Change)
}

// NotifyBridge LISTENs on a Postgres channel and forwards each payload to
// the hub.
type NotifyBridge struct {
	pool    *pgxpool.Pool
	channel string
	hub     Broadcaster
	logg    *logger.Logger
}

func NewNotifyBridge(pool *pgxpool.Pool, channel string, hub Broadcaster, logg *logger.Logger) (*NotifyBridge, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool required")
	}
	if hub == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	if channel == "" {
		return nil, fmt.Errorf("listen channel required")
	}
	return &NotifyBridge{pool: pool, channel: channel, hub: hub, logg: logg}, nil
}

// Start checks the database is reachable and then listens in the background.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}
	go b.listen(ctx)
	return nil
}

func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		if b.logg != nil {
			b.logg.Error(b.logg.WithField(ctx, "retry_in", backoff.String()), "notify bridge connection lost", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}
	if b.logg != nil {
		b.logg.Info(b.logg.WithField(ctx, "channel", b.channel), "notify bridge listening")
	}

	for {
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("waiting for notification: %w", err)
		}
		b.handle(ctx, notification)
	}
}

func (b *NotifyBridge) handle(ctx context.Context, n *pgconn.Notification) {
	change, ok := decodeChange(n.Payload)
	if !ok {
		if b.logg != nil {
			b.logg.Warn(ctx, "dropping notification without table")
		}
		return
	}
	b.hub.Broadcast(change)
}

func decodeChange(payload string) (Change, bool) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil || change.Table == "" {
		return Change{}, false
	}
	return change, true
}

// nextBackoff doubles the wait with ±25% jitter, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return time.Duration(float64(next) * (0.75 + rand.Float64()*0.5)) //nolint:gosec
}
