// Package pagination implements keyset paging over newest-first listings
// ordered by (created_at DESC, id DESC).
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorSep = "|"
)

var errCursorShape = errors.New("invalid cursor format")

type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the sort key of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is one slice of a listing. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer fetches one extra row so Trim can tell whether a next page
// exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(c Cursor) string {
	raw := strings.Join([]string{c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID.String()}, cursorSep)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for a blank value.
func ParseCursor(value string) (*Cursor, error) {
	if value = strings.TrimSpace(value); value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	stamp, id, found := strings.Cut(string(raw), cursorSep)
	if !found {
		return nil, errCursorShape
	}
	var c Cursor
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Trim drops the buffer row fetched by LimitWithBuffer and, when it was
// present, keys the next cursor on the last row kept.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	n := NormalizeLimit(limit)
	if len(rows) <= n {
		return rows, ""
	}
	return rows[:n], EncodeCursor(key(rows[n-1]))
}
