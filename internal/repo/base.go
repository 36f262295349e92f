// Package repo holds the pieces every gorm-backed repository shares.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. The zero value is unusable.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx. A nil ctx yields the bare connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bound reports a Base using tx, or b itself when tx is nil.
func (b Base) Bound(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// Exists reports whether model has any row matching query.
func (b Base) Exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var n int64
	err := b.DB(ctx).Model(model).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}
