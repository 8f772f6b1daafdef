// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/channel-curator/internal/core/domain"
)

// ItemReader handles item lookups.
type ItemReader interface {
	// MaxItemID returns the highest stored id for channel, or false when the channel has no rows.
	MaxItemID(ctx context.Context, channel string) (int64, bool, error)
	// MinItemID returns the lowest id among the newest limit rows for channel.
	MinItemID(ctx context.Context, channel string, limit int) (int64, bool, error)
	GetItem(ctx context.Context, key domain.ItemKey) (*domain.Item, error)
	PublishedItems(ctx context.Context, since time.Time) ([]domain.Item, error)
	UnpublishedItems(ctx context.Context) ([]domain.Item, error)
}

// ItemWriter handles item persistence. Each call commits on success and
// rolls back on error.
type ItemWriter interface {
	SaveItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, key domain.ItemKey, upd domain.ItemUpdate) error
}

// ItemSession is a scoped unit of store access.
type ItemSession interface {
	ItemReader
	ItemWriter
	Close()
}

// SessionFactory opens item sessions.
type SessionFactory interface {
	OpenSession(ctx context.Context) (ItemSession, error)
}
