package domain

import "time"

// ItemKey is the composite identity of an Item. It never changes after creation.
type ItemKey struct {
	ID      int64
	Channel string
}

// Item is one unit of fetched channel content tracked through curation.
type Item struct {
	ID        int64
	Channel   string
	Timestamp time.Time
	Published *time.Time

	Text string
	Alt  *string

	Score           *float64
	ScoreAlt        *float64
	ScoreImprove    *float64
	SimilarityScore *float64

	// Embedding is derived from Alt. Nil until the item is accepted.
	Embedding []float32

	Views     *int64
	Reactions *int64
	Forwards  *int64
}

// Key returns the composite identity of the item.
func (i *Item) Key() ItemKey {
	return ItemKey{ID: i.ID, Channel: i.Channel}
}

// HasEmbedding reports whether a non-empty embedding is attached.
func (i *Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// RawItem is a record as returned by the feed adapter.
type RawItem struct {
	ID        int64
	Text      string
	Timestamp time.Time
	Views     *int64
	Reactions *int64
	Forwards  *int64
}

// NewItem builds an in-memory Item from a raw feed record.
func NewItem(channel string, raw RawItem) *Item {
	return &Item{
		ID:        raw.ID,
		Channel:   channel,
		Timestamp: raw.Timestamp,
		Text:      raw.Text,
		Views:     raw.Views,
		Reactions: raw.Reactions,
		Forwards:  raw.Forwards,
	}
}

// ItemUpdate is a typed partial update. Only non-nil fields are applied.
type ItemUpdate struct {
	Views           *int64
	Reactions       *int64
	Forwards        *int64
	SimilarityScore *float64
}

// IsEmpty reports whether the update carries no fields.
func (u ItemUpdate) IsEmpty() bool {
	return u.Views == nil && u.Reactions == nil && u.Forwards == nil &&
		u.SimilarityScore == nil
}

// Int64Value returns the pointed-to value or zero.
func Int64Value(v *int64) int64 {
	if v == nil {
		return 0
	}

	return *v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
