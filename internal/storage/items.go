package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var itemColumns = []string{
	"id", "channel", "ts", "published", "text", "alt",
	"score", "score_alt", "score_improve", "similarity_score",
	"embedding::text", "views", "reactions", "forwards",
}

const upsertItemSQL = `
INSERT INTO items (
	id, channel, ts, published, text, alt,
	score, score_alt, score_improve, similarity_score,
	embedding, views, reactions, forwards
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id, channel) DO UPDATE SET
	ts = EXCLUDED.ts,
	published = COALESCE(EXCLUDED.published, items.published),
	text = EXCLUDED.text,
	alt = EXCLUDED.alt,
	score = EXCLUDED.score,
	score_alt = EXCLUDED.score_alt,
	score_improve = EXCLUDED.score_improve,
	similarity_score = EXCLUDED.similarity_score,
	embedding = EXCLUDED.embedding,
	views = EXCLUDED.views,
	reactions = EXCLUDED.reactions,
	forwards = EXCLUDED.forwards,
	updated_at = now()`

const minItemIDSQL = `
SELECT MIN(id) FROM (
	SELECT id FROM items WHERE channel = $1 ORDER BY id ASC LIMIT $2
) earliest`

// MaxItemID returns the highest stored id for channel.
func (s *Session) MaxItemID(ctx context.Context, channel string) (int64, bool, error) {
	var id *int64

	err := s.conn.QueryRow(ctx, `SELECT MAX(id) FROM items WHERE channel = $1`, channel).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("get max item id: %w", err)
	}

	if id == nil {
		return 0, false, nil
	}

	return *id, true, nil
}

// MinItemID returns the earliest stored id for channel, scanning at most
// limit rows in ascending id order.
func (s *Session) MinItemID(ctx context.Context, channel string, limit int) (int64, bool, error) {
	var id *int64

	err := s.conn.QueryRow(ctx, minItemIDSQL, channel, limit).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("get min item id: %w", err)
	}

	if id == nil {
		return 0, false, nil
	}

	return *id, true, nil
}

// GetItem fetches a single item by its composite key.
func (s *Session) GetItem(ctx context.Context, key domain.ItemKey) (*domain.Item, error) {
	query, args, err := psql.Select(itemColumns...).
		From(itemsTable).
		Where(sq.Eq{"id": key.ID, "channel": key.Channel}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get item query: %w", err)
	}

	item, err := s.scanItem(s.conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get item %d/%s: %w", key.ID, key.Channel, apperrors.ErrNotFound)
		}

		return nil, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

// PublishedItems returns items with published set and a timestamp at or after since.
func (s *Session) PublishedItems(ctx context.Context, since time.Time) ([]domain.Item, error) {
	query, args, err := psql.Select(itemColumns...).
		From(itemsTable).
		Where(sq.NotEq{"published": nil}).
		Where(sq.GtOrEq{"ts": since}).
		OrderBy("ts").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build published items query: %w", err)
	}

	return s.queryItems(ctx, query, args...)
}

// UnpublishedItems returns items that carry an embedding but were never published.
func (s *Session) UnpublishedItems(ctx context.Context) ([]domain.Item, error) {
	query, args, err := psql.Select(itemColumns...).
		From(itemsTable).
		Where(sq.NotEq{"embedding": nil}).
		Where(sq.Eq{"published": nil}).
		OrderBy("channel", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unpublished items query: %w", err)
	}

	return s.queryItems(ctx, query, args...)
}

// SaveItem inserts the item or overwrites the stored row with the same key.
// A stored published timestamp is never cleared.
func (s *Session) SaveItem(ctx context.Context, item *domain.Item) error {
	var embedding any
	if item.HasEmbedding() {
		embedding = pgvector.NewVector(item.Embedding)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, upsertItemSQL,
			item.ID,
			item.Channel,
			item.Timestamp,
			item.Published,
			SanitizeUTF8(item.Text),
			sanitizePtr(item.Alt),
			item.Score,
			item.ScoreAlt,
			item.ScoreImprove,
			item.SimilarityScore,
			embedding,
			item.Views,
			item.Reactions,
			item.Forwards,
		)
		if err != nil {
			return fmt.Errorf("save item %d/%s: %w", item.ID, item.Channel, err)
		}

		return nil
	})
}

// UpdateItem applies the present fields of upd to the stored item.
// An empty update is logged and ignored.
func (s *Session) UpdateItem(ctx context.Context, key domain.ItemKey, upd domain.ItemUpdate) error {
	builder, ok := buildItemUpdate(key, upd)
	if !ok {
		s.logger.Warn().
			Int64(logFieldItemID, key.ID).
			Str(logFieldChannel, key.Channel).
			Msg("item update carries no fields, ignoring")

		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build item update: %w", err)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update item %d/%s: %w", key.ID, key.Channel, err)
		}

		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update item %d/%s: %w", key.ID, key.Channel, apperrors.ErrNotFound)
		}

		return nil
	})
}

func buildItemUpdate(key domain.ItemKey, upd domain.ItemUpdate) (sq.UpdateBuilder, bool) {
	if upd.IsEmpty() {
		return sq.UpdateBuilder{}, false
	}

	b := psql.Update(itemsTable)

	if upd.Views != nil {
		b = b.Set("views", *upd.Views)
	}

	if upd.Reactions != nil {
		b = b.Set("reactions", *upd.Reactions)
	}

	if upd.Forwards != nil {
		b = b.Set("forwards", *upd.Forwards)
	}

	if upd.SimilarityScore != nil {
		b = b.Set("similarity_score", *upd.SimilarityScore)
	}

	b = b.Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": key.ID, "channel": key.Channel})

	return b, true
}

func (s *Session) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item

	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

func (s *Session) scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		item      domain.Item
		embedding *string
	)

	err := row.Scan(
		&item.ID,
		&item.Channel,
		&item.Timestamp,
		&item.Published,
		&item.Text,
		&item.Alt,
		&item.Score,
		&item.ScoreAlt,
		&item.ScoreImprove,
		&item.SimilarityScore,
		&embedding,
		&item.Views,
		&item.Reactions,
		&item.Forwards,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}

	vec, err := decodeEmbedding(embedding)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int64(logFieldItemID, item.ID).
			Str(logFieldChannel, item.Channel).
			Msg("stored embedding is malformed, treating as absent")
	}

	item.Embedding = vec

	return &item, nil
}

// decodeEmbedding parses the text form of a pgvector value.
func decodeEmbedding(raw *string) ([]float32, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	text := strings.TrimSpace(*raw)
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return nil, fmt.Errorf("%w: missing brackets", apperrors.ErrMalformedEmbedding)
	}

	if text == "[]" {
		return nil, nil
	}

	var v pgvector.Vector
	if err := v.Parse(text); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedEmbedding, err)
	}

	return v.Slice(), nil
}
