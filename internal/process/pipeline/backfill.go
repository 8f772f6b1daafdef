package pipeline

import (
	"context"
	"fmt"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
	"github.com/lueurxax/channel-curator/internal/core/ports"
	"github.com/lueurxax/channel-curator/internal/ingest/reader"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
)

// BackfillMetrics refreshes views, reactions and forwards of stored items
// between the earliest scanned id and the run's low-water-mark. Only
// messages that carry both views and reactions are written.
func (p *Pipeline) BackfillMetrics(ctx context.Context, rc *RunContext) error {
	return p.withSession(ctx, func(sess ports.ItemSession) error {
		for _, channel := range p.cfg.Channels {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := p.backfillChannel(ctx, rc, sess, channel); err != nil {
				return err
			}
		}

		return nil
	})
}

func (p *Pipeline) backfillChannel(ctx context.Context, rc *RunContext, sess ports.ItemSession, channel string) error {
	logger := p.logger.With().
		Str(LogFieldRunID, rc.ID.String()).
		Str(LogFieldChannel, channel).
		Logger()

	first, ok, err := sess.MinItemID(ctx, channel, p.cfg.MetricsScanLimit)
	if err != nil {
		return fmt.Errorf("min item id for %s: %w", channel, err)
	}

	if !ok {
		logger.Debug().Msg("no stored items, skipping metrics backfill")

		return nil
	}

	bounds := reader.Bounds{MinID: first}
	if lwm, ok := rc.LowWaterMark(channel); ok {
		bounds.MaxID = lwm
	}

	raws, err := p.feed.Fetch(ctx, channel, bounds)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", channel, err)
	}

	var updated int

	for _, raw := range raws {
		if domain.Int64Value(raw.Views) == 0 || domain.Int64Value(raw.Reactions) == 0 {
			continue
		}

		key := domain.ItemKey{ID: raw.ID, Channel: channel}

		item, err := sess.GetItem(ctx, key)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			logger.Warn().Int64(LogFieldItemID, raw.ID).Msg("stored item not found, skipping metrics")

			continue
		}

		if err != nil {
			return fmt.Errorf("get item %d@%s: %w", raw.ID, channel, err)
		}

		upd := domain.ItemUpdate{
			Views:     raw.Views,
			Reactions: raw.Reactions,
			Forwards:  raw.Forwards,
		}

		if err := sess.UpdateItem(ctx, item.Key(), upd); err != nil {
			return fmt.Errorf("update metrics for %d@%s: %w", raw.ID, channel, err)
		}

		updated++
	}

	observability.MetricsBackfilled.WithLabelValues(channel).Add(float64(updated))

	logger.Info().
		Int("fetched", len(raws)).
		Int(LogFieldCount, updated).
		Msg("metrics backfilled")

	return nil
}
