package pipeline

import (
	"context"
	"fmt"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	"github.com/lueurxax/channel-curator/internal/core/ports"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
)

// ReconcileSimilarity recomputes the similarity score of every
// unpublished embedded item against items published within the lookback
// window. It does nothing when either set is empty.
func (p *Pipeline) ReconcileSimilarity(ctx context.Context) error {
	return p.withSession(ctx, func(sess ports.ItemSession) error {
		published, err := sess.PublishedItems(ctx, p.now().Add(-p.cfg.PublishedLookback))
		if err != nil {
			return fmt.Errorf("load published items: %w", err)
		}

		if len(published) == 0 {
			p.logger.Warn().Msg("no published items found, skipping similarity reconciliation")

			return nil
		}

		working, err := sess.UnpublishedItems(ctx)
		if err != nil {
			return fmt.Errorf("load unpublished items: %w", err)
		}

		if len(working) == 0 {
			p.logger.Warn().Msg("no unpublished items found, skipping similarity reconciliation")

			return nil
		}

		var updated int

		for i := range working {
			item := &working[i]
			if !item.HasEmbedding() {
				continue
			}

			similarity := p.similarity.MaxSimilarity(item.Embedding, published)

			if err := sess.UpdateItem(ctx, item.Key(), domain.ItemUpdate{SimilarityScore: &similarity}); err != nil {
				return fmt.Errorf("update similarity for %d@%s: %w", item.ID, item.Channel, err)
			}

			updated++

			observability.SimilarityReconciled.Inc()
		}

		p.logger.Info().
			Int("published", len(published)).
			Int(LogFieldCount, updated).
			Msg("similarity reconciled")

		return nil
	})
}
