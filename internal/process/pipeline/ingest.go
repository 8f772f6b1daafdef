package pipeline

import (
	"context"
	"fmt"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	"github.com/lueurxax/channel-curator/internal/core/ports"
	"github.com/lueurxax/channel-curator/internal/ingest/reader"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
	"github.com/lueurxax/channel-curator/internal/process/filters"
)

type outcome struct {
	verdict Verdict
	reason  string
}

// persisted reports whether the item reached the quota gate.
func (o outcome) persisted() bool {
	return o.verdict != VerdictFiltered
}

// Ingest fetches new messages for every channel, runs them through the
// chain and stores every message that reached the quota gate. A failed
// save is logged and skipped. Store reads and non-transport fetch errors
// abort the pass.
func (p *Pipeline) Ingest(ctx context.Context, rc *RunContext) error {
	return p.withSession(ctx, func(sess ports.ItemSession) error {
		published, err := sess.PublishedItems(ctx, p.now().Add(-p.cfg.PublishedLookback))
		if err != nil {
			return fmt.Errorf("load published snapshot: %w", err)
		}

		rc.Published = published
		rc.HasQuota = p.evaluator.HasQuota(ctx)

		p.logger.Info().
			Str(LogFieldRunID, rc.ID.String()).
			Int("published", len(published)).
			Bool("has_quota", rc.HasQuota).
			Msg("ingestion snapshot captured")

		for _, channel := range p.cfg.Channels {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := p.ingestChannel(ctx, rc, sess, channel); err != nil {
				return err
			}
		}

		return nil
	})
}

func (p *Pipeline) ingestChannel(ctx context.Context, rc *RunContext, sess ports.ItemSession, channel string) error {
	logger := p.logger.With().
		Str(LogFieldRunID, rc.ID.String()).
		Str(LogFieldChannel, channel).
		Logger()

	var bounds reader.Bounds

	maxID, ok, err := sess.MaxItemID(ctx, channel)
	if err != nil {
		return fmt.Errorf("max item id for %s: %w", channel, err)
	}

	if ok {
		rc.LowWaterMarks[channel] = maxID
		bounds.MinID = maxID
	}

	raws, err := p.feed.Fetch(ctx, channel, bounds)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", channel, err)
	}

	counts := make(map[Verdict]int)

	for i, raw := range raws {
		item := domain.NewItem(channel, raw)
		out := p.process(ctx, rc, item, i == len(raws)-1)

		counts[out.verdict]++

		observability.ItemVerdicts.WithLabelValues(string(out.verdict), out.reason).Inc()

		logger.Debug().
			Int64(LogFieldItemID, item.ID).
			Str(LogFieldVerdict, string(out.verdict)).
			Str(LogFieldReason, out.reason).
			Msg("item processed")

		if !out.persisted() {
			continue
		}

		if err := sess.SaveItem(ctx, item); err != nil {
			observability.ItemSaveFailures.Inc()
			logger.Error().Err(err).Int64(LogFieldItemID, item.ID).Msg("failed to save item")
		}
	}

	logger.Info().
		Int("fetched", len(raws)).
		Int("accepted", counts[VerdictAccepted]).
		Int("rejected", counts[VerdictRejected]).
		Int("unscored", counts[VerdictUnscored]).
		Int("filtered", counts[VerdictFiltered]).
		Msg("channel ingested")

	return nil
}

// process runs the chain over item, writing computed fields as it goes.
// Fields written before a rejection are kept.
func (p *Pipeline) process(ctx context.Context, rc *RunContext, item *domain.Item, last bool) outcome {
	res := p.filterer.Apply(filters.Input{
		Channel:   item.Channel,
		Text:      item.Text,
		Views:     item.Views,
		Reactions: item.Reactions,
		Forwards:  item.Forwards,
		Last:      last,
	})

	if res.Stripped {
		item.Text = res.Text
	}

	if !res.Passed() {
		if res.StopWord != "" {
			p.logger.Debug().Int64(LogFieldItemID, item.ID).Str("stop_word", res.StopWord).Msg("stop word found")
		}

		return outcome{verdict: VerdictFiltered, reason: res.Reason}
	}

	if !rc.HasQuota {
		return outcome{verdict: VerdictUnscored, reason: ReasonNoQuota}
	}

	return p.score(ctx, rc, item)
}

func (p *Pipeline) score(ctx context.Context, rc *RunContext, item *domain.Item) outcome {
	score, ok := p.evaluator.Evaluate(ctx, item.Text)
	if !ok {
		return outcome{verdict: VerdictRejected, reason: ReasonNoScore}
	}

	item.Score = &score

	if score <= p.cfg.MinScore {
		return outcome{verdict: VerdictRejected, reason: ReasonLowScore}
	}

	alt, ok := p.evaluator.Rewrite(ctx, item.Text)
	if !ok {
		return outcome{verdict: VerdictRejected, reason: ReasonNoRewrite}
	}

	item.Alt = &alt

	scoreAlt, ok := p.evaluator.Evaluate(ctx, alt)
	if !ok {
		return outcome{verdict: VerdictRejected, reason: ReasonNoAltScore}
	}

	item.ScoreAlt = &scoreAlt

	if scoreAlt <= p.cfg.MinScoreAlt {
		return outcome{verdict: VerdictRejected, reason: ReasonLowAltScore}
	}

	p.improve(ctx, item)

	vec, ok := p.similarity.Embed(ctx, *item.Alt)
	if !ok {
		return outcome{verdict: VerdictRejected, reason: ReasonEmbeddingFailed}
	}

	similarity := 0.0
	if len(rc.Published) > 0 {
		similarity = p.similarity.MaxSimilarity(vec, rc.Published)
	}

	item.Embedding = vec
	item.SimilarityScore = &similarity

	observability.SimilarityScores.Observe(similarity)

	return outcome{verdict: VerdictAccepted, reason: ReasonPassed}
}

// improve asks for a refined rewrite and keeps it when it outscores both
// its threshold and the current rewrite. It never rejects.
func (p *Pipeline) improve(ctx context.Context, item *domain.Item) {
	improved, ok := p.evaluator.Improve(ctx, *item.Alt)
	if !ok {
		return
	}

	score, ok := p.evaluator.Evaluate(ctx, improved)
	if !ok {
		return
	}

	item.ScoreImprove = &score

	if score > p.cfg.MinScoreImprove && score > *item.ScoreAlt {
		item.Alt = &improved

		p.logger.Debug().
			Int64(LogFieldItemID, item.ID).
			Float64("score_improve", score).
			Msg("improved rewrite kept")
	}
}
