package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
	"github.com/lueurxax/channel-curator/internal/platform/observability"
)

// ErrNotConnected is returned when Fetch is called outside Run.
var ErrNotConnected = errors.New("telegram client is not connected")

const (
	floodWaitType  = "FLOOD_WAIT"
	maxFloodRetry  = 1
	reasonRPC      = "rpc"
	reasonNetwork  = "network"
	reasonNotFound = "not_found"
)

// Bounds restricts a fetch to ids strictly between MinID and MaxID.
// A zero value means the bound is absent.
type Bounds struct {
	MinID int64
	MaxID int64
}

func (b Bounds) unbounded() bool {
	return b.MinID == 0 && b.MaxID == 0
}

// Fetch returns channel messages in ascending id order. Without bounds it
// returns the newest FetchLimit messages. With bounds it pages through the
// whole range.
//
// Transport failures degrade to an empty batch and are logged; any other
// error is returned.
func (r *Reader) Fetch(ctx context.Context, channel string, b Bounds) ([]domain.RawItem, error) {
	if r.api == nil {
		return nil, ErrNotConnected
	}

	items, err := r.fetch(ctx, channel, b)
	if err != nil {
		reason, transport := classifyTransportError(err)
		if !transport {
			return nil, err
		}

		observability.FetchFailures.WithLabelValues(channel, reason).Inc()
		r.logger.Warn().
			Err(err).
			Str(logFieldChannel, channel).
			Str("reason", reason).
			Msg("channel fetch failed, skipping channel")

		return []domain.RawItem{}, nil
	}

	observability.MessagesFetched.WithLabelValues(channel).Add(float64(len(items)))
	r.logger.Debug().
		Str(logFieldChannel, channel).
		Int64(logFieldMinID, b.MinID).
		Int64(logFieldMaxID, b.MaxID).
		Int(logFieldCount, len(items)).
		Msg("fetched channel history")

	return items, nil
}

func (r *Reader) fetch(ctx context.Context, channel string, b Bounds) ([]domain.RawItem, error) {
	peer, err := r.resolvePeer(ctx, channel)
	if err != nil {
		return nil, err
	}

	if b.unbounded() {
		msgs, err := r.getHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:  peer,
			Limit: r.cfg.FetchLimit,
		})
		if err != nil {
			return nil, err
		}

		return toRawItems(msgs), nil
	}

	return r.fetchRange(ctx, peer, b)
}

// fetchRange pages backwards from MaxID (or the newest message) to MinID.
func (r *Reader) fetchRange(ctx context.Context, peer tg.InputPeerClass, b Bounds) ([]domain.RawItem, error) {
	var all []tg.MessageClass

	offsetID := int(b.MaxID)

	for {
		msgs, err := r.getHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    r.cfg.PageSize,
			MinID:    int(b.MinID),
			MaxID:    int(b.MaxID),
		})
		if err != nil {
			return nil, err
		}

		if len(msgs) == 0 {
			break
		}

		all = append(all, msgs...)

		lowest := lowestID(msgs)
		if len(msgs) < r.cfg.PageSize || lowest <= int(b.MinID)+1 {
			break
		}

		if offsetID != 0 && lowest >= offsetID {
			break
		}

		offsetID = lowest
	}

	return toRawItems(all), nil
}

// getHistory runs one history request, waiting out a FLOOD_WAIT once.
func (r *Reader) getHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) ([]tg.MessageClass, error) {
	for attempt := 0; ; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		history, err := r.api.MessagesGetHistory(ctx, req)
		if err == nil {
			return historyMessages(history), nil
		}

		floodErr, ok := tgerr.As(err)
		if !ok || floodErr.Type != floodWaitType || attempt >= maxFloodRetry {
			return nil, fmt.Errorf("failed to get history: %w", err)
		}

		wait := time.Duration(floodErr.Argument) * time.Second
		observability.FloodWaitSeconds.Add(wait.Seconds())
		r.logger.Warn().Int("seconds", floodErr.Argument).Msg("flood wait")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("flood wait: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (r *Reader) resolvePeer(ctx context.Context, channel string) (tg.InputPeerClass, error) {
	username := normalizeUsername(channel)

	r.mu.Lock()
	peer, ok := r.peers[username]
	r.mu.Unlock()

	if ok {
		return peer, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resolved, err := r.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	for _, chat := range resolved.Chats {
		ch, ok := chat.(*tg.Channel)
		if !ok {
			continue
		}

		peer = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}

		r.mu.Lock()
		r.peers[username] = peer
		r.mu.Unlock()

		r.logger.Info().Str("username", username).Int64("peer_id", ch.ID).Str("title", ch.Title).Msg("Caching channel info")

		return peer, nil
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrChannelNotFound, username)
	}

	return nil, fmt.Errorf("%w: %s", apperrors.ErrNotAChannel, username)
}

// classifyTransportError reports whether err is a known transport failure
// and a metrics label for it.
func classifyTransportError(err error) (string, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", false
	}

	if _, ok := tgerr.As(err); ok {
		return reasonRPC, true
	}

	if errors.Is(err, apperrors.ErrChannelNotFound) || errors.Is(err, apperrors.ErrNotAChannel) {
		return reasonNotFound, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return reasonNetwork, true
	}

	return "", false
}

func historyMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	case *tg.MessagesChannelMessages:
		return h.Messages
	default:
		return nil
	}
}

func lowestID(msgs []tg.MessageClass) int {
	lowest := 0

	for _, m := range msgs {
		id := m.GetID()
		if lowest == 0 || id < lowest {
			lowest = id
		}
	}

	return lowest
}

// toRawItems converts regular messages and sorts them by ascending id.
// Service and empty messages are dropped; duplicates across pages are merged.
func toRawItems(msgs []tg.MessageClass) []domain.RawItem {
	seen := make(map[int]struct{}, len(msgs))
	items := make([]domain.RawItem, 0, len(msgs))

	for _, m := range msgs {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		if _, dup := seen[msg.ID]; dup {
			continue
		}

		seen[msg.ID] = struct{}{}
		items = append(items, toRawItem(msg))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items
}

func toRawItem(msg *tg.Message) domain.RawItem {
	item := domain.RawItem{
		ID:        int64(msg.ID),
		Text:      msg.Message,
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		Reactions: domain.Ptr(countReactions(msg)),
	}

	if views, ok := msg.GetViews(); ok {
		item.Views = domain.Ptr(int64(views))
	}

	if forwards, ok := msg.GetForwards(); ok {
		item.Forwards = domain.Ptr(int64(forwards))
	}

	return item
}

func countReactions(msg *tg.Message) int64 {
	reactions, ok := msg.GetReactions()
	if !ok {
		return 0
	}

	var total int64
	for _, r := range reactions.Results {
		total += int64(r.Count)
	}

	return total
}

func normalizeUsername(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "https://")
	channel = strings.TrimPrefix(channel, "t.me/")
	channel = strings.TrimPrefix(channel, "@")

	return channel
}
