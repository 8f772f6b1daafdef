package reader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
)

type fakeAPI struct {
	// pages are returned in call order for MessagesGetHistory.
	pages      [][]tg.MessageClass
	historyErr []error
	resolveErr error
	chats      []tg.ChatClass

	requests []*tg.MessagesGetHistoryRequest
	resolves int
}

func (f *fakeAPI) MessagesGetHistory(_ context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	call := len(f.requests)
	f.requests = append(f.requests, req)

	if call < len(f.historyErr) && f.historyErr[call] != nil {
		return nil, f.historyErr[call]
	}

	if call >= len(f.pages) {
		return &tg.MessagesChannelMessages{}, nil
	}

	return &tg.MessagesChannelMessages{Messages: f.pages[call]}, nil
}

func (f *fakeAPI) ContactsResolveUsername(_ context.Context, _ *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error) {
	f.resolves++

	if f.resolveErr != nil {
		return nil, f.resolveErr
	}

	chats := f.chats
	if chats == nil {
		chats = []tg.ChatClass{&tg.Channel{ID: 100, AccessHash: 200, Title: "Test"}}
	}

	return &tg.ContactsResolvedPeer{Chats: chats}, nil
}

func newTestReader(api historyAPI, pageSize int) *Reader {
	logger := zerolog.Nop()
	r := New(Config{FetchLimit: 3, PageSize: pageSize, RateLimitRPS: 1000}, &logger)
	r.api = api

	return r
}

func message(id int, text string) *tg.Message {
	msg := &tg.Message{ID: id, Message: text, Date: 1717236000 + id}
	msg.SetViews(100 + id)
	msg.SetForwards(2)
	msg.SetReactions(tg.MessageReactions{Results: []tg.ReactionCount{{Count: 3}, {Count: 4}}})

	return msg
}

func TestFetch_LatestBatchIsAscending(t *testing.T) {
	api := &fakeAPI{pages: [][]tg.MessageClass{{
		message(9, "nine"),
		&tg.MessageService{ID: 8},
		message(7, "seven"),
		message(5, "five"),
	}}}
	r := newTestReader(api, 100)

	items, err := r.Fetch(context.Background(), "@news", Bounds{})
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, []int64{5, 7, 9}, []int64{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, 3, api.requests[0].Limit)
	assert.Zero(t, api.requests[0].MinID)

	assert.Equal(t, int64(109), *items[2].Views)
	assert.Equal(t, int64(7), *items[2].Reactions)
	assert.Equal(t, int64(2), *items[2].Forwards)
	assert.Equal(t, "nine", items[2].Text)
}

func TestFetch_MinIDPagesUntilExhausted(t *testing.T) {
	api := &fakeAPI{pages: [][]tg.MessageClass{
		{message(20, "a"), message(19, "b")},
		{message(18, "c"), message(17, "d")},
		{message(16, "e")},
	}}
	r := newTestReader(api, 2)

	items, err := r.Fetch(context.Background(), "news", Bounds{MinID: 15})
	require.NoError(t, err)

	require.Len(t, items, 5)
	assert.Equal(t, int64(16), items[0].ID)
	assert.Equal(t, int64(20), items[4].ID)

	require.Len(t, api.requests, 3)
	assert.Equal(t, 15, api.requests[0].MinID)
	assert.Equal(t, 0, api.requests[0].OffsetID)
	assert.Equal(t, 19, api.requests[1].OffsetID)
	assert.Equal(t, 17, api.requests[2].OffsetID)
	assert.Equal(t, 1, api.resolves, "peer should be resolved once and cached")
}

func TestFetch_BoundedRange(t *testing.T) {
	api := &fakeAPI{pages: [][]tg.MessageClass{{message(14, "x"), message(12, "y")}}}
	r := newTestReader(api, 10)

	items, err := r.Fetch(context.Background(), "news", Bounds{MinID: 10, MaxID: 15})
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, 15, api.requests[0].MaxID)
	assert.Equal(t, 15, api.requests[0].OffsetID)
	assert.Equal(t, 10, api.requests[0].MinID)
}

func TestFetch_NoItemsIsEmptyNotError(t *testing.T) {
	r := newTestReader(&fakeAPI{}, 10)

	items, err := r.Fetch(context.Background(), "news", Bounds{MinID: 5})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetch_TransportErrorsDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{name: "rpc error", api: &fakeAPI{historyErr: []error{tgerr.New(400, "CHANNEL_PRIVATE")}}},
		{name: "network error", api: &fakeAPI{historyErr: []error{&net.OpError{Op: "read", Err: errors.New("reset")}}}},
		{name: "unknown channel", api: &fakeAPI{chats: []tg.ChatClass{}}},
		{name: "not a channel", api: &fakeAPI{chats: []tg.ChatClass{&tg.Chat{ID: 1}}}},
		{name: "resolve rpc error", api: &fakeAPI{resolveErr: tgerr.New(400, "USERNAME_NOT_OCCUPIED")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReader(tt.api, 10)

			items, err := r.Fetch(context.Background(), "news", Bounds{})
			require.NoError(t, err)
			assert.NotNil(t, items)
			assert.Empty(t, items)
		})
	}
}

func TestFetch_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	r := newTestReader(&fakeAPI{historyErr: []error{boom}}, 10)

	_, err := r.Fetch(context.Background(), "news", Bounds{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = newTestReader(&fakeAPI{}, 10).Fetch(ctx, "news", Bounds{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_FloodWaitRetriesOnce(t *testing.T) {
	api := &fakeAPI{
		historyErr: []error{tgerr.New(420, "FLOOD_WAIT_0")},
		pages:      [][]tg.MessageClass{nil, {message(3, "ok")}},
	}
	r := newTestReader(api, 10)

	items, err := r.Fetch(context.Background(), "news", Bounds{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Len(t, api.requests, 2)
}

func TestFetch_NotConnected(t *testing.T) {
	logger := zerolog.Nop()
	r := New(Config{}, &logger)

	_, err := r.Fetch(context.Background(), "news", Bounds{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		err    error
		reason string
		ok     bool
	}{
		{err: fmt.Errorf("wrap: %w", tgerr.New(500, "INTERNAL")), reason: reasonRPC, ok: true},
		{err: fmt.Errorf("wrap: %w", apperrors.ErrChannelNotFound), reason: reasonNotFound, ok: true},
		{err: &net.DNSError{Err: "no such host"}, reason: reasonNetwork, ok: true},
		{err: context.Canceled, ok: false},
		{err: errors.New("nil pointer"), ok: false},
	}

	for _, tt := range tests {
		reason, ok := classifyTransportError(tt.err)
		assert.Equal(t, tt.ok, ok, tt.err.Error())
		assert.Equal(t, tt.reason, reason, tt.err.Error())
	}
}

func TestNormalizeUsername(t *testing.T) {
	for in, want := range map[string]string{
		"@news":             "news",
		"https://t.me/news": "news",
		" t.me/news ":       "news",
		"news":              "news",
	} {
		assert.Equal(t, want, normalizeUsername(in), in)
	}
}

func TestSanitizeAndMaskPhone(t *testing.T) {
	assert.Equal(t, "+15551234567", sanitizePhone(" +1 (555) 123-4567 "))
	assert.Equal(t, "+15****67", maskPhone("+15551234567"))
	assert.Equal(t, "****", maskPhone("123"))
}
