package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lueurxax/channel-curator/internal/core/domain"
	apperrors "github.com/lueurxax/channel-curator/internal/core/errors"
	"github.com/lueurxax/channel-curator/internal/core/ports"
	"github.com/lueurxax/channel-curator/internal/ingest/reader"
)

type mockFeed struct{ mock.Mock }

func (m *mockFeed) Fetch(ctx context.Context, channel string, b reader.Bounds) ([]domain.RawItem, error) {
	args := m.Called(ctx, channel, b)

	items, _ := args.Get(0).([]domain.RawItem)

	return items, args.Error(1)
}

type mockEvaluator struct{ mock.Mock }

func (m *mockEvaluator) HasQuota(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *mockEvaluator) Evaluate(ctx context.Context, text string) (float64, bool) {
	args := m.Called(ctx, text)

	return args.Get(0).(float64), args.Bool(1)
}

func (m *mockEvaluator) Rewrite(ctx context.Context, text string) (string, bool) {
	args := m.Called(ctx, text)

	return args.String(0), args.Bool(1)
}

func (m *mockEvaluator) Improve(ctx context.Context, text string) (string, bool) {
	args := m.Called(ctx, text)

	return args.String(0), args.Bool(1)
}

type mockSimilarity struct{ mock.Mock }

func (m *mockSimilarity) Embed(ctx context.Context, text string) ([]float32, bool) {
	args := m.Called(ctx, text)

	vec, _ := args.Get(0).([]float32)

	return vec, args.Bool(1)
}

func (m *mockSimilarity) MaxSimilarity(vec []float32, candidates []domain.Item) float64 {
	return m.Called(vec, candidates).Get(0).(float64)
}

// memStore is an in-memory item store. Sessions share its state.
type memStore struct {
	mu      sync.Mutex
	items   map[domain.ItemKey]domain.Item
	saves   []domain.Item
	updates []storeUpdate

	published   []domain.Item
	unpublished []domain.Item

	saveErr   error
	readErr   error
	updateErr error

	publishedSince time.Time
	sessions       int
	closed         int
}

type storeUpdate struct {
	key domain.ItemKey
	upd domain.ItemUpdate
}

func newMemStore(items ...domain.Item) *memStore {
	s := &memStore{items: make(map[domain.ItemKey]domain.Item)}
	for _, it := range items {
		s.items[it.Key()] = it
	}

	return s
}

func (s *memStore) OpenSession(context.Context) (ports.ItemSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions++

	return &memSession{store: s}, nil
}

type memSession struct {
	store *memStore
}

func (m *memSession) Close() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.closed++
}

func (m *memSession) MaxItemID(_ context.Context, channel string) (int64, bool, error) {
	ids := m.ids(channel)
	if m.store.readErr != nil {
		return 0, false, m.store.readErr
	}

	if len(ids) == 0 {
		return 0, false, nil
	}

	return ids[len(ids)-1], true, nil
}

func (m *memSession) MinItemID(_ context.Context, channel string, limit int) (int64, bool, error) {
	ids := m.ids(channel)
	if m.store.readErr != nil {
		return 0, false, m.store.readErr
	}

	if len(ids) == 0 || limit <= 0 {
		return 0, false, nil
	}

	// ids are ascending, so the earliest id is inside any positive window.
	return ids[0], true, nil
}

func (m *memSession) ids(channel string) []int64 {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var ids []int64

	for k := range m.store.items {
		if k.Channel == channel {
			ids = append(ids, k.ID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (m *memSession) GetItem(_ context.Context, key domain.ItemKey) (*domain.Item, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	it, ok := m.store.items[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &it, nil
}

func (m *memSession) PublishedItems(_ context.Context, since time.Time) ([]domain.Item, error) {
	m.store.publishedSince = since

	return m.store.published, m.store.readErr
}

func (m *memSession) UnpublishedItems(context.Context) ([]domain.Item, error) {
	return m.store.unpublished, m.store.readErr
}

func (m *memSession) SaveItem(_ context.Context, item *domain.Item) error {
	if m.store.saveErr != nil {
		return m.store.saveErr
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.items[item.Key()] = *item
	m.store.saves = append(m.store.saves, *item)

	return nil
}

func (m *memSession) UpdateItem(_ context.Context, key domain.ItemKey, upd domain.ItemUpdate) error {
	if m.store.updateErr != nil {
		return m.store.updateErr
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.updates = append(m.store.updates, storeUpdate{key: key, upd: upd})

	if it, ok := m.store.items[key]; ok {
		applyUpdate(&it, upd)
		m.store.items[key] = it
	}

	return nil
}

func applyUpdate(item *domain.Item, upd domain.ItemUpdate) {
	if upd.Views != nil {
		item.Views = upd.Views
	}

	if upd.Reactions != nil {
		item.Reactions = upd.Reactions
	}

	if upd.Forwards != nil {
		item.Forwards = upd.Forwards
	}

	if upd.SimilarityScore != nil {
		item.SimilarityScore = upd.SimilarityScore
	}
}
