package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
)

// memStore is an in-memory ListingStore ordered like the SQL feed query.
type memStore struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
	seq      int
	listErr  error
}

func newMemStore() *memStore {
	return &memStore{listings: make(map[string]domain.Listing)}
}

func (m *memStore) add(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cond := domain.ConditionNew
	l := domain.Listing{
		ID:          id,
		OwnerID:     "owner-1",
		Name:        name,
		Kind:        domain.KindPhysical,
		Condition:   &cond,
		Description: "d",
		CreatedAtTS: time.Unix(int64(m.seq), 0),
	}
	l.SetPricing(domain.FixedPricing(domain.PayToken, "", 1))
	m.listings[id] = l
}

func (m *memStore) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listings, id)
}

func (m *memStore) Create(ctx context.Context, l domain.Listing) (string, error) {
	panic("not used")
}

func (m *memStore) Update(ctx context.Context, id string, l domain.Listing) error {
	panic("not used")
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.remove(id)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (m *memStore) ListRecent(ctx context.Context, limit int) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAtTS.After(out[j].CreatedAtTS)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.listings)), nil
}

func (m *memStore) ImageURLs(ctx context.Context) ([]string, error) {
	panic("not used")
}

// memBus is an in-process SignalBus.
type memBus struct {
	mu   sync.Mutex
	subs []chan []byte
}

func (b *memBus) Publish(ctx context.Context, channel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		ch <- append([]byte(nil), data...)
	}
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs {
			if c == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(c)
				break
			}
		}
	}()
	return ch, nil
}

func (b *memBus) subscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func testFeed(store domain.ListingStore, bus domain.SignalBus) *Feed {
	return New(store, bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func waitSnapshot(t *testing.T, sub *Subscription) []domain.Listing {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	store := newMemStore()
	store.add("a", "first")
	store.add("b", "second")
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	defer sub.Close()

	snap := waitSnapshot(t, sub)
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID) // newest first
	assert.Equal(t, "a", snap[1].ID)
}

func TestNewListingAppearsFirst(t *testing.T) {
	store := newMemStore()
	store.add("a", "first")
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	defer sub.Close()

	waitSnapshot(t, sub)

	store.add("b", "second")
	require.NoError(t, bus.Publish(context.Background(), domain.ListingsChannel, []byte(`{"op":"create"}`)))

	snap := waitSnapshot(t, sub)
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].ID)
}

func TestDeleteShrinksSnapshot(t *testing.T) {
	store := newMemStore()
	store.add("a", "first")
	store.add("b", "second")
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	defer sub.Close()

	waitSnapshot(t, sub)

	store.remove("b")
	require.NoError(t, bus.Publish(context.Background(), domain.ListingsChannel, []byte(`{"op":"delete"}`)))

	snap := waitSnapshot(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].ID)
}

func TestSnapshotRespectsCap(t *testing.T) {
	store := newMemStore()
	for i := 0; i < domain.FeedCap+10; i++ {
		store.add(string(rune('a'+i%26))+string(rune('0'+i/26)), "x")
	}
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 0)
	require.NoError(t, err)
	defer sub.Close()

	snap := waitSnapshot(t, sub)
	assert.Len(t, snap, domain.FeedCap)
}

func TestCloseReleasesBusSubscription(t *testing.T) {
	store := newMemStore()
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	waitSnapshot(t, sub)
	require.Equal(t, 1, bus.subscriberCount())

	sub.Close()
	sub.Close() // idempotent

	require.Eventually(t, func() bool {
		return bus.subscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueryErrorSurfacesOnceAndStops(t *testing.T) {
	store := newMemStore()
	store.add("a", "first")
	bus := &memBus{}

	sub, err := testFeed(store, bus).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	defer sub.Close()

	waitSnapshot(t, sub)

	queryErr := errors.New("connection lost")
	store.mu.Lock()
	store.listErr = queryErr
	store.mu.Unlock()

	require.NoError(t, bus.Publish(context.Background(), domain.ListingsChannel, []byte(`{"op":"create"}`)))

	select {
	case err := <-sub.Errs():
		assert.ErrorIs(t, err, queryErr)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream error")
	}

	// The stream stops: snapshots closes, no retry happens.
	select {
	case _, ok := <-sub.Snapshots():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot channel close")
	}
}

func TestEmptyStoreYieldsEmptySnapshot(t *testing.T) {
	sub, err := testFeed(newMemStore(), &memBus{}).Subscribe(context.Background(), 10)
	require.NoError(t, err)
	defer sub.Close()

	snap := waitSnapshot(t, sub)
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}
