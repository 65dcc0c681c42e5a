package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
	"github.com/brandlab/exchange/internal/feed"
)

// streamStore is an in-memory ListingStore whose snapshot query can be made
// to fail mid-stream.
type streamStore struct {
	mu       sync.Mutex
	listings []domain.Listing
	err      error
}

func (s *streamStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *streamStore) ListRecent(ctx context.Context, limit int) ([]domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Listing, len(s.listings))
	copy(out, s.listings)
	return out, nil
}

func (s *streamStore) Create(ctx context.Context, l domain.Listing) (string, error) {
	panic("not used")
}

func (s *streamStore) Update(ctx context.Context, id string, l domain.Listing) error {
	panic("not used")
}

func (s *streamStore) Delete(ctx context.Context, id string) error { panic("not used") }

func (s *streamStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	panic("not used")
}

func (s *streamStore) Count(ctx context.Context) (int64, error) { panic("not used") }

func (s *streamStore) ImageURLs(ctx context.Context) ([]string, error) { panic("not used") }

// streamBus is an in-process SignalBus.
type streamBus struct {
	mu   sync.Mutex
	subs []chan []byte
}

func (b *streamBus) Publish(ctx context.Context, channel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		ch <- append([]byte(nil), data...)
	}
	return nil
}

func (b *streamBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
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

func listingFixture(id string) domain.Listing {
	cond := domain.ConditionNew
	l := domain.Listing{
		ID:          id,
		OwnerID:     "owner-1",
		Name:        "item " + id,
		Kind:        domain.KindPhysical,
		Condition:   &cond,
		Description: "d",
		CreatedAtTS: time.Now(),
	}
	l.SetPricing(domain.FixedPricing(domain.PayToken, "", 1))
	return l
}

func testHub(store domain.ListingStore, bus domain.SignalBus) *Hub {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(feed.New(store, bus, logger), logger)
}

func TestRunStopsWhenSnapshotQueryFails(t *testing.T) {
	// The feed reports the failure once and closes both its channels; the
	// hub must wind down with the error rather than panic or keep running.
	for i := 0; i < 25; i++ {
		store := &streamStore{err: errors.New("query failed")}
		hub := testHub(store, &streamBus{})

		errCh := make(chan error, 1)
		go func() { errCh <- hub.Run(context.Background()) }()

		select {
		case err := <-errCh:
			require.Error(t, err)
			assert.Contains(t, err.Error(), "query failed")
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not stop after feed failure")
		}
	}
}

func TestRunReturnsContextError(t *testing.T) {
	store := &streamStore{listings: []domain.Listing{listingFixture("a")}}
	hub := testHub(store, &streamBus{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop on cancellation")
	}
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type    string           `json:"type"`
	Payload []domain.Listing `json:"payload"`
	Error   string           `json:"error"`
}

func TestClientGetsSnapshotThenErrorFrame(t *testing.T) {
	store := &streamStore{listings: []domain.Listing{listingFixture("a")}}
	bus := &streamBus{}
	hub := testHub(store, bus)

	runErr := make(chan error, 1)
	go func() { runErr <- hub.Run(context.Background()) }()

	conn := dialHub(t, hub)

	var env frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, "listings", env.Type)
	require.Len(t, env.Payload, 1)

	store.fail(errors.New("connection refused"))
	require.NoError(t, bus.Publish(context.Background(), domain.ListingsChannel, []byte(`{"op":"update"}`)))

	// The break is announced to the client before the connection closes.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "error", env.Type)
	assert.Equal(t, "live feed interrupted", env.Error)

	select {
	case err := <-runErr:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop after feed failure")
	}
}

func TestHandleWSAfterHubStopped(t *testing.T) {
	store := &streamStore{err: errors.New("down")}
	hub := testHub(store, &streamBus{})
	require.Error(t, hub.Run(context.Background()))

	// A connection arriving after the loop exited is closed immediately
	// instead of blocking on a register nobody receives.
	conn := dialHub(t, hub)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
