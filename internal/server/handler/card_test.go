package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
)

func physicalListing(id, owner string) domain.Listing {
	cond := domain.ConditionUsed
	l := domain.Listing{
		ID:          id,
		OwnerID:     owner,
		Name:        "Road bike",
		Kind:        domain.KindPhysical,
		Condition:   &cond,
		Description: "Well maintained, recently serviced.",
		CreatedAt:   "2025-06-01T12:00:00Z",
	}
	l.SetPricing(domain.FixedPricing(domain.PayFiat, "USD", 150))
	return l
}

func TestCardViewFixedPrice(t *testing.T) {
	l := physicalListing("l1", "u1")

	card := cardView(l, domain.Session{ID: "u1"})
	assert.Equal(t, "150 USD", card.PriceSummary)
	assert.True(t, card.CanEdit)
	assert.True(t, card.CanDelete)
	require.NotNil(t, card.Condition)
	assert.Equal(t, domain.ConditionUsed, *card.Condition)
}

func TestCardViewBidPrice(t *testing.T) {
	l := physicalListing("l1", "u1")
	l.SetPricing(domain.BidPricing(domain.PayCrypto, "BTC", 0.5))

	card := cardView(l, domain.Session{ID: "other"})
	assert.Equal(t, "Starts at 0.5 BTC", card.PriceSummary)
	assert.False(t, card.CanEdit)
	assert.False(t, card.CanDelete)
}

func TestCardViewBarter(t *testing.T) {
	l := domain.Listing{
		ID:          "l2",
		OwnerID:     "u1",
		Name:        "Synth presets",
		Kind:        domain.KindDigital,
		Description: "200 patches.",
	}
	l.SetPricing(domain.BarterPricing("vintage drum machine"))

	card := cardView(l, domain.Session{})
	assert.Equal(t, "Wants: vintage drum machine", card.PriceSummary)
	assert.Nil(t, card.Condition)
	assert.False(t, card.CanEdit)
}

func TestCardViewTruncatesDescription(t *testing.T) {
	l := physicalListing("l1", "u1")
	l.Description = strings.Repeat("x", 300)

	card := cardView(l, domain.Session{})
	assert.Equal(t, cardDescriptionLimit+1, len([]rune(card.Description)))
	assert.True(t, strings.HasSuffix(card.Description, "…"))
}

type stubListingService struct {
	listings []domain.Listing
}

func (s *stubListingService) Get(ctx context.Context, id string) (domain.Listing, error) {
	for _, l := range s.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (s *stubListingService) ListRecent(ctx context.Context, limit int) ([]domain.Listing, error) {
	return s.listings, nil
}

func (s *stubListingService) Update(ctx context.Context, session domain.Session, id string, l domain.Listing) error {
	return nil
}

func (s *stubListingService) Delete(ctx context.Context, id string) error { return nil }

func (s *stubListingService) Count(ctx context.Context) (int64, error) {
	return int64(len(s.listings)), nil
}

type stubIdentity struct {
	sessions map[string]domain.Session
}

func (s *stubIdentity) Establish() domain.Session { return domain.Session{ID: "minted"} }

func (s *stubIdentity) Lookup(id string) domain.Session { return s.sessions[id] }

func TestListCardsView(t *testing.T) {
	svc := &stubListingService{listings: []domain.Listing{
		physicalListing("l1", "u1"),
		physicalListing("l2", "u2"),
	}}
	identities := &stubIdentity{sessions: map[string]domain.Session{
		"u1": {ID: "u1"},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewListingHandler(svc, nil, identities, nil, logger)

	req := httptest.NewRequest("GET", "/api/listings?view=cards", nil)
	req.Header.Set("X-Session-ID", "u1")
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, 200, rec.Code)
	var body struct {
		Cards []listingCard `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Cards, 2)
	assert.True(t, body.Cards[0].CanEdit)
	assert.False(t, body.Cards[1].CanEdit)
	assert.Equal(t, "150 USD", body.Cards[0].PriceSummary)
}

func TestListFullView(t *testing.T) {
	svc := &stubListingService{listings: []domain.Listing{physicalListing("l1", "u1")}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewListingHandler(svc, nil, &stubIdentity{}, nil, logger)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/listings", nil))

	require.Equal(t, 200, rec.Code)
	var body struct {
		Listings []domain.Listing `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Listings, 1)
	assert.Equal(t, "l1", body.Listings[0].ID)
}
