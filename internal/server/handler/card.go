package handler

import (
	"strconv"
	"unicode/utf8"

	"github.com/brandlab/exchange/internal/domain"
)

// cardDescriptionLimit caps the description shown on explorer cards.
const cardDescriptionLimit = 140

// listingCard is the explorer projection of a listing: what the browse grid
// renders, plus per-caller affordance flags. The full record stays available
// via GET /api/listings/{id}.
type listingCard struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"userId"`
	Name         string            `json:"name"`
	Kind         domain.Kind       `json:"type"`
	Condition    *domain.Condition `json:"condition,omitempty"`
	Description  string            `json:"description"`
	PriceSummary string            `json:"priceSummary"`
	ImageURL     *string           `json:"imageUrl,omitempty"`
	CreatedAt    string            `json:"createdAt"`

	// Affordance flags are a display gate only; mutations are re-checked
	// server side.
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// cardView projects a listing for the explorer grid as seen by one session.
func cardView(l domain.Listing, session domain.Session) listingCard {
	owned := l.OwnedBy(session.ID)
	card := listingCard{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Name:         l.Name,
		Kind:         l.Kind,
		Description:  truncate(l.Description, cardDescriptionLimit),
		PriceSummary: priceSummary(l),
		ImageURL:     l.ImageURL,
		CreatedAt:    l.CreatedAt,
		CanEdit:      owned,
		CanDelete:    owned,
	}
	if l.Kind == domain.KindPhysical {
		card.Condition = l.Condition
	}
	return card
}

// priceSummary renders the one-line price label for a card.
func priceSummary(l domain.Listing) string {
	p := l.Pricing()
	switch p.Mode {
	case domain.PriceModeBarter:
		return "Wants: " + p.BarterWant
	case domain.PriceModeBid:
		return "Starts at " + formatPrice(p.Price) + " " + p.Currency
	default:
		return formatPrice(p.Price) + " " + p.Currency
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// truncate shortens s to at most limit runes, appending an ellipsis when
// anything was cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}
