package domain

import (
	"strings"
	"time"
)

// Kind classifies what is being sold.
type Kind string

const (
	KindPhysical Kind = "Physical"
	KindDigital  Kind = "Digital"
)

// Condition describes the state of a physical item. Digital listings carry no
// condition.
type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionUsed Condition = "Used"
)

// PriceMode selects how a listing is priced.
type PriceMode string

const (
	PriceModeFixed  PriceMode = "Fixed"
	PriceModeBid    PriceMode = "Bid"
	PriceModeBarter PriceMode = "Barter"
)

// PaymentMethod selects the settlement rail for priced listings.
type PaymentMethod string

const (
	PayToken  PaymentMethod = "UAI"
	PayFiat   PaymentMethod = "Fiat"
	PayCrypto PaymentMethod = "Crypto"
)

// TokenCode is the native exchange token.
const TokenCode = "UAI"

// FiatCurrencies are the supported fiat codes; the first is the default.
var FiatCurrencies = []string{"USD", "EUR", "GBP", "JPY", "CAD"}

// CryptoCurrencies are the supported crypto codes; the first is the default.
var CryptoCurrencies = []string{"BTC", "ETH", "USDT", "SOL", "BNB"}

// DefaultCurrency returns the currency code a listing defaults to for the
// given payment method.
func DefaultCurrency(pm PaymentMethod) string {
	switch pm {
	case PayFiat:
		return FiatCurrencies[0]
	case PayCrypto:
		return CryptoCurrencies[0]
	default:
		return TokenCode
	}
}

// Pricing is the tagged pricing value of a listing: the mode determines which
// of the remaining fields are meaningful. Use the FixedPricing, BidPricing,
// and BarterPricing constructors rather than building one by hand.
type Pricing struct {
	Mode          PriceMode
	PaymentMethod PaymentMethod
	Currency      string
	Price         float64
	BarterWant    string
}

// FixedPricing builds a fixed-price Pricing. An empty currency falls back to
// the payment method's default.
func FixedPricing(pm PaymentMethod, currency string, price float64) Pricing {
	return pricedVariant(PriceModeFixed, pm, currency, price)
}

// BidPricing builds an auction-style Pricing where price is the starting bid.
func BidPricing(pm PaymentMethod, currency string, price float64) Pricing {
	return pricedVariant(PriceModeBid, pm, currency, price)
}

// BarterPricing builds a barter Pricing carrying only the wanted trade.
func BarterPricing(want string) Pricing {
	return Pricing{Mode: PriceModeBarter, BarterWant: strings.TrimSpace(want)}
}

func pricedVariant(mode PriceMode, pm PaymentMethod, currency string, price float64) Pricing {
	if currency == "" {
		currency = DefaultCurrency(pm)
	}
	return Pricing{Mode: mode, PaymentMethod: pm, Currency: currency, Price: price}
}

// Validate checks the per-variant constraints: priced modes need a payment
// method, a currency, and a positive finite price; barter needs a non-empty
// wanted trade and nothing else.
func (p Pricing) Validate() error {
	switch p.Mode {
	case PriceModeFixed, PriceModeBid:
		if p.PaymentMethod == "" || p.Currency == "" {
			return ErrMissingField
		}
		if !(p.Price > 0) || p.Price != p.Price || p.Price > maxPrice {
			return ErrInvalidPrice
		}
		if p.BarterWant != "" {
			return ErrInvalidListing
		}
	case PriceModeBarter:
		if strings.TrimSpace(p.BarterWant) == "" {
			return ErrMissingField
		}
		if p.PaymentMethod != "" || p.Currency != "" || p.Price != 0 {
			return ErrInvalidListing
		}
	default:
		return ErrInvalidListing
	}
	return nil
}

// maxPrice guards against overflow-ish inputs (+Inf and absurd magnitudes).
const maxPrice = 1e15

// Listing is one marketplace item record. Nullable fields are pointers so the
// persisted document matches the wire shape the SPA consumes: condition is
// present only for physical items, and payment fields only for priced modes.
type Listing struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"userId"`
	Name          string         `json:"name"`
	Kind          Kind           `json:"type"`
	Condition     *Condition     `json:"condition"`
	Description   string         `json:"description"`
	PriceMode     PriceMode      `json:"priceType"`
	PaymentMethod *PaymentMethod `json:"paymentMethod"`
	Currency      *string        `json:"currency"`
	Price         *float64       `json:"price"`
	BarterWant    *string        `json:"barterItem"`
	ImageURL      *string        `json:"imageUrl"`

	// CreatedAt is the client-stamped ISO string kept for display
	// compatibility. CreatedAtTS/UpdatedAtTS are store-assigned and are the
	// trusted ordering keys.
	CreatedAt   string    `json:"createdAt"`
	CreatedAtTS time.Time `json:"createdAtTS"`
	UpdatedAtTS time.Time `json:"updatedAtTS"`
}

// Pricing reassembles the tagged pricing value from the flattened fields.
func (l Listing) Pricing() Pricing {
	if l.PriceMode == PriceModeBarter {
		want := ""
		if l.BarterWant != nil {
			want = *l.BarterWant
		}
		return Pricing{Mode: PriceModeBarter, BarterWant: want}
	}
	p := Pricing{Mode: l.PriceMode}
	if l.PaymentMethod != nil {
		p.PaymentMethod = *l.PaymentMethod
	}
	if l.Currency != nil {
		p.Currency = *l.Currency
	}
	if l.Price != nil {
		p.Price = *l.Price
	}
	return p
}

// SetPricing flattens a validated Pricing onto the listing, nulling whichever
// side does not apply so exactly one of price/barterWant is ever set.
func (l *Listing) SetPricing(p Pricing) {
	l.PriceMode = p.Mode
	if p.Mode == PriceModeBarter {
		l.PaymentMethod = nil
		l.Currency = nil
		l.Price = nil
		want := p.BarterWant
		l.BarterWant = &want
		return
	}
	pm := p.PaymentMethod
	cur := p.Currency
	price := p.Price
	l.PaymentMethod = &pm
	l.Currency = &cur
	l.Price = &price
	l.BarterWant = nil
}

// Validate checks the listing invariants: non-empty name and description, a
// valid pricing variant, and condition set iff the item is physical.
func (l Listing) Validate() error {
	if strings.TrimSpace(l.Name) == "" || strings.TrimSpace(l.Description) == "" {
		return ErrMissingField
	}
	switch l.Kind {
	case KindPhysical:
		if l.Condition == nil || (*l.Condition != ConditionNew && *l.Condition != ConditionUsed) {
			return ErrInvalidListing
		}
	case KindDigital:
		if l.Condition != nil {
			return ErrInvalidListing
		}
	default:
		return ErrInvalidListing
	}
	return l.Pricing().Validate()
}

// OwnedBy reports whether the given session may mutate this listing. This is
// the display-layer gate used for edit/delete affordances.
func (l Listing) OwnedBy(sessionID string) bool {
	return sessionID != "" && l.OwnerID == sessionID
}
