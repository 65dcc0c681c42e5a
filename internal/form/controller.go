// Package form owns the transient edit-buffer state for creating or editing
// a listing: a two-state machine (browsing, editing) with client-side
// validation, image coordination, and write-through to the listing
// repository.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/brandlab/exchange/internal/domain"
	img "github.com/brandlab/exchange/internal/image"
)

// State is the controller's macro-state.
type State string

const (
	StateBrowsing State = "browsing"
	StateEditing  State = "editing"
)

// Repository is the slice of the listing service the controller writes
// through. Declared locally so the package does not depend on the concrete
// service implementation.
type Repository interface {
	Create(ctx context.Context, session domain.Session, l domain.Listing) (string, error)
	Update(ctx context.Context, session domain.Session, id string, l domain.Listing) error
	Get(ctx context.Context, id string) (domain.Listing, error)
}

// Buffer is the edit buffer: the not-yet-persisted form representation of a
// listing. Price is kept as raw text until validation parses it.
type Buffer struct {
	ListingID     string // non-empty while editing an existing listing
	Name          string
	Kind          domain.Kind
	Condition     domain.Condition
	Description   string
	PriceMode     domain.PriceMode
	PaymentMethod domain.PaymentMethod
	Currency      string
	Price         string
	BarterWant    string

	// Image holds either a fresh local data-URL payload awaiting upload or
	// the stored retrieval URL carried over from the listing being edited.
	Image string

	createdAt string // preserved across an edit, never user-visible
}

// Input is one round of user-entered form fields applied onto the buffer.
type Input struct {
	Name          string               `json:"name"`
	Kind          domain.Kind          `json:"type"`
	Condition     domain.Condition     `json:"condition"`
	Description   string               `json:"description"`
	PriceMode     domain.PriceMode     `json:"priceType"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Currency      string               `json:"currency"`
	Price         string               `json:"price"`
	BarterWant    string               `json:"barterItem"`
}

// defaultBuffer mirrors the blank create form.
func defaultBuffer() Buffer {
	return Buffer{
		Kind:          domain.KindPhysical,
		Condition:     domain.ConditionNew,
		PriceMode:     domain.PriceModeFixed,
		PaymentMethod: domain.PayToken,
		Currency:      domain.TokenCode,
	}
}

// Controller is the per-session form controller. Only one edit buffer exists
// at a time: starting a new edit overwrites the buffer. Safe for concurrent
// use; a submission completing after the buffer was reset or replaced is a
// no-op.
type Controller struct {
	repo       Repository
	images     domain.ImageStore
	normalizer *img.Normalizer
	session    domain.Session
	logger     *slog.Logger

	mu    sync.Mutex
	state State
	buf   Buffer
	gen   uint64 // bumped on every buffer replacement or reset
}

// NewController creates a Controller bound to one session identity.
func NewController(repo Repository, images domain.ImageStore, session domain.Session, logger *slog.Logger) *Controller {
	return &Controller{
		repo:       repo,
		images:     images,
		normalizer: img.NewNormalizer(),
		session:    session,
		logger:     logger.With(slog.String("component", "form"), slog.String("session_id", session.ID)),
		state:      StateBrowsing,
		buf:        defaultBuffer(),
	}
}

// State returns the current macro-state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the current buffer.
func (c *Controller) Snapshot() Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// StartCreate transitions to editing with a blank buffer.
func (c *Controller) StartCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateEditing
	c.buf = defaultBuffer()
	c.gen++
}

// StartEdit seeds the buffer from an existing listing owned by this session
// and transitions to editing. Editing someone else's listing is rejected.
func (c *Controller) StartEdit(ctx context.Context, id string) error {
	l, err := c.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("form: start edit %s: %w", id, err)
	}
	if !l.OwnedBy(c.session.ID) {
		return domain.ErrNotAuthenticated
	}

	buf := Buffer{
		ListingID:   l.ID,
		Name:        l.Name,
		Kind:        l.Kind,
		Condition:   domain.ConditionNew,
		Description: l.Description,
		PriceMode:   l.PriceMode,
		createdAt:   l.CreatedAt,
	}
	if l.Condition != nil {
		buf.Condition = *l.Condition
	}
	if l.PaymentMethod != nil {
		buf.PaymentMethod = *l.PaymentMethod
	} else {
		buf.PaymentMethod = domain.PayToken
	}
	if l.Currency != nil {
		buf.Currency = *l.Currency
	} else {
		buf.Currency = domain.TokenCode
	}
	if l.Price != nil {
		buf.Price = strconv.FormatFloat(*l.Price, 'f', -1, 64)
	}
	if l.BarterWant != nil {
		buf.BarterWant = *l.BarterWant
	}
	if l.ImageURL != nil {
		buf.Image = *l.ImageURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateEditing
	c.buf = buf
	c.gen++
	return nil
}

// Cancel resets every field to defaults, clears any pending image preview,
// and returns to browsing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = StateBrowsing
	c.buf = defaultBuffer()
	c.gen++
}

// SetFields applies user-entered fields onto the buffer. An empty currency
// falls back to the payment method's default, mirroring the form's reset of
// the currency selector when the payment method changes.
func (c *Controller) SetFields(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Name = in.Name
	c.buf.Description = in.Description
	if in.Kind != "" {
		c.buf.Kind = in.Kind
	}
	if in.Condition != "" {
		c.buf.Condition = in.Condition
	}
	if in.PriceMode != "" {
		c.buf.PriceMode = in.PriceMode
	}
	if in.PaymentMethod != "" {
		c.buf.PaymentMethod = in.PaymentMethod
	}
	c.buf.Currency = in.Currency
	if c.buf.Currency == "" {
		c.buf.Currency = domain.DefaultCurrency(c.buf.PaymentMethod)
	}
	c.buf.Price = in.Price
	c.buf.BarterWant = in.BarterWant
}

// AttachImage normalizes a user-selected image and stores the resulting
// local payload in the buffer as the pending preview. Oversized files are
// rejected before any decode work.
func (c *Controller) AttachImage(ctx context.Context, r io.Reader, size int64) error {
	dataURL, err := c.normalizer.NormalizeToDataURL(ctx, r, size)
	if err != nil {
		return fmt.Errorf("form: attach image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Image = dataURL
	return nil
}

// SetImage places an already-normalized local payload (a data URL) or a
// stored retrieval URL into the buffer. Anything else clears the image.
func (c *Controller) SetImage(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == "" || img.IsDataURL(s) || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		c.buf.Image = s
	}
}

// Validate runs the client-side checks in order and returns the first
// failure. It has no side effects.
func (c *Controller) Validate() error {
	c.mu.Lock()
	buf := c.buf
	c.mu.Unlock()
	return validate(buf, c.session)
}

func validate(buf Buffer, session domain.Session) error {
	if strings.TrimSpace(buf.Name) == "" {
		return domain.ErrMissingField
	}
	if strings.TrimSpace(buf.Description) == "" {
		return domain.ErrMissingField
	}
	if !session.Valid() {
		return domain.ErrNotAuthenticated
	}
	if buf.PriceMode != domain.PriceModeBarter {
		n, err := strconv.ParseFloat(strings.TrimSpace(buf.Price), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return domain.ErrInvalidPrice
		}
	} else if strings.TrimSpace(buf.BarterWant) == "" {
		return domain.ErrMissingField
	}
	return nil
}

// Submit validates the buffer and writes the listing through the repository.
// A fresh local image payload is uploaded first; when editing without a new
// image the prior URL is kept verbatim. On any store or upload failure the
// buffer is left populated for resubmission; on success the controller
// resets to browsing. A submission that completes after the buffer was reset
// or replaced leaves the new buffer untouched.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != StateEditing {
		c.mu.Unlock()
		return "", fmt.Errorf("form: submit without an active edit buffer")
	}
	buf := c.buf
	gen := c.gen
	c.mu.Unlock()

	if err := validate(buf, c.session); err != nil {
		return "", err
	}

	l, err := buildListing(buf, c.session)
	if err != nil {
		return "", err
	}

	// Upload a fresh local payload before the write. The upload is not
	// cancellable once started; a replaced image object is cleaned up by the
	// repository on the subsequent write.
	if img.IsDataURL(buf.Image) {
		jpg, err := img.DecodeDataURL(buf.Image)
		if err != nil {
			return "", fmt.Errorf("form: %w", errors.Join(domain.ErrUploadFailed, err))
		}
		url, err := c.images.StoreListingImage(ctx, c.session.ID, jpg)
		if err != nil {
			return "", fmt.Errorf("form: %w", err)
		}
		l.ImageURL = &url
	}

	var id string
	if buf.ListingID == "" {
		id, err = c.repo.Create(ctx, c.session, l)
	} else {
		id = buf.ListingID
		err = c.repo.Update(ctx, c.session, buf.ListingID, l)
	}
	if err != nil {
		c.logger.Warn("submit failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("form: submit: %w", err)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.resetLocked()
	}
	c.mu.Unlock()

	return id, nil
}

// buildListing assembles a validated domain listing from the buffer.
func buildListing(buf Buffer, session domain.Session) (domain.Listing, error) {
	l := domain.Listing{
		OwnerID:     session.ID,
		Name:        strings.TrimSpace(buf.Name),
		Kind:        buf.Kind,
		Description: strings.TrimSpace(buf.Description),
		CreatedAt:   buf.createdAt,
	}

	if buf.Kind == domain.KindPhysical {
		cond := buf.Condition
		l.Condition = &cond
	}

	switch buf.PriceMode {
	case domain.PriceModeBarter:
		l.SetPricing(domain.BarterPricing(buf.BarterWant))
	case domain.PriceModeBid:
		price, _ := strconv.ParseFloat(strings.TrimSpace(buf.Price), 64)
		l.SetPricing(domain.BidPricing(buf.PaymentMethod, buf.Currency, price))
	default:
		price, _ := strconv.ParseFloat(strings.TrimSpace(buf.Price), 64)
		l.SetPricing(domain.FixedPricing(buf.PaymentMethod, buf.Currency, price))
	}

	if buf.Image != "" && !img.IsDataURL(buf.Image) {
		url := buf.Image
		l.ImageURL = &url
	}

	if err := l.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}
