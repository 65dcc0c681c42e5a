package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brandlab/exchange/internal/domain"
	"github.com/brandlab/exchange/internal/form"
	img "github.com/brandlab/exchange/internal/image"
)

// maxUploadForm bounds the multipart parse buffer for image uploads.
const maxUploadForm = img.MaxUploadBytes + 1<<20

// ListingService is the slice of the listing service the handler needs.
type ListingService interface {
	Get(ctx context.Context, id string) (domain.Listing, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Listing, error)
	Update(ctx context.Context, session domain.Session, id string, l domain.Listing) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// ListingHandler serves the listing CRUD endpoints. Create and update flow
// through the per-session form controller so the edit-buffer semantics
// (validation order, image handling, reset on success) hold for API clients
// as well.
type ListingHandler struct {
	svc        ListingService
	forms      *form.Registry
	identities IdentityProvider
	normalizer *img.Normalizer
	images     domain.ImageStore
	logger     *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(svc ListingService, forms *form.Registry, identities IdentityProvider, images domain.ImageStore, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		svc:        svc,
		forms:      forms,
		identities: identities,
		normalizer: img.NewNormalizer(),
		images:     images,
		logger:     logHandler(logger, "listing"),
	}
}

// listingInput is the JSON body for create and update. Image carries a data
// URL for a fresh upload or the stored URL carried over from an edit.
type listingInput struct {
	form.Input
	Image string `json:"image"`
}

// List returns the newest listings, capped at the feed limit. With
// view=cards the response carries the explorer card projection instead of
// full records; affordance flags then reflect the caller's session.
// GET /api/listings[?view=cards]
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}
	if r.URL.Query().Get("view") == "cards" {
		session := sessionFromRequest(r, h.identities)
		cards := make([]listingCard, len(listings))
		for i, l := range listings {
			cards[i] = cardView(l, session)
		}
		writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

// Get returns a single listing.
// GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Create validates and persists a new listing through the caller's form
// controller.
// POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(r, h.identities)
	if !session.Valid() {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}

	var in listingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := h.forms.For(session)
	c.StartCreate()
	c.SetFields(in.Input)
	c.SetImage(in.Image)

	id, err := c.Submit(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		// Created but not readable back; return the id alone.
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// Update edits an existing listing owned by the caller. Fields not carried
// in the body fall back to form defaults, matching a full form submission.
// PUT /api/listings/{id}
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(r, h.identities)
	if !session.Valid() {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}
	id := pathParam(r, "id")

	var in listingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := h.forms.For(session)
	if err := c.StartEdit(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	c.SetFields(in.Input)
	if in.Image != "" {
		c.SetImage(in.Image)
	}

	if _, err := c.Submit(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Delete removes a listing owned by the caller. The confirm=true query
// parameter is required; without it nothing is touched.
// DELETE /api/listings/{id}?confirm=true
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(r, h.identities)
	if !session.Valid() {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "deletion requires confirm=true")
		return
	}
	id := pathParam(r, "id")

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !l.OwnedBy(session.ID) {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete failed",
			slog.String("listing_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete listing")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UploadImage normalizes a multipart image and attaches it to a listing
// owned by the caller. Oversized files are rejected before any decode work;
// a replaced image object is cleaned up by the write.
// POST /api/listings/{id}/image
func (h *ListingHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(r, h.identities)
	if !session.Valid() {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}
	id := pathParam(r, "id")

	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !l.OwnedBy(session.ID) {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}

	if err := r.ParseMultipartForm(maxUploadForm); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	jpg, err := h.normalizer.Normalize(r.Context(), file, header.Size)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	url, err := h.images.StoreListingImage(r.Context(), session.ID, jpg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	l.ImageURL = &url
	if err := h.svc.Update(r.Context(), session, id, l); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}
