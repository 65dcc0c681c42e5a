package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brandlab/exchange/internal/domain"
)

// AssistService is the slice of the AI assistant the handler needs.
type AssistService interface {
	ImproveDescription(ctx context.Context, name string, kind domain.Kind, condition string, draft string) (string, error)
	SuggestPrice(ctx context.Context, name string, kind domain.Kind, condition string, pm domain.PaymentMethod, currency string, baseline string) (*float64, error)
	AltText(ctx context.Context, name string, kind domain.Kind) (string, error)
}

// AssistHandler serves the AI helper endpoints. assistant may be nil when
// the feature is disabled; every route then answers 503.
type AssistHandler struct {
	assistant AssistService
	logger    *slog.Logger
}

// NewAssistHandler creates an AssistHandler.
func NewAssistHandler(assistant AssistService, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{
		assistant: assistant,
		logger:    logHandler(logger, "assist"),
	}
}

type assistRequest struct {
	Name          string               `json:"name"`
	Kind          domain.Kind          `json:"type"`
	Condition     string               `json:"condition"`
	Description   string               `json:"description"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Currency      string               `json:"currency"`
	Price         string               `json:"price"`
}

// ImproveDescription rewrites a draft description.
// POST /api/assist/description
func (h *AssistHandler) ImproveDescription(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	text, err := h.assistant.ImproveDescription(r.Context(), req.Name, req.Kind, req.Condition, req.Description)
	if err != nil {
		h.fail(w, "description", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}

// SuggestPrice returns a model-suggested price, null when the reply carried
// no parseable number.
// POST /api/assist/price
func (h *AssistHandler) SuggestPrice(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	price, err := h.assistant.SuggestPrice(r.Context(), req.Name, req.Kind, req.Condition, req.PaymentMethod, req.Currency, req.Price)
	if err != nil {
		h.fail(w, "price", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"price": price})
}

// AltText returns a short accessibility description for the listing photo.
// POST /api/assist/alt-text
func (h *AssistHandler) AltText(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	text, err := h.assistant.AltText(r.Context(), req.Name, req.Kind)
	if err != nil {
		h.fail(w, "alt-text", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"altText": text})
}

func (h *AssistHandler) decode(w http.ResponseWriter, r *http.Request) (assistRequest, bool) {
	if h.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assist is disabled")
		return assistRequest{}, false
	}
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return assistRequest{}, false
	}
	return req, true
}

// fail logs the underlying error and answers with a generic per-action
// message so prompt or provider details never leak to the client.
func (h *AssistHandler) fail(w http.ResponseWriter, action string, err error) {
	h.logger.Warn("assist call failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	if status := statusFor(err); status != http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "assist "+action+" failed")
}
