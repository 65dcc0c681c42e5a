package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brandlab/exchange/internal/domain"
)

// WalletService is the slice of the simulated wallet the handler needs.
type WalletService interface {
	Balances() map[string]float64
	Tokens() []string
	History() []domain.Transaction
	Buy(ctx context.Context, token string, amount float64) (domain.Transaction, error)
	Sell(ctx context.Context, token string, amount float64) (domain.Transaction, error)
	Transfer(ctx context.Context, token string, amount float64, address string) (domain.Transaction, error)
}

// WalletHandler serves the simulated wallet endpoints.
type WalletHandler struct {
	wallet     WalletService
	identities IdentityProvider
	logger     *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet WalletService, identities IdentityProvider, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		wallet:     wallet,
		identities: identities,
		logger:     logHandler(logger, "wallet"),
	}
}

// Balances returns the current simulated holdings.
// GET /api/wallet/balances
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"balances": h.wallet.Balances(),
		"tokens":   h.wallet.Tokens(),
	})
}

// Transactions returns the history, newest first.
// GET /api/wallet/transactions
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": h.wallet.History(),
	})
}

// txRequest is the JSON body for a simulated transaction.
type txRequest struct {
	Type    domain.TransactionType `json:"type"`
	Token   string                 `json:"token"`
	Amount  float64                `json:"amount"`
	Address string                 `json:"address"`
}

// Submit applies a simulated buy, sell, or transfer after the settlement
// delay and returns the recorded transaction.
// POST /api/wallet/transactions
func (h *WalletHandler) Submit(w http.ResponseWriter, r *http.Request) {
	session := sessionFromRequest(r, h.identities)
	if !session.Valid() {
		writeDomainError(w, domain.ErrNotAuthenticated)
		return
	}

	var req txRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		tx  domain.Transaction
		err error
	)
	switch req.Type {
	case domain.TxBuy:
		tx, err = h.wallet.Buy(r.Context(), req.Token, req.Amount)
	case domain.TxSell:
		tx, err = h.wallet.Sell(r.Context(), req.Token, req.Amount)
	case domain.TxTransfer:
		tx, err = h.wallet.Transfer(r.Context(), req.Token, req.Amount, req.Address)
	default:
		writeError(w, http.StatusBadRequest, "unknown transaction type")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.Info("transaction accepted",
		slog.String("tx_id", tx.ID),
		slog.String("type", string(tx.Type)),
	)
	writeJSON(w, http.StatusCreated, tx)
}
