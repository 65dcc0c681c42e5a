// Package wallet implements the simulated multi-currency wallet: in-memory
// balances, a settlement delay standing in for network latency, and a
// newest-first transaction history. Nothing here touches a real chain or
// payment rail.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandlab/exchange/internal/domain"
)

// seedBalances are the demo holdings every wallet starts with.
func seedBalances() map[string]float64 {
	return map[string]float64{
		domain.TokenCode: 10234.56,
		"BTC":            0.82345678,
		"ETH":            12.5,
		"USDT":           1543.12,
		"SOL":            45.23,
		"BNB":            3.4,
	}
}

// Wallet is a per-process simulated wallet. Safe for concurrent use.
type Wallet struct {
	settleDelay time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	balances map[string]float64
	history  []domain.Transaction
}

// New creates a Wallet with the seed balances and the given settlement delay.
func New(settleDelay time.Duration, logger *slog.Logger) *Wallet {
	return &Wallet{
		settleDelay: settleDelay,
		logger:      logger.With(slog.String("component", "wallet")),
		balances:    seedBalances(),
	}
}

// Balances returns a copy of the current holdings.
func (w *Wallet) Balances() map[string]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]float64, len(w.balances))
	for token, amount := range w.balances {
		out[token] = amount
	}
	return out
}

// Balance returns the holding for one token, zero if the token is unknown.
func (w *Wallet) Balance(token string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[token]
}

// Tokens returns the held token codes, native token first, the rest sorted.
func (w *Wallet) Tokens() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.balances))
	for token := range w.balances {
		if token != domain.TokenCode {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return append([]string{domain.TokenCode}, out...)
}

// History returns the transaction log, newest first.
func (w *Wallet) History() []domain.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.Transaction, len(w.history))
	copy(out, w.history)
	return out
}

// Buy credits the token after the settlement delay.
func (w *Wallet) Buy(ctx context.Context, token string, amount float64) (domain.Transaction, error) {
	return w.settle(ctx, domain.TxBuy, token, amount, "")
}

// Sell debits the token after the settlement delay. Selling more than the
// holding empties it rather than going negative.
func (w *Wallet) Sell(ctx context.Context, token string, amount float64) (domain.Transaction, error) {
	return w.settle(ctx, domain.TxSell, token, amount, "")
}

// Transfer debits the token toward an external address after the settlement
// delay. The address is recorded but never contacted.
func (w *Wallet) Transfer(ctx context.Context, token string, amount float64, address string) (domain.Transaction, error) {
	if strings.TrimSpace(address) == "" {
		return domain.Transaction{}, domain.ErrMissingAddress
	}
	return w.settle(ctx, domain.TxTransfer, token, amount, strings.TrimSpace(address))
}

func (w *Wallet) settle(ctx context.Context, typ domain.TransactionType, token string, amount float64, address string) (domain.Transaction, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Transaction{}, domain.ErrMissingField
	}
	if !(amount > 0) {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if w.settleDelay > 0 {
		timer := time.NewTimer(w.settleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.Transaction{}, fmt.Errorf("wallet: settle: %w", ctx.Err())
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch typ {
	case domain.TxBuy:
		w.balances[token] += amount
	default:
		next := w.balances[token] - amount
		if next < 0 {
			next = 0
		}
		w.balances[token] = next
	}

	tx := domain.Transaction{
		ID:      uuid.NewString(),
		Type:    typ,
		Token:   token,
		Amount:  amount,
		Address: address,
		Date:    time.Now().UTC(),
		Status:  "Success",
	}
	w.history = append([]domain.Transaction{tx}, w.history...)

	w.logger.Info("transaction settled",
		slog.String("tx_id", tx.ID),
		slog.String("type", string(typ)),
		slog.String("token", token),
		slog.Float64("amount", amount))

	return tx, nil
}
