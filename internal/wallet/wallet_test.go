package wallet

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
)

func testWallet() *Wallet {
	return New(0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSeedBalances(t *testing.T) {
	w := testWallet()
	balances := w.Balances()

	assert.Equal(t, 10234.56, balances[domain.TokenCode])
	assert.Equal(t, 0.82345678, balances["BTC"])
	assert.Equal(t, 12.5, balances["ETH"])
	assert.Len(t, balances, 6)
}

func TestTokensListsNativeFirst(t *testing.T) {
	tokens := testWallet().Tokens()
	require.NotEmpty(t, tokens)
	assert.Equal(t, domain.TokenCode, tokens[0])
	assert.ElementsMatch(t, []string{"UAI", "BTC", "ETH", "USDT", "SOL", "BNB"}, tokens)
}

func TestBuyCreditsBalance(t *testing.T) {
	w := testWallet()
	before := w.Balance("ETH")

	tx, err := w.Buy(context.Background(), "ETH", 2.5)
	require.NoError(t, err)

	assert.Equal(t, domain.TxBuy, tx.Type)
	assert.Equal(t, "Success", tx.Status)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, before+2.5, w.Balance("ETH"))
}

func TestSellFloorsAtZero(t *testing.T) {
	w := testWallet()

	_, err := w.Sell(context.Background(), "BNB", 1000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w.Balance("BNB"))
}

func TestTransferRequiresAddress(t *testing.T) {
	w := testWallet()

	_, err := w.Transfer(context.Background(), "USDT", 10, "   ")
	assert.ErrorIs(t, err, domain.ErrMissingAddress)

	tx, err := w.Transfer(context.Background(), "USDT", 10, "0xabc123")
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", tx.Address)
	assert.Equal(t, 1543.12-10, w.Balance("USDT"))
}

func TestInvalidAmountsRejected(t *testing.T) {
	w := testWallet()

	_, err := w.Buy(context.Background(), "ETH", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = w.Sell(context.Background(), "ETH", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = w.Buy(context.Background(), "  ", 1)
	assert.ErrorIs(t, err, domain.ErrMissingField)
}

func TestHistoryNewestFirst(t *testing.T) {
	w := testWallet()

	first, err := w.Buy(context.Background(), "ETH", 1)
	require.NoError(t, err)
	second, err := w.Sell(context.Background(), "ETH", 0.5)
	require.NoError(t, err)

	history := w.History()
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestSettleDelayHonoursContext(t *testing.T) {
	w := New(5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Buy(ctx, "ETH", 1)
	require.Error(t, err)

	// The cancelled settle never mutated the balance.
	assert.Equal(t, 12.5, w.Balance("ETH"))
	assert.Empty(t, w.History())
}
