package assist

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"42", 42},
		{"  129.99\n", 129.99},
		{"Around $85 seems fair.", 85},
		{"I'd say 0.5 ETH, maybe 0.6.", 0.5},
		{"-12 is nonsense but parseable", -12},
	}
	for _, tc := range cases {
		got := ParsePrice(tc.in)
		require.NotNil(t, got, "input %q", tc.in)
		assert.Equal(t, tc.want, *got, "input %q", tc.in)
	}
}

func TestParsePriceNilOnProse(t *testing.T) {
	assert.Nil(t, ParsePrice("It depends on the market."))
	assert.Nil(t, ParsePrice(""))
	assert.Nil(t, ParsePrice("no number here"))
}

func TestNewRequiresAPIKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(context.Background(), "", "gemini-1.5-flash", logger)
	assert.Error(t, err)
}
