package identity

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenSessionsAreDeterministic(t *testing.T) {
	p := NewProvider("secret-token", testLogger())

	a := p.Establish()
	b := p.Establish()

	assert.Equal(t, a.ID, b.ID)
	assert.False(t, a.Anonymous)
	require.True(t, a.Valid())

	// A fresh provider with the same token derives the same identity.
	other := NewProvider("secret-token", testLogger())
	assert.Equal(t, a.ID, other.Establish().ID)

	// A different token derives a different identity.
	assert.NotEqual(t, a.ID, NewProvider("other-token", testLogger()).Establish().ID)
}

func TestAnonymousSessionsAreUnique(t *testing.T) {
	p := NewProvider("", testLogger())

	a := p.Establish()
	b := p.Establish()

	assert.True(t, a.Anonymous)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLookup(t *testing.T) {
	p := NewProvider("", testLogger())
	s := p.Establish()

	assert.Equal(t, s, p.Lookup(s.ID))
	assert.False(t, p.Lookup("unknown").Valid())
}
