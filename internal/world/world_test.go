package world

import (
	"testing"

	"auction_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoster_Sessions(t *testing.T) {
	r := NewRoster()
	r.Register("arden", "acc-1")

	acc, ok := r.AccountOf("arden")
	require.True(t, ok)
	assert.Equal(t, "acc-1", acc)
	_, ok = r.AccountOf("ghost")
	assert.False(t, ok)

	// Accounts resolve whether or not the actor is online; origins only while
	// a session is live.
	assert.False(t, r.IsOnline("arden"))
	_, ok = r.OriginOf("arden")
	assert.False(t, ok)

	r.Connect("arden", "10.0.0.1")
	assert.True(t, r.IsOnline("arden"))
	origin, ok := r.OriginOf("arden")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", origin)

	r.Disconnect("arden")
	assert.False(t, r.IsOnline("arden"))
}

func TestBags_GrantAndWithdraw(t *testing.T) {
	b := NewBags()
	it := &domain.Item{ID: 7, Owner: "arden", Name: "Ironwood Shield"}
	b.Grant(it)

	got, ok := b.Get("arden", 7)
	require.True(t, ok)
	assert.Same(t, it, got)

	_, ok = b.Get("bryn", 7)
	assert.False(t, ok, "items are scoped to their owner")

	require.NoError(t, b.Withdraw("arden", 7))
	_, ok = b.Get("arden", 7)
	assert.False(t, ok)
	assert.ErrorIs(t, b.Withdraw("arden", 7), domain.ErrItemMissing)
}
