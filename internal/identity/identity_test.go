package identity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"dobble-room-server/internal/identity"
)

func TestSanitize_TrimsStripsAndClamps(t *testing.T) {
	assert.Equal(t, "Player", identity.Sanitize("   "))
	assert.Equal(t, "Player", identity.Sanitize(""))
	assert.Equal(t, "alert", identity.Sanitize("<alert>"))
	assert.Equal(t, "bob", identity.Sanitize("  bob  "))

	long := strings.Repeat("x", 80)
	assert.Len(t, identity.Sanitize(long), identity.MaxNameLength)
}

func TestUnique_AppendsSuffixOnCollision(t *testing.T) {
	taken := map[string]bool{"Alice": true, "Alice <2>": true}
	got := identity.Unique("Alice", func(c string) bool { return taken[c] })
	assert.Equal(t, "Alice <3>", got)
}

func TestUnique_NoCollisionReturnsOriginal(t *testing.T) {
	got := identity.Unique("Solo", func(string) bool { return false })
	assert.Equal(t, "Solo", got)
}
