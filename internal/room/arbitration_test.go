package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveArbitrationWinner_EarliestServerTimestampWins(t *testing.T) {
	base := time.Unix(1700000000, 0)
	attempts := []MatchAttempt{
		{PlayerID: "b", ServerTimestamp: base.Add(30 * time.Millisecond)},
		{PlayerID: "a", ServerTimestamp: base},
		{PlayerID: "c", ServerTimestamp: base.Add(50 * time.Millisecond)},
	}
	winner := resolveArbitrationWinner(attempts, newSeededRand(1))
	assert.Equal(t, "a", winner.PlayerID)
}

func TestResolveArbitrationWinner_IgnoresClientTimestamp(t *testing.T) {
	base := time.Unix(1700000000, 0)
	attempts := []MatchAttempt{
		// b "claims" an earlier client timestamp but arrived later at the server.
		{PlayerID: "a", ServerTimestamp: base, ClientTimestamp: 999},
		{PlayerID: "b", ServerTimestamp: base.Add(10 * time.Millisecond), ClientTimestamp: 1},
	}
	winner := resolveArbitrationWinner(attempts, newSeededRand(1))
	assert.Equal(t, "a", winner.PlayerID)
}

func TestResolveArbitrationWinner_TiesBreakRandomlyAmongEarliest(t *testing.T) {
	base := time.Unix(1700000000, 0)
	attempts := []MatchAttempt{
		{PlayerID: "a", ServerTimestamp: base},
		{PlayerID: "b", ServerTimestamp: base},
		{PlayerID: "c", ServerTimestamp: base.Add(5 * time.Millisecond)},
	}

	seen := map[string]bool{}
	for seed := int64(0); seed < 20; seed++ {
		w := resolveArbitrationWinner(attempts, newSeededRand(seed))
		seen[w.PlayerID] = true
	}
	assert.False(t, seen["c"], "a later attempt must never win a tie")
	assert.True(t, seen["a"] || seen["b"])
}
