package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dobble-room-server/internal/protocol"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := protocol.NewEnvelope(protocol.TypeJoin, protocol.JoinRequest{PlayerName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeJoin, env.Type)

	var got protocol.JoinRequest
	require.NoError(t, protocol.Decode(env, &got))
	assert.Equal(t, "Ada", got.PlayerName)
}

func TestEnvelope_NilPayload(t *testing.T) {
	env, err := protocol.NewEnvelope(protocol.TypeYouAreHost, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeYouAreHost, env.Type)
	assert.Nil(t, env.Payload)
}
