package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeSubject(t *testing.T) {
	env := Envelope{Type: MessageState}
	subject, err := env.Subject("game-1")
	require.NoError(t, err)
	assert.Equal(t, "session.game-1.state", subject)

	env = Envelope{Type: MessagePresence}
	subject, err = env.Subject("game-1")
	require.NoError(t, err)
	assert.Equal(t, "session.game-1.presence", subject)

	_, err = Envelope{Type: "shout"}.Subject("game-1")
	assert.Error(t, err)
}

func TestTypeFromSubject(t *testing.T) {
	mt, ok := typeFromSubject("session.game-1.state")
	require.True(t, ok)
	assert.Equal(t, MessageState, mt)

	mt, ok = typeFromSubject("session.game-1.video")
	require.True(t, ok)
	assert.Equal(t, MessageVideo, mt)

	_, ok = typeFromSubject("session.game-1.shout")
	assert.False(t, ok)
	_, ok = typeFromSubject("nodots")
	assert.False(t, ok)
}

func TestSubjectRoundTrip(t *testing.T) {
	for mt := range messageTypes {
		subject, err := Envelope{Type: mt}.Subject("game-9")
		require.NoError(t, err)
		got, ok := typeFromSubject(subject)
		require.True(t, ok, subject)
		assert.Equal(t, mt, got)
	}
}

func TestEnvelopeDataIsOpaque(t *testing.T) {
	raw := []byte(`{"type":"state","data":{"origin":"client-a","patch":{"timer":12}}}`)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, MessageState, env.Type)
	assert.JSONEq(t, `{"origin":"client-a","patch":{"timer":12}}`, string(env.Data))

	// The relay re-emits the payload byte-for-byte.
	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}
