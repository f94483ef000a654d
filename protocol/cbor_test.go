package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeTaggedRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	enc := cborEncMode.NewEncoder(&buf)
	require.NoError(t, enc.Encode(&Envelope{Payload: []byte("tagged payload")}))

	dec := cborDecMode.NewDecoder(&buf)
	var got Envelope
	require.NoError(t, dec.Decode(&got))
	require.Equal(t, []byte("tagged payload"), got.Payload)
}

func TestEnvelopeEncodeIsConsistentAcrossCalls(t *testing.T) {
	var first, second bytes.Buffer
	env := &Envelope{Payload: []byte("deterministic")}

	require.NoError(t, cborEncMode.NewEncoder(&first).Encode(env))
	require.NoError(t, cborEncMode.NewEncoder(&second).Encode(env))
	require.Equal(t, first.Bytes(), second.Bytes())
}
