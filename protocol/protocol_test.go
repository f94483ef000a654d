package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByKindResolvesAllKinds(t *testing.T) {
	for _, kind := range []string{"", "cbor", "msgpack", "protobuf"} {
		tf, pf, err := ByKind(kind)
		require.NoErrorf(t, err, "kind %q", kind)
		require.NotNil(t, tf)
		require.NotNil(t, pf)
	}
}

func TestByKindUnknown(t *testing.T) {
	_, _, err := ByKind("carrier-pigeon")
	require.Error(t, err)
	var kindErr *UnknownKindError
	require.ErrorAs(t, err, &kindErr)
}

func TestBytePayloadRoundTripAcrossFactories(t *testing.T) {
	payload := []byte("the quick brown fox")

	for _, kind := range []string{"cbor", "msgpack", "protobuf"} {
		t.Run(kind, func(t *testing.T) {
			tf, pf, err := ByKind(kind)
			require.NoError(t, err)

			var buf bytes.Buffer
			transport, err := tf.GetTransport(&buf)
			require.NoError(t, err)
			p, err := pf.GetProtocol(transport)
			require.NoError(t, err)

			require.NoError(t, p.Encode(&payload))

			var got []byte
			require.NoError(t, p.Decode(&got))
			require.Equal(t, payload, got)
		})
	}
}
