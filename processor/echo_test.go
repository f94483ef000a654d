package processor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sphinxmux/nbrpc/protocol"
)

func TestEchoRoundTripsAcrossProtocols(t *testing.T) {
	for _, kind := range []string{"cbor", "msgpack", "protobuf"} {
		t.Run(kind, func(t *testing.T) {
			tf, pf, err := protocol.ByKind(kind)
			require.NoError(t, err)

			var reqBuf, respBuf bytes.Buffer
			reqTransport, err := tf.GetTransport(&reqBuf)
			require.NoError(t, err)
			reqProtocol, err := pf.GetProtocol(reqTransport)
			require.NoError(t, err)

			payload := []byte("echo me")
			require.NoError(t, reqProtocol.Encode(&payload))

			inTransport, err := tf.GetTransport(&reqBuf)
			require.NoError(t, err)
			inProtocol, err := pf.GetProtocol(inTransport)
			require.NoError(t, err)

			outTransport, err := tf.GetTransport(&respBuf)
			require.NoError(t, err)
			outProtocol, err := pf.GetProtocol(outTransport)
			require.NoError(t, err)

			require.NoError(t, (Echo{}).Process(inProtocol, outProtocol))

			verifyTransport, err := tf.GetTransport(&respBuf)
			require.NoError(t, err)
			verifyProtocol, err := pf.GetProtocol(verifyTransport)
			require.NoError(t, err)

			var got []byte
			require.NoError(t, verifyProtocol.Decode(&got))
			require.Equal(t, payload, got)
		})
	}
}
