package protocol

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Envelope gives the CBOR protocol its own tagged type, the same way
// server/cborplugin/client.go registers a TagSet for its
// Request/Response/ParametersRequest/Parameters types rather than
// relying on CBOR's untagged default encoding. The demonstration Echo
// processor (processor/echo.go) does not use it: it round-trips plain
// []byte payloads.
type Envelope struct {
	Payload []byte
}

var cborTags = cbor.NewTagSet()

func init() {
	opts := cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired}
	_ = cborTags.Add(opts, reflect.TypeOf(Envelope{}), 1501)
}

var (
	cborEncMode, _ = cbor.EncOptions{}.EncModeWithTags(cborTags)
	cborDecMode, _ = cbor.DecOptions{}.DecModeWithTags(cborTags)
)

// CBORProtocolFactory builds Protocols backed by fxamacker/cbor/v2,
// the library the teacher's own plugin transport
// (server/cborplugin/client.go) uses for its Request/Response wire
// format.
type CBORProtocolFactory struct{}

func (CBORProtocolFactory) GetProtocol(t Transport) (Protocol, error) {
	return &cborProtocol{
		enc: cborEncMode.NewEncoder(t),
		dec: cborDecMode.NewDecoder(t),
	}, nil
}

type cborProtocol struct {
	enc *cbor.Encoder
	dec *cbor.Decoder
}

func (p *cborProtocol) Encode(v interface{}) error {
	return p.enc.Encode(v)
}

func (p *cborProtocol) Decode(v interface{}) error {
	return p.dec.Decode(v)
}
