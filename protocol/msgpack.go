package protocol

import (
	codec "github.com/ugorji/go/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

// MsgpackProtocolFactory builds Protocols backed by
// github.com/ugorji/go/codec's MessagePack handle, demonstrating that
// the Worker's "build encoders from the factory" step is protocol
// agnostic: swapping protocol.kind from "cbor" to "msgpack" in
// internal/config changes nothing else in the reactor.
type MsgpackProtocolFactory struct{}

func (MsgpackProtocolFactory) GetProtocol(t Transport) (Protocol, error) {
	return &msgpackProtocol{
		enc: codec.NewEncoder(t, msgpackHandle),
		dec: codec.NewDecoder(t, msgpackHandle),
	}, nil
}

type msgpackProtocol struct {
	enc *codec.Encoder
	dec *codec.Decoder
}

func (p *msgpackProtocol) Encode(v interface{}) error {
	return p.enc.Encode(v)
}

func (p *msgpackProtocol) Decode(v interface{}) error {
	return p.dec.Decode(v)
}
