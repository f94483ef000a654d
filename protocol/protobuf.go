package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ProtobufProtocolFactory builds Protocols backed by
// google.golang.org/protobuf. Frame payloads in this core are opaque
// []byte, so rather than requiring callers to maintain their own
// generated .proto types, every value is carried inside the
// well-known wrapperspb.BytesValue message; a caller that hands in
// its own proto.Message is marshaled as-is. Each message is written
// length-delimited (a protobuf-varint length, then the message bytes)
// since, unlike CBOR or MessagePack, protobuf wire data is not
// self-delimiting on a plain stream.
type ProtobufProtocolFactory struct{}

func (ProtobufProtocolFactory) GetProtocol(t Transport) (Protocol, error) {
	return &protobufProtocol{
		w: t,
		r: bufio.NewReader(t),
	}, nil
}

type protobufProtocol struct {
	w io.Writer
	r *bufio.Reader
}

func toProtoMessage(v interface{}) (proto.Message, error) {
	switch m := v.(type) {
	case proto.Message:
		return m, nil
	case []byte:
		return wrapperspb.Bytes(m), nil
	case *[]byte:
		if m == nil {
			return wrapperspb.Bytes(nil), nil
		}
		return wrapperspb.Bytes(*m), nil
	default:
		return nil, fmt.Errorf("protocol/protobuf: %T is not a proto.Message or []byte", v)
	}
}

func (p *protobufProtocol) Encode(v interface{}) error {
	msg, err := toProtoMessage(v)
	if err != nil {
		return err
	}
	raw, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("protocol/protobuf: marshal: %w", err)
	}
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(raw)))
	// One Write per message, so a serializing connection never
	// interleaves another writer's bytes between prefix and body.
	_, err = p.w.Write(append(lenBuf[:n:n], raw...))
	return err
}

func (p *protobufProtocol) Decode(v interface{}) error {
	size, err := binary.ReadUvarint(p.r)
	if err != nil {
		return err
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(p.r, raw); err != nil {
		return err
	}
	switch dst := v.(type) {
	case proto.Message:
		return proto.Unmarshal(raw, dst)
	case *[]byte:
		var bv wrapperspb.BytesValue
		if err := proto.Unmarshal(raw, &bv); err != nil {
			return fmt.Errorf("protocol/protobuf: unmarshal: %w", err)
		}
		*dst = bv.GetValue()
		return nil
	default:
		return fmt.Errorf("protocol/protobuf: %T is not a proto.Message or *[]byte", v)
	}
}
