package processor

import "github.com/sphinxmux/nbrpc/protocol"

// Echo is a demonstration Processor used by cmd/nbrpcd and the
// integration tests: it decodes one raw payload from the request
// stream and encodes it back unchanged, regardless of which of the
// three protocol factories built the stream. It exists to give the
// reactor something concrete to dispatch to; it carries no part of
// the core's contract and a real deployment would replace it
// entirely.
type Echo struct{}

func (Echo) Process(in protocol.Protocol, out protocol.Protocol) error {
	var payload []byte
	if err := in.Decode(&payload); err != nil {
		return err
	}
	return out.Encode(&payload)
}
