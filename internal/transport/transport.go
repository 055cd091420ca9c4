package transport

import (
	"io"

	"github.com/zwavelink/zwave-driver/internal/cnl"
	"github.com/zwavelink/zwave-driver/internal/eventfeed"
)

// EventDecoder decodes a single event-feed Event from a stream.
type EventDecoder interface {
	Decode(r io.Reader) (eventfeed.Event, error)
}

// MultiEventDecoder optionally drains multiple events from a stream.
type MultiEventDecoder interface {
	DecodeN(r io.Reader, max int, onEvent func(eventfeed.Event)) (int, error)
}

// EventBatchEncoder can encode batches efficiently (either to bytes or directly to writer).
type EventBatchEncoder interface {
	Encode([]eventfeed.Event) []byte
	EncodeTo(w io.Writer, events []eventfeed.Event) (int, error)
}

// Compile-time assertions that *cnl.Codec satisfies the optional capabilities.
var (
	_ EventDecoder      = (*cnl.Codec)(nil)
	_ MultiEventDecoder = (*cnl.Codec)(nil)
	_ EventBatchEncoder = (*cnl.Codec)(nil)
)
