package cnl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/eventfeed"
	"github.com/zwavelink/zwave-driver/internal/metrics"
)

// Codec encodes/decodes batches of eventfeed.Events over a TCP stream.
// Stateless and safe for concurrent use.
type Codec struct{}

// maxPayloadLen bounds a single Event's CC payload on the wire.
const maxPayloadLen = 255

// ErrInvalidLength is returned when an Event's payload length exceeds
// maxPayloadLen.
var ErrInvalidLength = errors.New("eventfeed: invalid length")

// ErrTruncatedFrame is returned when the underlying reader ends mid-event.
var ErrTruncatedFrame = errors.New("eventfeed: truncated frame")

// Encode packs events into a single batch.
func (c *Codec) Encode(events []eventfeed.Event) []byte {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(len(events) * (2 + 1 + 1 + 16))
	_, _ = c.EncodeTo(&buf, events)
	return buf.Bytes()
}

// EncodeTo writes the wire representation of events to w and returns bytes
// written. Each event is encoded as: 2-byte BE node id, 1-byte endpoint
// index, 1-byte payload length, payload.
func (c *Codec) EncodeTo(w io.Writer, events []eventfeed.Event) (int, error) {
	var total int
	for _, e := range events {
		if len(e.Payload) > maxPayloadLen {
			return total, fmt.Errorf("eventfeed encode: %w (%d)", ErrInvalidLength, len(e.Payload))
		}
		var hdr [4]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(e.NodeID))
		hdr[2] = e.Endpoint.Index()
		hdr[3] = byte(len(e.Payload))
		n, err := w.Write(hdr[:])
		total += n
		if err != nil {
			return total, fmt.Errorf("eventfeed encode header: %w", err)
		}
		if len(e.Payload) > 0 {
			n, err = w.Write(e.Payload)
			total += n
			if err != nil {
				return total, fmt.Errorf("eventfeed encode payload: %w", err)
			}
		}
	}
	return total, nil
}

// Decode reads exactly one event from r.
// It returns io.EOF if called at a clean boundary and no more data is available.
func (c *Codec) Decode(r io.Reader) (eventfeed.Event, error) {
	var e eventfeed.Event
	var hdr [4]byte
	n, err := io.ReadFull(r, hdr[0:1])
	if err != nil {
		return e, err
	}
	if n == 0 {
		return e, io.EOF
	}
	if _, err := io.ReadFull(r, hdr[1:4]); err != nil {
		return e, err
	}
	nodeID := binary.BigEndian.Uint16(hdr[0:2])
	e.NodeID = command.NodeId(nodeID)
	e.Endpoint = cc.Endpoint(hdr[2])
	ln := int(hdr[3])
	if ln > maxPayloadLen {
		metrics.IncMalformed()
		return e, fmt.Errorf("eventfeed decode: %w (%d)", ErrInvalidLength, ln)
	}
	if ln > 0 {
		payload := make([]byte, ln)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				metrics.IncMalformed()
				return e, fmt.Errorf("eventfeed decode payload: %w", ErrTruncatedFrame)
			}
			metrics.IncMalformed()
			return e, fmt.Errorf("eventfeed decode payload: %w", err)
		}
		e.Payload = payload
	}
	return e, nil
}

// DecodeN decodes up to max events (if max>0) or until EOF (if max<=0)
// invoking onEvent for each.
func (c *Codec) DecodeN(r io.Reader, max int, onEvent func(eventfeed.Event)) (int, error) {
	var n int
	for max <= 0 || n < max {
		ev, err := c.Decode(r)
		if err != nil {
			return n, err
		}
		onEvent(ev)
		n++
	}
	return n, nil
}

// DecodeStream decodes a single event; kept for parity with the original
// single-shot decode entrypoint.
func (c *Codec) DecodeStream(r io.Reader, onEvent func(eventfeed.Event)) error {
	ev, err := c.Decode(r)
	if err != nil {
		return err
	}
	onEvent(ev)
	return nil
}
