package cnl

import (
	"bytes"
	"io"
	"testing"

	"github.com/zwavelink/zwave-driver/internal/eventfeed"
)

// TestDecodeN_MultiFrame verifies DecodeN drains multiple events from a single buffer.
func TestDecodeN_MultiFrame(t *testing.T) {
	c := Codec{}
	in := []eventfeed.Event{mkEvent(0x10, 8), mkEvent(0x11, 5), mkEvent(0x12, 0)}
	buf := bytes.NewReader(c.Encode(in))
	var out []eventfeed.Event
	n, err := c.DecodeN(buf, 0, func(e eventfeed.Event) { out = append(out, e) })
	if err != io.EOF && err != nil { // EOF expected at clean end
		t.Fatalf("DecodeN err=%v", err)
	}
	if n != len(in) || len(out) != len(in) {
		t.Fatalf("decoded %d collected %d want %d", n, len(out), len(in))
	}
	for i := range in {
		if out[i].NodeID != in[i].NodeID || len(out[i].Payload) != len(in[i].Payload) {
			t.Fatalf("event %d mismatch", i)
		}
	}
}
