package cnl

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/eventfeed"
)

func mkEvent(nodeID command.NodeId, n int) eventfeed.Event {
	if n < 0 {
		n = 0
	}
	if n > 16 {
		n = 16
	}
	payload := make([]byte, n)
	_, _ = rand.Read(payload)
	return eventfeed.Event{NodeID: nodeID, Endpoint: cc.RootEndpoint, Payload: payload}
}

func TestCodecRoundTrip(t *testing.T) {
	codec := Codec{}
	in := []eventfeed.Event{
		mkEvent(5, 8),
		mkEvent(6, 6),
		mkEvent(7, 0),
	}

	wire := codec.Encode(in)
	var out []eventfeed.Event
	br := bytes.NewReader(wire)
	n, err := codec.DecodeN(br, 0, func(e eventfeed.Event) { out = append(out, e) })
	if err != io.EOF && err != nil { // expect EOF at clean end
		t.Fatalf("DecodeN unexpected err: %v", err)
	}
	if n != len(in) {
		t.Fatalf("decoded %d, want %d", n, len(in))
	}
	if len(out) != len(in) {
		t.Fatalf("collected %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].NodeID != in[i].NodeID || !bytes.Equal(out[i].Payload, in[i].Payload) {
			t.Fatalf("event %d mismatch", i)
		}
	}
}

func TestCodecEncodeToMatchesEncode(t *testing.T) {
	codec := Codec{}
	events := []eventfeed.Event{mkEvent(1, 8), mkEvent(2, 3)}
	a := codec.Encode(events)
	var buf bytes.Buffer
	if _, err := codec.EncodeTo(&buf, events); err != nil {
		t.Fatalf("EncodeTo error: %v", err)
	}
	if !bytes.Equal(a, buf.Bytes()) {
		t.Fatalf("Encode vs EncodeTo mismatch\nenc=% X\nencTo=% X", a, buf.Bytes())
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	codec := Codec{}
	// Truncated payload: header says length 5 but only 3 bytes follow.
	var trunc bytes.Buffer
	trunc.Write([]byte{0, 2, 0, 5})
	trunc.Write([]byte{1, 2, 3})
	if _, err := codec.Decode(&trunc); err == nil {
		t.Fatalf("expected truncated error")
	}
}

func BenchmarkCodecEncode(b *testing.B) {
	codec := Codec{}
	events := make([]eventfeed.Event, 64)
	for i := range events {
		events[i] = mkEvent(command.NodeId(i+1), 8)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = codec.Encode(events)
	}
}

func BenchmarkCodecEncodeTo(b *testing.B) {
	codec := Codec{}
	events := make([]eventfeed.Event, 64)
	for i := range events {
		events[i] = mkEvent(command.NodeId(i+1), 8)
	}
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_, _ = codec.EncodeTo(&buf, events)
	}
}

func BenchmarkCodecDecodeN(b *testing.B) {
	codec := Codec{}
	events := make([]eventfeed.Event, 64)
	for i := range events {
		events[i] = mkEvent(command.NodeId(i+1), 8)
	}
	wire := codec.Encode(events)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := bytes.NewReader(wire)
		_, _ = codec.DecodeN(r, 0, func(eventfeed.Event) {})
	}
}
