package frame

import "bytes"

// compactThreshold: below this size a buffer is never worth compacting,
// the copy would cost more than it saves.
const compactThreshold = 1024

// CompactBuffer reclaims a buffer's backing array once its unread portion
// has shrunk well below its capacity, so long-running accumulators don't
// retain arbitrarily large arrays after bursts of garbage or big payloads.
func CompactBuffer(b *bytes.Buffer) bool {
	if b.Cap() < compactThreshold {
		return false
	}
	if b.Len() > b.Cap()/4 {
		return false
	}
	rest := append([]byte(nil), b.Bytes()...)
	b.Reset()
	b.Write(rest)
	return true
}

// Codec decodes a byte stream into RawFrames and serializes RawFrames
// back to bytes. It carries no state of its own; all state lives in the
// caller-owned accumulator buffer.
type Codec struct{}

// DecodeStream consumes as many complete frames as are available from in,
// invoking emit for each in arrival order, and leaves any trailing
// incomplete frame bytes in the buffer for the next call. It returns the
// last recoverable error encountered (checksum mismatch), if any -- decoding
// continues past such an error since the frame boundary is still known.
func (Codec) DecodeStream(in *bytes.Buffer, emit func(RawFrame)) error {
	var lastErr error
	for {
		b := in.Bytes()
		if len(b) == 0 {
			return lastErr
		}
		switch {
		case b[0] == byteACK:
			emit(ACK())
			in.Next(1)
		case b[0] == byteNAK:
			emit(NAK())
			in.Next(1)
		case b[0] == byteCAN:
			emit(CAN())
			in.Next(1)
		case b[0] == byteSOF:
			if len(b) < 2 {
				return lastErr // incomplete: need the LEN byte
			}
			lenByte := b[1]
			total := int(lenByte) + 2
			if len(b) < total {
				return lastErr // incomplete: need the rest of the frame
			}
			cmdType := CommandType(b[2])
			fnType := b[3]
			payloadLen := int(lenByte) - minOverhead
			if payloadLen < 0 {
				// LEN too small to even cover CMD_TYPE+FN_TYPE+CHK: this
				// byte was not really a SOF. Treat the SOF byte itself as
				// one byte of garbage and keep scanning.
				emit(RawFrame{Kind: KindGarbage, Garbage: b[:1]})
				in.Next(1)
				continue
			}
			payload := append([]byte(nil), b[4:4+payloadLen]...)
			gotChk := b[total-1]
			wantChk := checksum(lenByte, cmdType, fnType, payload)
			raw := append([]byte(nil), b[:total]...)
			in.Next(total)
			if gotChk != wantChk {
				lastErr = ErrChecksumMismatch
				// The frame boundary is known even though the checksum
				// isn't trustworthy; surface it the same way as any other
				// unparseable span so the caller's existing garbage path
				// NAKs and resyncs instead of silently dropping the bytes.
				emit(RawFrame{Kind: KindGarbage, Garbage: raw})
				continue
			}
			emit(Data(cmdType, fnType, payload))
		default:
			idx := indexStartByte(b[1:])
			if idx < 0 {
				emit(RawFrame{Kind: KindGarbage, Garbage: append([]byte(nil), b...)})
				in.Next(len(b))
				return lastErr
			}
			garbageLen := idx + 1
			emit(RawFrame{Kind: KindGarbage, Garbage: append([]byte(nil), b[:garbageLen]...)})
			in.Next(garbageLen)
		}
	}
}

// Encode serializes f to wire bytes.
func (Codec) Encode(f RawFrame) []byte {
	return f.Serialize()
}

// indexStartByte returns the index of the first control or SOF byte in b,
// or -1 if none is present.
func indexStartByte(b []byte) int {
	for i, c := range b {
		if isStartByte(c) {
			return i
		}
	}
	return -1
}
