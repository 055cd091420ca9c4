package cc

import (
	"fmt"

	"github.com/zwavelink/zwave-driver/internal/security"
)

// ParsingContext carries what a CC parser needs beyond its own payload
// bytes: the security manager (for S0 decapsulation) and the node ids
// involved, mirroring original_source's CCParsingContext. PeerNodeID is
// the node on the other end of the exchange -- the sender for inbound
// parsing, the destination for outbound serialization. Both ids are
// always encoded 8-bit for the S0 MAC regardless of the session's
// negotiated NodeIdType.
type ParsingContext struct {
	OwnNodeID       uint8
	PeerNodeID      uint8
	SecurityManager *security.Manager
}

// CC is any parsed or constructed Command-Class payload.
type CC interface {
	CommandClassID() CommandClassID
	CommandByte() (byte, bool)
	Serialize() []byte
}

// Request is implemented by CCs that expect a specific CC in response
// (e.g. a Get expecting a Report).
type Request interface {
	CC
	ExpectsResponse() bool
	TestResponse(response CC) bool
}

// ValueProducer is implemented by CCs whose Report carries cache-worthy
// values.
type ValueProducer interface {
	ToValues() []CacheEntry
}

// CacheEntry is one (property, value) pair a Report CC contributes to
// the value cache; property_key is nil for CCs with no sub-addressing.
type CacheEntry struct {
	Property    uint32
	PropertyKey *uint32
	Value       any
}

type registryKey struct {
	CCID    CommandClassID
	Command byte
}

// ParseFunc parses a CC's payload (the bytes after the cc_command byte).
type ParseFunc func(payload []byte, ctx *ParsingContext) (CC, error)

var registry = map[registryKey]ParseFunc{}

func register(ccID CommandClassID, command byte, fn ParseFunc) {
	key := registryKey{ccID, command}
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("cc: duplicate registration for %v/0x%02X", ccID, command))
	}
	registry[key] = fn
}

// Raw is the fallback for a (CommandClassID, command-byte) pair with no
// registered parser, or for a command class whose single-command
// payload carries no command byte at all.
type Raw struct {
	CCID    CommandClassID
	Command byte
	HasCmd  bool
	Payload []byte
}

func (r Raw) CommandClassID() CommandClassID { return r.CCID }
func (r Raw) CommandByte() (byte, bool)      { return r.Command, r.HasCmd }
func (r Raw) Serialize() []byte              { return append([]byte(nil), r.Payload...) }

// Parse dispatches the command-class byte(s) plus command byte to the
// registered parser, or returns Raw if none is registered.
func Parse(ccID CommandClassID, command byte, payload []byte, ctx *ParsingContext) (CC, error) {
	if fn, ok := registry[registryKey{ccID, command}]; ok {
		return fn(payload, ctx)
	}
	return Raw{CCID: ccID, Command: command, HasCmd: true, Payload: append([]byte(nil), payload...)}, nil
}

// EncodeHeader renders the [cc_id, cc_command] (or [cc_id_hi, cc_id_lo,
// cc_command] for extended command classes) prefix that precedes a CC's
// own serialized payload on the wire.
func EncodeHeader(ccID CommandClassID, command byte) []byte {
	if ccID.IsExtended() {
		return []byte{byte(ccID >> 8), byte(ccID), command}
	}
	return []byte{byte(ccID), command}
}

// Encode renders a CC's full wire form: its header (cc_id, plus the
// cc_command byte if it has one) followed by its own serialized payload.
func Encode(c CC) []byte {
	ccID := c.CommandClassID()
	cmd, hasCmd := c.CommandByte()
	var header []byte
	switch {
	case hasCmd:
		header = EncodeHeader(ccID, cmd)
	case ccID.IsExtended():
		header = []byte{byte(ccID >> 8), byte(ccID)}
	default:
		header = []byte{byte(ccID)}
	}
	return append(header, c.Serialize()...)
}

// DecodeHeader reads a CC header from raw bytes (the payload of an
// ApplicationCommand / SendData), returning the command class id,
// command byte, and remaining bytes.
func DecodeHeader(b []byte) (CommandClassID, byte, []byte, error) {
	if len(b) < 2 {
		return 0, 0, nil, fmt.Errorf("cc: truncated header")
	}
	if CommandClassID(b[0]) >= 0xF1 {
		if len(b) < 3 {
			return 0, 0, nil, fmt.Errorf("cc: truncated extended header")
		}
		ccID := CommandClassID(uint16(b[0])<<8 | uint16(b[1]))
		return ccID, b[2], b[3:], nil
	}
	return CommandClassID(b[0]), b[1], b[2:], nil
}
