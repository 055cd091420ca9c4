// Package command implements the Serial-API command registry: the
// (CommandType, FunctionType, Origin) identity of every host<->controller
// message, dispatch-table based parsing, and the exemplar command
// variants needed by the high-level command API.
package command

import (
	"fmt"

	"github.com/zwavelink/zwave-driver/internal/frame"
)

// CommandType is re-exported from frame: a Command's command_type and a
// RawFrame's CMD_TYPE byte are the same wire concept.
type CommandType = frame.CommandType

const (
	CommandTypeRequest  = frame.CommandTypeRequest
	CommandTypeResponse = frame.CommandTypeResponse
)

// Origin tags a command variant with the side of the link that may
// legally produce it: parsing only accepts Controller-origin variants,
// serialization only Host-origin ones.
type Origin int

const (
	OriginHost Origin = iota
	OriginController
)

func (o Origin) String() string {
	if o == OriginController {
		return "Controller"
	}
	return "Host"
}

// FunctionType is the one-byte function identifier from the Serial API
// catalogue. Only the subset needed by the high-level command API
// has concrete command variants; the rest is
// retained here as named, inert data so NotImplemented fallback handling
// is exercised for the long tail without requiring full payload defs.
type FunctionType byte

const (
	FunctionGetSerialApiInitData     FunctionType = 0x02
	FunctionApplicationCommand       FunctionType = 0x04
	FunctionGetControllerCapabilities FunctionType = 0x05
	FunctionGetSerialApiCapabilities FunctionType = 0x07
	FunctionSoftReset                FunctionType = 0x08
	FunctionGetProtocolVersion       FunctionType = 0x09
	FunctionSerialApiStarted         FunctionType = 0x0A
	FunctionSerialApiSetup           FunctionType = 0x0B
	FunctionSetRFReceiveMode         FunctionType = 0x10
	FunctionSendData                FunctionType = 0x13
	FunctionSendDataMulticast        FunctionType = 0x14
	FunctionGetControllerVersion     FunctionType = 0x15
	FunctionSendDataAbort            FunctionType = 0x16
	FunctionGetControllerId          FunctionType = 0x20
	FunctionGetBackgroundRssi        FunctionType = 0x3B
	FunctionGetNodeProtocolInfo      FunctionType = 0x41
	FunctionApplicationUpdate        FunctionType = 0x49
	FunctionSetSucNodeId             FunctionType = 0x54
	FunctionGetSucNodeId             FunctionType = 0x56
	FunctionRequestNodeInfo          FunctionType = 0x60
	FunctionBridgeApplicationCommand FunctionType = 0xA8
)

var functionNames = map[FunctionType]string{
	FunctionGetSerialApiInitData:      "GetSerialApiInitData",
	FunctionApplicationCommand:        "ApplicationCommand",
	FunctionGetControllerCapabilities: "GetControllerCapabilities",
	FunctionGetSerialApiCapabilities:  "GetSerialApiCapabilities",
	FunctionSoftReset:                 "SoftReset",
	FunctionGetProtocolVersion:        "GetProtocolVersion",
	FunctionSerialApiStarted:          "SerialApiStarted",
	FunctionSerialApiSetup:            "SerialApiSetup",
	FunctionSetRFReceiveMode:          "SetRFReceiveMode",
	FunctionSendData:                  "SendData",
	FunctionSendDataMulticast:         "SendDataMulticast",
	FunctionGetControllerVersion:      "GetControllerVersion",
	FunctionSendDataAbort:             "SendDataAbort",
	FunctionGetControllerId:           "GetControllerId",
	FunctionGetBackgroundRssi:         "GetBackgroundRssi",
	FunctionGetNodeProtocolInfo:       "GetNodeProtocolInfo",
	FunctionApplicationUpdate:         "ApplicationUpdate",
	FunctionSetSucNodeId:              "SetSucNodeId",
	FunctionGetSucNodeId:              "GetSucNodeId",
	FunctionRequestNodeInfo:           "RequestNodeInfo",
	FunctionBridgeApplicationCommand:  "BridgeApplicationCommand",
}

func (f FunctionType) String() string {
	if name, ok := functionNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FunctionType(0x%02X)", byte(f))
}

// NodeIdType selects whether NodeId values are encoded on the wire as a
// single byte or as a big-endian 16-bit value. It is session state,
// upgraded from 8-bit to 16-bit once the controller is known to support
// it.
type NodeIdType int

const (
	NodeId8Bit NodeIdType = iota
	NodeId16Bit
)

// NodeId is a node identifier in the mesh. The controller itself and
// every node share this 16-bit address space regardless of which wire
// width a given session negotiates.
type NodeId uint16

// Encode renders n per t. 8-bit encoding truncates; callers are
// responsible for only using 8-bit encoding when t is actually 8-bit
// (as negotiated for the session, or fixed at 8-bit for S0 MAC data).
func (n NodeId) Encode(t NodeIdType) []byte {
	if t == NodeId16Bit {
		return []byte{byte(n >> 8), byte(n)}
	}
	return []byte{byte(n)}
}

// DecodeNodeId reads a NodeId from b per t, returning the remaining bytes.
func DecodeNodeId(b []byte, t NodeIdType) (NodeId, []byte, error) {
	if t == NodeId16Bit {
		if len(b) < 2 {
			return 0, nil, fmt.Errorf("command: truncated 16-bit node id")
		}
		return NodeId(uint16(b[0])<<8 | uint16(b[1])), b[2:], nil
	}
	if len(b) < 1 {
		return 0, nil, fmt.Errorf("command: truncated 8-bit node id")
	}
	return NodeId(b[0]), b[1:], nil
}

// TransmitOptions is the bitfield carried on SendData* requests. The bit
// values match the established Z-Wave Serial API layout, confirmed by the
// spec's worked examples: default() == 0x25 (ack|auto_route|explore),
// new().ack(true) == 0x01.
type TransmitOptions struct {
	Ack       bool
	AutoRoute bool
	NoRoute   bool
	Explore   bool
}

const (
	transmitOptionAck       byte = 0x01
	transmitOptionAutoRoute byte = 0x04
	transmitOptionNoRoute   byte = 0x10
	transmitOptionExplore   byte = 0x20
)

// DefaultTransmitOptions matches the controller's usual default: ack,
// auto-routing and route exploration on, explicit no-route off.
func DefaultTransmitOptions() TransmitOptions {
	return TransmitOptions{Ack: true, AutoRoute: true, Explore: true}
}

func (t TransmitOptions) Encode() byte {
	var b byte
	if t.Ack {
		b |= transmitOptionAck
	}
	if t.AutoRoute {
		b |= transmitOptionAutoRoute
	}
	if t.NoRoute {
		b |= transmitOptionNoRoute
	}
	if t.Explore {
		b |= transmitOptionExplore
	}
	return b
}

func DecodeTransmitOptions(b byte) TransmitOptions {
	return TransmitOptions{
		Ack:       b&transmitOptionAck != 0,
		AutoRoute: b&transmitOptionAutoRoute != 0,
		NoRoute:   b&transmitOptionNoRoute != 0,
		Explore:   b&transmitOptionExplore != 0,
	}
}

// TransmitStatus is the outcome reported by a SendDataCallback.
type TransmitStatus byte

const (
	TransmitStatusOk       TransmitStatus = 0x00
	TransmitStatusNoRoute  TransmitStatus = 0x01
	TransmitStatusNoAck    TransmitStatus = 0x02
	TransmitStatusFail     TransmitStatus = 0x03
	TransmitStatusNotIdle  TransmitStatus = 0x04
	TransmitStatusNoRouteR TransmitStatus = 0x05
)

func (s TransmitStatus) String() string {
	switch s {
	case TransmitStatusOk:
		return "Ok"
	case TransmitStatusNoRoute:
		return "NoRoute"
	case TransmitStatusNoAck:
		return "NoAck"
	case TransmitStatusFail:
		return "Fail"
	case TransmitStatusNotIdle:
		return "NotIdle"
	default:
		return fmt.Sprintf("TransmitStatus(0x%02X)", byte(s))
	}
}

// TransmitReport carries the diagnostic fields the controller attaches to
// a SendDataCallback when the transmit status is not NoAck. The fields
// beyond transmit ticks are treated as opaque raw data.
type TransmitReport struct {
	TransmitTicks uint16
	AckRSSI       int8
	Raw           []byte
}

func parseTransmitReport(b []byte, present bool) (TransmitReport, []byte) {
	if !present || len(b) < 2 {
		return TransmitReport{}, b
	}
	ticks := uint16(b[0])<<8 | uint16(b[1])
	rest := b[2:]
	report := TransmitReport{TransmitTicks: ticks}
	// Remaining diagnostic bytes vary by controller generation; keep them
	// as opaque raw data rather than over-specifying a layout that isn't
	// pinned down across firmware versions.
	consume := len(rest)
	if consume > 18 {
		consume = 18
	}
	report.Raw = append([]byte(nil), rest[:consume]...)
	return report, rest[consume:]
}
