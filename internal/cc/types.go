// Package cc implements the Command-Class encapsulation pipeline: the CC
// registry, the exemplar CC payloads (Basic, BinarySwitch,
// ManufacturerSpecific, Version), and the two encapsulation layers
// (CRC16, S0 security) that wrap them for transport inside a SendData
// request. Grounded on original_source/packages/cc/src/{commandclass,*}.
package cc

import (
	"fmt"

	"github.com/zwavelink/zwave-driver/internal/command"
)

// CommandClassID identifies a command class. Values at or above 0xF1 are
// "extended" and occupy a 16-bit wire encoding; everything below is a
// single byte.
type CommandClassID uint16

const (
	CommandClassBasic                CommandClassID = 0x20
	CommandClassBinarySwitch         CommandClassID = 0x25
	CommandClassCRC16Encapsulation   CommandClassID = 0x56
	CommandClassManufacturerSpecific CommandClassID = 0x72
	CommandClassSecurity             CommandClassID = 0x98
	CommandClassVersion              CommandClassID = 0x86
)

var ccNames = map[CommandClassID]string{
	CommandClassBasic:                "Basic",
	CommandClassBinarySwitch:         "BinarySwitch",
	CommandClassCRC16Encapsulation:   "CRC16Encapsulation",
	CommandClassManufacturerSpecific: "ManufacturerSpecific",
	CommandClassSecurity:             "Security",
	CommandClassVersion:              "Version",
}

func (id CommandClassID) String() string {
	if name, ok := ccNames[id]; ok {
		return name
	}
	return fmt.Sprintf("CommandClass(0x%04X)", uint16(id))
}

// IsExtended reports whether id is encoded as two bytes on the wire.
func (id CommandClassID) IsExtended() bool { return id >= 0xF1 }

// EndpointIndex addresses the root device (endpoint 0) or a specific
// multi-channel endpoint. Endpoint(0) is canonically Root.
type EndpointIndex struct {
	endpoint uint8
	isRoot   bool
}

var RootEndpoint = EndpointIndex{isRoot: true}

func Endpoint(index uint8) EndpointIndex {
	if index == 0 {
		return RootEndpoint
	}
	return EndpointIndex{endpoint: index}
}

func (e EndpointIndex) IsRoot() bool { return e.isRoot || e.endpoint == 0 }

func (e EndpointIndex) Index() uint8 { return e.endpoint }

func (e EndpointIndex) String() string {
	if e.IsRoot() {
		return "Root endpoint"
	}
	return fmt.Sprintf("Endpoint %d", e.endpoint)
}

// DestinationKind distinguishes how a CC is addressed outward.
type DestinationKind int

const (
	DestinationSinglecast DestinationKind = iota
	DestinationMulticast
	DestinationBroadcast
)

// Destination is the outbound addressing mode for a CC.
type Destination struct {
	Kind    DestinationKind
	NodeID  command.NodeId   // valid when Kind == DestinationSinglecast
	NodeIDs []command.NodeId // valid when Kind == DestinationMulticast
}

func Singlecast(id command.NodeId) Destination {
	return Destination{Kind: DestinationSinglecast, NodeID: id}
}

func Multicast(ids []command.NodeId) Destination {
	return Destination{Kind: DestinationMulticast, NodeIDs: ids}
}

func Broadcast() Destination {
	return Destination{Kind: DestinationBroadcast}
}

// CCAddress carries a CC's source/destination and endpoint, independent
// of the CC's own payload.
type CCAddress struct {
	SourceNodeID  command.NodeId
	Destination   Destination
	EndpointIndex EndpointIndex
}

// WithAddress pairs any CC payload with the address it was received on,
// or that it should be sent to.
type WithAddress[T any] struct {
	Address CCAddress
	CC      T
}

func Address[T any](addr CCAddress, c T) WithAddress[T] {
	return WithAddress[T]{Address: addr, CC: c}
}
