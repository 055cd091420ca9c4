// Package eventfeed defines the value-change notification broadcast to
// optional TCP subscribers: a thin wire-friendly wrapper around a decoded
// Command-Class Report, so a subscriber sees the same bytes the driver
// itself parsed off the radio. This is additive to the core driver:
// its absence changes no core-subsystem behavior.
package eventfeed

import (
	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
)

// Event is one decoded Report CC, addressed by the node/endpoint it came
// from, ready to be re-broadcast to subscribers.
type Event struct {
	NodeID   command.NodeId
	Endpoint cc.EndpointIndex
	Payload  []byte // cc.Encode(report): [cc header][serialized report]
}

// FromReport builds an Event from a freshly parsed CC addressed to a node.
func FromReport(nodeID command.NodeId, endpoint cc.EndpointIndex, report cc.CC) Event {
	return Event{NodeID: nodeID, Endpoint: endpoint, Payload: cc.Encode(report)}
}
