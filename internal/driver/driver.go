// Package driver implements the driver actor: the layer above the
// Serial API that owns CC parsing context, the awaiter registries,
// unsolicited-command dispatch into the value cache, and the
// high-level exec_node_command/exec_controller_command operations.
// Grounded on original_source/packages/driver/src/driver/{mod,
// exec_node_command,exec_controller_command}.rs.
package driver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zwavelink/zwave-driver/internal/cache"
	"github.com/zwavelink/zwave-driver/internal/cc"
	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/security"
	"github.com/zwavelink/zwave-driver/internal/serialapi"
)

// NodeCommandTimeout is how long exec_node_command waits for a node's CC
// response once the controller has accepted the transmission.
const NodeCommandTimeout = 10 * time.Second

// Driver owns the awaiter registries, the value cache, and the optional
// S0 security manager, and drives the Serial API actor on its behalf.
type Driver struct {
	actor *serialapi.Actor
	cache *cache.Cache
	log   *slog.Logger

	ownNodeID command.NodeId

	// sessionMu guards the two pieces of session state the controller
	// API can mutate after construction: the negotiated node-id width
	// and the last-observed SDK version.
	sessionMu  sync.Mutex
	nodeIdType command.NodeIdType
	sdkVersion *command.SDKVersion

	security *security.Manager
	awaiters *awaiterRegistry
	onReport func(nodeID command.NodeId, endpoint cc.EndpointIndex, report cc.CC)
}

// Options configures a new Driver.
type Options struct {
	Actor      *serialapi.Actor
	Cache      *cache.Cache
	OwnNodeID  command.NodeId
	NodeIdType command.NodeIdType
	Logger     *slog.Logger

	// OnReport, if set, is called with every unclaimed Report CC right
	// after its values are applied to the cache -- the hook the optional
	// TCP event feed (internal/eventfeed) subscribes through. Nil by
	// default: the driver itself has no notion of subscribers.
	OnReport func(nodeID command.NodeId, endpoint cc.EndpointIndex, report cc.CC)
}

func New(opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	c := opts.Cache
	if c == nil {
		c = cache.New()
	}
	return &Driver{
		actor:      opts.Actor,
		cache:      c,
		log:        log,
		ownNodeID:  opts.OwnNodeID,
		nodeIdType: opts.NodeIdType,
		awaiters:   newAwaiterRegistry(),
		onReport:   opts.OnReport,
	}
}

func (d *Driver) Cache() *cache.Cache { return d.cache }

// InitSecurityManagers materialises the S0 security manager from a
// configured network key. Calling it again replaces
// the manager; this is only ever expected once, at startup.
func (d *Driver) InitSecurityManagers(networkKey security.NetworkKey) {
	d.security = security.NewManager(security.ManagerOptions{OwnNodeID: d.ownNodeID, NetworkKey: networkKey})
}

func (d *Driver) parsingContext(peerNodeID command.NodeId) *cc.ParsingContext {
	return &cc.ParsingContext{
		OwnNodeID:       uint8(d.ownNodeID),
		PeerNodeID:      uint8(peerNodeID),
		SecurityManager: d.security,
	}
}

// AwaitCC registers a predicate-matched awaiter and blocks until a
// matching unsolicited CC arrives, ctx is cancelled, or timeout elapses
// (a zero timeout waits forever).
func (d *Driver) AwaitCC(ctx context.Context, predicate func(cc.WithAddress[cc.CC]) bool, timeout time.Duration) (cc.WithAddress[cc.CC], error) {
	reply := d.awaiters.Register(predicate, timeout)
	select {
	case r := <-reply:
		return r.cc, r.err
	case <-ctx.Done():
		return cc.WithAddress[cc.CC]{}, ctx.Err()
	}
}

// Run processes serialapi.Events (unsolicited commands) until ctx is
// cancelled or the events channel closes.
func (d *Driver) Run(ctx context.Context, events <-chan serialapi.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			d.HandleUnsolicited(ev.Command)
		}
	}
}

// HandleUnsolicited decodes any embedded CC from an unsolicited
// Controller-origin command, offers it to pending awaiters, and -- if
// unclaimed -- applies any Report CC's values to the cache.
func (d *Driver) HandleUnsolicited(cmd command.Command) {
	var sourceNodeID command.NodeId
	var payload []byte

	switch c := cmd.(type) {
	case *command.ApplicationCommand:
		sourceNodeID, payload = c.SourceNodeID, c.CCPayload
	case *command.BridgeApplicationCommand:
		sourceNodeID, payload = c.SourceNodeID, c.CCPayload
	default:
		return
	}

	ccID, ccCmd, rest, err := cc.DecodeHeader(payload)
	if err != nil {
		d.log.Warn("driver: failed to decode CC header", "error", err)
		return
	}
	parsed, err := cc.Parse(ccID, ccCmd, rest, d.parsingContext(sourceNodeID))
	if err != nil {
		d.log.Warn("driver: failed to parse CC", "error", err, "command_class", ccID)
		return
	}

	addressed := cc.Address(cc.CCAddress{
		SourceNodeID:  sourceNodeID,
		Destination:   cc.Singlecast(d.ownNodeID),
		EndpointIndex: cc.RootEndpoint,
	}, parsed)

	if d.awaiters.Dispatch(addressed) {
		return
	}

	if producer, ok := parsed.(cc.ValueProducer); ok {
		d.cache.ApplyReport(sourceNodeID, cc.RootEndpoint, reportCommandClass(parsed), producer.ToValues())
		if d.onReport != nil {
			d.onReport(sourceNodeID, cc.RootEndpoint, parsed)
		}
	}
}

// reportCommandClass unwraps CRC16/Security encapsulation, at any depth,
// and returns the command class of the innermost CC.
func reportCommandClass(c cc.CC) cc.CommandClassID {
	switch v := c.(type) {
	case cc.CRC16Encapsulation:
		return reportCommandClass(v.Encapsulated)
	case cc.CommandEncapsulation:
		return reportCommandClass(v.Encapsulated)
	default:
		return c.CommandClassID()
	}
}

// ExecControllerCommand runs req through the Serial API machine and
// turns any non-success outcome into a *ControllerCommandError.
func (d *Driver) ExecControllerCommand(ctx context.Context, req command.Request) (command.Command, error) {
	result, err := d.actor.ExecCommand(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.IsSuccess() {
		return nil, newControllerCommandError(result)
	}
	return result.Command, nil
}

// ExecNodeCommand drives seq to completion: send each CC the sequence
// produces as a SendData request, feed any CC response back into the
// sequence, and return the final response CC once the sequence
// finishes. Grounded on exec_node_command.rs's sequence-driving loop.
func (d *Driver) ExecNodeCommand(ctx context.Context, seq cc.Sequence, txOptions command.TransmitOptions) (cc.CC, error) {
	for {
		step, ok := seq.Next()
		if !ok {
			return nil, nil
		}

		response, err := d.execOneCC(ctx, step, txOptions)
		if err != nil {
			return nil, err
		}

		if seq.IsFinished() {
			return response, nil
		}
		if response != nil {
			seq.HandleResponse(response)
		}
	}
}

func (d *Driver) execOneCC(ctx context.Context, step cc.WithAddress[cc.CC], txOptions command.TransmitOptions) (cc.CC, error) {
	nodeID, err := singlecastTarget(step.Address.Destination)
	if err != nil {
		return nil, err
	}

	serialized := cc.Encode(step.CC)
	req := command.NewSendDataRequest(nodeID, serialized, txOptions)

	sendResult, err := d.actor.ExecCommand(ctx, req)
	if err != nil {
		return nil, err
	}
	if !sendResult.IsSuccess() {
		if cb, ok := sendResult.Command.(*command.SendDataCallback); ok && cb.TransmitStatus == command.TransmitStatusNoAck {
			return nil, &ExecNodeCommandError{NodeNoAck: true}
		}
		return nil, &ExecNodeCommandError{Controller: newControllerCommandError(sendResult)}
	}

	request, ok := step.CC.(cc.Request)
	if !ok || !request.ExpectsResponse() {
		return nil, nil
	}

	target := nodeID
	predicate := func(addressed cc.WithAddress[cc.CC]) bool {
		return addressed.Address.SourceNodeID == target && request.TestResponse(addressed.CC)
	}

	matched, err := d.AwaitCC(ctx, predicate, NodeCommandTimeout)
	if err != nil {
		if _, timedOut := err.(ErrAwaitTimeout); timedOut {
			return nil, &ExecNodeCommandError{NodeTimeout: true}
		}
		return nil, err
	}
	return matched.CC, nil
}

func singlecastTarget(dest cc.Destination) (command.NodeId, error) {
	if dest.Kind != cc.DestinationSinglecast {
		return 0, errUnsupportedDestination{}
	}
	return dest.NodeID, nil
}

type errUnsupportedDestination struct{}

func (errUnsupportedDestination) Error() string {
	return "driver: multicast/broadcast destinations are not implemented"
}
