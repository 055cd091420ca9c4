package driver

import (
	"context"
	"fmt"

	"github.com/zwavelink/zwave-driver/internal/command"
)

// The methods in this file are typed wrappers over ExecControllerCommand:
// one per controller-level Serial API function, each building the right
// command.Request, unwrapping the *typed* response from the generic
// command.Command ExecControllerCommand returns, and applying whatever
// session-state side effect that function carries.

// unexpectedResponse reports a response that came back success but isn't
// the concrete type the wrapper expected -- a controller/firmware
// mismatch, not a transport failure.
func unexpectedResponse(fn string, got command.Command) error {
	return fmt.Errorf("driver: %s: unexpected response type %T", fn, got)
}

// GetSerialApiCapabilities reports the Serial API version, the
// controller's manufacturer/product identifiers, and its function
// support bitmask.
func (d *Driver) GetSerialApiCapabilities(ctx context.Context) (*command.GetSerialApiCapabilitiesResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetSerialApiCapabilitiesRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetSerialApiCapabilitiesResponse)
	if !ok {
		return nil, unexpectedResponse("GetSerialApiCapabilities", resp)
	}
	return r, nil
}

// GetSerialApiInitData reports the controller's init state: API version,
// capability flags, the bitmask of nodes it already knows about, and its
// chip identification.
func (d *Driver) GetSerialApiInitData(ctx context.Context) (*command.GetSerialApiInitDataResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetSerialApiInitDataRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetSerialApiInitDataResponse)
	if !ok {
		return nil, unexpectedResponse("GetSerialApiInitData", resp)
	}
	return r, nil
}

// GetControllerCapabilities reports the controller-role capability
// bitfield (SIS/SUC/primary/secondary and so on).
func (d *Driver) GetControllerCapabilities(ctx context.Context) (*command.GetControllerCapabilitiesResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetControllerCapabilitiesRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetControllerCapabilitiesResponse)
	if !ok {
		return nil, unexpectedResponse("GetControllerCapabilities", resp)
	}
	return r, nil
}

// GetControllerVersion reports the Z-Wave library type and version
// string the controller firmware identifies as.
func (d *Driver) GetControllerVersion(ctx context.Context) (*command.GetControllerVersionResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetControllerVersionRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetControllerVersionResponse)
	if !ok {
		return nil, unexpectedResponse("GetControllerVersion", resp)
	}
	return r, nil
}

// GetControllerId reports the network's home id and this controller's
// own node id.
func (d *Driver) GetControllerId(ctx context.Context) (*command.GetControllerIdResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetControllerIdRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetControllerIdResponse)
	if !ok {
		return nil, unexpectedResponse("GetControllerId", resp)
	}
	return r, nil
}

// GetProtocolVersion reports the Z-Wave protocol's SDK version triple.
// As a side effect, the reported version is recorded into session state
// and can be read back with SDKVersion.
func (d *Driver) GetProtocolVersion(ctx context.Context) (*command.GetProtocolVersionResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetProtocolVersionRequest{})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetProtocolVersionResponse)
	if !ok {
		return nil, unexpectedResponse("GetProtocolVersion", resp)
	}
	v := r.SDKVersion
	d.sessionMu.Lock()
	d.sdkVersion = &v
	d.sessionMu.Unlock()
	return r, nil
}

// SDKVersion returns the SDK version last recorded by GetProtocolVersion,
// and false if GetProtocolVersion has never succeeded this session.
func (d *Driver) SDKVersion() (command.SDKVersion, bool) {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()
	if d.sdkVersion == nil {
		return command.SDKVersion{}, false
	}
	return *d.sdkVersion, true
}

// GetSucNodeId reports the node id of the network's SUC/SIS, or zero if
// none is configured.
func (d *Driver) GetSucNodeId(ctx context.Context) (command.NodeId, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetSucNodeIdRequest{})
	if err != nil {
		return 0, err
	}
	r, ok := resp.(*command.GetSucNodeIdResponse)
	if !ok {
		return 0, unexpectedResponse("GetSucNodeId", resp)
	}
	return r.NodeID, nil
}

// SetSucNodeId designates nodeID as the network's SUC, optionally
// enabling SIS capability, and reports whether the controller accepted
// it.
func (d *Driver) SetSucNodeId(ctx context.Context, nodeID command.NodeId, enableSUC bool, txOptions command.TransmitOptions, capability byte) (bool, error) {
	req := &command.SetSucNodeIdRequest{NodeID: nodeID, EnableSUC: enableSUC, TxOptions: txOptions, Capability: capability}
	resp, err := d.ExecControllerCommand(ctx, req)
	if err != nil {
		return false, err
	}
	r, ok := resp.(*command.SetSucNodeIdCallback)
	if !ok {
		return false, unexpectedResponse("SetSucNodeId", resp)
	}
	return r.IsOk(), nil
}

// GetSupportedSerialApiSetupCommands reports the set of SerialApiSetup
// sub-commands this controller firmware implements.
func (d *Driver) GetSupportedSerialApiSetupCommands(ctx context.Context) ([]byte, error) {
	resp, err := d.ExecControllerCommand(ctx, command.GetSupportedSerialApiSetupCommandsRequest())
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.SerialApiSetupResponse)
	if !ok {
		return nil, unexpectedResponse("GetSupportedSerialApiSetupCommands", resp)
	}
	return r.SupportedCommands(), nil
}

// SetNodeIdType switches the session's negotiated node-id wire width.
// On success, the new width is recorded into session state: subsequent
// command parsing and serialization encode node ids at t's width.
func (d *Driver) SetNodeIdType(ctx context.Context, t command.NodeIdType) error {
	resp, err := d.ExecControllerCommand(ctx, command.SetNodeIDTypeRequest(t))
	if err != nil {
		return err
	}
	r, ok := resp.(*command.SerialApiSetupResponse)
	if !ok {
		return unexpectedResponse("SetNodeIdType", resp)
	}
	if len(r.Payload) < 1 || r.Payload[0] == 0 {
		return fmt.Errorf("driver: SetNodeIdType: controller rejected the change")
	}
	d.sessionMu.Lock()
	d.nodeIdType = t
	d.sessionMu.Unlock()
	return nil
}

// NodeIdType returns the session's current negotiated node-id width.
func (d *Driver) NodeIdType() command.NodeIdType {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()
	return d.nodeIdType
}

// GetNodeProtocolInfo reports a node's protocol capability bytes as
// known to the controller's local node table.
func (d *Driver) GetNodeProtocolInfo(ctx context.Context, nodeID command.NodeId) (*command.GetNodeProtocolInfoResponse, error) {
	resp, err := d.ExecControllerCommand(ctx, &command.GetNodeProtocolInfoRequest{NodeID: nodeID})
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*command.GetNodeProtocolInfoResponse)
	if !ok {
		return nil, unexpectedResponse("GetNodeProtocolInfo", resp)
	}
	return r, nil
}

// SoftReset tells the controller to reset itself. The Serial API
// machine completes as soon as the request is ACKed; the controller
// does not send a response or callback for this function.
func (d *Driver) SoftReset(ctx context.Context) error {
	_, err := d.ExecControllerCommand(ctx, command.SoftResetRequest{})
	return err
}
