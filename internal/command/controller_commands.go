package command

import "fmt"

func init() {
	register(CommandTypeResponse, FunctionGetControllerVersion, OriginController, parseGetControllerVersionResponse)
	register(CommandTypeResponse, FunctionGetControllerId, OriginController, parseGetControllerIdResponse)
	register(CommandTypeResponse, FunctionGetProtocolVersion, OriginController, parseGetProtocolVersionResponse)
	register(CommandTypeResponse, FunctionGetSucNodeId, OriginController, parseGetSucNodeIdResponse)
	register(CommandTypeResponse, FunctionSetSucNodeId, OriginController, parseSetSucNodeIdResponse)
	register(CommandTypeRequest, FunctionSetSucNodeId, OriginController, parseSetSucNodeIdCallback)
	register(CommandTypeResponse, FunctionGetSerialApiCapabilities, OriginController, parseGetSerialApiCapabilitiesResponse)
	register(CommandTypeResponse, FunctionGetControllerCapabilities, OriginController, parseGetControllerCapabilitiesResponse)
	register(CommandTypeResponse, FunctionGetSerialApiInitData, OriginController, parseGetSerialApiInitDataResponse)
	register(CommandTypeResponse, FunctionGetNodeProtocolInfo, OriginController, parseGetNodeProtocolInfoResponse)
	register(CommandTypeResponse, FunctionSerialApiSetup, OriginController, parseSerialApiSetupResponse)
	register(CommandTypeRequest, FunctionSoftReset, OriginController, parseSoftResetEcho)
	register(CommandTypeRequest, FunctionApplicationCommand, OriginController, parseApplicationCommand)
	register(CommandTypeRequest, FunctionBridgeApplicationCommand, OriginController, parseBridgeApplicationCommand)
}

// -- GetControllerVersion ---------------------------------------------------

type GetControllerVersionRequest struct{}

func (GetControllerVersionRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetControllerVersionRequest) FunctionType() FunctionType { return FunctionGetControllerVersion }
func (GetControllerVersionRequest) Origin() Origin             { return OriginHost }
func (GetControllerVersionRequest) Serialize() []byte          { return nil }
func (GetControllerVersionRequest) ExpectsResponse() bool      { return true }
func (GetControllerVersionRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetControllerVersionResponse)
	return ok
}
func (GetControllerVersionRequest) ExpectsCallback() bool         { return false }
func (GetControllerVersionRequest) TestCallback(Command) bool     { return false }
func (GetControllerVersionRequest) NeedsCallbackID() bool         { return false }
func (GetControllerVersionRequest) SetCallbackID(byte)            {}

type GetControllerVersionResponse struct {
	LibraryType    byte
	LibraryVersion string
}

func (r *GetControllerVersionResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetControllerVersionResponse) FunctionType() FunctionType { return FunctionGetControllerVersion }
func (r *GetControllerVersionResponse) Origin() Origin             { return OriginController }
func (r *GetControllerVersionResponse) Serialize() []byte {
	out := append([]byte{}, []byte(r.LibraryVersion)...)
	out = append(out, 0)
	return append(out, r.LibraryType)
}

func parseGetControllerVersionResponse(payload []byte, _ *ParsingContext) (Command, error) {
	nul := -1
	for i, b := range payload {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul < 0 || nul+1 >= len(payload) {
		return nil, fmt.Errorf("command: GetControllerVersionResponse: malformed payload")
	}
	return &GetControllerVersionResponse{LibraryVersion: string(payload[:nul]), LibraryType: payload[nul+1]}, nil
}

// -- GetControllerId ---------------------------------------------------------

type GetControllerIdRequest struct{}

func (GetControllerIdRequest) CommandType() CommandType       { return CommandTypeRequest }
func (GetControllerIdRequest) FunctionType() FunctionType     { return FunctionGetControllerId }
func (GetControllerIdRequest) Origin() Origin                 { return OriginHost }
func (GetControllerIdRequest) Serialize() []byte              { return nil }
func (GetControllerIdRequest) ExpectsResponse() bool          { return true }
func (GetControllerIdRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetControllerIdResponse)
	return ok
}
func (GetControllerIdRequest) ExpectsCallback() bool     { return false }
func (GetControllerIdRequest) TestCallback(Command) bool { return false }
func (GetControllerIdRequest) NeedsCallbackID() bool     { return false }
func (GetControllerIdRequest) SetCallbackID(byte)        {}

type GetControllerIdResponse struct {
	HomeID uint32
	NodeID NodeId
}

func (r *GetControllerIdResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetControllerIdResponse) FunctionType() FunctionType { return FunctionGetControllerId }
func (r *GetControllerIdResponse) Origin() Origin             { return OriginController }
func (r *GetControllerIdResponse) Serialize() []byte {
	h := r.HomeID
	return []byte{byte(h >> 24), byte(h >> 16), byte(h >> 8), byte(h), byte(r.NodeID)}
}

func parseGetControllerIdResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 5 {
		return nil, fmt.Errorf("command: GetControllerIdResponse: truncated payload")
	}
	home := uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
	return &GetControllerIdResponse{HomeID: home, NodeID: NodeId(payload[4])}, nil
}

// -- GetProtocolVersion -------------------------------------------------------

type GetProtocolVersionRequest struct{}

func (GetProtocolVersionRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetProtocolVersionRequest) FunctionType() FunctionType { return FunctionGetProtocolVersion }
func (GetProtocolVersionRequest) Origin() Origin             { return OriginHost }
func (GetProtocolVersionRequest) Serialize() []byte         { return nil }
func (GetProtocolVersionRequest) ExpectsResponse() bool      { return true }
func (GetProtocolVersionRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetProtocolVersionResponse)
	return ok
}
func (GetProtocolVersionRequest) ExpectsCallback() bool     { return false }
func (GetProtocolVersionRequest) TestCallback(Command) bool { return false }
func (GetProtocolVersionRequest) NeedsCallbackID() bool     { return false }
func (GetProtocolVersionRequest) SetCallbackID(byte)        {}

// SDKVersion is the triple reported in GetProtocolVersionResponse; the
// driver actor records it into session state as a side effect.
type SDKVersion struct {
	Major, Minor, Patch byte
}

type GetProtocolVersionResponse struct {
	SDKVersion SDKVersion
}

func (r *GetProtocolVersionResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetProtocolVersionResponse) FunctionType() FunctionType { return FunctionGetProtocolVersion }
func (r *GetProtocolVersionResponse) Origin() Origin             { return OriginController }
func (r *GetProtocolVersionResponse) Serialize() []byte {
	return []byte{0, r.SDKVersion.Major, r.SDKVersion.Minor, r.SDKVersion.Patch}
}

func parseGetProtocolVersionResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("command: GetProtocolVersionResponse: truncated payload")
	}
	return &GetProtocolVersionResponse{SDKVersion: SDKVersion{Major: payload[1], Minor: payload[2], Patch: payload[3]}}, nil
}

// -- GetSucNodeId / SetSucNodeId ----------------------------------------------

type GetSucNodeIdRequest struct{}

func (GetSucNodeIdRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetSucNodeIdRequest) FunctionType() FunctionType { return FunctionGetSucNodeId }
func (GetSucNodeIdRequest) Origin() Origin             { return OriginHost }
func (GetSucNodeIdRequest) Serialize() []byte          { return nil }
func (GetSucNodeIdRequest) ExpectsResponse() bool      { return true }
func (GetSucNodeIdRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetSucNodeIdResponse)
	return ok
}
func (GetSucNodeIdRequest) ExpectsCallback() bool     { return false }
func (GetSucNodeIdRequest) TestCallback(Command) bool { return false }
func (GetSucNodeIdRequest) NeedsCallbackID() bool     { return false }
func (GetSucNodeIdRequest) SetCallbackID(byte)        {}

type GetSucNodeIdResponse struct {
	NodeID NodeId
}

func (r *GetSucNodeIdResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetSucNodeIdResponse) FunctionType() FunctionType { return FunctionGetSucNodeId }
func (r *GetSucNodeIdResponse) Origin() Origin             { return OriginController }
func (r *GetSucNodeIdResponse) Serialize() []byte          { return []byte{byte(r.NodeID)} }

func parseGetSucNodeIdResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: GetSucNodeIdResponse: truncated payload")
	}
	return &GetSucNodeIdResponse{NodeID: NodeId(payload[0])}, nil
}

type SetSucNodeIdRequest struct {
	NodeID     NodeId
	EnableSUC  bool
	TxOptions  TransmitOptions
	Capability byte
	callbackID *byte
}

func (r *SetSucNodeIdRequest) CommandType() CommandType   { return CommandTypeRequest }
func (r *SetSucNodeIdRequest) FunctionType() FunctionType { return FunctionSetSucNodeId }
func (r *SetSucNodeIdRequest) Origin() Origin             { return OriginHost }
func (r *SetSucNodeIdRequest) Serialize() []byte {
	var cbID byte
	if r.callbackID != nil {
		cbID = *r.callbackID
	}
	enable := byte(0)
	if r.EnableSUC {
		enable = 1
	}
	return []byte{byte(r.NodeID), enable, r.TxOptions.Encode(), r.Capability, cbID}
}
func (r *SetSucNodeIdRequest) CallbackID() (byte, bool) {
	if r.callbackID == nil {
		return 0, false
	}
	return *r.callbackID, true
}
func (r *SetSucNodeIdRequest) SetCallbackID(id byte) { r.callbackID = &id }
func (r *SetSucNodeIdRequest) ExpectsResponse() bool { return true }
func (r *SetSucNodeIdRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*SetSucNodeIdResponse)
	return ok
}
func (r *SetSucNodeIdRequest) ExpectsCallback() bool { return true }
func (r *SetSucNodeIdRequest) TestCallback(cb Command) bool {
	c, ok := cb.(*SetSucNodeIdCallback)
	return ok && r.callbackID != nil && c.CallbackID == *r.callbackID
}
func (r *SetSucNodeIdRequest) NeedsCallbackID() bool { return true }

type SetSucNodeIdResponse struct{ WasSet bool }

func (r *SetSucNodeIdResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *SetSucNodeIdResponse) FunctionType() FunctionType { return FunctionSetSucNodeId }
func (r *SetSucNodeIdResponse) Origin() Origin             { return OriginController }
func (r *SetSucNodeIdResponse) IsOk() bool                 { return r.WasSet }
func (r *SetSucNodeIdResponse) Serialize() []byte {
	if r.WasSet {
		return []byte{1}
	}
	return []byte{0}
}

func parseSetSucNodeIdResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: SetSucNodeIdResponse: truncated payload")
	}
	return &SetSucNodeIdResponse{WasSet: payload[0] != 0}, nil
}

type SetSucNodeIdCallback struct {
	CallbackID byte
	Status     byte
}

func (c *SetSucNodeIdCallback) CommandType() CommandType   { return CommandTypeRequest }
func (c *SetSucNodeIdCallback) FunctionType() FunctionType { return FunctionSetSucNodeId }
func (c *SetSucNodeIdCallback) Origin() Origin             { return OriginController }
func (c *SetSucNodeIdCallback) IsOk() bool                 { return c.Status == 0 }
func (c *SetSucNodeIdCallback) Serialize() []byte          { return []byte{c.CallbackID, c.Status} }

func parseSetSucNodeIdCallback(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("command: SetSucNodeIdCallback: truncated payload")
	}
	return &SetSucNodeIdCallback{CallbackID: payload[0], Status: payload[1]}, nil
}

// -- GetSerialApiCapabilities --------------------------------------------------

type GetSerialApiCapabilitiesRequest struct{}

func (GetSerialApiCapabilitiesRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetSerialApiCapabilitiesRequest) FunctionType() FunctionType { return FunctionGetSerialApiCapabilities }
func (GetSerialApiCapabilitiesRequest) Origin() Origin             { return OriginHost }
func (GetSerialApiCapabilitiesRequest) Serialize() []byte          { return nil }
func (GetSerialApiCapabilitiesRequest) ExpectsResponse() bool      { return true }
func (GetSerialApiCapabilitiesRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetSerialApiCapabilitiesResponse)
	return ok
}
func (GetSerialApiCapabilitiesRequest) ExpectsCallback() bool     { return false }
func (GetSerialApiCapabilitiesRequest) TestCallback(Command) bool { return false }
func (GetSerialApiCapabilitiesRequest) NeedsCallbackID() bool     { return false }
func (GetSerialApiCapabilitiesRequest) SetCallbackID(byte)        {}

type GetSerialApiCapabilitiesResponse struct {
	AppVersion          byte
	AppRevision         byte
	ManufacturerID      uint16
	ProductType         uint16
	ProductID           uint16
	SupportedFunctions  []byte // bitmask, opaque
}

func (r *GetSerialApiCapabilitiesResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetSerialApiCapabilitiesResponse) FunctionType() FunctionType { return FunctionGetSerialApiCapabilities }
func (r *GetSerialApiCapabilitiesResponse) Origin() Origin             { return OriginController }
func (r *GetSerialApiCapabilitiesResponse) Serialize() []byte {
	out := []byte{
		r.AppVersion, r.AppRevision,
		byte(r.ManufacturerID >> 8), byte(r.ManufacturerID),
		byte(r.ProductType >> 8), byte(r.ProductType),
		byte(r.ProductID >> 8), byte(r.ProductID),
	}
	return append(out, r.SupportedFunctions...)
}

func parseGetSerialApiCapabilitiesResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("command: GetSerialApiCapabilitiesResponse: truncated payload")
	}
	return &GetSerialApiCapabilitiesResponse{
		AppVersion:         payload[0],
		AppRevision:        payload[1],
		ManufacturerID:     uint16(payload[2])<<8 | uint16(payload[3]),
		ProductType:        uint16(payload[4])<<8 | uint16(payload[5]),
		ProductID:          uint16(payload[6])<<8 | uint16(payload[7]),
		SupportedFunctions: append([]byte(nil), payload[8:]...),
	}, nil
}

// -- GetControllerCapabilities --------------------------------------------------

type GetControllerCapabilitiesRequest struct{}

func (GetControllerCapabilitiesRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetControllerCapabilitiesRequest) FunctionType() FunctionType { return FunctionGetControllerCapabilities }
func (GetControllerCapabilitiesRequest) Origin() Origin             { return OriginHost }
func (GetControllerCapabilitiesRequest) Serialize() []byte          { return nil }
func (GetControllerCapabilitiesRequest) ExpectsResponse() bool      { return true }
func (GetControllerCapabilitiesRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetControllerCapabilitiesResponse)
	return ok
}
func (GetControllerCapabilitiesRequest) ExpectsCallback() bool     { return false }
func (GetControllerCapabilitiesRequest) TestCallback(Command) bool { return false }
func (GetControllerCapabilitiesRequest) NeedsCallbackID() bool     { return false }
func (GetControllerCapabilitiesRequest) SetCallbackID(byte)        {}

type GetControllerCapabilitiesResponse struct{ Capabilities byte }

func (r *GetControllerCapabilitiesResponse) CommandType() CommandType { return CommandTypeResponse }
func (r *GetControllerCapabilitiesResponse) FunctionType() FunctionType {
	return FunctionGetControllerCapabilities
}
func (r *GetControllerCapabilitiesResponse) Origin() Origin    { return OriginController }
func (r *GetControllerCapabilitiesResponse) Serialize() []byte { return []byte{r.Capabilities} }

func parseGetControllerCapabilitiesResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: GetControllerCapabilitiesResponse: truncated payload")
	}
	return &GetControllerCapabilitiesResponse{Capabilities: payload[0]}, nil
}

// -- GetSerialApiInitData --------------------------------------------------------

type GetSerialApiInitDataRequest struct{}

func (GetSerialApiInitDataRequest) CommandType() CommandType   { return CommandTypeRequest }
func (GetSerialApiInitDataRequest) FunctionType() FunctionType { return FunctionGetSerialApiInitData }
func (GetSerialApiInitDataRequest) Origin() Origin             { return OriginHost }
func (GetSerialApiInitDataRequest) Serialize() []byte          { return nil }
func (GetSerialApiInitDataRequest) ExpectsResponse() bool      { return true }
func (GetSerialApiInitDataRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetSerialApiInitDataResponse)
	return ok
}
func (GetSerialApiInitDataRequest) ExpectsCallback() bool     { return false }
func (GetSerialApiInitDataRequest) TestCallback(Command) bool { return false }
func (GetSerialApiInitDataRequest) NeedsCallbackID() bool     { return false }
func (GetSerialApiInitDataRequest) SetCallbackID(byte)        {}

type GetSerialApiInitDataResponse struct {
	Version      byte
	Capabilities byte
	NodeBitmask  []byte
	ChipType     byte
	ChipVersion  byte
}

func (r *GetSerialApiInitDataResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetSerialApiInitDataResponse) FunctionType() FunctionType { return FunctionGetSerialApiInitData }
func (r *GetSerialApiInitDataResponse) Origin() Origin             { return OriginController }
func (r *GetSerialApiInitDataResponse) Serialize() []byte {
	out := []byte{r.Version, r.Capabilities, byte(len(r.NodeBitmask))}
	out = append(out, r.NodeBitmask...)
	return append(out, r.ChipType, r.ChipVersion)
}

func parseGetSerialApiInitDataResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 3 {
		return nil, fmt.Errorf("command: GetSerialApiInitDataResponse: truncated payload")
	}
	bitmaskLen := int(payload[2])
	if len(payload) < 3+bitmaskLen+2 {
		return nil, fmt.Errorf("command: GetSerialApiInitDataResponse: truncated bitmask")
	}
	bitmask := payload[3 : 3+bitmaskLen]
	rest := payload[3+bitmaskLen:]
	return &GetSerialApiInitDataResponse{
		Version:      payload[0],
		Capabilities: payload[1],
		NodeBitmask:  append([]byte(nil), bitmask...),
		ChipType:     rest[0],
		ChipVersion:  rest[1],
	}, nil
}

// -- GetNodeProtocolInfo ---------------------------------------------------------

type GetNodeProtocolInfoRequest struct{ NodeID NodeId }

func (r *GetNodeProtocolInfoRequest) CommandType() CommandType   { return CommandTypeRequest }
func (r *GetNodeProtocolInfoRequest) FunctionType() FunctionType { return FunctionGetNodeProtocolInfo }
func (r *GetNodeProtocolInfoRequest) Origin() Origin             { return OriginHost }
func (r *GetNodeProtocolInfoRequest) Serialize() []byte          { return []byte{byte(r.NodeID)} }
func (r *GetNodeProtocolInfoRequest) ExpectsResponse() bool      { return true }
func (r *GetNodeProtocolInfoRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*GetNodeProtocolInfoResponse)
	return ok
}
func (r *GetNodeProtocolInfoRequest) ExpectsCallback() bool     { return false }
func (r *GetNodeProtocolInfoRequest) TestCallback(Command) bool { return false }
func (r *GetNodeProtocolInfoRequest) NeedsCallbackID() bool     { return false }
func (r *GetNodeProtocolInfoRequest) SetCallbackID(byte)        {}

type GetNodeProtocolInfoResponse struct {
	Capability []byte
}

func (r *GetNodeProtocolInfoResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *GetNodeProtocolInfoResponse) FunctionType() FunctionType { return FunctionGetNodeProtocolInfo }
func (r *GetNodeProtocolInfoResponse) Origin() Origin             { return OriginController }
func (r *GetNodeProtocolInfoResponse) Serialize() []byte          { return append([]byte(nil), r.Capability...) }

func parseGetNodeProtocolInfoResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 3 {
		return nil, fmt.Errorf("command: GetNodeProtocolInfoResponse: truncated payload")
	}
	return &GetNodeProtocolInfoResponse{Capability: append([]byte(nil), payload...)}, nil
}

// -- SerialApiSetup ---------------------------------------------------------------

const (
	SerialApiSetupCmdGetSupportedCommands byte = 0x02
	SerialApiSetupCmdSetNodeIDType        byte = 0x03
)

type SerialApiSetupRequest struct {
	SubCommand byte
	Payload    []byte
}

func (r *SerialApiSetupRequest) CommandType() CommandType   { return CommandTypeRequest }
func (r *SerialApiSetupRequest) FunctionType() FunctionType { return FunctionSerialApiSetup }
func (r *SerialApiSetupRequest) Origin() Origin             { return OriginHost }
func (r *SerialApiSetupRequest) Serialize() []byte {
	return append([]byte{r.SubCommand}, r.Payload...)
}
func (r *SerialApiSetupRequest) ExpectsResponse() bool { return true }
func (r *SerialApiSetupRequest) TestResponse(resp Command) bool {
	sr, ok := resp.(*SerialApiSetupResponse)
	return ok && sr.SubCommand == r.SubCommand
}
func (r *SerialApiSetupRequest) ExpectsCallback() bool     { return false }
func (r *SerialApiSetupRequest) TestCallback(Command) bool { return false }
func (r *SerialApiSetupRequest) NeedsCallbackID() bool     { return false }
func (r *SerialApiSetupRequest) SetCallbackID(byte)        {}

func GetSupportedSerialApiSetupCommandsRequest() *SerialApiSetupRequest {
	return &SerialApiSetupRequest{SubCommand: SerialApiSetupCmdGetSupportedCommands}
}

func SetNodeIDTypeRequest(t NodeIdType) *SerialApiSetupRequest {
	var v byte
	if t == NodeId16Bit {
		v = 1
	}
	return &SerialApiSetupRequest{SubCommand: SerialApiSetupCmdSetNodeIDType, Payload: []byte{v}}
}

type SerialApiSetupResponse struct {
	SubCommand byte
	Payload    []byte
}

func (r *SerialApiSetupResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *SerialApiSetupResponse) FunctionType() FunctionType { return FunctionSerialApiSetup }
func (r *SerialApiSetupResponse) Origin() Origin             { return OriginController }
func (r *SerialApiSetupResponse) Serialize() []byte {
	return append([]byte{r.SubCommand}, r.Payload...)
}

// SupportedCommands decodes the payload of a GetSupportedCommands response
// into the set of sub-command bytes the controller supports.
func (r *SerialApiSetupResponse) SupportedCommands() []byte {
	if r.SubCommand != SerialApiSetupCmdGetSupportedCommands {
		return nil
	}
	var commands []byte
	for byteIdx, b := range r.Payload {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				commands = append(commands, byte(byteIdx*8+bit))
			}
		}
	}
	return commands
}

func parseSerialApiSetupResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: SerialApiSetupResponse: truncated payload")
	}
	return &SerialApiSetupResponse{SubCommand: payload[0], Payload: append([]byte(nil), payload[1:]...)}, nil
}

// -- SoftReset ---------------------------------------------------------------

type SoftResetRequest struct{}

func (SoftResetRequest) CommandType() CommandType       { return CommandTypeRequest }
func (SoftResetRequest) FunctionType() FunctionType     { return FunctionSoftReset }
func (SoftResetRequest) Origin() Origin                 { return OriginHost }
func (SoftResetRequest) Serialize() []byte              { return nil }
func (SoftResetRequest) ExpectsResponse() bool          { return false }
func (SoftResetRequest) TestResponse(Command) bool      { return false }
func (SoftResetRequest) ExpectsCallback() bool          { return false }
func (SoftResetRequest) TestCallback(Command) bool      { return false }
func (SoftResetRequest) NeedsCallbackID() bool          { return false }
func (SoftResetRequest) SetCallbackID(byte)             {}

// parseSoftResetEcho handles the degenerate case where a controller echoes
// the SoftReset function type back as a Request; not expected in practice
// but keeps the registry total over the function/command-type space used
// by tests.
func parseSoftResetEcho(payload []byte, _ *ParsingContext) (Command, error) {
	return NotImplemented{CmdType: CommandTypeRequest, FnType: FunctionSoftReset, Orig: OriginController, Raw: payload}, nil
}

// -- ApplicationCommand / BridgeApplicationCommand ---------------------------

// ApplicationCommand is an unsolicited Request from the controller
// carrying a CC addressed to the host: an incoming application-layer
// message from a node (e.g. a Report). The CC payload itself is parsed by
// the cc package, keyed off the embedded source node id.
type ApplicationCommand struct {
	ReceiveStatus byte
	SourceNodeID  NodeId
	CCPayload     []byte
}

func (c *ApplicationCommand) CommandType() CommandType   { return CommandTypeRequest }
func (c *ApplicationCommand) FunctionType() FunctionType { return FunctionApplicationCommand }
func (c *ApplicationCommand) Origin() Origin             { return OriginController }
func (c *ApplicationCommand) Serialize() []byte {
	out := []byte{c.ReceiveStatus, byte(c.SourceNodeID), byte(len(c.CCPayload))}
	return append(out, c.CCPayload...)
}

func parseApplicationCommand(payload []byte, ctx *ParsingContext) (Command, error) {
	if len(payload) < 3 {
		return nil, fmt.Errorf("command: ApplicationCommand: truncated payload")
	}
	nodeID, rest, err := DecodeNodeId(payload[1:], ctx.NodeIdType)
	if err != nil {
		return nil, fmt.Errorf("command: ApplicationCommand: %w", err)
	}
	if len(rest) < 1 {
		return nil, fmt.Errorf("command: ApplicationCommand: truncated cc length")
	}
	ccLen := int(rest[0])
	if len(rest) < 1+ccLen {
		return nil, fmt.Errorf("command: ApplicationCommand: truncated cc payload")
	}
	return &ApplicationCommand{
		ReceiveStatus: payload[0],
		SourceNodeID:  nodeID,
		CCPayload:     append([]byte(nil), rest[1:1+ccLen]...),
	}, nil
}

// BridgeApplicationCommand is the bridge-controller variant of
// ApplicationCommand, additionally naming which of the bridge's virtual
// nodes received the message.
type BridgeApplicationCommand struct {
	ReceiveStatus     byte
	DestinationNodeID NodeId
	SourceNodeID      NodeId
	CCPayload         []byte
}

func (c *BridgeApplicationCommand) CommandType() CommandType   { return CommandTypeRequest }
func (c *BridgeApplicationCommand) FunctionType() FunctionType { return FunctionBridgeApplicationCommand }
func (c *BridgeApplicationCommand) Origin() Origin             { return OriginController }
func (c *BridgeApplicationCommand) Serialize() []byte {
	out := []byte{c.ReceiveStatus, byte(c.DestinationNodeID), byte(c.SourceNodeID), byte(len(c.CCPayload))}
	return append(out, c.CCPayload...)
}

func parseBridgeApplicationCommand(payload []byte, ctx *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: BridgeApplicationCommand: truncated payload")
	}
	destID, rest, err := DecodeNodeId(payload[1:], ctx.NodeIdType)
	if err != nil {
		return nil, fmt.Errorf("command: BridgeApplicationCommand: %w", err)
	}
	srcID, rest, err := DecodeNodeId(rest, ctx.NodeIdType)
	if err != nil {
		return nil, fmt.Errorf("command: BridgeApplicationCommand: %w", err)
	}
	if len(rest) < 1 {
		return nil, fmt.Errorf("command: BridgeApplicationCommand: truncated cc length")
	}
	ccLen := int(rest[0])
	if len(rest) < 1+ccLen {
		return nil, fmt.Errorf("command: BridgeApplicationCommand: truncated cc payload")
	}
	return &BridgeApplicationCommand{
		ReceiveStatus:     payload[0],
		DestinationNodeID: destID,
		SourceNodeID:      srcID,
		CCPayload:         append([]byte(nil), rest[1:1+ccLen]...),
	}, nil
}
