package command

import "fmt"

func init() {
	register(CommandTypeResponse, FunctionSendData, OriginController, parseSendDataResponse)
	register(CommandTypeRequest, FunctionSendData, OriginController, parseSendDataCallback)
}

// SendDataRequest transmits a Command-Class payload to a node. Grounded
// on original_source/serial/src/command/transport/send_data.rs.
type SendDataRequest struct {
	NodeID          NodeId
	Payload         []byte // the serialized (and possibly encapsulated) CC
	TransmitOptions TransmitOptions
	callbackID      *byte
}

func NewSendDataRequest(nodeID NodeId, payload []byte, opts TransmitOptions) *SendDataRequest {
	return &SendDataRequest{NodeID: nodeID, Payload: payload, TransmitOptions: opts}
}

func (r *SendDataRequest) CommandType() CommandType   { return CommandTypeRequest }
func (r *SendDataRequest) FunctionType() FunctionType { return FunctionSendData }
func (r *SendDataRequest) Origin() Origin             { return OriginHost }

func (r *SendDataRequest) CallbackID() (byte, bool) {
	if r.callbackID == nil {
		return 0, false
	}
	return *r.callbackID, true
}
func (r *SendDataRequest) SetCallbackID(id byte) { r.callbackID = &id }

func (r *SendDataRequest) ExpectsResponse() bool { return true }
func (r *SendDataRequest) TestResponse(resp Command) bool {
	_, ok := resp.(*SendDataResponse)
	return ok
}
func (r *SendDataRequest) ExpectsCallback() bool { return r.callbackID != nil }
func (r *SendDataRequest) TestCallback(cb Command) bool {
	sdc, ok := cb.(*SendDataCallback)
	if !ok || r.callbackID == nil || sdc.CallbackID == nil {
		return false
	}
	return *sdc.CallbackID == *r.callbackID
}
func (r *SendDataRequest) NeedsCallbackID() bool { return true }

// Serialize renders the request using 8-bit node-id encoding; this is
// only correct when the session's NodeIdType is 8-bit. Callers should use
// SerializeWithNodeIdType once the session has negotiated 16-bit
// addressing.
func (r *SendDataRequest) Serialize() []byte {
	return r.SerializeWithNodeIdType(NodeId8Bit)
}

func (r *SendDataRequest) SerializeWithNodeIdType(t NodeIdType) []byte {
	var cbID byte
	if r.callbackID != nil {
		cbID = *r.callbackID
	}
	out := append([]byte(nil), r.NodeID.Encode(t)...)
	out = append(out, byte(len(r.Payload)))
	out = append(out, r.Payload...)
	out = append(out, r.TransmitOptions.Encode())
	out = append(out, cbID)
	return out
}

// SendDataResponse acknowledges that the controller accepted the request
// for transmission (not that the node received it -- that is reported by
// SendDataCallback).
type SendDataResponse struct {
	WasSent bool
}

func (r *SendDataResponse) CommandType() CommandType   { return CommandTypeResponse }
func (r *SendDataResponse) FunctionType() FunctionType { return FunctionSendData }
func (r *SendDataResponse) Origin() Origin             { return OriginController }
func (r *SendDataResponse) IsOk() bool                 { return r.WasSent }
func (r *SendDataResponse) Serialize() []byte {
	if r.WasSent {
		return []byte{1}
	}
	return []byte{0}
}

func parseSendDataResponse(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("command: SendDataResponse: truncated payload")
	}
	return &SendDataResponse{WasSent: payload[0] != 0}, nil
}

// SendDataCallback is the asynchronous follow-up reporting whether the
// node actually received and acknowledged the transmission.
type SendDataCallback struct {
	CallbackID     *byte
	TransmitStatus TransmitStatus
	TransmitReport TransmitReport
}

func (c *SendDataCallback) CommandType() CommandType   { return CommandTypeRequest }
func (c *SendDataCallback) FunctionType() FunctionType { return FunctionSendData }
func (c *SendDataCallback) Origin() Origin             { return OriginController }
func (c *SendDataCallback) IsOk() bool                 { return c.TransmitStatus == TransmitStatusOk }
func (c *SendDataCallback) Serialize() []byte {
	var cbID byte
	if c.CallbackID != nil {
		cbID = *c.CallbackID
	}
	return []byte{cbID, byte(c.TransmitStatus)}
}

func parseSendDataCallback(payload []byte, _ *ParsingContext) (Command, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("command: SendDataCallback: truncated payload")
	}
	cbID := payload[0]
	status := TransmitStatus(payload[1])
	report, _ := parseTransmitReport(payload[2:], status != TransmitStatusNoAck)
	return &SendDataCallback{CallbackID: &cbID, TransmitStatus: status, TransmitReport: report}, nil
}
