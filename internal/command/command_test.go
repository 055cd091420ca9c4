package command

import (
	"bytes"
	"testing"
)

func TestParseNotImplementedFallback(t *testing.T) {
	ctx := &ParsingContext{NodeIdType: NodeId8Bit}
	got, err := Parse(CommandTypeRequest, FunctionType(0xEE), OriginController, []byte{1, 2, 3}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ni, ok := got.(NotImplemented)
	if !ok {
		t.Fatalf("expected NotImplemented, got %T", got)
	}
	if !bytes.Equal(ni.Serialize(), []byte{1, 2, 3}) {
		t.Fatalf("NotImplemented did not preserve raw payload: %v", ni.Serialize())
	}
}

func TestSendDataRequestRoundTrip(t *testing.T) {
	req := NewSendDataRequest(NodeId(5), []byte{0x25, 0x01, 0xFF}, DefaultTransmitOptions())
	req.SetCallbackID(7)
	wire := req.SerializeWithNodeIdType(NodeId8Bit)
	want := []byte{5, 3, 0x25, 0x01, 0xFF, 0x25, 7}
	if !bytes.Equal(wire, want) {
		t.Fatalf("SendDataRequest wire mismatch: got %v want %v", wire, want)
	}
}

func TestSendDataCallbackParse(t *testing.T) {
	ctx := &ParsingContext{NodeIdType: NodeId8Bit}
	payload := []byte{7, byte(TransmitStatusOk), 0x00, 0x0A, 0x00}
	got, err := Parse(CommandTypeRequest, FunctionSendData, OriginController, payload, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cb, ok := got.(*SendDataCallback)
	if !ok {
		t.Fatalf("expected *SendDataCallback, got %T", got)
	}
	if cb.CallbackID == nil || *cb.CallbackID != 7 {
		t.Fatalf("wrong callback id: %+v", cb)
	}
	if !cb.IsOk() {
		t.Fatalf("expected IsOk() for TransmitStatusOk")
	}
	if cb.TransmitReport.TransmitTicks != 0x000A {
		t.Fatalf("wrong transmit ticks: %+v", cb.TransmitReport)
	}
}

func TestSendDataRequestTestResponseAndCallback(t *testing.T) {
	req := NewSendDataRequest(NodeId(5), []byte{0x01}, DefaultTransmitOptions())
	req.SetCallbackID(9)

	if !req.TestResponse(&SendDataResponse{WasSent: true}) {
		t.Fatalf("expected TestResponse to accept a SendDataResponse")
	}
	if req.TestResponse(&GetControllerIdResponse{}) {
		t.Fatalf("TestResponse must reject mismatched response types")
	}

	matchID := byte(9)
	if !req.TestCallback(&SendDataCallback{CallbackID: &matchID, TransmitStatus: TransmitStatusOk}) {
		t.Fatalf("expected TestCallback to accept a matching callback id")
	}
	otherID := byte(2)
	if req.TestCallback(&SendDataCallback{CallbackID: &otherID, TransmitStatus: TransmitStatusOk}) {
		t.Fatalf("TestCallback must reject a mismatched callback id")
	}
}

func TestGetControllerVersionRoundTrip(t *testing.T) {
	ctx := &ParsingContext{NodeIdType: NodeId8Bit}
	resp := &GetControllerVersionResponse{LibraryType: 1, LibraryVersion: "Z-Wave 6.84.00"}
	wire := resp.Serialize()
	got, err := Parse(CommandTypeResponse, FunctionGetControllerVersion, OriginController, wire, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gr, ok := got.(*GetControllerVersionResponse)
	if !ok {
		t.Fatalf("expected *GetControllerVersionResponse, got %T", got)
	}
	if gr.LibraryType != 1 || gr.LibraryVersion != "Z-Wave 6.84.00" {
		t.Fatalf("round-trip mismatch: %+v", gr)
	}
}

func TestGetControllerIdRoundTrip(t *testing.T) {
	ctx := &ParsingContext{NodeIdType: NodeId8Bit}
	resp := &GetControllerIdResponse{HomeID: 0xDEADBEEF, NodeID: NodeId(1)}
	got, err := Parse(CommandTypeResponse, FunctionGetControllerId, OriginController, resp.Serialize(), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gr := got.(*GetControllerIdResponse)
	if gr.HomeID != 0xDEADBEEF || gr.NodeID != 1 {
		t.Fatalf("round-trip mismatch: %+v", gr)
	}
}

func TestSerialApiSetupSupportedCommandsDecode(t *testing.T) {
	resp := &SerialApiSetupResponse{SubCommand: SerialApiSetupCmdGetSupportedCommands, Payload: []byte{0b00000101}}
	got := resp.SupportedCommands()
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("unexpected decoded commands: %v", got)
	}
}

func TestApplicationCommandRoundTrip(t *testing.T) {
	ctx := &ParsingContext{NodeIdType: NodeId8Bit}
	ac := &ApplicationCommand{ReceiveStatus: 0x01, SourceNodeID: NodeId(3), CCPayload: []byte{0x20, 0x01, 0xFF}}
	got, err := Parse(CommandTypeRequest, FunctionApplicationCommand, OriginController, ac.Serialize(), ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gac := got.(*ApplicationCommand)
	if gac.ReceiveStatus != 0x01 || gac.SourceNodeID != 3 || !bytes.Equal(gac.CCPayload, []byte{0x20, 0x01, 0xFF}) {
		t.Fatalf("round-trip mismatch: %+v", gac)
	}
}

func TestNodeIdEncodeDecode16Bit(t *testing.T) {
	n := NodeId(300)
	wire := n.Encode(NodeId16Bit)
	got, rest, err := DecodeNodeId(wire, NodeId16Bit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != n || len(rest) != 0 {
		t.Fatalf("round-trip mismatch: got %v rest %v", got, rest)
	}
}
