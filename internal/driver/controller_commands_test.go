package driver

import (
	"context"
	"testing"
	"time"

	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/frame"
)

func respondOnTransmit(t *testing.T, transmit <-chan []byte, frames chan<- frame.RawFrame, resp frame.RawFrame) {
	t.Helper()
	go func() {
		<-transmit
		frames <- frame.ACK()
		frames <- resp
	}()
}

func TestGetControllerVersionRoundTrip(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	want := &command.GetControllerVersionResponse{LibraryType: 6, LibraryVersion: "Z-Wave 6.81.0"}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionGetControllerVersion), want.Serialize()))

	got, err := d.GetControllerVersion(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LibraryType != want.LibraryType || got.LibraryVersion != want.LibraryVersion {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestGetProtocolVersionRecordsSDKVersion(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	if _, ok := d.SDKVersion(); ok {
		t.Fatalf("expected no SDK version recorded before GetProtocolVersion")
	}

	want := &command.GetProtocolVersionResponse{SDKVersion: command.SDKVersion{Major: 7, Minor: 19, Patch: 4}}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionGetProtocolVersion), want.Serialize()))

	if _, err := d.GetProtocolVersion(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := d.SDKVersion()
	if !ok {
		t.Fatalf("expected an SDK version to be recorded")
	}
	if got != want.SDKVersion {
		t.Fatalf("unexpected recorded SDK version: %+v", got)
	}
}

func TestGetSucNodeId(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	want := &command.GetSucNodeIdResponse{NodeID: 12}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionGetSucNodeId), want.Serialize()))

	got, err := d.GetSucNodeId(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want.NodeID {
		t.Fatalf("unexpected SUC node id: %v", got)
	}
}

func TestSetSucNodeIdAcceptedRoundTrip(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	go func() {
		<-transmit // SetSucNodeIdRequest
		frames <- frame.ACK()
		frames <- frame.Data(command.CommandTypeResponse, byte(command.FunctionSetSucNodeId), (&command.SetSucNodeIdResponse{WasSet: true}).Serialize())

		time.Sleep(10 * time.Millisecond)
		cbID := byte(1) // first callback id issued by a fresh actor
		frames <- frame.Data(command.CommandTypeRequest, byte(command.FunctionSetSucNodeId), (&command.SetSucNodeIdCallback{CallbackID: cbID, Status: 0}).Serialize())
	}()

	ok, err := d.SetSucNodeId(context.Background(), 12, true, command.DefaultTransmitOptions(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected SetSucNodeId to report success")
	}
}

func TestGetSupportedSerialApiSetupCommands(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	resp := &command.SerialApiSetupResponse{
		SubCommand: command.SerialApiSetupCmdGetSupportedCommands,
		Payload:    []byte{0x80}, // bit 7 of byte 0 => sub-command 7 supported
	}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionSerialApiSetup), resp.Serialize()))

	got, err := d.GetSupportedSerialApiSetupCommands(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("unexpected supported commands: %v", got)
	}
}

func TestSetNodeIdTypeMutatesSessionStateOnSuccess(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	if d.NodeIdType() != command.NodeId8Bit {
		t.Fatalf("expected initial node id type to be 8bit")
	}

	resp := &command.SerialApiSetupResponse{
		SubCommand: command.SerialApiSetupCmdSetNodeIDType,
		Payload:    []byte{1},
	}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionSerialApiSetup), resp.Serialize()))

	if err := d.SetNodeIdType(context.Background(), command.NodeId16Bit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.NodeIdType() != command.NodeId16Bit {
		t.Fatalf("expected node id type to switch to 16bit after success")
	}
}

func TestSetNodeIdTypeLeavesSessionStateOnRejection(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	resp := &command.SerialApiSetupResponse{
		SubCommand: command.SerialApiSetupCmdSetNodeIDType,
		Payload:    []byte{0},
	}
	respondOnTransmit(t, transmit, frames, frame.Data(command.CommandTypeResponse, byte(command.FunctionSerialApiSetup), resp.Serialize()))

	if err := d.SetNodeIdType(context.Background(), command.NodeId16Bit); err == nil {
		t.Fatalf("expected an error when the controller rejects the change")
	}
	if d.NodeIdType() != command.NodeId8Bit {
		t.Fatalf("expected node id type to remain 8bit after a rejected change")
	}
}

func TestSoftReset(t *testing.T) {
	d, frames, transmit := newTestDriver(t)

	// SoftReset expects no response or callback: the machine finishes as
	// soon as the request is ACKed.
	go func() {
		<-transmit // SoftResetRequest
		frames <- frame.ACK()
	}()

	done := make(chan error, 1)
	go func() { done <- d.SoftReset(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("SoftReset did not complete")
	}
}
