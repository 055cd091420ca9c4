package statemachine

import (
	"testing"

	"github.com/zwavelink/zwave-driver/internal/command"
)

func TestResponseOnlyPath(t *testing.T) {
	m := New(command.GetControllerVersionRequest{})
	m.Start()
	if m.State() != StateWaitingForACK {
		t.Fatalf("expected WaitingForACK, got %v", m.State())
	}
	m.ACK()
	if m.State() != StateWaitingForResponse {
		t.Fatalf("expected WaitingForResponse, got %v", m.State())
	}

	resp := &command.GetControllerVersionResponse{LibraryType: 1, LibraryVersion: "Z-Wave 6.0"}
	if !m.Response(resp) {
		t.Fatalf("expected Response to be accepted")
	}
	if !m.Done() {
		t.Fatalf("expected machine to be done")
	}
	result, ok := m.Result()
	if !ok || !result.IsSuccess() {
		t.Fatalf("expected success result, got %+v", result)
	}
}

func TestNoResponseNoCallbackPath(t *testing.T) {
	m := New(command.SoftResetRequest{})
	m.Start()
	m.ACK()
	if !m.Done() {
		t.Fatalf("expected machine with no response/callback to finish on ACK")
	}
	result, _ := m.Result()
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected Success, got %v", result.Outcome)
	}
}

func TestNAKCancelsInFlightCommand(t *testing.T) {
	m := New(command.GetControllerVersionRequest{})
	m.Start()
	m.NAK()
	if !m.Done() {
		t.Fatalf("expected machine to finish on NAK")
	}
	result, _ := m.Result()
	if result.Outcome != OutcomeNAK {
		t.Fatalf("expected NAK outcome, got %v", result.Outcome)
	}
}

func TestCANCancelsInFlightCommand(t *testing.T) {
	m := New(command.GetControllerVersionRequest{})
	m.Start()
	m.CAN()
	result, _ := m.Result()
	if result.Outcome != OutcomeCAN {
		t.Fatalf("expected CAN outcome, got %v", result.Outcome)
	}
}

func TestACKTimeoutBoundary(t *testing.T) {
	m := New(command.GetControllerVersionRequest{})
	m.Start()
	d, ok := m.TimeoutDuration()
	if !ok || d != ACKTimeout {
		t.Fatalf("expected ACKTimeout duration, got %v (%v)", d, ok)
	}
	m.Timeout()
	if !m.Done() {
		t.Fatalf("expected machine to finish on ACK timeout")
	}
	result, _ := m.Result()
	if result.Outcome != OutcomeACKTimeout {
		t.Fatalf("expected ACKTimeout outcome, got %v", result.Outcome)
	}
}

func TestResponseTimeout(t *testing.T) {
	m := New(command.GetControllerVersionRequest{})
	m.Start()
	m.ACK()
	d, ok := m.TimeoutDuration()
	if !ok || d != ResponseTimeout {
		t.Fatalf("expected ResponseTimeout duration, got %v (%v)", d, ok)
	}
	m.Timeout()
	result, _ := m.Result()
	if result.Outcome != OutcomeResponseTimeout {
		t.Fatalf("expected ResponseTimeout outcome, got %v", result.Outcome)
	}
}

func TestCallbackPathAfterResponse(t *testing.T) {
	req := &command.SendDataRequest{}
	req.SetCallbackID(7)
	m := New(req)
	m.Start()
	m.ACK()
	if m.State() != StateWaitingForResponse {
		t.Fatalf("SendDataRequest expects a response before the callback, got %v", m.State())
	}

	resp := &command.SendDataResponse{WasSent: true}
	if !m.Response(resp) {
		t.Fatalf("expected the SendDataResponse to be accepted")
	}
	if m.State() != StateWaitingForCallback {
		t.Fatalf("expected WaitingForCallback after a successful response, got %v", m.State())
	}

	cbID := byte(7)
	cb := &command.SendDataCallback{CallbackID: &cbID, TransmitStatus: command.TransmitStatusOk}
	if !m.Callback(cb) {
		t.Fatalf("expected the SendDataCallback to be accepted")
	}
	result, _ := m.Result()
	if !result.IsSuccess() {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestResponseNOKShortCircuitsCallback(t *testing.T) {
	req := &command.SendDataRequest{}
	req.SetCallbackID(7)
	m := New(req)
	m.Start()
	m.ACK()

	resp := &command.SendDataResponse{WasSent: false}
	if !m.Response(resp) {
		t.Fatalf("expected the SendDataResponse to be accepted")
	}
	if !m.Done() {
		t.Fatalf("expected machine to finish immediately on a failed response")
	}
	result, _ := m.Result()
	if result.Outcome != OutcomeResponseNOK {
		t.Fatalf("expected ResponseNOK, got %v", result.Outcome)
	}
}

func TestCallbackTimeout(t *testing.T) {
	req := &command.SendDataRequest{}
	req.SetCallbackID(7)
	m := New(req)
	m.Start()
	m.ACK()
	m.Response(&command.SendDataResponse{WasSent: true})

	d, ok := m.TimeoutDuration()
	if !ok || d != CallbackTimeout {
		t.Fatalf("expected CallbackTimeout duration, got %v (%v)", d, ok)
	}
	m.Timeout()
	result, _ := m.Result()
	if result.Outcome != OutcomeCallbackTimeout {
		t.Fatalf("expected CallbackTimeout outcome, got %v", result.Outcome)
	}
}
