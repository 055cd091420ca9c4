package serialapi

import (
	"context"
	"testing"
	"time"

	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/frame"
	"github.com/zwavelink/zwave-driver/internal/statemachine"
)

func newTestActor(t *testing.T) (*Actor, chan frame.RawFrame, chan []byte, chan Event) {
	t.Helper()
	frames := make(chan frame.RawFrame, 4)
	transmit := make(chan []byte, 4)
	events := make(chan Event, 4)
	a := New(Options{
		OwnNodeID:  1,
		NodeIdType: command.NodeId8Bit,
		Frames:     frames,
		Transmit:   transmit,
		Events:     events,
	})
	return a, frames, transmit, events
}

func TestExecCommandResponseOnlyPath(t *testing.T) {
	a, frames, transmit, _ := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	resultCh := make(chan statemachine.Result, 1)
	errCh := make(chan error, 1)
	go func() {
		r, err := a.ExecCommand(ctx, command.GetControllerVersionRequest{})
		resultCh <- r
		errCh <- err
	}()

	select {
	case <-transmit:
	case <-time.After(time.Second):
		t.Fatalf("expected the request to be transmitted")
	}

	frames <- frame.ACK()

	resp := (&command.GetControllerVersionResponse{LibraryType: 1, LibraryVersion: "Z-Wave 6.0"}).Serialize()
	frames <- frame.Data(command.CommandTypeResponse, byte(command.FunctionGetControllerVersion), resp)

	select {
	case r := <-resultCh:
		if err := <-errCh; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !r.IsSuccess() {
			t.Fatalf("expected success, got %+v", r)
		}
		cmd, ok := r.Command.(*command.GetControllerVersionResponse)
		if !ok || cmd.LibraryVersion != "Z-Wave 6.0" {
			t.Fatalf("unexpected response command: %+v", r.Command)
		}
	case <-time.After(time.Second):
		t.Fatalf("ExecCommand did not return")
	}
}

func TestExecCommandNAKFinishesImmediately(t *testing.T) {
	a, frames, transmit, _ := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	resultCh := make(chan statemachine.Result, 1)
	go func() {
		r, _ := a.ExecCommand(ctx, command.GetControllerVersionRequest{})
		resultCh <- r
	}()

	<-transmit
	frames <- frame.NAK()

	select {
	case r := <-resultCh:
		if r.Outcome != statemachine.OutcomeNAK {
			t.Fatalf("expected NAK outcome, got %v", r.Outcome)
		}
	case <-time.After(time.Second):
		t.Fatalf("ExecCommand did not return")
	}
}

func TestUnsolicitedCommandForwardedAsEvent(t *testing.T) {
	a, frames, _, events := newTestActor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	payload := (&command.GetControllerVersionResponse{LibraryType: 1, LibraryVersion: "Z-Wave 6.0"}).Serialize()
	frames <- frame.Data(command.CommandTypeResponse, byte(command.FunctionGetControllerVersion), payload)

	select {
	case ev := <-events:
		if _, ok := ev.Command.(*command.GetControllerVersionResponse); !ok {
			t.Fatalf("expected GetControllerVersionResponse, got %T", ev.Command)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an unsolicited event")
	}
}

func TestCallbackIDWrapsSkippingZero(t *testing.T) {
	a, _, _, _ := newTestActor(t)
	a.callbackID = 0xFE
	if id := a.nextCallbackID(); id != 0xFF {
		t.Fatalf("expected 0xFF, got 0x%02X", id)
	}
	if id := a.nextCallbackID(); id != 1 {
		t.Fatalf("expected wraparound to 1, got 0x%02X", id)
	}
}
