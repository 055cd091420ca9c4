// Package statemachine implements the Serial-API command state machine:
// a single in-flight request is driven from Initial through ACK,
// Response and Callback stages to a terminal Result. Grounded on
// original_source/packages/driver/src/serial_api/serial_api_machine.rs,
// reimplemented as explicit Go types and a switch instead of a
// declarative macro -- none of the example repos ships a generic FSM
// framework, so this is a direct, deliberate de-macro-ification rather
// than a missing dependency.
package statemachine

import (
	"time"

	"github.com/zwavelink/zwave-driver/internal/command"
)

// Default timeouts for the Serial API transport layer.
const (
	ACKTimeout      = 1600 * time.Millisecond
	ResponseTimeout = 10 * time.Second
	CallbackTimeout = 30 * time.Second
)

// State names the machine's current stage.
type State int

const (
	StateInitial State = iota
	StateWaitingForACK
	StateWaitingForResponse
	StateWaitingForCallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateWaitingForACK:
		return "WaitingForACK"
	case StateWaitingForResponse:
		return "WaitingForResponse"
	case StateWaitingForCallback:
		return "WaitingForCallback"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Outcome classifies how a machine reached StateDone.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeACKTimeout
	OutcomeCAN
	OutcomeNAK
	OutcomeResponseTimeout
	OutcomeResponseNOK
	OutcomeCallbackTimeout
	OutcomeCallbackNOK
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeACKTimeout:
		return "ACKTimeout"
	case OutcomeCAN:
		return "CAN"
	case OutcomeNAK:
		return "NAK"
	case OutcomeResponseTimeout:
		return "ResponseTimeout"
	case OutcomeResponseNOK:
		return "ResponseNOK"
	case OutcomeCallbackTimeout:
		return "CallbackTimeout"
	case OutcomeCallbackNOK:
		return "CallbackNOK"
	default:
		return "Unknown"
	}
}

// Result is the terminal value of a finished machine.
type Result struct {
	Outcome Outcome
	Command command.Command // the response or callback command, if any
}

func (r Result) IsSuccess() bool { return r.Outcome == OutcomeSuccess }

// Machine drives a single Serial-API request from submission to a
// terminal Result. It is not safe for concurrent use; the serial-API
// actor owns exactly one at a time.
type Machine struct {
	state   State
	request command.Request
	result  *Result
}

// New constructs a machine in StateInitial for the given outbound
// request. req may be nil only for tests that drive transitions
// directly without a real request payload.
func New(req command.Request) *Machine {
	return &Machine{state: StateInitial, request: req}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Done() bool { return m.state == StateDone }

// Result returns the terminal result, or (Result{}, false) if the
// machine has not reached StateDone.
func (m *Machine) Result() (Result, bool) {
	if m.result == nil {
		return Result{}, false
	}
	return *m.result, true
}

// TimeoutDuration returns how long the machine should wait in its
// current state before a Timeout input is synthesized, and whether a
// timeout applies at all (it does not in Initial or Done).
func (m *Machine) TimeoutDuration() (time.Duration, bool) {
	switch m.state {
	case StateWaitingForACK:
		return ACKTimeout, true
	case StateWaitingForResponse:
		return ResponseTimeout, true
	case StateWaitingForCallback:
		return CallbackTimeout, true
	default:
		return 0, false
	}
}

func (m *Machine) finish(outcome Outcome, cmd command.Command) {
	m.state = StateDone
	m.result = &Result{Outcome: outcome, Command: cmd}
}

// Start transitions Initial -> WaitingForACK. It is a programming error
// to call this more than once.
func (m *Machine) Start() {
	if m.state != StateInitial {
		panic("statemachine: Start called outside StateInitial")
	}
	m.state = StateWaitingForACK
}

// ACK feeds a link-layer ACK. Only valid in WaitingForACK.
func (m *Machine) ACK() {
	if m.state != StateWaitingForACK {
		return
	}
	switch {
	case m.request != nil && m.request.ExpectsResponse():
		m.state = StateWaitingForResponse
	case m.request != nil && m.request.ExpectsCallback():
		m.state = StateWaitingForCallback
	default:
		m.finish(OutcomeSuccess, nil)
	}
}

// NAK feeds a link-layer NAK. Only valid in WaitingForACK.
func (m *Machine) NAK() {
	if m.state != StateWaitingForACK {
		return
	}
	m.finish(OutcomeNAK, nil)
}

// CAN feeds a link-layer CAN (collision / cancel). Only valid in
// WaitingForACK.
func (m *Machine) CAN() {
	if m.state != StateWaitingForACK {
		return
	}
	m.finish(OutcomeCAN, nil)
}

// Timeout feeds a synthesized timeout input for the current state.
func (m *Machine) Timeout() {
	switch m.state {
	case StateWaitingForACK:
		m.finish(OutcomeACKTimeout, nil)
	case StateWaitingForResponse:
		m.finish(OutcomeResponseTimeout, nil)
	case StateWaitingForCallback:
		m.finish(OutcomeCallbackTimeout, nil)
	}
}

// Response feeds a parsed Controller-origin response command. Returns
// true if resp was accepted as the expected response (matched via
// request.TestResponse); a response that matches but is itself a
// failure status (command.StatusCommand.IsOk() == false) finishes as
// ResponseNOK rather than Success.
func (m *Machine) Response(resp command.Command) bool {
	if m.state != StateWaitingForResponse || m.request == nil || !m.request.TestResponse(resp) {
		return false
	}
	if status, ok := resp.(command.StatusCommand); ok && !status.IsOk() {
		m.finish(OutcomeResponseNOK, resp)
		return true
	}
	if m.request.ExpectsCallback() {
		m.state = StateWaitingForCallback
		return true
	}
	m.finish(OutcomeSuccess, resp)
	return true
}

// Callback feeds a parsed Controller-origin callback command. Returns
// true if cb was accepted as the expected callback.
func (m *Machine) Callback(cb command.Command) bool {
	if m.state != StateWaitingForCallback || m.request == nil || !m.request.TestCallback(cb) {
		return false
	}
	if status, ok := cb.(command.StatusCommand); ok && !status.IsOk() {
		m.finish(OutcomeCallbackNOK, cb)
		return true
	}
	m.finish(OutcomeSuccess, cb)
	return true
}
