package command

import "fmt"

// ParsingContext carries the session state a command's parser needs but
// which is not present on the wire: node-id width is session-driven,
// never hard-coded.
type ParsingContext struct {
	NodeIdType NodeIdType
}

// Command is any Serial-API message, Request or Response, Host- or
// Controller-origin.
type Command interface {
	CommandType() CommandType
	FunctionType() FunctionType
	Origin() Origin
	Serialize() []byte
}

// CallbackCarrier is implemented by commands that carry (or may carry) a
// callback ID: Host-origin Requests that need one, and Controller-origin
// Requests (callbacks) that echo it back.
type CallbackCarrier interface {
	CallbackID() (id byte, ok bool)
}

// Request is a Host-origin command that expects a Response and/or a
// later Callback from the controller.
type Request interface {
	Command
	ExpectsResponse() bool
	TestResponse(resp Command) bool
	ExpectsCallback() bool
	TestCallback(cb Command) bool
	NeedsCallbackID() bool
	SetCallbackID(id byte)
}

// StatusCommand is implemented by commands whose payload conveys
// success/failure at the command level (e.g. SendDataResponse.was_sent,
// SendDataCallback.transmit_status).
type StatusCommand interface {
	IsOk() bool
}

// ParseFunc parses a command's payload (the bytes after the function-type
// byte) into a concrete Command value.
type ParseFunc func(payload []byte, ctx *ParsingContext) (Command, error)

type registryKey struct {
	CommandType CommandType
	FunctionType FunctionType
	Origin      Origin
}

var registry = map[registryKey]ParseFunc{}

// register installs a parser for (commandType, functionType, origin). It
// is called from init() in each command variant's file, mirroring the
// teacher's compile-time interface assertions: a duplicate registration
// panics at package init time. A key with no registration is not an
// init-time error; Parse falls back to NotImplemented for it.
func register(ct CommandType, ft FunctionType, origin Origin, fn ParseFunc) {
	key := registryKey{ct, ft, origin}
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("command: duplicate registration for %v/%v/%v", ct, ft, origin))
	}
	registry[key] = fn
}

// NotImplemented is the fallback for any (CommandType, FunctionType,
// Origin) triple with no registered parser: it preserves the raw payload
// so higher layers can still observe that something arrived, without
// requiring every catalogue entry to have a full payload definition.
type NotImplemented struct {
	CmdType CommandType
	FnType  FunctionType
	Orig    Origin
	Raw     []byte
}

func (n NotImplemented) CommandType() CommandType   { return n.CmdType }
func (n NotImplemented) FunctionType() FunctionType { return n.FnType }
func (n NotImplemented) Origin() Origin             { return n.Orig }
func (n NotImplemented) Serialize() []byte          { return append([]byte(nil), n.Raw...) }

// Parse dispatches payload to the registered parser for
// (commandType, functionType, origin), or returns a NotImplemented value
// if none is registered.
func Parse(ct CommandType, ft FunctionType, origin Origin, payload []byte, ctx *ParsingContext) (Command, error) {
	if fn, ok := registry[registryKey{ct, ft, origin}]; ok {
		return fn(payload, ctx)
	}
	return NotImplemented{CmdType: ct, FnType: ft, Orig: origin, Raw: append([]byte(nil), payload...)}, nil
}
