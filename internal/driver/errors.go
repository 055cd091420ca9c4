package driver

import (
	"fmt"

	"github.com/zwavelink/zwave-driver/internal/command"
	"github.com/zwavelink/zwave-driver/internal/statemachine"
)

// ControllerCommandError wraps every non-success outcome the Serial API
// machine can reach for a controller-level command.
type ControllerCommandError struct {
	Outcome statemachine.Outcome
	Command command.Command // set for ResponseNOK/CallbackNOK
}

func (e *ControllerCommandError) Error() string {
	if e.Command != nil {
		return fmt.Sprintf("driver: controller command failed: %s (%v)", e.Outcome, e.Command)
	}
	return fmt.Sprintf("driver: controller command failed: %s", e.Outcome)
}

func newControllerCommandError(result statemachine.Result) *ControllerCommandError {
	return &ControllerCommandError{Outcome: result.Outcome, Command: result.Command}
}

// ExecNodeCommandError is returned by ExecNodeCommand, mapping the three
// ways sending a CC to a node can fail.
type ExecNodeCommandError struct {
	Controller *ControllerCommandError // set when the controller itself rejected the command
	NodeNoAck  bool                    // the node did not acknowledge the transmission
	NodeTimeout bool                   // no CC response arrived from the node in time
}

func (e *ExecNodeCommandError) Error() string {
	switch {
	case e.Controller != nil:
		return e.Controller.Error()
	case e.NodeNoAck:
		return "driver: the node did not acknowledge the command"
	case e.NodeTimeout:
		return "driver: timed out waiting for a response from the node"
	default:
		return "driver: unknown exec-node-command error"
	}
}
