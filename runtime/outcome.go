package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/physlink/client"
	"github.com/pithecene-io/physlink/types"
)

// Exit codes of the CLI.
const (
	ExitCodeCompleted         = 0 // command completed
	ExitCodeOperationFailed   = 1 // server reported a failure status
	ExitCodeProtocolViolation = 2 // client and server desynchronized
	ExitCodeInvalidInput      = 3 // invalid arguments or input
	ExitCodeNotInitialized    = 4 // no server behind the key
	ExitCodeTimeout           = 5 // no status before the deadline
	ExitCodeStorageFailed     = 6 // capture records not persisted
)

// DetermineOutcome classifies the result of Execute or Await.
//
// Precedence:
//  1. A protocol violation, timeout or rejected submit from err
//  2. The not-initialized status
//  3. Any *_failed status
//  4. Otherwise success
func DetermineOutcome(st *types.Status, err error) *types.Outcome {
	var pe *client.ProtocolError
	switch {
	case errors.As(err, &pe):
		return &types.Outcome{Status: types.OutcomeProtocolViolation, Message: pe.Error()}
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &types.Outcome{Status: types.OutcomeTimeout, Message: err.Error()}
	case errors.Is(err, ErrSubmitRejected):
		return &types.Outcome{Status: types.OutcomeInvalidInput, Message: err.Error()}
	case err != nil:
		return &types.Outcome{Status: types.OutcomeTimeout, Message: err.Error()}
	case st == nil:
		return &types.Outcome{Status: types.OutcomeTimeout, Message: "no status surfaced"}
	}

	name := st.Type.String()
	switch {
	case st.Type == types.StatusSharedMemoryNotInitialized:
		return &types.Outcome{Status: types.OutcomeNotInitialized, Message: "server not started", StatusType: name}
	case st.Type.Failed():
		return &types.Outcome{Status: types.OutcomeOperationFailed, Message: fmt.Sprintf("server reported %s", name), StatusType: name}
	default:
		return &types.Outcome{Status: types.OutcomeSuccess, Message: "command completed", StatusType: name}
	}
}

// ExitCode maps an outcome to the process exit code.
func ExitCode(o *types.Outcome) int {
	switch o.Status {
	case types.OutcomeSuccess:
		return ExitCodeCompleted
	case types.OutcomeOperationFailed:
		return ExitCodeOperationFailed
	case types.OutcomeProtocolViolation:
		return ExitCodeProtocolViolation
	case types.OutcomeInvalidInput:
		return ExitCodeInvalidInput
	case types.OutcomeNotInitialized:
		return ExitCodeNotInitialized
	case types.OutcomeStorageFailed:
		return ExitCodeStorageFailed
	default:
		return ExitCodeTimeout
	}
}
