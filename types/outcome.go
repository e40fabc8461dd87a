package types

// OutcomeStatus classifies how a command ended for the caller.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the command completed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeOperationFailed indicates the server reported a failure status.
	OutcomeOperationFailed OutcomeStatus = "operation_failed"
	// OutcomeNotInitialized indicates no initialized block was reachable.
	OutcomeNotInitialized OutcomeStatus = "not_initialized"
	// OutcomeTimeout indicates the caller stopped waiting.
	OutcomeTimeout OutcomeStatus = "timeout"
	// OutcomeProtocolViolation indicates client and server desynchronized.
	OutcomeProtocolViolation OutcomeStatus = "protocol_violation"
	// OutcomeInvalidInput indicates the command could not be submitted.
	OutcomeInvalidInput OutcomeStatus = "invalid_input"
	// OutcomeStorageFailed indicates captured results could not be persisted.
	OutcomeStorageFailed OutcomeStatus = "storage_failed"
)

// Outcome is the final result of one command.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
	// StatusType is the surfaced status tag name, when one was surfaced.
	StatusType string `json:"status_type,omitempty"`
}
