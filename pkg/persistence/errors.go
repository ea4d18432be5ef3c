package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowInvalid indicates a stored workflow definition failed validation.
	ErrWorkflowInvalid = errors.New("workflow definition invalid")
)

// WorkflowError wraps workflow-related storage errors with operation context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "WorkflowByID", "Save")
	WorkflowID string
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowInvalid checks if an error indicates a malformed workflow definition.
func IsWorkflowInvalid(err error) bool {
	return errors.Is(err, ErrWorkflowInvalid)
}
