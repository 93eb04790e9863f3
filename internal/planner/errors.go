package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclicParent is returned when a reparent would make a project its own
// ancestor.
var ErrCyclicParent = errors.New("parent would create a project cycle")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AssociationFailure records one task/label association write that failed.
type AssociationFailure struct {
	LabelID string `json:"labelId"`
	Op      string `json:"op"`
	Err     error  `json:"-"`
}

func (f AssociationFailure) Error() string {
	return fmt.Sprintf("%s label %s: %v", f.Op, f.LabelID, f.Err)
}

// PartialFailureError reports a composite task write where some label
// associations could not be applied. When RolledBack is set the task and the
// associations that did succeed were removed again.
type PartialFailureError struct {
	TaskID      string
	Failures    []AssociationFailure
	RolledBack  bool
	RollbackErr error
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, failure.Error())
	}
	msg := fmt.Sprintf("task %s: %d label association(s) failed: %s", e.TaskID, len(e.Failures), strings.Join(parts, "; "))
	if e.RolledBack {
		msg += " (rolled back)"
	}
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback failed: %v)", e.RollbackErr)
	}
	return msg
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	for _, failure := range e.Failures {
		errs = append(errs, failure.Err)
	}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}
