package queue

import (
	"errors"
	"fmt"

	"github.com/temirov/forkmerge/internal/execshell"
)

const (
	actionErrorTemplateConstant     = "%s failed: %v"
	callbackErrorTemplateConstant   = "callback %s failed: %v"
	executorMissingMessageConstant  = "command queue requires a process executor"
	queueSealedMessageConstant      = "command queue no longer accepts actions"
	queueDrainedMessageConstant     = "command queue has already been drained"
	nilActionMessageConstant        = "command queue cannot hold a nil action"
	emptyActionLabelMessageConstant = "queued actions require a label"
)

var (
	// ErrExecutorNotConfigured indicates a queue was constructed without a process executor.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrQueueSealed indicates an enqueue was attempted once draining began.
	ErrQueueSealed = errors.New(queueSealedMessageConstant)
	// ErrQueueAlreadyDrained indicates Drain was called more than once.
	ErrQueueAlreadyDrained = errors.New(queueDrainedMessageConstant)
	// ErrNilAction indicates a nil action was enqueued.
	ErrNilAction = errors.New(nilActionMessageConstant)
	// ErrEmptyActionLabel indicates an action without a label was enqueued.
	ErrEmptyActionLabel = errors.New(emptyActionLabelMessageConstant)
)

// ActionError is the result of a drain that stopped on a failing action.
type ActionError struct {
	Label string
	Kind  ActionKind
	Cause error
}

// Error reports the failing label followed by the underlying failure.
func (actionError ActionError) Error() string {
	return fmt.Sprintf(actionErrorTemplateConstant, actionError.Label, actionError.Cause)
}

// Unwrap exposes the underlying failure.
func (actionError ActionError) Unwrap() error {
	return actionError.Cause
}

// CallbackError wraps a failure returned by an in-process callback.
type CallbackError struct {
	Label string
	Cause error
}

// Error describes the callback failure.
func (callbackError CallbackError) Error() string {
	return fmt.Sprintf(callbackErrorTemplateConstant, callbackError.Label, callbackError.Cause)
}

// Unwrap exposes the callback's own error.
func (callbackError CallbackError) Unwrap() error {
	return callbackError.Cause
}

// FailureCategory classifies why a queued action failed.
type FailureCategory string

// Failure categories.
const (
	FailureSpawn    FailureCategory = FailureCategory("spawn")
	FailureProcess  FailureCategory = FailureCategory("process")
	FailureRegistry FailureCategory = FailureCategory("registry")
	FailureCallback FailureCategory = FailureCategory("callback")
	FailureUnknown  FailureCategory = FailureCategory("unknown")
)

// CategorizedError is implemented by errors that know their own failure category.
type CategorizedError interface {
	error
	FailureCategory() FailureCategory
}

// Classify reports the most specific failure category found in the error chain.
func Classify(failure error) FailureCategory {
	if failure == nil {
		return FailureUnknown
	}

	var executionError execshell.CommandExecutionError
	if errors.As(failure, &executionError) {
		return FailureSpawn
	}

	var failedError execshell.CommandFailedError
	if errors.As(failure, &failedError) {
		return FailureProcess
	}

	var categorizedError CategorizedError
	if errors.As(failure, &categorizedError) {
		return categorizedError.FailureCategory()
	}

	var callbackError CallbackError
	if errors.As(failure, &callbackError) {
		return FailureCallback
	}

	return FailureUnknown
}
