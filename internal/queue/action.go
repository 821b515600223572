package queue

import (
	"context"

	"github.com/temirov/forkmerge/internal/execshell"
)

// ActionKind distinguishes external process actions from in-process callbacks.
type ActionKind string

// Supported action kinds.
const (
	ActionKindExternal ActionKind = ActionKind("external")
	ActionKindCallback ActionKind = ActionKind("callback")
)

// ProcessExecutor runs external commands on behalf of queued actions.
type ProcessExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// State is shared with callbacks while the queue drains.
type State struct {
	// CompletedLabels lists the labels of actions that already succeeded, in order.
	CompletedLabels []string
}

// Callback is the in-process body of a CallbackAction.
type Callback func(executionContext context.Context, state *State) error

// Action is a deferred step held by a Queue.
type Action interface {
	Label() string
	Kind() ActionKind
	Run(executionContext context.Context, executor ProcessExecutor, state *State) error
}

// ExternalAction runs one external process.
type ExternalAction struct {
	ActionLabel string
	Command     execshell.ShellCommand
}

// Label identifies the action in logs and errors.
func (action ExternalAction) Label() string {
	return action.ActionLabel
}

// Kind reports ActionKindExternal.
func (action ExternalAction) Kind() ActionKind {
	return ActionKindExternal
}

// Run executes the command, returning the executor's typed error on failure.
func (action ExternalAction) Run(executionContext context.Context, executor ProcessExecutor, _ *State) error {
	_, executionError := executor.Execute(executionContext, action.Command)
	return executionError
}

// CallbackAction runs an in-process function.
type CallbackAction struct {
	ActionLabel string
	Callback    Callback
}

// Label identifies the action in logs and errors.
func (action CallbackAction) Label() string {
	return action.ActionLabel
}

// Kind reports ActionKindCallback.
func (action CallbackAction) Kind() ActionKind {
	return ActionKindCallback
}

// Run invokes the callback and wraps any failure in CallbackError.
func (action CallbackAction) Run(executionContext context.Context, _ ProcessExecutor, state *State) error {
	if action.Callback == nil {
		return nil
	}
	if callbackError := action.Callback(executionContext, state); callbackError != nil {
		return CallbackError{Label: action.ActionLabel, Cause: callbackError}
	}
	return nil
}

// ActionDescription summarizes a queued action for previews.
type ActionDescription struct {
	Label       string
	Kind        ActionKind
	CommandLine string
	Directory   string
}

func describeAction(action Action) ActionDescription {
	description := ActionDescription{Label: action.Label(), Kind: action.Kind()}
	if externalAction, isExternal := action.(ExternalAction); isExternal {
		description.CommandLine = externalAction.Command.CommandLine()
		description.Directory = externalAction.Command.Details.WorkingDirectory
	}
	return description
}
