package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/execshell"
)

const (
	loggerNotConfiguredMessageConstant = "command queue requires a logger"
	actionStartedMessageConstant       = "Running queued action"
	actionCompletedMessageConstant     = "Queued action completed"
	actionFailedMessageConstant        = "Queued action failed; remaining actions skipped"
	queueDrainedLogMessageConstant     = "Command queue drained"
	logFieldLabelConstant              = "label"
	logFieldKindConstant               = "kind"
	logFieldPositionConstant           = "position"
	logFieldTotalConstant              = "total"
	logFieldSkippedConstant            = "skipped"
	logFieldCategoryConstant           = "category"
)

// ErrLoggerNotConfigured indicates a queue was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// QueueState reports where a queue is in its lifecycle.
type QueueState int

// Queue lifecycle states.
const (
	QueueEmpty QueueState = iota
	QueueBuilding
	QueueDraining
	QueueCompleted
	QueueFailed
)

// String renders the state name.
func (state QueueState) String() string {
	switch state {
	case QueueEmpty:
		return "empty"
	case QueueBuilding:
		return "building"
	case QueueDraining:
		return "draining"
	case QueueCompleted:
		return "completed"
	case QueueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActionObserver receives lifecycle notifications while a queue drains.
type ActionObserver interface {
	ActionStarted(position int, total int, description ActionDescription)
	ActionCompleted(position int, total int, description ActionDescription)
	ActionFailed(position int, total int, description ActionDescription, failure error)
}

// Queue holds labelled actions and runs them strictly in insertion order.
type Queue struct {
	executor  ProcessExecutor
	logger    *zap.Logger
	observers []ActionObserver

	mutex   sync.Mutex
	actions []Action
	state   QueueState
}

// NewQueue constructs an empty queue that will run external actions through the executor.
func NewQueue(executor ProcessExecutor, logger *zap.Logger) (*Queue, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return &Queue{executor: executor, logger: logger, state: QueueEmpty}, nil
}

// AddObserver registers an observer notified during Drain.
func (queue *Queue) AddObserver(observer ActionObserver) {
	if observer == nil {
		return
	}
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	queue.observers = append(queue.observers, observer)
}

// Enqueue appends an action. Enqueueing never runs anything.
func (queue *Queue) Enqueue(action Action) error {
	if action == nil {
		return ErrNilAction
	}
	if len(action.Label()) == 0 {
		return ErrEmptyActionLabel
	}

	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	if queue.state != QueueEmpty && queue.state != QueueBuilding {
		return ErrQueueSealed
	}
	queue.actions = append(queue.actions, action)
	queue.state = QueueBuilding
	return nil
}

// EnqueueExternal appends an external process action.
func (queue *Queue) EnqueueExternal(label string, command execshell.ShellCommand) error {
	return queue.Enqueue(ExternalAction{ActionLabel: label, Command: command})
}

// EnqueueGit appends a git invocation running in workingDirectory.
func (queue *Queue) EnqueueGit(label string, workingDirectory string, arguments ...string) error {
	command := execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        append([]string{}, arguments...),
			WorkingDirectory: workingDirectory,
		},
	}
	return queue.EnqueueExternal(label, command)
}

// EnqueueCallback appends an in-process callback action.
func (queue *Queue) EnqueueCallback(label string, callback Callback) error {
	return queue.Enqueue(CallbackAction{ActionLabel: label, Callback: callback})
}

// Len reports the number of queued actions.
func (queue *Queue) Len() int {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	return len(queue.actions)
}

// State reports the queue lifecycle state.
func (queue *Queue) State() QueueState {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	return queue.state
}

// Labels lists action labels in run order.
func (queue *Queue) Labels() []string {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	labels := make([]string, 0, len(queue.actions))
	for actionIndex := range queue.actions {
		labels = append(labels, queue.actions[actionIndex].Label())
	}
	return labels
}

// Describe summarizes queued actions in run order without running them.
func (queue *Queue) Describe() []ActionDescription {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	descriptions := make([]ActionDescription, 0, len(queue.actions))
	for actionIndex := range queue.actions {
		descriptions = append(descriptions, describeAction(queue.actions[actionIndex]))
	}
	return descriptions
}

// Drain runs every action in insertion order, stopping at the first failure.
// The failure is returned as an ActionError carrying the failing label.
func (queue *Queue) Drain(executionContext context.Context) error {
	queue.mutex.Lock()
	if queue.state == QueueDraining || queue.state == QueueCompleted || queue.state == QueueFailed {
		queue.mutex.Unlock()
		return ErrQueueAlreadyDrained
	}
	queue.state = QueueDraining
	actions := append([]Action{}, queue.actions...)
	observers := append([]ActionObserver{}, queue.observers...)
	queue.mutex.Unlock()

	total := len(actions)
	state := &State{}

	for actionIndex := range actions {
		action := actions[actionIndex]
		position := actionIndex + 1
		description := describeAction(action)
		actionFields := []zap.Field{
			zap.String(logFieldLabelConstant, action.Label()),
			zap.String(logFieldKindConstant, string(action.Kind())),
			zap.Int(logFieldPositionConstant, position),
			zap.Int(logFieldTotalConstant, total),
		}

		queue.logger.Debug(actionStartedMessageConstant, actionFields...)
		for _, observer := range observers {
			observer.ActionStarted(position, total, description)
		}

		if runError := action.Run(executionContext, queue.executor, state); runError != nil {
			actionError := ActionError{Label: action.Label(), Kind: action.Kind(), Cause: runError}
			queue.logger.Error(
				actionFailedMessageConstant,
				append(
					actionFields,
					zap.String(logFieldCategoryConstant, string(Classify(runError))),
					zap.Int(logFieldSkippedConstant, total-position),
					zap.Error(runError),
				)...,
			)
			for _, observer := range observers {
				observer.ActionFailed(position, total, description, actionError)
			}
			queue.setState(QueueFailed)
			return actionError
		}

		state.CompletedLabels = append(state.CompletedLabels, action.Label())
		queue.logger.Debug(actionCompletedMessageConstant, actionFields...)
		for _, observer := range observers {
			observer.ActionCompleted(position, total, description)
		}
	}

	queue.logger.Info(queueDrainedLogMessageConstant, zap.Int(logFieldTotalConstant, total))
	queue.setState(QueueCompleted)
	return nil
}

func (queue *Queue) setState(state QueueState) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	queue.state = state
}
