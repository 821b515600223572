package ui

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/queue"
)

const (
	actionStartedTemplateConstant   = "[%d/%d] %s"
	actionCompletedTemplateConstant = "[%d/%d] %s done"
	actionFailedTemplateConstant    = "[%d/%d] %s failed (%s): %s"
	commandSuffixTemplateConstant   = ": %s"
	unknownFailureMessageConstant   = "unknown error"
)

// ActionEventFormatter builds human-readable messages for queue drain events.
type ActionEventFormatter struct{}

// BuildStartedMessage describes an action about to run, including its command line when external.
func (formatter ActionEventFormatter) BuildStartedMessage(position int, total int, description queue.ActionDescription) string {
	message := fmt.Sprintf(actionStartedTemplateConstant, position, total, description.Label)
	if trimmedCommand := strings.TrimSpace(description.CommandLine); len(trimmedCommand) > 0 {
		message += fmt.Sprintf(commandSuffixTemplateConstant, trimmedCommand)
	}
	return message
}

// BuildCompletedMessage describes a successful action.
func (formatter ActionEventFormatter) BuildCompletedMessage(position int, total int, description queue.ActionDescription) string {
	return fmt.Sprintf(actionCompletedTemplateConstant, position, total, description.Label)
}

// BuildFailedMessage describes the action that stopped the queue along with its failure category.
func (formatter ActionEventFormatter) BuildFailedMessage(position int, total int, description queue.ActionDescription, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(actionFailedTemplateConstant, position, total, description.Label, queue.Classify(failure), failureMessage)
}

// ConsoleActionEventLogger implements queue.ActionObserver on top of a console zap logger.
type ConsoleActionEventLogger struct {
	logger    *zap.Logger
	formatter ActionEventFormatter
}

// NewConsoleActionEventLogger constructs a console event logger backed by logger.
func NewConsoleActionEventLogger(logger *zap.Logger) *ConsoleActionEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleActionEventLogger{logger: logger}
}

// ActionStarted logs the action about to run.
func (eventLogger *ConsoleActionEventLogger) ActionStarted(position int, total int, description queue.ActionDescription) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(position, total, description))
}

// ActionCompleted logs a successful action.
func (eventLogger *ConsoleActionEventLogger) ActionCompleted(position int, total int, description queue.ActionDescription) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildCompletedMessage(position, total, description))
}

// ActionFailed logs the failure that stopped the queue.
func (eventLogger *ConsoleActionEventLogger) ActionFailed(position int, total int, description queue.ActionDescription, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildFailedMessage(position, total, description, failure))
}
