package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitCloneSubcommandNameConstant     = "clone"
	gitRemoteSubcommandNameConstant    = "remote"
	gitRemoteAddSubcommandNameConstant = "add"
	gitFetchSubcommandNameConstant     = "fetch"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitMergeSubcommandNameConstant     = "merge"
	gitConfigSubcommandNameConstant    = "config"
	gitSubmoduleSubcommandNameConstant = "submodule"
	gitAbortFlagConstant               = "--abort"
	gitBranchFlagConstant              = "--branch"
	gitTrackFlagConstant               = "-t"
	gitResetBranchFlagConstant         = "-B"
	gitSubmoduleForeachNameConstant    = "foreach"
	gitSubmoduleUpdateNameConstant     = "update"
	gitFlagPrefixConstant              = "-"
)

// Each template group holds start, success, failure and execution-failure forms.
var (
	gitCloneTemplates = stageTemplates{
		start:            "Cloning %s into %s",
		success:          "Cloned %s into %s",
		failure:          "Failed to clone %s into %s (exit code %d%s)",
		executionFailure: "Unable to clone %s into %s: %s",
	}
	gitRemoteAddTemplates = stageTemplates{
		start:            "Adding remote %s in %s",
		success:          "Added remote %s in %s",
		failure:          "Failed to add remote %s in %s (exit code %d%s)",
		executionFailure: "Unable to add remote %s in %s: %s",
	}
	gitFetchAllTemplates = stageTemplates{
		start:            "Fetching %s in %s",
		success:          "Fetched %s in %s",
		failure:          "Failed to fetch %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch %s in %s: %s",
	}
	gitResetBranchTemplates = stageTemplates{
		start:            "Resetting branch %s in %s",
		success:          "Reset branch %s in %s",
		failure:          "Failed to reset branch %s in %s (exit code %d%s)",
		executionFailure: "Unable to reset branch %s in %s: %s",
	}
	gitMergeTemplates = stageTemplates{
		start:            "Merging %s in %s",
		success:          "Merged %s in %s",
		failure:          "Failed to merge %s in %s (exit code %d%s)",
		executionFailure: "Unable to merge %s in %s: %s",
	}
	gitMergeAbortTemplates = stageTemplates{
		start:            "Aborting %s in %s",
		success:          "Aborted %s in %s",
		failure:          "Could not abort %s in %s (exit code %d%s)",
		executionFailure: "Unable to abort %s in %s: %s",
	}
	gitConfigTemplates = stageTemplates{
		start:            "Setting %s in %s",
		success:          "Set %s in %s",
		failure:          "Failed to set %s in %s (exit code %d%s)",
		executionFailure: "Unable to set %s in %s: %s",
	}
	gitSubmoduleTemplates = stageTemplates{
		start:            "Running submodule %s in %s",
		success:          "Completed submodule %s in %s",
		failure:          "Submodule %s failed in %s (exit code %d%s)",
		executionFailure: "Unable to run submodule %s in %s: %s",
	}
)

const (
	gitFetchAllRemotesLabelConstant = "all remotes"
	gitPendingMergeLabelConstant    = "pending merge"
)

type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch strings.TrimSpace(arguments[0]) {
	case gitCloneSubcommandNameConstant:
		positional := positionalArguments(arguments[1:], gitBranchFlagConstant)
		source := formatter.ensureValue(argumentAtIndex(positional, 0))
		destination := formatter.ensureValue(argumentAtIndex(positional, 1))
		return formatter.formatStage(gitCloneTemplates, stage, result, failure, source, destination)
	case gitRemoteSubcommandNameConstant:
		if argumentAtIndex(arguments, 1) != gitRemoteAddSubcommandNameConstant {
			break
		}
		positional := positionalArguments(arguments[2:], gitTrackFlagConstant)
		return formatter.formatStage(gitRemoteAddTemplates, stage, result, failure, formatter.ensureValue(argumentAtIndex(positional, 0)), workingDirectory)
	case gitFetchSubcommandNameConstant:
		return formatter.formatStage(gitFetchAllTemplates, stage, result, failure, gitFetchAllRemotesLabelConstant, workingDirectory)
	case gitCheckoutSubcommandNameConstant:
		if argumentAtIndex(arguments, 1) != gitResetBranchFlagConstant {
			break
		}
		return formatter.formatStage(gitResetBranchTemplates, stage, result, failure, formatter.ensureValue(argumentAtIndex(arguments, 2)), workingDirectory)
	case gitMergeSubcommandNameConstant:
		if containsArgument(arguments, gitAbortFlagConstant) {
			return formatter.formatStage(gitMergeAbortTemplates, stage, result, failure, gitPendingMergeLabelConstant, workingDirectory)
		}
		positional := positionalArguments(arguments[1:], "")
		return formatter.formatStage(gitMergeTemplates, stage, result, failure, formatter.ensureValue(argumentAtIndex(positional, 0)), workingDirectory)
	case gitConfigSubcommandNameConstant:
		positional := positionalArguments(arguments[1:], "")
		return formatter.formatStage(gitConfigTemplates, stage, result, failure, formatter.ensureValue(argumentAtIndex(positional, 0)), workingDirectory)
	case gitSubmoduleSubcommandNameConstant:
		operation := argumentAtIndex(arguments, 1)
		if operation != gitSubmoduleForeachNameConstant && operation != gitSubmoduleUpdateNameConstant {
			break
		}
		return formatter.formatStage(gitSubmoduleTemplates, stage, result, failure, operation, workingDirectory)
	}

	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) formatStage(templates stageTemplates, stage messageStage, result ExecutionResult, failure error, subject string, location string) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, subject, location)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, subject, location)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, subject, location, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates.executionFailure, subject, location, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := command.CommandLine()
	if trimmedDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(trimmedDirectory) > 0 {
		commandLabel += fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedDirectory)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedDirectory
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// positionalArguments drops flags, and the value following valuedFlag, from arguments.
func positionalArguments(arguments []string, valuedFlag string) []string {
	positional := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		argument := arguments[argumentIndex]
		if len(valuedFlag) > 0 && argument == valuedFlag {
			argumentIndex++
			continue
		}
		if strings.HasPrefix(argument, gitFlagPrefixConstant) {
			continue
		}
		positional = append(positional, argument)
	}
	return positional
}

func argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return ""
	}
	return strings.TrimSpace(arguments[index])
}

func containsArgument(arguments []string, target string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == target {
			return true
		}
	}
	return false
}
