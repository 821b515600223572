package execshell

import (
	"context"
	"fmt"
	"strings"
)

const (
	commandGitStringConstant                = "git"
	commandLineJoinSeparatorConstant        = " "
	commandLineQuotedArgumentTemplate       = "%q"
	commandLineWhitespaceCharactersConstant = " \t\n"
)

// CommandName identifies an executable invoked through the shell executor.
type CommandName string

// CommandGit identifies the git executable.
const CommandGit CommandName = CommandName(commandGitStringConstant)

// CommandDetails describes the arguments and environment of a single invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// CommandLine renders the command as it would be typed in a shell.
func (command ShellCommand) CommandLine() string {
	commandParts := make([]string, 0, len(command.Details.Arguments)+1)
	commandParts = append(commandParts, string(command.Name))
	for _, argument := range command.Details.Arguments {
		commandParts = append(commandParts, quoteArgument(argument))
	}
	return strings.Join(commandParts, commandLineJoinSeparatorConstant)
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

func quoteArgument(argument string) string {
	if len(argument) > 0 && !strings.ContainsAny(argument, commandLineWhitespaceCharactersConstant) {
		return argument
	}
	return fmt.Sprintf(commandLineQuotedArgumentTemplate, argument)
}
