package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/forkmerge/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
	testMergeArgumentConstant                    = "merge"
	testNoEditFlagConstant                       = "--no-edit"
	testMergeReferenceConstant                   = "remote-A-branch-feat__a/feat-a"
	testWorkingDirectoryConstant                 = "/tmp/target/src"
	testStandardErrorOutputConstant              = "CONFLICT (content): Merge conflict in README"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
				return
			}
			require.Error(testInstance, creationError)
			require.ErrorIs(testInstance, creationError, testCase.expectError)
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name              string
		runnerResult      execshell.ExecutionResult
		runnerError       error
		expectErrorType   any
		expectedLastLevel zapcore.Level
	}{
		{
			name:              testExecutionSuccessCaseNameConstant,
			runnerResult:      execshell.ExecutionResult{StandardOutput: "Already up to date.", ExitCode: 0},
			expectedLastLevel: zapcore.InfoLevel,
		},
		{
			name:              testExecutionFailureCaseNameConstant,
			runnerResult:      execshell.ExecutionResult{StandardError: testStandardErrorOutputConstant, ExitCode: 1},
			expectErrorType:   execshell.CommandFailedError{},
			expectedLastLevel: zapcore.WarnLevel,
		},
		{
			name:              testExecutionRunnerErrorCaseNameConstant,
			runnerError:       errors.New("exec: \"git\": executable file not found in $PATH"),
			expectErrorType:   execshell.CommandExecutionError{},
			expectedLastLevel: zapcore.ErrorLevel,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{
				Arguments:        []string{testMergeArgumentConstant, testNoEditFlagConstant, testMergeReferenceConstant},
				WorkingDirectory: testWorkingDirectoryConstant,
			}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)

			loggedEntries := observerLogs.All()
			require.Len(testInstance, loggedEntries, 2)
			require.Equal(testInstance, zapcore.DebugLevel, loggedEntries[0].Level)
			require.Equal(testInstance, testCase.expectedLastLevel, loggedEntries[1].Level)
		})
	}
}

func TestCommandFailedErrorIncludesStandardError(testInstance *testing.T) {
	failedError := execshell.CommandFailedError{
		Command: execshell.ShellCommand{
			Name:    execshell.CommandGit,
			Details: execshell.CommandDetails{Arguments: []string{testMergeArgumentConstant, testNoEditFlagConstant, testMergeReferenceConstant}},
		},
		Result: execshell.ExecutionResult{ExitCode: 1, StandardError: testStandardErrorOutputConstant + "\n"},
	}

	require.Equal(
		testInstance,
		"git merge --no-edit remote-A-branch-feat__a/feat-a failed with exit code 1: "+testStandardErrorOutputConstant,
		failedError.Error(),
	)
}

func TestCommandExecutionErrorUnwrapsCause(testInstance *testing.T) {
	launchFailure := errors.New("permission denied")
	executionError := execshell.CommandExecutionError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Cause:   launchFailure,
	}

	require.ErrorIs(testInstance, executionError, launchFailure)
}

func TestShellCommandLineQuotesWhitespace(testInstance *testing.T) {
	command := execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"submodule", "foreach", "git fetch"}},
	}

	require.Equal(testInstance, `git submodule foreach "git fetch"`, command.CommandLine())
}
