package checkout_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/forkmerge/internal/checkout"
	"github.com/temirov/forkmerge/internal/execshell"
	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	testDestinationConstant = "/work/target/src"
	testForkURLConstant     = "git@example.com:fork/rust.git"
	testForkBranchConstant  = "master"
	testMarkerFileConstant  = "/work/target/src/marker.txt"
)

type recordingExecutor struct {
	commands []execshell.ShellCommand
	failure  error
}

func (executor *recordingExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.commands = append(executor.commands, command)
	return execshell.ExecutionResult{}, executor.failure
}

func (executor *recordingExecutor) commandLines() []string {
	lines := make([]string, 0, len(executor.commands))
	for _, command := range executor.commands {
		lines = append(lines, command.CommandLine())
	}
	return lines
}

func newDestinationRepository(testInstance *testing.T, clobber bool) *reporef.RepoRef {
	testInstance.Helper()
	repository, buildError := reporef.NewRemote("rust", testForkURLConstant, testForkBranchConstant)
	require.NoError(testInstance, buildError)
	repository.Clobber = clobber
	return repository
}

func newManager(testInstance *testing.T, executor checkout.ProcessExecutor, fileSystem afero.Fs, logger *zap.Logger) *checkout.Manager {
	testInstance.Helper()
	manager, creationError := checkout.NewManager(checkout.Dependencies{Executor: executor, FileSystem: fileSystem, Logger: logger})
	require.NoError(testInstance, creationError)
	return manager
}

func TestNewManagerRequiresExecutor(testInstance *testing.T) {
	manager, creationError := checkout.NewManager(checkout.Dependencies{})
	require.ErrorIs(testInstance, creationError, checkout.ErrExecutorNotConfigured)
	require.Nil(testInstance, manager)
}

func TestMaterializeClobberSemantics(testInstance *testing.T) {
	expectedClone := "git clone --branch master git@example.com:fork/rust.git /work/target/src"
	testCases := []struct {
		name               string
		destinationExists  bool
		clobber            bool
		expectCloned       bool
		expectMarkerExists bool
	}{
		{name: "absent_destination_is_cloned", destinationExists: false, clobber: false, expectCloned: true},
		{name: "absent_destination_with_clobber_is_cloned", destinationExists: false, clobber: true, expectCloned: true},
		{name: "present_destination_is_reused", destinationExists: true, clobber: false, expectCloned: false, expectMarkerExists: true},
		{name: "present_destination_with_clobber_is_replaced", destinationExists: true, clobber: true, expectCloned: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			if testCase.destinationExists {
				require.NoError(testInstance, afero.WriteFile(fileSystem, testMarkerFileConstant, []byte("local work"), 0o644))
			}
			executor := &recordingExecutor{}
			manager := newManager(testInstance, executor, fileSystem, zap.NewNop())

			cloned, materializeError := manager.Materialize(context.Background(), newDestinationRepository(testInstance, testCase.clobber), testDestinationConstant)
			require.NoError(testInstance, materializeError)
			require.Equal(testInstance, testCase.expectCloned, cloned)

			if testCase.expectCloned {
				require.Equal(testInstance, []string{expectedClone}, executor.commandLines())
			} else {
				require.Empty(testInstance, executor.commands)
			}

			markerExists, existsError := afero.Exists(fileSystem, testMarkerFileConstant)
			require.NoError(testInstance, existsError)
			require.Equal(testInstance, testCase.expectMarkerExists, markerExists)

			parentExists, parentError := afero.DirExists(fileSystem, filepath.Dir(testDestinationConstant))
			require.NoError(testInstance, parentError)
			require.True(testInstance, parentExists || !testCase.expectCloned)
		})
	}
}

func TestMaterializeNeverRequestsShallowClone(testInstance *testing.T) {
	executor := &recordingExecutor{}
	manager := newManager(testInstance, executor, afero.NewMemMapFs(), nil)

	_, materializeError := manager.Materialize(context.Background(), newDestinationRepository(testInstance, true), testDestinationConstant)
	require.NoError(testInstance, materializeError)

	require.Len(testInstance, executor.commands, 1)
	for _, argument := range executor.commands[0].Details.Arguments {
		require.NotContains(testInstance, argument, "--depth")
	}
}

func TestMaterializeClonesLocalOriginFromAbsolutePath(testInstance *testing.T) {
	localSource := testInstance.TempDir()
	repository, buildError := reporef.NewLocal("rust", localSource, "beta")
	require.NoError(testInstance, buildError)
	executor := &recordingExecutor{}

	_, materializeError := newManager(testInstance, executor, afero.NewMemMapFs(), nil).Materialize(context.Background(), repository, testDestinationConstant)
	require.NoError(testInstance, materializeError)

	require.Equal(testInstance, []string{"clone", "--branch", "beta", localSource, testDestinationConstant}, executor.commands[0].Details.Arguments)
}

func TestMaterializeWrapsCloneFailure(testInstance *testing.T) {
	cloneFailure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: []string{"clone"}}},
		Result:  execshell.ExecutionResult{ExitCode: 128, StandardError: "repository not found"},
	}
	executor := &recordingExecutor{failure: cloneFailure}

	cloned, materializeError := newManager(testInstance, executor, afero.NewMemMapFs(), nil).Materialize(context.Background(), newDestinationRepository(testInstance, false), testDestinationConstant)

	require.False(testInstance, cloned)
	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, materializeError, &failedError)
	require.Equal(testInstance, 128, failedError.Result.ExitCode)
	require.Contains(testInstance, materializeError.Error(), "clone rust into /work/target/src")
}

func TestAbortPendingMerge(testInstance *testing.T) {
	testCases := []struct {
		name              string
		destinationExists bool
		executorFailure   error
		expectedCommands  []string
		expectIgnoredLog  bool
	}{
		{
			name:              "absent_destination_runs_nothing",
			destinationExists: false,
		},
		{
			name:              "present_destination_aborts",
			destinationExists: true,
			expectedCommands:  []string{"git merge --abort"},
		},
		{
			name:              "nothing_to_abort_is_swallowed",
			destinationExists: true,
			executorFailure:   execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: There is no merge to abort (MERGE_HEAD missing)."}},
			expectedCommands:  []string{"git merge --abort"},
			expectIgnoredLog:  true,
		},
		{
			name:              "spawn_failure_is_swallowed",
			destinationExists: true,
			executorFailure:   execshell.CommandExecutionError{Cause: errors.New("git not installed")},
			expectedCommands:  []string{"git merge --abort"},
			expectIgnoredLog:  true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			if testCase.destinationExists {
				require.NoError(testInstance, fileSystem.MkdirAll(testDestinationConstant, 0o755))
			}
			executor := &recordingExecutor{failure: testCase.executorFailure}
			observerCore, observerLogs := observer.New(zap.DebugLevel)

			newManager(testInstance, executor, fileSystem, zap.New(observerCore)).AbortPendingMerge(context.Background(), testDestinationConstant)

			if len(testCase.expectedCommands) == 0 {
				require.Empty(testInstance, executor.commands)
			} else {
				require.Equal(testInstance, testCase.expectedCommands, executor.commandLines())
				require.Equal(testInstance, testDestinationConstant, executor.commands[0].Details.WorkingDirectory)
			}

			ignoredEntries := observerLogs.FilterMessage("Merge abort failed; continuing").All()
			if testCase.expectIgnoredLog {
				require.Len(testInstance, ignoredEntries, 1)
				require.Equal(testInstance, zapcore.DebugLevel, ignoredEntries[0].Level)
			} else {
				require.Empty(testInstance, ignoredEntries)
			}
		})
	}
}

func TestConflictedCheckoutIsRecoveredAndReused(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, testMarkerFileConstant, []byte("<<<<<<< HEAD"), 0o644))
	executor := &recordingExecutor{failure: execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 128}}}
	manager := newManager(testInstance, executor, fileSystem, nil)

	manager.AbortPendingMerge(context.Background(), testDestinationConstant)
	executor.failure = nil
	cloned, materializeError := manager.Materialize(context.Background(), newDestinationRepository(testInstance, false), testDestinationConstant)

	require.NoError(testInstance, materializeError)
	require.False(testInstance, cloned)
	require.Equal(testInstance, []string{"git merge --abort"}, executor.commandLines())
}
