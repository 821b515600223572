package checkout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/execshell"
	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	parentDirectoryPermissionConstant  = fs.FileMode(0o755)
	executorMissingMessageConstant     = "checkout manager requires a process executor"
	inspectDestinationTemplateConstant = "inspect checkout %s: %w"
	removeDestinationTemplateConstant  = "remove checkout %s before clobbering: %w"
	createParentTemplateConstant       = "create parent of checkout %s: %w"
	cloneTemplateConstant              = "clone %s into %s: %w"
	abortSkippedMessageConstant        = "No checkout present; merge abort skipped"
	abortIgnoredMessageConstant        = "Merge abort failed; continuing"
	checkoutReusedMessageConstant      = "Checkout present and not clobbered; reusing"
	checkoutClobberedMessageConstant   = "Clobbering existing checkout"
	logFieldDestinationConstant        = "destination"
	logFieldRepositoryConstant         = "repository"
	logFieldBranchConstant             = "branch"
)

// ErrExecutorNotConfigured indicates a manager constructed without a process executor.
var ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// ProcessExecutor runs git on behalf of the manager.
type ProcessExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Dependencies supplies the manager's collaborators.
type Dependencies struct {
	Executor   ProcessExecutor
	FileSystem afero.Fs
	Logger     *zap.Logger
}

// Manager materializes repositories on disk and recovers checkouts left mid-merge.
type Manager struct {
	executor   ProcessExecutor
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewManager constructs a Manager. The filesystem defaults to the OS and the logger to a no-op.
func NewManager(dependencies Dependencies) (*Manager, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		dependencies.FileSystem = afero.NewOsFs()
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	return &Manager{executor: dependencies.Executor, fileSystem: dependencies.FileSystem, logger: dependencies.Logger}, nil
}

// AbortPendingMerge runs "git merge --abort" in destination when it exists.
// The outcome is ignored: most of the time there is nothing to abort.
func (manager *Manager) AbortPendingMerge(executionContext context.Context, destination string) {
	exists, existsError := afero.DirExists(manager.fileSystem, destination)
	if existsError != nil || !exists {
		manager.logger.Debug(abortSkippedMessageConstant, zap.String(logFieldDestinationConstant, destination))
		return
	}

	_, abortError := manager.executor.Execute(executionContext, execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"merge", "--abort"}, WorkingDirectory: destination},
	})
	if abortError != nil {
		manager.logger.Debug(abortIgnoredMessageConstant, zap.String(logFieldDestinationConstant, destination), zap.Error(abortError))
	}
}

// Materialize clones repository into destination when the destination is absent
// or the repository is marked for clobbering, removing any previous contents in
// the latter case. It reports whether a clone took place. Clones are always
// full-history.
func (manager *Manager) Materialize(executionContext context.Context, repository *reporef.RepoRef, destination string) (bool, error) {
	exists, existsError := afero.Exists(manager.fileSystem, destination)
	if existsError != nil {
		return false, fmt.Errorf(inspectDestinationTemplateConstant, destination, existsError)
	}

	logFields := []zap.Field{
		zap.String(logFieldRepositoryConstant, repository.Name()),
		zap.String(logFieldDestinationConstant, destination),
		zap.String(logFieldBranchConstant, repository.Branch()),
	}

	if exists && !repository.Clobber {
		manager.logger.Info(checkoutReusedMessageConstant, logFields...)
		return false, nil
	}

	if exists {
		manager.logger.Warn(checkoutClobberedMessageConstant, logFields...)
		if removeError := manager.fileSystem.RemoveAll(destination); removeError != nil {
			return false, fmt.Errorf(removeDestinationTemplateConstant, destination, removeError)
		}
	}

	if mkdirError := manager.fileSystem.MkdirAll(filepath.Dir(destination), parentDirectoryPermissionConstant); mkdirError != nil {
		return false, fmt.Errorf(createParentTemplateConstant, destination, mkdirError)
	}

	_, cloneError := manager.executor.Execute(executionContext, execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments: []string{"clone", "--branch", repository.Branch(), repository.Source(), destination},
		},
	})
	if cloneError != nil {
		return false, fmt.Errorf(cloneTemplateConstant, repository.Name(), destination, cloneError)
	}
	return true, nil
}
