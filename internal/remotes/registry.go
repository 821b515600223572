package remotes

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/queue"
	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	// FetchAllLabel identifies the single fetch action queued per session.
	FetchAllLabel = "fetch-all"

	addRemoteLabelTemplate              = "add-remote(%s)"
	registryErrorTemplateConstant       = "remote %s in %s: %s: %v"
	operationOpenRepositoryConstant     = "open repository"
	operationReadConfigurationConstant  = "read configuration"
	operationWriteConfigurationConstant = "write configuration"
	operationLookupRemoteConstant       = "look up remote"
	operationResolveSourceConstant      = "resolve source"
	remoteAddedPlanMessageConstant      = "Remote will be added"
	remoteUpdatePlanMessageConstant     = "Remote exists; URL will be reconciled"
	remoteURLUpdatedMessageConstant     = "Remote URL updated"
	remoteURLUnchangedMessageConstant   = "Remote URL already current"
	trackedBranchDriftMessageConstant   = "Remote tracks a different branch; refspec left unchanged"
	logFieldRemoteConstant              = "remote"
	logFieldRepositoryConstant          = "repository"
	logFieldCheckoutConstant            = "checkout"
	logFieldURLConstant                 = "url"
	logFieldPreviousURLConstant         = "previous_url"
	logFieldBranchConstant              = "branch"
	logFieldRefSpecsConstant            = "refspecs"
	remoteTrackingReferenceTemplate     = "refs/remotes/%s/%s"
)

// ActionQueue accepts the deferred actions produced by the registry.
type ActionQueue interface {
	EnqueueGit(label string, workingDirectory string, arguments ...string) error
	EnqueueCallback(label string, callback queue.Callback) error
}

// RegistryError reports a failure to read or update remote configuration in a checkout.
type RegistryError struct {
	CheckoutPath string
	RemoteName   string
	Operation    string
	Cause        error
}

// Error describes the failing registry operation.
func (registryError RegistryError) Error() string {
	return fmt.Sprintf(registryErrorTemplateConstant, registryError.RemoteName, registryError.CheckoutPath, registryError.Operation, registryError.Cause)
}

// Unwrap exposes the go-git failure.
func (registryError RegistryError) Unwrap() error {
	return registryError.Cause
}

// FailureCategory reports queue.FailureRegistry.
func (registryError RegistryError) FailureCategory() queue.FailureCategory {
	return queue.FailureRegistry
}

// AddRemoteLabel returns the queue label used when registering a repository's remote.
func AddRemoteLabel(repository *reporef.RepoRef) string {
	return fmt.Sprintf(addRemoteLabelTemplate, repository.Name())
}

// Registry reconciles the remotes of a checkout with the repositories of a session.
type Registry struct {
	logger *zap.Logger
}

// NewRegistry constructs a Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// EnsureRemote queues registration of the remote bound to from.
//
// When the checkout already has the remote, the queued callback only rewrites
// its URL, leaving the tracked-branch refspec untouched. Otherwise a
// single-branch "git remote add" is queued. A checkout that is not yet a
// repository is treated as having no remotes.
func (registry *Registry) EnsureRemote(checkoutPath string, from *reporef.RepoRef, actions ActionQueue) error {
	remoteName := from.RemoteName()
	sourceLocation, sourceError := resolveSource(from)
	if sourceError != nil {
		return RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationResolveSourceConstant, Cause: sourceError}
	}

	exists, lookupError := remoteExists(checkoutPath, remoteName)
	if lookupError != nil {
		return lookupError
	}

	logFields := []zap.Field{
		zap.String(logFieldRepositoryConstant, from.Name()),
		zap.String(logFieldRemoteConstant, remoteName),
		zap.String(logFieldCheckoutConstant, checkoutPath),
		zap.String(logFieldURLConstant, sourceLocation),
	}

	if !exists {
		registry.logger.Debug(remoteAddedPlanMessageConstant, logFields...)
		return actions.EnqueueGit(AddRemoteLabel(from), checkoutPath, "remote", "add", "-t", from.Branch(), remoteName, sourceLocation)
	}

	registry.logger.Debug(remoteUpdatePlanMessageConstant, logFields...)
	trackedBranch := from.Branch()
	return actions.EnqueueCallback(AddRemoteLabel(from), func(context.Context, *queue.State) error {
		return registry.updateRemoteURL(checkoutPath, remoteName, sourceLocation, trackedBranch)
	})
}

// FetchAll queues the single fetch of every remote in the checkout.
func (registry *Registry) FetchAll(checkoutPath string, actions ActionQueue) error {
	return actions.EnqueueGit(FetchAllLabel, checkoutPath, "fetch", "--all")
}

func (registry *Registry) updateRemoteURL(checkoutPath string, remoteName string, targetURL string, trackedBranch string) error {
	repository, openError := git.PlainOpen(checkoutPath)
	if openError != nil {
		return RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationOpenRepositoryConstant, Cause: openError}
	}

	configuration, configurationError := repository.Config()
	if configurationError != nil {
		return RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationReadConfigurationConstant, Cause: configurationError}
	}

	remoteConfiguration, exists := configuration.Remotes[remoteName]
	if !exists || remoteConfiguration == nil {
		return RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationLookupRemoteConstant, Cause: git.ErrRemoteNotFound}
	}

	registry.reportTrackedBranchDrift(remoteName, remoteConfiguration.Fetch, trackedBranch)

	logFields := []zap.Field{
		zap.String(logFieldRemoteConstant, remoteName),
		zap.String(logFieldCheckoutConstant, checkoutPath),
		zap.String(logFieldURLConstant, targetURL),
	}

	if len(remoteConfiguration.URLs) == 1 && remoteConfiguration.URLs[0] == targetURL {
		registry.logger.Debug(remoteURLUnchangedMessageConstant, logFields...)
		return nil
	}

	previousURL := ""
	if len(remoteConfiguration.URLs) > 0 {
		previousURL = remoteConfiguration.URLs[0]
	}
	remoteConfiguration.URLs = []string{targetURL}
	if writeError := repository.Storer.SetConfig(configuration); writeError != nil {
		return RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationWriteConfigurationConstant, Cause: writeError}
	}

	registry.logger.Info(remoteURLUpdatedMessageConstant, append(logFields, zap.String(logFieldPreviousURLConstant, previousURL))...)
	return nil
}

func (registry *Registry) reportTrackedBranchDrift(remoteName string, refSpecs []config.RefSpec, trackedBranch string) {
	expectedDestination := plumbing.ReferenceName(fmt.Sprintf(remoteTrackingReferenceTemplate, remoteName, trackedBranch))
	for _, refSpec := range refSpecs {
		if refSpec.Match(plumbing.NewBranchReferenceName(trackedBranch)) && refSpec.Dst(plumbing.NewBranchReferenceName(trackedBranch)) == expectedDestination {
			return
		}
	}

	renderedRefSpecs := make([]string, 0, len(refSpecs))
	for _, refSpec := range refSpecs {
		renderedRefSpecs = append(renderedRefSpecs, refSpec.String())
	}
	registry.logger.Debug(
		trackedBranchDriftMessageConstant,
		zap.String(logFieldRemoteConstant, remoteName),
		zap.String(logFieldBranchConstant, trackedBranch),
		zap.Strings(logFieldRefSpecsConstant, renderedRefSpecs),
	)
}

func remoteExists(checkoutPath string, remoteName string) (bool, error) {
	repository, openError := git.PlainOpen(checkoutPath)
	if errors.Is(openError, git.ErrRepositoryNotExists) {
		return false, nil
	}
	if openError != nil {
		return false, RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationOpenRepositoryConstant, Cause: openError}
	}

	_, lookupError := repository.Remote(remoteName)
	if errors.Is(lookupError, git.ErrRemoteNotFound) {
		return false, nil
	}
	if lookupError != nil {
		return false, RegistryError{CheckoutPath: checkoutPath, RemoteName: remoteName, Operation: operationLookupRemoteConstant, Cause: lookupError}
	}
	return true, nil
}

func resolveSource(repository *reporef.RepoRef) (string, error) {
	if repository.Origin.Kind != reporef.OriginKindLocal {
		return repository.Source(), nil
	}
	return filepath.Abs(repository.Origin.Path)
}
