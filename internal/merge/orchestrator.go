package merge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/queue"
	"github.com/temirov/forkmerge/internal/remotes"
	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	// SetRenameLimitLabel labels the merge.renamelimit configuration action.
	SetRenameLimitLabel = "set-rename-limit"
	// SubmoduleFetchLabel labels the fetch run inside every submodule.
	SubmoduleFetchLabel = "submodule-fetch"
	// SubmoduleUpdateLabel labels the submodule checkout and init.
	SubmoduleUpdateLabel = "submodule-update"

	resetIntegrationLabelTemplate    = "reset-integration-branch(%s/%s)"
	mergeLabelTemplate               = "merge(%s/%s)"
	renameLimitConfigurationKey      = "merge.renamelimit"
	submoduleFetchCommandConstant    = "git fetch"
	dependenciesMissingMessage       = "merge orchestrator requires checkout, registry and executor dependencies"
	nilSessionMessage                = "merge orchestrator requires a session"
	queueCreationErrorTemplate       = "create command queue: %w"
	enqueueErrorTemplate             = "queue %s: %w"
	materializeErrorTemplate         = "materialize %s: %w"
	preparingCheckoutMessageConstant = "Preparing destination checkout"
	checkoutReadyMessageConstant     = "Destination checkout ready"
	queueBuiltMessageConstant        = "Merge queue built"
	runSucceededMessageConstant      = "Merge run completed"
	runFailedMessageConstant         = "Merge run failed"
	logFieldCheckoutConstant         = "checkout"
	logFieldClonedConstant           = "cloned"
	logFieldActionsConstant          = "actions"
	logFieldBranchesConstant         = "branches"
	logFieldIntegrationConstant      = "integration_branch"
	logFieldLabelConstant            = "label"
	logFieldCategoryConstant         = "category"
)

var (
	// ErrDependenciesNotConfigured indicates an orchestrator built without its collaborators.
	ErrDependenciesNotConfigured = errors.New(dependenciesMissingMessage)
	// ErrNilSession indicates an operation invoked without a session.
	ErrNilSession = errors.New(nilSessionMessage)
)

// CheckoutPreparer recovers and materializes the destination checkout.
type CheckoutPreparer interface {
	AbortPendingMerge(executionContext context.Context, destination string)
	Materialize(executionContext context.Context, repository *reporef.RepoRef, destination string) (bool, error)
}

// RemoteRegistrar queues remote registration and fetching for a checkout.
type RemoteRegistrar interface {
	EnsureRemote(checkoutPath string, from *reporef.RepoRef, actions remotes.ActionQueue) error
	FetchAll(checkoutPath string, actions remotes.ActionQueue) error
}

// Dependencies supplies the orchestrator's collaborators.
type Dependencies struct {
	Checkout  CheckoutPreparer
	Registry  RemoteRegistrar
	Executor  queue.ProcessExecutor
	Logger    *zap.Logger
	Observers []queue.ActionObserver
}

// Result summarizes a completed run.
type Result struct {
	CheckoutPath      string
	IntegrationBranch string
	MergedBranches    int
	Cloned            bool
}

// Orchestrator turns a session into a queue of git actions and drains it.
type Orchestrator struct {
	dependencies Dependencies
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(dependencies Dependencies) (*Orchestrator, error) {
	if dependencies.Checkout == nil || dependencies.Registry == nil || dependencies.Executor == nil {
		return nil, ErrDependenciesNotConfigured
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	return &Orchestrator{dependencies: dependencies}, nil
}

// Prepare aborts any merge left pending by a previous run and materializes the destination.
// It reports whether the destination was cloned.
func (orchestrator *Orchestrator) Prepare(executionContext context.Context, session *Session) (bool, error) {
	if session == nil {
		return false, ErrNilSession
	}
	checkoutPath := session.CheckoutPath()
	orchestrator.dependencies.Logger.Info(preparingCheckoutMessageConstant, zap.String(logFieldCheckoutConstant, checkoutPath))

	orchestrator.dependencies.Checkout.AbortPendingMerge(executionContext, checkoutPath)

	cloned, materializeError := orchestrator.dependencies.Checkout.Materialize(executionContext, session.Destination, checkoutPath)
	if materializeError != nil {
		return false, fmt.Errorf(materializeErrorTemplate, session.Destination.Name(), materializeError)
	}
	orchestrator.dependencies.Logger.Debug(checkoutReadyMessageConstant, zap.String(logFieldCheckoutConstant, checkoutPath), zap.Bool(logFieldClonedConstant, cloned))
	return cloned, nil
}

// BuildQueue enqueues every action of the run in its fixed order without executing any of them:
// rename limit, remotes for the base and each branch, fetch, integration branch reset,
// one merge per branch in list order, then submodule fetch and update.
func (orchestrator *Orchestrator) BuildQueue(session *Session) (*queue.Queue, error) {
	if session == nil {
		return nil, ErrNilSession
	}

	commandQueue, queueError := queue.NewQueue(orchestrator.dependencies.Executor, orchestrator.dependencies.Logger)
	if queueError != nil {
		return nil, fmt.Errorf(queueCreationErrorTemplate, queueError)
	}
	for _, observer := range orchestrator.dependencies.Observers {
		commandQueue.AddObserver(observer)
	}

	checkoutPath := session.CheckoutPath()
	registry := orchestrator.dependencies.Registry

	if enqueueError := commandQueue.EnqueueGit(SetRenameLimitLabel, checkoutPath, "config", "--replace-all", renameLimitConfigurationKey, strconv.Itoa(session.RenameLimit)); enqueueError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, SetRenameLimitLabel, enqueueError)
	}

	if registrationError := registry.EnsureRemote(checkoutPath, session.Base, commandQueue); registrationError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, remotes.AddRemoteLabel(session.Base), registrationError)
	}
	for _, branch := range session.Branches {
		if registrationError := registry.EnsureRemote(checkoutPath, branch, commandQueue); registrationError != nil {
			return nil, fmt.Errorf(enqueueErrorTemplate, remotes.AddRemoteLabel(branch), registrationError)
		}
	}

	if fetchError := registry.FetchAll(checkoutPath, commandQueue); fetchError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, remotes.FetchAllLabel, fetchError)
	}

	resetLabel := ResetIntegrationLabel(session.Base)
	if enqueueError := commandQueue.EnqueueGit(resetLabel, checkoutPath, "checkout", "-B", session.IntegrationBranch, session.Base.TrackingReference()); enqueueError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, resetLabel, enqueueError)
	}

	for _, branch := range session.Branches {
		mergeLabel := MergeLabel(branch)
		if enqueueError := commandQueue.EnqueueGit(mergeLabel, checkoutPath, "merge", "--no-edit", branch.TrackingReference()); enqueueError != nil {
			return nil, fmt.Errorf(enqueueErrorTemplate, mergeLabel, enqueueError)
		}
	}

	if enqueueError := commandQueue.EnqueueGit(SubmoduleFetchLabel, checkoutPath, "submodule", "foreach", submoduleFetchCommandConstant); enqueueError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, SubmoduleFetchLabel, enqueueError)
	}
	if enqueueError := commandQueue.EnqueueGit(SubmoduleUpdateLabel, checkoutPath, "submodule", "update", "--checkout", "--init", "--recursive", "--jobs", strconv.Itoa(session.SubmoduleJobs)); enqueueError != nil {
		return nil, fmt.Errorf(enqueueErrorTemplate, SubmoduleUpdateLabel, enqueueError)
	}

	orchestrator.dependencies.Logger.Debug(queueBuiltMessageConstant, zap.String(logFieldCheckoutConstant, checkoutPath), zap.Int(logFieldActionsConstant, commandQueue.Len()))
	return commandQueue, nil
}

// Run prepares the destination, builds the queue and drains it, stopping at the first failure.
func (orchestrator *Orchestrator) Run(executionContext context.Context, session *Session) (Result, error) {
	if session == nil {
		return Result{}, ErrNilSession
	}

	cloned, prepareError := orchestrator.Prepare(executionContext, session)
	if prepareError != nil {
		return Result{}, prepareError
	}

	commandQueue, buildError := orchestrator.BuildQueue(session)
	if buildError != nil {
		return Result{}, buildError
	}

	result := Result{
		CheckoutPath:      session.CheckoutPath(),
		IntegrationBranch: session.IntegrationBranch,
		MergedBranches:    len(session.Branches),
		Cloned:            cloned,
	}

	if drainError := commandQueue.Drain(executionContext); drainError != nil {
		failedLabel := ""
		var actionError queue.ActionError
		if errors.As(drainError, &actionError) {
			failedLabel = actionError.Label
		}
		orchestrator.dependencies.Logger.Error(
			runFailedMessageConstant,
			zap.String(logFieldLabelConstant, failedLabel),
			zap.String(logFieldCategoryConstant, string(queue.Classify(drainError))),
			zap.Error(drainError),
		)
		return Result{}, drainError
	}

	orchestrator.dependencies.Logger.Info(
		runSucceededMessageConstant,
		zap.String(logFieldCheckoutConstant, result.CheckoutPath),
		zap.String(logFieldIntegrationConstant, result.IntegrationBranch),
		zap.Int(logFieldBranchesConstant, result.MergedBranches),
	)
	return result, nil
}

// ResetIntegrationLabel labels the integration branch reset onto base.
func ResetIntegrationLabel(base *reporef.RepoRef) string {
	return fmt.Sprintf(resetIntegrationLabelTemplate, base.Name(), base.Branch())
}

// MergeLabel labels the merge of branch into the integration branch.
func MergeLabel(branch *reporef.RepoRef) string {
	return fmt.Sprintf(mergeLabelTemplate, branch.Name(), branch.Branch())
}
