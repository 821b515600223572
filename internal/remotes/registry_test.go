package remotes_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/forkmerge/internal/queue"
	"github.com/temirov/forkmerge/internal/remotes"
	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	testBranchNameConstant     = "A"
	testBranchURLConstant      = "https://example.com/a.git"
	testMovedBranchURLConstant = "https://mirror.example.com/a.git"
	testFeatureBranchConstant  = "feat-a"
	testRemoteNameConstant     = "remote-A-branch-feat__a"
)

type queuedGitAction struct {
	label            string
	workingDirectory string
	arguments        []string
}

type recordingActionQueue struct {
	gitActions     []queuedGitAction
	callbackLabels []string
	callbacks      []queue.Callback
}

func (actions *recordingActionQueue) EnqueueGit(label string, workingDirectory string, arguments ...string) error {
	actions.gitActions = append(actions.gitActions, queuedGitAction{label: label, workingDirectory: workingDirectory, arguments: arguments})
	return nil
}

func (actions *recordingActionQueue) EnqueueCallback(label string, callback queue.Callback) error {
	actions.callbackLabels = append(actions.callbackLabels, label)
	actions.callbacks = append(actions.callbacks, callback)
	return nil
}

func (actions *recordingActionQueue) runCallbacks(testInstance *testing.T) {
	testInstance.Helper()
	for _, callback := range actions.callbacks {
		require.NoError(testInstance, callback(context.Background(), &queue.State{}))
	}
}

func initCheckout(testInstance *testing.T) (string, *git.Repository) {
	testInstance.Helper()
	checkoutPath := filepath.Join(testInstance.TempDir(), "src")
	repository, initError := git.PlainInit(checkoutPath, false)
	require.NoError(testInstance, initError)
	return checkoutPath, repository
}

func addTrackingRemote(testInstance *testing.T, repository *git.Repository, name string, url string, branch string) {
	testInstance.Helper()
	_, createError := repository.CreateRemote(&config.RemoteConfig{
		Name:  name,
		URLs:  []string{url},
		Fetch: []config.RefSpec{config.RefSpec("+refs/heads/" + branch + ":refs/remotes/" + name + "/" + branch)},
	})
	require.NoError(testInstance, createError)
}

func newBranchRepository(testInstance *testing.T, url string) *reporef.RepoRef {
	testInstance.Helper()
	repository, buildError := reporef.NewRemote(testBranchNameConstant, url, testFeatureBranchConstant)
	require.NoError(testInstance, buildError)
	return repository
}

func TestEnsureRemoteQueuesAddForMissingRemote(testInstance *testing.T) {
	testCases := []struct {
		name         string
		checkoutPath func(testInstance *testing.T) string
	}{
		{
			name: "repository_without_remote",
			checkoutPath: func(testInstance *testing.T) string {
				checkoutPath, _ := initCheckout(testInstance)
				return checkoutPath
			},
		},
		{
			name: "checkout_not_materialized",
			checkoutPath: func(testInstance *testing.T) string {
				return filepath.Join(testInstance.TempDir(), "missing")
			},
		},
		{
			name: "plain_directory",
			checkoutPath: func(testInstance *testing.T) string {
				return testInstance.TempDir()
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			checkoutPath := testCase.checkoutPath(testInstance)
			actions := &recordingActionQueue{}
			registry := remotes.NewRegistry(zap.NewNop())

			require.NoError(testInstance, registry.EnsureRemote(checkoutPath, newBranchRepository(testInstance, testBranchURLConstant), actions))

			require.Empty(testInstance, actions.callbacks)
			require.Len(testInstance, actions.gitActions, 1)
			require.Equal(testInstance, "add-remote(A)", actions.gitActions[0].label)
			require.Equal(testInstance, checkoutPath, actions.gitActions[0].workingDirectory)
			require.Equal(testInstance, []string{"remote", "add", "-t", testFeatureBranchConstant, testRemoteNameConstant, testBranchURLConstant}, actions.gitActions[0].arguments)
		})
	}
}

func TestEnsureRemoteUsesAbsolutePathForLocalOrigin(testInstance *testing.T) {
	checkoutPath, _ := initCheckout(testInstance)
	localSource := testInstance.TempDir()
	repository, buildError := reporef.NewLocal("B", localSource, "feat-b")
	require.NoError(testInstance, buildError)
	actions := &recordingActionQueue{}

	require.NoError(testInstance, remotes.NewRegistry(nil).EnsureRemote(checkoutPath, repository, actions))

	require.Len(testInstance, actions.gitActions, 1)
	require.Equal(testInstance, []string{"remote", "add", "-t", "feat-b", "remote-B-branch-feat__b", localSource}, actions.gitActions[0].arguments)
}

func TestEnsureRemoteUpdatesExistingRemoteURLOnly(testInstance *testing.T) {
	checkoutPath, repository := initCheckout(testInstance)
	addTrackingRemote(testInstance, repository, testRemoteNameConstant, testBranchURLConstant, testFeatureBranchConstant)
	actions := &recordingActionQueue{}

	require.NoError(testInstance, remotes.NewRegistry(zap.NewNop()).EnsureRemote(checkoutPath, newBranchRepository(testInstance, testMovedBranchURLConstant), actions))

	require.Empty(testInstance, actions.gitActions)
	require.Equal(testInstance, []string{"add-remote(A)"}, actions.callbackLabels)

	reopened, openError := git.PlainOpen(checkoutPath)
	require.NoError(testInstance, openError)
	remote, _ := reopened.Remote(testRemoteNameConstant)
	require.Equal(testInstance, []string{testBranchURLConstant}, remote.Config().URLs)

	actions.runCallbacks(testInstance)

	reopened, openError = git.PlainOpen(checkoutPath)
	require.NoError(testInstance, openError)
	remote, remoteError := reopened.Remote(testRemoteNameConstant)
	require.NoError(testInstance, remoteError)
	require.Equal(testInstance, []string{testMovedBranchURLConstant}, remote.Config().URLs)
	require.Equal(testInstance, []config.RefSpec{"+refs/heads/feat-a:refs/remotes/remote-A-branch-feat__a/feat-a"}, remote.Config().Fetch)
}

func TestEnsureRemoteIsIdempotent(testInstance *testing.T) {
	checkoutPath, repository := initCheckout(testInstance)
	addTrackingRemote(testInstance, repository, testRemoteNameConstant, testBranchURLConstant, testFeatureBranchConstant)
	configurationPath := filepath.Join(checkoutPath, ".git", "config")
	originalConfiguration, readError := os.ReadFile(configurationPath)
	require.NoError(testInstance, readError)

	registry := remotes.NewRegistry(zap.NewNop())
	for iteration := 0; iteration < 2; iteration++ {
		actions := &recordingActionQueue{}
		require.NoError(testInstance, registry.EnsureRemote(checkoutPath, newBranchRepository(testInstance, testBranchURLConstant), actions))
		require.Empty(testInstance, actions.gitActions)
		actions.runCallbacks(testInstance)
	}

	finalConfiguration, readError := os.ReadFile(configurationPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, string(originalConfiguration), string(finalConfiguration))
}

func TestEnsureRemoteLeavesRefspecWhenBranchDrifts(testInstance *testing.T) {
	checkoutPath, repository := initCheckout(testInstance)
	driftedRemoteName := reporef.RemoteName(testBranchNameConstant, "feat-a-v2")
	addTrackingRemote(testInstance, repository, driftedRemoteName, testBranchURLConstant, testFeatureBranchConstant)

	observerCore, observerLogs := observer.New(zap.DebugLevel)
	branchRepository, buildError := reporef.NewRemote(testBranchNameConstant, testBranchURLConstant, "feat-a-v2")
	require.NoError(testInstance, buildError)
	actions := &recordingActionQueue{}

	require.NoError(testInstance, remotes.NewRegistry(zap.New(observerCore)).EnsureRemote(checkoutPath, branchRepository, actions))
	actions.runCallbacks(testInstance)

	reopened, openError := git.PlainOpen(checkoutPath)
	require.NoError(testInstance, openError)
	remote, remoteError := reopened.Remote(driftedRemoteName)
	require.NoError(testInstance, remoteError)
	require.Equal(testInstance, []config.RefSpec{config.RefSpec("+refs/heads/feat-a:refs/remotes/" + driftedRemoteName + "/feat-a")}, remote.Config().Fetch)
	require.Equal(testInstance, 1, observerLogs.FilterMessage("Remote tracks a different branch; refspec left unchanged").Len())
}

func TestUpdateCallbackReportsRegistryFailureWhenRemoteVanishes(testInstance *testing.T) {
	checkoutPath, repository := initCheckout(testInstance)
	addTrackingRemote(testInstance, repository, testRemoteNameConstant, testBranchURLConstant, testFeatureBranchConstant)
	actions := &recordingActionQueue{}
	require.NoError(testInstance, remotes.NewRegistry(zap.NewNop()).EnsureRemote(checkoutPath, newBranchRepository(testInstance, testMovedBranchURLConstant), actions))

	require.NoError(testInstance, repository.DeleteRemote(testRemoteNameConstant))
	callbackError := actions.callbacks[0](context.Background(), &queue.State{})

	var registryError remotes.RegistryError
	require.ErrorAs(testInstance, callbackError, &registryError)
	require.ErrorIs(testInstance, callbackError, git.ErrRemoteNotFound)
	require.Equal(testInstance, queue.FailureRegistry, queue.Classify(queue.CallbackError{Label: "add-remote(A)", Cause: callbackError}))
}

func TestFetchAllQueuesSingleFetch(testInstance *testing.T) {
	actions := &recordingActionQueue{}

	require.NoError(testInstance, remotes.NewRegistry(zap.NewNop()).FetchAll("/tmp/target/src", actions))

	require.Equal(testInstance, []queuedGitAction{{label: remotes.FetchAllLabel, workingDirectory: "/tmp/target/src", arguments: []string{"fetch", "--all"}}}, actions.gitActions)
}

func TestRegistryErrorMessage(testInstance *testing.T) {
	registryError := remotes.RegistryError{
		CheckoutPath: "/tmp/target/src",
		RemoteName:   testRemoteNameConstant,
		Operation:    "read configuration",
		Cause:        errors.New("malformed section"),
	}

	require.Equal(testInstance, "remote remote-A-branch-feat__a in /tmp/target/src: read configuration: malformed section", registryError.Error())
	require.Equal(testInstance, queue.FailureRegistry, registryError.FailureCategory())
}
