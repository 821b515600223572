package merge_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/forkmerge/internal/merge"
)

const (
	testFlatManifestConstant = `integration_branch: integration
base:
  name: base
  url: https://example.com/upstream.git
  branch: master
destination:
  name: fork
  url: https://example.com/fork.git
  branch: master
branches:
  - name: A
    url: https://example.com/a.git
    branch: feat-a
  - name: B
    path: local/b
    branch: feat-b
`
	testNestedManifestConstant = `merge:
  rename_limit: 500
  submodule_jobs: 8
  base:
    name: base
    path: /srv/upstream
    branch: main
  destination:
    name: fork
    url: https://example.com/fork.git
    branch: main
    clobber: true
`
)

func writeManifest(testInstance *testing.T, contents string) string {
	testInstance.Helper()
	manifestPath := filepath.Join(testInstance.TempDir(), "manifest.yaml")
	require.NoError(testInstance, os.WriteFile(manifestPath, []byte(contents), 0o600))
	return manifestPath
}

func TestDefaultConfigurationDescribesForkSeries(testInstance *testing.T) {
	configuration := merge.DefaultConfiguration()

	require.NoError(testInstance, configuration.Validate())
	require.Equal(testInstance, "mir-hsa-merge-head", configuration.IntegrationBranch)
	require.Equal(testInstance, 3000, configuration.RenameLimit)
	require.Equal(testInstance, 4, configuration.SubmoduleJobs)
	require.Equal(testInstance, "upstream-rust", configuration.Base.Name)
	require.Equal(testInstance, "rust", configuration.Destination.Name)
	require.False(testInstance, configuration.Destination.Clobber)
	require.Len(testInstance, configuration.Branches, 14)
	require.Equal(testInstance, "fix-rustc-logging", configuration.Branches[0].Name)
	require.Equal(testInstance, "fix-compiler-docs-parallel-queries", configuration.Branches[13].Branch)
	for _, branch := range configuration.Branches {
		require.Equal(testInstance, branch.Name, branch.Branch)
		require.Equal(testInstance, "git@bitbucket.org:DiamondLovesYou/rust-mir-hsa.git", branch.URL)
	}
}

func TestLoadManifestFlatDocument(testInstance *testing.T) {
	manifestPath := writeManifest(testInstance, testFlatManifestConstant)

	configuration, loadError := merge.LoadManifest(manifestPath)
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, "integration", configuration.IntegrationBranch)
	require.Equal(testInstance, merge.DefaultRenameLimit, configuration.RenameLimit)
	require.Equal(testInstance, merge.DefaultSubmoduleJobs, configuration.SubmoduleJobs)
	require.Len(testInstance, configuration.Branches, 2)
	require.Equal(testInstance, "A", configuration.Branches[0].Name)
	require.Equal(testInstance, filepath.Join(filepath.Dir(manifestPath), "local/b"), configuration.Branches[1].Path)
	require.NoError(testInstance, configuration.Validate())
}

func TestLoadManifestNestedDocument(testInstance *testing.T) {
	configuration, loadError := merge.LoadManifest(writeManifest(testInstance, testNestedManifestConstant))
	require.NoError(testInstance, loadError)

	require.Equal(testInstance, merge.DefaultIntegrationBranch, configuration.IntegrationBranch)
	require.Equal(testInstance, 500, configuration.RenameLimit)
	require.Equal(testInstance, 8, configuration.SubmoduleJobs)
	require.Equal(testInstance, "/srv/upstream", configuration.Base.Path)
	require.True(testInstance, configuration.Destination.Clobber)
	require.Empty(testInstance, configuration.Branches)
}

func TestLoadManifestErrors(testInstance *testing.T) {
	_, emptyPathError := merge.LoadManifest(" ")
	require.ErrorIs(testInstance, emptyPathError, merge.ErrManifestPathRequired)

	_, missingError := merge.LoadManifest(filepath.Join(testInstance.TempDir(), "missing.yaml"))
	require.ErrorIs(testInstance, missingError, os.ErrNotExist)

	_, parseError := merge.LoadManifest(writeManifest(testInstance, "branches: [unterminated"))
	require.Error(testInstance, parseError)
	require.Contains(testInstance, parseError.Error(), "failed to parse merge manifest")
}

func TestConfigurationValidate(testInstance *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(configuration *merge.Configuration)
		expected string
	}{
		{
			name:     "empty_integration_branch",
			mutate:   func(configuration *merge.Configuration) { configuration.IntegrationBranch = " " },
			expected: "integration branch must not be empty",
		},
		{
			name:     "negative_rename_limit",
			mutate:   func(configuration *merge.Configuration) { configuration.RenameLimit = -1 },
			expected: "rename limit must be positive, got -1",
		},
		{
			name:     "zero_jobs",
			mutate:   func(configuration *merge.Configuration) { configuration.SubmoduleJobs = 0 },
			expected: "submodule jobs must be positive, got 0",
		},
		{
			name:     "base_without_source",
			mutate:   func(configuration *merge.Configuration) { configuration.Base.URL = "" },
			expected: "base repository",
		},
		{
			name:     "destination_with_url_and_path",
			mutate:   func(configuration *merge.Configuration) { configuration.Destination.Path = "/srv/fork" },
			expected: "exactly one of url or path must be set",
		},
		{
			name:     "branch_without_branch",
			mutate:   func(configuration *merge.Configuration) { configuration.Branches[2].Branch = "" },
			expected: "branch 2:",
		},
		{
			name:     "branch_without_name",
			mutate:   func(configuration *merge.Configuration) { configuration.Branches[0].Name = "" },
			expected: "name must not be empty",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			configuration := merge.DefaultConfiguration()
			testCase.mutate(&configuration)

			validationError := configuration.Validate()
			require.ErrorIs(testInstance, validationError, merge.ErrInvalidConfiguration)
			require.Contains(testInstance, validationError.Error(), testCase.expected)
		})
	}
}
