package merge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultIntegrationBranch is the branch rebuilt on every run.
	DefaultIntegrationBranch = "mir-hsa-merge-head"
	// DefaultRenameLimit bounds git's rename detection during merges.
	DefaultRenameLimit = 3000
	// DefaultSubmoduleJobs is the parallelism handed to "git submodule update".
	DefaultSubmoduleJobs = 4

	defaultUpstreamNameConstant     = "upstream-rust"
	defaultUpstreamURLConstant      = "https://github.com/rust-lang/rust.git"
	defaultForkNameConstant         = "rust"
	defaultForkURLConstant          = "git@github.com:DiamondLovesYou/rust.git"
	defaultMainBranchConstant       = "master"
	defaultPatchBranchesURLConstant = "git@bitbucket.org:DiamondLovesYou/rust-mir-hsa.git"
	manifestPathRequiredMessage     = "manifest path must be provided"
	manifestLoadErrorTemplate       = "failed to load merge manifest: %w"
	manifestParseErrorTemplate      = "failed to parse merge manifest: %w"
	integrationBranchMessage        = "integration branch must not be empty"
	renameLimitTemplate             = "%w: rename limit must be positive, got %d"
	submoduleJobsTemplate           = "%w: submodule jobs must be positive, got %d"
	invalidConfigurationMessage     = "invalid merge configuration"
	validationErrorTemplate         = "%w: %s"
	repositoryValidationTemplate    = "%w: %s: %s"
	repositoryRoleErrorTemplate     = "%s repository: %w"
	branchEntryErrorTemplate        = "branch %d: %w"
	repositoryNameMessage           = "name must not be empty"
	repositoryBranchMessage         = "branch must not be empty"
	repositorySourceMessage         = "exactly one of url or path must be set"
	baseRoleConstant                = "base"
	destinationRoleConstant         = "destination"
)

var defaultPatchBranches = []string{
	"fix-rustc-logging",
	"getopts-deps",
	"rustc-trans-addr-space",
	"addr-space-attr",
	"plugin-intrinsics",
	"always-export-metadata",
	"make-metadata-schema-pub",
	"reexport-env_logger",
	"polly",
	"amdgpu-intrinsics",
	"amdgcn-dispatch-ptr-intrinsic",
	"tcx-driver-data",
	"syntax-global-new-pub",
	"fix-compiler-docs-parallel-queries",
}

var (
	// ErrManifestPathRequired indicates LoadManifest was called without a path.
	ErrManifestPathRequired = errors.New(manifestPathRequiredMessage)
	// ErrInvalidConfiguration marks every configuration validation failure.
	ErrInvalidConfiguration = errors.New(invalidConfigurationMessage)
)

// RepositoryConfiguration describes one repository. Exactly one of URL and Path is set.
type RepositoryConfiguration struct {
	Name    string `mapstructure:"name" yaml:"name"`
	URL     string `mapstructure:"url" yaml:"url,omitempty"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
	Branch  string `mapstructure:"branch" yaml:"branch"`
	Clobber bool   `mapstructure:"clobber" yaml:"clobber,omitempty"`
}

// Configuration is the identity data of a merge: where the base and destination
// come from, which patch branches are merged and in which order, and the knobs
// handed to git.
type Configuration struct {
	IntegrationBranch string                    `mapstructure:"integration_branch" yaml:"integration_branch"`
	RenameLimit       int                       `mapstructure:"rename_limit" yaml:"rename_limit"`
	SubmoduleJobs     int                       `mapstructure:"submodule_jobs" yaml:"submodule_jobs"`
	Base              RepositoryConfiguration   `mapstructure:"base" yaml:"base"`
	Destination       RepositoryConfiguration   `mapstructure:"destination" yaml:"destination"`
	Branches          []RepositoryConfiguration `mapstructure:"branches" yaml:"branches"`
}

// DefaultConfiguration returns the built-in fork identity: upstream rust as the
// base, the fork as destination and the patch branch series merged onto it.
func DefaultConfiguration() Configuration {
	branches := make([]RepositoryConfiguration, 0, len(defaultPatchBranches))
	for _, branch := range defaultPatchBranches {
		branches = append(branches, RepositoryConfiguration{Name: branch, URL: defaultPatchBranchesURLConstant, Branch: branch})
	}
	return Configuration{
		IntegrationBranch: DefaultIntegrationBranch,
		RenameLimit:       DefaultRenameLimit,
		SubmoduleJobs:     DefaultSubmoduleJobs,
		Base:              RepositoryConfiguration{Name: defaultUpstreamNameConstant, URL: defaultUpstreamURLConstant, Branch: defaultMainBranchConstant},
		Destination:       RepositoryConfiguration{Name: defaultForkNameConstant, URL: defaultForkURLConstant, Branch: defaultMainBranchConstant},
		Branches:          branches,
	}
}

// LoadManifest reads a configuration from a YAML file. Relative repository
// paths are resolved against the manifest's directory. The document may be
// the configuration itself or nest it under a top-level "merge" key.
func LoadManifest(manifestPath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(manifestPath)
	if len(trimmedPath) == 0 {
		return Configuration{}, ErrManifestPathRequired
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Configuration{}, fmt.Errorf(manifestLoadErrorTemplate, readError)
	}

	var document struct {
		Configuration `yaml:",inline"`
		Merge         *Configuration `yaml:"merge"`
	}
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(manifestParseErrorTemplate, unmarshalError)
	}

	configuration := document.Configuration
	if document.Merge != nil {
		configuration = *document.Merge
	}
	return configuration.WithDefaults().ResolveRelativePaths(filepath.Dir(trimmedPath)), nil
}

// WithDefaults fills unset integration branch, rename limit and submodule jobs.
func (configuration Configuration) WithDefaults() Configuration {
	completed := configuration
	if len(strings.TrimSpace(completed.IntegrationBranch)) == 0 {
		completed.IntegrationBranch = DefaultIntegrationBranch
	}
	if completed.RenameLimit == 0 {
		completed.RenameLimit = DefaultRenameLimit
	}
	if completed.SubmoduleJobs == 0 {
		completed.SubmoduleJobs = DefaultSubmoduleJobs
	}
	return completed
}

// ResolveRelativePaths anchors relative repository paths at baseDirectory.
func (configuration Configuration) ResolveRelativePaths(baseDirectory string) Configuration {
	resolved := configuration
	resolved.Base = resolved.Base.resolvePath(baseDirectory)
	resolved.Destination = resolved.Destination.resolvePath(baseDirectory)
	resolved.Branches = make([]RepositoryConfiguration, 0, len(configuration.Branches))
	for _, branch := range configuration.Branches {
		resolved.Branches = append(resolved.Branches, branch.resolvePath(baseDirectory))
	}
	return resolved
}

// Validate reports the first structural problem in the configuration.
func (configuration Configuration) Validate() error {
	if len(strings.TrimSpace(configuration.IntegrationBranch)) == 0 {
		return fmt.Errorf(validationErrorTemplate, ErrInvalidConfiguration, integrationBranchMessage)
	}
	if configuration.RenameLimit <= 0 {
		return fmt.Errorf(renameLimitTemplate, ErrInvalidConfiguration, configuration.RenameLimit)
	}
	if configuration.SubmoduleJobs <= 0 {
		return fmt.Errorf(submoduleJobsTemplate, ErrInvalidConfiguration, configuration.SubmoduleJobs)
	}
	if validationError := configuration.Base.validate(); validationError != nil {
		return fmt.Errorf(repositoryRoleErrorTemplate, baseRoleConstant, validationError)
	}
	if validationError := configuration.Destination.validate(); validationError != nil {
		return fmt.Errorf(repositoryRoleErrorTemplate, destinationRoleConstant, validationError)
	}
	for branchIndex, branch := range configuration.Branches {
		if validationError := branch.validate(); validationError != nil {
			return fmt.Errorf(branchEntryErrorTemplate, branchIndex, validationError)
		}
	}
	return nil
}

func (repository RepositoryConfiguration) validate() error {
	if len(strings.TrimSpace(repository.Name)) == 0 {
		return fmt.Errorf(validationErrorTemplate, ErrInvalidConfiguration, repositoryNameMessage)
	}
	if len(strings.TrimSpace(repository.Branch)) == 0 {
		return fmt.Errorf(repositoryValidationTemplate, ErrInvalidConfiguration, repository.Name, repositoryBranchMessage)
	}
	hasURL := len(strings.TrimSpace(repository.URL)) > 0
	hasPath := len(strings.TrimSpace(repository.Path)) > 0
	if hasURL == hasPath {
		return fmt.Errorf(repositoryValidationTemplate, ErrInvalidConfiguration, repository.Name, repositorySourceMessage)
	}
	return nil
}

func (repository RepositoryConfiguration) resolvePath(baseDirectory string) RepositoryConfiguration {
	trimmedPath := strings.TrimSpace(repository.Path)
	if len(trimmedPath) == 0 || filepath.IsAbs(trimmedPath) || len(baseDirectory) == 0 {
		return repository
	}
	resolved := repository
	resolved.Path = filepath.Join(baseDirectory, trimmedPath)
	return resolved
}
