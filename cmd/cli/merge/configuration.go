package merge

import (
	"strings"

	mergeengine "github.com/temirov/forkmerge/internal/merge"
)

const (
	configurationTargetDirectoryKeyConstant = "target_dir"
	configurationManifestKeyConstant        = "manifest"
	configurationDryRunKeyConstant          = "dry_run"
	configurationOverridesKeyConstant       = "overrides"
	configurationKeySeparatorConstant       = "."
)

// CommandConfiguration holds the tools.merge section of the application configuration.
type CommandConfiguration struct {
	TargetDirectory string                    `mapstructure:"target_dir"`
	Manifest        string                    `mapstructure:"manifest"`
	DryRun          bool                      `mapstructure:"dry_run"`
	Overrides       []string                  `mapstructure:"overrides"`
	Session         mergeengine.Configuration `mapstructure:"session"`
}

// DefaultCommandConfiguration returns the built-in merge command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Overrides: []string{},
		Session:   mergeengine.DefaultConfiguration(),
	}
}

// DefaultConfigurationValues produces Viper defaults for the scalar merge settings under rootKey.
// The session is left out so a configured base, destination or branch list replaces
// the built-in one instead of being merged into it.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationTargetDirectoryKeyConstant: defaults.TargetDirectory,
		rootKey + configurationKeySeparatorConstant + configurationManifestKeyConstant:        defaults.Manifest,
		rootKey + configurationKeySeparatorConstant + configurationDryRunKeyConstant:          defaults.DryRun,
		rootKey + configurationKeySeparatorConstant + configurationOverridesKeyConstant:       defaults.Overrides,
	}
}

func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.TargetDirectory = strings.TrimSpace(configuration.TargetDirectory)
	sanitized.Manifest = strings.TrimSpace(configuration.Manifest)

	sanitized.Overrides = make([]string, 0, len(configuration.Overrides))
	for _, override := range configuration.Overrides {
		if trimmed := strings.TrimSpace(override); len(trimmed) > 0 {
			sanitized.Overrides = append(sanitized.Overrides, trimmed)
		}
	}

	sanitized.Session = completeSession(configuration.Session)
	return sanitized
}

// completeSession substitutes the built-in base, destination and branch list for
// whichever of them the configuration leaves out. Each is replaced as a whole.
func completeSession(session mergeengine.Configuration) mergeengine.Configuration {
	defaults := mergeengine.DefaultConfiguration()
	completed := session
	if repositoryIsEmpty(session.Base) {
		completed.Base = defaults.Base
	}
	if repositoryIsEmpty(session.Destination) {
		completed.Destination = defaults.Destination
	}
	if session.Branches == nil {
		completed.Branches = defaults.Branches
	}
	return completed.WithDefaults()
}

func repositoryIsEmpty(repository mergeengine.RepositoryConfiguration) bool {
	return len(strings.TrimSpace(repository.Name)) == 0 &&
		len(strings.TrimSpace(repository.URL)) == 0 &&
		len(strings.TrimSpace(repository.Path)) == 0 &&
		len(strings.TrimSpace(repository.Branch)) == 0
}
