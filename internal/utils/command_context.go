package utils

import "context"

type commandContextKey string

const (
	configurationFilePathContextKey  = commandContextKey("configurationFilePath")
	configurationDirectoryContextKey = commandContextKey("configurationDirectory")
)

// CommandContextAccessor stores configuration provenance on command contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithLoadedConfiguration attaches the configuration file path and its directory.
func (accessor CommandContextAccessor) WithLoadedConfiguration(parentContext context.Context, loadedConfiguration LoadedConfiguration) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	withFile := context.WithValue(parentContext, configurationFilePathContextKey, loadedConfiguration.ConfigFileUsed)
	return context.WithValue(withFile, configurationDirectoryContextKey, loadedConfiguration.ConfigDirectory)
}

// ConfigurationFilePath returns the configuration file recorded on the context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, configurationFilePathContextKey)
}

// ConfigurationDirectory returns the directory of the configuration file recorded on the context.
func (accessor CommandContextAccessor) ConfigurationDirectory(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, configurationDirectoryContextKey)
}

func stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	if !available || len(value) == 0 {
		return "", false
	}
	return value, true
}
