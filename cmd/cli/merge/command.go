package merge

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/forkmerge/internal/checkout"
	"github.com/temirov/forkmerge/internal/execshell"
	mergeengine "github.com/temirov/forkmerge/internal/merge"
	"github.com/temirov/forkmerge/internal/queue"
	"github.com/temirov/forkmerge/internal/remotes"
	"github.com/temirov/forkmerge/internal/reporef"
	"github.com/temirov/forkmerge/internal/ui"
	"github.com/temirov/forkmerge/internal/utils"
	flagutils "github.com/temirov/forkmerge/internal/utils/flags"
	pathutils "github.com/temirov/forkmerge/internal/utils/path"
)

const (
	commandUseConstant              = "merge [target-dir]"
	commandShortDescriptionConstant = "Rebuild the integration branch from the base and every patch branch"
	commandLongDescriptionConstant  = `merge prepares <target-dir>/src from the destination repository, registers a
remote per patch branch, resets the integration branch onto the base and merges
every branch in configured order before synchronizing submodules.
The run stops at the first failing step and reports its label.`

	targetDirectoryFlagNameConstant  = "target-dir"
	targetDirectoryFlagUsageConstant = "Directory holding the destination checkout (created when missing)."
	manifestFlagNameConstant         = "manifest"
	manifestFlagUsageConstant        = "YAML manifest replacing the configured repositories and branch list."
	sourceFlagNameConstant           = "src"
	sourceFlagUsageConstant          = "Read a repository from a local path instead of its URL (name=path, repeatable)."
	branchFlagNameConstant           = "branch"
	branchFlagUsageConstant          = "Track a different branch for a repository (name=branch, repeatable)."
	clobberFlagNameConstant          = "clobber"
	clobberFlagUsageConstant         = "Delete and re-clone a repository's checkout (name=yes|no, repeatable)."
	overrideFlagNameConstant         = "override"
	overrideFlagUsageConstant        = "Set any repository field (name.field=value with field src, branch or clobber; repeatable)."
	dryRunFlagNameConstant           = "dry-run"
	dryRunFlagUsageConstant          = "Print the planned actions without touching the checkout."

	planLineTemplateConstant          = "PLAN-MERGE: %s: %s\n"
	planCallbackTemplateConstant      = "(%s)"
	summaryLineTemplateConstant       = "MERGE-DONE: %d branches merged into %s at %s\n"
	runFailureTemplateConstant        = "%s failure: %w"
	overrideErrorTemplateConstant     = "override %q: %w"
	manifestPathErrorTemplateConstant = "manifest %s: %w"
	targetPathErrorTemplateConstant   = "target directory %s: %w"
	sourcePathErrorTemplateConstant   = "source for %s: %w"
	targetDirectoryMissingMessage     = "no target directory provided; pass --target-dir or configure tools.merge.target_dir"
	sessionReadyMessageConstant       = "Merge session ready"
	logFieldTargetConstant            = "target_dir"
	logFieldManifestConstant          = "manifest"
	logFieldRepositoriesConstant      = "repositories"
	logFieldDryRunConstant            = "dry_run"
)

// ErrTargetDirectoryMissing indicates neither the flags nor configuration named a target directory.
var ErrTargetDirectoryMissing = errors.New(targetDirectoryMissingMessage)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the merge command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	// Runner launches git. Defaults to the operating system runner.
	Runner execshell.CommandRunner
	// FileSystem backs the checkout manager. Defaults to the operating system.
	FileSystem   afero.Fs
	PathResolver *pathutils.Resolver
}

type commandOptions struct {
	targetDirectory string
	manifest        string
	sources         []string
	branches        []string
	clobbers        []string
	overrides       []string
	dryRun          bool
}

// Build constructs the merge command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	options := &commandOptions{}
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, options)
		},
	}

	command.Flags().StringVar(&options.targetDirectory, targetDirectoryFlagNameConstant, "", targetDirectoryFlagUsageConstant)
	command.Flags().StringVar(&options.manifest, manifestFlagNameConstant, "", manifestFlagUsageConstant)
	command.Flags().StringArrayVar(&options.sources, sourceFlagNameConstant, nil, sourceFlagUsageConstant)
	command.Flags().StringArrayVar(&options.branches, branchFlagNameConstant, nil, branchFlagUsageConstant)
	command.Flags().StringArrayVar(&options.clobbers, clobberFlagNameConstant, nil, clobberFlagUsageConstant)
	command.Flags().StringArrayVar(&options.overrides, overrideFlagNameConstant, nil, overrideFlagUsageConstant)
	flagutils.AddToggleFlag(command.Flags(), &options.dryRun, dryRunFlagNameConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, options *commandOptions) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()
	resolver := builder.PathResolver
	if resolver == nil {
		resolver = pathutils.NewResolver()
	}

	configurationDirectory, _ := utils.NewCommandContextAccessor().ConfigurationDirectory(command.Context())

	targetDirectory, targetError := resolveTargetDirectory(resolver, command, arguments, options, configuration, configurationDirectory)
	if targetError != nil {
		return targetError
	}

	identity, identityError := resolveIdentity(resolver, command, options, configuration, configurationDirectory)
	if identityError != nil {
		return identityError
	}

	session, sessionError := mergeengine.NewSession(targetDirectory, identity)
	if sessionError != nil {
		return sessionError
	}

	if overrideError := applyConfiguredOverrides(resolver, session, configuration.Overrides, configurationDirectory); overrideError != nil {
		return overrideError
	}
	if overrideError := applyFlagOverrides(resolver, session, options); overrideError != nil {
		return overrideError
	}

	dryRun := configuration.DryRun
	if command.Flags().Changed(dryRunFlagNameConstant) {
		dryRun = options.dryRun
	}

	logger.Info(
		sessionReadyMessageConstant,
		zap.String(logFieldTargetConstant, session.TargetDirectory),
		zap.String(logFieldManifestConstant, options.manifest),
		zap.Strings(logFieldRepositoriesConstant, session.RepositoryNames()),
		zap.Bool(logFieldDryRunConstant, dryRun),
	)

	orchestrator, orchestratorError := builder.buildOrchestrator(logger)
	if orchestratorError != nil {
		return orchestratorError
	}

	if dryRun {
		commandQueue, buildError := orchestrator.BuildQueue(session)
		if buildError != nil {
			return buildError
		}
		printPlan(command.OutOrStdout(), commandQueue.Describe())
		return nil
	}

	result, runError := orchestrator.Run(command.Context(), session)
	if runError != nil {
		return fmt.Errorf(runFailureTemplateConstant, queue.Classify(runError), runError)
	}

	fmt.Fprintf(command.OutOrStdout(), summaryLineTemplateConstant, result.MergedBranches, result.IntegrationBranch, result.CheckoutPath)
	return nil
}

func (builder *CommandBuilder) buildOrchestrator(logger *zap.Logger) (*mergeengine.Orchestrator, error) {
	runner := builder.Runner
	if runner == nil {
		runner = execshell.NewOSCommandRunner()
	}

	executor, executorError := execshell.NewShellExecutor(logger, runner)
	if executorError != nil {
		return nil, executorError
	}

	checkoutManager, managerError := checkout.NewManager(checkout.Dependencies{
		Executor:   executor,
		FileSystem: builder.FileSystem,
		Logger:     logger,
	})
	if managerError != nil {
		return nil, managerError
	}

	var observers []queue.ActionObserver
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		observers = append(observers, ui.NewConsoleActionEventLogger(logger))
	}

	return mergeengine.NewOrchestrator(mergeengine.Dependencies{
		Checkout:  checkoutManager,
		Registry:  remotes.NewRegistry(logger),
		Executor:  executor,
		Logger:    logger,
		Observers: observers,
	})
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := builder.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}

// resolveTargetDirectory prefers the positional argument, then the flag, then configuration.
// Command line paths are relative to the working directory; configured ones to the configuration file.
func resolveTargetDirectory(resolver *pathutils.Resolver, command *cobra.Command, arguments []string, options *commandOptions, configuration CommandConfiguration, configurationDirectory string) (string, error) {
	candidate, baseDirectory := configuration.TargetDirectory, configurationDirectory
	if command.Flags().Changed(targetDirectoryFlagNameConstant) {
		candidate, baseDirectory = options.targetDirectory, ""
	}
	if len(arguments) > 0 {
		candidate, baseDirectory = arguments[0], ""
	}
	if len(strings.TrimSpace(candidate)) == 0 {
		return "", ErrTargetDirectoryMissing
	}

	resolved, resolveError := resolver.Resolve(candidate, baseDirectory)
	if resolveError != nil {
		return "", fmt.Errorf(targetPathErrorTemplateConstant, candidate, resolveError)
	}
	return resolved, nil
}

func resolveIdentity(resolver *pathutils.Resolver, command *cobra.Command, options *commandOptions, configuration CommandConfiguration, configurationDirectory string) (mergeengine.Configuration, error) {
	manifest, baseDirectory := configuration.Manifest, configurationDirectory
	if command.Flags().Changed(manifestFlagNameConstant) {
		manifest, baseDirectory = options.manifest, ""
	}

	if len(strings.TrimSpace(manifest)) == 0 {
		return configuration.Session.ResolveRelativePaths(configurationDirectory), nil
	}

	manifestPath, resolveError := resolver.Resolve(manifest, baseDirectory)
	if resolveError != nil {
		return mergeengine.Configuration{}, fmt.Errorf(manifestPathErrorTemplateConstant, manifest, resolveError)
	}
	options.manifest = manifestPath
	return mergeengine.LoadManifest(manifestPath)
}

func applyConfiguredOverrides(resolver *pathutils.Resolver, session *mergeengine.Session, overrides []string, configurationDirectory string) error {
	for _, rawOverride := range overrides {
		if applyError := applyFieldAssignment(resolver, session, rawOverride, configurationDirectory); applyError != nil {
			return applyError
		}
	}
	return nil
}

// applyFlagOverrides applies --src, --branch, --clobber and then --override, each in command line order.
func applyFlagOverrides(resolver *pathutils.Resolver, session *mergeengine.Session, options *commandOptions) error {
	shorthandGroups := []struct {
		field       string
		assignments []string
	}{
		{field: reporef.OverrideFieldSource, assignments: options.sources},
		{field: reporef.OverrideFieldBranch, assignments: options.branches},
		{field: reporef.OverrideFieldClobber, assignments: options.clobbers},
	}

	for _, group := range shorthandGroups {
		for _, rawAssignment := range group.assignments {
			assignment, parseError := flagutils.ParseAssignment(rawAssignment)
			if parseError != nil {
				return fmt.Errorf(overrideErrorTemplateConstant, rawAssignment, parseError)
			}
			assignment.Field = group.field
			if applyError := applyAssignment(resolver, session, assignment, ""); applyError != nil {
				return fmt.Errorf(overrideErrorTemplateConstant, rawAssignment, applyError)
			}
		}
	}

	for _, rawOverride := range options.overrides {
		if applyError := applyFieldAssignment(resolver, session, rawOverride, ""); applyError != nil {
			return applyError
		}
	}
	return nil
}

func applyFieldAssignment(resolver *pathutils.Resolver, session *mergeengine.Session, rawAssignment string, baseDirectory string) error {
	assignment, parseError := flagutils.ParseFieldAssignment(rawAssignment)
	if parseError != nil {
		return fmt.Errorf(overrideErrorTemplateConstant, rawAssignment, parseError)
	}
	if applyError := applyAssignment(resolver, session, assignment, baseDirectory); applyError != nil {
		return fmt.Errorf(overrideErrorTemplateConstant, rawAssignment, applyError)
	}
	return nil
}

func applyAssignment(resolver *pathutils.Resolver, session *mergeengine.Session, assignment flagutils.Assignment, baseDirectory string) error {
	value := assignment.Value
	if strings.EqualFold(strings.TrimSpace(assignment.Field), reporef.OverrideFieldSource) {
		resolvedPath, resolveError := resolver.Resolve(value, baseDirectory)
		if resolveError != nil {
			return fmt.Errorf(sourcePathErrorTemplateConstant, assignment.Key, resolveError)
		}
		value = resolvedPath
	}
	return session.ApplyOverride(assignment.Key, assignment.Field, value)
}

func printPlan(output io.Writer, descriptions []queue.ActionDescription) {
	for _, description := range descriptions {
		commandLine := description.CommandLine
		if len(commandLine) == 0 {
			commandLine = fmt.Sprintf(planCallbackTemplateConstant, description.Kind)
		}
		fmt.Fprintf(output, planLineTemplateConstant, description.Label, commandLine)
	}
}
