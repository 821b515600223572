package merge

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/forkmerge/internal/reporef"
)

const (
	checkoutDirectoryNameConstant     = "src"
	targetDirectoryRequiredMessage    = "target directory must be provided"
	targetDirectoryErrorTemplate      = "resolve target directory %s: %w"
	sessionRepositoryErrorTemplate    = "%s repository: %w"
	sessionRegistrationErrorTemplate  = "register %s: %w"
	sessionRoleBranchTemplateConstant = "branch %s"
)

// ErrTargetDirectoryRequired indicates a session built without a target directory.
var ErrTargetDirectoryRequired = errors.New(targetDirectoryRequiredMessage)

// Session is one merge run: a target directory plus the repositories taking part.
// Repositories are reachable by name through ApplyOverride until the run starts.
type Session struct {
	TargetDirectory   string
	IntegrationBranch string
	RenameLimit       int
	SubmoduleJobs     int
	Base              *reporef.RepoRef
	Destination       *reporef.RepoRef
	Branches          []*reporef.RepoRef

	catalog *reporef.Catalog
}

// NewSession validates configuration and builds the session's repositories.
func NewSession(targetDirectory string, configuration Configuration) (*Session, error) {
	trimmedTarget := strings.TrimSpace(targetDirectory)
	if len(trimmedTarget) == 0 {
		return nil, ErrTargetDirectoryRequired
	}
	absoluteTarget, absoluteError := filepath.Abs(trimmedTarget)
	if absoluteError != nil {
		return nil, fmt.Errorf(targetDirectoryErrorTemplate, trimmedTarget, absoluteError)
	}

	completed := configuration.WithDefaults()
	if validationError := completed.Validate(); validationError != nil {
		return nil, validationError
	}

	session := &Session{
		TargetDirectory:   absoluteTarget,
		IntegrationBranch: strings.TrimSpace(completed.IntegrationBranch),
		RenameLimit:       completed.RenameLimit,
		SubmoduleJobs:     completed.SubmoduleJobs,
		catalog:           reporef.NewCatalog(),
	}

	var buildError error
	if session.Base, buildError = session.register(baseRoleConstant, completed.Base); buildError != nil {
		return nil, buildError
	}
	if session.Destination, buildError = session.register(destinationRoleConstant, completed.Destination); buildError != nil {
		return nil, buildError
	}
	for _, branchConfiguration := range completed.Branches {
		branch, branchError := session.register(fmt.Sprintf(sessionRoleBranchTemplateConstant, branchConfiguration.Name), branchConfiguration)
		if branchError != nil {
			return nil, branchError
		}
		session.Branches = append(session.Branches, branch)
	}
	return session, nil
}

func (session *Session) register(role string, configuration RepositoryConfiguration) (*reporef.RepoRef, error) {
	var (
		repository *reporef.RepoRef
		buildError error
	)
	if len(strings.TrimSpace(configuration.Path)) > 0 {
		repository, buildError = reporef.NewLocal(configuration.Name, configuration.Path, configuration.Branch)
	} else {
		repository, buildError = reporef.NewRemote(configuration.Name, configuration.URL, configuration.Branch)
	}
	if buildError != nil {
		return nil, fmt.Errorf(sessionRepositoryErrorTemplate, role, buildError)
	}
	repository.Clobber = configuration.Clobber

	if registrationError := session.catalog.Register(repository); registrationError != nil {
		return nil, fmt.Errorf(sessionRegistrationErrorTemplate, role, registrationError)
	}
	return repository, nil
}

// ApplyOverride updates field of the repository registered under key.
func (session *Session) ApplyOverride(key string, field string, value string) error {
	return session.catalog.ApplyOverride(key, field, value)
}

// RepositoryNames lists base, destination and branches in that order.
func (session *Session) RepositoryNames() []string {
	return session.catalog.Names()
}

// CheckoutPath is where the destination is materialized and mutated.
func (session *Session) CheckoutPath() string {
	return filepath.Join(session.TargetDirectory, checkoutDirectoryNameConstant)
}
