package reporef

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/forkmerge/internal/utils/flags"
)

const (
	// OverrideFieldSource switches a repository to a local origin.
	OverrideFieldSource = "src"
	// OverrideFieldBranch replaces the tracked branch.
	OverrideFieldBranch = "branch"
	// OverrideFieldClobber toggles the clobber policy.
	OverrideFieldClobber = "clobber"

	emptyNameMessageConstant           = "repository name must not be empty"
	emptyBranchMessageConstant         = "repository branch must not be empty"
	emptySourceMessageConstant         = "repository source must not be empty"
	unknownFieldMessageConstant        = "unknown override field"
	invalidValueMessageConstant        = "invalid override value"
	originDescriptionTemplateConstant  = "%s (%s @ %s)"
	repositoryErrorTemplateConstant    = "repository %s: %w"
	overrideFieldErrorTemplateConstant = "%w %q (expected src, branch or clobber)"
	overrideValueErrorTemplateConstant = "%w for %s: %w"
	absolutePathErrorTemplateConstant  = "resolve %s: %w"
)

var (
	// ErrEmptyName indicates a repository without a name.
	ErrEmptyName = errors.New(emptyNameMessageConstant)
	// ErrEmptyBranch indicates a repository without a branch.
	ErrEmptyBranch = errors.New(emptyBranchMessageConstant)
	// ErrEmptySource indicates a repository without a URL or path.
	ErrEmptySource = errors.New(emptySourceMessageConstant)
	// ErrUnknownOverrideField indicates an override naming an unsupported field.
	ErrUnknownOverrideField = errors.New(unknownFieldMessageConstant)
	// ErrInvalidOverrideValue indicates an override value that could not be applied.
	ErrInvalidOverrideValue = errors.New(invalidValueMessageConstant)
)

// OriginKind distinguishes remote URLs from local paths.
type OriginKind string

// Supported origin kinds.
const (
	OriginKindRemote OriginKind = OriginKind("remote")
	OriginKindLocal  OriginKind = OriginKind("local")
)

// Origin locates the sources of a repository. URL is set for remote origins, Path for local ones.
type Origin struct {
	Kind   OriginKind
	URL    string
	Path   string
	Branch string
}

// Source returns the URL or absolute path git should read from.
func (origin Origin) Source() string {
	if origin.Kind == OriginKindLocal {
		return origin.Path
	}
	return origin.URL
}

// RepoRef identifies one mergeable source.
type RepoRef struct {
	name    string
	Origin  Origin
	Clobber bool
}

// NewRemote constructs a RepoRef read from a remote URL.
func NewRemote(name string, url string, branch string) (*RepoRef, error) {
	trimmedURL := strings.TrimSpace(url)
	if len(trimmedURL) == 0 {
		return nil, fmt.Errorf(repositoryErrorTemplateConstant, name, ErrEmptySource)
	}
	return newRepoRef(name, Origin{Kind: OriginKindRemote, URL: trimmedURL, Branch: strings.TrimSpace(branch)})
}

// NewLocal constructs a RepoRef read from a local path, resolved to its absolute form.
func NewLocal(name string, path string, branch string) (*RepoRef, error) {
	absolutePath, pathError := absoluteSourcePath(path)
	if pathError != nil {
		return nil, fmt.Errorf(repositoryErrorTemplateConstant, name, pathError)
	}
	return newRepoRef(name, Origin{Kind: OriginKindLocal, Path: absolutePath, Branch: strings.TrimSpace(branch)})
}

func newRepoRef(name string, origin Origin) (*RepoRef, error) {
	trimmedName := strings.TrimSpace(name)
	if len(trimmedName) == 0 {
		return nil, ErrEmptyName
	}
	if len(origin.Branch) == 0 {
		return nil, fmt.Errorf(repositoryErrorTemplateConstant, trimmedName, ErrEmptyBranch)
	}
	return &RepoRef{name: trimmedName, Origin: origin}, nil
}

// Name returns the session-unique identifier.
func (repository *RepoRef) Name() string {
	return repository.name
}

// Branch returns the tracked branch.
func (repository *RepoRef) Branch() string {
	return repository.Origin.Branch
}

// Source returns the clone or remote source.
func (repository *RepoRef) Source() string {
	return repository.Origin.Source()
}

// RemoteName returns the remote identifier bound to this repository.
func (repository *RepoRef) RemoteName() string {
	return RemoteName(repository.name, repository.Origin.Branch)
}

// TrackingReference returns <remote>/<branch>, the ref fetched for this repository.
func (repository *RepoRef) TrackingReference() string {
	return repository.RemoteName() + "/" + repository.Origin.Branch
}

// String renders the repository for logs.
func (repository *RepoRef) String() string {
	return fmt.Sprintf(originDescriptionTemplateConstant, repository.name, repository.Source(), repository.Origin.Branch)
}

// ApplyOverride updates one field from its textual form.
func (repository *RepoRef) ApplyOverride(field string, value string) error {
	normalizedField := strings.ToLower(strings.TrimSpace(field))
	switch normalizedField {
	case OverrideFieldSource:
		absolutePath, pathError := absoluteSourcePath(value)
		if pathError != nil {
			return fmt.Errorf(overrideValueErrorTemplateConstant, ErrInvalidOverrideValue, normalizedField, pathError)
		}
		repository.Origin = Origin{Kind: OriginKindLocal, Path: absolutePath, Branch: repository.Origin.Branch}
		return nil
	case OverrideFieldBranch:
		trimmedBranch := strings.TrimSpace(value)
		if len(trimmedBranch) == 0 {
			return fmt.Errorf(overrideValueErrorTemplateConstant, ErrInvalidOverrideValue, normalizedField, ErrEmptyBranch)
		}
		repository.Origin.Branch = trimmedBranch
		return nil
	case OverrideFieldClobber:
		clobber, parseError := flags.ParseToggle(value)
		if parseError != nil {
			return fmt.Errorf(overrideValueErrorTemplateConstant, ErrInvalidOverrideValue, normalizedField, parseError)
		}
		repository.Clobber = clobber
		return nil
	default:
		return fmt.Errorf(overrideFieldErrorTemplateConstant, ErrUnknownOverrideField, field)
	}
}

func absoluteSourcePath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return "", ErrEmptySource
	}
	absolutePath, absoluteError := filepath.Abs(trimmedPath)
	if absoluteError != nil {
		return "", fmt.Errorf(absolutePathErrorTemplateConstant, trimmedPath, absoluteError)
	}
	return absolutePath, nil
}
