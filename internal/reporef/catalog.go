package reporef

import (
	"errors"
	"fmt"
)

const (
	duplicateRepositoryMessageConstant = "repository name already registered"
	unknownRepositoryMessageConstant   = "unknown repository"
	nilRepositoryMessageConstant       = "catalog cannot hold a nil repository"
	catalogKeyErrorTemplateConstant    = "%w: %s"
)

var (
	// ErrDuplicateRepository indicates a second repository registered under an existing name.
	ErrDuplicateRepository = errors.New(duplicateRepositoryMessageConstant)
	// ErrUnknownRepository indicates a lookup or override for a name that was never registered.
	ErrUnknownRepository = errors.New(unknownRepositoryMessageConstant)
	// ErrNilRepository indicates an attempt to register a nil repository.
	ErrNilRepository = errors.New(nilRepositoryMessageConstant)
)

// Catalog indexes repositories by name while keeping registration order.
type Catalog struct {
	repositories []*RepoRef
	indexByName  map[string]int
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{indexByName: map[string]int{}}
}

// Register adds a repository. Names must be unique.
func (catalog *Catalog) Register(repository *RepoRef) error {
	if repository == nil {
		return ErrNilRepository
	}
	if _, exists := catalog.indexByName[repository.Name()]; exists {
		return fmt.Errorf(catalogKeyErrorTemplateConstant, ErrDuplicateRepository, repository.Name())
	}
	catalog.indexByName[repository.Name()] = len(catalog.repositories)
	catalog.repositories = append(catalog.repositories, repository)
	return nil
}

// Lookup returns the repository registered under name.
func (catalog *Catalog) Lookup(name string) (*RepoRef, bool) {
	index, exists := catalog.indexByName[name]
	if !exists {
		return nil, false
	}
	return catalog.repositories[index], true
}

// ApplyOverride dispatches a field override to the repository registered under key.
func (catalog *Catalog) ApplyOverride(key string, field string, value string) error {
	repository, exists := catalog.Lookup(key)
	if !exists {
		return fmt.Errorf(catalogKeyErrorTemplateConstant, ErrUnknownRepository, key)
	}
	if overrideError := repository.ApplyOverride(field, value); overrideError != nil {
		return fmt.Errorf(repositoryErrorTemplateConstant, key, overrideError)
	}
	return nil
}

// Names lists registered names in registration order.
func (catalog *Catalog) Names() []string {
	names := make([]string, 0, len(catalog.repositories))
	for _, repository := range catalog.repositories {
		names = append(names, repository.Name())
	}
	return names
}

// Len reports the number of registered repositories.
func (catalog *Catalog) Len() int {
	return len(catalog.repositories)
}
