// Package modelstore provides Model Provider implementations (spec.md §6,
// "Consumed: a Model Provider returning a validated Model value object").
package modelstore

import (
	"fmt"
	"path/filepath"

	"go.ngs.io/thermosat/internal/adapter/vxm"
	"go.ngs.io/thermosat/internal/domain"
)

// Provider returns a validated Model for a given id. Implementations must
// guarantee no dangling id references (§6).
type Provider interface {
	LoadModel(id string) (*domain.Model, error)
}

// FileProvider loads .vxm files from a directory, named "<id>.vxm".
type FileProvider struct {
	Dir string
}

// NewFileProvider returns a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// LoadModel reads and validates "<id>.vxm" from the provider's directory.
func (p *FileProvider) LoadModel(id string) (*domain.Model, error) {
	path := filepath.Join(p.Dir, id+".vxm")
	model, err := vxm.Import(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %q: %w", id, err)
	}
	return model, nil
}

// SaveModel writes model as "<id>.vxm" under the provider's directory.
func (p *FileProvider) SaveModel(id string, model *domain.Model) error {
	path := filepath.Join(p.Dir, id+".vxm")
	if err := vxm.Export(path, model); err != nil {
		return fmt.Errorf("failed to save model %q: %w", id, err)
	}
	return nil
}
