package ports

import (
	"context"

	"github.com/aretw0/hmm/pkg/domain"
)

// ModelStore persists model snapshots by name.
type ModelStore interface {
	// Save persists the spec under name, replacing any previous version.
	Save(ctx context.Context, name string, spec *domain.ModelSpec) error

	// Load retrieves the spec stored under name.
	// Returns domain.ErrModelNotFound if it does not exist.
	Load(ctx context.Context, name string) (*domain.ModelSpec, error)

	// Delete removes the spec stored under name.
	Delete(ctx context.Context, name string) error

	// List returns the names of every stored model.
	List(ctx context.Context) ([]string, error)
}
