package provision

import (
	"context"
	"errors"
	"slices"
)

type (
	// rollback undoes the IAM resources created so far by one bootstrap
	// attempt, so a failed attempt leaves nothing half-built behind.
	rollback struct {
		undos []undo
	}
	undo func(ctx context.Context) error
)

// Push adds an undo to run, in reverse order, on Unwind.
func (r *rollback) Push(u undo) {
	r.undos = append(r.undos, u)
}

// Unwind runs all accumulated undos in the reverse order they were added,
// returning all encountered errors joined.
func (r *rollback) Unwind(ctx context.Context) error {
	var errs error
	for _, u := range slices.Backward(r.undos) {
		errs = errors.Join(errs, u(ctx))
	}
	r.undos = nil
	return errs
}
