// Package compensate records undo actions for multi-step writes so that a
// failure part-way through leaves no partial state behind.
package compensate

import (
	"context"
	"errors"

	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type step struct {
	name string
	undo func(ctx context.Context) error
}

// Steps is an ordered list of undo actions. The zero value is ready to use.
// Not safe for concurrent use.
type Steps struct {
	steps []step
}

// Add registers undo for a step that has just succeeded.
func (s *Steps) Add(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

// Len returns the number of registered steps.
func (s *Steps) Len() int { return len(s.steps) }

// Rollback runs every undo in reverse order. Undo failures are logged and
// returned joined; they never replace the error that caused the rollback.
// Rollback runs even if ctx has already been cancelled.
func (s *Steps) Rollback(ctx context.Context, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Long())
	defer cancel()

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.undo(ctx); err != nil {
			log.Error("compensating step failed", zap.String("step", st.name), zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}
