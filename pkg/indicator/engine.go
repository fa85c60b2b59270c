package indicator

import (
	"errors"
	"fmt"
	"log/slog"
)

// backend is one tier of the compute chain. All tiers produce the same
// Bundle shape; compute either succeeds fully or returns an error.
type backend interface {
	name() string
	compute(bars []Bar) (*Bundle, error)
}

// Engine tries its backends in priority order and returns the first result.
// The chain is not a vote — one success wins, and the winning tier is not
// recorded in the bundle. Engines are read-only and safe to share across
// concurrent runs.
type Engine struct {
	chain []backend
}

// NewEngine creates the default three-tier engine:
// gonum (preferred) → montanaflynn/stats (secondary) → reference.
func NewEngine() *Engine {
	return &Engine{chain: []backend{
		&gonumBackend{},
		&statsBackend{},
		&referenceBackend{},
	}}
}

// Compute runs the backend chain. The reference tier accepts any input, so
// an error can only mean an empty chain.
func (e *Engine) Compute(bars []Bar) (*Bundle, error) {
	var errs []error
	for _, b := range e.chain {
		bundle, err := b.compute(bars)
		if err != nil {
			slog.Debug("indicator backend unavailable, falling through",
				"backend", b.name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.name(), err))
			continue
		}
		return bundle, nil
	}
	return nil, errors.Join(errs...)
}
