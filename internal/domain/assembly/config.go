package assembly

import (
	"runtime"

	"github.com/turtacn/mcbuilder/pkg/errors"
)

// Defaults for Config.
const (
	DefaultRMSDThreshold = 0.5
	DefaultClashDistance = 2.0
	DefaultMaxDepth      = 100
	DefaultMaxStates     = 20000
)

// Config holds the search parameters.  It is passed by value and never
// changed once an Assembler is built.
type Config struct {
	// RMSDThreshold is the largest superposition RMSD (Å) accepted for an
	// edge.
	RMSDThreshold float64
	// ClashDistance is the minimum allowed distance (Å) between atoms of
	// different chains.
	ClashDistance float64
	// ChainLimit stops the search once this many chains are placed.  Zero
	// means unlimited.
	ChainLimit int
	// Exhaustive selects the branching search instead of greedy growth.
	Exhaustive bool
	// MaxDepth caps the number of placements after the seed.
	MaxDepth int
	// MaxStates caps the number of distinct states explored.
	MaxStates int
	// Workers bounds concurrent branch expansion in exhaustive mode.
	Workers int
}

// DefaultConfig returns the default search parameters.
func DefaultConfig() Config {
	return Config{
		RMSDThreshold: DefaultRMSDThreshold,
		ClashDistance: DefaultClashDistance,
		MaxDepth:      DefaultMaxDepth,
		MaxStates:     DefaultMaxStates,
		Workers:       runtime.NumCPU(),
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	switch {
	case c.RMSDThreshold <= 0:
		return errors.NewValidationError("rmsd_threshold", "must be positive")
	case c.ClashDistance <= 0:
		return errors.NewValidationError("clash_distance", "must be positive")
	case c.ChainLimit < 0:
		return errors.NewValidationError("chain_limit", "must not be negative")
	case c.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1")
	case c.MaxStates < 1:
		return errors.NewValidationError("max_states", "must be at least 1")
	case c.Workers < 0:
		return errors.NewValidationError("workers", "must not be negative")
	}
	return nil
}
