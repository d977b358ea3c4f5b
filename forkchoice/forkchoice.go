// Package forkchoice decides the best chain tip over the block graph.
package forkchoice

import (
	"errors"

	"lumen/config"
	"lumen/types"
)

var (
	// ErrUnknownStartRoot is returned when FindHead is seeded with a root
	// that was never added to the graph.
	ErrUnknownStartRoot = errors.New("fork choice: unknown start root")

	// ErrUnknownParent is returned when a block's parent is not in the graph
	// and is not the zero-hash genesis sentinel.
	ErrUnknownParent = errors.New("fork choice: unknown parent root")
)

// ForkChoice is the pluggable head-selection procedure. FindHead must only
// return roots of previously added blocks.
type ForkChoice interface {
	AddBlock(block *types.BeaconBlock, root types.Root, spec *config.ChainSpec) error
	FindHead(startRoot types.Root, spec *config.ChainSpec) (types.Root, error)
}
