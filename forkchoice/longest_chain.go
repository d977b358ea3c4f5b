package forkchoice

import (
	"lumen/config"
	"lumen/types"
)

type node struct {
	slot   types.Slot
	parent types.Root
}

// LongestChain picks the descendant with the highest slot, breaking ties by
// lexicographic root order. It is not safe for concurrent use; the chain
// guards its fork-choice instance with a lock.
type LongestChain struct {
	nodes    map[types.Root]node
	children map[types.Root][]types.Root
}

// NewLongestChain creates an empty block graph.
func NewLongestChain() *LongestChain {
	return &LongestChain{
		nodes:    make(map[types.Root]node),
		children: make(map[types.Root][]types.Root),
	}
}

// AddBlock inserts a block into the graph. The genesis block's zero-hash
// parent is accepted as a graph root; any other unknown parent is an error,
// since the chain persists parents before descendants.
func (lc *LongestChain) AddBlock(block *types.BeaconBlock, root types.Root, spec *config.ChainSpec) error {
	if _, known := lc.nodes[root]; known {
		return nil
	}
	parent := block.PreviousBlockRoot
	if _, ok := lc.nodes[parent]; !ok && parent != spec.ZeroHash {
		return ErrUnknownParent
	}
	lc.nodes[root] = node{slot: block.Slot, parent: parent}
	lc.children[parent] = append(lc.children[parent], root)
	return nil
}

// FindHead returns the best tip among startRoot and its descendants.
func (lc *LongestChain) FindHead(startRoot types.Root, spec *config.ChainSpec) (types.Root, error) {
	start, ok := lc.nodes[startRoot]
	if !ok {
		return types.Root{}, ErrUnknownStartRoot
	}

	best := startRoot
	bestSlot := start.slot

	stack := []types.Root{startRoot}
	for len(stack) > 0 {
		root := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := lc.nodes[root]
		if n.slot > bestSlot || (n.slot == bestSlot && root.Compare(best) > 0) {
			best = root
			bestSlot = n.slot
		}
		stack = append(stack, lc.children[root]...)
	}
	return best, nil
}
