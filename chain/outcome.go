package chain

// Outcome classifies the result of submitting a block to the chain. Every
// outcome other than ValidBlock means the block was not added, but only the
// objectively invalid outcomes justify penalizing the peer that sent it.
type Outcome int

const (
	// ValidBlock means the block was processed and stored.
	ValidBlock Outcome = iota

	// FutureSlot means the block's slot is ahead of the wall clock.
	FutureSlot

	// ParentUnknown means the parent block is not in the store. The block
	// may become valid once the parent arrives.
	ParentUnknown

	// SlotProcessingError means advancing the parent state to the block's
	// slot failed. The fault may lie with this node's state, not the block.
	SlotProcessingError

	// PerBlockProcessingError means the block violated a per-block rule.
	PerBlockProcessingError

	// StateRootMismatch means the block's declared state root does not match
	// the state its transition produced.
	StateRootMismatch
)

// SucceededProcessing reports whether the block was accepted.
func (o Outcome) SucceededProcessing() bool {
	return o == ValidBlock
}

// Invalid reports whether the block itself is provably bad, as opposed to
// outcomes where this node simply lacks context to judge it.
func (o Outcome) Invalid() bool {
	switch o {
	case FutureSlot, PerBlockProcessingError, StateRootMismatch:
		return true
	default:
		return false
	}
}

func (o Outcome) String() string {
	switch o {
	case ValidBlock:
		return "valid block"
	case FutureSlot:
		return "future slot"
	case ParentUnknown:
		return "parent unknown"
	case SlotProcessingError:
		return "slot processing error"
	case PerBlockProcessingError:
		return "per block processing error"
	case StateRootMismatch:
		return "state root mismatch"
	default:
		return "unknown outcome"
	}
}
