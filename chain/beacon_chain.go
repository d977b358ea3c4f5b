// Package chain ties the state transition, fork choice, store and operation
// pool together into a running beacon chain. It owns the canonical and
// finalized head bookkeeping and the working state used for block production
// and attestation duties.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"lumen/config"
	"lumen/exception"
	"lumen/forkchoice"
	"lumen/logx"
	"lumen/oppool"
	"lumen/slotclock"
	"lumen/store"
	"lumen/transition"
	"lumen/types"
	"lumen/utils"
)

var (
	// ErrMissingHistoricalState is returned when a block-root walk needs a
	// state that was never persisted.
	ErrMissingHistoricalState = errors.New("chain: historical state missing from store")

	// ErrUnknownRoot is returned for lookups of roots the store has never
	// seen.
	ErrUnknownRoot = errors.New("chain: unknown root")
)

// BeaconChain is the top-level consensus object. All exported methods are
// safe for concurrent use. Each shared resource sits under its own
// reader/writer lock so readers of one are never blocked by writers of
// another; writers nest them in the order canonical head, working state,
// finalized head.
type BeaconChain struct {
	spec  *config.ChainSpec
	store store.Store
	clock slotclock.SlotClock

	// Pool stages operations for inclusion in produced blocks.
	Pool *oppool.OperationPool

	fcMu       sync.RWMutex
	forkChoice forkchoice.ForkChoice

	stateMu sync.RWMutex
	state   *types.BeaconState

	canonicalMu   sync.RWMutex
	canonicalHead Checkpoint

	finalizedMu   sync.RWMutex
	finalizedHead Checkpoint

	// Highest slot among accepted blocks and light-client headers.
	headerMu       sync.RWMutex
	bestHeaderSlot types.Slot
}

// FromGenesis opens a chain over the given store. A cold store is initialized
// from genesisState; a store that already carries a head resumes from it, so
// a restarted node keeps the chain it had.
func FromGenesis(st store.Store, clock slotclock.SlotClock, fc forkchoice.ForkChoice, genesisState *types.BeaconState, spec *config.ChainSpec) (*BeaconChain, error) {
	c := &BeaconChain{
		spec:       spec,
		store:      st,
		clock:      clock,
		forkChoice: fc,
		Pool:       oppool.New(),
	}

	headRoot, ok, err := st.GetHeadRoot()
	if err != nil {
		return nil, err
	}
	if ok {
		if err := c.resume(headRoot); err != nil {
			return nil, err
		}
		return c, nil
	}

	stateRoot := genesisState.CanonicalRoot()
	genesisBlock := transition.GenesisBlock(stateRoot, spec)
	blockRoot := genesisBlock.CanonicalRoot()

	if err := st.PutBlockAndState(blockRoot, genesisBlock, stateRoot, genesisState); err != nil {
		return nil, err
	}
	if err := st.SetHeadRoot(blockRoot); err != nil {
		return nil, err
	}
	if err := st.SetFinalizedRoot(blockRoot); err != nil {
		return nil, err
	}
	if err := fc.AddBlock(genesisBlock, blockRoot, spec); err != nil {
		return nil, err
	}

	c.canonicalHead.Update(*genesisBlock, blockRoot, genesisState, stateRoot)
	c.finalizedHead.Update(*genesisBlock, blockRoot, genesisState, stateRoot)
	c.state = genesisState.Copy()
	c.bestHeaderSlot = genesisBlock.Slot

	logx.Info("chain", "initialized from genesis, block root ", blockRoot.Short())
	return c, nil
}

// resume rebuilds in-memory bookkeeping from a warm store.
func (c *BeaconChain) resume(headRoot types.Root) error {
	headBlock, err := c.store.GetBlock(headRoot)
	if err != nil {
		return err
	}
	if headBlock == nil {
		return fmt.Errorf("%w: head block %s", ErrUnknownRoot, headRoot.Short())
	}
	headState, err := c.store.GetState(headBlock.StateRoot)
	if err != nil {
		return err
	}
	if headState == nil {
		return fmt.Errorf("%w: head state %s", ErrUnknownRoot, headBlock.StateRoot.Short())
	}

	finalizedRoot, ok, err := c.store.GetFinalizedRoot()
	if err != nil {
		return err
	}
	if !ok {
		finalizedRoot = headRoot
	}
	finalizedBlock, err := c.store.GetBlock(finalizedRoot)
	if err != nil {
		return err
	}
	if finalizedBlock == nil {
		return fmt.Errorf("%w: finalized block %s", ErrUnknownRoot, finalizedRoot.Short())
	}
	finalizedState, err := c.store.GetState(finalizedBlock.StateRoot)
	if err != nil {
		return err
	}
	if finalizedState == nil {
		return fmt.Errorf("%w: finalized state %s", ErrUnknownRoot, finalizedBlock.StateRoot.Short())
	}

	// Re-seed fork choice with the canonical lineage, oldest first. Side
	// forks re-enter the graph as their blocks are seen again.
	lineage := []*types.BeaconBlock{headBlock}
	for parent := headBlock.PreviousBlockRoot; parent != c.spec.ZeroHash; {
		block, err := c.store.GetBlock(parent)
		if err != nil {
			return err
		}
		if block == nil {
			return fmt.Errorf("%w: ancestor %s", ErrUnknownRoot, parent.Short())
		}
		lineage = append(lineage, block)
		parent = block.PreviousBlockRoot
	}
	for i := len(lineage) - 1; i >= 0; i-- {
		block := lineage[i]
		if err := c.forkChoice.AddBlock(block, block.CanonicalRoot(), c.spec); err != nil {
			return err
		}
	}

	c.canonicalHead.Update(*headBlock, headRoot, headState, headBlock.StateRoot)
	c.finalizedHead.Update(*finalizedBlock, finalizedRoot, finalizedState, finalizedBlock.StateRoot)
	c.state = headState.Copy()
	c.bestHeaderSlot = headBlock.Slot

	logx.Info("chain", "resumed at slot ", uint64(headBlock.Slot), " head ", headRoot.Short())
	return nil
}

// ProcessBlock runs the full acceptance protocol on a block received from
// the network or a local proposer. A non-nil error means the protocol could
// not finish (store failure); the outcome is only meaningful when the error
// is nil.
func (c *BeaconChain) ProcessBlock(block *types.BeaconBlock) (outcome Outcome, err error) {
	defer exception.Recover("chain.process_block", &err)

	// The present slot is the working state's, which UpdateState keeps in
	// step with the wall clock.
	if block.Slot > c.PresentSlot() {
		return FutureSlot, nil
	}

	blockRoot := block.CanonicalRoot()

	parentBlock, err := c.store.GetBlock(block.PreviousBlockRoot)
	if err != nil {
		return 0, err
	}
	if parentBlock == nil {
		logx.Debug("chain", "parent unknown for block ", blockRoot.Short())
		return ParentUnknown, nil
	}
	state, err := c.store.GetState(parentBlock.StateRoot)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, fmt.Errorf("%w: parent state %s", ErrUnknownRoot, parentBlock.StateRoot.Short())
	}

	// Advance the parent's post-state to the block's slot, caching roots as
	// each slot passes.
	for state.Slot < block.Slot {
		if slotErr := transition.PerSlotProcessing(state, c.spec); slotErr != nil {
			logx.Warn("chain", "slot processing failed before block ", blockRoot.Short(), ": ", slotErr.Error())
			return SlotProcessingError, nil
		}
	}

	if blockErr := transition.PerBlockProcessing(state, block, c.spec); blockErr != nil {
		logx.Debug("chain", "rejected block ", blockRoot.Short(), ": ", blockErr.Error())
		return PerBlockProcessingError, nil
	}

	stateRoot := state.CanonicalRoot()
	if block.StateRoot != stateRoot {
		return StateRootMismatch, nil
	}

	if err := c.store.PutBlockAndState(blockRoot, block, stateRoot, state); err != nil {
		return 0, err
	}

	c.fcMu.Lock()
	fcErr := c.forkChoice.AddBlock(block, blockRoot, c.spec)
	c.fcMu.Unlock()
	if fcErr != nil {
		return 0, fcErr
	}

	c.headerMu.Lock()
	if block.Slot > c.bestHeaderSlot {
		c.bestHeaderSlot = block.Slot
	}
	c.headerMu.Unlock()

	// First-arrival head extension: a block building directly on the head
	// advances it immediately, without waiting for a fork-choice run. A
	// competing sibling arriving later does not displace it here. The
	// canonical-head write lock serializes this final step against
	// concurrent acceptances and fork-choice runs.
	c.canonicalMu.Lock()
	defer c.canonicalMu.Unlock()
	if block.PreviousBlockRoot == c.canonicalHead.BlockRoot {
		if err := c.updateCanonicalHeadLocked(block, blockRoot, state, stateRoot); err != nil {
			return 0, err
		}
	}

	logx.Info("chain", "accepted block ", blockRoot.Short(), " at slot ", uint64(block.Slot))
	return ValidBlock, nil
}

// updateCanonicalHeadLocked publishes a new canonical head. The caller holds
// the canonical-head write lock.
func (c *BeaconChain) updateCanonicalHeadLocked(block *types.BeaconBlock, blockRoot types.Root, state *types.BeaconState, stateRoot types.Root) error {
	c.canonicalHead.Update(*block, blockRoot, state, stateRoot)
	c.stateMu.Lock()
	c.state = state.Copy()
	c.stateMu.Unlock()
	if err := c.store.SetHeadRoot(blockRoot); err != nil {
		return err
	}
	return c.updateFinalizedHeadLocked()
}

// updateFinalizedHeadLocked advances the finalized checkpoint when the head
// state finalized a newer epoch. The caller holds the canonical-head write
// lock; the finalized-head lock is taken only around the publish.
func (c *BeaconChain) updateFinalizedHeadLocked() error {
	headState := c.canonicalHead.State
	c.finalizedMu.RLock()
	finalizedRoot := c.finalizedHead.BlockRoot
	c.finalizedMu.RUnlock()
	if headState.FinalizedRoot.IsZero() || headState.FinalizedRoot == finalizedRoot {
		return nil
	}

	block, err := c.store.GetBlock(headState.FinalizedRoot)
	if err != nil {
		return err
	}
	if block == nil {
		return fmt.Errorf("%w: finalized block %s", ErrUnknownRoot, headState.FinalizedRoot.Short())
	}
	state, err := c.store.GetState(block.StateRoot)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: finalized state %s", ErrUnknownRoot, block.StateRoot.Short())
	}

	c.finalizedMu.Lock()
	c.finalizedHead.Update(*block, headState.FinalizedRoot, state, block.StateRoot)
	c.finalizedMu.Unlock()
	if err := c.store.SetFinalizedRoot(headState.FinalizedRoot); err != nil {
		return err
	}
	c.Pool.Prune(state, c.spec)
	logx.Info("chain", "finalized epoch ", uint64(headState.FinalizedEpoch), " block ", headState.FinalizedRoot.Short())
	return nil
}

// RunForkChoice re-evaluates the head over the whole block graph and adopts
// the winner if it differs from the current head. ProcessBlock only extends
// the head along the first-arrival path; this settles forks.
func (c *BeaconChain) RunForkChoice() (err error) {
	defer exception.Recover("chain.fork_choice", &err)

	c.finalizedMu.RLock()
	finalizedRoot := c.finalizedHead.BlockRoot
	c.finalizedMu.RUnlock()

	c.fcMu.RLock()
	headRoot, err := c.forkChoice.FindHead(finalizedRoot, c.spec)
	c.fcMu.RUnlock()
	if err != nil {
		return err
	}

	c.canonicalMu.Lock()
	defer c.canonicalMu.Unlock()
	if headRoot == c.canonicalHead.BlockRoot {
		return nil
	}

	block, err := c.store.GetBlock(headRoot)
	if err != nil {
		return err
	}
	if block == nil {
		return fmt.Errorf("%w: fork choice head %s", ErrUnknownRoot, headRoot.Short())
	}
	state, err := c.store.GetState(block.StateRoot)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("%w: fork choice state %s", ErrUnknownRoot, block.StateRoot.Short())
	}

	logx.Info("chain", "fork choice moved head ", c.canonicalHead.BlockRoot.Short(), " -> ", headRoot.Short())
	return c.updateCanonicalHeadLocked(block, headRoot, state, block.StateRoot)
}

// ProduceBlock assembles an unsigned block on top of the working state for
// its current slot, drawing operations from the pool. The returned state is
// the post-state the block commits to; the caller signs the block before
// submitting it through ProcessBlock.
func (c *BeaconChain) ProduceBlock(randaoReveal types.Signature) (*types.BeaconBlock, *types.BeaconState, error) {
	c.stateMu.RLock()
	state := c.state.Copy()
	c.stateMu.RUnlock()

	parentRoot, err := state.BlockRoot(state.Slot - 1)
	if err != nil {
		return nil, nil, err
	}

	proposerSlashings, attesterSlashings := c.Pool.SlashingsForBlock(state, c.spec)
	block := &types.BeaconBlock{
		Slot:              state.Slot,
		PreviousBlockRoot: parentRoot,
		StateRoot:         c.spec.ZeroHash,
		Body: types.BeaconBlockBody{
			RandaoReveal:      randaoReveal,
			Eth1Data:          state.LatestEth1Data,
			ProposerSlashings: proposerSlashings,
			AttesterSlashings: attesterSlashings,
			Attestations:      c.Pool.AttestationsForBlock(state, c.spec),
			Deposits:          c.Pool.DepositsForBlock(state, c.spec),
			VoluntaryExits:    c.Pool.VoluntaryExitsForBlock(state, c.spec),
			Transfers:         c.Pool.TransfersForBlock(state, c.spec),
		},
		Signature: c.spec.EmptySignature,
	}

	if err := transition.PerBlockProcessingWithoutVerifyingBlockSignature(state, block, c.spec); err != nil {
		return nil, nil, err
	}
	block.StateRoot = state.CanonicalRoot()

	logx.Debug("chain", "produced block at slot ", uint64(block.Slot))
	return block, state, nil
}

// UpdateState catches the working state up to the present wall-clock slot.
// A clock still before genesis is not an error; there is nothing to do.
func (c *BeaconChain) UpdateState() error {
	presentSlot, ok, err := c.clock.PresentSlot()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.CatchupState(presentSlot)
}

// CatchupState advances the working state to targetSlot with empty slots.
func (c *BeaconChain) CatchupState(targetSlot types.Slot) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	for c.state.Slot < targetSlot {
		if err := transition.PerSlotProcessing(c.state, c.spec); err != nil {
			return err
		}
	}
	return nil
}

// CanonicalHead returns the current head checkpoint. The contained state is
// shared and must be treated as read-only.
func (c *BeaconChain) CanonicalHead() Checkpoint {
	c.canonicalMu.RLock()
	defer c.canonicalMu.RUnlock()
	return c.canonicalHead
}

// FinalizedHead returns the latest finalized checkpoint. The contained state
// is shared and must be treated as read-only.
func (c *BeaconChain) FinalizedHead() Checkpoint {
	c.finalizedMu.RLock()
	defer c.finalizedMu.RUnlock()
	return c.finalizedHead
}

// HeadRoot returns the canonical head block root.
func (c *BeaconChain) HeadRoot() types.Root {
	c.canonicalMu.RLock()
	defer c.canonicalMu.RUnlock()
	return c.canonicalHead.BlockRoot
}

// State returns a copy of the working state.
func (c *BeaconChain) State() *types.BeaconState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state.Copy()
}

// PresentSlot returns the working state's slot.
func (c *BeaconChain) PresentSlot() types.Slot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state.Slot
}

// ReadSlotClock reads the wall-clock slot. ok is false before genesis.
func (c *BeaconChain) ReadSlotClock() (types.Slot, bool, error) {
	return c.clock.PresentSlot()
}

// SlotsSinceGenesis returns how many slots have elapsed since the genesis
// slot, or 0 before genesis.
func (c *BeaconChain) SlotsSinceGenesis() (uint64, error) {
	presentSlot, ok, err := c.clock.PresentSlot()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return utils.SlotsSince(c.spec.GenesisSlot, presentSlot), nil
}

// Spec returns the chain parameters the chain was opened with.
func (c *BeaconChain) Spec() *config.ChainSpec {
	return c.spec
}
