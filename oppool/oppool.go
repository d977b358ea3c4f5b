// Package oppool stages unconfirmed operations (attestations, deposits,
// exits, transfers and slashings) until a produced block includes them.
// Every insert validates the operation against the state supplied by the
// caller; a failed insert never mutates the pool.
package oppool

import (
	"sort"
	"sync"

	"lumen/config"
	"lumen/logx"
	"lumen/transition"
	"lumen/types"
)

// DepositInsertStatus reports how an inserted deposit related to the pool's
// existing contents.
type DepositInsertStatus int

const (
	// DepositInserted means the deposit was new.
	DepositInserted DepositInsertStatus = iota
	// DepositDuplicate means an identical deposit was already pooled.
	DepositDuplicate
	// DepositReplaced means a different deposit at the same index was
	// overwritten.
	DepositReplaced
)

// OperationPool aggregates pending operations for block production. Safe for
// concurrent use; the pool lock is independent of the chain's head locks.
type OperationPool struct {
	mu sync.RWMutex

	// Attestations keyed by attestation data root; equal data aggregates by
	// bitfield union.
	attestations map[types.Root]*types.Attestation

	deposits          map[uint64]*types.Deposit
	exits             map[types.ValidatorIndex]*types.VoluntaryExit
	transfers         map[types.Root]*types.Transfer
	proposerSlashings map[types.ValidatorIndex]*types.ProposerSlashing
	attesterSlashings map[types.Root]*types.AttesterSlashing
}

// New creates an empty operation pool.
func New() *OperationPool {
	return &OperationPool{
		attestations:      make(map[types.Root]*types.Attestation),
		deposits:          make(map[uint64]*types.Deposit),
		exits:             make(map[types.ValidatorIndex]*types.VoluntaryExit),
		transfers:         make(map[types.Root]*types.Transfer),
		proposerSlashings: make(map[types.ValidatorIndex]*types.ProposerSlashing),
		attesterSlashings: make(map[types.Root]*types.AttesterSlashing),
	}
}

// InsertAttestation validates an attestation against state and pools it,
// aggregating with an existing attestation over the same data. The
// inclusion-delay window is deliberately not enforced here; a fresh
// attestation becomes includable a slot later.
func (p *OperationPool) InsertAttestation(attestation *types.Attestation, state *types.BeaconState, spec *config.ChainSpec) error {
	if err := transition.ValidateAttestationWithoutInclusionDelay(state, attestation, spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dataRoot := attestation.Data.CanonicalRoot()
	existing, ok := p.attestations[dataRoot]
	if !ok {
		stored := *attestation
		stored.AggregationBits = append(attestation.AggregationBits[:0:0], attestation.AggregationBits...)
		p.attestations[dataRoot] = &stored
		return nil
	}

	// Union the participation bits. A superseded attestation (no new bits)
	// leaves the pool untouched.
	if existing.AggregationBits.Len() != attestation.AggregationBits.Len() {
		return errBitlistMismatch
	}
	merged := false
	for i := uint64(0); i < attestation.AggregationBits.Len(); i++ {
		if attestation.AggregationBits.BitAt(i) && !existing.AggregationBits.BitAt(i) {
			existing.AggregationBits.SetBitAt(i, true)
			merged = true
		}
	}
	if merged {
		logx.Debug("oppool", "aggregated attestation ", dataRoot.Short())
	}
	return nil
}

// InsertDeposit validates a deposit and pools it by contract index.
func (p *OperationPool) InsertDeposit(deposit *types.Deposit, state *types.BeaconState, spec *config.ChainSpec) (DepositInsertStatus, error) {
	if deposit.Index < state.DepositIndex {
		return 0, errDepositStale
	}
	if err := validateDepositStateless(deposit, spec); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.deposits[deposit.Index]; ok {
		if existing.CanonicalRoot() == deposit.CanonicalRoot() {
			return DepositDuplicate, nil
		}
		p.deposits[deposit.Index] = deposit
		return DepositReplaced, nil
	}
	p.deposits[deposit.Index] = deposit
	return DepositInserted, nil
}

// InsertVoluntaryExit validates an exit against state and pools it.
func (p *OperationPool) InsertVoluntaryExit(exit *types.VoluntaryExit, state *types.BeaconState, spec *config.ChainSpec) error {
	if err := transition.ProcessVoluntaryExit(state.Copy(), exit, spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.exits[exit.ValidatorIndex] = exit
	return nil
}

// InsertTransfer validates a transfer against state and pools it. The
// transfer stays pooled until the chain reaches its slot.
func (p *OperationPool) InsertTransfer(transfer *types.Transfer, state *types.BeaconState, spec *config.ChainSpec) error {
	if transfer.Slot < state.Slot {
		return errTransferStale
	}
	if err := validateTransferAgainstState(transfer, state, spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.transfers[transfer.SigningRoot()] = transfer
	return nil
}

// InsertProposerSlashing validates a proposer slashing against state and
// pools it.
func (p *OperationPool) InsertProposerSlashing(slashing *types.ProposerSlashing, state *types.BeaconState, spec *config.ChainSpec) error {
	if err := transition.ProcessProposerSlashing(state.Copy(), slashing, spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.proposerSlashings[slashing.ProposerIndex] = slashing
	return nil
}

// InsertAttesterSlashing validates an attester slashing against state and
// pools it.
func (p *OperationPool) InsertAttesterSlashing(slashing *types.AttesterSlashing, state *types.BeaconState, spec *config.ChainSpec) error {
	if err := transition.ProcessAttesterSlashing(state.Copy(), slashing, spec); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	root := slashing.Attestation1.Data.CanonicalRoot()
	p.attesterSlashings[root] = slashing
	return nil
}

// AttestationsForBlock returns the pooled attestations includable in a block
// built on state, up to the spec maximum.
func (p *OperationPool) AttestationsForBlock(state *types.BeaconState, spec *config.ChainSpec) []types.Attestation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.Attestation
	for _, attestation := range p.attestations {
		if uint64(len(out)) >= spec.MaxAttestations {
			break
		}
		if transition.ProcessAttestation(state.Copy(), attestation, spec) != nil {
			continue
		}
		stored := *attestation
		stored.AggregationBits = append(attestation.AggregationBits[:0:0], attestation.AggregationBits...)
		out = append(out, stored)
	}
	sortAttestations(out)
	return out
}

// DepositsForBlock returns the next run of deposits starting at the state's
// deposit index, in contract order.
func (p *OperationPool) DepositsForBlock(state *types.BeaconState, spec *config.ChainSpec) []types.Deposit {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.Deposit
	for index := state.DepositIndex; uint64(len(out)) < spec.MaxDeposits; index++ {
		deposit, ok := p.deposits[index]
		if !ok {
			break
		}
		out = append(out, *deposit)
	}
	return out
}

// VoluntaryExitsForBlock returns pooled exits still valid against state.
func (p *OperationPool) VoluntaryExitsForBlock(state *types.BeaconState, spec *config.ChainSpec) []types.VoluntaryExit {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.VoluntaryExit
	for _, exit := range p.exits {
		if uint64(len(out)) >= spec.MaxVoluntaryExits {
			break
		}
		if transition.ProcessVoluntaryExit(state.Copy(), exit, spec) != nil {
			continue
		}
		out = append(out, *exit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidatorIndex < out[j].ValidatorIndex })
	return out
}

// TransfersForBlock returns pooled transfers whose slot matches the state.
func (p *OperationPool) TransfersForBlock(state *types.BeaconState, spec *config.ChainSpec) []types.Transfer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.Transfer
	for _, transfer := range p.transfers {
		if uint64(len(out)) >= spec.MaxTransfers {
			break
		}
		if transfer.Slot != state.Slot {
			continue
		}
		if validateTransferAgainstState(transfer, state, spec) != nil {
			continue
		}
		out = append(out, *transfer)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].SigningRoot(), out[j].SigningRoot()
		return ri.Compare(rj) < 0
	})
	return out
}

// SlashingsForBlock returns a consistent snapshot of proposer and attester
// slashings still valid against state.
func (p *OperationPool) SlashingsForBlock(state *types.BeaconState, spec *config.ChainSpec) ([]types.ProposerSlashing, []types.AttesterSlashing) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var proposer []types.ProposerSlashing
	for _, slashing := range p.proposerSlashings {
		if uint64(len(proposer)) >= spec.MaxProposerSlashings {
			break
		}
		if transition.ProcessProposerSlashing(state.Copy(), slashing, spec) != nil {
			continue
		}
		proposer = append(proposer, *slashing)
	}
	sort.Slice(proposer, func(i, j int) bool { return proposer[i].ProposerIndex < proposer[j].ProposerIndex })

	var attester []types.AttesterSlashing
	for _, slashing := range p.attesterSlashings {
		if uint64(len(attester)) >= spec.MaxAttesterSlashings {
			break
		}
		if transition.ProcessAttesterSlashing(state.Copy(), slashing, spec) != nil {
			continue
		}
		attester = append(attester, *slashing)
	}
	return proposer, attester
}

// Prune drops operations that can never be included on top of state:
// attestations outside the inclusion window, deposits already consumed,
// exits of exited validators, transfers for past slots and slashings of
// already-slashed validators.
func (p *OperationPool) Prune(state *types.BeaconState, spec *config.ChainSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for root, attestation := range p.attestations {
		if state.Slot >= attestation.Data.Slot+types.Slot(spec.SlotsPerEpoch) {
			delete(p.attestations, root)
		}
	}
	for index := range p.deposits {
		if index < state.DepositIndex {
			delete(p.deposits, index)
		}
	}
	for index, exit := range p.exits {
		if int(exit.ValidatorIndex) >= len(state.ValidatorRegistry) {
			continue
		}
		if state.ValidatorRegistry[exit.ValidatorIndex].ExitEpoch != config.FarFutureEpoch {
			delete(p.exits, index)
		}
	}
	for root, transfer := range p.transfers {
		if transfer.Slot < state.Slot {
			delete(p.transfers, root)
		}
	}
	for index, slashing := range p.proposerSlashings {
		if int(slashing.ProposerIndex) < len(state.ValidatorRegistry) &&
			state.ValidatorRegistry[slashing.ProposerIndex].Slashed {
			delete(p.proposerSlashings, index)
		}
	}
	for root, slashing := range p.attesterSlashings {
		if transition.ProcessAttesterSlashing(state.Copy(), slashing, spec) != nil {
			delete(p.attesterSlashings, root)
		}
	}
}

// Counts returns the number of pooled operations per kind, for diagnostics.
func (p *OperationPool) Counts() (attestations, deposits, exits, transfers, proposerSlashings, attesterSlashings int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.attestations), len(p.deposits), len(p.exits), len(p.transfers),
		len(p.proposerSlashings), len(p.attesterSlashings)
}

func sortAttestations(attestations []types.Attestation) {
	sort.Slice(attestations, func(i, j int) bool {
		if attestations[i].Data.Slot != attestations[j].Data.Slot {
			return attestations[i].Data.Slot < attestations[j].Data.Slot
		}
		ri, rj := attestations[i].Data.CanonicalRoot(), attestations[j].Data.CanonicalRoot()
		return ri.Compare(rj) < 0
	})
}
