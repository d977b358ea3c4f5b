package transition

import (
	"crypto/sha256"
	"encoding/binary"

	"lumen/config"
	"lumen/sigx"
	"lumen/types"
)

// PerBlockProcessing applies a block to a state already transitioned to the
// block's slot, verifying the proposer signature.
func PerBlockProcessing(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec) error {
	return processBlock(state, block, spec, true)
}

// PerBlockProcessingWithoutVerifyingBlockSignature is the production-path
// variant: the proposer signature is added by a separate signer after the
// block is assembled, so it cannot be checked here.
func PerBlockProcessingWithoutVerifyingBlockSignature(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec) error {
	return processBlock(state, block, spec, false)
}

func processBlock(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec, verifyProposerSignature bool) error {
	if err := processBlockHeader(state, block, spec, verifyProposerSignature); err != nil {
		return err
	}
	if err := processRandao(state, block, spec); err != nil {
		return err
	}
	processEth1Data(state, block)
	return processOperations(state, block, spec)
}

func processBlockHeader(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec, verifyProposerSignature bool) error {
	if block.Slot != state.Slot {
		return invalidf("block slot %d does not match state slot %d", block.Slot, state.Slot)
	}

	expectedParent := state.LatestBlockHeader.CanonicalRoot()
	if block.PreviousBlockRoot != expectedParent {
		return invalidf("parent root %s does not match latest header root %s",
			block.PreviousBlockRoot.Short(), expectedParent.Short())
	}

	proposer, err := state.BeaconProposerIndex(block.Slot, spec.SlotsPerEpoch)
	if err != nil {
		return err
	}
	validator := &state.ValidatorRegistry[proposer]
	if validator.Slashed {
		return invalidf("proposer %d is slashed", proposer)
	}
	if verifyProposerSignature {
		if !sigx.Verify(validator.Pubkey, block.SigningRoot(), config.DomainBeaconProposer, block.Signature) {
			return invalidf("bad proposer signature from validator %d", proposer)
		}
	}

	// Record the header with a zero state root; the next slot transition
	// backfills it once the post-state root is known.
	header := block.Header()
	header.StateRoot = spec.ZeroHash
	header.Signature = spec.EmptySignature
	state.LatestBlockHeader = header

	return nil
}

func processRandao(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec) error {
	proposer, err := state.BeaconProposerIndex(block.Slot, spec.SlotsPerEpoch)
	if err != nil {
		return err
	}
	epoch := state.CurrentEpoch(spec.SlotsPerEpoch)
	if !sigx.Verify(state.ValidatorRegistry[proposer].Pubkey, RandaoSigningRoot(epoch), config.DomainRandao, block.Body.RandaoReveal) {
		return invalidf("bad randao reveal from proposer %d", proposer)
	}

	mix := xorRoots(state.RandaoMix(epoch), types.HashBytes(block.Body.RandaoReveal[:]))
	state.SetRandaoMix(epoch, mix)
	return nil
}

// RandaoSigningRoot is the message a proposer's randao reveal signs for an
// epoch. Exposed so reveal producers and the verifier here agree on it.
func RandaoSigningRoot(epoch types.Epoch) types.Root {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(epoch))
	return sha256.Sum256(buf[:])
}

func xorRoots(a, b types.Root) types.Root {
	var out types.Root
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func processEth1Data(state *types.BeaconState, block *types.BeaconBlock) {
	state.LatestEth1Data = block.Body.Eth1Data
}

func processOperations(state *types.BeaconState, block *types.BeaconBlock, spec *config.ChainSpec) error {
	body := &block.Body
	if uint64(len(body.ProposerSlashings)) > spec.MaxProposerSlashings {
		return invalidf("too many proposer slashings: %d", len(body.ProposerSlashings))
	}
	if uint64(len(body.AttesterSlashings)) > spec.MaxAttesterSlashings {
		return invalidf("too many attester slashings: %d", len(body.AttesterSlashings))
	}
	if uint64(len(body.Attestations)) > spec.MaxAttestations {
		return invalidf("too many attestations: %d", len(body.Attestations))
	}
	if uint64(len(body.Deposits)) > spec.MaxDeposits {
		return invalidf("too many deposits: %d", len(body.Deposits))
	}
	if uint64(len(body.VoluntaryExits)) > spec.MaxVoluntaryExits {
		return invalidf("too many voluntary exits: %d", len(body.VoluntaryExits))
	}
	if uint64(len(body.Transfers)) > spec.MaxTransfers {
		return invalidf("too many transfers: %d", len(body.Transfers))
	}

	for i := range body.ProposerSlashings {
		if err := ProcessProposerSlashing(state, &body.ProposerSlashings[i], spec); err != nil {
			return err
		}
	}
	for i := range body.AttesterSlashings {
		if err := ProcessAttesterSlashing(state, &body.AttesterSlashings[i], spec); err != nil {
			return err
		}
	}
	for i := range body.Attestations {
		if err := ProcessAttestation(state, &body.Attestations[i], spec); err != nil {
			return err
		}
	}
	for i := range body.Deposits {
		if err := ProcessDeposit(state, &body.Deposits[i], spec); err != nil {
			return err
		}
	}
	for i := range body.VoluntaryExits {
		if err := ProcessVoluntaryExit(state, &body.VoluntaryExits[i], spec); err != nil {
			return err
		}
	}
	proposer, err := state.BeaconProposerIndex(block.Slot, spec.SlotsPerEpoch)
	if err != nil {
		return err
	}
	for i := range body.Transfers {
		if err := ProcessTransfer(state, &body.Transfers[i], proposer, spec); err != nil {
			return err
		}
	}
	return nil
}

// ProcessProposerSlashing verifies and applies a proposer slashing.
func ProcessProposerSlashing(state *types.BeaconState, slashing *types.ProposerSlashing, spec *config.ChainSpec) error {
	if int(slashing.ProposerIndex) >= len(state.ValidatorRegistry) {
		return invalidf("proposer slashing: %v", types.ErrUnknownValidator)
	}
	validator := &state.ValidatorRegistry[slashing.ProposerIndex]
	if validator.Slashed {
		return invalidf("proposer slashing: validator %d already slashed", slashing.ProposerIndex)
	}
	if slashing.Header1.Slot != slashing.Header2.Slot {
		return invalidf("proposer slashing: headers are from different slots")
	}
	if slashing.Header1.SigningRoot() == slashing.Header2.SigningRoot() {
		return invalidf("proposer slashing: headers are identical")
	}
	for _, header := range []*types.BeaconBlockHeader{&slashing.Header1, &slashing.Header2} {
		if !sigx.Verify(validator.Pubkey, header.SigningRoot(), config.DomainBeaconProposer, header.Signature) {
			return invalidf("proposer slashing: bad header signature")
		}
	}
	slashValidator(state, slashing.ProposerIndex, spec)
	return nil
}

// ProcessAttesterSlashing verifies and applies an attester slashing: two
// conflicting attestations for the same slot slash every validator that
// participated in both.
func ProcessAttesterSlashing(state *types.BeaconState, slashing *types.AttesterSlashing, spec *config.ChainSpec) error {
	a1, a2 := &slashing.Attestation1, &slashing.Attestation2
	if a1.Data.CanonicalRoot() == a2.Data.CanonicalRoot() {
		return invalidf("attester slashing: attestations are identical")
	}
	if a1.Data.Slot != a2.Data.Slot || a1.Data.Shard != a2.Data.Shard {
		return invalidf("attester slashing: attestations are not conflicting")
	}

	participants1, err := attestationParticipants(state, a1, spec)
	if err != nil {
		return err
	}
	participants2, err := attestationParticipants(state, a2, spec)
	if err != nil {
		return err
	}
	if err := verifyAttestationSignature(state, a1, participants1); err != nil {
		return err
	}
	if err := verifyAttestationSignature(state, a2, participants2); err != nil {
		return err
	}
	in1 := make(map[types.ValidatorIndex]bool, len(participants1))
	for _, v := range participants1 {
		in1[v] = true
	}

	slashed := 0
	for _, v := range participants2 {
		if in1[v] && !state.ValidatorRegistry[v].Slashed {
			slashValidator(state, v, spec)
			slashed++
		}
	}
	if slashed == 0 {
		return invalidf("attester slashing: no slashable validators")
	}
	return nil
}

// ProcessAttestation validates an attestation against the state and records
// it as pending for epoch processing.
func ProcessAttestation(state *types.BeaconState, attestation *types.Attestation, spec *config.ChainSpec) error {
	if err := validateAttestation(state, attestation, spec, true); err != nil {
		return err
	}

	data := &attestation.Data
	pending := types.PendingAttestation{
		AggregationBits: append(attestation.AggregationBits[:0:0], attestation.AggregationBits...),
		Data:            *data,
		InclusionSlot:   state.Slot,
	}
	if data.Slot.Epoch(spec.SlotsPerEpoch) == state.CurrentEpoch(spec.SlotsPerEpoch) {
		state.CurrentEpochAttestations = append(state.CurrentEpochAttestations, pending)
	} else {
		state.PreviousEpochAttestations = append(state.PreviousEpochAttestations, pending)
	}
	return nil
}

// ValidateAttestationWithoutInclusionDelay checks everything about an
// attestation that does not depend on when it gets included. A fresh
// attestation at the current slot is not yet includable but can still be
// screened for staging.
func ValidateAttestationWithoutInclusionDelay(state *types.BeaconState, attestation *types.Attestation, spec *config.ChainSpec) error {
	return validateAttestation(state, attestation, spec, false)
}

func validateAttestation(state *types.BeaconState, attestation *types.Attestation, spec *config.ChainSpec, verifyInclusionWindow bool) error {
	data := &attestation.Data

	if verifyInclusionWindow {
		if data.Slot+types.Slot(spec.MinAttestationInclusionDelay) > state.Slot {
			return invalidf("attestation for slot %d included too early at slot %d", data.Slot, state.Slot)
		}
		if state.Slot >= data.Slot+types.Slot(spec.SlotsPerEpoch) {
			return invalidf("attestation for slot %d included too late at slot %d", data.Slot, state.Slot)
		}
	}

	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)
	targetEpoch := data.Slot.Epoch(spec.SlotsPerEpoch)
	switch {
	case targetEpoch == currentEpoch:
		if data.SourceEpoch != state.CurrentJustifiedEpoch {
			return invalidf("attestation source epoch %d does not match justified epoch %d",
				data.SourceEpoch, state.CurrentJustifiedEpoch)
		}
		if data.SourceRoot != state.CurrentJustifiedRoot {
			return invalidf("attestation source root mismatch")
		}
	case targetEpoch+1 == currentEpoch:
		if data.SourceEpoch != state.PreviousJustifiedEpoch {
			return invalidf("attestation source epoch %d does not match previous justified epoch %d",
				data.SourceEpoch, state.PreviousJustifiedEpoch)
		}
		if data.SourceRoot != state.PreviousJustifiedRoot {
			return invalidf("attestation source root mismatch")
		}
	default:
		return invalidf("attestation target epoch %d is stale at epoch %d", targetEpoch, currentEpoch)
	}

	if uint64(data.Shard) >= spec.ShardCount {
		return invalidf("attestation shard %d out of range", data.Shard)
	}

	committee := state.CommitteeFor(data.Slot, data.Shard, spec.SlotsPerEpoch, spec.ShardCount)
	if len(committee) == 0 {
		return invalidf("attestation for empty committee at slot %d shard %d", data.Slot, data.Shard)
	}
	if attestation.AggregationBits.Len() != uint64(len(committee)) {
		return invalidf("attestation bitlist length %d does not match committee size %d",
			attestation.AggregationBits.Len(), len(committee))
	}
	if attestation.AggregationBits.Count() == 0 {
		return invalidf("attestation has no participants")
	}

	participants, err := attestationParticipants(state, attestation, spec)
	if err != nil {
		return err
	}
	return verifyAttestationSignature(state, attestation, participants)
}

// verifyAttestationSignature accepts a signature from any participant. Each
// attestation carries one ed25519 signature; pool aggregation only widens the
// participation bits, so the original signer stays in the set.
func verifyAttestationSignature(state *types.BeaconState, attestation *types.Attestation, participants []types.ValidatorIndex) error {
	message := attestation.SigningRoot()
	for _, v := range participants {
		if sigx.Verify(state.ValidatorRegistry[v].Pubkey, message, config.DomainAttestation, attestation.Signature) {
			return nil
		}
	}
	return invalidf("attestation signature matches no participant")
}

// ProcessDeposit applies a deposit, registering a new validator or topping
// up an existing one. Deposits must arrive in contract order.
func ProcessDeposit(state *types.BeaconState, deposit *types.Deposit, spec *config.ChainSpec) error {
	if deposit.Index != state.DepositIndex {
		return invalidf("deposit index %d does not match expected index %d", deposit.Index, state.DepositIndex)
	}
	if deposit.Amount < spec.MinDepositAmount {
		return invalidf("deposit amount %d below minimum %d", deposit.Amount, spec.MinDepositAmount)
	}
	if !sigx.Verify(deposit.Pubkey, deposit.SigningRoot(), config.DomainDeposit, deposit.Signature) {
		return invalidf("bad deposit signature for index %d", deposit.Index)
	}

	state.DepositIndex++

	if index, ok := state.ValidatorIndexByPubkey(deposit.Pubkey); ok {
		state.Balances[index] += deposit.Amount
		return nil
	}

	state.ValidatorRegistry = append(state.ValidatorRegistry, types.Validator{
		Pubkey:                deposit.Pubkey,
		WithdrawalCredentials: deposit.WithdrawalCredentials,
		ActivationEpoch:       state.CurrentEpoch(spec.SlotsPerEpoch) + 1,
		ExitEpoch:             config.FarFutureEpoch,
	})
	state.Balances = append(state.Balances, deposit.Amount)
	return nil
}

// ProcessVoluntaryExit verifies and applies a validator-initiated exit.
func ProcessVoluntaryExit(state *types.BeaconState, exit *types.VoluntaryExit, spec *config.ChainSpec) error {
	if int(exit.ValidatorIndex) >= len(state.ValidatorRegistry) {
		return invalidf("voluntary exit: %v", types.ErrUnknownValidator)
	}
	validator := &state.ValidatorRegistry[exit.ValidatorIndex]
	currentEpoch := state.CurrentEpoch(spec.SlotsPerEpoch)
	if !validator.IsActiveAt(currentEpoch) {
		return invalidf("voluntary exit: validator %d is not active", exit.ValidatorIndex)
	}
	if validator.ExitEpoch != config.FarFutureEpoch {
		return invalidf("voluntary exit: validator %d already exiting", exit.ValidatorIndex)
	}
	if currentEpoch < validator.ActivationEpoch+types.Epoch(spec.PersistentCommitteePeriod) {
		return invalidf("voluntary exit: validator %d has not served the persistent committee period", exit.ValidatorIndex)
	}
	if exit.Epoch > currentEpoch {
		return invalidf("voluntary exit: exit epoch %d is in the future", exit.Epoch)
	}
	if !sigx.Verify(validator.Pubkey, exit.SigningRoot(), config.DomainVoluntaryExit, exit.Signature) {
		return invalidf("voluntary exit: bad signature from validator %d", exit.ValidatorIndex)
	}
	validator.ExitEpoch = currentEpoch + 1
	return nil
}

// ProcessTransfer verifies and applies a balance transfer; the fee goes to
// the block proposer.
func ProcessTransfer(state *types.BeaconState, transfer *types.Transfer, proposer types.ValidatorIndex, spec *config.ChainSpec) error {
	if int(transfer.Sender) >= len(state.ValidatorRegistry) || int(transfer.Recipient) >= len(state.ValidatorRegistry) {
		return invalidf("transfer: %v", types.ErrUnknownValidator)
	}
	if transfer.Slot != state.Slot {
		return invalidf("transfer for slot %d applied at slot %d", transfer.Slot, state.Slot)
	}
	sender := &state.ValidatorRegistry[transfer.Sender]
	if sender.Pubkey != transfer.Pubkey {
		return invalidf("transfer: pubkey does not match sender %d", transfer.Sender)
	}
	total := transfer.Amount + transfer.Fee
	if total < transfer.Amount {
		return invalidf("transfer: amount plus fee overflows")
	}
	if state.Balances[transfer.Sender] < total {
		return invalidf("transfer: sender %d balance %d below %d", transfer.Sender, state.Balances[transfer.Sender], total)
	}
	if !sigx.Verify(transfer.Pubkey, transfer.SigningRoot(), config.DomainTransfer, transfer.Signature) {
		return invalidf("transfer: bad signature from sender %d", transfer.Sender)
	}
	state.Balances[transfer.Sender] -= total
	state.Balances[transfer.Recipient] += transfer.Amount
	state.Balances[proposer] += transfer.Fee
	return nil
}

// attestationParticipants maps an attestation's set bits onto validator
// indices through the committee assignment.
func attestationParticipants(state *types.BeaconState, attestation *types.Attestation, spec *config.ChainSpec) ([]types.ValidatorIndex, error) {
	committee := state.CommitteeFor(attestation.Data.Slot, attestation.Data.Shard, spec.SlotsPerEpoch, spec.ShardCount)
	if attestation.AggregationBits.Len() != uint64(len(committee)) {
		return nil, invalidf("bitlist length %d does not match committee size %d",
			attestation.AggregationBits.Len(), len(committee))
	}
	var participants []types.ValidatorIndex
	for i, v := range committee {
		if attestation.AggregationBits.BitAt(uint64(i)) {
			participants = append(participants, v)
		}
	}
	return participants, nil
}

// slashValidator marks a validator slashed, burns part of its balance and
// schedules its exit.
func slashValidator(state *types.BeaconState, index types.ValidatorIndex, spec *config.ChainSpec) {
	validator := &state.ValidatorRegistry[index]
	validator.Slashed = true
	if validator.ExitEpoch == config.FarFutureEpoch {
		validator.ExitEpoch = state.CurrentEpoch(spec.SlotsPerEpoch) + 1
	}
	penalty := state.EffectiveBalance(index, spec.MaxDepositAmount) / 32
	if state.Balances[index] < penalty {
		penalty = state.Balances[index]
	}
	state.Balances[index] -= penalty
}
