package types

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrSlotOutOfBounds is returned when a historical-root ring is read or
	// written outside its retained window. Callers use it to decide whether
	// an older persisted state must be loaded.
	ErrSlotOutOfBounds = errors.New("slot out of bounds of historical roots")

	// ErrUnknownValidator is returned for a validator index outside the
	// registry.
	ErrUnknownValidator = errors.New("unknown validator index")
)

// BeaconState is the full consensus state at a slot. It is mutated only by
// the transition package; every other consumer works on a Copy.
type BeaconState struct {
	Slot        Slot   `json:"slot"`
	GenesisTime uint64 `json:"genesis_time"`
	Fork        Fork   `json:"fork"`

	ValidatorRegistry []Validator `json:"validator_registry"`
	Balances          []Gwei      `json:"balances"`

	// Fixed-size rings indexed by slot modulo ring length.
	LatestBlockRoots  []Root `json:"latest_block_roots"`
	LatestStateRoots  []Root `json:"latest_state_roots"`
	LatestRandaoMixes []Root `json:"latest_randao_mixes"`

	LatestBlockHeader BeaconBlockHeader `json:"latest_block_header"`

	PreviousJustifiedEpoch Epoch  `json:"previous_justified_epoch"`
	CurrentJustifiedEpoch  Epoch  `json:"current_justified_epoch"`
	PreviousJustifiedRoot  Root   `json:"previous_justified_root"`
	CurrentJustifiedRoot   Root   `json:"current_justified_root"`
	JustificationBitfield  uint64 `json:"justification_bitfield"`
	FinalizedEpoch         Epoch  `json:"finalized_epoch"`
	FinalizedRoot          Root   `json:"finalized_root"`

	LatestCrosslinks []Crosslink `json:"latest_crosslinks"`

	LatestEth1Data Eth1Data `json:"latest_eth1_data"`
	DepositIndex   uint64   `json:"deposit_index"`

	PreviousEpochAttestations []PendingAttestation `json:"previous_epoch_attestations"`
	CurrentEpochAttestations  []PendingAttestation `json:"current_epoch_attestations"`
}

// CurrentEpoch returns the epoch of the state's slot.
func (s *BeaconState) CurrentEpoch(slotsPerEpoch uint64) Epoch {
	return s.Slot.Epoch(slotsPerEpoch)
}

// ringIndex validates that slot falls inside the retained window ending at
// the state's slot, then maps it onto the ring.
func (s *BeaconState) ringIndex(slot Slot, ringLen int) (int, error) {
	if ringLen == 0 {
		return 0, ErrSlotOutOfBounds
	}
	if slot >= s.Slot || uint64(s.Slot) > uint64(slot)+uint64(ringLen) {
		return 0, ErrSlotOutOfBounds
	}
	return int(uint64(slot) % uint64(ringLen)), nil
}

// BlockRoot returns the block root recorded for a prior slot.
func (s *BeaconState) BlockRoot(slot Slot) (Root, error) {
	i, err := s.ringIndex(slot, len(s.LatestBlockRoots))
	if err != nil {
		return Root{}, err
	}
	return s.LatestBlockRoots[i], nil
}

// SetBlockRoot records the block root for a prior slot.
func (s *BeaconState) SetBlockRoot(slot Slot, root Root) error {
	i, err := s.ringIndex(slot, len(s.LatestBlockRoots))
	if err != nil {
		return err
	}
	s.LatestBlockRoots[i] = root
	return nil
}

// StateRoot returns the state root recorded for a prior slot.
func (s *BeaconState) StateRoot(slot Slot) (Root, error) {
	i, err := s.ringIndex(slot, len(s.LatestStateRoots))
	if err != nil {
		return Root{}, err
	}
	return s.LatestStateRoots[i], nil
}

// SetStateRoot records the state root for a prior slot.
func (s *BeaconState) SetStateRoot(slot Slot, root Root) error {
	i, err := s.ringIndex(slot, len(s.LatestStateRoots))
	if err != nil {
		return err
	}
	s.LatestStateRoots[i] = root
	return nil
}

// RandaoMix returns the randao mix for an epoch, indexed modulo the mix ring.
func (s *BeaconState) RandaoMix(epoch Epoch) Root {
	return s.LatestRandaoMixes[uint64(epoch)%uint64(len(s.LatestRandaoMixes))]
}

// SetRandaoMix stores the randao mix for an epoch.
func (s *BeaconState) SetRandaoMix(epoch Epoch, mix Root) {
	s.LatestRandaoMixes[uint64(epoch)%uint64(len(s.LatestRandaoMixes))] = mix
}

// ActiveValidatorIndices returns the indices active at epoch, in registry
// order.
func (s *BeaconState) ActiveValidatorIndices(epoch Epoch) []ValidatorIndex {
	var indices []ValidatorIndex
	for i := range s.ValidatorRegistry {
		if s.ValidatorRegistry[i].IsActiveAt(epoch) {
			indices = append(indices, ValidatorIndex(i))
		}
	}
	return indices
}

// ValidatorIndexByPubkey scans the registry for the given public key.
func (s *BeaconState) ValidatorIndexByPubkey(pubkey PublicKey) (ValidatorIndex, bool) {
	for i := range s.ValidatorRegistry {
		if s.ValidatorRegistry[i].Pubkey == pubkey {
			return ValidatorIndex(i), true
		}
	}
	return 0, false
}

// BeaconProposerIndex returns the proposer for a slot within the state's
// current epoch. Selection walks the active set from an offset drawn from the
// epoch's randao mix.
func (s *BeaconState) BeaconProposerIndex(slot Slot, slotsPerEpoch uint64) (ValidatorIndex, error) {
	epoch := slot.Epoch(slotsPerEpoch)
	active := s.ActiveValidatorIndices(epoch)
	if len(active) == 0 {
		return 0, fmt.Errorf("proposer for slot %d: no active validators", slot)
	}
	seed := s.RandaoMix(epoch)
	offset := binary.BigEndian.Uint64(seed[:8])
	return active[(offset+uint64(slot))%uint64(len(active))], nil
}

// AttestationDuty is a validator's assigned attestation slot and shard for
// the state's current epoch.
type AttestationDuty struct {
	Slot  Slot
	Shard Shard
}

// AttestationDutyFor returns the duty for a validator index, or ok=false if
// the validator is not active this epoch.
func (s *BeaconState) AttestationDutyFor(index ValidatorIndex, slotsPerEpoch, shardCount uint64) (AttestationDuty, bool, error) {
	if int(index) >= len(s.ValidatorRegistry) {
		return AttestationDuty{}, false, ErrUnknownValidator
	}
	epoch := s.CurrentEpoch(slotsPerEpoch)
	active := s.ActiveValidatorIndices(epoch)
	for pos, v := range active {
		if v != index {
			continue
		}
		duty := AttestationDuty{
			Slot:  epoch.StartSlot(slotsPerEpoch) + Slot(uint64(pos)%slotsPerEpoch),
			Shard: Shard(uint64(pos) % shardCount),
		}
		return duty, true, nil
	}
	return AttestationDuty{}, false, nil
}

// CommitteeFor returns the validators assigned to attest at (slot, shard),
// in registry order. The assignment is the inverse of AttestationDutyFor: a
// validator at active-set position p serves slot epochStart+(p mod
// slotsPerEpoch) on shard p mod shardCount.
func (s *BeaconState) CommitteeFor(slot Slot, shard Shard, slotsPerEpoch, shardCount uint64) []ValidatorIndex {
	epoch := slot.Epoch(slotsPerEpoch)
	active := s.ActiveValidatorIndices(epoch)
	offset := uint64(slot) % slotsPerEpoch
	var committee []ValidatorIndex
	for pos, v := range active {
		if uint64(pos)%slotsPerEpoch == offset && uint64(pos)%shardCount == uint64(shard) {
			committee = append(committee, v)
		}
	}
	return committee
}

// EffectiveBalance returns the balance used for consensus weighting.
func (s *BeaconState) EffectiveBalance(index ValidatorIndex, maxDeposit Gwei) Gwei {
	if int(index) >= len(s.Balances) {
		return 0
	}
	if s.Balances[index] > maxDeposit {
		return maxDeposit
	}
	return s.Balances[index]
}

// CanonicalRoot is the deterministic content hash of the full state.
func (s *BeaconState) CanonicalRoot() Root {
	h := newHasher()
	h.uint64(uint64(s.Slot))
	h.uint64(s.GenesisTime)
	h.bytes(s.Fork.PreviousVersion[:])
	h.bytes(s.Fork.CurrentVersion[:])
	h.uint64(uint64(s.Fork.Epoch))
	h.uint64(uint64(len(s.ValidatorRegistry)))
	for i := range s.ValidatorRegistry {
		v := &s.ValidatorRegistry[i]
		h.bytes(v.Pubkey[:])
		h.root(v.WithdrawalCredentials)
		h.uint64(uint64(v.ActivationEpoch))
		h.uint64(uint64(v.ExitEpoch))
		h.bool(v.Slashed)
	}
	h.uint64(uint64(len(s.Balances)))
	for _, b := range s.Balances {
		h.uint64(uint64(b))
	}
	for _, r := range s.LatestBlockRoots {
		h.root(r)
	}
	for _, r := range s.LatestStateRoots {
		h.root(r)
	}
	for _, r := range s.LatestRandaoMixes {
		h.root(r)
	}
	h.root(s.LatestBlockHeader.SigningRoot())
	h.uint64(uint64(s.PreviousJustifiedEpoch))
	h.uint64(uint64(s.CurrentJustifiedEpoch))
	h.root(s.PreviousJustifiedRoot)
	h.root(s.CurrentJustifiedRoot)
	h.uint64(s.JustificationBitfield)
	h.uint64(uint64(s.FinalizedEpoch))
	h.root(s.FinalizedRoot)
	h.uint64(uint64(len(s.LatestCrosslinks)))
	for i := range s.LatestCrosslinks {
		h.uint64(uint64(s.LatestCrosslinks[i].Epoch))
		h.root(s.LatestCrosslinks[i].CrosslinkDataRoot)
	}
	h.root(s.LatestEth1Data.DepositRoot)
	h.root(s.LatestEth1Data.BlockHash)
	h.uint64(s.DepositIndex)
	h.uint64(uint64(len(s.PreviousEpochAttestations)))
	for i := range s.PreviousEpochAttestations {
		a := &s.PreviousEpochAttestations[i]
		h.bytes(a.AggregationBits)
		h.root(a.Data.CanonicalRoot())
		h.uint64(uint64(a.InclusionSlot))
	}
	h.uint64(uint64(len(s.CurrentEpochAttestations)))
	for i := range s.CurrentEpochAttestations {
		a := &s.CurrentEpochAttestations[i]
		h.bytes(a.AggregationBits)
		h.root(a.Data.CanonicalRoot())
		h.uint64(uint64(a.InclusionSlot))
	}
	return h.sum()
}

// Copy returns a deep copy of the state. Speculative work (block production,
// historical walks) must never mutate a shared state in place.
func (s *BeaconState) Copy() *BeaconState {
	cp := *s
	cp.ValidatorRegistry = append([]Validator(nil), s.ValidatorRegistry...)
	cp.Balances = append([]Gwei(nil), s.Balances...)
	cp.LatestBlockRoots = append([]Root(nil), s.LatestBlockRoots...)
	cp.LatestStateRoots = append([]Root(nil), s.LatestStateRoots...)
	cp.LatestRandaoMixes = append([]Root(nil), s.LatestRandaoMixes...)
	cp.LatestCrosslinks = append([]Crosslink(nil), s.LatestCrosslinks...)
	cp.PreviousEpochAttestations = copyPendingAttestations(s.PreviousEpochAttestations)
	cp.CurrentEpochAttestations = copyPendingAttestations(s.CurrentEpochAttestations)
	return &cp
}

func copyPendingAttestations(in []PendingAttestation) []PendingAttestation {
	if in == nil {
		return nil
	}
	out := make([]PendingAttestation, len(in))
	copy(out, in)
	for i := range out {
		out[i].AggregationBits = append(out[i].AggregationBits[:0:0], in[i].AggregationBits...)
	}
	return out
}
