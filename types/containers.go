package types

import (
	"github.com/OffchainLabs/go-bitfield"
)

// Consensus containers. Field order is part of each container's canonical
// root, so new fields must only be appended.

// Fork tracks the current and previous fork versions for signature domains.
type Fork struct {
	PreviousVersion [4]byte `json:"previous_version"`
	CurrentVersion  [4]byte `json:"current_version"`
	Epoch           Epoch   `json:"epoch"`
}

// Eth1Data points at a deposit-contract snapshot on the eth1 chain.
type Eth1Data struct {
	DepositRoot Root `json:"deposit_root"`
	BlockHash   Root `json:"block_hash"`
}

// Crosslink is the latest crosslink record for a single shard.
type Crosslink struct {
	Epoch             Epoch `json:"epoch"`
	CrosslinkDataRoot Root  `json:"crosslink_data_root"`
}

// Validator is a single registry entry.
type Validator struct {
	Pubkey                PublicKey `json:"pubkey"`
	WithdrawalCredentials Root      `json:"withdrawal_credentials"`
	ActivationEpoch       Epoch     `json:"activation_epoch"`
	ExitEpoch             Epoch     `json:"exit_epoch"`
	Slashed               bool      `json:"slashed"`
}

// IsActiveAt reports whether the validator is in the active set at epoch.
func (v *Validator) IsActiveAt(epoch Epoch) bool {
	return v.ActivationEpoch <= epoch && epoch < v.ExitEpoch
}

// AttestationData describes the chain view a committee attests to.
type AttestationData struct {
	Slot              Slot      `json:"slot"`
	Shard             Shard     `json:"shard"`
	BeaconBlockRoot   Root      `json:"beacon_block_root"`
	TargetRoot        Root      `json:"target_root"`
	CrosslinkDataRoot Root      `json:"crosslink_data_root"`
	PreviousCrosslink Crosslink `json:"previous_crosslink"`
	SourceEpoch       Epoch     `json:"source_epoch"`
	SourceRoot        Root      `json:"source_root"`
}

// CanonicalRoot identifies the attestation data; attestations with equal
// data roots are aggregated together in the operation pool.
func (d *AttestationData) CanonicalRoot() Root {
	h := newHasher()
	h.uint64(uint64(d.Slot))
	h.uint64(uint64(d.Shard))
	h.root(d.BeaconBlockRoot)
	h.root(d.TargetRoot)
	h.root(d.CrosslinkDataRoot)
	h.uint64(uint64(d.PreviousCrosslink.Epoch))
	h.root(d.PreviousCrosslink.CrosslinkDataRoot)
	h.uint64(uint64(d.SourceEpoch))
	h.root(d.SourceRoot)
	return h.sum()
}

// Attestation is a (possibly aggregated) committee vote.
type Attestation struct {
	AggregationBits bitfield.Bitlist `json:"aggregation_bits"`
	Data            AttestationData  `json:"data"`
	Signature       Signature        `json:"signature"`
}

// SigningRoot is the message a committee member signs: the data alone, so
// widening the participation bits during aggregation does not invalidate an
// already collected signature.
func (a *Attestation) SigningRoot() Root {
	return a.Data.CanonicalRoot()
}

// CanonicalRoot identifies the attestation including its participation bits.
func (a *Attestation) CanonicalRoot() Root {
	h := newHasher()
	h.bytes(a.AggregationBits)
	h.root(a.Data.CanonicalRoot())
	h.bytes(a.Signature[:])
	return h.sum()
}

// PendingAttestation is an attestation retained in state until epoch
// processing consumes it.
type PendingAttestation struct {
	AggregationBits bitfield.Bitlist `json:"aggregation_bits"`
	Data            AttestationData  `json:"data"`
	InclusionSlot   Slot             `json:"inclusion_slot"`
}

// Deposit registers a new validator or tops up an existing one.
type Deposit struct {
	Index                 uint64    `json:"index"`
	Pubkey                PublicKey `json:"pubkey"`
	WithdrawalCredentials Root      `json:"withdrawal_credentials"`
	Amount                Gwei      `json:"amount"`
	Signature             Signature `json:"signature"`
}

// SigningRoot covers every field except the signature.
func (d *Deposit) SigningRoot() Root {
	h := newHasher()
	h.uint64(d.Index)
	h.bytes(d.Pubkey[:])
	h.root(d.WithdrawalCredentials)
	h.uint64(uint64(d.Amount))
	return h.sum()
}

// CanonicalRoot identifies the deposit.
func (d *Deposit) CanonicalRoot() Root {
	h := newHasher()
	h.root(d.SigningRoot())
	h.bytes(d.Signature[:])
	return h.sum()
}

// VoluntaryExit is a validator-initiated registry exit.
type VoluntaryExit struct {
	Epoch          Epoch          `json:"epoch"`
	ValidatorIndex ValidatorIndex `json:"validator_index"`
	Signature      Signature      `json:"signature"`
}

// SigningRoot covers every field except the signature.
func (e *VoluntaryExit) SigningRoot() Root {
	h := newHasher()
	h.uint64(uint64(e.Epoch))
	h.uint64(uint64(e.ValidatorIndex))
	return h.sum()
}

// Transfer moves balance between two validators.
type Transfer struct {
	Sender    ValidatorIndex `json:"sender"`
	Recipient ValidatorIndex `json:"recipient"`
	Amount    Gwei           `json:"amount"`
	Fee       Gwei           `json:"fee"`
	Slot      Slot           `json:"slot"`
	Pubkey    PublicKey      `json:"pubkey"`
	Signature Signature      `json:"signature"`
}

// SigningRoot covers every field except the signature.
func (t *Transfer) SigningRoot() Root {
	h := newHasher()
	h.uint64(uint64(t.Sender))
	h.uint64(uint64(t.Recipient))
	h.uint64(uint64(t.Amount))
	h.uint64(uint64(t.Fee))
	h.uint64(uint64(t.Slot))
	h.bytes(t.Pubkey[:])
	return h.sum()
}

// ProposerSlashing proves a proposer signed two distinct headers at one slot.
type ProposerSlashing struct {
	ProposerIndex ValidatorIndex    `json:"proposer_index"`
	Header1       BeaconBlockHeader `json:"header_1"`
	Header2       BeaconBlockHeader `json:"header_2"`
}

// AttesterSlashing proves validators signed two conflicting attestations.
type AttesterSlashing struct {
	Attestation1 Attestation `json:"attestation_1"`
	Attestation2 Attestation `json:"attestation_2"`
}
