// Package config holds the immutable chain specification and file loaders.
package config

import (
	"lumen/types"
)

// Signature domains. Mixed into every signed message so a signature over one
// object kind can never be replayed as another.
const (
	DomainBeaconProposer uint64 = 0
	DomainRandao         uint64 = 1
	DomainAttestation    uint64 = 2
	DomainDeposit        uint64 = 3
	DomainVoluntaryExit  uint64 = 4
	DomainTransfer       uint64 = 5
)

// FarFutureEpoch marks a validator that has not exited.
const FarFutureEpoch = types.Epoch(1<<64 - 1)

// ChainSpec is the set of protocol constants. Read-only everywhere after
// construction.
type ChainSpec struct {
	SlotsPerEpoch          uint64 `yaml:"slots_per_epoch"`
	SecondsPerSlot         uint64 `yaml:"seconds_per_slot"`
	ShardCount             uint64 `yaml:"shard_count"`
	SlotsPerHistoricalRoot uint64 `yaml:"slots_per_historical_root"`
	RandaoMixesLength      uint64 `yaml:"randao_mixes_length"`

	GenesisSlot types.Slot `yaml:"genesis_slot"`
	GenesisTime uint64     `yaml:"genesis_time"`

	MinAttestationInclusionDelay uint64 `yaml:"min_attestation_inclusion_delay"`
	PersistentCommitteePeriod    uint64 `yaml:"persistent_committee_period"`

	MaxProposerSlashings uint64 `yaml:"max_proposer_slashings"`
	MaxAttesterSlashings uint64 `yaml:"max_attester_slashings"`
	MaxAttestations      uint64 `yaml:"max_attestations"`
	MaxDeposits          uint64 `yaml:"max_deposits"`
	MaxVoluntaryExits    uint64 `yaml:"max_voluntary_exits"`
	MaxTransfers         uint64 `yaml:"max_transfers"`

	MaxDepositAmount types.Gwei `yaml:"max_deposit_amount"`
	EjectionBalance  types.Gwei `yaml:"ejection_balance"`
	MinDepositAmount types.Gwei `yaml:"min_deposit_amount"`

	// ZeroHash is the sentinel parent root of the genesis block and the
	// placeholder state root a proposer leaves for the transition to backfill.
	ZeroHash       types.Root      `yaml:"-"`
	EmptySignature types.Signature `yaml:"-"`
}

// GenesisEpoch returns the epoch containing the genesis slot.
func (s *ChainSpec) GenesisEpoch() types.Epoch {
	return s.GenesisSlot.Epoch(s.SlotsPerEpoch)
}

// MainnetSpec returns the production constants.
func MainnetSpec() *ChainSpec {
	return &ChainSpec{
		SlotsPerEpoch:                64,
		SecondsPerSlot:               6,
		ShardCount:                   1024,
		SlotsPerHistoricalRoot:       8192,
		RandaoMixesLength:            8192,
		GenesisSlot:                  0,
		MinAttestationInclusionDelay: 4,
		PersistentCommitteePeriod:    2048,
		MaxProposerSlashings:         16,
		MaxAttesterSlashings:         1,
		MaxAttestations:              128,
		MaxDeposits:                  16,
		MaxVoluntaryExits:            16,
		MaxTransfers:                 16,
		MaxDepositAmount:             32_000_000_000,
		EjectionBalance:              16_000_000_000,
		MinDepositAmount:             1_000_000_000,
	}
}

// MinimalSpec returns small constants for fast tests and devnets.
func MinimalSpec() *ChainSpec {
	s := MainnetSpec()
	s.SlotsPerEpoch = 8
	s.ShardCount = 8
	s.SlotsPerHistoricalRoot = 64
	s.RandaoMixesLength = 64
	s.SecondsPerSlot = 6
	s.MinAttestationInclusionDelay = 1
	s.PersistentCommitteePeriod = 0
	return s
}
