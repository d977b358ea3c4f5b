package oppool

import (
	"errors"

	"lumen/config"
	"lumen/sigx"
	"lumen/types"
)

var (
	errBitlistMismatch   = errors.New("oppool: aggregation bitfield length mismatch")
	errDepositStale      = errors.New("oppool: deposit index already consumed")
	errDepositTooSmall   = errors.New("oppool: deposit below minimum amount")
	errDepositBadSig     = errors.New("oppool: invalid deposit signature")
	errTransferStale     = errors.New("oppool: transfer slot already passed")
	errTransferBadSig    = errors.New("oppool: invalid transfer signature")
	errTransferUnknown   = errors.New("oppool: transfer sender not in registry")
	errTransferInsolvent = errors.New("oppool: transfer exceeds sender balance")
	errTransferWrongKey  = errors.New("oppool: transfer pubkey does not match sender")
)

// Deposits may target indices beyond the state's deposit index, so only the
// state-independent checks run at insert time. Ordering against the contract
// index is enforced when the deposit is drawn for a block.
func validateDepositStateless(deposit *types.Deposit, spec *config.ChainSpec) error {
	if deposit.Amount < spec.MinDepositAmount {
		return errDepositTooSmall
	}
	if !sigx.Verify(deposit.Pubkey, deposit.SigningRoot(), config.DomainDeposit, deposit.Signature) {
		return errDepositBadSig
	}
	return nil
}

func validateTransferAgainstState(transfer *types.Transfer, state *types.BeaconState, spec *config.ChainSpec) error {
	if int(transfer.Sender) >= len(state.ValidatorRegistry) {
		return errTransferUnknown
	}
	if state.ValidatorRegistry[transfer.Sender].Pubkey != transfer.Pubkey {
		return errTransferWrongKey
	}
	total := transfer.Amount + transfer.Fee
	if total < transfer.Amount {
		return errTransferInsolvent
	}
	if state.Balances[transfer.Sender] < total {
		return errTransferInsolvent
	}
	if !sigx.Verify(transfer.Pubkey, transfer.SigningRoot(), config.DomainTransfer, transfer.Signature) {
		return errTransferBadSig
	}
	return nil
}
