package types

// BeaconBlockHeader is the fixed-size summary of a block. Light clients track
// headers without the bodies behind them.
type BeaconBlockHeader struct {
	Slot              Slot      `json:"slot"`
	PreviousBlockRoot Root      `json:"previous_block_root"`
	StateRoot         Root      `json:"state_root"`
	BlockBodyRoot     Root      `json:"block_body_root"`
	Signature         Signature `json:"signature"`
}

// SigningRoot covers every header field except the proposer signature.
func (h *BeaconBlockHeader) SigningRoot() Root {
	hs := newHasher()
	hs.uint64(uint64(h.Slot))
	hs.root(h.PreviousBlockRoot)
	hs.root(h.StateRoot)
	hs.root(h.BlockBodyRoot)
	return hs.sum()
}

// CanonicalRoot identifies the header. The proposer signature is excluded so
// the identity is stable before and after signing.
func (h *BeaconBlockHeader) CanonicalRoot() Root {
	return h.SigningRoot()
}

// BeaconBlockBody carries the operations included in a block.
type BeaconBlockBody struct {
	RandaoReveal      Signature          `json:"randao_reveal"`
	Eth1Data          Eth1Data           `json:"eth1_data"`
	ProposerSlashings []ProposerSlashing `json:"proposer_slashings"`
	AttesterSlashings []AttesterSlashing `json:"attester_slashings"`
	Attestations      []Attestation      `json:"attestations"`
	Deposits          []Deposit          `json:"deposits"`
	VoluntaryExits    []VoluntaryExit    `json:"voluntary_exits"`
	Transfers         []Transfer         `json:"transfers"`
}

// CanonicalRoot identifies the body contents.
func (b *BeaconBlockBody) CanonicalRoot() Root {
	h := newHasher()
	h.bytes(b.RandaoReveal[:])
	h.root(b.Eth1Data.DepositRoot)
	h.root(b.Eth1Data.BlockHash)
	h.uint64(uint64(len(b.ProposerSlashings)))
	for i := range b.ProposerSlashings {
		ps := &b.ProposerSlashings[i]
		h.uint64(uint64(ps.ProposerIndex))
		h.root(ps.Header1.SigningRoot())
		h.bytes(ps.Header1.Signature[:])
		h.root(ps.Header2.SigningRoot())
		h.bytes(ps.Header2.Signature[:])
	}
	h.uint64(uint64(len(b.AttesterSlashings)))
	for i := range b.AttesterSlashings {
		as := &b.AttesterSlashings[i]
		h.root(as.Attestation1.CanonicalRoot())
		h.root(as.Attestation2.CanonicalRoot())
	}
	h.uint64(uint64(len(b.Attestations)))
	for i := range b.Attestations {
		h.root(b.Attestations[i].CanonicalRoot())
	}
	h.uint64(uint64(len(b.Deposits)))
	for i := range b.Deposits {
		h.root(b.Deposits[i].CanonicalRoot())
	}
	h.uint64(uint64(len(b.VoluntaryExits)))
	for i := range b.VoluntaryExits {
		e := &b.VoluntaryExits[i]
		h.root(e.SigningRoot())
		h.bytes(e.Signature[:])
	}
	h.uint64(uint64(len(b.Transfers)))
	for i := range b.Transfers {
		t := &b.Transfers[i]
		h.root(t.SigningRoot())
		h.bytes(t.Signature[:])
	}
	return h.sum()
}

// BeaconBlock is a full consensus block. Immutable once constructed.
type BeaconBlock struct {
	Slot              Slot            `json:"slot"`
	PreviousBlockRoot Root            `json:"previous_block_root"`
	StateRoot         Root            `json:"state_root"`
	Body              BeaconBlockBody `json:"body"`
	Signature         Signature       `json:"signature"`
}

// Header derives the block's header, hashing the body down to its root.
func (b *BeaconBlock) Header() BeaconBlockHeader {
	return BeaconBlockHeader{
		Slot:              b.Slot,
		PreviousBlockRoot: b.PreviousBlockRoot,
		StateRoot:         b.StateRoot,
		BlockBodyRoot:     b.Body.CanonicalRoot(),
		Signature:         b.Signature,
	}
}

// CanonicalRoot identifies the block. It equals the canonical root of the
// block's header, so a header-only insertion and a later full insertion of
// the same block resolve to one identity.
func (b *BeaconBlock) CanonicalRoot() Root {
	h := b.Header()
	return h.CanonicalRoot()
}

// SigningRoot is the message the proposer signs.
func (b *BeaconBlock) SigningRoot() Root {
	h := b.Header()
	return h.SigningRoot()
}
