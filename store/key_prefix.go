package store

// Database key prefixes per object kind. Keys are prefix + 32-byte canonical
// root, except the meta keys, which are fixed.
const (
	PrefixBlock  = "blk:"
	PrefixState  = "st:"
	PrefixHeader = "hdr:"

	MetaKeyHeadRoot      = "meta:head_root"
	MetaKeyFinalizedRoot = "meta:finalized_root"
)
