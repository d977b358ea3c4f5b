// Package db abstracts the low-level key-value backends the content store
// runs on.
package db

// DatabaseProvider abstracts raw key-value operations so the store can work
// with different backends without knowing implementation details.
type DatabaseProvider interface {
	// Get retrieves a value by key. An absent key yields (nil, nil).
	Get(key []byte) ([]byte, error)

	// Put stores a key-value pair durably before returning.
	Put(key, value []byte) error

	// Delete removes a key-value pair.
	Delete(key []byte) error

	// Has checks if a key exists.
	Has(key []byte) (bool, error)

	// Batch returns a new batch for atomic multi-key writes.
	Batch() DatabaseBatch

	// Close closes the database.
	Close() error
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// DatabaseBatch collects writes committed atomically by Write.
type DatabaseBatch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
	Reset()
}
