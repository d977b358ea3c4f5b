package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerContract exercises the semantics every backend must share.
func providerContract(t *testing.T, p DatabaseProvider) {
	t.Helper()

	// Absent keys are (nil, nil), not errors.
	v, err := p.Get([]byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, p.Put([]byte("k1"), []byte("v1")))
	v, err = p.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	ok, err := p.Has([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Overwrites replace.
	require.NoError(t, p.Put([]byte("k1"), []byte("v2")))
	v, err = p.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, p.Delete([]byte("k1")))
	ok, err = p.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Batches apply all ops on Write, none before.
	batch := p.Batch()
	batch.Put([]byte("b1"), []byte("x"))
	batch.Put([]byte("b2"), []byte("y"))
	batch.Delete([]byte("b1"))
	ok, err = p.Has([]byte("b2"))
	require.NoError(t, err)
	assert.False(t, ok, "batch must not be visible before Write")

	require.NoError(t, batch.Write())
	ok, err = p.Has([]byte("b1"))
	require.NoError(t, err)
	assert.False(t, ok)
	v, err = p.Get([]byte("b2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), v)

	// Reset discards pending ops.
	batch = p.Batch()
	batch.Put([]byte("b3"), []byte("z"))
	batch.Reset()
	require.NoError(t, batch.Write())
	ok, err = p.Has([]byte("b3"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryProvider(t *testing.T) {
	p := NewMemoryProvider()
	defer p.Close()
	providerContract(t, p)
}

func TestLevelDBProvider(t *testing.T) {
	p, err := NewLevelDBProvider(t.TempDir())
	require.NoError(t, err)
	defer p.Close()
	providerContract(t, p)
}

func TestBoltProvider(t *testing.T) {
	p, err := NewBoltProvider(t.TempDir())
	require.NoError(t, err)
	defer p.Close()
	providerContract(t, p)
}

func TestMemoryProviderCopiesValues(t *testing.T) {
	p := NewMemoryProvider()
	defer p.Close()

	value := []byte("mutable")
	require.NoError(t, p.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)

	// Mutating the returned slice must not leak back in.
	got[0] = 'Y'
	again, err := p.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), again)
}
