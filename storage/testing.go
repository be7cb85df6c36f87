package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type PlaceholderStorage func(t *testing.T) (Storage, func())

// TestStorage runs the common storage suite against a backend
func TestStorage(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	t.Run("testGetMissing", func(t *testing.T) {
		testGetMissing(t, m)
	})
	t.Run("testBatch", func(t *testing.T) {
		testBatch(t, m)
	})
	t.Run("testBatchDelete", func(t *testing.T) {
		testBatchDelete(t, m)
	})
}

func testGetMissing(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	v, ok, err := s.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func testBatch(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	k1 := Key(SLOT, []byte{0x1}, []byte{0x2})
	k2 := Key(CODE, []byte{0x3})

	b := s.NewBatch()
	b.Put(k1, []byte{0xa})
	b.Put(k2, []byte{0xb, 0xc})

	// nothing is visible before the batch is written
	_, ok, err := s.Get(k1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Write())

	v, ok, err := s.Get(k1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xa}, v)

	v, ok, err = s.Get(k2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0xb, 0xc}, v)
}

func testBatchDelete(t *testing.T, m PlaceholderStorage) {
	t.Helper()

	s, closeFn := m(t)
	defer closeFn()

	k := Key(ACCOUNT, []byte{0x1})

	b := s.NewBatch()
	b.Put(k, []byte{0x1})
	require.NoError(t, b.Write())

	b = s.NewBatch()
	b.Delete(k)
	require.NoError(t, b.Write())

	_, ok, err := s.Get(k)
	require.NoError(t, err)
	assert.False(t, ok)
}
