package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/actor-evm/storage"
)

func newStorage(t *testing.T) (storage.Storage, func()) {
	t.Helper()

	dir := t.TempDir()

	s, err := NewBoltDBStorage(filepath.Join(dir, "evm.db"), hclog.NewNullLogger())
	require.NoError(t, err)

	closeFn := func() {
		require.NoError(t, s.Close())
	}

	return s, closeFn
}

func TestStorage(t *testing.T) {
	t.Parallel()

	storage.TestStorage(t, newStorage)
}
