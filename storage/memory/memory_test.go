package memory

import (
	"testing"

	"github.com/0xPolygon/actor-evm/storage"
)

func TestStorage(t *testing.T) {
	t.Parallel()

	f := func(t *testing.T) (storage.Storage, func()) {
		t.Helper()

		return NewMemoryStorage(), func() {}
	}

	storage.TestStorage(t, f)
}
