package memory

import (
	"sync"

	"github.com/0xPolygon/actor-evm/helper/hex"
	"github.com/0xPolygon/actor-evm/storage"
)

// NewMemoryStorage creates the new storage reference with inmemory
func NewMemoryStorage() storage.Storage {
	return &memoryKV{db: map[string][]byte{}}
}

// memoryKV is an in memory implementation of the kv storage
type memoryKV struct {
	lock sync.RWMutex
	db   map[string][]byte
}

func (m *memoryKV) Get(p []byte) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.db[hex.EncodeToHex(p)]
	if !ok {
		return nil, false, nil
	}

	return v, true, nil
}

func (m *memoryKV) NewBatch() storage.Batch {
	return &memoryBatch{db: m}
}

func (m *memoryKV) Close() error {
	return nil
}

type memoryOp struct {
	key   string
	value []byte
	del   bool
}

type memoryBatch struct {
	db  *memoryKV
	ops []memoryOp
}

func (b *memoryBatch) Put(k, v []byte) {
	b.ops = append(b.ops, memoryOp{key: hex.EncodeToHex(k), value: append([]byte{}, v...)})
}

func (b *memoryBatch) Delete(k []byte) {
	b.ops = append(b.ops, memoryOp{key: hex.EncodeToHex(k), del: true})
}

func (b *memoryBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	for _, op := range b.ops {
		if op.del {
			delete(b.db.db, op.key)
		} else {
			b.db.db[op.key] = op.value
		}
	}

	b.ops = nil

	return nil
}
