package storage

// Storage is the persistent key/value surface the state layer flushes into
type Storage interface {
	Get(k []byte) ([]byte, bool, error)
	NewBatch() Batch
	Close() error
}

// Batch is a set of writes applied atomically by Write
type Batch interface {
	Put(k, v []byte)
	Delete(k []byte)
	Write() error
}

// Prefixes of the persisted entries
var (
	// ACCOUNT is the prefix of an RLP encoded account, keyed by address
	ACCOUNT = []byte("a")

	// SLOT is the prefix of a contract storage slot, keyed by address ++ key
	SLOT = []byte("s")

	// CODE is the prefix of contract code, keyed by code hash
	CODE = []byte("c")
)

// Key concatenates a prefix and the key parts
func Key(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}

	k := make([]byte, 0, size)
	k = append(k, prefix...)

	for _, p := range parts {
		k = append(k, p...)
	}

	return k
}
