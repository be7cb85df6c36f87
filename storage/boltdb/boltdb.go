package boltdb

import (
	"github.com/hashicorp/go-hclog"
	bolt "go.etcd.io/bbolt"

	"github.com/0xPolygon/actor-evm/storage"
)

var bucket = []byte("evm")

// NewBoltDBStorage creates the new storage reference with boltdb
func NewBoltDBStorage(path string, logger hclog.Logger) (storage.Storage, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)

		return err
	}); err != nil {
		db.Close()

		return nil, err
	}

	logger.Debug("boltdb storage opened", "path", path)

	return &boltDBKV{db: db}, nil
}

// boltDBKV is the boltdb implementation of the kv storage
type boltDBKV struct {
	db *bolt.DB
}

func (l *boltDBKV) Get(p []byte) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)

	err := l.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(p); v != nil {
			// v is only valid for the lifetime of the tx, therefore copying
			data = make([]byte, len(v))
			copy(data, v)
			found = true
		}

		return nil
	})

	return data, found, err
}

func (l *boltDBKV) NewBatch() storage.Batch {
	return &boltBatch{db: l.db}
}

func (l *boltDBKV) Close() error {
	return l.db.Close()
}

type boltOp struct {
	key, value []byte
	del        bool
}

type boltBatch struct {
	db  *bolt.DB
	ops []boltOp
}

func (b *boltBatch) Put(k, v []byte) {
	b.ops = append(b.ops, boltOp{key: k, value: v})
}

func (b *boltBatch) Delete(k []byte) {
	b.ops = append(b.ops, boltOp{key: k, del: true})
}

func (b *boltBatch) Write() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucket)

		for _, op := range b.ops {
			var err error
			if op.del {
				err = bkt.Delete(op.key)
			} else {
				err = bkt.Put(op.key, op.value)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
}
