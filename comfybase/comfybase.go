package comfybase

import (
	"time"

	"git.mills.io/prologic/bitcask"

	"comfymobile/logger"
)

// Store is a compressed key/value cache backed by bitcask. Node schema
// snapshots can exceed the default value size, so the limit is raised.
type Store struct {
	db *bitcask.Bitcask
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	// Increase the maximum value size to 10MB (from the default 65KB)
	db, err := bitcask.Open(path, bitcask.WithMaxValueSize(10*1024*1024))
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Merge compacts the datafiles to reclaim space.
func (s *Store) Merge() {
	logger.Info("Merging cache store to reclaim space...")
	err := s.db.Merge()
	if err != nil {
		logger.Error("Error merging cache store", "error", err)
	} else {
		logger.Info("Cache store merge complete.")
	}
}

func (s *Store) PutString(key string, value string) error {
	compressedValue, err := compress([]byte(value))
	if err != nil {
		return err
	}
	return s.db.Put(CacheKey(key), compressedValue)
}

func (s *Store) PutBytes(key string, value []byte) error {
	compressedValue, err := compress(value)
	if err != nil {
		return err
	}
	return s.db.Put(CacheKey(key), compressedValue)
}

func (s *Store) PutBytesExpire(key string, value []byte, ttl time.Duration) error {
	compressedValue, err := compress(value)
	if err != nil {
		return err
	}
	return s.db.PutWithTTL(CacheKey(key), compressedValue, ttl)
}

func (s *Store) Get(key string) ([]byte, error) {
	compressedValue, err := s.db.Get(CacheKey(key))
	if err != nil {
		return nil, err
	}
	return decompress(compressedValue)
}

func (s *Store) Has(key string) bool {
	return s.db.Has(CacheKey(key))
}

func (s *Store) Delete(key string) error {
	return s.db.Delete(CacheKey(key))
}
