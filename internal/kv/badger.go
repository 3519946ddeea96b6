package kv

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps entries in a Badger directory.
type BadgerStore struct {
	db    *badger.DB
	quota int64
}

func OpenBadger(path string, quota int64) (*BadgerStore, error) {
	if path == "" {
		return nil, errors.New("badger path is required")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, quota: quota}, nil
}

func (s *BadgerStore) Get(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get entry: %w", err)
	}
	return string(value), true, nil
}

func (s *BadgerStore) Set(key string, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if s.quota > 0 {
			used, err := usage(txn, key)
			if err != nil {
				return err
			}
			if overQuota(s.quota, used, key, value) {
				return ErrQuotaExceeded
			}
		}
		return txn.Set([]byte(key), []byte(value))
	})
	if errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	if err != nil {
		return fmt.Errorf("set entry: %w", err)
	}
	return nil
}

func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *BadgerStore) Keys() ([]string, error) {
	keys := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// usage sums key and value sizes of every entry except skip.
func usage(txn *badger.Txn, skip string) (int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var used int64
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if string(item.Key()) == skip {
			continue
		}
		used += int64(len(item.Key())) + item.ValueSize()
	}
	return used, nil
}
