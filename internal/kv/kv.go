// Package kv is the local string key-value store the offline cache writes to.
package kv

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned by Set when storing the value would push the
// store past its configured byte quota. Nothing is written in that case.
var ErrQuotaExceeded = errors.New("kv: quota exceeded")

// Store is a string-keyed, string-valued local store with whole-value writes.
//
// Why this exists:
//   - The offline cache needs the semantics of a browser's local storage: keys
//     survive restarts, values are replaced atomically, and writes can fail
//     because the device ran out of room.
//   - Backends differ (SQLite file, Badger directory, process memory) but the
//     cache must not care which one it runs on.
//
// Implementations are safe for concurrent use.
type Store interface {
	// Get returns the value for key. A missing key is not an error.
	Get(key string) (string, bool, error)

	// Set replaces the value for key, or fails with ErrQuotaExceeded.
	Set(key string, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists every key currently stored, in no particular order.
	Keys() ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Open returns a store for driver. quota is the maximum number of key plus
// value bytes kept; zero disables the limit.
func Open(driver string, path string, quota int64) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(path, quota)
	case DriverBadger:
		return OpenBadger(path, quota)
	case DriverMemory:
		return NewMemory(quota), nil
	default:
		return nil, fmt.Errorf("unknown kv driver %q", driver)
	}
}

func overQuota(quota int64, used int64, key string, value string) bool {
	return quota > 0 && used+int64(len(key)+len(value)) > quota
}
