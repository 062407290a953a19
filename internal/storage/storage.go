// Package storage is the key-value layer under the local triple graph.
// Every key is namespaced by a one-byte table tag.
package storage

import "errors"

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage opens transactions over the key-value store.
type Storage interface {
	Begin(writable bool) (Transaction, error)
	Close() error
	// Sync flushes pending writes to disk.
	Sync() error
}

// Transaction is a snapshot of the store. Writes are visible to other
// transactions after Commit.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Scan iterates over the keys of table starting with prefix. A nil
	// prefix scans the whole table.
	Scan(table Table, prefix []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator walks the entries of one table in key order.
type Iterator interface {
	Next() bool
	// Key returns the current key without its table tag.
	Key() []byte
	Value() ([]byte, error)
	Close() error
}

// Table tags a group of keys.
type Table byte

const (
	// TableID2Str maps hashed terms to their lexical form.
	TableID2Str Table = iota
	TableSPO
	TablePOS
	TableOSP

	numTables
)

var tableNames = [numTables]string{"id2str", "spo", "pos", "osp"}

func (t Table) String() string {
	if t < numTables {
		return tableNames[t]
	}
	return "unknown"
}

// tableKey prepends the tag of table to key.
func tableKey(table Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(table)
	copy(out[1:], key)
	return out
}
