package storage

import (
	"bytes"
	"testing"
)

func newStorage(t *testing.T) *BadgerStorage {
	t.Helper()
	s, err := NewBadgerStorage("")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetDelete(t *testing.T) {
	s := newStorage(t)

	txn, err := s.Begin(true)
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	if err := txn.Set(TableSPO, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	txn, _ = s.Begin(false)
	v, err := txn.Get(TableSPO, []byte("k"))
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if string(v) != "v" {
		t.Errorf("expected v, got %q", v)
	}
	if _, err := txn.Get(TablePOS, []byte("k")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound from another table, got %v", err)
	}
	if err := txn.Set(TableSPO, []byte("x"), nil); err != ErrTransactionRO {
		t.Errorf("expected ErrTransactionRO, got %v", err)
	}
	_ = txn.Rollback()

	txn, _ = s.Begin(true)
	if err := txn.Delete(TableSPO, []byte("k")); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	txn, _ = s.Begin(false)
	defer txn.Rollback()
	if _, err := txn.Get(TableSPO, []byte("k")); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestScanPrefix(t *testing.T) {
	s := newStorage(t)

	txn, _ := s.Begin(true)
	for _, k := range []string{"a1", "a2", "b1"} {
		if err := txn.Set(TableSPO, []byte(k), []byte(k)); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
	}
	if err := txn.Set(TablePOS, []byte("a3"), nil); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	tests := []struct {
		prefix []byte
		want   []string
	}{
		{[]byte("a"), []string{"a1", "a2"}},
		{[]byte("b"), []string{"b1"}},
		{nil, []string{"a1", "a2", "b1"}},
		{[]byte("c"), nil},
	}
	for _, tt := range tests {
		txn, _ := s.Begin(false)
		it, err := txn.Scan(TableSPO, tt.prefix)
		if err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		var got []string
		for it.Next() {
			v, err := it.Value()
			if err != nil {
				t.Fatalf("failed to read value: %v", err)
			}
			if !bytes.Equal(v, it.Key()) {
				t.Errorf("expected value %q, got %q", it.Key(), v)
			}
			got = append(got, string(it.Key()))
		}
		_ = it.Close()
		_ = txn.Rollback()

		if len(got) != len(tt.want) {
			t.Errorf("prefix %q: expected %v, got %v", tt.prefix, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("prefix %q: expected %v, got %v", tt.prefix, tt.want, got)
			}
		}
	}
}

func TestTableString(t *testing.T) {
	if TableOSP.String() != "osp" {
		t.Errorf("expected osp, got %s", TableOSP)
	}
	if numTables.String() != "unknown" {
		t.Errorf("expected unknown, got %s", numTables)
	}
}
