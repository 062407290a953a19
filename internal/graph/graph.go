// Package graph is a triple store over three badger indexes (SPO, POS, OSP).
package graph

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/kifql/internal/encoding"
	"github.com/aleksaelezovic/kifql/internal/storage"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// Graph manages the RDF triples and their indexes
type Graph struct {
	storage storage.Storage
	encoder *encoding.TermEncoder
	decoder *encoding.TermDecoder
}

// New creates a graph on top of s.
func New(s storage.Storage) *Graph {
	return &Graph{
		storage: s,
		encoder: encoding.NewTermEncoder(),
		decoder: encoding.NewTermDecoder(),
	}
}

// Open opens a badger-backed graph at path; an empty path keeps it in memory.
func Open(path string) (*Graph, error) {
	s, err := storage.NewBadgerStorage(path)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

func (g *Graph) Close() error {
	return g.storage.Close()
}

// Insert adds triples in a single transaction.
func (g *Graph) Insert(triples ...*rdf.Triple) error {
	return g.update(triples, g.insertInTxn)
}

// Delete removes triples in a single transaction. Dictionary entries are
// kept since other triples may share them.
func (g *Graph) Delete(triples ...*rdf.Triple) error {
	return g.update(triples, g.deleteInTxn)
}

func (g *Graph) update(triples []*rdf.Triple, fn func(storage.Transaction, *rdf.Triple) error) error {
	txn, err := g.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for _, t := range triples {
		if err := fn(txn, t); err != nil {
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// encodeTriple encodes the three positions of t, returning the strings to
// keep in the dictionary.
func (g *Graph) encodeTriple(t *rdf.Triple) ([3]encoding.EncodedTerm, [3]*string, error) {
	var (
		enc  [3]encoding.EncodedTerm
		strs [3]*string
	)
	for i, term := range []rdf.Term{t.Subject, t.Predicate, t.Object} {
		e, s, err := g.encoder.EncodeTerm(term)
		if err != nil {
			return enc, strs, fmt.Errorf("failed to encode %s: %w", positionNames[i], err)
		}
		enc[i], strs[i] = e, s
	}
	return enc, strs, nil
}

var positionNames = [3]string{"subject", "predicate", "object"}

func (g *Graph) insertInTxn(txn storage.Transaction, t *rdf.Triple) error {
	enc, strs, err := g.encodeTriple(t)
	if err != nil {
		return err
	}
	for i := range enc {
		if err := g.storeString(txn, enc[i], strs[i]); err != nil {
			return err
		}
	}
	s, p, o := enc[0], enc[1], enc[2]
	if err := txn.Set(storage.TableSPO, g.encoder.EncodeKey(s, p, o), nil); err != nil {
		return err
	}
	if err := txn.Set(storage.TablePOS, g.encoder.EncodeKey(p, o, s), nil); err != nil {
		return err
	}
	return txn.Set(storage.TableOSP, g.encoder.EncodeKey(o, s, p), nil)
}

func (g *Graph) deleteInTxn(txn storage.Transaction, t *rdf.Triple) error {
	enc, _, err := g.encodeTriple(t)
	if err != nil {
		return err
	}
	s, p, o := enc[0], enc[1], enc[2]
	if err := txn.Delete(storage.TableSPO, g.encoder.EncodeKey(s, p, o)); err != nil {
		return err
	}
	if err := txn.Delete(storage.TablePOS, g.encoder.EncodeKey(p, o, s)); err != nil {
		return err
	}
	return txn.Delete(storage.TableOSP, g.encoder.EncodeKey(o, s, p))
}

// storeString stores a string in the id2str table if provided
func (g *Graph) storeString(txn storage.Transaction, encoded encoding.EncodedTerm, str *string) error {
	if str == nil {
		return nil
	}
	if _, err := txn.Get(storage.TableID2Str, encoded[:]); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return txn.Set(storage.TableID2Str, encoded[:], []byte(*str))
}

// Contains checks if a triple exists in the graph
func (g *Graph) Contains(t *rdf.Triple) (bool, error) {
	enc, _, err := g.encodeTriple(t)
	if err != nil {
		return false, err
	}
	txn, err := g.storage.Begin(false)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()

	_, err = txn.Get(storage.TableSPO, g.encoder.EncodeKey(enc[0], enc[1], enc[2]))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of triples in the graph
func (g *Graph) Count() (int64, error) {
	txn, err := g.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(storage.TableSPO, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	count := int64(0)
	for it.Next() {
		count++
	}
	return count, nil
}
