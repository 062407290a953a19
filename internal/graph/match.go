package graph

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/kifql/internal/encoding"
	"github.com/aleksaelezovic/kifql/internal/storage"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// Iterator iterates over the triples matching a pattern
type Iterator interface {
	Next() bool
	Triple() (*rdf.Triple, error)
	Close() error
}

// Match returns the triples whose positions equal the bound terms of the
// pattern. A nil term or a variable matches anything; repeated variables are
// not joined here.
func (g *Graph) Match(s, p, o rdf.Term) (Iterator, error) {
	positions := [3]rdf.Term{s, p, o}
	table, order := selectIndex(positions)

	prefix, err := g.buildScanPrefix(positions, order)
	if err != nil {
		return nil, err
	}

	txn, err := g.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	it, err := txn.Scan(table, prefix)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	return &tripleIterator{graph: g, txn: txn, it: it, order: order}, nil
}

// All collects the triples matching a pattern.
func (g *Graph) All(s, p, o rdf.Term) ([]*rdf.Triple, error) {
	it, err := g.Match(s, p, o)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*rdf.Triple
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func isBound(t rdf.Term) bool {
	if t == nil {
		return false
	}
	_, ok := t.(*rdf.Variable)
	return !ok
}

// selectIndex chooses the index whose key starts with the bound positions,
// returning the position (0=S, 1=P, 2=O) stored at each key slot.
func selectIndex(positions [3]rdf.Term) (storage.Table, [3]int) {
	var (
		spo = [3]int{0, 1, 2}
		pos = [3]int{1, 2, 0}
		osp = [3]int{2, 0, 1}
	)
	sBound, pBound, oBound := isBound(positions[0]), isBound(positions[1]), isBound(positions[2])
	switch {
	case sBound && pBound:
		return storage.TableSPO, spo
	case pBound && oBound:
		return storage.TablePOS, pos
	case oBound && sBound:
		return storage.TableOSP, osp
	case sBound:
		return storage.TableSPO, spo
	case pBound:
		return storage.TablePOS, pos
	case oBound:
		return storage.TableOSP, osp
	}
	return storage.TableSPO, spo
}

// buildScanPrefix encodes the bound terms in key order up to the first
// unbound slot.
func (g *Graph) buildScanPrefix(positions [3]rdf.Term, order [3]int) ([]byte, error) {
	var prefix []byte
	for _, idx := range order {
		term := positions[idx]
		if !isBound(term) {
			break
		}
		encoded, _, err := g.encoder.EncodeTerm(term)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", positionNames[idx], err)
		}
		prefix = append(prefix, encoded[:]...)
	}
	return prefix, nil
}

type tripleIterator struct {
	graph  *Graph
	txn    storage.Transaction
	it     storage.Iterator
	order  [3]int
	closed bool
}

func (ti *tripleIterator) Next() bool {
	if ti.closed {
		return false
	}
	return ti.it.Next()
}

func (ti *tripleIterator) Triple() (*rdf.Triple, error) {
	if ti.closed {
		return nil, fmt.Errorf("iterator closed")
	}
	key := ti.it.Key()
	if key == nil {
		return nil, fmt.Errorf("no current key")
	}
	terms, err := encoding.SplitKey(key)
	if err != nil {
		return nil, err
	}
	if len(terms) != 3 {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}

	var decoded [3]rdf.Term
	for slot, idx := range ti.order {
		decoded[idx], err = ti.graph.decodeTerm(ti.txn, terms[slot])
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", positionNames[idx], err)
		}
	}
	return rdf.NewTriple(decoded[0], decoded[1], decoded[2]), nil
}

func (ti *tripleIterator) Close() error {
	if ti.closed {
		return nil
	}
	ti.closed = true
	_ = ti.it.Close()
	return ti.txn.Rollback()
}

// decodeTerm decodes an encoded term, looking hashed terms up in id2str
func (g *Graph) decodeTerm(txn storage.Transaction, encoded encoding.EncodedTerm) (rdf.Term, error) {
	var stringValue *string
	if encoded.Tag().Hashed() {
		str, err := txn.Get(storage.TableID2Str, encoded[:])
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			s := string(str)
			stringValue = &s
		}
	}
	return g.decoder.DecodeTerm(encoded, stringValue)
}
