// Package encoding turns RDF terms into fixed-size index keys.
//
// Every term is a tag byte followed by 16 bytes: short plain strings,
// canonical integers, booleans and numeric blank node ids are stored inline,
// everything else as the 128-bit xxh3 hash of its lexical form. Hashed terms
// come with the string to keep in the id2str table, so decoding is lossless.
package encoding

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

const (
	// Maximum size for inline strings (16 bytes of UTF-8)
	MaxInlineStringSize = 16

	// Encoded term size (tag byte + 16 bytes for 128-bit hash or inline data)
	EncodedTermSize = 17
)

// Tag is the first byte of an encoded term.
type Tag byte

const (
	TagNamedNode Tag = iota + 1
	TagBlankNode
	TagNumericBlankNode
	TagInlineString
	TagString
	TagLangString
	TagInteger
	TagBoolean
	TagTypedLiteral
)

// Hashed reports whether terms of this tag keep their lexical form in the
// id2str table.
func (t Tag) Hashed() bool {
	switch t {
	case TagNamedNode, TagBlankNode, TagString, TagLangString, TagTypedLiteral:
		return true
	}
	return false
}

// EncodedTerm represents a term encoded as a tag byte followed by 16 bytes of data
type EncodedTerm [EncodedTermSize]byte

// Tag returns the tag of the encoded term.
func (e EncodedTerm) Tag() Tag { return Tag(e[0]) }

// TermEncoder encodes RDF terms into index keys.
type TermEncoder struct{}

func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// Hash128 computes a 128-bit xxhash3 hash of the input string
func (e *TermEncoder) Hash128(s string) [16]byte {
	hash := xxh3.HashString128(s)
	var result [16]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// EncodeTerm encodes an RDF term into a fixed-size byte array.
// Returns the encoded term and optionally a string to store in id2str table
func (e *TermEncoder) EncodeTerm(term rdf.Term) (EncodedTerm, *string, error) {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return e.hashed(TagNamedNode, t.IRI)
	case *rdf.BlankNode:
		if num, err := strconv.ParseUint(t.ID, 10, 64); err == nil && strconv.FormatUint(num, 10) == t.ID {
			var encoded EncodedTerm
			encoded[0] = byte(TagNumericBlankNode)
			binary.BigEndian.PutUint64(encoded[1:9], num)
			return encoded, nil, nil
		}
		return e.hashed(TagBlankNode, t.ID)
	case *rdf.Literal:
		return e.encodeLiteral(t)
	case nil:
		return EncodedTerm{}, nil, fmt.Errorf("nil term")
	default:
		return EncodedTerm{}, nil, fmt.Errorf("unknown term type: %T", term)
	}
}

func (e *TermEncoder) hashed(tag Tag, s string) (EncodedTerm, *string, error) {
	var encoded EncodedTerm
	encoded[0] = byte(tag)
	hash := e.Hash128(s)
	copy(encoded[1:], hash[:])
	return encoded, &s, nil
}

func (e *TermEncoder) encodeLiteral(lit *rdf.Literal) (EncodedTerm, *string, error) {
	if lit.Language != "" {
		// Language tags never contain '@', so the last one splits the pair.
		return e.hashed(TagLangString, lit.Value+"@"+strings.ToLower(lit.Language))
	}

	var encoded EncodedTerm
	switch lit.DatatypeIRI() {
	case rdf.XSDString.IRI:
		if len(lit.Value) > MaxInlineStringSize || strings.IndexByte(lit.Value, 0) >= 0 {
			return e.hashed(TagString, lit.Value)
		}
		encoded[0] = byte(TagInlineString)
		copy(encoded[1:], lit.Value)
		return encoded, nil, nil
	case rdf.XSDInteger.IRI:
		value, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil || strconv.FormatInt(value, 10) != lit.Value {
			break
		}
		encoded[0] = byte(TagInteger)
		binary.BigEndian.PutUint64(encoded[1:9], uint64(value)) // #nosec G115 - intentional bit-pattern conversion for binary encoding
		return encoded, nil, nil
	case rdf.XSDBoolean.IRI:
		if lit.Value != "true" && lit.Value != "false" {
			break
		}
		encoded[0] = byte(TagBoolean)
		if lit.Value == "true" {
			encoded[1] = 1
		}
		return encoded, nil, nil
	}
	// IRIs cannot contain '^', so the last "^^" splits the pair.
	return e.hashed(TagTypedLiteral, lit.Value+"^^"+lit.DatatypeIRI())
}

// EncodeKey concatenates encoded terms into an index key.
func (e *TermEncoder) EncodeKey(terms ...EncodedTerm) []byte {
	result := make([]byte, 0, len(terms)*EncodedTermSize)
	for _, term := range terms {
		result = append(result, term[:]...)
	}
	return result
}

// SplitKey cuts an index key back into its encoded terms.
func SplitKey(key []byte) ([]EncodedTerm, error) {
	if len(key)%EncodedTermSize != 0 {
		return nil, fmt.Errorf("invalid key length: %d", len(key))
	}
	terms := make([]EncodedTerm, len(key)/EncodedTermSize)
	for i := range terms {
		copy(terms[i][:], key[i*EncodedTermSize:])
	}
	return terms, nil
}
