package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// TermDecoder handles decoding of RDF terms
type TermDecoder struct{}

// NewTermDecoder creates a new term decoder
func NewTermDecoder() *TermDecoder {
	return &TermDecoder{}
}

// DecodeTerm decodes an encoded term back to an rdf.Term.
// Hashed terms need the string stored for them in the id2str table.
func (d *TermDecoder) DecodeTerm(encoded EncodedTerm, stringValue *string) (rdf.Term, error) {
	tag := encoded.Tag()
	if tag.Hashed() && stringValue == nil {
		return nil, fmt.Errorf("string value required for term tag %d", tag)
	}

	switch tag {
	case TagNamedNode:
		return rdf.NewNamedNode(*stringValue), nil

	case TagBlankNode:
		return rdf.NewBlankNode(*stringValue), nil

	case TagNumericBlankNode:
		return rdf.NewBlankNode(strconv.FormatUint(binary.BigEndian.Uint64(encoded[1:9]), 10)), nil

	case TagInlineString:
		data := encoded[1:]
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return rdf.NewLiteral(string(data)), nil

	case TagString:
		return rdf.NewLiteral(*stringValue), nil

	case TagLangString:
		i := strings.LastIndexByte(*stringValue, '@')
		if i < 0 {
			return nil, fmt.Errorf("malformed language-tagged literal %q", *stringValue)
		}
		return rdf.NewLiteralWithLanguage((*stringValue)[:i], (*stringValue)[i+1:]), nil

	case TagInteger:
		value := int64(binary.BigEndian.Uint64(encoded[1:9])) // #nosec G115 - intentional bit-pattern conversion for binary decoding
		return rdf.NewIntegerLiteral(value), nil

	case TagBoolean:
		return rdf.NewBooleanLiteral(encoded[1] != 0), nil

	case TagTypedLiteral:
		i := strings.LastIndex(*stringValue, "^^")
		if i < 0 {
			return nil, fmt.Errorf("malformed typed literal %q", *stringValue)
		}
		return rdf.NewLiteralWithDatatype((*stringValue)[:i], rdf.NewNamedNode((*stringValue)[i+2:])), nil

	default:
		return nil, fmt.Errorf("unknown term tag: %d", tag)
	}
}
