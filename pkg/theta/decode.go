package theta

import (
	"fmt"
	"strconv"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// Decode converts a raw row value into a term of the given kind.
func Decode(raw rdf.Term, kind model.Kind) (model.Term, error) {
	switch x := raw.(type) {
	case *rdf.NamedNode:
		switch kind {
		case model.KindIRI, model.KindValue:
			return model.NewIRI(x.IRI), nil
		case model.KindItem:
			return model.NewItem(x.IRI), nil
		case model.KindProperty:
			return model.NewProperty(x.IRI), nil
		case model.KindLexeme:
			return model.NewLexeme(x.IRI), nil
		}
	case *rdf.Literal:
		return decodeLiteral(x, kind)
	}
	return nil, fmt.Errorf("%w: %s as %s", ErrDecode, raw, kind)
}

func decodeLiteral(l *rdf.Literal, kind model.Kind) (model.Term, error) {
	dt := l.DatatypeIRI()
	switch kind {
	case model.KindString:
		if l.Language == "" {
			return model.NewString(l.Value), nil
		}
	case model.KindExternalID:
		if l.Language == "" {
			return model.NewExternalID(l.Value), nil
		}
	case model.KindText:
		if l.Language != "" {
			return model.NewText(l.Value, l.Language), nil
		}
	case model.KindInteger:
		if n, err := strconv.ParseInt(l.Value, 10, 64); err == nil {
			return model.NewInteger(n), nil
		}
	case model.KindDecimal:
		if isNumeric(dt) {
			return model.NewDecimal(l.Value), nil
		}
	case model.KindDateTime:
		if dt == rdf.XSDDateTime.IRI {
			return model.NewDateTime(l.Value), nil
		}
	case model.KindValue:
		switch {
		case l.Language != "":
			return model.NewText(l.Value, l.Language), nil
		case isNumeric(dt):
			return model.NewQuantity(l.Value), nil
		case dt == rdf.XSDDateTime.IRI:
			return model.NewTime(l.Value), nil
		default:
			return model.NewString(l.Value), nil
		}
	}
	return nil, fmt.Errorf("%w: %s as %s", ErrDecode, l, kind)
}

func isNumeric(datatype string) bool {
	switch datatype {
	case rdf.XSDDecimal.IRI, rdf.XSDInteger.IRI, rdf.XSDDouble.IRI:
		return true
	}
	return false
}
