package mapping

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aleksaelezovic/kifql/pkg/model"
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// Converter turns a matched term into a callback argument.
type Converter func(t model.Term) (rdf.Term, error)

// ToRDF is the default Converter. Variables become query variables of the
// same name and leaf values their RDF form; ground texts become language
// tagged literals. Any other term cannot be an argument and is skipped.
func ToRDF(t model.Term) (rdf.Term, error) {
	switch x := t.(type) {
	case model.Variable:
		return rdf.NewVariable(x.Name), nil
	case model.IRI:
		return rdf.NewNamedNode(x.Value), nil
	case model.Item:
		return rdf.NewNamedNode(x.IRI), nil
	case model.Property:
		return rdf.NewNamedNode(x.IRI), nil
	case model.Lexeme:
		return rdf.NewNamedNode(x.IRI), nil
	case model.String:
		return rdf.NewLiteral(x.Value), nil
	case model.ExternalID:
		return rdf.NewLiteral(x.Value), nil
	case model.Integer:
		return rdf.NewIntegerLiteral(x.Value), nil
	case model.Decimal:
		return rdf.NewDecimalLiteral(x.Value), nil
	case model.DateTime:
		return rdf.NewLiteralWithDatatype(x.Value, rdf.XSDDateTime), nil
	case model.Text:
		content, ok1 := x.Content.(model.String)
		lang, ok2 := x.Language.(model.String)
		if ok1 && ok2 {
			return rdf.NewLiteralWithLanguage(content.Value, lang.Value), nil
		}
	}
	return nil, fmt.Errorf("%w: %v is not an argument", ErrSkip, t)
}

// Match is one successful match of an entry pattern against a source
// pattern.
type Match struct {
	// Pattern is the generalized entry pattern that matched.
	Pattern model.Term
	// Bindings unify Pattern with the source pattern.
	Bindings model.Bindings
	// Renaming maps the entry's canonical variables to those of Pattern.
	Renaming model.Bindings
	Args     Args
}

// Term returns what the entry variable v stands for in the source pattern.
func (m *Match) Term(v model.Variable) model.Term {
	return model.Instantiate(m.Renaming[v], m.Bindings)
}

// Match matches every pattern of e against source and pre-processes the
// arguments of each match. A nil result means e has nothing to contribute.
// Errors other than skips are configuration errors.
func (e *Entry) Match(source model.Term, gen *model.NameGenerator, convert Converter) ([]Match, error) {
	var out []Match
	for _, p := range e.Patterns {
		pattern, renaming := model.Generalize(p, gen, nil)
		b, ok := model.Unify(pattern, source)
		if !ok {
			continue
		}
		m := Match{Pattern: pattern, Bindings: b, Renaming: renaming, Args: make(Args)}
		skipped := false
		for _, v := range model.Variables(p) {
			arg, err := convert(m.Term(v))
			if err != nil {
				if errors.Is(err, ErrSkip) {
					skipped = true
					break
				}
				return nil, &ConfigError{Entry: e.ID, Msg: "argument " + strconv.Quote(v.Name) + ": " + err.Error()}
			}
			arg, ok := Run(e.Preprocess[v], arg)
			if !ok {
				skipped = true
				break
			}
			m.Args[v.Name] = arg
		}
		if !skipped {
			out = append(out, m)
		}
	}
	return out, nil
}
