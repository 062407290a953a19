package rdf

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// SPARQL JSON Results Format
// https://www.w3.org/TR/sparql11-results-json/

// ResultsJSON represents the JSON format for SPARQL query results
type ResultsJSON struct {
	Head    ResultHead      `json:"head"`
	Results *ResultBindings `json:"results,omitempty"`
	Boolean *bool           `json:"boolean,omitempty"`
}

// ResultHead contains the variable names
type ResultHead struct {
	Vars []string `json:"vars"`
}

// ResultBindings contains the result bindings
type ResultBindings struct {
	Bindings []map[string]BindingValue `json:"bindings"`
}

// BindingValue represents a single bound value
type BindingValue struct {
	Type     string  `json:"type"`
	Value    string  `json:"value"`
	Datatype *string `json:"datatype,omitempty"`
	XMLLang  *string `json:"xml:lang,omitempty"`
}

// Term converts a binding value back into an RDF term.
func (bv BindingValue) Term() (Term, error) {
	switch bv.Type {
	case "uri":
		return NewNamedNode(bv.Value), nil
	case "bnode":
		return NewBlankNode(bv.Value), nil
	case "literal", "typed-literal":
		if bv.XMLLang != nil && *bv.XMLLang != "" {
			return NewLiteralWithLanguage(bv.Value, *bv.XMLLang), nil
		}
		if bv.Datatype != nil && *bv.Datatype != "" {
			return NewLiteralWithDatatype(bv.Value, NewNamedNode(*bv.Datatype)), nil
		}
		return NewLiteral(bv.Value), nil
	default:
		return nil, fmt.Errorf("unknown binding type: %q", bv.Type)
	}
}

// DecodeResultsJSON reads a SPARQL JSON result document.
func DecodeResultsJSON(r io.Reader) (*ResultsJSON, error) {
	var res ResultsJSON
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return &res, nil
}

// Rows converts the result bindings into rows.
func (r *ResultsJSON) Rows() ([]Row, error) {
	if r.Results == nil {
		return nil, nil
	}
	rows := make([]Row, 0, len(r.Results.Bindings))
	for _, binding := range r.Results.Bindings {
		row := make(Row, len(binding))
		for name, bv := range binding {
			term, err := bv.Term()
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", name, err)
			}
			row[name] = term
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FormatRowsJSON converts rows to SPARQL JSON format. When vars is nil the
// variables are collected from the rows and sorted.
func FormatRowsJSON(vars []string, rows []Row) ([]byte, error) {
	if vars == nil {
		varSet := make(map[string]bool)
		for _, row := range rows {
			for name := range row {
				if !varSet[name] {
					varSet[name] = true
					vars = append(vars, name)
				}
			}
		}
		sort.Strings(vars)
	}

	jsonBindings := make([]map[string]BindingValue, 0, len(rows))
	for _, row := range rows {
		jsonBinding := make(map[string]BindingValue, len(row))
		for name, term := range row {
			jsonBinding[name] = TermToBindingValue(term)
		}
		jsonBindings = append(jsonBindings, jsonBinding)
	}

	return json.MarshalIndent(ResultsJSON{
		Head:    ResultHead{Vars: vars},
		Results: &ResultBindings{Bindings: jsonBindings},
	}, "", "  ")
}

// FormatBooleanJSON converts an ASK result to SPARQL JSON format
func FormatBooleanJSON(result bool) ([]byte, error) {
	return json.MarshalIndent(ResultsJSON{
		Head:    ResultHead{Vars: []string{}},
		Boolean: &result,
	}, "", "  ")
}

// TermToBindingValue converts an RDF term to a SPARQL JSON binding value
func TermToBindingValue(term Term) BindingValue {
	switch t := term.(type) {
	case *NamedNode:
		return BindingValue{Type: "uri", Value: t.IRI}

	case *BlankNode:
		return BindingValue{Type: "bnode", Value: t.ID}

	case *Literal:
		bv := BindingValue{Type: "literal", Value: t.Value}
		if t.Language != "" {
			lang := t.Language
			bv.XMLLang = &lang
		} else if t.Datatype != nil {
			datatypeIRI := t.Datatype.IRI
			bv.Datatype = &datatypeIRI
		}
		return bv

	default:
		return BindingValue{Type: "literal", Value: term.String()}
	}
}
