// Package sparql holds the in-memory SPARQL query representation produced by
// the compiler together with its text encoder.
//
// Queries are built through a cursor: triples, binds, filters and values
// blocks are appended to the current graph pattern, and graph-pattern
// constructors (Group, Optional, Union, FilterNotExists) take a function that
// runs with the new pattern as current. A pattern is attached to its parent
// only when the function returns nil, so a failed region leaves the query as
// it was.
package sparql

import (
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// QueryForm represents the form of a SPARQL query
type QueryForm int

const (
	QueryFormSelect QueryForm = iota
	QueryFormAsk
)

// Query represents a SELECT or ASK query
type Query struct {
	Form       QueryForm
	Distinct   bool              // DISTINCT modifier
	Reduced    bool              // REDUCED modifier
	Projection []*Projection     // Variables to select (empty for *)
	Where      *GraphPattern     // WHERE clause
	OrderBy    []*OrderCondition // ORDER BY clause
	Limit      *int              // LIMIT clause
	Offset     *int              // OFFSET clause
	Prefixes   map[string]string // Prefix name to namespace IRI

	alwaysFalse bool
	cursor      []*GraphPattern
}

// Projection is one item of a SELECT clause: a plain variable or
// (expression AS ?variable).
type Projection struct {
	Variable   *rdf.Variable
	Expression Expression
}

// OrderCondition represents an ORDER BY condition
type OrderCondition struct {
	Expression Expression
	Descending bool
}

// GraphPatternType represents the type of graph pattern
type GraphPatternType int

const (
	GraphPatternTypeGroup GraphPatternType = iota
	GraphPatternTypeUnion
	GraphPatternTypeOptional
	GraphPatternTypeFilterNotExists
)

// GraphPattern represents a graph pattern. Elements keep insertion order.
type GraphPattern struct {
	Type     GraphPatternType
	Elements []Element
}

// Element is anything that can appear inside a graph pattern
type Element interface {
	elementNode()
}

// TriplePattern represents a triple pattern with possible variables
type TriplePattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
}

// Bind represents a BIND expression (assigns an expression to a variable)
type Bind struct {
	Expression Expression
	Variable   *rdf.Variable
}

// Filter represents a FILTER expression
type Filter struct {
	Expression Expression
}

// Comment is emitted verbatim as a query comment
type Comment struct {
	Text string
}

// Values represents an inline VALUES block. A nil term in a row is UNDEF.
type Values struct {
	Variables []*rdf.Variable
	Rows      [][]rdf.Term
}

// SubSelect embeds a nested SELECT query as a group element
type SubSelect struct {
	Query *Query
}

func (*TriplePattern) elementNode() {}
func (*Bind) elementNode()          {}
func (*Filter) elementNode()        {}
func (*Comment) elementNode()       {}
func (*Values) elementNode()        {}
func (*GraphPattern) elementNode()  {}
func (*SubSelect) elementNode()     {}
