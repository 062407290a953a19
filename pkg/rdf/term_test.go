package rdf

import (
	"testing"
	"time"
)

// ===== NamedNode Tests =====

func TestNamedNode_String(t *testing.T) {
	tests := []struct {
		name     string
		iri      string
		expected string
	}{
		{"plain", "http://example.org/resource", "<http://example.org/resource>"},
		{"space escaped", "http://example.org/a b", "<http://example.org/a%20b>"},
		{"angle escaped", "http://example.org/<x>", "<http://example.org/%3Cx%3E>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewNamedNode(tt.iri).String(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestNamedNode_Equals(t *testing.T) {
	node1 := NewNamedNode("http://example.org/resource")
	node2 := NewNamedNode("http://example.org/resource")
	node3 := NewNamedNode("http://example.org/different")

	if !node1.Equals(node2) {
		t.Error("Expected equal NamedNodes to be equal")
	}
	if node1.Equals(node3) {
		t.Error("Expected different NamedNodes to not be equal")
	}
	if node1.Equals(NewLiteral("test")) {
		t.Error("NamedNode should not equal Literal")
	}
}

// ===== BlankNode Tests =====

func TestBlankNode_String(t *testing.T) {
	node := NewBlankNode("b1")
	if node.String() != "_:b1" {
		t.Errorf("Expected _:b1, got %s", node.String())
	}
	if node.Type() != TermTypeBlankNode {
		t.Errorf("Expected TermTypeBlankNode, got %v", node.Type())
	}
}

// ===== Literal Tests =====

func TestLiteral_String(t *testing.T) {
	tests := []struct {
		name     string
		literal  *Literal
		expected string
	}{
		{
			name:     "plain literal",
			literal:  NewLiteral("hello"),
			expected: `"hello"`,
		},
		{
			name:     "literal with language",
			literal:  NewLiteralWithLanguage("hello", "en"),
			expected: `"hello"@en`,
		},
		{
			name:     "literal with datatype",
			literal:  NewLiteralWithDatatype("42", XSDInteger),
			expected: `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`,
		},
		{
			name:     "xsd:string is implicit",
			literal:  NewLiteralWithDatatype("x", XSDString),
			expected: `"x"`,
		},
		{
			name:     "escapes",
			literal:  NewLiteral("say \"hi\"\n\\"),
			expected: `"say \"hi\"\n\\"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.literal.String()
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLiteral_Equals(t *testing.T) {
	if !NewLiteral("hello").Equals(NewLiteral("hello")) {
		t.Error("Expected equal plain literals to be equal")
	}
	if NewLiteral("hello").Equals(NewLiteral("world")) {
		t.Error("Expected different plain literals to not be equal")
	}
	if !NewLiteral("hello").Equals(NewLiteralWithDatatype("hello", XSDString)) {
		t.Error("Plain literal should equal xsd:string literal")
	}
	if !NewLiteralWithLanguage("hello", "en").Equals(NewLiteralWithLanguage("hello", "EN")) {
		t.Error("Language tags should compare case-insensitively")
	}
	if NewLiteralWithLanguage("hello", "en").Equals(NewLiteral("hello")) {
		t.Error("Language-tagged literal should not equal plain literal")
	}
	if NewLiteralWithDatatype("42", XSDInteger).Equals(NewLiteralWithDatatype("42", XSDDecimal)) {
		t.Error("Expected literals with different datatypes to not be equal")
	}
}

func TestLiteral_DatatypeIRI(t *testing.T) {
	if got := NewLiteral("x").DatatypeIRI(); got != XSDString.IRI {
		t.Errorf("Expected %s, got %s", XSDString.IRI, got)
	}
	if got := NewLiteralWithLanguage("x", "en").DatatypeIRI(); got != RDFLangString.IRI {
		t.Errorf("Expected %s, got %s", RDFLangString.IRI, got)
	}
}

// ===== Variable Tests =====

func TestVariable(t *testing.T) {
	v := NewVariable("x")
	if v.String() != "?x" {
		t.Errorf("Expected ?x, got %s", v.String())
	}
	if !v.Equals(NewVariable("x")) || v.Equals(NewVariable("y")) {
		t.Error("Variable equality is by name")
	}
}

// ===== Helper Tests =====

func TestLiteralHelpers(t *testing.T) {
	if got := NewIntegerLiteral(42).String(); got != `"42"^^<http://www.w3.org/2001/XMLSchema#integer>` {
		t.Errorf("unexpected integer literal %s", got)
	}
	if got := NewBooleanLiteral(true).Value; got != "true" {
		t.Errorf("Expected true, got %s", got)
	}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := NewDateTimeLiteral(ts).Value; got != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected dateTime value %s", got)
	}
}

func TestTriple_String(t *testing.T) {
	triple := NewTriple(
		NewNamedNode("http://example.org/s"),
		NewNamedNode("http://example.org/p"),
		NewLiteral("o"),
	)
	expected := `<http://example.org/s> <http://example.org/p> "o" .`
	if triple.String() != expected {
		t.Errorf("Expected %s, got %s", expected, triple.String())
	}
}
