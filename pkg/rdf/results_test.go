package rdf

import (
	"strings"
	"testing"
)

func TestDecodeResultsJSON(t *testing.T) {
	doc := `{
  "head": {"vars": ["s", "label", "n", "b"]},
  "results": {"bindings": [
    {
      "s": {"type": "uri", "value": "http://example.org/a"},
      "label": {"type": "literal", "value": "A", "xml:lang": "en"},
      "n": {"type": "literal", "value": "3", "datatype": "http://www.w3.org/2001/XMLSchema#integer"},
      "b": {"type": "bnode", "value": "x1"}
    },
    {}
  ]}
}`
	res, err := DecodeResultsJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	rows, err := res.Rows()
	if err != nil {
		t.Fatalf("failed to convert rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	row := rows[0]
	if !row["s"].Equals(NewNamedNode("http://example.org/a")) {
		t.Errorf("unexpected s: %v", row["s"])
	}
	if !row["label"].Equals(NewLiteralWithLanguage("A", "en")) {
		t.Errorf("unexpected label: %v", row["label"])
	}
	if !row["n"].Equals(NewIntegerLiteral(3)) {
		t.Errorf("unexpected n: %v", row["n"])
	}
	if !row["b"].Equals(NewBlankNode("x1")) {
		t.Errorf("unexpected b: %v", row["b"])
	}
	if len(rows[1]) != 0 {
		t.Errorf("expected empty second row, got %v", rows[1])
	}
}

func TestDecodeResultsJSON_UnknownType(t *testing.T) {
	doc := `{"head": {"vars": ["x"]}, "results": {"bindings": [{"x": {"type": "triple", "value": ""}}]}}`
	res, err := DecodeResultsJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if _, err := res.Rows(); err == nil {
		t.Error("expected error for unknown binding type")
	}
}

func TestFormatRowsJSON_RoundTrip(t *testing.T) {
	rows := []Row{{
		"x": NewNamedNode("http://example.org/x"),
		"y": NewLiteralWithLanguage("y", "pt"),
	}}
	data, err := FormatRowsJSON(nil, rows)
	if err != nil {
		t.Fatalf("failed to format: %v", err)
	}
	res, err := DecodeResultsJSON(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got := strings.Join(res.Head.Vars, ","); got != "x,y" {
		t.Errorf("expected sorted vars x,y, got %s", got)
	}
	back, err := res.Rows()
	if err != nil {
		t.Fatalf("failed to convert rows: %v", err)
	}
	if !back[0]["y"].Equals(rows[0]["y"]) {
		t.Errorf("expected %v, got %v", rows[0]["y"], back[0]["y"])
	}
}

func TestFormatBooleanJSON(t *testing.T) {
	data, err := FormatBooleanJSON(true)
	if err != nil {
		t.Fatalf("failed to format: %v", err)
	}
	if !strings.Contains(string(data), `"boolean": true`) {
		t.Errorf("unexpected output %s", data)
	}
}
