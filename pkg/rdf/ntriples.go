package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// NTriplesReader reads an N-Triples document one triple at a time.
type NTriplesReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewNTriplesReader creates a reader over r.
func NewNTriplesReader(r io.Reader) *NTriplesReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &NTriplesReader{scanner: scanner}
}

// Next returns the next triple, or io.EOF when the input is exhausted.
func (r *NTriplesReader) Next() (*Triple, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		p := &lineParser{input: line}
		triple, err := p.parseTriple()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return triple, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// ReadNTriples reads all triples from r.
func ReadNTriples(r io.Reader) ([]*Triple, error) {
	reader := NewNTriplesReader(r)
	var triples []*Triple
	for {
		triple, err := reader.Next()
		if err == io.EOF {
			return triples, nil
		}
		if err != nil {
			return nil, err
		}
		triples = append(triples, triple)
	}
}

type lineParser struct {
	input string
	pos   int
}

func (p *lineParser) parseTriple() (*Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing subject: %w", err)
	}
	if subject.Type() == TermTypeLiteral {
		return nil, fmt.Errorf("literal in subject position")
	}
	predicate, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing predicate: %w", err)
	}
	if predicate.Type() != TermTypeNamedNode {
		return nil, fmt.Errorf("predicate must be an IRI")
	}
	object, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing object: %w", err)
	}
	p.skipWhitespace()
	if p.pos >= len(p.input) || p.input[p.pos] != '.' {
		return nil, fmt.Errorf("expected '.' at end of triple")
	}
	p.pos++
	p.skipWhitespace()
	if p.pos < len(p.input) && p.input[p.pos] != '#' {
		return nil, fmt.Errorf("unexpected content after '.'")
	}
	return NewTriple(subject, predicate, object), nil
}

func (p *lineParser) skipWhitespace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *lineParser) parseTerm() (Term, error) {
	p.skipWhitespace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of line")
	}
	switch p.input[p.pos] {
	case '<':
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewNamedNode(iri), nil
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character %q", p.input[p.pos])
	}
}

func (p *lineParser) parseIRI() (string, error) {
	p.pos++ // skip '<'
	end := strings.IndexByte(p.input[p.pos:], '>')
	if end < 0 {
		return "", fmt.Errorf("unclosed IRI")
	}
	iri := p.input[p.pos : p.pos+end]
	p.pos += end + 1
	return unescapeNumeric(iri)
}

func (p *lineParser) parseBlankNode() (Term, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("expected '_:'")
	}
	p.pos += 2
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '.' && (p.pos+1 == len(p.input) || p.input[p.pos+1] == ' ') {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

func (p *lineParser) parseLiteral() (Term, error) {
	p.pos++ // skip opening quote
	var b strings.Builder
	for {
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unclosed string literal")
		}
		ch := p.input[p.pos]
		if ch == '"' {
			p.pos++
			break
		}
		if ch != '\\' {
			b.WriteByte(ch)
			p.pos++
			continue
		}
		if p.pos+1 >= len(p.input) {
			return nil, fmt.Errorf("dangling escape")
		}
		p.pos++
		switch esc := p.input[p.pos]; esc {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(esc)
		case 'u', 'U':
			size := 4
			if esc == 'U' {
				size = 8
			}
			if p.pos+size >= len(p.input) {
				return nil, fmt.Errorf("truncated unicode escape")
			}
			code, err := strconv.ParseUint(p.input[p.pos+1:p.pos+1+size], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid unicode escape: %w", err)
			}
			b.WriteRune(rune(code))
			p.pos += size
		default:
			return nil, fmt.Errorf("invalid escape sequence \\%c", esc)
		}
		p.pos++
	}
	value := b.String()

	if p.pos < len(p.input) && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < len(p.input) && (isAlnum(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		if p.pos == start {
			return nil, fmt.Errorf("empty language tag")
		}
		return NewLiteralWithLanguage(value, p.input[start:p.pos]), nil
	}
	if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.pos += 2
		if p.pos >= len(p.input) || p.input[p.pos] != '<' {
			return nil, fmt.Errorf("expected datatype IRI")
		}
		iri, err := p.parseIRI()
		if err != nil {
			return nil, err
		}
		return NewLiteralWithDatatype(value, NewNamedNode(iri)), nil
	}
	return NewLiteral(value), nil
}

func unescapeNumeric(s string) (string, error) {
	if !strings.Contains(s, `\u`) && !strings.Contains(s, `\U`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) || (s[i+1] != 'u' && s[i+1] != 'U') {
			b.WriteByte(s[i])
			continue
		}
		size := 4
		if s[i+1] == 'U' {
			size = 8
		}
		if i+2+size > len(s) {
			return "", fmt.Errorf("truncated unicode escape in IRI")
		}
		code, err := strconv.ParseUint(s[i+2:i+2+size], 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid unicode escape in IRI: %w", err)
		}
		b.WriteRune(rune(code))
		i += 1 + size
	}
	return b.String(), nil
}

func isAlnum(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}
