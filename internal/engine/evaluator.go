package engine

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/aleksaelezovic/kifql/pkg/rdf"
	"github.com/aleksaelezovic/kifql/pkg/sparql"
)

// Evaluator evaluates SPARQL expressions against solutions
type Evaluator struct{}

// NewEvaluator creates a new expression evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate evaluates an expression against a solution and returns the result
// term. Type errors and unbound variables are returned as errors.
func (e *Evaluator) Evaluate(expr sparql.Expression, row rdf.Row) (rdf.Term, error) {
	switch ex := expr.(type) {
	case *sparql.TermExpression:
		if v, ok := ex.Term.(*rdf.Variable); ok {
			value, exists := row[v.Name]
			if !exists {
				return nil, fmt.Errorf("unbound variable: ?%s", v.Name)
			}
			return value, nil
		}
		return ex.Term, nil
	case *sparql.UnaryExpression:
		return e.evaluateUnaryExpression(ex, row)
	case *sparql.BinaryExpression:
		return e.evaluateBinaryExpression(ex, row)
	case *sparql.FunctionCallExpression:
		return e.evaluateFunctionCall(ex, row)
	case *sparql.AggregateExpression:
		return nil, fmt.Errorf("aggregate %s outside of a projection", ex.Function)
	case nil:
		return nil, fmt.Errorf("cannot evaluate nil expression")
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", expr)
	}
}

// Test evaluates expr as a filter condition: errors count as false.
func (e *Evaluator) Test(expr sparql.Expression, row rdf.Row) bool {
	t, err := e.Evaluate(expr, row)
	if err != nil {
		return false
	}
	ok, err := effectiveBooleanValue(t)
	return err == nil && ok
}

func (e *Evaluator) evaluateUnaryExpression(expr *sparql.UnaryExpression, row rdf.Row) (rdf.Term, error) {
	operand, err := e.Evaluate(expr.Operand, row)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case sparql.OpNot:
		ebv, err := effectiveBooleanValue(operand)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!ebv), nil
	case sparql.OpNegate:
		n, ok := numericValue(operand)
		if !ok {
			return nil, fmt.Errorf("cannot negate non-numeric term %s", operand)
		}
		return numericLiteral(n.Neg(n)), nil
	default:
		return nil, fmt.Errorf("unsupported unary operator: %v", expr.Operator)
	}
}

func (e *Evaluator) evaluateBinaryExpression(expr *sparql.BinaryExpression, row rdf.Row) (rdf.Term, error) {
	switch expr.Operator {
	case sparql.OpAnd:
		return e.evaluateAnd(expr, row)
	case sparql.OpOr:
		return e.evaluateOr(expr, row)
	}

	left, err := e.Evaluate(expr.Left, row)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(expr.Right, row)
	if err != nil {
		return nil, err
	}

	switch expr.Operator {
	case sparql.OpEqual:
		eq, err := valueEqual(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(eq), nil
	case sparql.OpNotEqual:
		eq, err := valueEqual(left, right)
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(!eq), nil
	}

	cmp, err := compareValues(left, right)
	if err != nil {
		return nil, err
	}
	switch expr.Operator {
	case sparql.OpLessThan:
		return rdf.NewBooleanLiteral(cmp < 0), nil
	case sparql.OpLessThanOrEqual:
		return rdf.NewBooleanLiteral(cmp <= 0), nil
	case sparql.OpGreaterThan:
		return rdf.NewBooleanLiteral(cmp > 0), nil
	case sparql.OpGreaterThanOrEqual:
		return rdf.NewBooleanLiteral(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("unsupported binary operator: %v", expr.Operator)
	}
}

// evaluateAnd follows the SPARQL error table: false wins over an error.
func (e *Evaluator) evaluateAnd(expr *sparql.BinaryExpression, row rdf.Row) (rdf.Term, error) {
	left, leftErr := e.ebv(expr.Left, row)
	if leftErr == nil && !left {
		return rdf.NewBooleanLiteral(false), nil
	}
	right, rightErr := e.ebv(expr.Right, row)
	if rightErr == nil && !right {
		return rdf.NewBooleanLiteral(false), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	if rightErr != nil {
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(true), nil
}

// evaluateOr follows the SPARQL error table: true wins over an error.
func (e *Evaluator) evaluateOr(expr *sparql.BinaryExpression, row rdf.Row) (rdf.Term, error) {
	left, leftErr := e.ebv(expr.Left, row)
	if leftErr == nil && left {
		return rdf.NewBooleanLiteral(true), nil
	}
	right, rightErr := e.ebv(expr.Right, row)
	if rightErr == nil && right {
		return rdf.NewBooleanLiteral(true), nil
	}
	if leftErr != nil {
		return nil, leftErr
	}
	if rightErr != nil {
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(false), nil
}

func (e *Evaluator) ebv(expr sparql.Expression, row rdf.Row) (bool, error) {
	t, err := e.Evaluate(expr, row)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(t)
}

func (e *Evaluator) evaluateFunctionCall(expr *sparql.FunctionCallExpression, row rdf.Row) (rdf.Term, error) {
	name := strings.ToUpper(expr.Function)
	if name == "BOUND" {
		if len(expr.Arguments) != 1 {
			return nil, fmt.Errorf("BOUND requires exactly 1 argument")
		}
		var v *rdf.Variable
		if te, ok := expr.Arguments[0].(*sparql.TermExpression); ok {
			v, _ = te.Term.(*rdf.Variable)
		}
		if v == nil {
			return nil, fmt.Errorf("BOUND requires a variable argument")
		}
		_, exists := row[v.Name]
		return rdf.NewBooleanLiteral(exists), nil
	}

	args := make([]rdf.Term, len(expr.Arguments))
	for i, a := range expr.Arguments {
		t, err := e.Evaluate(a, row)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	arity := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s requires exactly %d argument(s)", name, n)
		}
		return nil
	}

	switch name {
	case "ISIRI", "ISURI":
		if err := arity(1); err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(args[0].Type() == rdf.TermTypeNamedNode), nil
	case "ISBLANK":
		if err := arity(1); err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(args[0].Type() == rdf.TermTypeBlankNode), nil
	case "ISLITERAL":
		if err := arity(1); err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(args[0].Type() == rdf.TermTypeLiteral), nil
	case "STR":
		if err := arity(1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case *rdf.NamedNode:
			return rdf.NewLiteral(t.IRI), nil
		case *rdf.Literal:
			return rdf.NewLiteral(t.Value), nil
		}
		return nil, fmt.Errorf("STR of %s", args[0])
	case "LANG":
		if err := arity(1); err != nil {
			return nil, err
		}
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("LANG of non-literal %s", args[0])
		}
		return rdf.NewLiteral(lit.Language), nil
	case "DATATYPE":
		if err := arity(1); err != nil {
			return nil, err
		}
		lit, ok := args[0].(*rdf.Literal)
		if !ok {
			return nil, fmt.Errorf("DATATYPE of non-literal %s", args[0])
		}
		return rdf.NewNamedNode(lit.DatatypeIRI()), nil
	case "STRSTARTS":
		if err := arity(2); err != nil {
			return nil, err
		}
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		prefix, err := extractString(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewBooleanLiteral(strings.HasPrefix(s, prefix)), nil
	case "STRLANG":
		if err := arity(2); err != nil {
			return nil, err
		}
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		lang, err := extractString(args[1])
		if err != nil {
			return nil, err
		}
		return rdf.NewLiteralWithLanguage(s, lang), nil
	case "STRDT":
		if err := arity(2); err != nil {
			return nil, err
		}
		s, err := extractString(args[0])
		if err != nil {
			return nil, err
		}
		dt, ok := args[1].(*rdf.NamedNode)
		if !ok {
			return nil, fmt.Errorf("STRDT requires an IRI datatype")
		}
		return rdf.NewLiteralWithDatatype(s, dt), nil
	case "IRI", "URI":
		if err := arity(1); err != nil {
			return nil, err
		}
		switch t := args[0].(type) {
		case *rdf.NamedNode:
			return t, nil
		case *rdf.Literal:
			if t.DatatypeIRI() == rdf.XSDString.IRI {
				return rdf.NewNamedNode(t.Value), nil
			}
		}
		return nil, fmt.Errorf("IRI of %s", args[0])
	default:
		return nil, fmt.Errorf("unsupported function: %s", expr.Function)
	}
}

// extractString returns the lexical form of a simple or xsd:string literal.
func extractString(term rdf.Term) (string, error) {
	if lit, ok := term.(*rdf.Literal); ok && (lit.Language != "" || lit.DatatypeIRI() == rdf.XSDString.IRI) {
		return lit.Value, nil
	}
	return "", fmt.Errorf("cannot extract string from %s", term)
}

// effectiveBooleanValue computes the EBV of a term according to SPARQL
func effectiveBooleanValue(term rdf.Term) (bool, error) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("cannot compute EBV of non-literal term %s", term)
	}
	switch dt := lit.DatatypeIRI(); {
	case dt == rdf.XSDBoolean.IRI:
		return lit.Value == "true" || lit.Value == "1", nil
	case dt == rdf.XSDString.IRI:
		return lit.Value != "", nil
	case numericTypes[dt]:
		n, ok := numericValue(lit)
		if !ok {
			return false, nil
		}
		return n.Sign() != 0, nil
	}
	return false, fmt.Errorf("cannot compute EBV of literal with datatype %s", lit.DatatypeIRI())
}

const xsd = "http://www.w3.org/2001/XMLSchema#"

var numericTypes = map[string]bool{
	xsd + "integer": true, xsd + "decimal": true, xsd + "double": true, xsd + "float": true,
	xsd + "int": true, xsd + "long": true, xsd + "short": true, xsd + "byte": true,
	xsd + "nonNegativeInteger": true, xsd + "positiveInteger": true,
	xsd + "nonPositiveInteger": true, xsd + "negativeInteger": true,
	xsd + "unsignedInt": true, xsd + "unsignedLong": true,
	xsd + "unsignedShort": true, xsd + "unsignedByte": true,
}

// numericValue returns the exact value of a numeric literal.
func numericValue(term rdf.Term) (*big.Rat, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || !numericTypes[lit.DatatypeIRI()] {
		return nil, false
	}
	s := strings.TrimPrefix(strings.TrimSpace(lit.Value), "+")
	switch lit.DatatypeIRI() {
	case xsd + "double", xsd + "float":
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(f), true
	}
	if strings.ContainsAny(s, "eE/") {
		return nil, false
	}
	n, ok := new(big.Rat).SetString(s)
	return n, ok
}

func numericLiteral(n *big.Rat) *rdf.Literal {
	if n.IsInt() {
		return rdf.NewLiteralWithDatatype(n.Num().String(), rdf.XSDInteger)
	}
	s := strings.TrimRight(n.FloatString(18), "0")
	return rdf.NewDecimalLiteral(s)
}

func dateTimeValue(term rdf.Term) (time.Time, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || lit.DatatypeIRI() != rdf.XSDDateTime.IRI {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(lit.Value))
	return t, err == nil
}

// valueEqual implements the = operator: numbers and dates compare by value,
// other literals by term equality, with a type error for distinct literals
// of unrelated datatypes.
func valueEqual(left, right rdf.Term) (bool, error) {
	if a, ok := numericValue(left); ok {
		if b, ok := numericValue(right); ok {
			return a.Cmp(b) == 0, nil
		}
	}
	if a, ok := dateTimeValue(left); ok {
		if b, ok := dateTimeValue(right); ok {
			return a.Equal(b), nil
		}
	}
	if left.Equals(right) {
		return true, nil
	}
	l, lok := left.(*rdf.Literal)
	r, rok := right.(*rdf.Literal)
	if lok && rok && !comparableLiterals(l, r) {
		return false, fmt.Errorf("cannot compare %s and %s", left, right)
	}
	return false, nil
}

func comparableLiterals(l, r *rdf.Literal) bool {
	ldt, rdt := l.DatatypeIRI(), r.DatatypeIRI()
	if ldt == rdt {
		return true
	}
	known := func(dt string) bool {
		return dt == rdf.XSDString.IRI || dt == rdf.RDFLangString.IRI || dt == rdf.XSDBoolean.IRI ||
			dt == rdf.XSDDateTime.IRI || numericTypes[dt]
	}
	return known(ldt) && known(rdt)
}

// compareValues orders two comparable values for <, <=, > and >=.
func compareValues(left, right rdf.Term) (int, error) {
	if a, ok := numericValue(left); ok {
		if b, ok := numericValue(right); ok {
			return a.Cmp(b), nil
		}
	}
	if a, ok := dateTimeValue(left); ok {
		if b, ok := dateTimeValue(right); ok {
			return a.Compare(b), nil
		}
	}
	l, lok := left.(*rdf.Literal)
	r, rok := right.(*rdf.Literal)
	if lok && rok && l.DatatypeIRI() == r.DatatypeIRI() {
		switch l.DatatypeIRI() {
		case rdf.XSDString.IRI, rdf.XSDBoolean.IRI:
			return strings.Compare(l.Value, r.Value), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s and %s", left, right)
}

// orderTerms orders terms for ORDER BY: unbound, blank nodes, IRIs, then
// literals, falling back to lexical order where values do not compare.
func orderTerms(a, b rdf.Term) int {
	rank := func(t rdf.Term) int {
		if t == nil {
			return 0
		}
		switch t.Type() {
		case rdf.TermTypeBlankNode:
			return 1
		case rdf.TermTypeNamedNode:
			return 2
		}
		return 3
	}
	if ra, rb := rank(a), rank(b); ra != rb || ra == 0 {
		return ra - rb
	}
	if cmp, err := compareValues(a, b); err == nil && cmp != 0 {
		return cmp
	}
	return strings.Compare(a.String(), b.String())
}
