package sparql

import (
	"github.com/aleksaelezovic/kifql/pkg/rdf"
)

// Expression represents a SPARQL expression
type Expression interface {
	expressionNode()
}

// TermExpression wraps an RDF term or variable
type TermExpression struct {
	Term rdf.Term
}

// UnaryExpression represents a unary operation
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

// BinaryExpression represents a binary operation
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

// FunctionCallExpression represents a built-in function call
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

// AggregateExpression represents an aggregate; a nil Argument means *.
type AggregateExpression struct {
	Function string
	Argument Expression
	Distinct bool
}

func (*TermExpression) expressionNode()         {}
func (*UnaryExpression) expressionNode()        {}
func (*BinaryExpression) expressionNode()       {}
func (*FunctionCallExpression) expressionNode() {}
func (*AggregateExpression) expressionNode()    {}

// Operator represents an operator in expressions
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot
	OpNegate

	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
)

func (op Operator) String() string {
	switch op {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNot:
		return "!"
	case OpNegate:
		return "-"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	default:
		return "?op"
	}
}

// Built-in function names
const (
	FuncBound     = "BOUND"
	FuncIsBlank   = "isBLANK"
	FuncIsLiteral = "isLITERAL"
	FuncIsIRI     = "isIRI"
	FuncStr       = "STR"
	FuncLang      = "LANG"
	FuncDatatype  = "DATATYPE"
	FuncStrStarts = "STRSTARTS"
	FuncStrLang   = "STRLANG"
	FuncStrDT     = "STRDT"
	FuncIRI       = "IRI"
	FuncCount     = "COUNT"
)

// E converts an operand into an expression. Operands are expressions or
// RDF terms; anything else is a programming error.
func E(operand any) Expression {
	switch x := operand.(type) {
	case Expression:
		return x
	case rdf.Term:
		return &TermExpression{Term: x}
	}
	panic(&TypeError{Op: "expression", Position: "operand", Value: operand})
}

func binary(op Operator, a, b any) Expression {
	return &BinaryExpression{Left: E(a), Operator: op, Right: E(b)}
}

func Eq(a, b any) Expression  { return binary(OpEqual, a, b) }
func Neq(a, b any) Expression { return binary(OpNotEqual, a, b) }
func Lt(a, b any) Expression  { return binary(OpLessThan, a, b) }
func Le(a, b any) Expression  { return binary(OpLessThanOrEqual, a, b) }
func Gt(a, b any) Expression  { return binary(OpGreaterThan, a, b) }
func Ge(a, b any) Expression  { return binary(OpGreaterThanOrEqual, a, b) }

// And folds operands with &&.
func And(operands ...any) Expression { return fold(OpAnd, operands) }

// Or folds operands with ||.
func Or(operands ...any) Expression { return fold(OpOr, operands) }

func fold(op Operator, operands []any) Expression {
	if len(operands) == 0 {
		panic(&TypeError{Op: op.String(), Position: "operands", Value: nil})
	}
	expr := E(operands[0])
	for _, x := range operands[1:] {
		expr = &BinaryExpression{Left: expr, Operator: op, Right: E(x)}
	}
	return expr
}

func Not(x any) Expression    { return &UnaryExpression{Operator: OpNot, Operand: E(x)} }
func Negate(x any) Expression { return &UnaryExpression{Operator: OpNegate, Operand: E(x)} }

// Call builds a built-in function call.
func Call(function string, args ...any) Expression {
	exprs := make([]Expression, len(args))
	for i, a := range args {
		exprs[i] = E(a)
	}
	return &FunctionCallExpression{Function: function, Arguments: exprs}
}

func Bound(v *rdf.Variable) Expression { return Call(FuncBound, v) }
func IsBlank(x any) Expression         { return Call(FuncIsBlank, x) }
func IsLiteral(x any) Expression       { return Call(FuncIsLiteral, x) }
func IsIRI(x any) Expression           { return Call(FuncIsIRI, x) }
func Str(x any) Expression             { return Call(FuncStr, x) }
func Lang(x any) Expression            { return Call(FuncLang, x) }
func Datatype(x any) Expression        { return Call(FuncDatatype, x) }
func StrStarts(x, prefix any) Expression {
	return Call(FuncStrStarts, x, prefix)
}
func StrLang(x, lang any) Expression { return Call(FuncStrLang, x, lang) }
func StrDT(x, dt any) Expression     { return Call(FuncStrDT, x, dt) }
func IRI(x any) Expression           { return Call(FuncIRI, x) }

// Count builds COUNT(x); a nil operand counts solutions (COUNT(*)).
func Count(x any, distinct bool) Expression {
	agg := &AggregateExpression{Function: FuncCount, Distinct: distinct}
	if x != nil {
		agg.Argument = E(x)
	}
	return agg
}
