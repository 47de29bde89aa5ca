// Package ast defines the syntax tree produced by the parser and
// consumed by the compiler and the interpreter.
package ast

import "flowlang/internal/bigint"

type Program struct {
	Statements []Statement
}

type Statement interface {
	stmtNode()
	Pos() int
}

type Expression interface {
	exprNode()
	Pos() int
}

// Node carries the source line for diagnostics and is embedded in
// every statement and expression.
type Node struct {
	Line int
}

func (n Node) Pos() int { return n.Line }

// Statements.

type LetStmt struct {
	Node
	Name  string
	Value Expression
}

type DefStmt struct {
	Node
	Name   string
	Params []Parameter
	Body   []Statement
}

type IfStmt struct {
	Node
	Condition Expression
	Then      []Statement
	Else      []Statement
}

type WhileStmt struct {
	Node
	Condition Expression
	Body      []Statement
}

type ForStmt struct {
	Node
	Variable string
	Start    Expression
	End      Expression
	Body     []Statement
}

type ShowStmt struct {
	Node
	Value Expression
}

type ReturnStmt struct {
	Node
	Value Expression // nil for a bare return
}

type ExprStmt struct {
	Node
	Expr Expression
}

type ImportStmt struct {
	Node
	Path string
}

type ExportStmt struct {
	Node
	Decl Statement
}

type TryStmt struct {
	Node
	Body     []Statement
	CatchVar string
	Catch    []Statement
}

func (*LetStmt) stmtNode()    {}
func (*DefStmt) stmtNode()    {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ForStmt) stmtNode()    {}
func (*ShowStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*ImportStmt) stmtNode() {}
func (*ExportStmt) stmtNode() {}
func (*TryStmt) stmtNode()    {}

// Parameter supports defaults and a trailing variadic collector.
type Parameter struct {
	Name     string
	Default  Expression
	Variadic bool
}

// Expressions.

type IntegerLit struct {
	Node
	Value int64
}

type BigIntegerLit struct {
	Node
	Value *bigint.Int
}

type FloatLit struct {
	Node
	Value float64
}

type StringLit struct {
	Node
	Value string
}

type BooleanLit struct {
	Node
	Value bool
}

type NullLit struct {
	Node
}

type Identifier struct {
	Node
	Name string
}

type BinaryExpr struct {
	Node
	Left     Expression
	Operator BinaryOp
	Right    Expression
}

type UnaryExpr struct {
	Node
	Operator UnaryOp
	Operand  Expression
}

// CallExpr calls a function by name; callees are resolved at run time
// among builtins, globals and locals.
type CallExpr struct {
	Node
	Name string
	Args []Expression
}

type MethodCallExpr struct {
	Node
	Object Expression
	Method string
	Args   []Expression
}

type ArrayLit struct {
	Node
	Elements []Expression
}

type ObjectField struct {
	Key   string
	Value Expression
}

type ObjectLit struct {
	Node
	Fields []ObjectField
}

type IndexExpr struct {
	Node
	Object Expression
	Index  Expression
}

type PropertyExpr struct {
	Node
	Object   Expression
	Property string
}

type LambdaExpr struct {
	Node
	Params []Parameter
	Body   Expression
}

func (*IntegerLit) exprNode()     {}
func (*BigIntegerLit) exprNode()  {}
func (*FloatLit) exprNode()       {}
func (*StringLit) exprNode()      {}
func (*BooleanLit) exprNode()     {}
func (*NullLit) exprNode()        {}
func (*Identifier) exprNode()     {}
func (*BinaryExpr) exprNode()     {}
func (*UnaryExpr) exprNode()      {}
func (*CallExpr) exprNode()       {}
func (*MethodCallExpr) exprNode() {}
func (*ArrayLit) exprNode()       {}
func (*ObjectLit) exprNode()      {}
func (*IndexExpr) exprNode()      {}
func (*PropertyExpr) exprNode()   {}
func (*LambdaExpr) exprNode()     {}


func At(line int) Node { return Node{Line: line} }

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEqual
	OpNotEqual
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEqual:
		return "=="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	default:
		return "?"
	}
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "not"
	}
	return "-"
}
